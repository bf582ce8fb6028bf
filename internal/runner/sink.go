package runner

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Invocation is the log record of one executed command.
type Invocation struct {
	Command     string
	Message     string
	Via         string
	ExitCode    int
	Stdout      string
	Stderr      string
	QuietStdout bool
	TimedOut    bool
	Started     time.Time
	Duration    time.Duration
}

// Sink receives one Invocation per executed command, in execution order.
type Sink interface {
	Log(inv Invocation)
}

// Recorder persists invocations somewhere other than the log.
type Recorder interface {
	Record(inv Invocation) error
}

// AsyncLog writes invocations from a single goroutine fed by a buffered
// channel. Callers only block when the buffer is full.
type AsyncLog struct {
	log       zerolog.Logger
	recorders []Recorder

	mu     sync.RWMutex
	closed bool
	ch     chan Invocation
	done   chan struct{}
}

func NewAsyncLog(log zerolog.Logger, buffer int, recorders ...Recorder) *AsyncLog {
	if buffer <= 0 {
		buffer = 64
	}
	a := &AsyncLog{
		log:       log,
		recorders: recorders,
		ch:        make(chan Invocation, buffer),
		done:      make(chan struct{}),
	}
	go a.drain()
	return a
}

func (a *AsyncLog) Log(inv Invocation) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		a.log.Warn().Str("cmd", inv.Command).Msg("invocation logged after close")
		return
	}
	a.ch <- inv
}

// Close flushes pending invocations and stops the writer.
func (a *AsyncLog) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.ch)
	a.mu.Unlock()

	<-a.done
}

func (a *AsyncLog) drain() {
	defer close(a.done)
	for inv := range a.ch {
		a.write(inv)
	}
}

func (a *AsyncLog) write(inv Invocation) {
	ev := a.log.Info()
	if inv.TimedOut {
		ev = a.log.Error().Bool("timed_out", true)
	}
	ev.Str("cmd", inv.Command).
		Str("via", inv.Via).
		Int("exit_code", inv.ExitCode).
		Dur("duration", inv.Duration).
		Msg(inv.Message)

	if inv.Stdout != "" && !inv.QuietStdout {
		a.log.Debug().Str("cmd", inv.Command).Str("stdout", inv.Stdout).Msg("stdout")
	}
	if inv.Stderr != "" {
		a.log.Debug().Str("cmd", inv.Command).Str("stderr", inv.Stderr).Msg("stderr")
	}

	for _, r := range a.recorders {
		if err := r.Record(inv); err != nil {
			a.log.Warn().Err(err).Str("cmd", inv.Command).Msg("failed to record invocation")
		}
	}
}

// Discard drops every invocation.
var Discard Sink = nopSink{}

type nopSink struct{}

func (nopSink) Log(Invocation) {}
