// Package runner executes external commands with a hard timeout. Each
// command runs in its own process group so a timeout can take down a
// shell together with everything it spawned.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

const (
	DefaultTimeout   = 60 * time.Second
	DefaultKillGrace = 5 * time.Second
)

type Runner struct {
	log     zerolog.Logger
	sink    Sink
	start   Starter
	timeout time.Duration
	grace   time.Duration
}

type Option func(*Runner)

func WithSink(s Sink) Option { return func(r *Runner) { r.sink = s } }

func WithStarter(s Starter) Option { return func(r *Runner) { r.start = s } }

func WithTimeout(d time.Duration) Option { return func(r *Runner) { r.timeout = d } }

// WithKillGrace sets how long a group gets between SIGTERM and SIGKILL.
func WithKillGrace(d time.Duration) Option { return func(r *Runner) { r.grace = d } }

func New(log zerolog.Logger, opts ...Option) *Runner {
	r := &Runner{
		log:     log,
		sink:    nopSink{},
		start:   StartProcess,
		timeout: DefaultTimeout,
		grace:   DefaultKillGrace,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes c and waits for it, its timeout, or ctx.
//
// A nonzero exit returns the Result together with a *ToolFailureError
// unless c.ExpectFailure is set, in which case the caller decides. Output
// on stderr alone is never a failure. A timeout kills the process group
// and returns a *TimeoutExpiredError; cancellation of ctx does the same
// and returns ctx.Err().
func (r *Runner) Run(ctx context.Context, c Command) (Result, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = r.timeout
	}
	line := c.String()

	if c.Message != "" {
		r.log.Debug().Str("cmd", line).Msg(c.Message)
	}

	var stdout, stderr bytes.Buffer
	started := time.Now()

	h, err := r.start(ctx, c, &stdout, &stderr)
	if err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("failed to start '%s': %w", line, err)
	}

	done := make(chan error, 1)
	go func() { done <- h.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var waitErr error
	select {
	case waitErr = <-done:
	case <-timer.C:
		r.log.Error().Int("pid", h.Pid()).Str("cmd", line).Dur("timeout", timeout).
			Msg("killing process group, command timed out")
		res := r.abort(h, done, &stdout, &stderr, started)
		r.record(c, line, res, started, true)
		return res, &TimeoutExpiredError{Command: line, Timeout: timeout}
	case <-ctx.Done():
		r.log.Warn().Int("pid", h.Pid()).Str("cmd", line).Msg("interrupted, killing process group")
		res := r.abort(h, done, &stdout, &stderr, started)
		r.record(c, line, res, started, false)
		return res, ctx.Err()
	}

	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(started),
	}

	var ec exitCoder
	switch {
	case waitErr == nil:
	case errors.Is(waitErr, exec.ErrWaitDelay):
		r.log.Warn().Str("cmd", line).Msg("output pipes held open after exit")
	case errors.As(waitErr, &ec):
		res.ExitCode = ec.ExitCode()
	default:
		res.ExitCode = -1
		r.record(c, line, res, started, false)
		return res, fmt.Errorf("failed waiting for '%s': %w", line, waitErr)
	}

	r.record(c, line, res, started, false)

	if res.ExitCode != 0 && !c.ExpectFailure {
		r.log.Error().Str("cmd", line).Int("exit_code", res.ExitCode).Msg("command failed")
		return res, &ToolFailureError{Command: line, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return res, nil
}

// abort terminates the whole group, escalating to SIGKILL after the grace
// period, and reaps the waiter.
func (r *Runner) abort(h Handle, done <-chan error, stdout, stderr *bytes.Buffer, started time.Time) Result {
	res := Result{ExitCode: -1}

	if err := h.TerminateGroup(unix.SIGTERM); err != nil {
		r.log.Warn().Err(err).Int("pid", h.Pid()).Msg("SIGTERM to process group failed")
	}

	grace := time.NewTimer(r.grace)
	defer grace.Stop()

	select {
	case <-done:
	case <-grace.C:
		if err := h.TerminateGroup(unix.SIGKILL); err != nil {
			r.log.Warn().Err(err).Int("pid", h.Pid()).Msg("SIGKILL to process group failed")
		}
		select {
		case <-done:
		case <-time.After(r.grace):
			// The output buffers may still be written to, leave them.
			r.log.Error().Int("pid", h.Pid()).Msg("process has not terminated after being killed")
			res.Duration = time.Since(started)
			return res
		}
	}

	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	res.Duration = time.Since(started)
	return res
}

func (r *Runner) record(c Command, line string, res Result, started time.Time, timedOut bool) {
	r.sink.Log(Invocation{
		Command:     line,
		Message:     c.Message,
		Via:         "exec",
		ExitCode:    res.ExitCode,
		Stdout:      res.Stdout,
		Stderr:      res.Stderr,
		QuietStdout: c.QuietStdout,
		TimedOut:    timedOut,
		Started:     started,
		Duration:    res.Duration,
	})
}
