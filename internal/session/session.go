// Package session keeps one spt process running in pipe mode and feeds it
// commands over stdin, one per line. Each response ends with a prompt
// line whose status token is the command's exit status.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/sigreer/sptinv/internal/runner"
	"golang.org/x/sys/unix"
)

var (
	// ErrSessionDied means the tool closed its output before printing a
	// prompt. The session is unusable afterwards.
	ErrSessionDied = errors.New("interactive session died")
	ErrBadPrompt   = errors.New("malformed session prompt")
)

const (
	DefaultStartupTimeout = 30 * time.Second
	DefaultPrompt         = `^\S+> \? `
)

// StartupArgs puts spt into pipe mode with a prompt that ends in the
// status. emit has to come before enable=pipes or pipe mode installs its
// own, longer prompt.
var StartupArgs = []string{"emit=%progname> ? %status", "enable=pipes"}

// Response is one command's output and status.
type Response struct {
	Status int
	Output string
}

type Session struct {
	log         zerolog.Logger
	sink        runner.Sink
	fallback    *runner.Runner
	tool        string
	prompt      *regexp.Regexp
	statusToken int
	timeout     time.Duration
	startup     time.Duration

	mu   sync.Mutex
	in   io.Writer
	out  *bufio.Reader
	proc runner.Handle
	stop io.Closer
	dead bool
}

type Option func(*Session)

// WithPrompt overrides the pattern recognising the prompt line.
func WithPrompt(re *regexp.Regexp) Option { return func(s *Session) { s.prompt = re } }

// WithStatusToken selects which whitespace-separated prompt token holds
// the status. Negative values count from the end; the default is -1.
func WithStatusToken(i int) Option { return func(s *Session) { s.statusToken = i } }

func WithTimeout(d time.Duration) Option { return func(s *Session) { s.timeout = d } }

func WithStartupTimeout(d time.Duration) Option { return func(s *Session) { s.startup = d } }

func WithSink(sink runner.Sink) Option { return func(s *Session) { s.sink = sink } }

// WithFallback sets the runner used for commands that are not addressed
// to the session's tool.
func WithFallback(r *runner.Runner) Option { return func(s *Session) { s.fallback = r } }

func newSession(log zerolog.Logger, tool string, opts []Option) *Session {
	s := &Session{
		log:         log,
		sink:        runner.Discard,
		tool:        tool,
		prompt:      regexp.MustCompile(DefaultPrompt),
		statusToken: -1,
		timeout:     runner.DefaultTimeout,
		startup:     DefaultStartupTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fallback == nil {
		s.fallback = runner.New(log, runner.WithSink(s.sink), runner.WithTimeout(s.timeout))
	}
	return s
}

// Start launches tool with args in its own process group and waits for
// the first prompt.
func Start(ctx context.Context, log zerolog.Logger, tool string, args []string, opts ...Option) (*Session, error) {
	s := newSession(log, tool, opts)

	cmd := exec.Command(tool, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stderr = log.With().Str("stream", "stderr").Logger()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open session stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open session stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", tool, err)
	}

	s.in = stdin
	s.stop = stdin
	s.out = bufio.NewReaderSize(stdout, 256*1024)
	s.proc = runner.ProcessHandle(cmd)

	log.Info().Str("tool", tool).Strs("args", args).Int("pid", s.proc.Pid()).Msg("starting interactive session")

	if _, err := s.await(ctx, s.startup, tool+" "+strings.Join(args, " ")); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Attach runs the protocol over existing streams, with no process behind
// them. It waits for the first prompt like Start.
func Attach(ctx context.Context, log zerolog.Logger, tool string, r io.Reader, w io.Writer, opts ...Option) (*Session, error) {
	s := newSession(log, tool, opts)
	s.in = w
	s.out = bufio.NewReader(r)
	if c, ok := w.(io.Closer); ok {
		s.stop = c
	}
	if _, err := s.await(ctx, s.startup, "startup"); err != nil {
		return nil, err
	}
	return s, nil
}

// Send writes one command line and reads its response.
func (s *Session) Send(ctx context.Context, line string, timeout time.Duration) (Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dead {
		return Response{Status: -1}, ErrSessionDied
	}
	if timeout <= 0 {
		timeout = s.timeout
	}

	if _, err := io.WriteString(s.in, line+"\n"); err != nil {
		s.dead = true
		return Response{Status: -1}, fmt.Errorf("%w: write: %v", ErrSessionDied, err)
	}
	return s.await(ctx, timeout, line)
}

type readResult struct {
	resp Response
	err  error
}

// await reads up to the next prompt, giving up after timeout. Callers
// hold mu, except during startup.
func (s *Session) await(ctx context.Context, timeout time.Duration, line string) (Response, error) {
	ch := make(chan readResult, 1)
	go func() {
		resp, err := s.readResponse()
		ch <- readResult{resp, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		if r.err != nil {
			s.dead = true
		}
		return r.resp, r.err
	case <-timer.C:
		s.log.Error().Str("cmd", line).Dur("timeout", timeout).Msg("session command timed out, killing tool")
		s.kill()
		return Response{Status: -1}, &runner.TimeoutExpiredError{Command: line, Timeout: timeout}
	case <-ctx.Done():
		s.kill()
		return Response{Status: -1}, ctx.Err()
	}
}

func (s *Session) readResponse() (Response, error) {
	var out strings.Builder
	for {
		line, err := s.out.ReadString('\n')
		if line != "" && s.prompt.MatchString(line) {
			status, perr := s.status(line)
			if perr != nil {
				return Response{Status: -1, Output: out.String()}, perr
			}
			return Response{Status: status, Output: out.String()}, nil
		}
		out.WriteString(line)
		if err != nil {
			return Response{Status: -1, Output: out.String()}, fmt.Errorf("%w: %v", ErrSessionDied, err)
		}
	}
}

func (s *Session) status(prompt string) (int, error) {
	fields := strings.Fields(prompt)
	i := s.statusToken
	if i < 0 {
		i += len(fields)
	}
	if i < 0 || i >= len(fields) {
		return -1, fmt.Errorf("%w: %q", ErrBadPrompt, prompt)
	}
	n, err := strconv.Atoi(fields[i])
	if err != nil {
		return -1, fmt.Errorf("%w: %q", ErrBadPrompt, prompt)
	}
	return n, nil
}

// kill marks the session dead and takes the tool's process group down.
func (s *Session) kill() {
	s.dead = true
	if s.stop != nil {
		_ = s.stop.Close()
	}
	if s.proc != nil {
		if err := s.proc.TerminateGroup(unix.SIGKILL); err != nil {
			s.log.Warn().Err(err).Msg("failed to kill session process group")
		}
	}
}

// Close ends the session by closing the tool's stdin, and kills it if it
// does not exit on its own.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dead = true
	if s.stop != nil {
		_ = s.stop.Close()
	}
	if s.proc == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- s.proc.Wait() }()

	select {
	case <-done:
	case <-time.After(runner.DefaultKillGrace):
		_ = s.proc.TerminateGroup(unix.SIGKILL)
		<-done
	}
	s.proc = nil
	return nil
}

// Run executes c through the session when it is addressed to the
// session's tool, and through the fallback runner otherwise. Results and
// errors match runner.Runner.Run.
func (s *Session) Run(ctx context.Context, c runner.Command) (runner.Result, error) {
	line, ok := s.toolLine(c)
	if !ok {
		return s.fallback.Run(ctx, c)
	}

	started := time.Now()
	resp, err := s.Send(ctx, line, c.Timeout)
	res := runner.Result{ExitCode: resp.Status, Stdout: resp.Output, Duration: time.Since(started)}

	s.sink.Log(runner.Invocation{
		Command:     s.tool + " " + line,
		Message:     c.Message,
		Via:         "session",
		ExitCode:    res.ExitCode,
		Stdout:      res.Stdout,
		QuietStdout: c.QuietStdout,
		TimedOut:    errors.Is(err, runner.ErrTimeoutExpired),
		Started:     started,
		Duration:    res.Duration,
	})

	if err != nil {
		return res, err
	}
	if res.ExitCode != 0 && !c.ExpectFailure {
		return res, &runner.ToolFailureError{Command: s.tool + " " + line, ExitCode: res.ExitCode}
	}
	return res, nil
}

// toolLine strips the tool path and any emit= argument, which would
// replace the session prompt.
func (s *Session) toolLine(c runner.Command) (string, bool) {
	if c.Shell || len(c.Args) == 0 || filepath.Base(c.Args[0]) != filepath.Base(s.tool) {
		return "", false
	}
	args := make([]string, 0, len(c.Args)-1)
	for _, a := range c.Args[1:] {
		if strings.HasPrefix(a, "emit=") {
			continue
		}
		args = append(args, a)
	}
	return runner.Command{Args: args}.String(), true
}
