package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sigreer/sptinv/internal/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// fakeTool answers commands the way spt does in pipe mode.
type fakeTool struct {
	mu       sync.Mutex
	received []string
	replies  map[string]string
	prompt   string

	cmdR *io.PipeReader
	cmdW *io.PipeWriter
	outR *io.PipeReader
	outW *io.PipeWriter
}

func newFakeTool(replies map[string]string) *fakeTool {
	f := &fakeTool{replies: replies, prompt: "spt> ? %d\n"}
	f.cmdR, f.cmdW = io.Pipe()
	f.outR, f.outW = io.Pipe()
	return f
}

func (f *fakeTool) serve() {
	defer f.outW.Close()
	fmt.Fprintf(f.outW, f.prompt, 0)

	sc := bufio.NewScanner(f.cmdR)
	for sc.Scan() {
		line := sc.Text()
		f.mu.Lock()
		f.received = append(f.received, line)
		f.mu.Unlock()

		switch line {
		case "crash":
			fmt.Fprint(f.outW, "Segmentation fault\n")
			return
		case "hang":
			continue
		case "garbled":
			fmt.Fprint(f.outW, "spt> ? ok\n")
			continue
		}

		reply, ok := f.replies[line]
		if !ok {
			fmt.Fprintf(f.outW, "unknown command\n"+f.prompt, 1)
			continue
		}
		fmt.Fprint(f.outW, reply)
		fmt.Fprintf(f.outW, f.prompt, 0)
	}
}

func (f *fakeTool) lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.received...)
}

func attach(t *testing.T, f *fakeTool, opts ...Option) *Session {
	t.Helper()
	go f.serve()
	s, err := Attach(context.Background(), zerolog.Nop(), "/usr/local/bin/spt", f.outR, f.cmdW, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		f.cmdW.Close()
		f.outR.Close()
	})
	return s
}

func TestSend(t *testing.T) {
	f := newFakeTool(map[string]string{
		"dsf=/dev/sg0 inquiry ofmt=json": "{\n  \"Inquiry\": {}\n}\n",
	})
	s := attach(t, f)

	resp, err := s.Send(context.Background(), "dsf=/dev/sg0 inquiry ofmt=json", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Status)
	assert.Equal(t, "{\n  \"Inquiry\": {}\n}\n", resp.Output)

	resp, err = s.Send(context.Background(), "bogus", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Status)
	assert.Equal(t, "unknown command\n", resp.Output)
}

func TestSessionDies(t *testing.T) {
	f := newFakeTool(nil)
	s := attach(t, f)

	resp, err := s.Send(context.Background(), "crash", time.Second)
	assert.ErrorIs(t, err, ErrSessionDied)
	assert.Equal(t, "Segmentation fault\n", resp.Output)

	_, err = s.Send(context.Background(), "dsf=/dev/sg0 inquiry", time.Second)
	assert.ErrorIs(t, err, ErrSessionDied)
}

func TestSessionTimeout(t *testing.T) {
	f := newFakeTool(nil)
	s := attach(t, f)

	_, err := s.Send(context.Background(), "hang", 20*time.Millisecond)
	assert.ErrorIs(t, err, runner.ErrTimeoutExpired)

	_, err = s.Send(context.Background(), "dsf=/dev/sg0 inquiry", time.Second)
	assert.ErrorIs(t, err, ErrSessionDied)
}

func TestBadPrompt(t *testing.T) {
	f := newFakeTool(nil)
	s := attach(t, f)

	_, err := s.Send(context.Background(), "garbled", time.Second)
	assert.ErrorIs(t, err, ErrBadPrompt)
}

func TestStatusToken(t *testing.T) {
	f := newFakeTool(map[string]string{"cdb=0": ""})
	f.prompt = "spt> ? %d 0 0x00 0\n"
	s := attach(t, f, WithStatusToken(2))

	resp, err := s.Send(context.Background(), "cdb=0", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Status)
}

func TestRun(t *testing.T) {
	t.Run("strips tool path and emit", func(t *testing.T) {
		f := newFakeTool(map[string]string{
			`dsf=/dev/sg3 cdb="85 08 0e 00" dir=read`: "SN123 FW01\n",
		})
		s := attach(t, f)

		res, err := s.Run(context.Background(), runner.Command{
			Args: []string{"spt", "dsf=/dev/sg3", "cdb=85 08 0e 00", "dir=read", "emit="},
		})
		require.NoError(t, err)
		assert.Equal(t, "SN123 FW01\n", res.Stdout)
		assert.Equal(t, []string{`dsf=/dev/sg3 cdb="85 08 0e 00" dir=read`}, f.lines())
	})

	t.Run("expect failure", func(t *testing.T) {
		f := newFakeTool(nil)
		s := attach(t, f)

		res, err := s.Run(context.Background(), runner.Command{Args: []string{"spt", "inquiry", "page=serial"}, ExpectFailure: true})
		require.NoError(t, err)
		assert.Equal(t, 1, res.ExitCode)

		_, err = s.Run(context.Background(), runner.Command{Args: []string{"spt", "inquiry", "page=serial"}})
		assert.ErrorIs(t, err, runner.ErrToolFailure)
	})

	t.Run("other tools use the fallback runner", func(t *testing.T) {
		var started []string
		starter := func(_ context.Context, c runner.Command, stdout, _ io.Writer) (runner.Handle, error) {
			started = append(started, c.String())
			_, _ = io.WriteString(stdout, "13796\n")
			return doneHandle{}, nil
		}
		fallback := runner.New(zerolog.Nop(), runner.WithStarter(starter))

		f := newFakeTool(nil)
		s := attach(t, f, WithFallback(fallback))

		res, err := s.Run(context.Background(), runner.Command{Args: []string{"smartctl", "--attributes", "/dev/sda"}})
		require.NoError(t, err)
		assert.Equal(t, "13796\n", res.Stdout)
		assert.Equal(t, []string{"smartctl --attributes /dev/sda"}, started)
		assert.Empty(t, f.lines())
	})
}

func TestPromptPattern(t *testing.T) {
	re := regexp.MustCompile(DefaultPrompt)
	assert.True(t, re.MatchString("spt> ? 0\n"))
	assert.False(t, re.MatchString("  Product Identification: spt> ?\n"))
	assert.True(t, strings.HasPrefix(StartupArgs[0], "emit="))
}

type doneHandle struct{}

func (doneHandle) Pid() int                         { return 1 }
func (doneHandle) Wait() error                      { return nil }
func (doneHandle) TerminateGroup(unix.Signal) error { return nil }
