package inventory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sigreer/sptinv/internal/cache"
	"github.com/sigreer/sptinv/internal/config"
	"github.com/sigreer/sptinv/internal/logging"
	"github.com/sigreer/sptinv/internal/runner"
	"github.com/stretchr/testify/require"
)

type reply struct {
	stdout string
	exit   int
	err    error
	// block waits for the context and returns its error.
	block bool
}

// fakeExec answers commands by their rendered command line. Unknown
// commands exit 1.
type fakeExec struct {
	mu      sync.Mutex
	replies map[string]reply
	calls   []string
}

func newFakeExec(replies map[string]reply) *fakeExec {
	return &fakeExec{replies: replies}
}

func (f *fakeExec) Run(ctx context.Context, c runner.Command) (runner.Result, error) {
	line := c.String()

	f.mu.Lock()
	f.calls = append(f.calls, line)
	r, ok := f.replies[line]
	f.mu.Unlock()

	if !ok {
		r = reply{exit: 1}
	}
	if r.block {
		<-ctx.Done()
		return runner.Result{ExitCode: -1}, ctx.Err()
	}
	if r.err != nil {
		return runner.Result{ExitCode: -1}, r.err
	}
	res := runner.Result{ExitCode: r.exit, Stdout: r.stdout}
	if r.exit != 0 && !c.ExpectFailure {
		return res, &runner.ToolFailureError{Command: line, ExitCode: r.exit}
	}
	return res, nil
}

func (f *fakeExec) count(line string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == line {
			n++
		}
	}
	return n
}

func (f *fakeExec) called(line string) bool { return f.count(line) > 0 }

func testEnv(t *testing.T, exec Executor, mutate func(*config.Config)) *Env {
	t.Helper()
	cfg := config.Default()
	cfg.Tool = "spt"
	cfg.TURRetries = 2
	cfg.TURRetryDelay = time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}
	require.NoError(t, cfg.Validate())
	return &Env{
		Log:    logging.NewTestLogger(),
		Config: &cfg,
		RunID:  "test-run",
		Exec:   exec,
		Cache:  cache.New(16, cache.DefaultTTL),
	}
}

func testBuilder(t *testing.T, exec Executor, mutate func(*config.Config)) *Builder {
	t.Helper()
	b, err := NewBuilder(testEnv(t, exec, mutate))
	require.NoError(t, err)
	return b
}
