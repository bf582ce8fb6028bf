// Package inventory drives discovery, per-device queries and slot
// correlation, and turns the outcome into records and an exit code.
package inventory

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/sigreer/sptinv/internal/cache"
	"github.com/sigreer/sptinv/internal/config"
	"github.com/sigreer/sptinv/internal/runner"
)

// Executor runs one command. *runner.Runner runs each command as its own
// process; *session.Session feeds spt commands to a long-lived tool.
type Executor interface {
	Run(ctx context.Context, c runner.Command) (runner.Result, error)
}

// Env is the context of one run.
type Env struct {
	Log    zerolog.Logger
	Config *config.Config
	RunID  string
	Exec   Executor
	// Cache may be nil.
	Cache *cache.Cache
}
