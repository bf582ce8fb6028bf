package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sigreer/sptinv/internal/cache"
	"github.com/sigreer/sptinv/internal/config"
	"github.com/sigreer/sptinv/internal/inventory"
	"github.com/sigreer/sptinv/internal/journal"
	"github.com/sigreer/sptinv/internal/logging"
	"github.com/sigreer/sptinv/internal/runner"
	"github.com/sigreer/sptinv/internal/session"
	"github.com/spf13/cobra"
)

// app is everything one sptinv invocation sets up and tears down.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	runID   string
	started time.Time

	closeLog logging.Closer
	journal  *journal.Journal
	sink     *runner.AsyncLog
	runner   *runner.Runner
	session  *session.Session
	cache    *cache.Cache
}

// setup loads config, applies the command's flags and opens the log,
// journal and invocation sink.
func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		runID:   uuid.NewString(),
		started: time.Now(),
	}

	a.log, a.closeLog, err = logging.New(cfg.Log, a.runID)
	if err != nil {
		return nil, err
	}

	if os.Geteuid() != 0 {
		a.log.Warn().Msg("not running as root, device queries will likely fail")
	}

	var recorders []runner.Recorder
	if cfg.Journal != "" {
		a.journal, err = journal.Open(cfg.Journal)
		if err == nil {
			err = a.journal.StartRun(a.runID, commandLine(), a.started)
		}
		if err != nil {
			a.log.Warn().Err(err).Str("path", cfg.Journal).Msg("journal disabled for this run")
			if a.journal != nil {
				a.journal.Close()
				a.journal = nil
			}
		} else {
			recorders = append(recorders, a.journal.Recorder(a.runID))
		}
	}

	a.sink = runner.NewAsyncLog(logging.WithComponent(a.log, "invocations"), 256, recorders...)
	a.runner = runner.New(logging.WithComponent(a.log, "runner"),
		runner.WithSink(a.sink),
		runner.WithTimeout(cfg.Timeout))
	a.cache = cache.New(cfg.Cache.Size, cfg.Cache.TTL)

	return a, nil
}

// executor returns the interactive session when enabled and it starts,
// otherwise the per-command runner.
func (a *app) executor(ctx context.Context) inventory.Executor {
	if !a.cfg.Session.Enabled {
		return a.runner
	}
	s, err := session.Start(ctx, logging.WithComponent(a.log, "session"), a.cfg.ResolveTool(), session.StartupArgs,
		session.WithStatusToken(a.cfg.Session.StatusToken),
		session.WithTimeout(a.cfg.Timeout),
		session.WithSink(a.sink),
		session.WithFallback(a.runner))
	if err != nil {
		a.log.Warn().Err(err).Msg("interactive session unavailable, running commands one by one")
		return a.runner
	}
	a.session = s
	return s
}

func (a *app) env(exec inventory.Executor) *inventory.Env {
	return &inventory.Env{
		Log:    a.log,
		Config: a.cfg,
		RunID:  a.runID,
		Exec:   exec,
		Cache:  a.cache,
	}
}

// close stops the session, flushes the invocation log and records the
// run's outcome.
func (a *app) close(code inventory.ExitCode, devices int) {
	if a.session != nil {
		if err := a.session.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close session")
		}
	}
	a.sink.Close()

	if a.journal != nil {
		if err := a.journal.FinishRun(a.runID, time.Now(), int(code), devices); err != nil {
			a.log.Warn().Err(err).Msg("failed to finish journal run")
		}
		if n, err := a.journal.Prune(journalKeep); err != nil {
			a.log.Warn().Err(err).Msg("failed to prune journal")
		} else if n > 0 {
			a.log.Debug().Int64("runs", n).Msg("pruned journal")
		}
		a.journal.Close()
	}

	a.log.Info().Int("exit_code", int(code)).Dur("elapsed", time.Since(a.started)).Msg("done")
	if err := a.closeLog(); err != nil {
		fmt.Fprintf(os.Stderr, "Error closing log: %v\n", err)
	}
}

// journalKeep is how many runs the journal retains.
const journalKeep = 50

func commandLine() string {
	return strings.Join(os.Args, " ")
}
