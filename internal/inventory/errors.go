package inventory

import (
	"context"
	"errors"

	"github.com/sigreer/sptinv/internal/runner"
	"github.com/sigreer/sptinv/internal/session"
)

var (
	// ErrTransientNotReady means Test Unit Ready kept failing after the
	// bounded retries.
	ErrTransientNotReady = errors.New("device not ready")
	// ErrExpectedQueryFailure marks an optional query the device doesn't
	// support. It never fails a record.
	ErrExpectedQueryFailure = errors.New("optional query failed")
	ErrNoDevices            = errors.New("no devices found")
	ErrDiscovery            = errors.New("device discovery failed")
)

// ExitCode is the process status a run ends with.
type ExitCode int

const (
	ExitSuccess     ExitCode = 0
	ExitError       ExitCode = 1
	ExitNoDevices   ExitCode = 3
	ExitTimeout     ExitCode = 7
	ExitInterrupted ExitCode = 130
)

// ExitCodeFor maps a run error to its exit code. Interrupts win over
// timeouts, since cancelling a run also kills the command in flight.
func ExitCodeFor(err error) ExitCode {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, runner.ErrTimeoutExpired), errors.Is(err, context.DeadlineExceeded):
		return ExitTimeout
	case errors.Is(err, ErrNoDevices):
		return ExitNoDevices
	default:
		return ExitError
	}
}

// fatal reports errors that end the whole run rather than one record.
func fatal(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, runner.ErrTimeoutExpired) ||
		errors.Is(err, session.ErrSessionDied) ||
		errors.Is(err, session.ErrBadPrompt) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
