package runner

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrTimeoutExpired = errors.New("timeout expired")
	ErrToolFailure    = errors.New("tool failure")
	ErrEmptyCommand   = errors.New("empty command")
)

// TimeoutExpiredError is returned when a command outlives its timeout and
// its process group has been killed.
type TimeoutExpiredError struct {
	Command string
	Timeout time.Duration
}

func (e *TimeoutExpiredError) Error() string {
	return fmt.Sprintf("command '%s' timed out after %s", e.Command, e.Timeout)
}

func (e *TimeoutExpiredError) Is(target error) bool {
	return target == ErrTimeoutExpired
}

// ToolFailureError is a nonzero exit from a command that was not expected
// to fail.
type ToolFailureError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ToolFailureError) Error() string {
	return fmt.Sprintf("command '%s' failed with exit code %d", e.Command, e.ExitCode)
}

func (e *ToolFailureError) Is(target error) bool {
	return target == ErrToolFailure
}
