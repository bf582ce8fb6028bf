package runner

import (
	"context"
	"io"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Handle is a started process. TerminateGroup signals every process in
// the handle's process group, not just the leader.
type Handle interface {
	Pid() int
	Wait() error
	TerminateGroup(sig unix.Signal) error
}

// Starter launches a command with its output wired to the given writers.
type Starter func(ctx context.Context, c Command, stdout, stderr io.Writer) (Handle, error)

// exitCoder is satisfied by *exec.ExitError and by test doubles.
type exitCoder interface {
	ExitCode() int
}

type procHandle struct {
	cmd *exec.Cmd
}

// StartProcess starts c in a new process group.
func StartProcess(_ context.Context, c Command, stdout, stderr io.Writer) (Handle, error) {
	if len(c.Args) == 0 {
		return nil, ErrEmptyCommand
	}

	var cmd *exec.Cmd
	if c.Shell {
		cmd = exec.Command("/bin/sh", "-c", c.String())
	} else {
		cmd = exec.Command(c.Args[0], c.Args[1:]...)
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	// Children that inherited our pipes can hold Wait open after the group
	// is killed; bound that.
	cmd.WaitDelay = 2 * time.Second

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return ProcessHandle(cmd), nil
}

// ProcessHandle wraps a started command whose SysProcAttr set Setpgid.
func ProcessHandle(cmd *exec.Cmd) Handle {
	return &procHandle{cmd: cmd}
}

func (p *procHandle) Pid() int { return p.cmd.Process.Pid }

func (p *procHandle) Wait() error { return p.cmd.Wait() }

// TerminateGroup signals the group by the leader's pid, which Setpgid made
// the group ID. The group outlives a leader that already exited.
func (p *procHandle) TerminateGroup(sig unix.Signal) error {
	return unix.Kill(-p.Pid(), sig)
}
