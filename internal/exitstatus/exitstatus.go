//go:build !windows

// Package exitstatus models how a child process left the system: its
// exit code, or the signal that terminated it, carried as an error
// value so lifecycle code can pass it through ordinary error returns.
package exitstatus

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// Status describes the collected termination state of a child process.
type Status struct {
	Code   int
	Signal string
}

// Error renders the status in key=value form.
func (s Status) Error() string {
	if s.Code == 0 && s.Signal == "" {
		return "process exited normally"
	}
	parts := []string{fmt.Sprintf("status=%d", s.Code)}
	if s.Signal != "" {
		parts = append(parts, "signal="+s.Signal)
	}
	return "process exited with " + strings.Join(parts, ", ")
}

// ExitStatus returns the numeric exit code.
func (s Status) ExitStatus() int {
	return s.Code
}

// FromWaitStatus converts a raw wait status into a Status.
func FromWaitStatus(ws unix.WaitStatus) Status {
	if ws.Signaled() {
		return Status{Code: 128 + int(ws.Signal()), Signal: ws.Signal().String()}
	}
	return Status{Code: ws.ExitStatus()}
}

// FromError extracts a Status from the error returned by exec.Cmd.Wait.
// It reports false when err does not describe a collected exit.
func FromError(err error) (Status, bool) {
	if err == nil {
		return Status{}, true
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return Status{}, false
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok {
		return FromWaitStatus(unix.WaitStatus(ws)), true
	}
	return Status{Code: exitErr.ExitCode()}, true
}
