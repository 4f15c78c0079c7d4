package exitstatus

import (
	"errors"
	"fmt"
	"os/exec"
)

// Status describes the collected termination state of a child process.
// Windows has no signal-termination concept, so only the exit code is
// recorded.
type Status struct {
	Code   int
	Signal string
}

func (s Status) Error() string {
	if s.Code == 0 {
		return "process exited normally"
	}
	return fmt.Sprintf("process exited with status=%d", s.Code)
}

// ExitStatus returns the numeric exit code.
func (s Status) ExitStatus() int {
	return s.Code
}

// FromError extracts a Status from the error returned by exec.Cmd.Wait.
func FromError(err error) (Status, bool) {
	if err == nil {
		return Status{}, true
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return Status{}, false
	}
	return Status{Code: exitErr.ExitCode()}, true
}
