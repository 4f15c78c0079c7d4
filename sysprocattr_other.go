//go:build !linux && !windows

package splitexec

import (
	"os/exec"
	"syscall"
)

// Without parent-death signalling the child is only placed in its own
// process group; an abandoned child must be cleaned up by the caller.
func configureCmdSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
