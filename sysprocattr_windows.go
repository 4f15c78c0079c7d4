package splitexec

import "os/exec"

// Windows offers neither fork-like spawning details nor job-control
// semantics this package relies on; the child is started without extra
// attributes and regions are unsupported in practice.
func configureCmdSysProcAttr(cmd *exec.Cmd) {}
