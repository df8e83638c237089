//go:build !windows

package procutil

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr puts the helper in its own process group so a
// terminal signal aimed at the launcher does not reach it mid-sequence.
func configureSysProcAttr(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}
