// Package procutil prepares helper child processes: no console window flash on
// Windows, a separate process group elsewhere, and a bounded wait for output
// pipes after the helper exits.
package procutil

import (
	"os/exec"
	"time"
)

// HelperWaitDelay bounds how long Wait blocks on inherited output pipes once
// the helper has exited or been cancelled.
const HelperWaitDelay = 500 * time.Millisecond

// PrepareHelper configures cmd for a short-lived helper run. Existing
// SysProcAttr fields are preserved. A nil cmd is ignored.
func PrepareHelper(cmd *exec.Cmd) {
	if cmd == nil {
		return
	}
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = HelperWaitDelay
	}
	configureSysProcAttr(cmd)
}
