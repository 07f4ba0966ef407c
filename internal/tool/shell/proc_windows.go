//go:build windows

package shell

import (
	"os"
	"os/exec"
)

func setProcessGroup(cmd *exec.Cmd) {}

// interruptProcess kills the process; console processes cannot be sent an
// interrupt from here.
func interruptProcess(cmd *exec.Cmd) {
	killProcess(cmd)
}

func killProcess(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}

func signalName(state *os.ProcessState) string {
	return ""
}
