//go:build unix

package osutil

import (
	"os/exec"
	"syscall"
)

// DetachSysProcAttr provides syscall attributes for detaching processes on Unix systems
var DetachSysProcAttr = syscall.SysProcAttr{
	Setpgid: true, // Create a new process group
	Pgid:    0,    // Use the process's own PID as the process group ID
}

// Detach configures cmd to run in its own process group so that it
// outlives the caller and is not hit by signals sent to the caller's group.
func Detach(cmd *exec.Cmd) {
	attr := DetachSysProcAttr
	cmd.SysProcAttr = &attr
}
