//go:build windows

package osutil

import (
	"os/exec"
	"syscall"
)

// DetachSysProcAttr provides syscall attributes for detaching processes on Windows
var DetachSysProcAttr = syscall.SysProcAttr{
	CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	HideWindow:    true,
}

// Detach configures cmd to run in a new process group without a console window.
func Detach(cmd *exec.Cmd) {
	attr := DetachSysProcAttr
	cmd.SysProcAttr = &attr
}
