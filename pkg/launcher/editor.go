// Package launcher dispatches agents into subagent workspaces: it prepares a
// free subagent, opens its workspace and chat in the editor, and waits for
// the agent to write its response.
package launcher

import (
	"context"
	"os/exec"

	"github.com/pkg/errors"

	"github.com/lmspace/lmspace/pkg/logger"
	"github.com/lmspace/lmspace/pkg/osutil"
)

// Editor opens workspaces and chats
type Editor interface {
	Open(ctx context.Context, args ...string) error
}

// CodeEditor starts the editor CLI as a detached process and does not wait for it
type CodeEditor struct {
	Command string
}

// NewCodeEditor returns an editor that runs command, "code" when empty
func NewCodeEditor(command string) *CodeEditor {
	if command == "" {
		command = "code"
	}
	return &CodeEditor{Command: command}
}

// Open starts the editor with args
func (e *CodeEditor) Open(ctx context.Context, args ...string) error {
	path, err := exec.LookPath(e.Command)
	if err != nil {
		return errors.Wrapf(err, "failed to find editor command '%s'", e.Command)
	}

	cmd := exec.Command(path, args...)
	osutil.Detach(cmd)
	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "failed to start '%s'", e.Command)
	}

	logger.G(ctx).WithField("pid", cmd.Process.Pid).WithField("args", args).Debug("Started editor")

	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
