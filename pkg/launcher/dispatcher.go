package launcher

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/lmspace/lmspace/pkg/logger"
	"github.com/lmspace/lmspace/pkg/subagent"
	"github.com/lmspace/lmspace/pkg/transpiler"
)

// ChatMode is the chat mode name the subagent chat is opened with. It
// matches the subagent.chatmode.md file in the subagent workspace.
const ChatMode = "subagent"

const timestampLayout = "20060102150405"

// ErrNoUnlockedSubagent is returned when every subagent in the pool is locked
var ErrNoUnlockedSubagent = errors.New("no unlocked subagents available. Please provision more subagents with:\n  lmspace code provision --subagents <count>")

// Request describes one agent dispatch
type Request struct {
	AgentDir      string
	Query         string
	Attachments   []string
	WorkspaceRoot string
	DryRun        bool
}

// Launch is a dispatch that has been assigned a subagent
type Launch struct {
	Success      bool   `json:"success"`
	SubagentName string `json:"subagent_name"`
	ResponseFile string `json:"response_file"`
	RequestID    string `json:"request_id"`

	Subagent         subagent.Subagent `json:"-"`
	RequestFile      string            `json:"-"`
	TempResponseFile string            `json:"-"`
	Attachments      []string          `json:"-"`
	Query            string            `json:"-"`
	DryRun           bool              `json:"-"`
}

// Dispatcher runs agents in subagent workspaces
type Dispatcher struct {
	pool         *subagent.Pool
	editor       Editor
	pollInterval time.Duration
	focusDelay   time.Duration
	goos         string
	now          func() time.Time
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithEditor replaces the default "code" editor
func WithEditor(editor Editor) Option {
	return func(d *Dispatcher) {
		d.editor = editor
	}
}

// WithPollInterval sets how often the response file is polled
func WithPollInterval(interval time.Duration) Option {
	return func(d *Dispatcher) {
		if interval > 0 {
			d.pollInterval = interval
		}
	}
}

// WithFocusDelay sets the pause between the two workspace opens
func WithFocusDelay(delay time.Duration) Option {
	return func(d *Dispatcher) {
		if delay >= 0 {
			d.focusDelay = delay
		}
	}
}

// NewDispatcher creates a dispatcher over pool
func NewDispatcher(pool *subagent.Pool, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		pool:         pool,
		editor:       NewCodeEditor(""),
		pollInterval: time.Second,
		focusDelay:   time.Second,
		goos:         runtime.GOOS,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch prepares a subagent, reports the launch, sends the request and
// waits for the response. report is called once the subagent is assigned and
// before the editor is opened. Dry runs return after report with an empty response.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, report func(*Launch) error) (string, error) {
	launch, err := d.Prepare(ctx, req)
	if err != nil {
		return "", err
	}

	if report != nil {
		if err := report(launch); err != nil {
			return "", err
		}
	}

	if launch.DryRun {
		return "", nil
	}

	if err := d.Send(ctx, launch); err != nil {
		return "", err
	}
	return d.Wait(ctx, launch)
}

// Prepare assigns an unlocked subagent to the request. Unless it is a dry run
// the agent's chatmode and workspace are installed in the subagent and the
// subagent is locked.
func (d *Dispatcher) Prepare(ctx context.Context, req Request) (*Launch, error) {
	agentDir, err := filepath.Abs(req.AgentDir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve agent directory '%s'", req.AgentDir)
	}
	if info, err := os.Stat(agentDir); err != nil || !info.IsDir() {
		return nil, errors.Errorf("agent template not found: %s", agentDir)
	}

	attachments, err := resolveAttachments(req.Attachments)
	if err != nil {
		return nil, err
	}

	sa, err := d.acquire(ctx, req.DryRun)
	if err != nil {
		return nil, err
	}

	log := logger.G(ctx).WithField("subagent", sa.Name).WithField("agent", agentDir)

	if !req.DryRun {
		if err := d.install(ctx, *sa, agentDir, req.WorkspaceRoot); err != nil {
			if _, unlockErr := d.pool.Unlock(ctx, subagent.UnlockOptions{Number: sa.Number}); unlockErr != nil {
				log.WithError(unlockErr).Warn("Failed to release subagent after a failed dispatch")
			}
			return nil, err
		}
	}

	timestamp := d.now().Format(timestampLayout)
	messages := sa.MessagesDir()
	launch := &Launch{
		Success:          true,
		SubagentName:     sa.Name,
		ResponseFile:     filepath.Join(messages, timestamp+"_res.md"),
		RequestID:        uuid.NewString(),
		Subagent:         *sa,
		RequestFile:      filepath.Join(messages, timestamp+"_req.md"),
		TempResponseFile: filepath.Join(messages, timestamp+"_res.tmp.md"),
		Attachments:      attachments,
		Query:            req.Query,
		DryRun:           req.DryRun,
	}

	log.WithField("request_id", launch.RequestID).WithField("dry_run", req.DryRun).Debug("Prepared dispatch")
	return launch, nil
}

// Send opens the subagent workspace, writes the request file and opens the
// chat with the attachments and the request attached.
func (d *Dispatcher) Send(ctx context.Context, launch *Launch) error {
	workspace := launch.Subagent.WorkspacePath()

	if err := d.editor.Open(ctx, workspace); err != nil {
		return errors.Wrap(err, "failed to open subagent workspace")
	}
	if err := sleep(ctx, d.focusDelay); err != nil {
		return err
	}
	if err := d.editor.Open(ctx, workspace); err != nil {
		return errors.Wrap(err, "failed to focus subagent workspace")
	}

	prompt, err := renderRequest(d.goos, launch.Query, launch.TempResponseFile, launch.ResponseFile)
	if err != nil {
		return err
	}
	if err := os.WriteFile(launch.RequestFile, []byte(prompt), 0o644); err != nil {
		return errors.Wrap(err, "failed to write request file")
	}

	args := []string{"-r", "chat", "-m", ChatMode}
	for _, attachment := range launch.Attachments {
		args = append(args, "-a", attachment)
	}
	args = append(args, "-a", launch.RequestFile, "Follow the instructions in "+filepath.Base(launch.RequestFile))

	if err := d.editor.Open(ctx, args...); err != nil {
		return errors.Wrap(err, "failed to open subagent chat")
	}

	logger.G(ctx).WithField("request_id", launch.RequestID).WithField("request", launch.RequestFile).Debug("Sent request")
	return nil
}

// Wait blocks until the agent publishes its response and returns it
func (d *Dispatcher) Wait(ctx context.Context, launch *Launch) (string, error) {
	if err := WaitForFile(ctx, launch.ResponseFile, d.pollInterval); err != nil {
		return "", err
	}
	return ReadResponse(ctx, launch.ResponseFile, d.pollInterval)
}

// Warmup opens the first count subagent workspaces (1 when count < 1) so that
// later dispatches find the editor ready. It returns the workspaces that were
// (or in a dry run would be) opened. Failures to open individual workspaces
// are returned together but do not stop the others.
func (d *Dispatcher) Warmup(ctx context.Context, count int, dryRun bool) ([]string, error) {
	if count < 1 {
		count = 1
	}

	workspaces, err := d.pool.Workspaces(ctx, count)
	if err != nil {
		return nil, err
	}
	if len(workspaces) == 0 {
		return nil, errors.Errorf("no subagent workspaces found in %s", d.pool.Root())
	}

	if dryRun {
		return workspaces, nil
	}

	opened := make([]string, 0, len(workspaces))
	var result *multierror.Error
	for _, workspace := range workspaces {
		if err := d.editor.Open(ctx, workspace); err != nil {
			logger.G(ctx).WithError(err).WithField("workspace", workspace).Warn("Failed to open workspace")
			result = multierror.Append(result, errors.Wrapf(err, "failed to open %s", workspace))
			continue
		}
		opened = append(opened, workspace)
	}

	return opened, result.ErrorOrNil()
}

// acquire finds and, unless dryRun, locks the first unlocked subagent. A
// subagent locked by a concurrent dispatch in between is skipped.
func (d *Dispatcher) acquire(ctx context.Context, dryRun bool) (*subagent.Subagent, error) {
	for {
		sa, err := d.pool.FindUnlocked(ctx)
		if err != nil {
			return nil, err
		}
		if sa == nil {
			return nil, ErrNoUnlockedSubagent
		}
		if dryRun {
			return sa, nil
		}

		err = d.pool.Lock(ctx, *sa)
		if err == nil {
			sa.Locked = true
			return sa, nil
		}
		if !errors.Is(err, subagent.ErrAlreadyLocked) {
			return nil, err
		}
	}
}

// install writes the agent's chatmode and workspace into the subagent. The
// chatmode is transpiled from the agent definition, or copied from a prebuilt
// subagent.chatmode.md when the agent has no definition.
func (d *Dispatcher) install(ctx context.Context, sa subagent.Subagent, agentDir, workspaceRoot string) error {
	if err := d.pool.Prepare(sa, filepath.Join(agentDir, subagent.WorkspaceFileName)); err != nil {
		return err
	}

	tr, err := transpiler.New(transpiler.WithWorkspaceRoot(workspaceRoot))
	if err != nil {
		return err
	}

	_, err = tr.Transpile(ctx, agentDir, sa.ChatmodePath())
	if err == nil {
		return nil
	}
	if !transpiler.IsDefinitionMissing(err) {
		return err
	}

	prebuilt := filepath.Join(agentDir, subagent.ChatmodeFileName)
	data, readErr := os.ReadFile(prebuilt)
	if readErr != nil {
		return errors.Errorf("agent %s has no %s, %s or %s", agentDir, transpiler.DefinitionFileName, transpiler.SubagentDefinitionFileName, subagent.ChatmodeFileName)
	}
	if err := os.WriteFile(sa.ChatmodePath(), data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to copy chatmode into %s", sa.Name)
	}
	return nil
}

func resolveAttachments(attachments []string) ([]string, error) {
	resolved := make([]string, 0, len(attachments))
	for _, attachment := range attachments {
		path, err := expandHome(attachment)
		if err != nil {
			return nil, err
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to resolve attachment '%s'", attachment)
		}
		if _, err := os.Stat(abs); err != nil {
			return nil, errors.Errorf("attachment not found: %s", abs)
		}
		resolved = append(resolved, abs)
	}
	return resolved, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !(len(path) > 1 && path[0] == '~' && os.IsPathSeparator(path[1])) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve home directory")
	}
	return filepath.Join(home, path[1:]), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
