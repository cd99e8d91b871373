// Package subagent manages the pool of numbered editor workspaces
// (subagent-1, subagent-2, ...) that agents are dispatched into.
//
// A subagent is a directory under the pool root named subagent-<N>, N >= 1.
// It is locked while the lock file exists inside it.
package subagent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/lmspace/lmspace/pkg/logger"
)

const (
	// DirPrefix prefixes every subagent directory name.
	DirPrefix = "subagent-"
	// DefaultLockName is the lock file name used when none is configured.
	DefaultLockName = "subagent.lock"
	// WorkspaceFileName is the editor workspace file inside a subagent.
	WorkspaceFileName = "subagent.code-workspace"
	// ChatmodeFileName is the chat mode the subagent's chat runs with.
	ChatmodeFileName = "subagent.chatmode.md"
	// MessagesDirName holds request and response files.
	MessagesDirName = "messages"
)

// Subagent is one numbered workspace directory in the pool
type Subagent struct {
	Name   string `json:"name"`
	Number int    `json:"number"`
	Path   string `json:"path"`
	Locked bool   `json:"locked"`
}

// WorkspacePath returns the path of the subagent's workspace file
func (s Subagent) WorkspacePath() string {
	return filepath.Join(s.Path, WorkspaceFileName)
}

// ChatmodePath returns the path of the subagent's chatmode file
func (s Subagent) ChatmodePath() string {
	return filepath.Join(s.Path, ChatmodeFileName)
}

// MessagesDir returns the subagent's messages directory
func (s Subagent) MessagesDir() string {
	return filepath.Join(s.Path, MessagesDirName)
}

// Name returns the directory name of subagent number n
func Name(n int) string {
	return DirPrefix + strconv.Itoa(n)
}

// ParseName returns the number of a subagent directory name
func ParseName(name string) (int, bool) {
	if !strings.HasPrefix(name, DirPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(name, DirPrefix))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// ValidationError reports invalid arguments to a pool operation
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is, or wraps, a *ValidationError
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// Pool manages the subagents under one root directory
type Pool struct {
	root      string
	lockName  string
	removeAll func(string) error
}

// Option configures a Pool
type Option func(*Pool) error

// WithLockName sets the lock file name used inside each subagent
func WithLockName(name string) Option {
	return func(p *Pool) error {
		if name == "" {
			return nil
		}
		if name != filepath.Base(name) || name == "." || name == ".." {
			return invalid("lock name '%s' must be a plain file name", name)
		}
		p.lockName = name
		return nil
	}
}

// NewPool creates a pool rooted at root, which is made absolute
func NewPool(root string, opts ...Option) (*Pool, error) {
	if root == "" {
		return nil, invalid("subagent root must not be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve subagent root '%s'", root)
	}

	p := &Pool{
		root:      abs,
		lockName:  DefaultLockName,
		removeAll: os.RemoveAll,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Root returns the absolute pool root
func (p *Pool) Root() string {
	return p.root
}

// LockName returns the lock file name
func (p *Pool) LockName() string {
	return p.lockName
}

// LockPath returns the lock file path of a subagent
func (p *Pool) LockPath(s Subagent) string {
	return filepath.Join(s.Path, p.lockName)
}

// List returns the subagents sorted by number. A missing root yields an empty list.
func (p *Pool) List(ctx context.Context) ([]Subagent, error) {
	entries, err := os.ReadDir(p.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []Subagent{}, nil
		}
		return nil, errors.Wrapf(err, "failed to read subagent root '%s'", p.root)
	}

	subagents := make([]Subagent, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		n, ok := ParseName(entry.Name())
		if !ok {
			continue
		}
		subagents = append(subagents, p.subagent(n))
	}

	sort.Slice(subagents, func(i, j int) bool {
		return subagents[i].Number < subagents[j].Number
	})

	logger.G(ctx).WithField("root", p.root).WithField("count", len(subagents)).Debug("Listed subagents")
	return subagents, nil
}

// Get returns subagent number n, or a ValidationError when it does not exist
func (p *Pool) Get(n int) (Subagent, error) {
	s := p.subagent(n)
	info, err := os.Stat(s.Path)
	if err != nil || !info.IsDir() {
		return Subagent{}, invalid("%s does not exist in %s", s.Name, p.root)
	}
	return s, nil
}

// FindUnlocked returns the lowest-numbered unlocked subagent, or nil when every subagent is locked
func (p *Pool) FindUnlocked(ctx context.Context) (*Subagent, error) {
	subagents, err := p.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range subagents {
		if !s.Locked {
			return &s, nil
		}
	}
	return nil, nil
}

// Workspaces returns the workspace files of subagents that have one, in
// subagent order. At most limit paths are returned when limit > 0.
func (p *Pool) Workspaces(ctx context.Context, limit int) ([]string, error) {
	subagents, err := p.List(ctx)
	if err != nil {
		return nil, err
	}

	var workspaces []string
	for _, s := range subagents {
		if limit > 0 && len(workspaces) >= limit {
			break
		}
		if isFile(s.WorkspacePath()) {
			workspaces = append(workspaces, s.WorkspacePath())
		}
	}
	return workspaces, nil
}

func (p *Pool) subagent(n int) Subagent {
	name := Name(n)
	path := filepath.Join(p.root, name)
	return Subagent{
		Name:   name,
		Number: n,
		Path:   path,
		Locked: exists(filepath.Join(path, p.lockName)),
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
