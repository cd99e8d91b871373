package subagent

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/lmspace/lmspace/pkg/logger"
)

// ErrAlreadyLocked is returned by Lock when the subagent is already locked
var ErrAlreadyLocked = errors.New("subagent is already locked")

// LockInfo is the content of a lock file. Lock files created by other tools
// may be empty, in which case every field is zero.
type LockInfo struct {
	PID      int       `json:"pid,omitempty"`
	Host     string    `json:"host,omitempty"`
	LockedAt time.Time `json:"locked_at,omitempty"`
}

// Stale reports whether the process that took the lock has exited. Locks
// without an owner, or owned by another host, are never stale.
func (l LockInfo) Stale() bool {
	if l.PID <= 0 {
		return false
	}
	if host, err := os.Hostname(); err == nil && l.Host != "" && l.Host != host {
		return false
	}
	found, err := process.PidExists(int32(l.PID))
	if err != nil {
		return false
	}
	return !found
}

// Lock marks the subagent as in use. It fails with ErrAlreadyLocked if the
// lock file already exists.
func (p *Pool) Lock(ctx context.Context, s Subagent) error {
	path := p.LockPath(s)

	f, err := lockedfile.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return errors.Wrapf(ErrAlreadyLocked, "failed to lock %s", s.Name)
		}
		return errors.Wrapf(err, "failed to create lock file for %s", s.Name)
	}
	defer f.Close()

	host, _ := os.Hostname()
	info := LockInfo{
		PID:      os.Getpid(),
		Host:     host,
		LockedAt: time.Now().UTC(),
	}
	if err := json.NewEncoder(f).Encode(info); err != nil {
		return errors.Wrapf(err, "failed to write lock file for %s", s.Name)
	}

	logger.G(ctx).WithField("subagent", s.Name).Debug("Locked subagent")
	return nil
}

// ReadLock returns the lock of a locked subagent
func (p *Pool) ReadLock(s Subagent) (*LockInfo, error) {
	data, err := lockedfile.Read(p.LockPath(s))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Errorf("%s is not locked", s.Name)
		}
		return nil, errors.Wrapf(err, "failed to read lock file of %s", s.Name)
	}

	info := &LockInfo{}
	if len(bytes.TrimSpace(data)) == 0 {
		return info, nil
	}
	if err := json.Unmarshal(data, info); err != nil {
		logger.G(nil).WithError(err).WithField("subagent", s.Name).Debug("Ignoring unreadable lock file content")
		return &LockInfo{}, nil
	}
	return info, nil
}

// UnlockOptions selects the subagents to unlock. Exactly one of Number and All must be set.
type UnlockOptions struct {
	Number int
	All    bool
	DryRun bool
}

// Unlock removes lock files and returns the subagents that were (or in a dry
// run would be) unlocked. Subagents that are not locked are ignored.
func (p *Pool) Unlock(ctx context.Context, opts UnlockOptions) ([]Subagent, error) {
	if (opts.Number > 0) == opts.All {
		return nil, invalid("must specify either a subagent number or all, but not both")
	}

	info, err := os.Stat(p.root)
	if err != nil || !info.IsDir() {
		return nil, invalid("subagent root %s does not exist", p.root)
	}

	var candidates []Subagent
	if opts.All {
		candidates, err = p.List(ctx)
		if err != nil {
			return nil, err
		}
	} else {
		s, err := p.Get(opts.Number)
		if err != nil {
			return nil, err
		}
		candidates = []Subagent{s}
	}

	unlocked := []Subagent{}
	var result *multierror.Error
	for _, s := range candidates {
		if !s.Locked {
			continue
		}
		if !opts.DryRun {
			if err := os.Remove(p.LockPath(s)); err != nil && !os.IsNotExist(err) {
				result = multierror.Append(result, errors.Wrapf(err, "failed to unlock %s", s.Name))
				continue
			}
			s.Locked = false
		}
		logger.G(ctx).WithField("subagent", s.Name).WithField("dry_run", opts.DryRun).Debug("Unlocked subagent")
		unlocked = append(unlocked, s)
	}

	return unlocked, result.ErrorOrNil()
}
