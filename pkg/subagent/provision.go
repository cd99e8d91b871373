package subagent

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/lmspace/lmspace/pkg/logger"
)

// ProvisionOptions controls Provision. An empty Template provisions from the
// built-in template.
type ProvisionOptions struct {
	Template string
	Count    int
	Force    bool
	DryRun   bool
}

// ProvisionResult lists what Provision did, or would do in a dry run.
// A locked subagent rebuilt with Force appears in both Created and SkippedLocked.
type ProvisionResult struct {
	Created         []Subagent `json:"created"`
	SkippedExisting []Subagent `json:"skipped_existing"`
	SkippedLocked   []Subagent `json:"skipped_locked"`
}

// Provision makes sure at least opts.Count unlocked subagents exist.
//
// Existing unlocked subagents count toward the total and are left alone, or
// rebuilt from the template with Force. Locked subagents never count; with
// Force they are rebuilt anyway, which drops their lock. Missing subagents are
// created with numbers following the highest existing one.
func (p *Pool) Provision(ctx context.Context, opts ProvisionOptions) (*ProvisionResult, error) {
	tmpl, err := openTemplate(opts.Template)
	if err != nil {
		return nil, err
	}
	if opts.Count < 1 {
		return nil, invalid("subagent count must be a positive integer, got %d", opts.Count)
	}

	existing, err := p.List(ctx)
	if err != nil {
		return nil, err
	}

	result := &ProvisionResult{
		Created:         []Subagent{},
		SkippedExisting: []Subagent{},
		SkippedLocked:   []Subagent{},
	}

	log := logger.G(ctx).WithField("root", p.root).WithField("dry_run", opts.DryRun)

	if !opts.DryRun {
		if err := os.MkdirAll(p.root, 0o755); err != nil {
			return nil, errors.Wrapf(err, "failed to create subagent root '%s'", p.root)
		}
	}

	highest := 0
	available := 0
	for _, s := range existing {
		if s.Number > highest {
			highest = s.Number
		}

		if s.Locked {
			result.SkippedLocked = append(result.SkippedLocked, s)
			if !opts.Force {
				continue
			}
		} else {
			available++
			if !opts.Force {
				result.SkippedExisting = append(result.SkippedExisting, s)
				continue
			}
		}

		rebuilt, err := p.rebuild(s, tmpl, opts.DryRun)
		if err != nil {
			return nil, err
		}
		log.WithField("subagent", s.Name).Debug("Rebuilt subagent")
		result.Created = append(result.Created, rebuilt)
	}

	for next := highest + 1; available < opts.Count; next++ {
		s := p.subagent(next)
		if !opts.DryRun {
			if err := tmpl.copyTo(s.Path); err != nil {
				return nil, errors.Wrapf(err, "failed to create %s", s.Name)
			}
		}
		s.Locked = false
		log.WithField("subagent", s.Name).Debug("Created subagent")
		result.Created = append(result.Created, s)
		available++
	}

	return result, nil
}

func (p *Pool) rebuild(s Subagent, tmpl *templateDir, dryRun bool) (Subagent, error) {
	rebuilt := s
	rebuilt.Locked = false
	if dryRun {
		return rebuilt, nil
	}

	if err := p.removeAll(s.Path); err != nil {
		return Subagent{}, invalid("cannot overwrite %s at %s: it appears to be in use (%v)", s.Name, s.Path, err)
	}
	if err := tmpl.copyTo(s.Path); err != nil {
		return Subagent{}, errors.Wrapf(err, "failed to rebuild %s", s.Name)
	}
	return rebuilt, nil
}
