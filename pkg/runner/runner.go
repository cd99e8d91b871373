// Package runner drives agent configs through fetching and provisioning.
package runner

import (
	"context"

	"github.com/pkg/errors"

	"github.com/lmspace/lmspace/pkg/config"
	"github.com/lmspace/lmspace/pkg/fetcher"
	"github.com/lmspace/lmspace/pkg/logger"
)

// ErrProvisionerRequired is returned when a non dry run has no provisioner
var ErrProvisionerRequired = errors.New("a provisioner is required unless running in dry-run mode")

// Fetcher downloads the files referenced by a config
type Fetcher interface {
	FetchMany(ctx context.Context, urls []string) ([]fetcher.RetrievedFile, error)
}

// Provisioned holds the identifiers returned by the remote platform
type Provisioned struct {
	AssistantID      string
	VectorStoreID    string
	FileIDs          []string
	FrameworkAgentID string
}

// Provisioner creates a remote assistant from a config and its files
type Provisioner interface {
	Provision(ctx context.Context, cfg config.AgentConfig, files []fetcher.RetrievedFile) (*Provisioned, error)
}

// Result summarises a single config run
type Result struct {
	ConfigPath       string   `json:"config_path"`
	Name             string   `json:"name"`
	FileCount        int      `json:"file_count"`
	AssistantID      string   `json:"assistant_id,omitempty"`
	VectorStoreID    string   `json:"vector_store_id,omitempty"`
	FileIDs          []string `json:"file_ids,omitempty"`
	FrameworkAgentID string   `json:"framework_agent_id,omitempty"`
	DryRun           bool     `json:"dry_run"`
}

// Runner fetches each config's files and hands them to the provisioner
type Runner struct {
	Fetcher     Fetcher
	Provisioner Provisioner
	DryRun      bool
}

// RunSingle runs one loaded config
func (r *Runner) RunSingle(ctx context.Context, loaded *config.Loaded) (*Result, error) {
	if r.Fetcher == nil {
		return nil, errors.New("a fetcher is required")
	}
	if !r.DryRun && r.Provisioner == nil {
		return nil, ErrProvisionerRequired
	}

	log := logger.G(ctx).WithField("config", loaded.Path)

	files, err := r.Fetcher.FetchMany(ctx, loaded.Config.URLs)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch files for %s", loaded.Config.Name)
	}
	log.WithField("files", len(files)).Debug("fetched files")

	result := &Result{
		ConfigPath: loaded.Path,
		Name:       loaded.Config.Name,
		FileCount:  len(files),
		DryRun:     r.DryRun,
	}
	if r.DryRun {
		log.Info("dry run, skipping provisioning")
		return result, nil
	}

	provisioned, err := r.Provisioner.Provision(ctx, loaded.Config, files)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to provision %s", loaded.Config.Name)
	}
	result.AssistantID = provisioned.AssistantID
	result.VectorStoreID = provisioned.VectorStoreID
	result.FileIDs = provisioned.FileIDs
	result.FrameworkAgentID = provisioned.FrameworkAgentID

	log.WithField("assistant_id", result.AssistantID).Info("provisioned agent")
	return result, nil
}

// RunAll runs the configs in order and stops at the first failure
func (r *Runner) RunAll(ctx context.Context, configs []*config.Loaded) ([]*Result, error) {
	results := make([]*Result, 0, len(configs))
	for _, loaded := range configs {
		result, err := r.RunSingle(ctx, loaded)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}
