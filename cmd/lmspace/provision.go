package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lmspace/lmspace/pkg/config"
	"github.com/lmspace/lmspace/pkg/launcher"
	"github.com/lmspace/lmspace/pkg/presenter"
	"github.com/lmspace/lmspace/pkg/subagent"
)

type ProvisionConfig struct {
	Template   string
	Subagents  int
	TargetRoot string
	Force      bool
	DryRun     bool
	Warmup     bool
}

func NewProvisionConfig() *ProvisionConfig {
	return &ProvisionConfig{
		Template:   "",
		Subagents:  1,
		TargetRoot: "",
		Force:      false,
		DryRun:     false,
		Warmup:     false,
	}
}

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Create subagent workspaces",
	Long: `Make sure the requested number of unlocked subagents exist in the pool.

Existing unlocked subagents count toward the total. Locked subagents are
skipped and never count; --force rebuilds every existing subagent from the
template, dropping locks.

Examples:
  lmspace code provision --subagents 3
  lmspace code provision --subagents 2 --template ./subagent-template --force
  lmspace code provision --subagents 4 --dry-run`,
	Run: func(cmd *cobra.Command, _ []string) {
		config := getProvisionConfigFromFlags(cmd)
		settings, err := loadSettings()
		exitOnError(err)
		exitOnError(runProvisionCmd(cmd.Context(), settings, config, nil))
	},
}

func init() {
	defaults := NewProvisionConfig()
	provisionCmd.Flags().String("template", defaults.Template, "Template directory copied into each subagent (default built-in template)")
	provisionCmd.Flags().Int("subagents", defaults.Subagents, "Number of unlocked subagents to have available")
	provisionCmd.Flags().String("target-root", defaults.TargetRoot, "Subagent root to provision (overrides --subagent-root)")
	provisionCmd.Flags().Bool("force", defaults.Force, "Rebuild existing subagents, including locked ones")
	provisionCmd.Flags().Bool("dry-run", defaults.DryRun, "Show what would be done without touching disk")
	provisionCmd.Flags().Bool("warmup", defaults.Warmup, "Open the provisioned workspaces afterwards")
}

func getProvisionConfigFromFlags(cmd *cobra.Command) *ProvisionConfig {
	config := NewProvisionConfig()
	if template, err := cmd.Flags().GetString("template"); err == nil {
		config.Template = template
	}
	if count, err := cmd.Flags().GetInt("subagents"); err == nil {
		config.Subagents = count
	}
	if root, err := cmd.Flags().GetString("target-root"); err == nil {
		config.TargetRoot = root
	}
	if force, err := cmd.Flags().GetBool("force"); err == nil {
		config.Force = force
	}
	if dryRun, err := cmd.Flags().GetBool("dry-run"); err == nil {
		config.DryRun = dryRun
	}
	if warmup, err := cmd.Flags().GetBool("warmup"); err == nil {
		config.Warmup = warmup
	}
	return config
}

func runProvisionCmd(ctx context.Context, settings config.Settings, cfg *ProvisionConfig, editor launcher.Editor) error {
	pool, err := newPool(settings, cfg.TargetRoot)
	if err != nil {
		return err
	}

	result, err := pool.Provision(ctx, subagent.ProvisionOptions{
		Template: cfg.Template,
		Count:    cfg.Subagents,
		Force:    cfg.Force,
		DryRun:   cfg.DryRun,
	})
	if err != nil {
		return err
	}

	printProvisionResult(result, cfg.DryRun)

	if !cfg.Warmup || cfg.DryRun {
		return nil
	}
	return warmupWorkspaces(ctx, newDispatcher(settings, pool, editor), cfg.Subagents, false)
}

func printProvisionResult(result *subagent.ProvisionResult, dryRun bool) {
	prefix := ""
	if dryRun {
		prefix = "[dry-run] "
	}

	for _, s := range result.SkippedLocked {
		presenter.Info(fmt.Sprintf("%sskipped locked %s", prefix, s.Name))
	}
	for _, s := range result.SkippedExisting {
		presenter.Info(fmt.Sprintf("%sskipped existing %s", prefix, s.Name))
	}
	for _, s := range result.Created {
		if dryRun {
			presenter.Info(fmt.Sprintf("%swould create %s at %s", prefix, s.Name, s.Path))
		} else {
			presenter.Info(fmt.Sprintf("created %s at %s", s.Name, s.Path))
		}
	}

	presenter.Success(fmt.Sprintf("%s%d created, %d skipped (existing), %d skipped (locked)",
		prefix, len(result.Created), len(result.SkippedExisting), len(result.SkippedLocked)))
}
