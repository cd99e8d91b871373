package main

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/lmspace/lmspace/pkg/config"
	"github.com/lmspace/lmspace/pkg/launcher"
	"github.com/lmspace/lmspace/pkg/presenter"
)

type WarmupConfig struct {
	Subagents int
	DryRun    bool
}

func NewWarmupConfig() *WarmupConfig {
	return &WarmupConfig{
		Subagents: 1,
		DryRun:    false,
	}
}

var warmupCmd = &cobra.Command{
	Use:   "warmup",
	Short: "Open subagent workspaces ahead of time",
	Long: `Open the first N subagent workspaces in the editor so that later chats start
in an editor that is already running.`,
	Run: func(cmd *cobra.Command, _ []string) {
		config := getWarmupConfigFromFlags(cmd)
		settings, err := loadSettings()
		exitOnError(err)
		exitOnError(runWarmupCmd(cmd.Context(), settings, config, nil))
	},
}

func init() {
	defaults := NewWarmupConfig()
	warmupCmd.Flags().Int("subagents", defaults.Subagents, "Number of workspaces to open")
	warmupCmd.Flags().Bool("dry-run", defaults.DryRun, "List the workspaces without opening them")
}

func getWarmupConfigFromFlags(cmd *cobra.Command) *WarmupConfig {
	config := NewWarmupConfig()
	if count, err := cmd.Flags().GetInt("subagents"); err == nil {
		config.Subagents = count
	}
	if dryRun, err := cmd.Flags().GetBool("dry-run"); err == nil {
		config.DryRun = dryRun
	}
	return config
}

func runWarmupCmd(ctx context.Context, settings config.Settings, cfg *WarmupConfig, editor launcher.Editor) error {
	pool, err := newPool(settings, "")
	if err != nil {
		return err
	}
	return warmupWorkspaces(ctx, newDispatcher(settings, pool, editor), cfg.Subagents, cfg.DryRun)
}

// warmupWorkspaces opens the workspaces and reports individual failures as warnings
func warmupWorkspaces(ctx context.Context, dispatcher *launcher.Dispatcher, count int, dryRun bool) error {
	opened, err := dispatcher.Warmup(ctx, count, dryRun)

	var merr *multierror.Error
	if err != nil {
		var ok bool
		if merr, ok = err.(*multierror.Error); !ok {
			return err
		}
	}

	for _, workspace := range opened {
		if dryRun {
			presenter.Info(fmt.Sprintf("[dry-run] would open %s", workspace))
		} else {
			presenter.Info(fmt.Sprintf("opened %s", workspace))
		}
	}
	if merr != nil {
		for _, e := range merr.Errors {
			presenter.Warning(e.Error())
		}
	}
	return nil
}
