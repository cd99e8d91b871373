package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lmspace/lmspace/pkg/config"
	"github.com/lmspace/lmspace/pkg/presenter"
	"github.com/lmspace/lmspace/pkg/subagent"
)

type UnlockConfig struct {
	Subagent int
	All      bool
	DryRun   bool
}

func NewUnlockConfig() *UnlockConfig {
	return &UnlockConfig{
		Subagent: 0,
		All:      false,
		DryRun:   false,
	}
}

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Release subagent locks",
	Long: `Remove the lock file of one subagent or of every subagent in the pool.

Examples:
  lmspace code unlock --subagent 2
  lmspace code unlock --all --dry-run`,
	Run: func(cmd *cobra.Command, _ []string) {
		config := getUnlockConfigFromFlags(cmd)
		settings, err := loadSettings()
		exitOnError(err)
		exitOnError(runUnlockCmd(cmd.Context(), settings, config))
	},
}

func init() {
	defaults := NewUnlockConfig()
	unlockCmd.Flags().Int("subagent", defaults.Subagent, "Number of the subagent to unlock")
	unlockCmd.Flags().Bool("all", defaults.All, "Unlock every subagent")
	unlockCmd.Flags().Bool("dry-run", defaults.DryRun, "Show what would be unlocked without removing locks")
}

func getUnlockConfigFromFlags(cmd *cobra.Command) *UnlockConfig {
	config := NewUnlockConfig()
	if number, err := cmd.Flags().GetInt("subagent"); err == nil {
		config.Subagent = number
	}
	if all, err := cmd.Flags().GetBool("all"); err == nil {
		config.All = all
	}
	if dryRun, err := cmd.Flags().GetBool("dry-run"); err == nil {
		config.DryRun = dryRun
	}
	return config
}

func runUnlockCmd(ctx context.Context, settings config.Settings, cfg *UnlockConfig) error {
	pool, err := newPool(settings, "")
	if err != nil {
		return err
	}

	unlocked, err := pool.Unlock(ctx, subagent.UnlockOptions{
		Number: cfg.Subagent,
		All:    cfg.All,
		DryRun: cfg.DryRun,
	})
	if err != nil {
		return err
	}

	if len(unlocked) == 0 {
		presenter.Info("no locked subagents found")
		return nil
	}

	for _, s := range unlocked {
		if cfg.DryRun {
			presenter.Info(fmt.Sprintf("[dry-run] would unlock %s", s.Name))
		} else {
			presenter.Success(fmt.Sprintf("unlocked %s", s.Name))
		}
	}
	return nil
}
