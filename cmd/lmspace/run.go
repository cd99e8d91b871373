package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/lmspace/lmspace/pkg/config"
	"github.com/lmspace/lmspace/pkg/fetcher"
	"github.com/lmspace/lmspace/pkg/presenter"
	"github.com/lmspace/lmspace/pkg/runner"
)

type RunConfig struct {
	DryRun bool
}

func NewRunConfig() *RunConfig {
	return &RunConfig{
		DryRun: false,
	}
}

var runCmd = &cobra.Command{
	Use:   "run <path>",
	Short: "Fetch and provision agents from config files",
	Long: `Load agent configs from a YAML file or a directory of YAML files, download the
files each config references and provision the agents.

Provisioning needs a platform provisioner; use --dry-run to validate the
configs and fetch their files without one.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := getRunConfigFromFlags(cmd)
		settings, err := loadSettings()
		exitOnError(err)
		exitOnError(runRunCmd(cmd.Context(), settings, args[0], config, nil))
	},
}

func init() {
	defaults := NewRunConfig()
	runCmd.Flags().Bool("dry-run", defaults.DryRun, "Fetch files without provisioning")
}

func getRunConfigFromFlags(cmd *cobra.Command) *RunConfig {
	config := NewRunConfig()
	if dryRun, err := cmd.Flags().GetBool("dry-run"); err == nil {
		config.DryRun = dryRun
	}
	return config
}

func runRunCmd(ctx context.Context, settings config.Settings, path string, cfg *RunConfig, provisioner runner.Provisioner) error {
	configs, err := config.LoadAll(path)
	if err != nil {
		return err
	}

	f, err := fetcher.New(fetcher.WithGithubToken(settings.GithubToken))
	if err != nil {
		return err
	}

	r := &runner.Runner{
		Fetcher:     f,
		Provisioner: provisioner,
		DryRun:      cfg.DryRun,
	}
	results, err := r.RunAll(ctx, configs)
	if err != nil {
		return err
	}
	return presenter.JSON(results)
}
