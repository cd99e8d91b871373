package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lmspace/lmspace/pkg/config"
	"github.com/lmspace/lmspace/pkg/launcher"
	"github.com/lmspace/lmspace/pkg/presenter"
)

type ChatConfig struct {
	Attachments   []string
	WorkspaceRoot string
	DryRun        bool
}

func NewChatConfig() *ChatConfig {
	return &ChatConfig{
		Attachments:   []string{},
		WorkspaceRoot: "",
		DryRun:        false,
	}
}

var chatCmd = &cobra.Command{
	Use:   "chat <agent> <query>",
	Short: "Run a query in an unlocked subagent",
	Long: `Install an agent into the first unlocked subagent, send it the query and wait
for the response. The launch details are printed as JSON as soon as a
subagent is assigned; the response follows once the agent has written it.

Examples:
  lmspace code chat agents/writer "Summarise the release notes"
  lmspace code chat agents/reviewer "Review this change" -a diff.patch
  lmspace code chat agents/writer "Draft a plan" --dry-run`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		config := getChatConfigFromFlags(cmd)
		settings, err := loadSettings()
		exitOnError(err)
		exitOnError(runChatCmd(cmd.Context(), settings, args[0], args[1], config, nil))
	},
}

func init() {
	defaults := NewChatConfig()
	chatCmd.Flags().StringSliceP("attachment", "a", defaults.Attachments, "File to attach to the request (repeatable)")
	chatCmd.Flags().String("workspace-root", defaults.WorkspaceRoot, "Workspace whose contexts directory is searched for skills")
	chatCmd.Flags().Bool("dry-run", defaults.DryRun, "Assign a subagent and print the launch without running it")
}

func getChatConfigFromFlags(cmd *cobra.Command) *ChatConfig {
	config := NewChatConfig()
	if attachments, err := cmd.Flags().GetStringSlice("attachment"); err == nil {
		config.Attachments = attachments
	}
	if root, err := cmd.Flags().GetString("workspace-root"); err == nil {
		config.WorkspaceRoot = root
	}
	if dryRun, err := cmd.Flags().GetBool("dry-run"); err == nil {
		config.DryRun = dryRun
	}
	return config
}

func runChatCmd(ctx context.Context, settings config.Settings, agentDir, query string, cfg *ChatConfig, editor launcher.Editor) error {
	pool, err := newPool(settings, "")
	if err != nil {
		return err
	}

	dispatcher := newDispatcher(settings, pool, editor)
	response, err := dispatcher.Dispatch(ctx, launcher.Request{
		AgentDir:      agentDir,
		Query:         query,
		Attachments:   cfg.Attachments,
		WorkspaceRoot: cfg.WorkspaceRoot,
		DryRun:        cfg.DryRun,
	}, func(launch *launcher.Launch) error {
		return presenter.JSON(launch)
	})
	if err != nil {
		return err
	}

	if response != "" {
		presenter.Info(strings.TrimRight(response, "\n"))
	}
	return nil
}
