package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/lmspace/lmspace/pkg/presenter"
)

type SkillsConfig struct {
	WorkspaceRoot string
}

func NewSkillsConfig() *SkillsConfig {
	return &SkillsConfig{
		WorkspaceRoot: "",
	}
}

var skillsCmd = &cobra.Command{
	Use:   "skills <agent>",
	Short: "Print the skill files an agent resolves to",
	Long: `Resolve every skill declared by an agent definition and print the resolved
file paths as a JSON array, in declaration order.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := getSkillsConfigFromFlags(cmd)
		exitOnError(runSkillsCmd(cmd.Context(), args[0], config))
	},
}

func init() {
	defaults := NewSkillsConfig()
	skillsCmd.Flags().String("workspace-root", defaults.WorkspaceRoot, "Workspace whose contexts directory is searched for skills")
}

func getSkillsConfigFromFlags(cmd *cobra.Command) *SkillsConfig {
	config := NewSkillsConfig()
	if root, err := cmd.Flags().GetString("workspace-root"); err == nil {
		config.WorkspaceRoot = root
	}
	return config
}

func runSkillsCmd(ctx context.Context, agentPath string, config *SkillsConfig) error {
	tr, err := newTranspiler(config.WorkspaceRoot)
	if err != nil {
		return err
	}

	paths, err := tr.SkillPaths(ctx, agentPath)
	if err != nil {
		return err
	}
	if paths == nil {
		paths = []string{}
	}
	return presenter.JSON(paths)
}
