package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lmspace/lmspace/pkg/presenter"
	"github.com/lmspace/lmspace/pkg/transpiler"
)

type TranspileConfig struct {
	Output        string
	WorkspaceRoot string
}

func NewTranspileConfig() *TranspileConfig {
	return &TranspileConfig{
		Output:        "",
		WorkspaceRoot: "",
	}
}

var transpileCmd = &cobra.Command{
	Use:   "transpile <agent>",
	Short: "Generate a chatmode from an agent definition",
	Long: `Compose an agent definition (a SKILL.md or SUBAGENT.md, or a directory holding one)
and the skill fragments it declares into a single chatmode document.

Skills are looked up next to the definition, in the shared skills pool and
contexts directory when the agent lives under a skills directory, and finally
in <workspace-root>/contexts.

Examples:
  lmspace code transpile agents/writer
  lmspace code transpile agents/writer/SKILL.md --output build/writer.chatmode.md
  lmspace code transpile agents/writer --workspace-root .`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := getTranspileConfigFromFlags(cmd)
		exitOnError(runTranspileCmd(cmd.Context(), args[0], config))
	},
}

func init() {
	defaults := NewTranspileConfig()
	transpileCmd.Flags().StringP("output", "o", defaults.Output, "Output path (default <agent dir>/subagent.chatmode.md)")
	transpileCmd.Flags().String("workspace-root", defaults.WorkspaceRoot, "Workspace whose contexts directory is searched for skills")
}

func getTranspileConfigFromFlags(cmd *cobra.Command) *TranspileConfig {
	config := NewTranspileConfig()
	if output, err := cmd.Flags().GetString("output"); err == nil {
		config.Output = output
	}
	if root, err := cmd.Flags().GetString("workspace-root"); err == nil {
		config.WorkspaceRoot = root
	}
	return config
}

func newTranspiler(workspaceRoot string) (*transpiler.Transpiler, error) {
	var opts []transpiler.Option
	if workspaceRoot != "" {
		opts = append(opts, transpiler.WithWorkspaceRoot(workspaceRoot))
	}
	return transpiler.New(opts...)
}

func runTranspileCmd(ctx context.Context, agentPath string, config *TranspileConfig) error {
	tr, err := newTranspiler(config.WorkspaceRoot)
	if err != nil {
		return err
	}

	written, err := tr.Transpile(ctx, agentPath, config.Output)
	if err != nil {
		return err
	}

	presenter.Info(fmt.Sprintf("generated chatmode at %s", written))
	return nil
}
