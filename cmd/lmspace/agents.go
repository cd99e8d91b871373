package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lmspace/lmspace/pkg/catalog"
	"github.com/lmspace/lmspace/pkg/presenter"
)

type AgentsConfig struct {
	Filter string
	JSON   bool
}

func NewAgentsConfig() *AgentsConfig {
	return &AgentsConfig{
		Filter: "",
		JSON:   false,
	}
}

var agentsCmd = &cobra.Command{
	Use:   "agents [dir...]",
	Short: "List agent definitions",
	Long: `List the agents defined in the given directories (default the current
directory). An agent is a subdirectory holding a SKILL.md or SUBAGENT.md.
When several directories define the same agent the first one wins.

Examples:
  lmspace code agents ./agents
  lmspace code agents ./agents ~/shared-agents --filter 'code-*'`,
	Run: func(cmd *cobra.Command, args []string) {
		config := getAgentsConfigFromFlags(cmd)
		exitOnError(runAgentsCmd(cmd.Context(), args, config))
	},
}

func init() {
	defaults := NewAgentsConfig()
	agentsCmd.Flags().String("filter", defaults.Filter, "Only list agents whose name matches this glob")
	agentsCmd.Flags().Bool("json", defaults.JSON, "Output as JSON")
}

func getAgentsConfigFromFlags(cmd *cobra.Command) *AgentsConfig {
	config := NewAgentsConfig()
	if filter, err := cmd.Flags().GetString("filter"); err == nil {
		config.Filter = filter
	}
	if asJSON, err := cmd.Flags().GetBool("json"); err == nil {
		config.JSON = asJSON
	}
	return config
}

func runAgentsCmd(ctx context.Context, dirs []string, cfg *AgentsConfig) error {
	opts := []catalog.Option{catalog.WithFilter(cfg.Filter)}
	if len(dirs) > 0 {
		opts = append(opts, catalog.WithDirs(dirs...))
	}

	discovery, err := catalog.NewDiscovery(opts...)
	if err != nil {
		return err
	}

	agents, err := discovery.Discover(ctx)
	if err != nil {
		return err
	}

	if cfg.JSON {
		return presenter.JSON(agents)
	}

	if len(agents) == 0 {
		presenter.Info("no agents found")
		return nil
	}

	rows := make([][]string, 0, len(agents))
	for _, agent := range agents {
		rows = append(rows, []string{
			agent.Name,
			agent.Description,
			agent.Model,
			strings.Join(agent.Skills, ","),
		})
	}
	presenter.Table([]string{"NAME", "DESCRIPTION", "MODEL", "SKILLS"}, rows)
	return nil
}
