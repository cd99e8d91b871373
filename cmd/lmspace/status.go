package main

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lmspace/lmspace/pkg/config"
	"github.com/lmspace/lmspace/pkg/presenter"
	"github.com/lmspace/lmspace/pkg/subagent"
)

type StatusConfig struct {
	JSON bool
}

func NewStatusConfig() *StatusConfig {
	return &StatusConfig{
		JSON: false,
	}
}

// subagentStatus is one row of the status output
type subagentStatus struct {
	subagent.Subagent
	PID   int  `json:"pid,omitempty"`
	Stale bool `json:"stale"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the subagent pool",
	Long: `List the subagents in the pool with their lock state. A lock is stale when the
process that took it is no longer running on this host.`,
	Run: func(cmd *cobra.Command, _ []string) {
		config := getStatusConfigFromFlags(cmd)
		settings, err := loadSettings()
		exitOnError(err)
		exitOnError(runStatusCmd(cmd.Context(), settings, config))
	},
}

func init() {
	defaults := NewStatusConfig()
	statusCmd.Flags().Bool("json", defaults.JSON, "Output as JSON")
}

func getStatusConfigFromFlags(cmd *cobra.Command) *StatusConfig {
	config := NewStatusConfig()
	if asJSON, err := cmd.Flags().GetBool("json"); err == nil {
		config.JSON = asJSON
	}
	return config
}

func collectStatus(ctx context.Context, pool *subagent.Pool) ([]subagentStatus, error) {
	subagents, err := pool.List(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]subagentStatus, 0, len(subagents))
	for _, s := range subagents {
		status := subagentStatus{Subagent: s}
		if s.Locked {
			if info, err := pool.ReadLock(s); err == nil {
				status.PID = info.PID
				status.Stale = info.Stale()
			}
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func runStatusCmd(ctx context.Context, settings config.Settings, cfg *StatusConfig) error {
	pool, err := newPool(settings, "")
	if err != nil {
		return err
	}

	statuses, err := collectStatus(ctx, pool)
	if err != nil {
		return err
	}

	if cfg.JSON {
		return presenter.JSON(statuses)
	}

	if len(statuses) == 0 {
		presenter.Info("no subagents found in " + pool.Root())
		return nil
	}

	rows := make([][]string, 0, len(statuses))
	for _, status := range statuses {
		locked := "no"
		if status.Locked {
			locked = "yes"
			if status.Stale {
				locked = "stale"
			}
		}
		pid := "-"
		if status.PID > 0 {
			pid = strconv.Itoa(status.PID)
		}
		rows = append(rows, []string{status.Name, locked, pid, status.Path})
	}
	presenter.Table([]string{"NAME", "LOCKED", "PID", "PATH"}, rows)
	return nil
}
