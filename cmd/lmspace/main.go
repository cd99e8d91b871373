package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lmspace/lmspace/pkg/config"
	"github.com/lmspace/lmspace/pkg/launcher"
	"github.com/lmspace/lmspace/pkg/logger"
	"github.com/lmspace/lmspace/pkg/presenter"
	"github.com/lmspace/lmspace/pkg/subagent"
)

func init() {
	// Environment variables
	viper.SetEnvPrefix("LMSPACE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Config file support
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.lmspace")
	viper.AddConfigPath(".")

	// Load config file if it exists (ignore errors if it doesn't)
	_ = viper.ReadInConfig()

	config.SetDefaults(viper.GetViper())
}

var rootCmd = &cobra.Command{
	Use:   "lmspace",
	Short: "Provision and drive editor subagent workspaces",
	Long: `lmspace transpiles skill-based agent definitions into editor chatmodes and
manages a pool of isolated subagent workspaces that run them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		return logger.Configure(logger.Options{
			Level:  settings.LogLevel,
			Format: settings.LogFormat,
		})
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

func main() {
	rootCmd.PersistentFlags().String("log-level", "", "Log level (panic, fatal, error, warn, info, debug, trace)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (text or json)")
	rootCmd.PersistentFlags().String("subagent-root", "", "Directory holding the subagent pool (default $HOME/.lmspace/agents)")
	rootCmd.PersistentFlags().String("lock-name", "", "Name of the lock file inside each subagent")
	rootCmd.PersistentFlags().String("editor", "", "Editor command used to open workspaces")

	bindFlags(rootCmd.PersistentFlags(), map[string]string{
		"log_level":     "log-level",
		"log_format":    "log-format",
		"subagent_root": "subagent-root",
		"lock_name":     "lock-name",
		"editor":        "editor",
	})

	rootCmd.AddCommand(codeCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		presenter.Error(err, "")
		os.Exit(1)
	}
}

func bindFlags(flags *pflag.FlagSet, keys map[string]string) {
	for key, flag := range keys {
		viper.BindPFlag(key, flags.Lookup(flag))
	}
}

func loadSettings() (config.Settings, error) {
	return config.FromViper(viper.GetViper())
}

// exitOnError reports err and terminates the process with status 1
func exitOnError(err error) {
	if err == nil {
		return
	}
	presenter.Error(err, "")
	os.Exit(1)
}

func newPool(settings config.Settings, root string) (*subagent.Pool, error) {
	if root == "" {
		root = settings.SubagentRoot
	}
	pool, err := subagent.NewPool(root, subagent.WithLockName(settings.LockName))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open subagent pool")
	}
	return pool, nil
}

func newDispatcher(settings config.Settings, pool *subagent.Pool, editor launcher.Editor) *launcher.Dispatcher {
	if editor == nil {
		editor = launcher.NewCodeEditor(settings.Editor)
	}
	return launcher.NewDispatcher(pool,
		launcher.WithEditor(editor),
		launcher.WithPollInterval(settings.PollInterval),
		launcher.WithFocusDelay(settings.FocusDelay),
	)
}
