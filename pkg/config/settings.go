package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Settings is the typed view of the lmspace configuration, read from
// config.yaml, LMSPACE_* environment variables and bound flags.
type Settings struct {
	SubagentRoot string        `mapstructure:"subagent_root"`
	LockName     string        `mapstructure:"lock_name"`
	Editor       string        `mapstructure:"editor"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	FocusDelay   time.Duration `mapstructure:"focus_delay"`
	LogLevel     string        `mapstructure:"log_level"`
	LogFormat    string        `mapstructure:"log_format"`
	GithubToken  string        `mapstructure:"github_token"`
}

const (
	DefaultLockName     = "subagent.lock"
	DefaultEditor       = "code"
	DefaultPollInterval = time.Second
	DefaultFocusDelay   = time.Second
)

// DefaultSubagentRoot returns $HOME/.lmspace/agents
func DefaultSubagentRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".lmspace", "agents")
	}
	return filepath.Join(home, ".lmspace", "agents")
}

// SetDefaults registers the default value of every settings key on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("subagent_root", DefaultSubagentRoot())
	v.SetDefault("lock_name", DefaultLockName)
	v.SetDefault("editor", DefaultEditor)
	v.SetDefault("poll_interval", DefaultPollInterval)
	v.SetDefault("focus_delay", DefaultFocusDelay)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// FromViper decodes the settings held by v. GITHUB_TOKEN is used when
// github_token is not set.
func FromViper(v *viper.Viper) (Settings, error) {
	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return settings, errors.Wrap(err, "failed to unmarshal configuration")
	}

	if settings.GithubToken == "" {
		settings.GithubToken = os.Getenv("GITHUB_TOKEN")
	}
	if settings.LockName == "" {
		settings.LockName = DefaultLockName
	}
	if settings.Editor == "" {
		settings.Editor = DefaultEditor
	}
	if settings.PollInterval <= 0 {
		settings.PollInterval = DefaultPollInterval
	}
	if settings.FocusDelay < 0 {
		settings.FocusDelay = 0
	}

	root, err := expandHome(settings.SubagentRoot)
	if err != nil {
		return settings, err
	}
	settings.SubagentRoot = root

	return settings, nil
}

func expandHome(path string) (string, error) {
	if path == "" {
		return DefaultSubagentRoot(), nil
	}
	if path == "~" || len(path) > 1 && path[0] == '~' && os.IsPathSeparator(path[1]) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "failed to resolve home directory")
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}
