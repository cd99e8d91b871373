// Package config loads agent configuration files and the CLI settings.
package config

import (
	"bytes"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// AgentConfig describes an agent to provision on the hosted AI platform
type AgentConfig struct {
	Name         string   `yaml:"name"`
	Instructions string   `yaml:"instructions"`
	URLs         []string `yaml:"urls"`
}

// Loaded pairs a config with the file it came from
type Loaded struct {
	Path   string
	Config AgentConfig
}

// Error reports a config file that could not be loaded or is invalid
type Error struct {
	Path    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsError reports whether err is, or wraps, a config *Error
func IsError(err error) bool {
	var configErr *Error
	return errors.As(err, &configErr)
}

// Load reads and validates a single YAML config file
func Load(path string) (*Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &Error{Path: path, Message: "config file does not exist"}
		}
		return nil, &Error{Path: path, Message: "failed to read config file", Err: err}
	}

	var cfg AgentConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && err != io.EOF {
		return nil, &Error{Path: path, Message: "failed to parse config file", Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, &Error{Path: path, Message: "invalid config", Err: err}
	}

	return &Loaded{Path: path, Config: cfg}, nil
}

// LoadAll loads path when it is a file, or every .yaml/.yml file below it when it is a directory.
// Directory results are sorted by path.
func LoadAll(path string) ([]*Loaded, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &Error{Path: path, Message: "config path does not exist"}
		}
		return nil, &Error{Path: path, Message: "failed to stat config path", Err: err}
	}

	if !info.IsDir() {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		return []*Loaded{loaded}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(p)) {
		case ".yaml", ".yml":
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, &Error{Path: path, Message: "failed to scan config directory", Err: err}
	}

	if len(files) == 0 {
		return nil, &Error{Path: path, Message: "no config files found"}
	}
	sort.Strings(files)

	configs := make([]*Loaded, 0, len(files))
	for _, file := range files {
		loaded, err := Load(file)
		if err != nil {
			return nil, err
		}
		configs = append(configs, loaded)
	}

	return configs, nil
}

// Validate checks required fields and that every URL is absolute http(s)
func (c AgentConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(c.Instructions) == "" {
		return errors.New("instructions are required")
	}

	for _, raw := range c.URLs {
		u, err := url.Parse(raw)
		if err != nil {
			return errors.Wrapf(err, "invalid url '%s'", raw)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.Errorf("invalid url '%s': must be an absolute http or https URL", raw)
		}
	}

	return nil
}
