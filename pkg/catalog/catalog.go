// Package catalog lists the agent definitions found in a set of directories.
// An agent is a directory holding a SKILL.md or SUBAGENT.md whose YAML
// frontmatter describes it.
package catalog

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/gobwas/glob"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"

	"github.com/lmspace/lmspace/pkg/logger"
	"github.com/lmspace/lmspace/pkg/transpiler"
)

// Agent is a discovered agent definition
type Agent struct {
	Name           string   `json:"name" mapstructure:"-"`
	Directory      string   `json:"directory" mapstructure:"-"`
	DefinitionFile string   `json:"definition_file" mapstructure:"-"`
	Description    string   `json:"description,omitempty" mapstructure:"description"`
	Model          string   `json:"model,omitempty" mapstructure:"model"`
	Tools          []string `json:"tools,omitempty" mapstructure:"tools"`
	Skills         []string `json:"skills,omitempty" mapstructure:"skills"`
}

// Discovery finds agents in the configured directories
type Discovery struct {
	dirs   []string
	filter glob.Glob
}

// Option is a function that configures a Discovery
type Option func(*Discovery) error

// WithDirs sets the directories to scan, in precedence order
func WithDirs(dirs ...string) Option {
	return func(d *Discovery) error {
		d.dirs = dirs
		return nil
	}
}

// WithFilter keeps only agents whose name matches the glob pattern
func WithFilter(pattern string) Option {
	return func(d *Discovery) error {
		if pattern == "" {
			d.filter = nil
			return nil
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			return errors.Wrapf(err, "invalid filter pattern '%s'", pattern)
		}
		d.filter = g
		return nil
	}
}

// NewDiscovery creates a discovery over the current directory unless WithDirs is given
func NewDiscovery(opts ...Option) (*Discovery, error) {
	d := &Discovery{dirs: []string{"."}}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Discover returns the agents sorted by name. When two directories hold an
// agent with the same name, the one from the earlier directory wins.
func (d *Discovery) Discover(ctx context.Context) ([]*Agent, error) {
	found := make(map[string]*Agent)

	for _, dir := range d.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				logger.G(ctx).WithField("dir", dir).Debug("Agent directory does not exist")
				continue
			}
			return nil, errors.Wrapf(err, "failed to read agent directory '%s'", dir)
		}

		for _, entry := range entries {
			agentDir := filepath.Join(dir, entry.Name())
			info, err := os.Stat(agentDir)
			if err != nil || !info.IsDir() {
				continue
			}

			name := entry.Name()
			if d.filter != nil && !d.filter.Match(name) {
				continue
			}
			if _, exists := found[name]; exists {
				continue
			}

			agent, err := loadAgent(agentDir)
			if err != nil {
				logger.G(ctx).WithError(err).WithField("dir", agentDir).Debug("Skipping directory")
				continue
			}
			found[name] = agent
		}
	}

	agents := make([]*Agent, 0, len(found))
	for _, agent := range found {
		agents = append(agents, agent)
	}
	sort.Slice(agents, func(i, j int) bool {
		return agents[i].Name < agents[j].Name
	})

	return agents, nil
}

// Get returns the agent with the given directory name
func (d *Discovery) Get(ctx context.Context, name string) (*Agent, error) {
	agents, err := d.Discover(ctx)
	if err != nil {
		return nil, err
	}
	for _, agent := range agents {
		if agent.Name == name {
			return agent, nil
		}
	}
	return nil, errors.Errorf("agent '%s' not found", name)
}

func loadAgent(dir string) (*Agent, error) {
	path, err := transpiler.LocateDefinition(dir)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read agent definition")
	}

	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()
	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return nil, errors.Wrap(err, "failed to parse markdown")
	}

	metaData, err := meta.TryGet(pctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse frontmatter")
	}
	if metaData == nil {
		return nil, errors.New("missing frontmatter")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve agent directory '%s'", dir)
	}

	agent := &Agent{
		Name:           filepath.Base(abs),
		Directory:      abs,
		DefinitionFile: filepath.Join(abs, filepath.Base(path)),
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           agent,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create metadata decoder")
	}
	if err := decoder.Decode(metaData); err != nil {
		return nil, errors.Wrap(err, "failed to decode agent metadata")
	}

	return agent, nil
}
