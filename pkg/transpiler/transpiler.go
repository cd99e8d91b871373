// Package transpiler turns agent definitions (Markdown with YAML frontmatter
// declaring reusable skills) into a single chatmode document for the editor's
// chat feature. Declared skills are resolved to "<name>.skill.md" fragments and
// their bodies are appended to the definition body in declaration order.
package transpiler

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/lmspace/lmspace/pkg/logger"
)

const (
	// DefinitionFileName is the primary definition file of an agent directory.
	DefinitionFileName = "SKILL.md"
	// SubagentDefinitionFileName is accepted when an agent directory has no SKILL.md.
	SubagentDefinitionFileName = "SUBAGENT.md"
	// ChatmodeFileName is the default output name, written next to the definition.
	ChatmodeFileName = "subagent.chatmode.md"
)

// Transpiler renders and writes chatmode documents.
type Transpiler struct {
	workspaceRoot string
}

// Option configures a Transpiler
type Option func(*Transpiler) error

// WithWorkspaceRoot adds <dir>/contexts to the end of the skill search path
func WithWorkspaceRoot(dir string) Option {
	return func(t *Transpiler) error {
		if dir == "" {
			return nil
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return errors.Wrapf(err, "failed to resolve workspace root '%s'", dir)
		}
		t.workspaceRoot = abs
		return nil
	}
}

// New creates a Transpiler
func New(opts ...Option) (*Transpiler, error) {
	t := &Transpiler{}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, errors.Wrap(err, "failed to apply transpiler option")
		}
	}
	return t, nil
}

// LocateDefinition maps path to a definition file. Directories resolve to their
// SKILL.md, or SUBAGENT.md when there is no SKILL.md.
func LocateDefinition(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &DefinitionMissingError{Path: path}
		}
		return "", errors.Wrapf(err, "failed to stat '%s'", path)
	}
	if !info.IsDir() {
		return path, nil
	}

	for _, name := range []string{DefinitionFileName, SubagentDefinitionFileName} {
		candidate := filepath.Join(path, name)
		if isFile(candidate) {
			return candidate, nil
		}
	}

	return "", &DefinitionMissingError{Path: filepath.Join(path, DefinitionFileName)}
}

// Render returns the composed chatmode document without writing anything.
func (t *Transpiler) Render(ctx context.Context, definitionPath string) (string, error) {
	definition, resolver, err := t.load(ctx, definitionPath)
	if err != nil {
		return "", err
	}

	bodies := make([]string, 0, len(definition.Skills))
	for _, skill := range definition.Skills {
		body, err := resolver.Resolve(skill)
		if err != nil {
			return "", err
		}
		logger.G(ctx).WithField("skill", skill).Debug("Resolved skill")
		bodies = append(bodies, body)
	}

	return Compose(definition.RawFrontmatter, definition.Body, bodies), nil
}

// SkillPaths returns the file each declared skill resolves to, in declaration order.
func (t *Transpiler) SkillPaths(ctx context.Context, definitionPath string) ([]string, error) {
	definition, resolver, err := t.load(ctx, definitionPath)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(definition.Skills))
	for _, skill := range definition.Skills {
		path, err := resolver.Locate(skill)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	return paths, nil
}

// Transpile renders the definition and writes it to outputPath, or to
// subagent.chatmode.md next to the definition when outputPath is empty.
// Nothing is written unless rendering succeeds. It returns the absolute path written.
func (t *Transpiler) Transpile(ctx context.Context, definitionPath, outputPath string) (string, error) {
	content, err := t.Render(ctx, definitionPath)
	if err != nil {
		return "", err
	}

	if outputPath == "" {
		definitionFile, err := LocateDefinition(definitionPath)
		if err != nil {
			return "", err
		}
		outputPath = filepath.Join(filepath.Dir(definitionFile), ChatmodeFileName)
	}

	target, err := filepath.Abs(outputPath)
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve output path '%s'", outputPath)
	}

	if err := writeFileAtomic(target, []byte(content)); err != nil {
		return "", err
	}

	logger.G(ctx).WithField("path", target).Debug("Wrote chatmode")
	return target, nil
}

func (t *Transpiler) load(ctx context.Context, definitionPath string) (*Definition, *Resolver, error) {
	path, err := LocateDefinition(definitionPath)
	if err != nil {
		return nil, nil, err
	}

	logger.G(ctx).WithField("path", path).Debug("Loading definition")

	definition, err := Load(path)
	if err != nil {
		return nil, nil, err
	}

	resolver, err := NewResolver(filepath.Dir(path), t.workspaceRoot)
	if err != nil {
		return nil, nil, err
	}

	return definition, resolver, nil
}

// writeFileAtomic replaces path through a temporary file in the same
// directory, so a failed write never leaves a truncated output behind.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create output directory '%s'", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary output file")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write temporary output file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close temporary output file")
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return errors.Wrap(err, "failed to set output file permissions")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.Wrapf(err, "failed to write output file '%s'", path)
	}

	return nil
}
