package transpiler

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	// SkillSuffix is the file suffix of skill fragments.
	SkillSuffix = ".skill.md"
	// ContextsDirName holds shared and workspace-level skill fragments.
	ContextsDirName = "contexts"
	// SkillsDirName marks a shared skills pool when it is the parent of a definition directory.
	SkillsDirName = "skills"
)

// Resolver maps skill names to fragment files for one definition directory.
//
// Search order:
//  1. <definitionDir>/<name>.skill.md
//  2. <definitionDir>/../<name>.skill.md and <definitionDir>/../../contexts/<name>.skill.md,
//     only when the parent directory is named "skills"
//  3. <workspaceRoot>/contexts/<name>.skill.md, unless already listed
type Resolver struct {
	definitionDir string
	workspaceRoot string
}

// NewResolver creates a resolver. workspaceRoot may be empty.
func NewResolver(definitionDir, workspaceRoot string) (*Resolver, error) {
	dir, err := filepath.Abs(definitionDir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve definition directory '%s'", definitionDir)
	}

	r := &Resolver{definitionDir: dir}
	if workspaceRoot != "" {
		root, err := filepath.Abs(workspaceRoot)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to resolve workspace root '%s'", workspaceRoot)
		}
		r.workspaceRoot = root
	}

	return r, nil
}

// Candidates returns every location searched for skill, in order.
func (r *Resolver) Candidates(skill string) []string {
	filename := skill + SkillSuffix
	candidates := []string{filepath.Join(r.definitionDir, filename)}

	parent := filepath.Dir(r.definitionDir)
	if filepath.Base(parent) == SkillsDirName {
		candidates = append(candidates,
			filepath.Join(parent, filename),
			filepath.Join(filepath.Dir(parent), ContextsDirName, filename),
		)
	}

	if r.workspaceRoot != "" {
		workspaceSkill := filepath.Join(r.workspaceRoot, ContextsDirName, filename)
		if !contains(candidates, workspaceSkill) {
			candidates = append(candidates, workspaceSkill)
		}
	}

	return candidates
}

// Locate returns the first candidate file that exists for skill.
func (r *Resolver) Locate(skill string) (string, error) {
	candidates := r.Candidates(skill)
	for _, candidate := range candidates {
		if isFile(candidate) {
			return candidate, nil
		}
	}
	return "", &SkillNotFoundError{Skill: skill, AttemptedPaths: candidates}
}

// Resolve returns the body of the fragment skill resolves to, without any
// frontmatter and with surrounding blank lines removed.
func (r *Resolver) Resolve(skill string) (string, error) {
	path, err := r.Locate(skill)
	if err != nil {
		return "", err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read skill file '%s'", path)
	}

	_, body, _, err := splitFrontmatter(string(content))
	if err != nil {
		return "", malformed(path, err.Error())
	}

	return trimBlankLines(body), nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func contains(paths []string, path string) bool {
	for _, p := range paths {
		if p == path {
			return true
		}
	}
	return false
}
