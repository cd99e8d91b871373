package transpiler

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	frontmatterDelimiter = "---"
	skillsKey            = "skills"
)

var errUnterminatedFrontmatter = errors.New("missing a closing '---' delimiter for its frontmatter")

// Definition is a parsed agent definition: its frontmatter mapping, the raw
// frontmatter text exactly as written, the Markdown body and the declared skills.
type Definition struct {
	Path           string
	Frontmatter    map[string]any
	RawFrontmatter string
	Body           string
	Skills         []string
}

// Load reads the definition document at path and validates its frontmatter.
func Load(path string) (*Definition, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &DefinitionMissingError{Path: path}
		}
		return nil, errors.Wrapf(err, "failed to read definition '%s'", path)
	}

	text := string(content)
	if strings.TrimSpace(text) == "" {
		return nil, malformed(path, "file is empty")
	}

	raw, body, ok, err := splitFrontmatter(text)
	if err != nil {
		return nil, malformed(path, err.Error())
	}
	if !ok {
		return nil, malformed(path, "must start with a YAML frontmatter block delimited by '---'")
	}

	var parsed any
	if err := yaml.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, &DefinitionMalformedError{Path: path, Reason: "failed to parse frontmatter", Err: err}
	}

	frontmatter, ok := toMapping(parsed)
	if !ok {
		return nil, malformed(path, "frontmatter must be a mapping")
	}

	skills, err := extractSkills(frontmatter)
	if err != nil {
		return nil, malformed(path, err.Error())
	}

	return &Definition{
		Path:           path,
		Frontmatter:    frontmatter,
		RawFrontmatter: raw,
		Body:           body,
		Skills:         skills,
	}, nil
}

// splitFrontmatter separates a document into its raw frontmatter and body.
// ok is false when the document does not open with a delimiter line, in which
// case body is the whole text.
func splitFrontmatter(text string) (frontmatter, body string, ok bool, err error) {
	lines := strings.SplitAfter(text, "\n")
	if strings.TrimRight(lines[0], "\r\n") != frontmatterDelimiter {
		return "", text, false, nil
	}

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontmatterDelimiter {
			return strings.Join(lines[1:i], ""), strings.Join(lines[i+1:], ""), true, nil
		}
	}

	return "", "", true, errUnterminatedFrontmatter
}

func toMapping(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case nil:
		return map[string]any{}, true
	case map[string]any:
		return v, true
	case map[any]any:
		converted := make(map[string]any, len(v))
		for key, item := range v {
			converted[fmt.Sprint(key)] = item
		}
		return converted, true
	default:
		return nil, false
	}
}

func extractSkills(frontmatter map[string]any) ([]string, error) {
	value, exists := frontmatter[skillsKey]
	if !exists || value == nil {
		return []string{}, nil
	}

	items, ok := value.([]any)
	if !ok {
		return nil, errors.New("'skills' frontmatter must be a sequence of strings")
	}

	skills := make([]string, 0, len(items))
	for _, item := range items {
		name, ok := item.(string)
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errors.New("'skills' entries must be non-empty strings")
		}
		skills = append(skills, name)
	}

	return skills, nil
}

func trimBlankLines(s string) string {
	return strings.Trim(s, "\r\n")
}
