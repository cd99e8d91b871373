package transpiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompose(t *testing.T) {
	tests := []struct {
		name        string
		frontmatter string
		body        string
		skillBodies []string
		expected    string
	}{
		{
			name:        "minimal",
			frontmatter: "description: X\n",
			body:        "\nHello.\n",
			expected:    "---\ndescription: X\n---\n\nHello.\n",
		},
		{
			name:        "skills merge",
			frontmatter: "description: X\nskills: [a, b]\n",
			body:        "Main.\n",
			skillBodies: []string{"A body.", "B body."},
			expected:    "---\ndescription: X\n---\n\nMain.\n\nA body.\n\nB body.\n",
		},
		{
			name:        "no sections",
			frontmatter: "description: X\n",
			body:        "\n\n",
			skillBodies: []string{"\n", ""},
			expected:    "---\ndescription: X\n---\n",
		},
		{
			name:        "empty body keeps skill sections",
			frontmatter: "description: X\n",
			body:        "",
			skillBodies: []string{"A body."},
			expected:    "---\ndescription: X\n---\n\nA body.\n",
		},
		{
			name:        "empty frontmatter",
			frontmatter: "",
			body:        "Body.",
			expected:    "---\n\n---\n\nBody.\n",
		},
		{
			name:        "blank lines around sections collapse to one",
			frontmatter: "\n\ndescription: X\n\n",
			body:        "\n\nMain.\n\n\n",
			skillBodies: []string{"\n\nA body.\n\n"},
			expected:    "---\ndescription: X\n---\n\nMain.\n\nA body.\n",
		},
		{
			name:        "duplicate skill bodies are kept",
			frontmatter: "description: X\n",
			body:        "Main.",
			skillBodies: []string{"A body.", "A body."},
			expected:    "---\ndescription: X\n---\n\nMain.\n\nA body.\n\nA body.\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Compose(tt.frontmatter, tt.body, tt.skillBodies))
		})
	}
}

func TestStripSkillsKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "inline list",
			input:    "description: X\nskills: [a, b]\nmodel: m\n",
			expected: "description: X\nmodel: m\n",
		},
		{
			name:     "block list",
			input:    "description: X\nskills:\n  - a\n  - b\nmodel: m\n",
			expected: "description: X\nmodel: m\n",
		},
		{
			name:     "block list at key indentation",
			input:    "skills:\n- a\n- b\nmodel: m\n",
			expected: "model: m\n",
		},
		{
			name:     "double quoted key",
			input:    "\"skills\": [a]\nmodel: m\n",
			expected: "model: m\n",
		},
		{
			name:     "single quoted key with spacing",
			input:    "'skills'  :  [a]\nmodel: m\n",
			expected: "model: m\n",
		},
		{
			name:     "indented key",
			input:    "  skills: [a]\nmodel: m\n",
			expected: "model: m\n",
		},
		{
			name:     "multi-line flow sequence",
			input:    "skills: [a,\n  b]\nmodel: m\n",
			expected: "model: m\n",
		},
		{
			name:     "blank line inside block list",
			input:    "skills:\n  - a\n\n  - b\nmodel: m\n",
			expected: "model: m\n",
		},
		{
			name:     "blank line after block list is kept",
			input:    "skills:\n  - a\n\nmodel: m\n",
			expected: "\nmodel: m\n",
		},
		{
			name:     "trailing key",
			input:    "model: m\nskills:\n  - a\n",
			expected: "model: m\n",
		},
		{
			name:     "comments and formatting preserved",
			input:    "# agent\ndescription:   Spaced   # note\nskills: [a]\ntools: [one,  two]\n",
			expected: "# agent\ndescription:   Spaced   # note\ntools: [one,  two]\n",
		},
		{
			name:     "similar keys untouched",
			input:    "skillset: x\nskills_extra: y\nmy_skills: z\n",
			expected: "skillset: x\nskills_extra: y\nmy_skills: z\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripSkillsKey(tt.input))
		})
	}
}

func TestCompose_NeverEmitsSkillsKey(t *testing.T) {
	sources := []string{
		"description: X\nskills: [a, b]\n",
		"description: X\nskills:\n  - a\n  - b\n",
		"description: X\n\"skills\": ['a', 'b']\n",
		"description: X\nskills :\n- a\n",
	}

	for _, source := range sources {
		output := Compose(source, "Body.", []string{"A.", "B."})
		frontmatter := strings.SplitN(output, "\n---\n", 2)[0]
		for _, line := range strings.Split(frontmatter, "\n") {
			trimmed := strings.TrimSpace(line)
			assert.False(t, strings.HasPrefix(trimmed, "skills"), "unexpected line %q in %q", line, output)
			assert.False(t, strings.HasPrefix(trimmed, "\"skills\""), "unexpected line %q in %q", line, output)
			assert.False(t, strings.HasPrefix(trimmed, "- "), "unexpected line %q in %q", line, output)
		}
		assert.True(t, strings.HasPrefix(output, "---\n"))
	}
}
