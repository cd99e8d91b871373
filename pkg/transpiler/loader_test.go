package transpiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "SKILL.md")
	writeFile(t, path, `---
description: Example Agent
model: test-model
tools: [one, two]
skills:
  - " research "
  - analysis
---

interface Example {}
`)

	definition, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, definition.Path)
	assert.Equal(t, "Example Agent", definition.Frontmatter["description"])
	assert.Equal(t, []any{"one", "two"}, definition.Frontmatter["tools"])
	assert.Equal(t, []string{"research", "analysis"}, definition.Skills)
	assert.Equal(t, "description: Example Agent\nmodel: test-model\ntools: [one, two]\nskills:\n  - \" research \"\n  - analysis\n", definition.RawFrontmatter)
	assert.Equal(t, "\ninterface Example {}\n", definition.Body)
}

func TestLoad_SkillsAbsentOrNull(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"absent", "---\ndescription: X\n---\nBody\n"},
		{"null", "---\nskills:\n---\nBody\n"},
		{"explicit empty", "---\nskills: []\n---\nBody\n"},
		{"empty frontmatter", "---\n---\nBody\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "SKILL.md")
			writeFile(t, path, tt.content)

			definition, err := Load(path)
			require.NoError(t, err)
			assert.NotNil(t, definition.Skills)
			assert.Empty(t, definition.Skills)
			assert.Equal(t, "Body\n", definition.Body)
		})
	}
}

func TestLoad_ClosingDelimiterMayBeIndented(t *testing.T) {
	path := filepath.Join(t.TempDir(), "SKILL.md")
	writeFile(t, path, "---\ndescription: X\n  ---  \nBody")

	definition, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "description: X\n", definition.RawFrontmatter)
	assert.Equal(t, "Body", definition.Body)
}

func TestLoad_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "SKILL.md")

	_, err := Load(path)
	require.Error(t, err)

	var missing *DefinitionMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, path, missing.Path)
	assert.True(t, IsDefinitionMissing(err))
	assert.False(t, IsDefinitionMalformed(err))
}

func TestLoad_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
		reason  string
	}{
		{"empty file", "", "file is empty"},
		{"whitespace only", "  \n\t\n", "file is empty"},
		{"no opening delimiter", "description: X\n---\nBody\n", "must start with a YAML frontmatter block"},
		{"delimiter not at start", "\n---\ndescription: X\n---\nBody\n", "must start with a YAML frontmatter block"},
		{"no closing delimiter", "---\nfoo: 1\n\nNo closing.", "missing a closing '---' delimiter"},
		{"invalid yaml", "---\nfoo: [1, 2\n---\nBody\n", "failed to parse frontmatter"},
		{"scalar frontmatter", "---\njust a string\n---\nBody\n", "frontmatter must be a mapping"},
		{"sequence frontmatter", "---\n- a\n- b\n---\nBody\n", "frontmatter must be a mapping"},
		{"skills scalar", "---\nskills: research\n---\nBody\n", "must be a sequence of strings"},
		{"skills mapping", "---\nskills:\n  research: true\n---\nBody\n", "must be a sequence of strings"},
		{"skills non-string entry", "---\nskills: [research, 3]\n---\nBody\n", "must be non-empty strings"},
		{"skills empty entry", "---\nskills: [research, '  ']\n---\nBody\n", "must be non-empty strings"},
		{"skills nested sequence", "---\nskills: [[a]]\n---\nBody\n", "must be non-empty strings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "SKILL.md")
			writeFile(t, path, tt.content)

			_, err := Load(path)
			require.Error(t, err)

			var malformedErr *DefinitionMalformedError
			require.ErrorAs(t, err, &malformedErr)
			assert.Equal(t, path, malformedErr.Path)
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestSplitFrontmatter_Optional(t *testing.T) {
	frontmatter, body, ok, err := splitFrontmatter("# Research skill\n\nBody.\n")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, frontmatter)
	assert.Equal(t, "# Research skill\n\nBody.\n", body)
}

func TestSplitFrontmatter_CRLF(t *testing.T) {
	frontmatter, body, ok, err := splitFrontmatter("---\r\nname: x\r\n---\r\nBody\r\n")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "name: x\r\n", frontmatter)
	assert.Equal(t, "Body\r\n", body)
}
