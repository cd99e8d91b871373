package presenter

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	presenter := New()
	assert.NotNil(t, presenter)
	assert.Equal(t, os.Stdout, presenter.output)
	assert.Equal(t, os.Stderr, presenter.errorOutput)
	assert.False(t, presenter.quiet)
}

func TestNewWithOptions(t *testing.T) {
	var output, errorOutput bytes.Buffer
	presenter := NewWithOptions(&output, &errorOutput, ColorNever)

	assert.Equal(t, &output, presenter.output)
	assert.Equal(t, &errorOutput, presenter.errorOutput)
	assert.Equal(t, ColorNever, presenter.colorMode)
}

func TestDetectColorMode(t *testing.T) {
	tests := []struct {
		name         string
		noColor      string
		lmspaceColor string
		expected     ColorMode
	}{
		{"NO_COLOR set", "1", "", ColorNever},
		{"LMSPACE_COLOR always", "", "always", ColorAlways},
		{"LMSPACE_COLOR force", "", "force", ColorAlways},
		{"LMSPACE_COLOR never", "", "never", ColorNever},
		{"LMSPACE_COLOR off", "", "off", ColorNever},
		{"LMSPACE_COLOR auto", "", "auto", ColorAuto},
		{"default", "", "", ColorAuto},
		{"invalid value", "", "invalid", ColorAuto},
		{"NO_COLOR wins", "1", "always", ColorNever},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", tt.noColor)
			t.Setenv("LMSPACE_COLOR", tt.lmspaceColor)

			assert.Equal(t, tt.expected, detectColorMode())
		})
	}
}

func TestError(t *testing.T) {
	var errorOutput bytes.Buffer
	presenter := NewWithOptions(nil, &errorOutput, ColorNever)

	err := errors.New("test error")
	presenter.Error(err, "test context")
	assert.Equal(t, "error: test context: test error\n", errorOutput.String())

	errorOutput.Reset()
	presenter.Error(err, "")
	assert.Equal(t, "error: test error\n", errorOutput.String())

	errorOutput.Reset()
	presenter.Error(nil, "context")
	assert.Empty(t, errorOutput.String())
}

func TestErrorIgnoresQuietMode(t *testing.T) {
	var errorOutput bytes.Buffer
	presenter := NewWithOptions(nil, &errorOutput, ColorNever)
	presenter.SetQuiet(true)

	presenter.Error(errors.New("boom"), "")
	assert.Contains(t, errorOutput.String(), "error: boom")
}

func TestSuccess(t *testing.T) {
	var output bytes.Buffer
	presenter := NewWithOptions(&output, nil, ColorNever)

	presenter.Success("Operation completed")

	result := output.String()
	assert.Contains(t, result, "✓")
	assert.Contains(t, result, "Operation completed")
}

func TestWarning(t *testing.T) {
	var output, errorOutput bytes.Buffer
	presenter := NewWithOptions(&output, &errorOutput, ColorNever)

	presenter.Warning("This is a warning")

	assert.Empty(t, output.String())
	assert.Contains(t, errorOutput.String(), "⚠ This is a warning")
}

func TestInfo(t *testing.T) {
	var output bytes.Buffer
	presenter := NewWithOptions(&output, nil, ColorNever)

	presenter.Info("Information message")

	assert.Equal(t, "Information message\n", output.String())
}

func TestQuietModeSilencesMessages(t *testing.T) {
	var output, errorOutput bytes.Buffer
	presenter := NewWithOptions(&output, &errorOutput, ColorNever)
	presenter.SetQuiet(true)

	presenter.Success("done")
	presenter.Warning("careful")
	presenter.Info("info")
	presenter.Section("Section")
	presenter.Table([]string{"A"}, [][]string{{"1"}})

	assert.Empty(t, output.String())
	assert.Empty(t, errorOutput.String())
}

func TestSection(t *testing.T) {
	var output bytes.Buffer
	presenter := NewWithOptions(&output, nil, ColorNever)

	presenter.Section("Test Section")

	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	require.Len(t, lines, 2)

	assert.Equal(t, "Test Section", lines[0])
	assert.Equal(t, strings.Repeat("-", len("Test Section")), lines[1])
}

func TestJSON(t *testing.T) {
	var output bytes.Buffer
	presenter := NewWithOptions(&output, nil, ColorNever)
	presenter.SetQuiet(true)

	err := presenter.JSON(map[string]any{"success": true, "path": "a<b>"})
	require.NoError(t, err)

	assert.Contains(t, output.String(), "a<b>")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(output.Bytes(), &decoded))
	assert.Equal(t, true, decoded["success"])
}

func TestJSON_UnsupportedValue(t *testing.T) {
	var output bytes.Buffer
	presenter := NewWithOptions(&output, nil, ColorNever)

	err := presenter.JSON(make(chan int))
	assert.Error(t, err)
}

func TestTable(t *testing.T) {
	var output bytes.Buffer
	presenter := NewWithOptions(&output, nil, ColorNever)

	presenter.Table([]string{"NAME", "LOCKED"}, [][]string{
		{"subagent-1", "yes"},
		{"subagent-10", "no"},
	})

	lines := strings.Split(strings.TrimRight(output.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "NAME         LOCKED", lines[0])
	assert.Equal(t, "subagent-1   yes", lines[1])
	assert.Equal(t, "subagent-10  no", lines[2])
}

func TestColorModeConfiguration(t *testing.T) {
	oldNoColor := color.NoColor
	t.Cleanup(func() { color.NoColor = oldNoColor })

	NewWithOptions(&bytes.Buffer{}, &bytes.Buffer{}, ColorNever)
	assert.True(t, color.NoColor)

	NewWithOptions(&bytes.Buffer{}, &bytes.Buffer{}, ColorAlways)
	assert.False(t, color.NoColor)
}

func TestGlobalFunctions(t *testing.T) {
	var output, errorOutput bytes.Buffer
	previous := SetDefault(NewWithOptions(&output, &errorOutput, ColorNever))
	defer SetDefault(previous)

	Error(errors.New("test error"), "error context")
	assert.Contains(t, errorOutput.String(), "error: error context: test error")

	Success("success message")
	assert.Contains(t, output.String(), "✓ success message")

	output.Reset()
	Info("info message")
	assert.Equal(t, "info message\n", output.String())

	output.Reset()
	Section("Test Section")
	assert.Contains(t, output.String(), "------------")

	output.Reset()
	require.NoError(t, JSON([]string{"a"}))
	assert.Equal(t, "[\n  \"a\"\n]\n", output.String())

	SetQuiet(true)
	assert.True(t, IsQuiet())

	output.Reset()
	Info("should not appear")
	assert.Empty(t, output.String())

	SetQuiet(false)
	assert.False(t, IsQuiet())
}
