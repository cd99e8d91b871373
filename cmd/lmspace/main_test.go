package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lmspace/lmspace/pkg/config"
	"github.com/lmspace/lmspace/pkg/presenter"
)

type fakeEditor struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (e *fakeEditor) Open(_ context.Context, args ...string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, append([]string(nil), args...))
	return e.err
}

func captureOutput(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var output, errorOutput bytes.Buffer
	previous := presenter.SetDefault(presenter.NewWithOptions(&output, &errorOutput, presenter.ColorNever))
	t.Cleanup(func() { presenter.SetDefault(previous) })
	return &output, &errorOutput
}

func testSettings(t *testing.T) config.Settings {
	t.Helper()
	return config.Settings{
		SubagentRoot: filepath.Join(t.TempDir(), "agents"),
		LockName:     config.DefaultLockName,
		Editor:       config.DefaultEditor,
		PollInterval: 10 * time.Millisecond,
		FocusDelay:   0,
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
