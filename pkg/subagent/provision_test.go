package subagent

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTemplate(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "template")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ChatmodeFileName), []byte("# Test chatmode\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, WorkspaceFileName), []byte("{}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "notes.md"), []byte("notes\n"), 0o644))
	return dir
}

func provision(t *testing.T, pool *Pool, opts ProvisionOptions) *ProvisionResult {
	t.Helper()
	result, err := pool.Provision(context.Background(), opts)
	require.NoError(t, err)
	return result
}

func lock(t *testing.T, pool *Pool, numbers ...int) {
	t.Helper()
	for _, n := range numbers {
		require.NoError(t, os.WriteFile(pool.LockPath(pool.subagent(n)), nil, 0o644))
	}
}

func TestProvision_Single(t *testing.T) {
	pool := newTestPool(t)
	template := newTemplate(t)

	result := provision(t, pool, ProvisionOptions{Template: template, Count: 1})

	assert.Equal(t, []string{"subagent-1"}, names(result.Created))
	assert.Empty(t, result.SkippedExisting)
	assert.Empty(t, result.SkippedLocked)

	dir := filepath.Join(pool.Root(), "subagent-1")
	assert.FileExists(t, filepath.Join(dir, ChatmodeFileName))
	assert.FileExists(t, filepath.Join(dir, WorkspaceFileName))
	assert.FileExists(t, filepath.Join(dir, "nested", "notes.md"))
}

func TestProvision_Multiple(t *testing.T) {
	pool := newTestPool(t)

	result := provision(t, pool, ProvisionOptions{Template: newTemplate(t), Count: 3})

	assert.Equal(t, []string{"subagent-1", "subagent-2", "subagent-3"}, names(result.Created))
	for i := 1; i <= 3; i++ {
		assert.DirExists(t, filepath.Join(pool.Root(), Name(i)))
	}
}

func TestProvision_BuiltinTemplate(t *testing.T) {
	pool := newTestPool(t)

	provision(t, pool, ProvisionOptions{Count: 1})

	s, err := pool.Get(1)
	require.NoError(t, err)
	assert.FileExists(t, s.ChatmodePath())

	content, err := os.ReadFile(s.WorkspacePath())
	require.NoError(t, err)
	expected, err := DefaultWorkspace()
	require.NoError(t, err)
	assert.Equal(t, expected, content)

	info, err := os.Stat(s.WorkspacePath())
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0o200, "provisioned files must be writable")
}

func TestProvision_SkipExisting(t *testing.T) {
	pool := newTestPool(t)
	template := newTemplate(t)
	provision(t, pool, ProvisionOptions{Template: template, Count: 1})

	result := provision(t, pool, ProvisionOptions{Template: template, Count: 1})

	assert.Empty(t, result.Created)
	assert.Equal(t, []string{"subagent-1"}, names(result.SkippedExisting))
	assert.Empty(t, result.SkippedLocked)
}

func TestProvision_ForceRebuildsLocked(t *testing.T) {
	pool := newTestPool(t)
	template := newTemplate(t)
	provision(t, pool, ProvisionOptions{Template: template, Count: 1})
	lock(t, pool, 1)

	result := provision(t, pool, ProvisionOptions{Template: template, Count: 1, Force: true})

	assert.Equal(t, []string{"subagent-1", "subagent-2"}, names(result.Created))
	assert.Empty(t, result.SkippedExisting)
	assert.Equal(t, []string{"subagent-1"}, names(result.SkippedLocked))

	assert.DirExists(t, filepath.Join(pool.Root(), "subagent-2"))
	assert.NoFileExists(t, pool.LockPath(pool.subagent(1)))
}

func TestProvision_ForceRebuildsUnlocked(t *testing.T) {
	pool := newTestPool(t)
	template := newTemplate(t)
	provision(t, pool, ProvisionOptions{Template: template, Count: 1})

	marker := filepath.Join(pool.Root(), "subagent-1", "marker.txt")
	require.NoError(t, os.WriteFile(marker, []byte("should be deleted"), 0o644))

	result := provision(t, pool, ProvisionOptions{Template: template, Count: 1, Force: true})

	assert.Equal(t, []string{"subagent-1"}, names(result.Created))
	assert.Empty(t, result.SkippedExisting)
	assert.Empty(t, result.SkippedLocked)
	assert.NoFileExists(t, marker)
}

func TestProvision_DryRun(t *testing.T) {
	pool := newTestPool(t)

	result := provision(t, pool, ProvisionOptions{Template: newTemplate(t), Count: 2, DryRun: true})

	assert.Equal(t, []string{"subagent-1", "subagent-2"}, names(result.Created))
	assert.NoDirExists(t, pool.Root())
}

func TestProvision_DryRunForceKeepsLocks(t *testing.T) {
	pool := newTestPool(t)
	template := newTemplate(t)
	provision(t, pool, ProvisionOptions{Template: template, Count: 1})
	lock(t, pool, 1)

	result := provision(t, pool, ProvisionOptions{Template: template, Count: 1, Force: true, DryRun: true})

	assert.Equal(t, []string{"subagent-1", "subagent-2"}, names(result.Created))
	assert.FileExists(t, pool.LockPath(pool.subagent(1)))
	assert.NoDirExists(t, filepath.Join(pool.Root(), "subagent-2"))
}

func TestProvision_InvalidArguments(t *testing.T) {
	pool := newTestPool(t)

	_, err := pool.Provision(context.Background(), ProvisionOptions{Template: "/nonexistent/path", Count: 1})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "not a directory")

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = pool.Provision(context.Background(), ProvisionOptions{Template: file, Count: 1})
	assert.Contains(t, err.Error(), "not a directory")

	_, err = pool.Provision(context.Background(), ProvisionOptions{Template: newTemplate(t), Count: 0})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "positive integer")
}

func TestProvision_AdditionalWhenLocked(t *testing.T) {
	pool := newTestPool(t)
	template := newTemplate(t)
	provision(t, pool, ProvisionOptions{Template: template, Count: 2})
	lock(t, pool, 1, 2)

	result := provision(t, pool, ProvisionOptions{Template: template, Count: 2})

	assert.Equal(t, []string{"subagent-3", "subagent-4"}, names(result.Created))
	assert.Empty(t, result.SkippedExisting)
	assert.Equal(t, []string{"subagent-1", "subagent-2"}, names(result.SkippedLocked))
	assert.FileExists(t, pool.LockPath(pool.subagent(1)))
}

func TestProvision_PartialLocked(t *testing.T) {
	pool := newTestPool(t)
	template := newTemplate(t)
	provision(t, pool, ProvisionOptions{Template: template, Count: 3})
	lock(t, pool, 1, 3)

	result := provision(t, pool, ProvisionOptions{Template: template, Count: 2})

	assert.Equal(t, []string{"subagent-4"}, names(result.Created))
	assert.Equal(t, []string{"subagent-2"}, names(result.SkippedExisting))
	assert.Equal(t, []string{"subagent-1", "subagent-3"}, names(result.SkippedLocked))
}

func TestProvision_NumbersFollowHighest(t *testing.T) {
	pool := newTestPool(t)
	makeSubagents(t, pool, map[int]bool{5: true}, 5)

	result := provision(t, pool, ProvisionOptions{Template: newTemplate(t), Count: 1})

	assert.Equal(t, []string{"subagent-6"}, names(result.Created))
}

func TestProvision_ForceRemovalFailure(t *testing.T) {
	pool := newTestPool(t)
	template := newTemplate(t)
	provision(t, pool, ProvisionOptions{Template: template, Count: 1})

	pool.removeAll = func(path string) error {
		if strings.Contains(path, "subagent-1") {
			return errors.New("the process cannot access the file")
		}
		return os.RemoveAll(path)
	}

	_, err := pool.Provision(context.Background(), ProvisionOptions{Template: template, Count: 1, Force: true})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Regexp(t, `cannot overwrite subagent-1.*in use`, err.Error())
}
