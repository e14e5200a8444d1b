package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests for real Operations implementation.
// These tests use actual git commands and run sequentially (NO t.Parallel()).

func TestGitOpsIntegration(t *testing.T) {
	// NO t.Parallel() - these tests run sequentially to avoid resource exhaustion
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	gitOps := NewOperations()
	ctx := context.Background()

	t.Run("GetCurrentBranch on main", func(t *testing.T) {
		dir := createTestGitRepo(t)
		assert.Equal(t, "main", gitOps.GetCurrentBranch(dir))
	})

	t.Run("GetCurrentBranch detached HEAD", func(t *testing.T) {
		dir := createTestGitRepo(t)
		runGitCmd(t, dir, "checkout", "HEAD~0")
		assert.Contains(t, gitOps.GetCurrentBranch(dir), "detached-")
	})

	t.Run("GetCurrentBranch non-git directory", func(t *testing.T) {
		assert.Equal(t, "unknown", gitOps.GetCurrentBranch(t.TempDir()))
	})

	t.Run("GetWorktreeRoot from subdirectory", func(t *testing.T) {
		dir := createTestGitRepo(t)
		subdir := filepath.Join(dir, "subdir")
		require.NoError(t, os.MkdirAll(subdir, 0755))
		assert.Equal(t, dir, resolve(t, gitOps.GetWorktreeRoot(subdir)))
	})

	t.Run("GetWorktreeRoot non-git directory", func(t *testing.T) {
		dir := t.TempDir()
		assert.Equal(t, dir, gitOps.GetWorktreeRoot(dir))
	})

	t.Run("GetGitDir", func(t *testing.T) {
		dir := createTestGitRepo(t)
		assert.Equal(t, filepath.Join(dir, ".git"), resolve(t, gitOps.GetGitDir(dir)))
		assert.Empty(t, gitOps.GetGitDir(t.TempDir()))
	})

	t.Run("ChangedFiles clean tree", func(t *testing.T) {
		dir := createTestGitRepo(t)
		files, err := gitOps.ChangedFiles(ctx, dir, "")
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	t.Run("ChangedFiles modified staged and untracked", func(t *testing.T) {
		dir := createTestGitRepo(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# Changed\n"), 0644))
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg", "staged.go"), []byte("package pkg\n"), 0644))
		runGitCmd(t, dir, "add", "pkg/staged.go")
		require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("new\n"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("*.log\n"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "debug.log"), []byte("x\n"), 0644))

		files, err := gitOps.ChangedFiles(ctx, dir, "HEAD")
		require.NoError(t, err)

		for i := range files {
			files[i] = resolve(t, filepath.Dir(files[i])) + string(filepath.Separator) + filepath.Base(files[i])
		}
		assert.Equal(t, []string{
			filepath.Join(dir, ".gitignore"),
			filepath.Join(dir, "README.md"),
			filepath.Join(dir, "new.txt"),
			filepath.Join(dir, "pkg", "staged.go"),
		}, files)
	})

	t.Run("ChangedFiles against earlier commit", func(t *testing.T) {
		dir := createTestGitRepo(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "second.txt"), []byte("2\n"), 0644))
		runGitCmd(t, dir, "add", "second.txt")
		runGitCmd(t, dir, "commit", "-m", "Second commit")

		files, err := gitOps.ChangedFiles(ctx, dir, "HEAD~1")
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, "second.txt", filepath.Base(files[0]))
	})

	t.Run("ChangedFiles bad base", func(t *testing.T) {
		dir := createTestGitRepo(t)
		_, err := gitOps.ChangedFiles(ctx, dir, "no-such-ref")
		assert.Error(t, err)
	})
}

func TestSetDefault(t *testing.T) {
	mock := NewMockGitOps()
	restore := SetDefault(mock)
	assert.Same(t, mock, Default())
	restore()
	assert.NotSame(t, mock, Default())
}

// Test helpers

func resolve(t *testing.T, p string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(p)
	require.NoError(t, err)
	return resolved
}

func createTestGitRepo(t *testing.T) string {
	t.Helper()
	dir := resolve(t, t.TempDir())

	// Initialize repo
	cmd := exec.Command("git", "init", "-b", "main")
	cmd.Dir = dir
	require.NoError(t, cmd.Run(), "git init failed")

	// Configure git identity
	runGitCmd(t, dir, "config", "user.email", "test@example.com")
	runGitCmd(t, dir, "config", "user.name", "Test User")

	// Create initial commit
	testFile := filepath.Join(dir, "README.md")
	require.NoError(t, os.WriteFile(testFile, []byte("# Test\n"), 0644))
	runGitCmd(t, dir, "add", "README.md")
	runGitCmd(t, dir, "commit", "-m", "Initial commit")

	return dir
}

func runGitCmd(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v failed: %s", args, string(output))
}
