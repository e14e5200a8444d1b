package git

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
)

// Operations defines the interface for git operations.
// This allows mocking git commands in tests.
type Operations interface {
	// GetCurrentBranch returns the current branch name.
	// For detached HEAD, returns "detached-{short-hash}".
	// Returns "unknown" if all git commands fail.
	GetCurrentBranch(projectPath string) string

	// GetWorktreeRoot returns the git worktree root path.
	// Falls back to projectPath if not a git repository.
	GetWorktreeRoot(projectPath string) string

	// GetGitDir returns the absolute git directory of the repository
	// containing projectPath, or "" outside a repository. For linked
	// worktrees this is the worktree's own directory holding HEAD.
	GetGitDir(projectPath string) string

	// ChangedFiles returns absolute paths of files that differ from base
	// (tracked changes, staged or not, plus untracked files not ignored
	// by git), sorted. base defaults to HEAD.
	ChangedFiles(ctx context.Context, projectPath, base string) ([]string, error)
}

// gitOps is the real implementation using exec.Command.
type gitOps struct{}

// NewOperations returns the default git operations implementation.
func NewOperations() Operations {
	return &gitOps{}
}

func (g *gitOps) GetCurrentBranch(projectPath string) string {
	cmd := exec.Command("git", "branch", "--show-current")
	cmd.Dir = projectPath
	output, err := cmd.Output()
	if err != nil || len(strings.TrimSpace(string(output))) == 0 {
		// Might be detached HEAD
		cmd = exec.Command("git", "rev-parse", "--short", "HEAD")
		cmd.Dir = projectPath
		output, err = cmd.Output()
		if err != nil {
			return "unknown"
		}
		return "detached-" + strings.TrimSpace(string(output))
	}
	return strings.TrimSpace(string(output))
}

func (g *gitOps) GetWorktreeRoot(projectPath string) string {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = projectPath
	output, err := cmd.Output()
	if err != nil {
		return projectPath
	}
	return strings.TrimSpace(string(output))
}

func (g *gitOps) GetGitDir(projectPath string) string {
	cmd := exec.Command("git", "rev-parse", "--absolute-git-dir")
	cmd.Dir = projectPath
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}

func (g *gitOps) ChangedFiles(ctx context.Context, projectPath, base string) ([]string, error) {
	if base == "" {
		base = "HEAD"
	}
	top := g.GetWorktreeRoot(projectPath)

	diff, err := g.lines(ctx, top, "diff", "--name-only", base)
	if err != nil {
		return nil, fmt.Errorf("git diff against %s failed: %w", base, err)
	}
	untracked, err := g.lines(ctx, top, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return nil, fmt.Errorf("git ls-files failed: %w", err)
	}

	files := make([]string, 0, len(diff)+len(untracked))
	for _, rel := range append(diff, untracked...) {
		files = append(files, filepath.Join(top, filepath.FromSlash(rel)))
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

// lines runs git in dir and returns the non-empty output lines.
func (g *gitOps) lines(ctx context.Context, dir string, args ...string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	var out []string
	for _, line := range strings.Split(string(output), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out, nil
}

// Package-level variable for dependency injection.
// Tests can replace this with a mock implementation.
var defaultGitOps Operations = NewOperations()

// Default returns the package-level implementation.
func Default() Operations { return defaultGitOps }

// SetDefault replaces the package-level implementation and returns a
// function restoring the previous one.
func SetDefault(ops Operations) (restore func()) {
	prev := defaultGitOps
	defaultGitOps = ops
	return func() { defaultGitOps = prev }
}
