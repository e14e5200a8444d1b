package git

import (
	"context"
	"fmt"
)

// MockGitOps is a mock implementation of Operations for testing.
type MockGitOps struct {
	CurrentBranch string
	WorktreeRoot  string
	GitDir        string
	Changed       []string
	ChangedError  error

	// ChangedBase records the base of the last ChangedFiles call.
	ChangedBase string
}

// NewMockGitOps creates a mock with sensible defaults.
func NewMockGitOps() *MockGitOps {
	return &MockGitOps{
		CurrentBranch: "main",
		WorktreeRoot:  "/tmp/test-repo",
		GitDir:        "/tmp/test-repo/.git",
	}
}

func (m *MockGitOps) GetCurrentBranch(projectPath string) string {
	return m.CurrentBranch
}

func (m *MockGitOps) GetWorktreeRoot(projectPath string) string {
	return m.WorktreeRoot
}

func (m *MockGitOps) GetGitDir(projectPath string) string {
	return m.GitDir
}

func (m *MockGitOps) ChangedFiles(ctx context.Context, projectPath, base string) ([]string, error) {
	m.ChangedBase = base
	if m.ChangedError != nil {
		return nil, m.ChangedError
	}
	return m.Changed, nil
}

// String returns a human-readable representation of the mock state.
func (m *MockGitOps) String() string {
	return fmt.Sprintf("MockGitOps{branch=%s, root=%s, changed=%d}",
		m.CurrentBranch, m.WorktreeRoot, len(m.Changed))
}
