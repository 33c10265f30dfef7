package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/codecoevoer/coevoer/diff_extractor"
	"github.com/codecoevoer/coevoer/pipeline/models"
)

// EmptyTreeHash is git's well-known hash of the empty tree, the baseline of single-commit mode.
const EmptyTreeHash = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// GitOperations handles git-related operations
type GitOperations struct {
	workingDir string
}

// NewGitOperations creates a new GitOperations instance
func NewGitOperations(workingDir string) *GitOperations {
	return &GitOperations{workingDir: workingDir}
}

func (g *GitOperations) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.workingDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("git %s: %w: %s", args[0], err, msg)
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return string(output), nil
}

// CheckGitRepo checks if the working directory is a git repository
func (g *GitOperations) CheckGitRepo(ctx context.Context) error {
	if _, err := g.run(ctx, "rev-parse", "--git-dir"); err != nil {
		return fmt.Errorf("not a git repository: %w", err)
	}
	return nil
}

// TopLevel returns the root of the working tree. Paths reported by git are relative to it.
func (g *GitOperations) TopLevel(ctx context.Context) (string, error) {
	output, err := g.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("not a git repository: %w", err)
	}
	return filepath.FromSlash(strings.TrimSpace(output)), nil
}

// HeadLogPath returns the reflog file git appends to on every commit, checkout and reset.
func (g *GitOperations) HeadLogPath(ctx context.Context) (string, error) {
	output, err := g.run(ctx, "rev-parse", "--git-path", "logs/HEAD")
	if err != nil {
		return "", err
	}
	logPath := strings.TrimSpace(output)
	if !filepath.IsAbs(logPath) {
		logPath = filepath.Join(g.workingDir, logPath)
	}
	return logPath, nil
}

// HeadCommit returns the hash and full message of HEAD.
func (g *GitOperations) HeadCommit(ctx context.Context) (string, string, error) {
	output, err := g.run(ctx, "log", "-n", "1", "--format=%H%n%B")
	if err != nil {
		return "", "", fmt.Errorf("failed to read latest commit: %w", err)
	}
	hash, message, _ := strings.Cut(output, "\n")
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return "", "", errors.New("repository has no commits")
	}
	return hash, strings.TrimSpace(message), nil
}

// ParentCommit returns the first parent of a commit, or "" for a root commit.
func (g *GitOperations) ParentCommit(ctx context.Context, hash string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--verify", "--quiet", hash+"^")
	cmd.Dir = g.workingDir
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", nil
		}
		return "", fmt.Errorf("failed to resolve parent of %s: %w", hash, err)
	}
	return strings.TrimSpace(string(output)), nil
}

// ChangedFiles lists the paths that differ between two tree-ish objects.
func (g *GitOperations) ChangedFiles(ctx context.Context, base, head string) ([]string, error) {
	output, err := g.run(ctx, "diff-tree", "-r", "--no-commit-id", "--name-only", base, head)
	if err != nil {
		return nil, fmt.Errorf("failed to list modified files: %w", err)
	}
	var files []string
	for _, line := range strings.Split(output, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// Diff returns the full unified diff between two tree-ish objects.
func (g *GitOperations) Diff(ctx context.Context, base, head string) (string, error) {
	output, err := g.run(ctx, "diff", base, head)
	if err != nil {
		return "", fmt.Errorf("failed to get git diff: %w", err)
	}
	return output, nil
}

// LatestCommit describes HEAD against its parent. Without a parent, or when compareWithPrevious is false,
// HEAD is compared with the empty tree so every file of the commit counts as added.
func (g *GitOperations) LatestCommit(ctx context.Context, compareWithPrevious bool) (*models.CommitChange, error) {
	hash, message, err := g.HeadCommit(ctx)
	if err != nil {
		return nil, err
	}

	base := EmptyTreeHash
	if compareWithPrevious {
		parent, err := g.ParentCommit(ctx, hash)
		if err != nil {
			return nil, err
		}
		if parent != "" {
			base = parent
		}
	}

	files, err := g.ChangedFiles(ctx, base, hash)
	if err != nil {
		return nil, err
	}
	fullDiff, err := g.Diff(ctx, base, hash)
	if err != nil {
		return nil, err
	}

	return &models.CommitChange{
		CommitHash:    hash,
		Message:       message,
		ModifiedFiles: files,
		DiffText:      diff_extractor.Extract(fullDiff, files),
	}, nil
}
