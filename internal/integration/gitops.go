// Package integration contains the services that drive external tools and
// the filesystem: the git adapter, the checkout manager, the sync engine,
// and the work-item intake watcher.
package integration

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// defaultGitTimeout bounds a git invocation when no timeout is configured.
const defaultGitTimeout = 2 * time.Minute

// GitResult captures the outcome of one git invocation. Callers branch on
// ExitCode; Stdout and Stderr are preserved verbatim for diagnostics and
// are only ever parsed inside this file.
type GitResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Output returns the combined trimmed output, preferring stderr since git
// writes diagnostics there.
func (r *GitResult) Output() string {
	if s := strings.TrimSpace(r.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(r.Stdout)
}

// GitRunner invokes the git CLI with a bounded timeout per command. It is
// the single place where git output is turned into structured results; no
// other component parses tool text.
type GitRunner struct {
	timeout time.Duration
}

// NewGitRunner creates a GitRunner. timeout <= 0 selects the default.
func NewGitRunner(timeout time.Duration) *GitRunner {
	if timeout <= 0 {
		timeout = defaultGitTimeout
	}
	return &GitRunner{timeout: timeout}
}

// Run executes `git args...` in dir. A non-zero exit is not an error: it is
// reported through the result. The returned error covers start failures and
// timeouts only.
func (g *GitRunner) Run(ctx context.Context, dir string, args ...string) (*GitResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &GitResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return result, fmt.Errorf("git %s timed out after %s: %w", strings.Join(args, " "), g.timeout, ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("running git %s: %w", strings.Join(args, " "), err)
	}
	return result, nil
}

// WorktreeInfo is one entry of a repository's worktree registration list.
type WorktreeInfo struct {
	Path   string
	Branch string
}

// Worktrees lists the worktrees registered with the repository at repoDir
// by parsing the porcelain output of `git worktree list`.
func (g *GitRunner) Worktrees(ctx context.Context, repoDir string) ([]WorktreeInfo, error) {
	result, err := g.Run(ctx, repoDir, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, fmt.Errorf("git worktree list failed: %s", result.Output())
	}

	var worktrees []WorktreeInfo
	for _, block := range strings.Split(strings.TrimSpace(result.Stdout), "\n\n") {
		if block == "" {
			continue
		}
		var wt WorktreeInfo
		for _, line := range strings.Split(block, "\n") {
			line = strings.TrimSpace(line)
			switch {
			case strings.HasPrefix(line, "worktree "):
				wt.Path = strings.TrimPrefix(line, "worktree ")
			case strings.HasPrefix(line, "branch refs/heads/"):
				wt.Branch = strings.TrimPrefix(line, "branch refs/heads/")
			}
		}
		if wt.Path != "" {
			worktrees = append(worktrees, wt)
		}
	}
	return worktrees, nil
}

// Branches lists the local branch names of the repository at repoDir.
func (g *GitRunner) Branches(ctx context.Context, repoDir string) ([]string, error) {
	result, err := g.Run(ctx, repoDir, "for-each-ref", "--format=%(refname:short)", "refs/heads")
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, fmt.Errorf("git for-each-ref failed: %s", result.Output())
	}

	var branches []string
	for _, line := range strings.Split(result.Stdout, "\n") {
		if b := strings.TrimSpace(line); b != "" {
			branches = append(branches, b)
		}
	}
	return branches, nil
}

// IsDirty reports whether the working directory at dir has uncommitted
// changes (including untracked files).
func (g *GitRunner) IsDirty(ctx context.Context, dir string) (bool, error) {
	result, err := g.Run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	if result.ExitCode != 0 {
		return false, fmt.Errorf("git status failed: %s", result.Output())
	}
	return strings.TrimSpace(result.Stdout) != "", nil
}

// HasRef reports whether ref resolves in the repository at dir.
func (g *GitRunner) HasRef(ctx context.Context, dir, ref string) bool {
	result, err := g.Run(ctx, dir, "rev-parse", "--verify", "--quiet", ref)
	return err == nil && result.ExitCode == 0
}

// AheadBehind counts how many commits HEAD is ahead of and behind the given
// upstream ref.
func (g *GitRunner) AheadBehind(ctx context.Context, dir, upstream string) (ahead, behind int, err error) {
	result, err := g.Run(ctx, dir, "rev-list", "--left-right", "--count", "HEAD..."+upstream)
	if err != nil {
		return 0, 0, err
	}
	if result.ExitCode != 0 {
		return 0, 0, fmt.Errorf("git rev-list failed: %s", result.Output())
	}

	fields := strings.Fields(result.Stdout)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("unexpected rev-list output %q", strings.TrimSpace(result.Stdout))
	}
	ahead, err = strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("parsing ahead count: %w", err)
	}
	behind, err = strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("parsing behind count: %w", err)
	}
	return ahead, behind, nil
}

// ConflictingFiles lists the paths currently in conflicted state at dir.
func (g *GitRunner) ConflictingFiles(ctx context.Context, dir string) ([]string, error) {
	result, err := g.Run(ctx, dir, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, fmt.Errorf("git diff failed: %s", result.Output())
	}

	var files []string
	for _, line := range strings.Split(result.Stdout, "\n") {
		if f := strings.TrimSpace(line); f != "" {
			files = append(files, f)
		}
	}
	return files, nil
}
