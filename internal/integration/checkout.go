package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/grovekit/grove/internal/core"
	"github.com/grovekit/grove/pkg/models"
)

// ActivityChecker reports whether a checkout currently has an active task.
// It is satisfied by the task queue service.
type ActivityChecker interface {
	HasActiveTask(project, branch string) bool
}

// CheckoutManager creates and removes checkouts under the configured root.
// Paths are always derived through the resolver; the manager never invents
// its own layout.
type CheckoutManager interface {
	Initialize() error
	ProjectExists(project string) bool
	ListProjects() ([]string, error)
	CreateCheckout(ctx context.Context, project, branch, baseBranch string) (*models.Checkout, error)
	RemoveCheckout(ctx context.Context, project, branch string, force bool) error
	ListCheckouts(ctx context.Context, project string) ([]models.Checkout, error)
	ListBranches(ctx context.Context, project string) (*models.BranchList, error)
	DefaultBranch(project string) string
}

type checkoutManager struct {
	resolver *core.PathResolver
	git      *GitRunner
	cfg      *models.GlobalConfig
	configs  core.ConfigManager
	locks    *core.KeyLocks
	activity ActivityChecker
	events   core.EventLogger
}

// NewCheckoutManager wires a CheckoutManager. activity and events may be nil
// when the caller does not track queue state or observability.
func NewCheckoutManager(resolver *core.PathResolver, git *GitRunner, cfg *models.GlobalConfig, configs core.ConfigManager, locks *core.KeyLocks, activity ActivityChecker, events core.EventLogger) CheckoutManager {
	return &checkoutManager{
		resolver: resolver,
		git:      git,
		cfg:      cfg,
		configs:  configs,
		locks:    locks,
		activity: activity,
		events:   events,
	}
}

// Initialize creates the checkout root and intake directories.
func (m *checkoutManager) Initialize() error {
	if err := os.MkdirAll(m.resolver.Root(), 0o750); err != nil {
		return fmt.Errorf("creating checkout root: %w", err)
	}
	if m.cfg.IntakeDir != "" {
		if err := os.MkdirAll(m.cfg.IntakeDir, 0o750); err != nil {
			return fmt.Errorf("creating intake directory: %w", err)
		}
	}
	return nil
}

// ProjectExists reports whether the project has a directory under the root.
func (m *checkoutManager) ProjectExists(project string) bool {
	info, err := os.Stat(m.resolver.ProjectDir(project))
	return err == nil && info.IsDir()
}

// ListProjects enumerates the project directories under the checkout root.
func (m *checkoutManager) ListProjects() ([]string, error) {
	entries, err := os.ReadDir(m.resolver.Root())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading checkout root: %w", err)
	}

	var projects []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			projects = append(projects, e.Name())
		}
	}
	sort.Strings(projects)
	return projects, nil
}

// DefaultBranch returns the project's default branch, honouring a .groverc
// override in the project's primary checkout when one exists.
func (m *checkoutManager) DefaultBranch(project string) string {
	branch := m.cfg.DefaultBranch
	primary := m.resolver.ResolvePath(project, branch)
	if pc, err := m.configs.LoadProjectConfig(primary); err == nil && pc != nil && pc.DefaultBranch != "" {
		branch = pc.DefaultBranch
	}
	return branch
}

// remoteURL returns the configured remote for a project, or "" when the
// project is local-only.
func (m *checkoutManager) remoteURL(project string) string {
	if url, ok := m.cfg.Remotes[project]; ok {
		return url
	}
	primary := m.resolver.ResolvePath(project, m.cfg.DefaultBranch)
	if pc, err := m.configs.LoadProjectConfig(primary); err == nil && pc != nil {
		return pc.RemoteURL
	}
	return ""
}

// CreateCheckout materializes the checkout for (project, branch). The
// project's default branch becomes the primary checkout (a clone, or a fresh
// repository when no remote is configured); every other branch becomes a
// linked worktree of the primary, branched from baseBranch (the default
// branch when empty). A failed materialization never leaves a partial
// directory behind.
func (m *checkoutManager) CreateCheckout(ctx context.Context, project, branch, baseBranch string) (*models.Checkout, error) {
	if project == "" {
		return nil, fmt.Errorf("project name must not be empty")
	}
	if v := m.resolver.ValidateBranchName(branch); !v.Valid {
		msg := strings.Join(v.Errors, "; ")
		if len(v.Suggestions) > 0 {
			msg += fmt.Sprintf(" (did you mean %q?)", v.Suggestions[0])
		}
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidBranchName, msg)
	}

	unlock := m.locks.Lock(project, branch)
	defer unlock()

	path := m.resolver.ResolvePath(project, branch)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrAlreadyExists, path)
	}

	defaultBranch := m.DefaultBranch(project)
	if baseBranch == "" {
		baseBranch = defaultBranch
	}
	var err error
	if branch == defaultBranch {
		err = m.createPrimary(ctx, project, branch, path)
	} else {
		err = m.createWorktree(ctx, project, branch, defaultBranch, baseBranch, path)
	}
	if err != nil {
		_ = os.RemoveAll(path)
		return nil, err
	}

	checkout := &models.Checkout{
		Project: project,
		Branch:  branch,
		Path:    path,
		Status:  models.CheckoutActive,
	}
	if info, statErr := os.Stat(path); statErr == nil {
		checkout.Created = info.ModTime()
	}
	m.logEvent("checkout.created", map[string]any{"project": project, "branch": branch, "path": path})
	return checkout, nil
}

func (m *checkoutManager) createPrimary(ctx context.Context, project, branch, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating project directory: %w", err)
	}

	if remote := m.remoteURL(project); remote != "" {
		result, err := m.git.Run(ctx, "", "clone", "--branch", branch, remote, path)
		if err != nil {
			return &models.CheckoutCreationError{Project: project, Branch: branch, Err: err}
		}
		if result.ExitCode != 0 {
			return &models.CheckoutCreationError{Project: project, Branch: branch, Output: result.Output()}
		}
		return nil
	}

	result, err := m.git.Run(ctx, "", "init", "-b", branch, path)
	if err != nil {
		return &models.CheckoutCreationError{Project: project, Branch: branch, Err: err}
	}
	if result.ExitCode != 0 {
		return &models.CheckoutCreationError{Project: project, Branch: branch, Output: result.Output()}
	}
	return nil
}

func (m *checkoutManager) createWorktree(ctx context.Context, project, branch, defaultBranch, baseBranch, path string) error {
	repoDir := m.resolver.ResolvePath(project, defaultBranch)
	if _, err := os.Stat(repoDir); err != nil {
		return fmt.Errorf("project %s has no %s checkout to branch from: create it first", project, defaultBranch)
	}

	var args []string
	if m.git.HasRef(ctx, repoDir, "refs/heads/"+branch) {
		args = []string{"worktree", "add", path, branch}
	} else {
		base := baseBranch
		if m.git.HasRef(ctx, repoDir, "refs/remotes/origin/"+baseBranch) {
			base = "origin/" + baseBranch
		}
		args = []string{"worktree", "add", "-b", branch, path, base}
	}

	result, err := m.git.Run(ctx, repoDir, args...)
	if err != nil {
		return &models.CheckoutCreationError{Project: project, Branch: branch, Err: err}
	}
	if result.ExitCode != 0 {
		return &models.CheckoutCreationError{Project: project, Branch: branch, Output: result.Output()}
	}
	return nil
}

// RemoveCheckout deletes the checkout for (project, branch). Dirty checkouts
// are refused unless force is set; a checkout whose queue has an active task
// is refused regardless of force.
func (m *checkoutManager) RemoveCheckout(ctx context.Context, project, branch string, force bool) error {
	path := m.resolver.ResolvePath(project, branch)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no checkout at %s", path)
	}

	// The busy check runs before the key lock is taken: the queue service
	// takes the same non-reentrant lock for HasActiveTask. A task started
	// between the check and the lock can still lose its checkout.
	if m.activity != nil && m.activity.HasActiveTask(project, branch) {
		return fmt.Errorf("%w: %s/%s", models.ErrCheckoutBusy, project, branch)
	}

	unlock := m.locks.Lock(project, branch)
	defer unlock()

	if !force {
		dirty, err := m.git.IsDirty(ctx, path)
		if err != nil {
			return fmt.Errorf("checking %s/%s for changes: %w", project, branch, err)
		}
		if dirty {
			return fmt.Errorf("%w: %s/%s (use force to remove anyway)", models.ErrDirtyCheckout, project, branch)
		}
	}

	defaultBranch := m.DefaultBranch(project)
	if branch == defaultBranch {
		if err := m.removePrimary(ctx, project, path); err != nil {
			return err
		}
	} else {
		m.removeWorktree(ctx, project, defaultBranch, path, force)
	}

	m.logEvent("checkout.removed", map[string]any{"project": project, "branch": branch, "forced": force})
	return nil
}

// removePrimary refuses to delete the primary checkout while linked
// worktrees still depend on its repository.
func (m *checkoutManager) removePrimary(ctx context.Context, project, path string) error {
	worktrees, err := m.git.Worktrees(ctx, path)
	if err == nil && len(worktrees) > 1 {
		return fmt.Errorf("project %s still has %d linked checkouts, remove them first", project, len(worktrees)-1)
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("removing checkout %s: %w", path, err)
	}
	return nil
}

func (m *checkoutManager) removeWorktree(ctx context.Context, project, defaultBranch, path string, force bool) {
	repoDir := m.resolver.ResolvePath(project, defaultBranch)

	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, path)

	result, err := m.git.Run(ctx, repoDir, args...)
	if err != nil || result.ExitCode != 0 {
		// Repository may be gone or the registration stale: delete the
		// directory and prune.
		_ = os.RemoveAll(path)
		_, _ = m.git.Run(ctx, repoDir, "worktree", "prune")
	}
}

// ListCheckouts returns the materialized checkouts of a project, cross-checked
// against the repository's worktree registrations. A directory without a
// matching registration still counts as a checkout; its branch is the
// directory name.
func (m *checkoutManager) ListCheckouts(ctx context.Context, project string) ([]models.Checkout, error) {
	projectDir := m.resolver.ProjectDir(project)
	entries, err := os.ReadDir(projectDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading project directory: %w", err)
	}

	registered := map[string]string{}
	primary := m.resolver.ResolvePath(project, m.DefaultBranch(project))
	if worktrees, wtErr := m.git.Worktrees(ctx, primary); wtErr == nil {
		for _, wt := range worktrees {
			registered[wt.Path] = wt.Branch
		}
	}

	var checkouts []models.Checkout
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		branch := e.Name()
		path := filepath.Join(projectDir, branch)
		if b, ok := registered[path]; ok && b != "" {
			branch = b
		}
		checkout := models.Checkout{
			Project: project,
			Branch:  branch,
			Path:    path,
			Status:  models.CheckoutActive,
		}
		if info, infoErr := e.Info(); infoErr == nil {
			checkout.Created = info.ModTime()
		}
		checkouts = append(checkouts, checkout)
	}
	sort.Slice(checkouts, func(i, j int) bool { return checkouts[i].Branch < checkouts[j].Branch })
	return checkouts, nil
}

// ListBranches splits a project's local branches into those with a checkout
// and those without one.
func (m *checkoutManager) ListBranches(ctx context.Context, project string) (*models.BranchList, error) {
	primary := m.resolver.ResolvePath(project, m.DefaultBranch(project))
	if _, err := os.Stat(primary); err != nil {
		return nil, fmt.Errorf("project %s has no primary checkout", project)
	}

	branches, err := m.git.Branches(ctx, primary)
	if err != nil {
		return nil, fmt.Errorf("listing branches for %s: %w", project, err)
	}

	checkouts, err := m.ListCheckouts(ctx, project)
	if err != nil {
		return nil, err
	}
	active := make(map[string]bool, len(checkouts))
	for _, c := range checkouts {
		active[c.Branch] = true
	}

	list := &models.BranchList{}
	for _, b := range branches {
		if active[b] {
			list.Active = append(list.Active, b)
		} else {
			list.Inactive = append(list.Inactive, b)
		}
	}
	return list, nil
}

func (m *checkoutManager) logEvent(eventType string, data map[string]any) {
	if m.events == nil {
		return
	}
	_ = m.events.LogEvent(eventType, data)
}
