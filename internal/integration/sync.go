package integration

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/grovekit/grove/internal/core"
	"github.com/grovekit/grove/pkg/models"
)

// SyncEngine reconciles checkouts against their remote tracking branches and
// keeps the latest SyncRecord per (project, branch). Each reconciliation
// produces a complete replacement record.
type SyncEngine interface {
	SyncOne(ctx context.Context, project, branch string) models.SyncRecord
	SyncAll(ctx context.Context) ([]models.SyncRecord, error)
	ResolveConflicts(ctx context.Context, project, branch string, strategy models.ResolveStrategy) (*models.ResolveResult, error)
	Records(project string) []models.SyncRecord
	AllRecords() []models.SyncRecord
}

type syncEngine struct {
	resolver  *core.PathResolver
	git       *GitRunner
	checkouts CheckoutManager
	locks     *core.KeyLocks
	events    core.EventLogger
	workers   int

	mu      sync.RWMutex
	records map[string]models.SyncRecord
}

// NewSyncEngine wires a SyncEngine. workers bounds the parallelism of
// SyncAll; values <= 0 fall back to 1.
func NewSyncEngine(resolver *core.PathResolver, git *GitRunner, checkouts CheckoutManager, locks *core.KeyLocks, events core.EventLogger, workers int) SyncEngine {
	if workers <= 0 {
		workers = 1
	}
	return &syncEngine{
		resolver:  resolver,
		git:       git,
		checkouts: checkouts,
		locks:     locks,
		events:    events,
		workers:   workers,
		records:   make(map[string]models.SyncRecord),
	}
}

// SyncOne reconciles one checkout. Failures never surface as errors: they
// become ERROR records carrying the tool's verbatim diagnostics.
func (s *syncEngine) SyncOne(ctx context.Context, project, branch string) models.SyncRecord {
	unlock := s.locks.Lock(project, branch)
	record := s.reconcile(ctx, project, branch)
	unlock()

	s.store(record)
	s.logEvent("sync.completed", map[string]any{
		"project": project,
		"branch":  branch,
		"status":  string(record.Status),
	})
	return record
}

// SyncAll reconciles every checkout of every project with bounded
// parallelism. One checkout's failure never stops the others; failures are
// reported through their records.
func (s *syncEngine) SyncAll(ctx context.Context) ([]models.SyncRecord, error) {
	projects, err := s.checkouts.ListProjects()
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	type target struct{ project, branch string }
	var targets []target
	for _, project := range projects {
		checkouts, listErr := s.checkouts.ListCheckouts(ctx, project)
		if listErr != nil {
			return nil, fmt.Errorf("listing checkouts for %s: %w", project, listErr)
		}
		for _, c := range checkouts {
			targets = append(targets, target{project: c.Project, branch: c.Branch})
		}
	}

	records := make([]models.SyncRecord, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, t := range targets {
		i, t := i, t
		g.Go(func() error {
			records[i] = s.SyncOne(gctx, t.project, t.branch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// reconcile computes the new record for one checkout. Callers hold the key
// lock.
func (s *syncEngine) reconcile(ctx context.Context, project, branch string) models.SyncRecord {
	record := models.SyncRecord{
		Project:  project,
		Branch:   branch,
		LastSync: time.Now(),
	}

	path := s.resolver.ResolvePath(project, branch)

	remotes, err := s.git.Run(ctx, path, "remote")
	if err != nil {
		return s.errorRecord(record, err.Error())
	}
	if remotes.ExitCode != 0 {
		return s.errorRecord(record, remotes.Output())
	}
	if strings.TrimSpace(remotes.Stdout) == "" {
		record.Status = models.SyncSynced
		record.Message = "no remote configured"
		return record
	}

	fetch, err := s.git.Run(ctx, path, "fetch", "origin")
	if err != nil {
		return s.errorRecord(record, err.Error())
	}
	if fetch.ExitCode != 0 {
		return s.errorRecord(record, fetch.Output())
	}

	upstream := "origin/" + branch
	if !s.git.HasRef(ctx, path, "refs/remotes/"+upstream) {
		record.Status = models.SyncSynced
		record.Message = "no remote tracking branch"
		return record
	}

	ahead, behind, err := s.git.AheadBehind(ctx, path, upstream)
	if err != nil {
		return s.errorRecord(record, err.Error())
	}

	if behind == 0 {
		if ahead > 0 {
			record.Status = models.SyncPending
			record.Message = fmt.Sprintf("%d commit(s) ahead of %s", ahead, upstream)
		} else {
			record.Status = models.SyncSynced
		}
		return record
	}

	return s.integrate(ctx, path, upstream, ahead, record)
}

// integrate brings remote commits into the checkout: fast-forward when the
// branch has not diverged, otherwise a merge. A merge that stops on
// conflicts is aborted so the checkout never keeps conflict markers.
func (s *syncEngine) integrate(ctx context.Context, path, upstream string, ahead int, record models.SyncRecord) models.SyncRecord {
	if ahead == 0 {
		ff, err := s.git.Run(ctx, path, "merge", "--ff-only", upstream)
		if err != nil {
			return s.errorRecord(record, err.Error())
		}
		if ff.ExitCode == 0 {
			record.Status = models.SyncSynced
			record.Message = "fast-forwarded to " + upstream
			return record
		}
	}

	merge, err := s.git.Run(ctx, path, "merge", "--no-edit", upstream)
	if err != nil {
		return s.errorRecord(record, err.Error())
	}
	if merge.ExitCode == 0 {
		record.Status = models.SyncSynced
		record.Message = "merged " + upstream
		return record
	}

	files, err := s.git.ConflictingFiles(ctx, path)
	if err != nil {
		return s.errorRecord(record, err.Error())
	}
	if len(files) > 0 {
		_, _ = s.git.Run(ctx, path, "merge", "--abort")
		record.Status = models.SyncConflict
		record.Message = fmt.Sprintf("%d file(s) conflict with %s", len(files), upstream)
		record.ConflictingFiles = files
		record.NeedsAttention = true
		return record
	}

	return s.errorRecord(record, merge.Output())
}

// ResolveConflicts retries the merge with the chosen strategy. prefer-local
// and prefer-remote delegate to git's ours/theirs resolution; auto-merge
// retries the plain merge and keeps only the files git itself could not
// reconcile.
func (s *syncEngine) ResolveConflicts(ctx context.Context, project, branch string, strategy models.ResolveStrategy) (*models.ResolveResult, error) {
	var args []string
	switch strategy {
	case models.ResolvePreferLocal:
		args = []string{"merge", "--no-edit", "-X", "ours"}
	case models.ResolvePreferRemote:
		args = []string{"merge", "--no-edit", "-X", "theirs"}
	case models.ResolveAutoMerge:
		args = []string{"merge", "--no-edit"}
	default:
		return nil, fmt.Errorf("unknown resolve strategy %q", strategy)
	}

	unlock := s.locks.Lock(project, branch)
	defer unlock()

	record := models.SyncRecord{
		Project:  project,
		Branch:   branch,
		LastSync: time.Now(),
	}
	path := s.resolver.ResolvePath(project, branch)
	upstream := "origin/" + branch

	if !s.git.HasRef(ctx, path, "refs/remotes/"+upstream) {
		return nil, fmt.Errorf("%s/%s has no remote tracking branch to resolve against", project, branch)
	}

	merge, err := s.git.Run(ctx, path, append(args, upstream)...)
	if err != nil {
		return nil, fmt.Errorf("resolving %s/%s: %w", project, branch, err)
	}

	if merge.ExitCode == 0 {
		record.Status = models.SyncSynced
		record.Message = fmt.Sprintf("resolved with %s", strategy)
		s.store(record)
		s.logEvent("sync.resolved", map[string]any{"project": project, "branch": branch, "strategy": string(strategy)})
		return &models.ResolveResult{Success: true, Record: record}, nil
	}

	files, filesErr := s.git.ConflictingFiles(ctx, path)
	_, _ = s.git.Run(ctx, path, "merge", "--abort")
	if filesErr != nil {
		return nil, fmt.Errorf("resolving %s/%s: %w", project, branch, filesErr)
	}

	// A merge that failed without leaving conflicted paths (dirty worktree,
	// unrelated histories) is a tool failure, not a conflict.
	if len(files) == 0 {
		record = s.errorRecord(record, merge.Output())
	} else {
		record.Status = models.SyncConflict
		record.Message = fmt.Sprintf("%s could not resolve %d file(s)", strategy, len(files))
		record.ConflictingFiles = files
		record.NeedsAttention = true
	}
	s.store(record)
	return &models.ResolveResult{Success: false, Record: record}, nil
}

// Records returns the latest records for one project, ordered by branch.
func (s *syncEngine) Records(project string) []models.SyncRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []models.SyncRecord
	for _, r := range s.records {
		if r.Project == project {
			records = append(records, r)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Branch < records[j].Branch })
	return records
}

// AllRecords returns every stored record, ordered by project then branch.
func (s *syncEngine) AllRecords() []models.SyncRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]models.SyncRecord, 0, len(s.records))
	for _, r := range s.records {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Project != records[j].Project {
			return records[i].Project < records[j].Project
		}
		return records[i].Branch < records[j].Branch
	})
	return records
}

func (s *syncEngine) errorRecord(record models.SyncRecord, output string) models.SyncRecord {
	record.Status = models.SyncError
	record.Message = strings.TrimSpace(output)
	record.NeedsAttention = true
	return record
}

func (s *syncEngine) store(record models.SyncRecord) {
	s.mu.Lock()
	s.records[core.QueueKey(record.Project, record.Branch)] = record
	s.mu.Unlock()
}

func (s *syncEngine) logEvent(eventType string, data map[string]any) {
	if s.events == nil {
		return
	}
	_ = s.events.LogEvent(eventType, data)
}
