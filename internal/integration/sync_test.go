package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/grovekit/grove/pkg/models"
)

// seedRemote creates a bare remote with an initial commit on main and
// returns its path.
func seedRemote(t *testing.T, files map[string]string) string {
	t.Helper()
	bare := setupBareRemote(t, filepath.Join(t.TempDir(), "remote"))
	seed := cloneFromBare(t, bare, filepath.Join(t.TempDir(), "seed"))
	for name, content := range files {
		commitFile(t, seed, name, content, "add "+name)
	}
	gitRun(t, seed, "push", "origin", "main")
	return bare
}

// pushRemoteChange commits a file to the remote's main through a scratch
// clone.
func pushRemoteChange(t *testing.T, bare, name, content string) {
	t.Helper()
	scratch := cloneFromBare(t, bare, filepath.Join(t.TempDir(), "scratch"))
	commitFile(t, scratch, name, content, "remote change to "+name)
	gitRun(t, scratch, "push", "origin", "main")
}

func createSyncedCheckout(t *testing.T, env *testEnv, project string) *models.Checkout {
	t.Helper()
	checkout, err := env.checkouts.CreateCheckout(context.Background(), project, "main", "")
	if err != nil {
		t.Fatalf("CreateCheckout: %v", err)
	}
	configureGitUser(t, checkout.Path)
	return checkout
}

func TestSyncOne_UpToDate(t *testing.T) {
	bare := seedRemote(t, map[string]string{"a.txt": "a"})
	env := newTestEnv(t, map[string]string{"shop": bare})
	createSyncedCheckout(t, env, "shop")

	record := env.sync.SyncOne(context.Background(), "shop", "main")
	if record.Status != models.SyncSynced {
		t.Errorf("status = %s (%s), want synced", record.Status, record.Message)
	}
	if record.NeedsAttention {
		t.Error("synced record flagged for attention")
	}
	if record.LastSync.IsZero() {
		t.Error("LastSync not set")
	}
}

func TestSyncOne_NoRemoteIsSynced(t *testing.T) {
	env := newTestEnv(t, nil)
	if _, err := env.checkouts.CreateCheckout(context.Background(), "shop", "main", ""); err != nil {
		t.Fatalf("CreateCheckout: %v", err)
	}

	record := env.sync.SyncOne(context.Background(), "shop", "main")
	if record.Status != models.SyncSynced {
		t.Errorf("status = %s, want synced for local-only checkout", record.Status)
	}
	if record.Message != "no remote configured" {
		t.Errorf("message = %q", record.Message)
	}
}

func TestSyncOne_NoTrackingBranchIsSynced(t *testing.T) {
	bare := seedRemote(t, map[string]string{"a.txt": "a"})
	env := newTestEnv(t, map[string]string{"shop": bare})
	primary := createSyncedCheckout(t, env, "shop")
	commitFile(t, primary.Path, "b.txt", "b", "enable worktrees")

	if _, err := env.checkouts.CreateCheckout(context.Background(), "shop", "feat-cart", ""); err != nil {
		t.Fatalf("creating feature checkout: %v", err)
	}

	record := env.sync.SyncOne(context.Background(), "shop", "feat-cart")
	if record.Status != models.SyncSynced {
		t.Errorf("status = %s (%s), want synced", record.Status, record.Message)
	}
	if record.Message != "no remote tracking branch" {
		t.Errorf("message = %q", record.Message)
	}
}

func TestSyncOne_AheadOnlyIsPending(t *testing.T) {
	bare := seedRemote(t, map[string]string{"a.txt": "a"})
	env := newTestEnv(t, map[string]string{"shop": bare})
	checkout := createSyncedCheckout(t, env, "shop")
	commitFile(t, checkout.Path, "b.txt", "b", "local work")

	record := env.sync.SyncOne(context.Background(), "shop", "main")
	if record.Status != models.SyncPending {
		t.Errorf("status = %s (%s), want pending", record.Status, record.Message)
	}
	if record.NeedsAttention {
		t.Error("pending record flagged for attention")
	}
	// Local commits are never pushed by sync.
	if got := gitRun(t, checkout.Path, "rev-list", "--count", "origin/main..HEAD"); got != "1" {
		t.Errorf("local commits ahead = %s, want 1", got)
	}
}

func TestSyncOne_BehindFastForwards(t *testing.T) {
	bare := seedRemote(t, map[string]string{"a.txt": "a"})
	env := newTestEnv(t, map[string]string{"shop": bare})
	checkout := createSyncedCheckout(t, env, "shop")

	pushRemoteChange(t, bare, "b.txt", "b")

	record := env.sync.SyncOne(context.Background(), "shop", "main")
	if record.Status != models.SyncSynced {
		t.Errorf("status = %s (%s), want synced", record.Status, record.Message)
	}
	if _, err := os.Stat(filepath.Join(checkout.Path, "b.txt")); err != nil {
		t.Errorf("remote change not integrated: %v", err)
	}
}

func TestSyncOne_DivergedNonConflictingMerges(t *testing.T) {
	bare := seedRemote(t, map[string]string{"a.txt": "a"})
	env := newTestEnv(t, map[string]string{"shop": bare})
	checkout := createSyncedCheckout(t, env, "shop")

	commitFile(t, checkout.Path, "local.txt", "local", "local work")
	pushRemoteChange(t, bare, "remote.txt", "remote")

	record := env.sync.SyncOne(context.Background(), "shop", "main")
	if record.Status != models.SyncSynced {
		t.Errorf("status = %s (%s), want synced after merge", record.Status, record.Message)
	}
	if _, err := os.Stat(filepath.Join(checkout.Path, "remote.txt")); err != nil {
		t.Errorf("remote change not merged: %v", err)
	}
	if _, err := os.Stat(filepath.Join(checkout.Path, "local.txt")); err != nil {
		t.Errorf("local change lost: %v", err)
	}
}

func TestSyncOne_ConflictReportsFilesAndAborts(t *testing.T) {
	bare := seedRemote(t, map[string]string{"shared.txt": "base\n"})
	env := newTestEnv(t, map[string]string{"shop": bare})
	checkout := createSyncedCheckout(t, env, "shop")

	commitFile(t, checkout.Path, "shared.txt", "local\n", "local change")
	pushRemoteChange(t, bare, "shared.txt", "remote\n")

	record := env.sync.SyncOne(context.Background(), "shop", "main")
	if record.Status != models.SyncConflict {
		t.Fatalf("status = %s (%s), want conflict", record.Status, record.Message)
	}
	if !record.NeedsAttention {
		t.Error("conflict record not flagged for attention")
	}
	if len(record.ConflictingFiles) != 1 || record.ConflictingFiles[0] != "shared.txt" {
		t.Errorf("conflicting files = %v, want [shared.txt]", record.ConflictingFiles)
	}

	// The merge was aborted: no conflict markers left in the worktree.
	data, err := os.ReadFile(filepath.Join(checkout.Path, "shared.txt"))
	if err != nil {
		t.Fatalf("reading shared.txt: %v", err)
	}
	if string(data) != "local\n" {
		t.Errorf("worktree content = %q, want aborted back to local", data)
	}
	if gitRun(t, checkout.Path, "status", "--porcelain") != "" {
		t.Error("worktree left dirty after aborted merge")
	}
}

func TestSyncOne_FetchFailureIsError(t *testing.T) {
	bare := seedRemote(t, map[string]string{"a.txt": "a"})
	env := newTestEnv(t, map[string]string{"shop": bare})
	checkout := createSyncedCheckout(t, env, "shop")

	// Point the remote somewhere that does not exist.
	gitRun(t, checkout.Path, "remote", "set-url", "origin", filepath.Join(t.TempDir(), "gone.git"))

	record := env.sync.SyncOne(context.Background(), "shop", "main")
	if record.Status != models.SyncError {
		t.Fatalf("status = %s, want error", record.Status)
	}
	if !record.NeedsAttention {
		t.Error("error record not flagged for attention")
	}
	if record.Message == "" {
		t.Error("error record lost the tool diagnostics")
	}
}

func TestSyncAll_FailuresAreIsolated(t *testing.T) {
	bareA := seedRemote(t, map[string]string{"a.txt": "a"})
	bareB := seedRemote(t, map[string]string{"b.txt": "b"})
	env := newTestEnv(t, map[string]string{"alpha": bareA, "beta": bareB})

	createSyncedCheckout(t, env, "alpha")
	broken := createSyncedCheckout(t, env, "beta")
	gitRun(t, broken.Path, "remote", "set-url", "origin", filepath.Join(t.TempDir(), "gone.git"))

	records, err := env.sync.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %+v, want 2", records)
	}

	byProject := map[string]models.SyncRecord{}
	for _, r := range records {
		byProject[r.Project] = r
	}
	if byProject["alpha"].Status != models.SyncSynced {
		t.Errorf("alpha = %s, want synced despite beta failing", byProject["alpha"].Status)
	}
	if byProject["beta"].Status != models.SyncError {
		t.Errorf("beta = %s, want error", byProject["beta"].Status)
	}

	// Stored records feed the status registry.
	if got := env.sync.AllRecords(); len(got) != 2 {
		t.Errorf("AllRecords = %+v", got)
	}
	if got := env.sync.Records("alpha"); len(got) != 1 || got[0].Branch != "main" {
		t.Errorf("Records(alpha) = %+v", got)
	}
}

func TestResolveConflicts_PreferLocal(t *testing.T) {
	bare := seedRemote(t, map[string]string{"shared.txt": "base\n"})
	env := newTestEnv(t, map[string]string{"shop": bare})
	checkout := createSyncedCheckout(t, env, "shop")

	commitFile(t, checkout.Path, "shared.txt", "local\n", "local change")
	pushRemoteChange(t, bare, "shared.txt", "remote\n")

	if record := env.sync.SyncOne(context.Background(), "shop", "main"); record.Status != models.SyncConflict {
		t.Fatalf("setup: status = %s, want conflict", record.Status)
	}

	result, err := env.sync.ResolveConflicts(context.Background(), "shop", "main", models.ResolvePreferLocal)
	if err != nil {
		t.Fatalf("ResolveConflicts: %v", err)
	}
	if !result.Success {
		t.Fatalf("resolution failed: %+v", result.Record)
	}

	data, _ := os.ReadFile(filepath.Join(checkout.Path, "shared.txt"))
	if string(data) != "local\n" {
		t.Errorf("content = %q, want local version kept", data)
	}

	// The checkout now syncs clean.
	if record := env.sync.SyncOne(context.Background(), "shop", "main"); record.Status == models.SyncConflict {
		t.Errorf("still conflicted after resolution: %+v", record)
	}
}

func TestResolveConflicts_PreferRemote(t *testing.T) {
	bare := seedRemote(t, map[string]string{"shared.txt": "base\n"})
	env := newTestEnv(t, map[string]string{"shop": bare})
	checkout := createSyncedCheckout(t, env, "shop")

	commitFile(t, checkout.Path, "shared.txt", "local\n", "local change")
	pushRemoteChange(t, bare, "shared.txt", "remote\n")

	if record := env.sync.SyncOne(context.Background(), "shop", "main"); record.Status != models.SyncConflict {
		t.Fatalf("setup: status = %s, want conflict", record.Status)
	}

	result, err := env.sync.ResolveConflicts(context.Background(), "shop", "main", models.ResolvePreferRemote)
	if err != nil {
		t.Fatalf("ResolveConflicts: %v", err)
	}
	if !result.Success {
		t.Fatalf("resolution failed: %+v", result.Record)
	}

	data, _ := os.ReadFile(filepath.Join(checkout.Path, "shared.txt"))
	if string(data) != "remote\n" {
		t.Errorf("content = %q, want remote version taken", data)
	}
}

func TestResolveConflicts_NonConflictFailureIsError(t *testing.T) {
	bare := seedRemote(t, map[string]string{"shared.txt": "base\n"})
	env := newTestEnv(t, map[string]string{"shop": bare})
	checkout := createSyncedCheckout(t, env, "shop")

	commitFile(t, checkout.Path, "shared.txt", "local\n", "local change")
	pushRemoteChange(t, bare, "shared.txt", "remote\n")

	if record := env.sync.SyncOne(context.Background(), "shop", "main"); record.Status != models.SyncConflict {
		t.Fatalf("setup: status = %s, want conflict", record.Status)
	}

	// An uncommitted change makes the merge refuse before any path
	// conflicts, so there is nothing to resolve.
	if err := os.WriteFile(filepath.Join(checkout.Path, "shared.txt"), []byte("wip\n"), 0o644); err != nil {
		t.Fatalf("dirtying worktree: %v", err)
	}

	result, err := env.sync.ResolveConflicts(context.Background(), "shop", "main", models.ResolveAutoMerge)
	if err != nil {
		t.Fatalf("ResolveConflicts: %v", err)
	}
	if result.Success {
		t.Fatal("resolution reported success on a refused merge")
	}
	if result.Record.Status != models.SyncError {
		t.Errorf("status = %s (%s), want error when no files conflicted", result.Record.Status, result.Record.Message)
	}
	if result.Record.Message == "" {
		t.Error("error record lost the merge diagnostics")
	}
	if len(result.Record.ConflictingFiles) != 0 {
		t.Errorf("conflicting files = %v, want none", result.Record.ConflictingFiles)
	}
}

func TestResolveConflicts_UnknownStrategy(t *testing.T) {
	env := newTestEnv(t, nil)

	if _, err := env.sync.ResolveConflicts(context.Background(), "shop", "main", "newest-wins"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}
