package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grovekit/grove/internal/core"
	"github.com/grovekit/grove/pkg/models"
)

// =============================================================================
// Test helpers
// =============================================================================

// setupTestRepo initialises a git repository in dir with an initial commit.
// Returns the absolute path to the repository.
func setupTestRepo(t *testing.T, dir string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("creating test repo dir: %v", err)
	}

	cmds := [][]string{
		{"git", "init", "-b", "main"},
		{"git", "config", "user.name", "Test User"},
		{"git", "config", "user.email", "test@example.com"},
	}
	for _, args := range cmds {
		cmd := exec.Command(args[0], args[1:]...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("running %v: %v\n%s", args, err, out)
		}
	}

	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("# test\n"), 0o644); err != nil {
		t.Fatalf("writing README: %v", err)
	}
	for _, args := range [][]string{
		{"git", "add", "."},
		{"git", "commit", "-m", "initial commit"},
	} {
		cmd := exec.Command(args[0], args[1:]...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("running %v: %v\n%s", args, err, out)
		}
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		t.Fatalf("resolving abs path: %v", err)
	}
	return abs
}

// setupBareRemote creates a bare git repository in dir.
// Returns the absolute path to the bare repository.
func setupBareRemote(t *testing.T, dir string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("creating bare remote dir: %v", err)
	}

	cmd := exec.Command("git", "init", "--bare", "-b", "main")
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git init --bare: %v\n%s", err, out)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		t.Fatalf("resolving abs path: %v", err)
	}
	return abs
}

// gitRun runs a git command in the given directory and fails the test on error.
func gitRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v in %s: %v\n%s", args, dir, err, out)
	}
	return strings.TrimSpace(string(out))
}

// cloneFromBare clones a bare remote into dir, configures user, and returns
// the absolute path.
func cloneFromBare(t *testing.T, bare, dir string) string {
	t.Helper()
	cmd := exec.Command("git", "clone", bare, dir)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git clone: %v\n%s", err, out)
	}
	gitRun(t, dir, "config", "user.name", "Test User")
	gitRun(t, dir, "config", "user.email", "test@example.com")
	abs, err := filepath.Abs(dir)
	if err != nil {
		t.Fatalf("resolving abs path: %v", err)
	}
	return abs
}

// commitFile writes content to name in dir and commits it.
func commitFile(t *testing.T, dir, name, content, message string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	gitRun(t, dir, "add", name)
	gitRun(t, dir, "commit", "-m", message)
}

// memJournal is an in-memory core.QueueJournal so checkout and sync tests
// do not touch the filesystem for queue state.
type memJournal struct {
	entries map[string][]core.QueueLogEntry
}

func newMemJournal() *memJournal {
	return &memJournal{entries: make(map[string][]core.QueueLogEntry)}
}

func (j *memJournal) Append(project, branch string, entry core.QueueLogEntry) error {
	key := core.QueueKey(project, branch)
	j.entries[key] = append(j.entries[key], entry)
	return nil
}

func (j *memJournal) Replay(project, branch string) ([]core.QueueLogEntry, bool, error) {
	return j.entries[core.QueueKey(project, branch)], false, nil
}

func (j *memJournal) Compact(project, branch string, snapshot core.QueueSnapshot) error {
	j.entries[core.QueueKey(project, branch)] = []core.QueueLogEntry{{Op: core.OpSnapshot, Snapshot: &snapshot}}
	return nil
}

func (j *memJournal) Keys() ([]core.QueueKeyPair, error) { return nil, nil }

// testEnv bundles the wired services over a temp checkout root. The remote
// map seeds project remotes so primary checkouts clone from bare repos.
type testEnv struct {
	base      string
	cfg       *models.GlobalConfig
	resolver  *core.PathResolver
	git       *GitRunner
	locks     *core.KeyLocks
	queue     *core.TaskQueueService
	checkouts CheckoutManager
	sync      SyncEngine
}

func newTestEnv(t *testing.T, remotes map[string]string) *testEnv {
	t.Helper()

	base := t.TempDir()
	cfg := core.DefaultGlobalConfig(base)
	if remotes != nil {
		cfg.Remotes = remotes
	}
	cfg.SyncWorkers = 2

	env := &testEnv{
		base:     base,
		cfg:      cfg,
		resolver: core.NewPathResolver(cfg.RootDir, cfg.BranchMaxLength),
		git:      NewGitRunner(cfg.GitTimeout),
		locks:    core.NewKeyLocks(),
	}
	env.queue = core.NewTaskQueueService(newMemJournal(), env.locks, nil)
	env.checkouts = NewCheckoutManager(env.resolver, env.git, cfg, core.NewConfigManager(base), env.locks, env.queue, nil)
	env.sync = NewSyncEngine(env.resolver, env.git, env.checkouts, env.locks, nil, cfg.SyncWorkers)

	if err := env.checkouts.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return env
}

// configureGitUser sets the committer identity in a checkout so test merges
// can create commits.
func configureGitUser(t *testing.T, dir string) {
	t.Helper()
	gitRun(t, dir, "config", "user.name", "Test User")
	gitRun(t, dir, "config", "user.email", "test@example.com")
}
