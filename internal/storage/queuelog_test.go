package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovekit/grove/internal/core"
	"github.com/grovekit/grove/pkg/models"
)

func sampleTask(id string) *models.Task {
	return &models.Task{
		ID:         id,
		Title:      "sample",
		Type:       models.TaskTypeChore,
		Priority:   models.PriorityMedium,
		Status:     models.TaskPending,
		Project:    "shop",
		Branch:     "main",
		EnqueuedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestAppendAndReplay(t *testing.T) {
	j := NewFileQueueJournal(t.TempDir())

	entries := []core.QueueLogEntry{
		{Op: core.OpEnqueue, Task: sampleTask("T-1"), Time: time.Now().UTC()},
		{Op: core.OpStart, TaskID: "T-1", Time: time.Now().UTC()},
		{Op: core.OpComplete, TaskID: "T-1", Success: true, Time: time.Now().UTC()},
	}
	for _, e := range entries {
		if err := j.Append("shop", "main", e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, recovered, err := j.Replay("shop", "main")
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if recovered {
		t.Error("recovered = true for a healthy log")
	}
	if len(got) != 3 {
		t.Fatalf("replayed %d entries, want 3", len(got))
	}
	if got[0].Op != core.OpEnqueue || got[0].Task == nil || got[0].Task.ID != "T-1" {
		t.Errorf("entry 0 = %+v", got[0])
	}
	if got[2].Op != core.OpComplete || !got[2].Success {
		t.Errorf("entry 2 = %+v", got[2])
	}
}

func TestReplay_MissingFileIsEmpty(t *testing.T) {
	j := NewFileQueueJournal(t.TempDir())

	entries, recovered, err := j.Replay("shop", "main")
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if recovered {
		t.Error("recovered = true for a missing log")
	}
	if len(entries) != 0 {
		t.Errorf("replayed %d entries from missing file", len(entries))
	}
}

func TestReplay_CorruptLogSelfHeals(t *testing.T) {
	base := t.TempDir()
	j := NewFileQueueJournal(base)

	if err := j.Append("shop", "main", core.QueueLogEntry{Op: core.OpEnqueue, Task: sampleTask("T-1")}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	// Corrupt the log with a garbage line.
	path := filepath.Join(base, "shop", "main.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatalf("opening log: %v", err)
	}
	if _, err := f.WriteString("{not json\n"); err != nil {
		t.Fatalf("corrupting log: %v", err)
	}
	_ = f.Close()

	entries, recovered, err := j.Replay("shop", "main")
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if !recovered {
		t.Error("recovered = false for a corrupt log")
	}
	if len(entries) != 0 {
		t.Errorf("corrupt log replayed %d entries, want 0", len(entries))
	}

	// The file was truncated: future appends start clean.
	if err := j.Append("shop", "main", core.QueueLogEntry{Op: core.OpEnqueue, Task: sampleTask("T-2")}); err != nil {
		t.Fatalf("Append after heal: %v", err)
	}
	entries, recovered, err = j.Replay("shop", "main")
	if err != nil || recovered {
		t.Fatalf("Replay after heal: err=%v recovered=%v", err, recovered)
	}
	if len(entries) != 1 || entries[0].Task.ID != "T-2" {
		t.Errorf("entries after heal = %+v", entries)
	}
}

func TestCompact(t *testing.T) {
	j := NewFileQueueJournal(t.TempDir())

	for i := 0; i < 5; i++ {
		if err := j.Append("shop", "main", core.QueueLogEntry{Op: core.OpEnqueue, Task: sampleTask("T-1")}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	snapshot := core.QueueSnapshot{
		Pending:        []models.Task{*sampleTask("T-9")},
		CompletedCount: 4,
		FailedCount:    1,
	}
	if err := j.Compact("shop", "main", snapshot); err != nil {
		t.Fatalf("Compact: %v", err)
	}

	entries, recovered, err := j.Replay("shop", "main")
	if err != nil || recovered {
		t.Fatalf("Replay: err=%v recovered=%v", err, recovered)
	}
	if len(entries) != 1 {
		t.Fatalf("replayed %d entries after compaction, want 1", len(entries))
	}
	got := entries[0]
	if got.Op != core.OpSnapshot || got.Snapshot == nil {
		t.Fatalf("entry = %+v, want snapshot", got)
	}
	if len(got.Snapshot.Pending) != 1 || got.Snapshot.Pending[0].ID != "T-9" {
		t.Errorf("snapshot pending = %+v", got.Snapshot.Pending)
	}
	if got.Snapshot.CompletedCount != 4 || got.Snapshot.FailedCount != 1 {
		t.Errorf("snapshot counts = %+v", got.Snapshot)
	}
}

func TestKeys(t *testing.T) {
	j := NewFileQueueJournal(t.TempDir())

	if keys, err := j.Keys(); err != nil || len(keys) != 0 {
		t.Fatalf("Keys on empty dir = %v, %v", keys, err)
	}

	pairs := []core.QueueKeyPair{
		{Project: "shop", Branch: "main"},
		{Project: "shop", Branch: "feat-cart"},
		{Project: "api", Branch: "main"},
	}
	for _, p := range pairs {
		if err := j.Append(p.Project, p.Branch, core.QueueLogEntry{Op: core.OpEnqueue, Task: sampleTask("T-1")}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	keys, err := j.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != len(pairs) {
		t.Fatalf("Keys returned %d pairs, want %d", len(keys), len(pairs))
	}
	found := make(map[core.QueueKeyPair]bool)
	for _, k := range keys {
		found[k] = true
	}
	for _, p := range pairs {
		if !found[p] {
			t.Errorf("missing key %+v", p)
		}
	}
}
