package models

import "time"

// SyncStatus classifies the reconciliation state of a checkout against its
// remote tracking branch.
type SyncStatus string

const (
	SyncUnknown  SyncStatus = "unknown"
	SyncSynced   SyncStatus = "synced"
	SyncPending  SyncStatus = "pending"
	SyncConflict SyncStatus = "conflict"
	SyncError    SyncStatus = "error"
)

// SyncRecord is the full reconciliation result for one (project, branch)
// pair. Each sync cycle produces a complete replacement record; records are
// never partially updated.
type SyncRecord struct {
	Project          string     `json:"project" yaml:"project"`
	Branch           string     `json:"branch" yaml:"branch"`
	Status           SyncStatus `json:"status" yaml:"status"`
	Message          string     `json:"message,omitempty" yaml:"message,omitempty"`
	ConflictingFiles []string   `json:"conflicting_files,omitempty" yaml:"conflicting_files,omitempty"`
	LastSync         time.Time  `json:"last_sync" yaml:"last_sync"`
	NeedsAttention   bool       `json:"needs_attention" yaml:"needs_attention"`
}

// ProjectSyncStatus is the aggregate health of a project derived from its
// per-branch sync records. It is computed by callers, never stored.
type ProjectSyncStatus string

const (
	ProjectError     ProjectSyncStatus = "error"
	ProjectConflict  ProjectSyncStatus = "conflict"
	ProjectAttention ProjectSyncStatus = "attention"
	ProjectSynced    ProjectSyncStatus = "synced"
	ProjectPending   ProjectSyncStatus = "pending"
)

// ResolveStrategy selects how conflicting changes are reconciled.
type ResolveStrategy string

const (
	ResolveAutoMerge    ResolveStrategy = "auto-merge"
	ResolvePreferLocal  ResolveStrategy = "prefer-local"
	ResolvePreferRemote ResolveStrategy = "prefer-remote"
)

// ResolveResult reports the outcome of a conflict resolution attempt. The
// record always carries the remaining conflicting files when resolution did
// not fully succeed.
type ResolveResult struct {
	Success bool       `json:"success"`
	Record  SyncRecord `json:"record"`
}
