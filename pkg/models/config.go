package models

import "time"

// GlobalConfig holds engine-wide settings loaded from .groveconfig.
type GlobalConfig struct {
	// RootDir is the hierarchical checkout root: checkouts live at
	// RootDir/<project>/<branch>.
	RootDir string

	// DefaultBranch is the branch used for a project's primary checkout
	// and as the base for new checkouts when no base is given.
	DefaultBranch string

	// Remotes maps project names to clone URLs. Projects without a remote
	// are initialised as fresh repositories on first checkout.
	Remotes map[string]string

	// SyncInterval is the period of the reconciliation sweep.
	SyncInterval time.Duration

	// SyncWorkers bounds how many (project, branch) pairs one sweep
	// reconciles concurrently.
	SyncWorkers int

	// GitTimeout bounds every individual git invocation.
	GitTimeout time.Duration

	// BranchMaxLength is the maximum accepted branch name length.
	BranchMaxLength int

	// IntakeDir is the directory watched for incoming work-item files.
	IntakeDir string

	// RetentionAge is how long an idle checkout is kept before the
	// cleanup sweep removes it. Zero disables retention cleanup.
	RetentionAge time.Duration
}

// ProjectConfig holds per-project overrides loaded from a .groverc file in
// the project's default-branch checkout.
type ProjectConfig struct {
	DefaultBranch string `yaml:"default_branch,omitempty"`
	RemoteURL     string `yaml:"remote_url,omitempty"`
}
