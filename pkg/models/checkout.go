package models

import "time"

// CheckoutStatus represents the lifecycle state of a checkout.
type CheckoutStatus string

const (
	CheckoutInactive CheckoutStatus = "inactive"
	CheckoutActive   CheckoutStatus = "active"
	CheckoutRemoved  CheckoutStatus = "removed"
)

// Checkout is one working-directory instance of a single branch of a project.
// Its path is always derived from (project, branch); it is never stored
// independently.
type Checkout struct {
	Project string         `json:"project" yaml:"project"`
	Branch  string         `json:"branch" yaml:"branch"`
	Path    string         `json:"path" yaml:"path"`
	Status  CheckoutStatus `json:"status" yaml:"status"`
	Created time.Time      `json:"created,omitempty" yaml:"created,omitempty"`
}

// BranchList splits a project's branches into those with a materialized
// checkout and those known to the repository but not checked out.
type BranchList struct {
	Active   []string `json:"active" yaml:"active"`
	Inactive []string `json:"inactive" yaml:"inactive"`
}

// Project is a named repository root with a default branch. The remote URL
// is optional: projects without one are initialised as fresh repositories.
type Project struct {
	Name          string `json:"name" yaml:"name"`
	DefaultBranch string `json:"default_branch" yaml:"default_branch"`
	RemoteURL     string `json:"remote_url,omitempty" yaml:"remote_url,omitempty"`
}
