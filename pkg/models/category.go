package models

// Category identifies the team that owns a class of work and the branch
// naming convention it uses.
type Category struct {
	Team   string `json:"team" yaml:"team"`
	Label  string `json:"label" yaml:"label"`
	Prefix string `json:"prefix" yaml:"prefix"`
}

// Suggestion is the outcome of categorizing a work item: a proposed branch
// name (unique against the caller-supplied existing names) and the owning
// category.
type Suggestion struct {
	BranchName string   `json:"branch_name"`
	Category   Category `json:"category"`
}
