package models

import "time"

// TaskType represents the kind of work a task involves.
type TaskType string

const (
	TaskTypeFeature TaskType = "feature"
	TaskTypeBug     TaskType = "bug"
	TaskTypeChore   TaskType = "chore"
)

// TaskStatus represents the current queue state of a task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskActive    TaskStatus = "active"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Priority represents the urgency of a task. Priorities are ordered:
// critical > high > medium > low.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Priorities lists all priorities from most to least urgent.
var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

// Rank returns the ordering rank of a priority: lower is more urgent.
// Unknown priorities rank below low.
func (p Priority) Rank() int {
	for i, known := range Priorities {
		if p == known {
			return i
		}
	}
	return len(Priorities)
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	return p.Rank() < len(Priorities)
}

// Task is a unit of work bound to exactly one checkout, identified by the
// (project, branch) pair it was enqueued against.
type Task struct {
	ID         string     `json:"id" yaml:"id"`
	Title      string     `json:"title" yaml:"title"`
	Type       TaskType   `json:"type" yaml:"type"`
	Priority   Priority   `json:"priority" yaml:"priority"`
	Status     TaskStatus `json:"status" yaml:"status"`
	Project    string     `json:"project" yaml:"project"`
	Branch     string     `json:"branch" yaml:"branch"`
	EnqueuedAt time.Time  `json:"enqueued_at" yaml:"enqueued_at"`
}

// QueueStats summarises the state of a single (project, branch) queue.
type QueueStats struct {
	PendingCount   int `json:"pending_count"`
	ActiveCount    int `json:"active_count"`
	CompletedCount int `json:"completed_count"`
	FailedCount    int `json:"failed_count"`
}
