package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/grovekit/grove/pkg/models"
)

// defaultCompactEvery is how many journal appends a queue accumulates
// before its log is rewritten as a single snapshot.
const defaultCompactEvery = 256

// QueueOp identifies a queue journal entry type.
type QueueOp string

const (
	OpEnqueue  QueueOp = "enqueue"
	OpStart    QueueOp = "start"
	OpComplete QueueOp = "complete"
	OpRemove   QueueOp = "remove"
	OpSnapshot QueueOp = "snapshot"
)

// QueueSnapshot is the compacted form of a queue's full state.
type QueueSnapshot struct {
	Pending        []models.Task `json:"pending"`
	Active         *models.Task  `json:"active,omitempty"`
	CompletedCount int           `json:"completed_count"`
	FailedCount    int           `json:"failed_count"`
}

// QueueLogEntry is one record in a queue's durable journal.
type QueueLogEntry struct {
	Op       QueueOp        `json:"op"`
	Task     *models.Task   `json:"task,omitempty"`
	TaskID   string         `json:"task_id,omitempty"`
	Success  bool           `json:"success,omitempty"`
	Snapshot *QueueSnapshot `json:"snapshot,omitempty"`
	Time     time.Time      `json:"time"`
}

// QueueKeyPair identifies one (project, branch) queue.
type QueueKeyPair struct {
	Project string
	Branch  string
}

// QueueJournal is the durable log behind the queue service. Implementations
// must treat a missing or unreadable log as empty (self-healing read):
// Replay reports recovered=true when it discarded a corrupt log.
type QueueJournal interface {
	Append(project, branch string, entry QueueLogEntry) error
	Replay(project, branch string) (entries []QueueLogEntry, recovered bool, err error)
	Compact(project, branch string, snapshot QueueSnapshot) error
	Keys() ([]QueueKeyPair, error)
}

// EventLogger records orchestration events. It mirrors the observability
// event log so core does not import that package directly.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}

// branchQueue is the in-memory state of one (project, branch) queue.
type branchQueue struct {
	buckets   map[models.Priority][]models.Task // pending, FIFO per priority
	active    *models.Task
	completed int
	failed    int
	appends   int // journal entries since last compaction
	loaded    bool
}

func newBranchQueue() *branchQueue {
	return &branchQueue{buckets: make(map[models.Priority][]models.Task)}
}

// TaskQueueService maintains one ordered queue of tasks per (project,
// branch) key and enforces at-most-one-active-task-per-checkout. It is
// constructed once at process start and passed to all callers; mutating
// operations are serialized per key through the shared lock registry.
type TaskQueueService struct {
	mu           sync.Mutex
	queues       map[string]*branchQueue
	locks        *KeyLocks
	journal      QueueJournal
	events       EventLogger
	compactEvery int
}

// NewTaskQueueService creates a queue service backed by the given journal.
// events may be nil.
func NewTaskQueueService(journal QueueJournal, locks *KeyLocks, events EventLogger) *TaskQueueService {
	return &TaskQueueService{
		queues:       make(map[string]*branchQueue),
		locks:        locks,
		journal:      journal,
		events:       events,
		compactEvery: defaultCompactEvery,
	}
}

// Enqueue appends a task to the queue for (project, branch), creating the
// queue on first use. Task IDs must be unique among the key's pending and
// active tasks.
func (s *TaskQueueService) Enqueue(project, branch, taskID, title string, taskType models.TaskType, priority models.Priority) error {
	if taskID == "" {
		return fmt.Errorf("enqueueing task: ID must not be empty")
	}
	if !priority.Valid() {
		return fmt.Errorf("enqueueing task %s: unknown priority %q", taskID, priority)
	}

	unlock := s.locks.Lock(project, branch)
	defer unlock()

	q, err := s.load(project, branch)
	if err != nil {
		return fmt.Errorf("enqueueing task %s: %w", taskID, err)
	}

	if q.active != nil && q.active.ID == taskID {
		return fmt.Errorf("enqueueing task %s: %w", taskID, models.ErrDuplicateTask)
	}
	for _, bucket := range q.buckets {
		for _, t := range bucket {
			if t.ID == taskID {
				return fmt.Errorf("enqueueing task %s: %w", taskID, models.ErrDuplicateTask)
			}
		}
	}

	task := models.Task{
		ID:         taskID,
		Title:      title,
		Type:       taskType,
		Priority:   priority,
		Status:     models.TaskPending,
		Project:    project,
		Branch:     branch,
		EnqueuedAt: time.Now().UTC(),
	}

	// Journal first: in-memory state changes only after the entry is
	// durable, so a failed append leaves the queue untouched.
	if err := s.journal.Append(project, branch, QueueLogEntry{
		Op: OpEnqueue, Task: &task, Time: task.EnqueuedAt,
	}); err != nil {
		return fmt.Errorf("enqueueing task %s: journal: %w", taskID, err)
	}
	q.buckets[priority] = append(q.buckets[priority], task)
	s.bumpAppends(project, branch, q)

	s.logEvent("task.enqueued", map[string]any{
		"project": project, "branch": branch, "task": taskID, "priority": string(priority),
	})
	return nil
}

// StartNext starts the head of the highest non-empty priority bucket and
// returns it. If a task is already active for the key, that task is
// returned unchanged (idempotent). An empty queue returns nil.
func (s *TaskQueueService) StartNext(project, branch string) (*models.Task, error) {
	unlock := s.locks.Lock(project, branch)
	defer unlock()

	q, err := s.load(project, branch)
	if err != nil {
		return nil, fmt.Errorf("starting next task for %s: %w", QueueKey(project, branch), err)
	}

	if q.active != nil {
		active := *q.active
		return &active, nil
	}

	task, ok := q.peekHead()
	if !ok {
		return nil, nil
	}

	if err := s.journal.Append(project, branch, QueueLogEntry{
		Op: OpStart, TaskID: task.ID, Time: time.Now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("starting task %s: journal: %w", task.ID, err)
	}
	q.popHead()
	task.Status = models.TaskActive
	q.active = &task
	s.bumpAppends(project, branch, q)

	s.logEvent("task.started", map[string]any{
		"project": project, "branch": branch, "task": task.ID,
	})
	started := task
	return &started, nil
}

// Complete transitions the active task to completed or failed, freeing the
// key for StartNext.
func (s *TaskQueueService) Complete(project, branch, taskID string, success bool) error {
	unlock := s.locks.Lock(project, branch)
	defer unlock()

	q, err := s.load(project, branch)
	if err != nil {
		return fmt.Errorf("completing task %s: %w", taskID, err)
	}

	if q.active == nil || q.active.ID != taskID {
		return fmt.Errorf("completing task %s: task is not active on %s", taskID, QueueKey(project, branch))
	}

	if err := s.journal.Append(project, branch, QueueLogEntry{
		Op: OpComplete, TaskID: taskID, Success: success, Time: time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("completing task %s: journal: %w", taskID, err)
	}
	q.active = nil
	if success {
		q.completed++
	} else {
		q.failed++
	}
	s.bumpAppends(project, branch, q)

	s.logEvent("task.completed", map[string]any{
		"project": project, "branch": branch, "task": taskID, "success": success,
	})
	return nil
}

// Remove deletes a task regardless of its current status. Removing the
// active task frees the key; the removal is counted as a failure for stats
// purposes only when the task was active.
func (s *TaskQueueService) Remove(project, branch, taskID string) error {
	unlock := s.locks.Lock(project, branch)
	defer unlock()

	q, err := s.load(project, branch)
	if err != nil {
		return fmt.Errorf("removing task %s: %w", taskID, err)
	}

	wasActive := q.active != nil && q.active.ID == taskID
	pendingPrio := models.Priority("")
	pendingIdx := -1
	if !wasActive {
	search:
		for prio, bucket := range q.buckets {
			for i, t := range bucket {
				if t.ID == taskID {
					pendingPrio, pendingIdx = prio, i
					break search
				}
			}
		}
		if pendingIdx < 0 {
			return fmt.Errorf("removing task %s: not found on %s", taskID, QueueKey(project, branch))
		}
	}

	if err := s.journal.Append(project, branch, QueueLogEntry{
		Op: OpRemove, TaskID: taskID, Time: time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("removing task %s: journal: %w", taskID, err)
	}
	if wasActive {
		q.active = nil
		q.failed++
	} else {
		bucket := q.buckets[pendingPrio]
		q.buckets[pendingPrio] = append(bucket[:pendingIdx:pendingIdx], bucket[pendingIdx+1:]...)
	}
	s.bumpAppends(project, branch, q)

	s.logEvent("task.removed", map[string]any{
		"project": project, "branch": branch, "task": taskID,
	})
	return nil
}

// Stats reports the queue counts for (project, branch).
func (s *TaskQueueService) Stats(project, branch string) (models.QueueStats, error) {
	unlock := s.locks.Lock(project, branch)
	defer unlock()

	q, err := s.load(project, branch)
	if err != nil {
		return models.QueueStats{}, fmt.Errorf("reading stats for %s: %w", QueueKey(project, branch), err)
	}

	stats := models.QueueStats{
		CompletedCount: q.completed,
		FailedCount:    q.failed,
	}
	if q.active != nil {
		stats.ActiveCount = 1
	}
	for _, bucket := range q.buckets {
		stats.PendingCount += len(bucket)
	}
	return stats, nil
}

// HasActiveTask reports whether (project, branch) currently has an active
// task. The checkout manager consults this before removing a checkout.
func (s *TaskQueueService) HasActiveTask(project, branch string) bool {
	unlock := s.locks.Lock(project, branch)
	defer unlock()

	q, err := s.load(project, branch)
	if err != nil {
		return false
	}
	return q.active != nil
}

// Recover replays every known queue journal. Corrupt or missing logs are
// treated as empty queues; recovery is logged, never surfaced.
func (s *TaskQueueService) Recover() error {
	keys, err := s.journal.Keys()
	if err != nil {
		return fmt.Errorf("recovering queues: %w", err)
	}
	for _, key := range keys {
		unlock := s.locks.Lock(key.Project, key.Branch)
		if _, loadErr := s.load(key.Project, key.Branch); loadErr != nil {
			unlock()
			return fmt.Errorf("recovering queue %s: %w", QueueKey(key.Project, key.Branch), loadErr)
		}
		unlock()
	}
	return nil
}

// peekHead returns the head of the highest non-empty priority bucket
// without removing it.
func (q *branchQueue) peekHead() (models.Task, bool) {
	for _, prio := range models.Priorities {
		if bucket := q.buckets[prio]; len(bucket) > 0 {
			return bucket[0], true
		}
	}
	return models.Task{}, false
}

// popHead removes and returns the head of the highest non-empty priority
// bucket.
func (q *branchQueue) popHead() (models.Task, bool) {
	for _, prio := range models.Priorities {
		bucket := q.buckets[prio]
		if len(bucket) == 0 {
			continue
		}
		task := bucket[0]
		q.buckets[prio] = bucket[1:]
		return task, true
	}
	return models.Task{}, false
}

// load returns the in-memory queue for the key, replaying its journal on
// first access. Callers must hold the key lock.
func (s *TaskQueueService) load(project, branch string) (*branchQueue, error) {
	key := QueueKey(project, branch)

	s.mu.Lock()
	q, ok := s.queues[key]
	if !ok {
		q = newBranchQueue()
		s.queues[key] = q
	}
	s.mu.Unlock()

	if q.loaded {
		return q, nil
	}

	entries, recovered, err := s.journal.Replay(project, branch)
	if err != nil {
		return nil, fmt.Errorf("replaying journal: %w", err)
	}
	for _, e := range entries {
		q.apply(e)
	}
	q.loaded = true

	if recovered {
		s.logEvent("queue.recovered", map[string]any{
			"project": project, "branch": branch,
		})
	}
	return q, nil
}

// apply replays one journal entry onto the queue state. Entries that no
// longer make sense (e.g. completing a task that is not active) are skipped:
// the journal is advisory history, not a strict transaction log.
func (q *branchQueue) apply(e QueueLogEntry) {
	switch e.Op {
	case OpSnapshot:
		if e.Snapshot == nil {
			return
		}
		q.buckets = make(map[models.Priority][]models.Task)
		for _, t := range e.Snapshot.Pending {
			q.buckets[t.Priority] = append(q.buckets[t.Priority], t)
		}
		q.active = nil
		if e.Snapshot.Active != nil {
			active := *e.Snapshot.Active
			q.active = &active
		}
		q.completed = e.Snapshot.CompletedCount
		q.failed = e.Snapshot.FailedCount
	case OpEnqueue:
		if e.Task != nil {
			task := *e.Task
			task.Status = models.TaskPending
			q.buckets[task.Priority] = append(q.buckets[task.Priority], task)
		}
	case OpStart:
		if q.active != nil {
			return
		}
		for prio, bucket := range q.buckets {
			for i, t := range bucket {
				if t.ID == e.TaskID {
					t.Status = models.TaskActive
					q.active = &t
					q.buckets[prio] = append(bucket[:i:i], bucket[i+1:]...)
					return
				}
			}
		}
	case OpComplete:
		if q.active != nil && q.active.ID == e.TaskID {
			q.active = nil
			if e.Success {
				q.completed++
			} else {
				q.failed++
			}
		}
	case OpRemove:
		if q.active != nil && q.active.ID == e.TaskID {
			q.active = nil
			q.failed++
			return
		}
		for prio, bucket := range q.buckets {
			for i, t := range bucket {
				if t.ID == e.TaskID {
					q.buckets[prio] = append(bucket[:i:i], bucket[i+1:]...)
					return
				}
			}
		}
	}
}

// bumpAppends counts a journal append and compacts the log once the
// threshold is reached. Compaction failures are logged and otherwise
// ignored: the uncompacted log remains valid.
func (s *TaskQueueService) bumpAppends(project, branch string, q *branchQueue) {
	q.appends++
	if q.appends < s.compactEvery {
		return
	}

	snapshot := QueueSnapshot{
		CompletedCount: q.completed,
		FailedCount:    q.failed,
	}
	for _, prio := range models.Priorities {
		snapshot.Pending = append(snapshot.Pending, q.buckets[prio]...)
	}
	if q.active != nil {
		active := *q.active
		snapshot.Active = &active
	}

	if err := s.journal.Compact(project, branch, snapshot); err != nil {
		s.logEvent("queue.compact_failed", map[string]any{
			"project": project, "branch": branch, "error": err.Error(),
		})
		return
	}
	q.appends = 0
}

func (s *TaskQueueService) logEvent(eventType string, data map[string]any) {
	if s.events == nil {
		return
	}
	_ = s.events.LogEvent(eventType, data)
}
