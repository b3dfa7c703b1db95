package integration

import (
	"context"
	"time"

	"github.com/grovekit/grove/internal/core"
	"github.com/grovekit/grove/pkg/models"
)

// SyncScheduler runs SyncAll on a fixed interval until its context is
// cancelled. Cycles never overlap: a slow cycle delays the next tick rather
// than stacking up.
type SyncScheduler struct {
	engine   SyncEngine
	events   core.EventLogger
	interval time.Duration
}

// NewSyncScheduler creates a scheduler driving engine every interval.
// Intervals <= 0 fall back to one minute.
func NewSyncScheduler(engine SyncEngine, events core.EventLogger, interval time.Duration) *SyncScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SyncScheduler{engine: engine, events: events, interval: interval}
}

// Run executes one cycle immediately, then one per tick, and returns when
// ctx is cancelled.
func (s *SyncScheduler) Run(ctx context.Context) {
	s.cycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

func (s *SyncScheduler) cycle(ctx context.Context) {
	start := time.Now()
	records, err := s.engine.SyncAll(ctx)
	if err != nil {
		s.logEvent("sync.cycle_failed", map[string]any{"error": err.Error()})
		return
	}

	var attention int
	for _, r := range records {
		if r.NeedsAttention {
			attention++
		}
	}
	s.logEvent("sync.cycle", map[string]any{
		"checkouts":       len(records),
		"needs_attention": attention,
		"duration_ms":     time.Since(start).Milliseconds(),
	})
}

// AggregateByProject folds the engine's stored records into one status per
// project.
func (s *SyncScheduler) AggregateByProject() map[string]models.ProjectSyncStatus {
	byProject := map[string][]models.SyncRecord{}
	for _, r := range s.engine.AllRecords() {
		byProject[r.Project] = append(byProject[r.Project], r)
	}

	statuses := make(map[string]models.ProjectSyncStatus, len(byProject))
	for project, records := range byProject {
		statuses[project] = core.AggregateProjectStatus(records)
	}
	return statuses
}

func (s *SyncScheduler) logEvent(eventType string, data map[string]any) {
	if s.events == nil {
		return
	}
	_ = s.events.LogEvent(eventType, data)
}
