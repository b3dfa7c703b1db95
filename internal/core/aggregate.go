package core

import "github.com/grovekit/grove/pkg/models"

// AggregateProjectStatus derives a project's overall sync health from its
// per-branch records. Precedence: any error wins, then any conflict, then
// any record flagged for attention, then all-synced; anything else
// (including an empty record set) is pending.
func AggregateProjectStatus(records []models.SyncRecord) models.ProjectSyncStatus {
	if len(records) == 0 {
		return models.ProjectPending
	}

	var hasError, hasConflict, attention bool
	allSynced := true

	for _, r := range records {
		switch r.Status {
		case models.SyncError:
			hasError = true
		case models.SyncConflict:
			hasConflict = true
		}
		if r.Status != models.SyncSynced {
			allSynced = false
		}
		if r.NeedsAttention {
			attention = true
		}
	}

	switch {
	case hasError:
		return models.ProjectError
	case hasConflict:
		return models.ProjectConflict
	case attention:
		return models.ProjectAttention
	case allSynced:
		return models.ProjectSynced
	default:
		return models.ProjectPending
	}
}
