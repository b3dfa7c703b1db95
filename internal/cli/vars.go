package cli

import (
	"github.com/grovekit/grove/internal/core"
	"github.com/grovekit/grove/internal/integration"
	"github.com/grovekit/grove/internal/observability"
	"github.com/grovekit/grove/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	BasePath string
	Config   *models.GlobalConfig

	Resolver    *core.PathResolver
	Categorizer *core.Categorizer
	Queue       *core.TaskQueueService

	Checkouts integration.CheckoutManager
	SyncEng   integration.SyncEngine
	Scheduler *integration.SyncScheduler
	Intake    *integration.IntakeService

	EventLog observability.EventLog
)
