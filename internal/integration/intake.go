package integration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/grovekit/grove/internal/core"
	"github.com/grovekit/grove/pkg/models"
)

// frontMatterDelim separates the YAML header of a work-item file from its
// markdown body.
const frontMatterDelim = "---"

// processedDirName is where ingested work-item files are moved. Files never
// get edited, only relocated.
const processedDirName = "processed"

// settleDelay gives editors time to finish writing a work-item file before
// the watcher picks it up.
const settleDelay = 200 * time.Millisecond

// ParseWorkItem decodes a markdown work item: YAML front matter between ---
// delimiters, markdown body below. ID, title, and project are required.
func ParseWorkItem(data []byte) (*models.WorkItem, error) {
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	if !strings.HasPrefix(content, frontMatterDelim+"\n") {
		return nil, fmt.Errorf("work item has no front matter")
	}

	rest := content[len(frontMatterDelim)+1:]
	end := strings.Index(rest, "\n"+frontMatterDelim)
	if end < 0 {
		return nil, fmt.Errorf("work item front matter is not terminated")
	}

	header := rest[:end]
	body := rest[end+len(frontMatterDelim)+1:]
	if i := strings.Index(body, "\n"); i >= 0 {
		body = body[i+1:]
	} else {
		body = ""
	}

	var item models.WorkItem
	if err := yaml.Unmarshal([]byte(header), &item); err != nil {
		return nil, fmt.Errorf("parsing front matter: %w", err)
	}

	if item.ID == "" {
		return nil, fmt.Errorf("work item is missing an id")
	}
	if item.Title == "" {
		return nil, fmt.Errorf("work item %s is missing a title", item.ID)
	}
	if item.Project == "" {
		return nil, fmt.Errorf("work item %s is missing a project", item.ID)
	}
	if item.Type == "" {
		item.Type = models.TaskTypeChore
	}
	if item.Priority == "" {
		item.Priority = models.PriorityMedium
	}
	if !item.Priority.Valid() {
		return nil, fmt.Errorf("work item %s has unknown priority %q", item.ID, item.Priority)
	}

	item.Description = strings.TrimSpace(body)
	return &item, nil
}

// IntakeService turns work-item files dropped into the intake directory into
// queued tasks: parse, route to a branch (explicit or categorizer-suggested),
// enqueue, and move the file aside. Re-ingesting a file whose task is still
// pending or active is a no-op.
type IntakeService struct {
	dir         string
	categorizer *core.Categorizer
	resolver    *core.PathResolver
	queue       *core.TaskQueueService
	checkouts   CheckoutManager
	events      core.EventLogger
}

// NewIntakeService wires an IntakeService reading from dir.
func NewIntakeService(dir string, categorizer *core.Categorizer, resolver *core.PathResolver, queue *core.TaskQueueService, checkouts CheckoutManager, events core.EventLogger) *IntakeService {
	return &IntakeService{
		dir:         dir,
		categorizer: categorizer,
		resolver:    resolver,
		queue:       queue,
		checkouts:   checkouts,
		events:      events,
	}
}

// Scan processes every .md file currently in the intake directory and
// returns how many tasks it enqueued. Files that fail to parse stay in place
// so operators can fix them.
func (s *IntakeService) Scan(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading intake directory: %w", err)
	}

	ingested := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		ok, procErr := s.Process(ctx, filepath.Join(s.dir, e.Name()))
		if procErr != nil {
			s.logEvent("intake.rejected", map[string]any{"file": e.Name(), "error": procErr.Error()})
			continue
		}
		if ok {
			ingested++
		}
	}
	return ingested, nil
}

// Process ingests one work-item file. It reports true when a new task was
// enqueued and false when the item was a duplicate; in both cases the file
// is moved to the processed directory.
func (s *IntakeService) Process(ctx context.Context, path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("reading work item: %w", err)
	}

	item, err := ParseWorkItem(data)
	if err != nil {
		return false, err
	}

	branch, err := s.routeBranch(ctx, item)
	if err != nil {
		return false, err
	}

	err = s.queue.Enqueue(item.Project, branch, item.ID, item.Title, item.Type, item.Priority)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateTask) {
			if moveErr := s.markProcessed(path); moveErr != nil {
				return false, moveErr
			}
			return false, nil
		}
		return false, err
	}

	if err := s.markProcessed(path); err != nil {
		return false, err
	}
	s.logEvent("intake.ingested", map[string]any{
		"item": item.ID, "project": item.Project, "branch": branch,
	})
	return true, nil
}

// routeBranch picks the target branch for a work item: an explicit request
// must validate as-is; otherwise the categorizer suggests one, made unique
// against the project's known branch names.
func (s *IntakeService) routeBranch(ctx context.Context, item *models.WorkItem) (string, error) {
	if item.Branch != "" {
		if v := s.resolver.ValidateBranchName(item.Branch); !v.Valid {
			return "", fmt.Errorf("work item %s: %w: %s", item.ID, models.ErrInvalidBranchName, strings.Join(v.Errors, "; "))
		}
		return item.Branch, nil
	}

	var existing []string
	if list, err := s.checkouts.ListBranches(ctx, item.Project); err == nil && list != nil {
		existing = append(existing, list.Active...)
		existing = append(existing, list.Inactive...)
	}

	suggestion := s.categorizer.Suggest(core.SuggestInput{
		Title:          item.Title,
		Description:    item.Description,
		Type:           item.Type,
		FunctionalArea: item.FunctionalArea,
	}, existing)
	return suggestion.BranchName, nil
}

func (s *IntakeService) markProcessed(path string) error {
	dest := filepath.Join(s.dir, processedDirName)
	if err := os.MkdirAll(dest, 0o750); err != nil {
		return fmt.Errorf("creating processed directory: %w", err)
	}
	if err := os.Rename(path, filepath.Join(dest, filepath.Base(path))); err != nil {
		return fmt.Errorf("moving processed work item: %w", err)
	}
	return nil
}

// Watch processes new .md files as they appear in the intake directory until
// ctx is cancelled. An initial Scan picks up files that predate the watch.
func (s *IntakeService) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating intake watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("watching intake directory: %w", err)
	}

	if _, err := s.Scan(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !strings.HasSuffix(event.Name, ".md") {
				continue
			}
			time.Sleep(settleDelay)
			if _, err := os.Stat(event.Name); err != nil {
				continue // already processed or gone
			}
			if ok, procErr := s.Process(ctx, event.Name); procErr != nil {
				s.logEvent("intake.rejected", map[string]any{
					"file": filepath.Base(event.Name), "error": procErr.Error(),
				})
			} else if ok {
				s.logEvent("intake.watched", map[string]any{"file": filepath.Base(event.Name)})
			}
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logEvent("intake.watch_error", map[string]any{"error": watchErr.Error()})
		}
	}
}

func (s *IntakeService) logEvent(eventType string, data map[string]any) {
	if s.events == nil {
		return
	}
	_ = s.events.LogEvent(eventType, data)
}
