package timesheet

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ganot/worklog/internal/domain/worklog"
)

// timeNow is a variable for testing purposes.
var timeNow = time.Now

// CatalogStore is the local mirror the syncer writes into. Inserts are
// insert-if-absent; the external system stays the source of truth.
type CatalogStore interface {
	SaveUser(ctx context.Context, user worklog.User) (bool, error)
	SaveProject(ctx context.Context, proj worklog.Project) (bool, error)
	SaveTask(ctx context.Context, task worklog.Task) (bool, error)
	SaveAssignment(ctx context.Context, a worklog.Assignment) (bool, error)
	SetLineItemRef(ctx context.Context, taskID, userID, ref string) error
	ListWorkItemCandidates(ctx context.Context) ([]worklog.WorkItemCandidate, error)
}

// Syncer mirrors the external catalog into the local store and creates the
// weekly work items that hour upserts are keyed against.
type Syncer struct {
	client  *Client
	catalog CatalogStore
	logger  *slog.Logger
}

// NewSyncer creates a syncer.
func NewSyncer(client *Client, catalog CatalogStore, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{client: client, catalog: catalog, logger: logger}
}

// SyncCatalog pulls users, projects, tasks and assignments in dependency
// order so foreign keys resolve. Rows the mirror already holds are skipped.
func (s *Syncer) SyncCatalog(ctx context.Context) error {
	users, err := s.client.GetUsers(ctx)
	if err != nil {
		return fmt.Errorf("fetching users: %w", err)
	}
	inserted := 0
	for _, u := range users {
		ok, err := s.catalog.SaveUser(ctx, worklog.User{ID: u.ID, Username: u.Username, Role: u.Role})
		if err != nil {
			return fmt.Errorf("saving user %s: %w", u.ID, err)
		}
		if ok {
			inserted++
		}
	}
	s.logger.Info("synced users", "fetched", len(users), "inserted", inserted)

	projects, err := s.client.GetProjects(ctx)
	if err != nil {
		return fmt.Errorf("fetching projects: %w", err)
	}
	inserted = 0
	for _, p := range projects {
		proj := worklog.Project{ID: p.ID, Name: p.Name, Description: p.Description}
		if p.SupervisorID != "" {
			supervisor := p.SupervisorID
			proj.SupervisorID = &supervisor
		}
		ok, err := s.catalog.SaveProject(ctx, proj)
		if err != nil {
			return fmt.Errorf("saving project %s: %w", p.ID, err)
		}
		if ok {
			inserted++
		}
	}
	s.logger.Info("synced projects", "fetched", len(projects), "inserted", inserted)

	tasks, err := s.client.GetTasks(ctx)
	if err != nil {
		return fmt.Errorf("fetching tasks: %w", err)
	}
	inserted = 0
	for _, t := range tasks {
		ok, err := s.catalog.SaveTask(ctx, worklog.Task{
			ID:          t.ID,
			ProjectID:   t.ProjectID,
			Title:       t.Title,
			Description: t.Description,
		})
		if err != nil {
			return fmt.Errorf("saving task %s: %w", t.ID, err)
		}
		if ok {
			inserted++
		}

		assignedAt := parseAPIDate(t.CreatedAt)
		for _, userID := range t.AssigneeIDs {
			if _, err := s.catalog.SaveAssignment(ctx, worklog.Assignment{
				TaskID:     t.ID,
				UserID:     userID,
				AssignedAt: assignedAt,
			}); err != nil {
				return fmt.Errorf("saving assignment %s/%s: %w", t.ID, userID, err)
			}
		}
	}
	s.logger.Info("synced tasks", "fetched", len(tasks), "inserted", inserted)

	return nil
}

// CreateWorkItems registers one work item per assignment for the current
// week and stores the returned timesheet line reference. Meant to run once
// per week at the week boundary; per-candidate failures are logged and
// skipped so one bad row does not block the rest.
func (s *Syncer) CreateWorkItems(ctx context.Context) (int, error) {
	candidates, err := s.catalog.ListWorkItemCandidates(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing candidates: %w", err)
	}

	weekStart := WeekStart(timeNow())
	created := 0
	for _, c := range candidates {
		lineID, err := s.client.SaveWorkItem(ctx, c.UserID, c.ProjectID, c.TaskID, weekStart, c.Title)
		if err != nil {
			s.logger.Error("work item creation failed", "task_id", c.TaskID, "user_id", c.UserID, "error", err)
			continue
		}
		if err := s.catalog.SetLineItemRef(ctx, c.TaskID, c.UserID, lineID); err != nil {
			s.logger.Error("storing line item ref failed", "task_id", c.TaskID, "user_id", c.UserID, "error", err)
			continue
		}
		created++
	}

	s.logger.Info("created work items", "count", created, "week_start", weekStart)
	return created, nil
}

// WeekStart formats the Sunday that begins t's week, the week anchor the
// external API expects.
func WeekStart(t time.Time) string {
	return t.AddDate(0, 0, -int(t.Weekday())).Format("2006-01-02")
}

func parseAPIDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}
