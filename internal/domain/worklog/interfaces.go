package worklog

import (
	"context"
	"time"
)

// TaskLogRepository provides persistence for session logs.
type TaskLogRepository interface {
	Create(ctx context.Context, log *TaskLog) error
	Get(ctx context.Context, id string) (*TaskLog, error)
	// GetOpen returns the open log for a (task, user) pair, or
	// repository.ErrNotFound when none is open.
	GetOpen(ctx context.Context, taskID, userID string) (*TaskLog, error)
	ListOpen(ctx context.Context) ([]TaskLog, error)
	Update(ctx context.Context, log *TaskLog) error
}

// TaskRepository provides catalog access for tasks, projects and users.
type TaskRepository interface {
	Get(ctx context.Context, id string) (*Task, error)
	SetStatus(ctx context.Context, id, status string, endDate *time.Time) error
	GetProject(ctx context.Context, id string) (*Project, error)
	GetUser(ctx context.Context, id string) (*User, error)
	ListAssigned(ctx context.Context, userID string) ([]AssignedTask, error)
	GetAssignment(ctx context.Context, taskID string) (*Assignment, error)
}

// Archiver stores the redacted projection of a closed session for search.
type Archiver interface {
	Archive(ctx context.Context, id, text string, metadata map[string]any) error
}

// TimeRecorder upserts quantized hours against an external timesheet line.
type TimeRecorder interface {
	SaveTimeItemHours(ctx context.Context, lineItemRef string, dayOfWeek int, hours float64) error
}
