package worklog

import "time"

// TaskLog represents one open-to-closed work interval for a (task, user) pair.
// At most one log per pair may have a nil EndTime at any moment.
type TaskLog struct {
	ID        string     `json:"log_id"`
	TaskID    string     `json:"task_id"`
	UserID    string     `json:"user_id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Status    *string    `json:"status,omitempty"`
	Duration  *int64     `json:"duration,omitempty"` // seconds
	Comment   *string    `json:"comment,omitempty"`
}

// Open reports whether the log is still running.
func (l *TaskLog) Open() bool {
	return l.EndTime == nil
}

// Task mirrors the assigned task catalog. Status is owned by the most recent
// lifecycle transition of its session log.
type Task struct {
	ID          string     `json:"task_id"`
	ProjectID   string     `json:"project_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      *string    `json:"status,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

// WorkItemCandidate is an assignment joined with its task, used when creating
// weekly work items in the external timesheet system.
type WorkItemCandidate struct {
	TaskID      string
	ProjectID   string
	UserID      string
	Title       string
	LineItemRef *string
}

// Project is the catalog entry a task belongs to.
type Project struct {
	ID           string  `json:"project_id"`
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	SupervisorID *string `json:"supervisor_id,omitempty"`
}

// User is the catalog entry for an assignee.
type User struct {
	ID       string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
}

// Assignment links a user to a task, carrying the external timesheet
// line-item reference once a work item has been created remotely.
type Assignment struct {
	TaskID      string     `json:"task_id"`
	UserID      string     `json:"user_id"`
	AssignedAt  *time.Time `json:"assigned_at,omitempty"`
	LineItemRef *string    `json:"line_item_ref,omitempty"`
}

// AssignedTask is the denormalized task view returned to a user.
type AssignedTask struct {
	TaskID         string  `json:"task_id"`
	ProjectName    string  `json:"project_name"`
	TaskName       string  `json:"task_name"`
	SupervisorName *string `json:"supervisor_name,omitempty"`
	Status         *string `json:"status,omitempty"`
}

// StopRequest carries the user-supplied closure data for a log.
type StopRequest struct {
	LogID           string
	Status          string
	Comment         string
	DurationSeconds int64
}

// StopResult reports the two independent outcomes of a stop: the relational
// closure, which has committed when this struct is returned, and the
// best-effort archival of the searchable projection. ArchiveErr being non-nil
// means the caller should retry archival, not the stop.
type StopResult struct {
	Log        *TaskLog
	Archived   bool
	ArchiveErr error
}

// ReconcilePolicy controls how stale open logs are force-closed.
type ReconcilePolicy struct {
	Status          string
	Comment         string
	FallbackSeconds int64
}

// DefaultReconcilePolicy matches the scheduler's historical behaviour:
// three hours of credited time and a system-generated note.
func DefaultReconcilePolicy() ReconcilePolicy {
	return ReconcilePolicy{
		Status:          "In progress",
		Comment:         "Stopped automatically by system scheduler",
		FallbackSeconds: 10800,
	}
}
