package worklog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ganot/worklog/internal/repository"
	"github.com/google/uuid"
)

// timeNow is a variable for testing purposes.
var timeNow = time.Now

// Service handles the session lifecycle: start, pause, stop, stale-session
// reconciliation and external time-entry recording.
type Service struct {
	logs     TaskLogRepository
	tasks    TaskRepository
	archiver Archiver
	recorder TimeRecorder
	policy   ReconcilePolicy
	logger   *slog.Logger
}

// NewService creates a new lifecycle service. Archiver and recorder may be
// nil when the corresponding collaborator is not configured; the operations
// that need them report the failure explicitly.
func NewService(
	logs TaskLogRepository,
	tasks TaskRepository,
	archiver Archiver,
	recorder TimeRecorder,
	policy ReconcilePolicy,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logs:     logs,
		tasks:    tasks,
		archiver: archiver,
		recorder: recorder,
		policy:   policy,
		logger:   logger,
	}
}

// Start opens a session log for a (task, user) pair. If one is already open
// it is returned unchanged, so repeated starts are idempotent. The store's
// partial unique index on open logs is the authority against concurrent
// double-starts; the lookup here is the fast path.
func (s *Service) Start(ctx context.Context, taskID, userID string) (*TaskLog, error) {
	if taskID == "" || userID == "" {
		return nil, ErrInvalidInput
	}

	existing, err := s.logs.GetOpen(ctx, taskID, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("looking up open log: %w", err)
	}

	log := &TaskLog{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		UserID:    userID,
		StartTime: timeNow(),
	}
	if err := s.logs.Create(ctx, log); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			// Lost the race against a concurrent start; the winner's log
			// is the one open log for the pair.
			return s.logs.GetOpen(ctx, taskID, userID)
		}
		return nil, fmt.Errorf("creating log: %w", err)
	}
	return log, nil
}

// Stop closes a session log, mirrors the status onto the task, and emits the
// archived projection. The relational closure commits first; archival is
// best-effort and its failure is reported in StopResult.ArchiveErr without
// rolling back the stop.
func (s *Service) Stop(ctx context.Context, req StopRequest) (*StopResult, error) {
	if req.LogID == "" {
		return nil, ErrInvalidInput
	}

	log, err := s.logs.Get(ctx, req.LogID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLogNotFound
		}
		return nil, fmt.Errorf("loading log: %w", err)
	}

	now := timeNow()
	log.EndTime = &now
	log.Status = &req.Status
	log.Comment = &req.Comment
	log.Duration = &req.DurationSeconds

	if err := s.logs.Update(ctx, log); err != nil {
		return nil, fmt.Errorf("closing log: %w", err)
	}

	if err := s.tasks.SetStatus(ctx, log.TaskID, req.Status, nil); err != nil {
		s.logger.Warn("task status mirror failed", "task_id", log.TaskID, "error", err)
	}

	result := &StopResult{Log: log}
	if err := s.archiveLog(ctx, log); err != nil {
		s.logger.Warn("session archival failed", "log_id", log.ID, "error", err)
		result.ArchiveErr = err
	} else {
		result.Archived = true
	}
	return result, nil
}

// Pause records accumulated duration without closing the log.
func (s *Service) Pause(ctx context.Context, logID string, durationSeconds int64) (*TaskLog, error) {
	if logID == "" {
		return nil, ErrInvalidInput
	}

	log, err := s.logs.Get(ctx, logID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLogNotFound
		}
		return nil, fmt.Errorf("loading log: %w", err)
	}

	log.Duration = &durationSeconds
	if err := s.logs.Update(ctx, log); err != nil {
		return nil, fmt.Errorf("updating log: %w", err)
	}
	return log, nil
}

// ReconcileStale force-closes every open log with the reconcile policy's
// status, note and fallback duration. Row failures are logged and skipped;
// re-running is a no-op because closed logs no longer match the open filter.
// Reconciled sessions are not archived: archival belongs to the user stop path.
func (s *Service) ReconcileStale(ctx context.Context) (int, error) {
	open, err := s.logs.ListOpen(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing open logs: %w", err)
	}

	closed := 0
	for i := range open {
		log := open[i]
		now := timeNow()
		fallback := s.policy.FallbackSeconds
		log.EndTime = &now
		log.Status = &s.policy.Status
		log.Comment = &s.policy.Comment
		log.Duration = &fallback

		if err := s.logs.Update(ctx, &log); err != nil {
			s.logger.Error("auto-stop update failed", "log_id", log.ID, "error", err)
			continue
		}
		if err := s.tasks.SetStatus(ctx, log.TaskID, s.policy.Status, &now); err != nil {
			s.logger.Warn("task status mirror failed", "task_id", log.TaskID, "error", err)
		}
		closed++
	}

	if closed > 0 {
		s.logger.Info("reconciled stale sessions", "count", closed)
	}
	return closed, nil
}

// RecordTimeEntry converts raw seconds to quantized hours and upserts them
// against the task's external timesheet line. Validation runs before any
// external call.
func (s *Service) RecordTimeEntry(ctx context.Context, taskID string, seconds int64) error {
	hours := QuantizeHours(seconds)
	if hours <= 0 || hours > 24 {
		return fmt.Errorf("%w: got %.2f", ErrInvalidHours, hours)
	}
	if s.recorder == nil {
		return fmt.Errorf("%w: no time recorder configured", ErrExternalService)
	}

	assignment, err := s.tasks.GetAssignment(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("loading assignment: %w", err)
	}
	if assignment.LineItemRef == nil || *assignment.LineItemRef == "" {
		return fmt.Errorf("%w: no timesheet line item for task %s", ErrExternalService, taskID)
	}

	day := DayOfWeek(timeNow())
	if err := s.recorder.SaveTimeItemHours(ctx, *assignment.LineItemRef, day, hours); err != nil {
		return fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	return nil
}

// LatestOpenLog returns the open log for a (task, user) pair, or nil when
// none is open.
func (s *Service) LatestOpenLog(ctx context.Context, taskID, userID string) (*TaskLog, error) {
	log, err := s.logs.GetOpen(ctx, taskID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("looking up open log: %w", err)
	}
	return log, nil
}

// LogDuration returns the recorded duration of a log in seconds.
func (s *Service) LogDuration(ctx context.Context, logID string) (int64, error) {
	log, err := s.logs.Get(ctx, logID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrLogNotFound
		}
		return 0, fmt.Errorf("loading log: %w", err)
	}
	if log.Duration == nil {
		return 0, nil
	}
	return *log.Duration, nil
}

// AssignedTasks returns the denormalized task list for a user.
func (s *Service) AssignedTasks(ctx context.Context, userID string) ([]AssignedTask, error) {
	return s.tasks.ListAssigned(ctx, userID)
}

// DayOfWeek maps a time to the timesheet system's day index: Sunday=1 through
// Saturday=7. This is an integration constant of the external API, not a
// general calendar rule.
func DayOfWeek(t time.Time) int {
	return int(t.Weekday()) + 1
}

// archiveLog builds and stores the redacted projection of a closed log.
// Identifiers live in metadata, never in the document text, so the response
// sanitizer can strip them on the way out.
func (s *Service) archiveLog(ctx context.Context, log *TaskLog) error {
	if s.archiver == nil {
		return errors.New("no archiver configured")
	}

	task, err := s.tasks.Get(ctx, log.TaskID)
	if err != nil {
		return fmt.Errorf("loading task: %w", err)
	}
	project, err := s.tasks.GetProject(ctx, task.ProjectID)
	if err != nil {
		return fmt.Errorf("loading project: %w", err)
	}
	user, err := s.tasks.GetUser(ctx, log.UserID)
	if err != nil {
		return fmt.Errorf("loading user: %w", err)
	}

	comment := ""
	if log.Comment != nil {
		comment = *log.Comment
	}
	var duration int64
	if log.Duration != nil {
		duration = *log.Duration
	}
	status := ""
	if log.Status != nil {
		status = *log.Status
	}

	text := fmt.Sprintf("%s - %s: %s", project.Name, task.Title, comment)
	metadata := map[string]any{
		"log_id":     log.ID,
		"task_id":    log.TaskID,
		"user_id":    log.UserID,
		"username":   user.Username,
		"status":     status,
		"duration":   QuantizeHours(duration),
		"start_time": log.StartTime.Unix(),
		"end_time":   log.EndTime.Format(time.DateTime),
	}

	if err := s.archiver.Archive(ctx, uuid.NewString(), text, metadata); err != nil {
		return fmt.Errorf("archiving session: %w", err)
	}
	return nil
}
