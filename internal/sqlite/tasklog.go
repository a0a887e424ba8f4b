package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ganot/worklog/internal/domain/worklog"
	"github.com/ganot/worklog/internal/repository"
)

// TaskLogRepository implements worklog.TaskLogRepository for SQLite
type TaskLogRepository struct {
	db *DB
}

// NewTaskLogRepository creates a new TaskLogRepository
func NewTaskLogRepository(db *DB) *TaskLogRepository {
	return &TaskLogRepository{db: db}
}

const taskLogColumns = "id, task_id, user_id, start_time, end_time, status, duration, comment"

// Create inserts a new session log
func (r *TaskLogRepository) Create(ctx context.Context, log *worklog.TaskLog) error {
	query := `
		INSERT INTO task_logs (` + taskLogColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.TaskID,
		log.UserID,
		log.StartTime,
		log.EndTime,
		log.Status,
		log.Duration,
		log.Comment,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrUniqueViolation
		}
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to create task log: %w", err)
	}

	return nil
}

// Get retrieves a session log by ID
func (r *TaskLogRepository) Get(ctx context.Context, id string) (*worklog.TaskLog, error) {
	query := `SELECT ` + taskLogColumns + ` FROM task_logs WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetOpen retrieves the open log for a (task, user) pair
func (r *TaskLogRepository) GetOpen(ctx context.Context, taskID, userID string) (*worklog.TaskLog, error) {
	query := `
		SELECT ` + taskLogColumns + `
		FROM task_logs
		WHERE task_id = ? AND user_id = ? AND end_time IS NULL
		ORDER BY start_time DESC
		LIMIT 1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, taskID, userID))
}

// ListOpen returns every log with a null end time
func (r *TaskLogRepository) ListOpen(ctx context.Context) ([]worklog.TaskLog, error) {
	query := `
		SELECT ` + taskLogColumns + `
		FROM task_logs
		WHERE end_time IS NULL
		ORDER BY start_time ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list open logs: %w", err)
	}
	defer rows.Close()

	var logs []worklog.TaskLog
	for rows.Next() {
		log, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating logs: %w", err)
	}

	return logs, nil
}

// Update persists a mutated session log
func (r *TaskLogRepository) Update(ctx context.Context, log *worklog.TaskLog) error {
	query := `
		UPDATE task_logs
		SET end_time = ?, status = ?, duration = ?, comment = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		log.EndTime,
		log.Status,
		log.Duration,
		log.Comment,
		log.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task log: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *TaskLogRepository) scanOne(row *sql.Row) (*worklog.TaskLog, error) {
	log, err := scanLog(row)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return log, nil
}

func scanLog(row rowScanner) (*worklog.TaskLog, error) {
	var log worklog.TaskLog
	var endTime sql.NullTime
	var status, comment sql.NullString
	var duration sql.NullInt64

	err := row.Scan(
		&log.ID,
		&log.TaskID,
		&log.UserID,
		&log.StartTime,
		&endTime,
		&status,
		&duration,
		&comment,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan task log: %w", err)
	}

	if endTime.Valid {
		log.EndTime = &endTime.Time
	}
	if status.Valid {
		log.Status = &status.String
	}
	if duration.Valid {
		log.Duration = &duration.Int64
	}
	if comment.Valid {
		log.Comment = &comment.String
	}

	return &log, nil
}
