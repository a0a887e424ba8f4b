package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ganot/worklog/internal/domain/worklog"
	"github.com/ganot/worklog/internal/repository"
)

// TaskRepository implements worklog.TaskRepository for SQLite
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Get retrieves a task by ID
func (r *TaskRepository) Get(ctx context.Context, id string) (*worklog.Task, error) {
	query := `SELECT id, project_id, title, status, end_date FROM tasks WHERE id = ?`

	var task worklog.Task
	var status sql.NullString
	var endDate sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&task.ID,
		&task.ProjectID,
		&task.Title,
		&status,
		&endDate,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	if status.Valid {
		task.Status = &status.String
	}
	if endDate.Valid {
		task.EndDate = &endDate.Time
	}

	return &task, nil
}

// SetStatus overwrites the task's status label, optionally stamping end_date
func (r *TaskRepository) SetStatus(ctx context.Context, id, status string, endDate *time.Time) error {
	var result sql.Result
	var err error
	if endDate != nil {
		result, err = r.db.ExecContext(ctx,
			`UPDATE tasks SET status = ?, end_date = ? WHERE id = ?`, status, endDate, id)
	} else {
		result, err = r.db.ExecContext(ctx,
			`UPDATE tasks SET status = ? WHERE id = ?`, status, id)
	}
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
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

// GetProject retrieves a project by ID
func (r *TaskRepository) GetProject(ctx context.Context, id string) (*worklog.Project, error) {
	query := `SELECT id, name, description, supervisor_id FROM projects WHERE id = ?`

	var proj worklog.Project
	var description, supervisorID sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&proj.ID,
		&proj.Name,
		&description,
		&supervisorID,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	if description.Valid {
		proj.Description = description.String
	}
	if supervisorID.Valid {
		proj.SupervisorID = &supervisorID.String
	}

	return &proj, nil
}

// GetUser retrieves a user by ID
func (r *TaskRepository) GetUser(ctx context.Context, id string) (*worklog.User, error) {
	query := `SELECT id, username, role FROM users WHERE id = ?`

	var user worklog.User
	var role sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Username, &role)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if role.Valid {
		user.Role = role.String
	}

	return &user, nil
}

// ListAssigned returns the denormalized task list for a user, joining
// project name and the project supervisor's username
func (r *TaskRepository) ListAssigned(ctx context.Context, userID string) ([]worklog.AssignedTask, error) {
	query := `
		SELECT t.id, p.name, t.title, u.username, t.status
		FROM tasks t
		JOIN task_assignees ta ON ta.task_id = t.id
		JOIN projects p ON p.id = t.project_id
		LEFT JOIN users u ON u.id = p.supervisor_id
		WHERE ta.user_id = ?
		ORDER BY p.name, t.title
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned tasks: %w", err)
	}
	defer rows.Close()

	var tasks []worklog.AssignedTask
	for rows.Next() {
		var task worklog.AssignedTask
		var supervisor, status sql.NullString
		if err := rows.Scan(&task.TaskID, &task.ProjectName, &task.TaskName, &supervisor, &status); err != nil {
			return nil, fmt.Errorf("failed to scan assigned task: %w", err)
		}
		if supervisor.Valid {
			task.SupervisorName = &supervisor.String
		}
		if status.Valid {
			task.Status = &status.String
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assigned tasks: %w", err)
	}

	return tasks, nil
}

// GetAssignment retrieves the assignment row for a task
func (r *TaskRepository) GetAssignment(ctx context.Context, taskID string) (*worklog.Assignment, error) {
	query := `
		SELECT task_id, user_id, assigned_at, line_item_ref
		FROM task_assignees
		WHERE task_id = ?
		LIMIT 1
	`

	var a worklog.Assignment
	var assignedAt sql.NullTime
	var lineRef sql.NullString
	err := r.db.QueryRowContext(ctx, query, taskID).Scan(&a.TaskID, &a.UserID, &assignedAt, &lineRef)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	if assignedAt.Valid {
		a.AssignedAt = &assignedAt.Time
	}
	if lineRef.Valid {
		a.LineItemRef = &lineRef.String
	}

	return &a, nil
}
