package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ganot/worklog/internal/domain/worklog"
)

// CatalogRepository persists the users/projects/tasks mirror fed by the
// timesheet sync. All writes are insert-if-absent: the external system owns
// the catalog, the mirror never overwrites it.
type CatalogRepository struct {
	db *DB
}

// NewCatalogRepository creates a new CatalogRepository
func NewCatalogRepository(db *DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// SaveUser inserts a user unless one with the same id or username exists.
// Returns true when a row was inserted.
func (r *CatalogRepository) SaveUser(ctx context.Context, user worklog.User) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM users WHERE id = ? OR username = ?`, user.ID, user.Username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	if exists > 0 {
		return false, nil
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, role) VALUES (?, ?, ?)`,
		user.ID, user.Username, nullable(user.Role),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert user: %w", err)
	}
	return true, nil
}

// SaveProject inserts a project unless it already exists.
func (r *CatalogRepository) SaveProject(ctx context.Context, proj worklog.Project) (bool, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, description, supervisor_id) VALUES (?, ?, ?, ?)`,
		proj.ID, proj.Name, nullable(proj.Description), proj.SupervisorID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert project: %w", err)
	}
	return true, nil
}

// SaveTask inserts a task unless it already exists.
func (r *CatalogRepository) SaveTask(ctx context.Context, task worklog.Task) (bool, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, project_id, title, description, status, end_date) VALUES (?, ?, ?, ?, ?, ?)`,
		task.ID, task.ProjectID, task.Title, nullable(task.Description), task.Status, task.EndDate,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		if isForeignKeyViolation(err) {
			// Task references a project not yet mirrored; skip it this pass.
			return false, nil
		}
		return false, fmt.Errorf("failed to insert task: %w", err)
	}
	return true, nil
}

// SaveAssignment inserts an assignment unless the (task, user) pair exists.
func (r *CatalogRepository) SaveAssignment(ctx context.Context, a worklog.Assignment) (bool, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO task_assignees (task_id, user_id, assigned_at, line_item_ref) VALUES (?, ?, ?, ?)`,
		a.TaskID, a.UserID, a.AssignedAt, a.LineItemRef,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		if isForeignKeyViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert assignment: %w", err)
	}
	return true, nil
}

// SetLineItemRef stores the external timesheet line reference on an assignment.
func (r *CatalogRepository) SetLineItemRef(ctx context.Context, taskID, userID, ref string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE task_assignees SET line_item_ref = ? WHERE task_id = ? AND user_id = ?`,
		ref, taskID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to set line item ref: %w", err)
	}
	return nil
}

// ListWorkItemCandidates returns every assignment joined with its task.
func (r *CatalogRepository) ListWorkItemCandidates(ctx context.Context) ([]worklog.WorkItemCandidate, error) {
	query := `
		SELECT t.id, t.project_id, ta.user_id, t.title, ta.line_item_ref
		FROM tasks t
		JOIN task_assignees ta ON ta.task_id = t.id
		ORDER BY t.id, ta.user_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list work item candidates: %w", err)
	}
	defer rows.Close()

	var candidates []worklog.WorkItemCandidate
	for rows.Next() {
		var c worklog.WorkItemCandidate
		var lineRef sql.NullString
		if err := rows.Scan(&c.TaskID, &c.ProjectID, &c.UserID, &c.Title, &lineRef); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		if lineRef.Valid {
			c.LineItemRef = &lineRef.String
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidates: %w", err)
	}

	return candidates, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
