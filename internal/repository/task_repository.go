package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lewtec/rotulador-studio/internal/domain"
)

// TaskRepository implements domain.TaskRepository on SQLite
type TaskRepository struct {
	db DBTX
}

func NewTaskRepository(db DBTX) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = "id, project_id, name, description, assigned_to, status, due_date, created_at, updated_at"

func scanTask(row interface{ Scan(...interface{}) error }) (domain.Task, error) {
	var t domain.Task
	var status string
	var due sql.NullInt64
	var createdAt, updatedAt int64
	err := row.Scan(&t.ID, &t.ProjectID, &t.Name, &t.Description, &t.AssignedTo, &status, &due, &createdAt, &updatedAt)
	if err != nil {
		return t, err
	}
	t.Status = domain.TaskStatus(status)
	if due.Valid {
		d := fromMillis(due.Int64)
		t.DueDate = &d
	}
	t.CreatedAt = fromMillis(createdAt)
	t.UpdatedAt = fromMillis(updatedAt)
	return t, nil
}

func nullableMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

// GetTasksByProjectID lists the tasks of a project in creation order
func (r *TaskRepository) GetTasksByProjectID(ctx context.Context, projectID string) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE project_id = ? ORDER BY created_at, id", projectID)
	if err != nil {
		return nil, fmt.Errorf("while listing tasks of project %s: %w", projectID, err)
	}
	defer rows.Close()

	result := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// GetTask retrieves a task by its ID, nil when missing
func (r *TaskRepository) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	t, err := scanTask(r.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("while getting task %s: %w", id, err)
	}
	return &t, nil
}

// SaveTask upserts a task. A zero CreatedAt keeps the stored one.
func (r *TaskRepository) SaveTask(ctx context.Context, task domain.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	now := time.Now()
	keepCreated := task.CreatedAt.IsZero()
	if keepCreated {
		task.CreatedAt = now
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = now
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO tasks ("+taskColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) "+
			"ON CONFLICT(id) DO UPDATE SET project_id = excluded.project_id, name = excluded.name, "+
			"description = excluded.description, assigned_to = excluded.assigned_to, status = excluded.status, "+
			"due_date = excluded.due_date, updated_at = excluded.updated_at, "+
			"created_at = CASE WHEN ? THEN tasks.created_at ELSE excluded.created_at END",
		task.ID, task.ProjectID, task.Name, task.Description, task.AssignedTo, string(task.Status),
		nullableMillis(task.DueDate), toMillis(task.CreatedAt), toMillis(task.UpdatedAt),
		boolToInt(keepCreated))
	if err != nil {
		return fmt.Errorf("while saving task %s: %w", task.ID, err)
	}
	return nil
}

func (r *TaskRepository) DeleteTask(ctx context.Context, id string) error {
	return expectAffected(r.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id))("task", id)
}
