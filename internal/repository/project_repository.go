package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lewtec/rotulador-studio/internal/domain"
)

// ProjectRepository implements domain.ProjectRepository on SQLite
type ProjectRepository struct {
	db DBTX
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db DBTX) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = "id, name, created_at, last_modified"

func scanProject(row interface{ Scan(...interface{}) error }) (domain.Project, error) {
	var p domain.Project
	var createdAt, lastModified int64
	if err := row.Scan(&p.ID, &p.Name, &createdAt, &lastModified); err != nil {
		return p, err
	}
	p.CreatedAt = fromMillis(createdAt)
	p.LastModified = fromMillis(lastModified)
	return p, nil
}

// ListProjects retrieves all projects
func (r *ProjectRepository) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+projectColumns+" FROM projects ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// GetProject retrieves a project by its ID
func (r *ProjectRepository) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	p, err := scanProject(r.db.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = ?", id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// CreateProject creates a new project record
func (r *ProjectRepository) CreateProject(ctx context.Context, project domain.Project) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO projects ("+projectColumns+") VALUES (?, ?, ?, ?)",
		project.ID, project.Name, toMillis(project.CreatedAt), toMillis(project.LastModified))
	if err != nil {
		return fmt.Errorf("while creating project %s: %w", project.ID, err)
	}
	return nil
}

// UpdateProject applies a partial update to a project
func (r *ProjectRepository) UpdateProject(ctx context.Context, id string, update domain.ProjectUpdate) error {
	current, err := r.GetProject(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	p := update.Apply(*current)
	_, err = r.db.ExecContext(ctx,
		"UPDATE projects SET name = ?, last_modified = ? WHERE id = ?",
		p.Name, toMillis(p.LastModified), id)
	return err
}

// deleteProject removes the project row only; Store.DeleteProject cascades
func (r *ProjectRepository) deleteProject(ctx context.Context, id string) error {
	return expectAffected(r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id))("project", id)
}

// expectAffected turns a zero-row mutation into domain.ErrNotFound
func expectAffected(result sql.Result, err error) func(kind, id string) error {
	return func(kind, id string) error {
		if err != nil {
			return fmt.Errorf("while deleting %s %s: %w", kind, id, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
		}
		return nil
	}
}
