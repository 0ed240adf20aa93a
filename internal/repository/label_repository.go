package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lewtec/rotulador-studio/internal/domain"
)

// LabelRepository implements domain.LabelRepository on SQLite
type LabelRepository struct {
	db DBTX
}

// NewLabelRepository creates a new LabelRepository
func NewLabelRepository(db DBTX) *LabelRepository {
	return &LabelRepository{db: db}
}

const labelColumns = "id, project_id, name, color, category, confidence, is_ai_generated, created_at, updated_at"

func scanLabel(row interface{ Scan(...interface{}) error }) (domain.Label, error) {
	var l domain.Label
	var confidence sql.NullFloat64
	var createdAt, updatedAt int64
	err := row.Scan(&l.ID, &l.ProjectID, &l.Name, &l.Color, &l.Category, &confidence, &l.IsAIGenerated, &createdAt, &updatedAt)
	if err != nil {
		return l, err
	}
	if confidence.Valid {
		c := confidence.Float64
		l.Confidence = &c
	}
	l.CreatedAt = fromMillis(createdAt)
	l.UpdatedAt = fromMillis(updatedAt)
	return l, nil
}

func nullableFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func (r *LabelRepository) queryLabels(ctx context.Context, query string, args ...interface{}) ([]domain.Label, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Label{}
	for rows.Next() {
		l, err := scanLabel(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

// GetLabels lists every label in creation order
func (r *LabelRepository) GetLabels(ctx context.Context) ([]domain.Label, error) {
	labels, err := r.queryLabels(ctx, "SELECT "+labelColumns+" FROM labels ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("while listing labels: %w", err)
	}
	return labels, nil
}

// GetLabelsByProjectID lists the labels of a project in creation order
func (r *LabelRepository) GetLabelsByProjectID(ctx context.Context, projectID string) ([]domain.Label, error) {
	labels, err := r.queryLabels(ctx,
		"SELECT "+labelColumns+" FROM labels WHERE project_id = ? ORDER BY created_at, id", projectID)
	if err != nil {
		return nil, fmt.Errorf("while listing labels of project %s: %w", projectID, err)
	}
	return labels, nil
}

// getLabel retrieves a label by its ID, nil when missing
func (r *LabelRepository) getLabel(ctx context.Context, id string) (*domain.Label, error) {
	l, err := scanLabel(r.db.QueryRowContext(ctx, "SELECT "+labelColumns+" FROM labels WHERE id = ?", id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

// insertLabel stores the label row; Store.CreateLabel also re-points annotations
func (r *LabelRepository) insertLabel(ctx context.Context, label domain.Label) error {
	if label.CreatedAt.IsZero() {
		label.CreatedAt = time.Now()
	}
	if label.UpdatedAt.IsZero() {
		label.UpdatedAt = label.CreatedAt
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO labels ("+labelColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		label.ID, label.ProjectID, label.Name, label.Color, label.Category,
		nullableFloat(label.Confidence), boolToInt(label.IsAIGenerated),
		toMillis(label.CreatedAt), toMillis(label.UpdatedAt))
	if err != nil {
		return fmt.Errorf("while creating label %s: %w", label.ID, err)
	}
	return nil
}

// UpdateLabel applies a partial update to a label
func (r *LabelRepository) UpdateLabel(ctx context.Context, id string, update domain.LabelUpdate) error {
	current, err := r.getLabel(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("label %s: %w", id, domain.ErrNotFound)
	}
	if update.UpdatedAt == nil {
		now := time.Now()
		update.UpdatedAt = &now
	}
	l := update.Apply(*current)
	_, err = r.db.ExecContext(ctx,
		"UPDATE labels SET name = ?, color = ?, category = ?, confidence = ?, is_ai_generated = ?, updated_at = ? WHERE id = ?",
		l.Name, l.Color, l.Category, nullableFloat(l.Confidence), boolToInt(l.IsAIGenerated), toMillis(l.UpdatedAt), id)
	if err != nil {
		return fmt.Errorf("while updating label %s: %w", id, err)
	}
	return nil
}

// DeleteLabel removes a label. Annotations keep their label_id.
func (r *LabelRepository) DeleteLabel(ctx context.Context, id string) error {
	return expectAffected(r.db.ExecContext(ctx, "DELETE FROM labels WHERE id = ?", id))("label", id)
}

func (r *LabelRepository) deleteProjectLabels(ctx context.Context, projectID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM labels WHERE project_id = ?", projectID); err != nil {
		return fmt.Errorf("while deleting labels of project %s: %w", projectID, err)
	}
	return nil
}
