package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lewtec/rotulador-studio/internal/domain"
)

// AnnotationRepository implements domain.AnnotationRepository on SQLite.
// Coordinates are stored as a JSON array.
type AnnotationRepository struct {
	db DBTX
}

// NewAnnotationRepository creates a new AnnotationRepository
func NewAnnotationRepository(db DBTX) *AnnotationRepository {
	return &AnnotationRepository{db: db}
}

const annotationColumns = "id, image_id, label_id, name, type, coordinates, color, is_ai_generated, created_at, updated_at"

const getAnnotationsQuery = `
SELECT a.id, a.image_id, a.label_id, a.name, a.type, a.coordinates, a.color, a.is_ai_generated, a.created_at, a.updated_at,
       l.id, l.project_id, l.name, l.color, l.category, l.confidence, l.is_ai_generated, l.created_at, l.updated_at
FROM annotations a
LEFT JOIN labels l ON l.id = a.label_id
WHERE a.image_id = ?
ORDER BY a.created_at, a.id`

// GetAnnotations lists an image's annotations with their label attached
func (r *AnnotationRepository) GetAnnotations(ctx context.Context, imageID string) ([]domain.Annotation, error) {
	rows, err := r.db.QueryContext(ctx, getAnnotationsQuery, imageID)
	if err != nil {
		return nil, fmt.Errorf("while listing annotations of image %s: %w", imageID, err)
	}
	defer rows.Close()

	result := []domain.Annotation{}
	for rows.Next() {
		var a domain.Annotation
		var coordinates string
		var createdAt, updatedAt int64
		var (
			labelID, labelProject, labelName, labelColor, labelCategory sql.NullString
			labelConfidence                                             sql.NullFloat64
			labelAI                                                     sql.NullBool
			labelCreated, labelUpdated                                  sql.NullInt64
		)
		err := rows.Scan(
			&a.ID, &a.ImageID, &a.LabelID, &a.Name, &a.Type, &coordinates, &a.Color, &a.IsAIGenerated, &createdAt, &updatedAt,
			&labelID, &labelProject, &labelName, &labelColor, &labelCategory, &labelConfidence, &labelAI, &labelCreated, &labelUpdated,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(coordinates), &a.Coordinates); err != nil {
			return nil, fmt.Errorf("while decoding coordinates of annotation %s: %w", a.ID, err)
		}
		a.CreatedAt = fromMillis(createdAt)
		a.UpdatedAt = fromMillis(updatedAt)
		if labelID.Valid {
			l := domain.Label{
				ID:            labelID.String,
				ProjectID:     labelProject.String,
				Name:          labelName.String,
				Color:         labelColor.String,
				Category:      labelCategory.String,
				IsAIGenerated: labelAI.Bool,
				CreatedAt:     fromMillis(labelCreated.Int64),
				UpdatedAt:     fromMillis(labelUpdated.Int64),
			}
			if labelConfidence.Valid {
				c := labelConfidence.Float64
				l.Confidence = &c
			}
			a.Label = &l
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *AnnotationRepository) getAnnotation(ctx context.Context, id string) (*domain.Annotation, error) {
	var a domain.Annotation
	var coordinates string
	var createdAt, updatedAt int64
	err := r.db.QueryRowContext(ctx, "SELECT "+annotationColumns+" FROM annotations WHERE id = ?", id).
		Scan(&a.ID, &a.ImageID, &a.LabelID, &a.Name, &a.Type, &coordinates, &a.Color, &a.IsAIGenerated, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(coordinates), &a.Coordinates); err != nil {
		return nil, fmt.Errorf("while decoding coordinates of annotation %s: %w", a.ID, err)
	}
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return &a, nil
}

// CreateAnnotation validates and stores a new annotation
func (r *AnnotationRepository) CreateAnnotation(ctx context.Context, annotation domain.Annotation) error {
	if err := annotation.Validate(); err != nil {
		return err
	}
	coordinates, err := json.Marshal(annotation.Coordinates)
	if err != nil {
		return fmt.Errorf("while encoding coordinates: %w", err)
	}
	if annotation.CreatedAt.IsZero() {
		annotation.CreatedAt = time.Now()
	}
	if annotation.UpdatedAt.IsZero() {
		annotation.UpdatedAt = annotation.CreatedAt
	}
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO annotations ("+annotationColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		annotation.ID, annotation.ImageID, annotation.LabelID, annotation.Name, string(annotation.Type),
		string(coordinates), annotation.Color, boolToInt(annotation.IsAIGenerated),
		toMillis(annotation.CreatedAt), toMillis(annotation.UpdatedAt))
	if err != nil {
		return fmt.Errorf("while creating annotation %s: %w", annotation.ID, err)
	}
	return nil
}

// UpdateAnnotation applies a partial update. The embedded Label of the
// update is ignored, only LabelID is persisted.
func (r *AnnotationRepository) UpdateAnnotation(ctx context.Context, id string, update domain.AnnotationUpdate) error {
	current, err := r.getAnnotation(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("annotation %s: %w", id, domain.ErrNotFound)
	}
	a := update.Apply(*current)
	if err := a.Validate(); err != nil {
		return err
	}
	if update.UpdatedAt == nil {
		a.UpdatedAt = time.Now()
	}
	coordinates, err := json.Marshal(a.Coordinates)
	if err != nil {
		return fmt.Errorf("while encoding coordinates: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		"UPDATE annotations SET label_id = ?, name = ?, type = ?, coordinates = ?, color = ?, is_ai_generated = ?, updated_at = ? WHERE id = ?",
		a.LabelID, a.Name, string(a.Type), string(coordinates), a.Color, boolToInt(a.IsAIGenerated), toMillis(a.UpdatedAt), id)
	if err != nil {
		return fmt.Errorf("while updating annotation %s: %w", id, err)
	}
	return nil
}

// DeleteAnnotation removes an annotation by ID
func (r *AnnotationRepository) DeleteAnnotation(ctx context.Context, id string) error {
	return expectAffected(r.db.ExecContext(ctx, "DELETE FROM annotations WHERE id = ?", id))("annotation", id)
}

// relabel points the given annotations at a label
func (r *AnnotationRepository) relabel(ctx context.Context, labelID string, annotationIDs []string) error {
	now := toMillis(time.Now())
	for _, id := range annotationIDs {
		_, err := r.db.ExecContext(ctx, "UPDATE annotations SET label_id = ?, updated_at = ? WHERE id = ?", labelID, now, id)
		if err != nil {
			return fmt.Errorf("while relabeling annotation %s: %w", id, err)
		}
	}
	return nil
}
