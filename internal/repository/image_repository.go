package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lewtec/rotulador-studio/internal/domain"
)

// ImageRepository implements domain.ImageRepository on SQLite
type ImageRepository struct {
	db DBTX
}

// NewImageRepository creates a new ImageRepository
func NewImageRepository(db DBTX) *ImageRepository {
	return &ImageRepository{db: db}
}

const imageColumns = "id, project_id, name, data, width, height, url, created_at"

func scanImage(row interface{ Scan(...interface{}) error }) (domain.ImageData, error) {
	var img domain.ImageData
	var createdAt int64
	err := row.Scan(&img.ID, &img.ProjectID, &img.Name, &img.Data, &img.Width, &img.Height, &img.URL, &createdAt)
	if err != nil {
		return img, err
	}
	img.CreatedAt = fromMillis(createdAt)
	return img, nil
}

func (r *ImageRepository) queryImages(ctx context.Context, query string, args ...interface{}) ([]domain.ImageData, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.ImageData{}
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, img)
	}
	return result, rows.Err()
}

// FetchImageDataByProjectID lists every image of a project ordered by ID
func (r *ImageRepository) FetchImageDataByProjectID(ctx context.Context, projectID string) ([]domain.ImageData, error) {
	images, err := r.queryImages(ctx,
		"SELECT "+imageColumns+" FROM images WHERE project_id = ? ORDER BY id", projectID)
	if err != nil {
		return nil, fmt.Errorf("while listing images of project %s: %w", projectID, err)
	}
	return images, nil
}

// FetchImageDataRange lists a window of a project's images ordered by ID
func (r *ImageRepository) FetchImageDataRange(ctx context.Context, projectID string, offset, limit int) ([]domain.ImageData, error) {
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("invalid range offset=%d limit=%d", offset, limit)
	}
	images, err := r.queryImages(ctx,
		"SELECT "+imageColumns+" FROM images WHERE project_id = ? ORDER BY id LIMIT ? OFFSET ?",
		projectID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("while listing images %d..%d of project %s: %w", offset, offset+limit, projectID, err)
	}
	return images, nil
}

// FetchImagesCount returns how many images a project has
func (r *ImageRepository) FetchImagesCount(ctx context.Context, projectID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM images WHERE project_id = ?", projectID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("while counting images of project %s: %w", projectID, err)
	}
	return count, nil
}

// GetImage retrieves an image by its ID
func (r *ImageRepository) GetImage(ctx context.Context, id string) (*domain.ImageData, error) {
	img, err := scanImage(r.db.QueryRowContext(ctx, "SELECT "+imageColumns+" FROM images WHERE id = ?", id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &img, nil
}

// CreateImage inserts a new image record
func (r *ImageRepository) CreateImage(ctx context.Context, image domain.ImageData) error {
	if image.CreatedAt.IsZero() {
		image.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO images ("+imageColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		image.ID, image.ProjectID, image.Name, image.Data, image.Width, image.Height, image.URL, toMillis(image.CreatedAt))
	if err != nil {
		return fmt.Errorf("while creating image %s: %w", image.ID, err)
	}
	return nil
}

// UpdateImage applies a partial update to an image
func (r *ImageRepository) UpdateImage(ctx context.Context, id string, update domain.ImageUpdate) error {
	current, err := r.GetImage(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("image %s: %w", id, domain.ErrNotFound)
	}
	img := update.Apply(*current)
	_, err = r.db.ExecContext(ctx,
		"UPDATE images SET name = ?, data = ?, width = ?, height = ?, url = ? WHERE id = ?",
		img.Name, img.Data, img.Width, img.Height, img.URL, id)
	if err != nil {
		return fmt.Errorf("while updating image %s: %w", id, err)
	}
	return nil
}

// deleteImage removes the image and the annotations drawn on it
func (r *ImageRepository) deleteImage(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM annotations WHERE image_id = ?", id); err != nil {
		return fmt.Errorf("while deleting annotations of image %s: %w", id, err)
	}
	return expectAffected(r.db.ExecContext(ctx, "DELETE FROM images WHERE id = ?", id))("image", id)
}

// deleteProjectImages removes every image of a project with its annotations
func (r *ImageRepository) deleteProjectImages(ctx context.Context, projectID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM annotations WHERE image_id IN (SELECT id FROM images WHERE project_id = ?)", projectID)
	if err != nil {
		return fmt.Errorf("while deleting annotations of project %s: %w", projectID, err)
	}
	if _, err := r.db.ExecContext(ctx, "DELETE FROM images WHERE project_id = ?", projectID); err != nil {
		return fmt.Errorf("while deleting images of project %s: %w", projectID, err)
	}
	return nil
}
