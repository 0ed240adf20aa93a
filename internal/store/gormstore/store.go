// Package gormstore implements the persistence port on PostgreSQL through GORM.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/lewtec/rotulador-studio/internal/domain"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

// Open connects to PostgreSQL and migrates the schema
func Open(dsn string) (*Store, error) {
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return New(db)
}

// New wraps an open GORM handle and migrates the schema
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&projectModel{}, &imageModel{}, &labelModel{}, &annotationModel{}, &taskModel{}, &settingModel{}); err != nil {
		return nil, fmt.Errorf("while migrating schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
}

func affected(result *gorm.DB, kind, id string) error {
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound(kind, id)
	}
	return nil
}

// Projects

func (s *Store) ListProjects(ctx context.Context) ([]domain.Project, error) {
	var rows []projectModel
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Project, len(rows))
	for i, m := range rows {
		out[i] = m.toDomain()
	}
	return out, nil
}

func (s *Store) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	var m projectModel
	err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p := m.toDomain()
	return &p, nil
}

func (s *Store) CreateProject(ctx context.Context, project domain.Project) error {
	m := fromProject(project)
	return s.db.WithContext(ctx).Create(&m).Error
}

func (s *Store) UpdateProject(ctx context.Context, id string, update domain.ProjectUpdate) error {
	current, err := s.GetProject(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return notFound("project", id)
	}
	m := fromProject(update.Apply(*current))
	return s.db.WithContext(ctx).Save(&m).Error
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		images := tx.Model(&imageModel{}).Select("id").Where("project_id = ?", id)
		if err := tx.Where("image_id IN (?)", images).Delete(&annotationModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&imageModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&labelModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&taskModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&settingModel{}).Error; err != nil {
			return err
		}
		return affected(tx.Where("id = ?", id).Delete(&projectModel{}), "project", id)
	})
}

// Images

func (s *Store) findImages(query *gorm.DB) ([]domain.ImageData, error) {
	var rows []imageModel
	if err := query.Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.ImageData, len(rows))
	for i, m := range rows {
		out[i] = m.toDomain()
	}
	return out, nil
}

func (s *Store) FetchImageDataByProjectID(ctx context.Context, projectID string) ([]domain.ImageData, error) {
	return s.findImages(s.db.WithContext(ctx).Where("project_id = ?", projectID))
}

func (s *Store) FetchImageDataRange(ctx context.Context, projectID string, offset, limit int) ([]domain.ImageData, error) {
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("invalid range offset=%d limit=%d", offset, limit)
	}
	if limit == 0 {
		return []domain.ImageData{}, nil
	}
	return s.findImages(s.db.WithContext(ctx).Where("project_id = ?", projectID).Offset(offset).Limit(limit))
}

func (s *Store) FetchImagesCount(ctx context.Context, projectID string) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&imageModel{}).Where("project_id = ?", projectID).Count(&count).Error
	return int(count), err
}

func (s *Store) GetImage(ctx context.Context, id string) (*domain.ImageData, error) {
	var m imageModel
	err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	img := m.toDomain()
	return &img, nil
}

func (s *Store) CreateImage(ctx context.Context, image domain.ImageData) error {
	if image.CreatedAt.IsZero() {
		image.CreatedAt = time.Now()
	}
	m := fromImage(image)
	return s.db.WithContext(ctx).Create(&m).Error
}

func (s *Store) UpdateImage(ctx context.Context, id string, update domain.ImageUpdate) error {
	current, err := s.GetImage(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return notFound("image", id)
	}
	m := fromImage(update.Apply(*current))
	return s.db.WithContext(ctx).Save(&m).Error
}

func (s *Store) DeleteImage(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("image_id = ?", id).Delete(&annotationModel{}).Error; err != nil {
			return err
		}
		return affected(tx.Where("id = ?", id).Delete(&imageModel{}), "image", id)
	})
}

// Labels

func (s *Store) findLabels(query *gorm.DB) ([]domain.Label, error) {
	var rows []labelModel
	if err := query.Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Label, len(rows))
	for i, m := range rows {
		out[i] = m.toDomain()
	}
	return out, nil
}

func (s *Store) GetLabels(ctx context.Context) ([]domain.Label, error) {
	return s.findLabels(s.db.WithContext(ctx))
}

func (s *Store) GetLabelsByProjectID(ctx context.Context, projectID string) ([]domain.Label, error) {
	return s.findLabels(s.db.WithContext(ctx).Where("project_id = ?", projectID))
}

func (s *Store) CreateLabel(ctx context.Context, label domain.Label, annotationIDs []string) error {
	now := time.Now()
	if label.CreatedAt.IsZero() {
		label.CreatedAt = now
	}
	if label.UpdatedAt.IsZero() {
		label.UpdatedAt = label.CreatedAt
	}
	m := fromLabel(label)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		if len(annotationIDs) == 0 {
			return nil
		}
		return tx.Model(&annotationModel{}).Where("id IN ?", annotationIDs).
			Updates(map[string]interface{}{"label_id": label.ID, "updated_at": now}).Error
	})
}

func (s *Store) UpdateLabel(ctx context.Context, id string, update domain.LabelUpdate) error {
	var m labelModel
	err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("label", id)
	}
	if err != nil {
		return err
	}
	if update.UpdatedAt == nil {
		now := time.Now()
		update.UpdatedAt = &now
	}
	updated := fromLabel(update.Apply(m.toDomain()))
	return s.db.WithContext(ctx).Save(&updated).Error
}

func (s *Store) DeleteLabel(ctx context.Context, id string) error {
	return affected(s.db.WithContext(ctx).Where("id = ?", id).Delete(&labelModel{}), "label", id)
}

// Annotations

func (s *Store) GetAnnotations(ctx context.Context, imageID string) ([]domain.Annotation, error) {
	var rows []annotationModel
	err := s.db.WithContext(ctx).Where("image_id = ?", imageID).Order("created_at, id").Find(&rows).Error
	if err != nil {
		return nil, err
	}

	labelIDs := make([]string, 0, len(rows))
	for _, m := range rows {
		if m.LabelID != "" {
			labelIDs = append(labelIDs, m.LabelID)
		}
	}
	labels := make(map[string]domain.Label)
	if len(labelIDs) > 0 {
		var found []labelModel
		if err := s.db.WithContext(ctx).Where("id IN ?", labelIDs).Find(&found).Error; err != nil {
			return nil, err
		}
		for _, l := range found {
			labels[l.ID] = l.toDomain()
		}
	}

	out := make([]domain.Annotation, 0, len(rows))
	for _, m := range rows {
		a, err := m.toDomain()
		if err != nil {
			return nil, fmt.Errorf("while decoding coordinates of annotation %s: %w", m.ID, err)
		}
		if l, ok := labels[a.LabelID]; ok {
			a.Label = &l
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Store) CreateAnnotation(ctx context.Context, annotation domain.Annotation) error {
	if err := annotation.Validate(); err != nil {
		return err
	}
	if annotation.CreatedAt.IsZero() {
		annotation.CreatedAt = time.Now()
	}
	if annotation.UpdatedAt.IsZero() {
		annotation.UpdatedAt = annotation.CreatedAt
	}
	m, err := fromAnnotation(annotation)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(&m).Error
}

func (s *Store) UpdateAnnotation(ctx context.Context, id string, update domain.AnnotationUpdate) error {
	var m annotationModel
	err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("annotation", id)
	}
	if err != nil {
		return err
	}
	current, err := m.toDomain()
	if err != nil {
		return err
	}
	a := update.Apply(current)
	if err := a.Validate(); err != nil {
		return err
	}
	if update.UpdatedAt == nil {
		a.UpdatedAt = time.Now()
	}
	updated, err := fromAnnotation(a)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Save(&updated).Error
}

func (s *Store) DeleteAnnotation(ctx context.Context, id string) error {
	return affected(s.db.WithContext(ctx).Where("id = ?", id).Delete(&annotationModel{}), "annotation", id)
}

// Tasks

func (s *Store) GetTasksByProjectID(ctx context.Context, projectID string) ([]domain.Task, error) {
	var rows []taskModel
	err := s.db.WithContext(ctx).Where("project_id = ?", projectID).Order("created_at, id").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Task, len(rows))
	for i, m := range rows {
		out[i] = m.toDomain()
	}
	return out, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	var m taskModel
	err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t := m.toDomain()
	return &t, nil
}

// SaveTask upserts on id. A zero CreatedAt keeps the stored one.
func (s *Store) SaveTask(ctx context.Context, task domain.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	now := time.Now()
	columns := []string{"project_id", "name", "description", "assigned_to", "status", "due_date", "updated_at"}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	} else {
		columns = append(columns, "created_at")
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = now
	}
	m := fromTask(task)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(&m).Error
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	return affected(s.db.WithContext(ctx).Where("id = ?", id).Delete(&taskModel{}), "task", id)
}

// Settings

func (s *Store) GetSettings(ctx context.Context, projectID string) ([]domain.Setting, error) {
	var rows []settingModel
	if err := s.db.WithContext(ctx).Where("project_id = ?", projectID).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Setting, len(rows))
	for i, m := range rows {
		out[i] = domain.Setting{ProjectID: m.ProjectID, Key: m.Name, Value: m.Value}
	}
	return out, nil
}

func (s *Store) SaveSetting(ctx context.Context, setting domain.Setting) error {
	m := settingModel{ProjectID: setting.ProjectID, Name: setting.Key, Value: setting.Value}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&m).Error
}

func (s *Store) DeleteSetting(ctx context.Context, projectID, key string) error {
	result := s.db.WithContext(ctx).Where("project_id = ? AND name = ?", projectID, key).Delete(&settingModel{})
	return affected(result, "setting", projectID+"/"+key)
}

var _ domain.Store = (*Store)(nil)
