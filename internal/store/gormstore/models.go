package gormstore

import (
	"encoding/json"
	"time"

	"github.com/lewtec/rotulador-studio/internal/domain"
)

type projectModel struct {
	ID           string `gorm:"primaryKey"`
	Name         string `gorm:"not null"`
	CreatedAt    time.Time
	LastModified time.Time
}

func (projectModel) TableName() string { return "projects" }

type imageModel struct {
	ID        string `gorm:"primaryKey"`
	ProjectID string `gorm:"not null;index:idx_images_project_id"`
	Name      string `gorm:"not null"`
	Data      string
	Width     int
	Height    int
	URL       string
	CreatedAt time.Time
}

func (imageModel) TableName() string { return "images" }

type labelModel struct {
	ID            string `gorm:"primaryKey"`
	ProjectID     string `gorm:"index"`
	Name          string `gorm:"not null;index"`
	Color         string
	Category      string
	Confidence    *float64
	IsAIGenerated bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (labelModel) TableName() string { return "labels" }

type annotationModel struct {
	ID            string `gorm:"primaryKey"`
	ImageID       string `gorm:"not null;index"`
	LabelID       string `gorm:"index"`
	Name          string
	Type          string `gorm:"not null"`
	Coordinates   string `gorm:"type:text;not null"`
	Color         string
	IsAIGenerated bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (annotationModel) TableName() string { return "annotations" }

type taskModel struct {
	ID          string `gorm:"primaryKey"`
	ProjectID   string `gorm:"not null;index:idx_tasks_project_id"`
	Name        string
	Description string
	AssignedTo  string
	Status      string `gorm:"not null;default:pending"`
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (taskModel) TableName() string { return "tasks" }

type settingModel struct {
	ProjectID string `gorm:"primaryKey"`
	Name      string `gorm:"primaryKey"`
	Value     string
}

func (settingModel) TableName() string { return "settings" }

func fromProject(p domain.Project) projectModel {
	return projectModel{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt, LastModified: p.LastModified}
}

func (m projectModel) toDomain() domain.Project {
	return domain.Project{ID: m.ID, Name: m.Name, CreatedAt: m.CreatedAt, LastModified: m.LastModified}
}

func fromImage(img domain.ImageData) imageModel {
	return imageModel{
		ID:        img.ID,
		ProjectID: img.ProjectID,
		Name:      img.Name,
		Data:      img.Data,
		Width:     img.Width,
		Height:    img.Height,
		URL:       img.URL,
		CreatedAt: img.CreatedAt,
	}
}

func (m imageModel) toDomain() domain.ImageData {
	return domain.ImageData{
		ID:        m.ID,
		ProjectID: m.ProjectID,
		Name:      m.Name,
		Data:      m.Data,
		Width:     m.Width,
		Height:    m.Height,
		URL:       m.URL,
		CreatedAt: m.CreatedAt,
	}
}

func fromLabel(l domain.Label) labelModel {
	return labelModel{
		ID:            l.ID,
		ProjectID:     l.ProjectID,
		Name:          l.Name,
		Color:         l.Color,
		Category:      l.Category,
		Confidence:    l.Confidence,
		IsAIGenerated: l.IsAIGenerated,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
	}
}

func (m labelModel) toDomain() domain.Label {
	return domain.Label{
		ID:            m.ID,
		ProjectID:     m.ProjectID,
		Name:          m.Name,
		Color:         m.Color,
		Category:      m.Category,
		Confidence:    m.Confidence,
		IsAIGenerated: m.IsAIGenerated,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func fromAnnotation(a domain.Annotation) (annotationModel, error) {
	coordinates, err := json.Marshal(a.Coordinates)
	if err != nil {
		return annotationModel{}, err
	}
	return annotationModel{
		ID:            a.ID,
		ImageID:       a.ImageID,
		LabelID:       a.LabelID,
		Name:          a.Name,
		Type:          string(a.Type),
		Coordinates:   string(coordinates),
		Color:         a.Color,
		IsAIGenerated: a.IsAIGenerated,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}, nil
}

func (m annotationModel) toDomain() (domain.Annotation, error) {
	a := domain.Annotation{
		ID:            m.ID,
		ImageID:       m.ImageID,
		LabelID:       m.LabelID,
		Name:          m.Name,
		Type:          domain.ShapeType(m.Type),
		Color:         m.Color,
		IsAIGenerated: m.IsAIGenerated,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(m.Coordinates), &a.Coordinates); err != nil {
		return a, err
	}
	return a, nil
}

func fromTask(t domain.Task) taskModel {
	return taskModel{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		Name:        t.Name,
		Description: t.Description,
		AssignedTo:  t.AssignedTo,
		Status:      string(t.Status),
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (m taskModel) toDomain() domain.Task {
	return domain.Task{
		ID:          m.ID,
		ProjectID:   m.ProjectID,
		Name:        m.Name,
		Description: m.Description,
		AssignedTo:  m.AssignedTo,
		Status:      domain.TaskStatus(m.Status),
		DueDate:     m.DueDate,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
