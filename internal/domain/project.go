package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when mutating an entity that does not exist
	ErrNotFound = errors.New("not found")

	// ErrIncompleteAnnotation is returned for shapes missing coordinates
	ErrIncompleteAnnotation = errors.New("incomplete annotation")

	ErrInvalidShape = errors.New("invalid shape type")
)

// Project groups images, labels and annotations by foreign key
type Project struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"createdAt"`
	LastModified time.Time `json:"lastModified"`
}

// ProjectUpdate is a partial update for a project
type ProjectUpdate struct {
	Name         *string    `json:"name,omitempty"`
	LastModified *time.Time `json:"lastModified,omitempty"`
}

func (u ProjectUpdate) Apply(p Project) Project {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.LastModified != nil {
		p.LastModified = *u.LastModified
	}
	return p
}

// ProjectRepository defines the interface for project storage operations
type ProjectRepository interface {
	ListProjects(ctx context.Context) ([]Project, error)

	// GetProject retrieves a project by ID, nil when missing
	GetProject(ctx context.Context, id string) (*Project, error)

	CreateProject(ctx context.Context, project Project) error
	UpdateProject(ctx context.Context, id string, update ProjectUpdate) error

	// DeleteProject removes a project with its images, labels, annotations,
	// tasks and settings
	DeleteProject(ctx context.Context, id string) error
}

// Store is the persistence port every backend implements
type Store interface {
	ProjectRepository
	ImageRepository
	LabelRepository
	AnnotationRepository
	TaskRepository
	SettingsRepository
	Close() error
}
