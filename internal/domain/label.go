package domain

import (
	"context"
	"time"
)

// Label is a class shared by the annotations of a project
type Label struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"projectId"`
	Name          string    `json:"name"`
	Color         string    `json:"color"`
	Category      string    `json:"category,omitempty"`
	Confidence    *float64  `json:"confidence,omitempty"`
	IsAIGenerated bool      `json:"isAIGenerated,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// LabelUpdate is a partial update for a label
type LabelUpdate struct {
	Name          *string    `json:"name,omitempty"`
	Color         *string    `json:"color,omitempty"`
	Category      *string    `json:"category,omitempty"`
	Confidence    *float64   `json:"confidence,omitempty"`
	IsAIGenerated *bool      `json:"isAIGenerated,omitempty"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

func (u LabelUpdate) Apply(l Label) Label {
	if u.Name != nil {
		l.Name = *u.Name
	}
	if u.Color != nil {
		l.Color = *u.Color
	}
	if u.Category != nil {
		l.Category = *u.Category
	}
	if u.Confidence != nil {
		c := *u.Confidence
		l.Confidence = &c
	}
	if u.IsAIGenerated != nil {
		l.IsAIGenerated = *u.IsAIGenerated
	}
	if u.UpdatedAt != nil {
		l.UpdatedAt = *u.UpdatedAt
	}
	return l
}

// LabelRepository defines the interface for label storage operations
type LabelRepository interface {
	// GetLabels lists every label known to the store
	GetLabels(ctx context.Context) ([]Label, error)

	// GetLabelsByProjectID lists the labels of one project
	GetLabelsByProjectID(ctx context.Context, projectID string) ([]Label, error)

	// CreateLabel stores a label and points the given annotations at it
	CreateLabel(ctx context.Context, label Label, annotationIDs []string) error

	UpdateLabel(ctx context.Context, id string, update LabelUpdate) error

	// DeleteLabel removes a label; annotations keep their dangling labelId
	DeleteLabel(ctx context.Context, id string) error
}
