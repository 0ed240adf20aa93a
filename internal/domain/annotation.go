package domain

import (
	"context"
	"fmt"
	"time"
)

// ShapeType is the kind of shape an annotation was drawn with
type ShapeType string

const (
	ShapeBox      ShapeType = "box"
	ShapePolygon  ShapeType = "polygon"
	ShapeFreeDraw ShapeType = "freeDraw"
)

// MinPoints returns how many coordinates a complete shape of this type needs
func (s ShapeType) MinPoints() (int, error) {
	switch s {
	case ShapeBox:
		return 2, nil
	case ShapePolygon:
		return 3, nil
	case ShapeFreeDraw:
		return 1, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidShape, string(s))
	}
}

// Point is a 2D coordinate in image space
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Annotation represents a shape drawn over an image and tagged with a label
type Annotation struct {
	ID            string    `json:"id"`
	ImageID       string    `json:"imageId"`
	LabelID       string    `json:"labelId"`
	Label         *Label    `json:"label,omitempty"`
	Name          string    `json:"name"`
	Type          ShapeType `json:"type"`
	Coordinates   []Point   `json:"coordinates"`
	Color         string    `json:"color,omitempty"`
	IsAIGenerated bool      `json:"isAIGenerated,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Validate checks that the annotation carries enough coordinates for its type.
// A box needs exactly two points.
func (a Annotation) Validate() error {
	min, err := a.Type.MinPoints()
	if err != nil {
		return err
	}
	n := len(a.Coordinates)
	if n < min || (a.Type == ShapeBox && n != min) {
		return fmt.Errorf("%w: %s %s has %d points", ErrIncompleteAnnotation, a.Type, a.ID, n)
	}
	return nil
}

// Clone returns a deep copy, so snapshots never share coordinate storage
func (a Annotation) Clone() Annotation {
	c := a
	if a.Coordinates != nil {
		c.Coordinates = make([]Point, len(a.Coordinates))
		copy(c.Coordinates, a.Coordinates)
	}
	if a.Label != nil {
		label := *a.Label
		c.Label = &label
	}
	return c
}

// CloneAnnotations deep copies a whole annotation set
func CloneAnnotations(in []Annotation) []Annotation {
	out := make([]Annotation, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}

// AnnotationUpdate is a partial update; nil fields are left untouched
type AnnotationUpdate struct {
	LabelID       *string    `json:"labelId,omitempty"`
	Label         *Label     `json:"label,omitempty"`
	Name          *string    `json:"name,omitempty"`
	Type          *ShapeType `json:"type,omitempty"`
	Coordinates   []Point    `json:"coordinates,omitempty"`
	Color         *string    `json:"color,omitempty"`
	IsAIGenerated *bool      `json:"isAIGenerated,omitempty"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

// Apply returns a copy of a with the update merged in
func (u AnnotationUpdate) Apply(a Annotation) Annotation {
	out := a.Clone()
	if u.LabelID != nil {
		out.LabelID = *u.LabelID
	}
	if u.Label != nil {
		label := *u.Label
		out.Label = &label
	}
	if u.Name != nil {
		out.Name = *u.Name
	}
	if u.Type != nil {
		out.Type = *u.Type
	}
	if u.Coordinates != nil {
		out.Coordinates = make([]Point, len(u.Coordinates))
		copy(out.Coordinates, u.Coordinates)
	}
	if u.Color != nil {
		out.Color = *u.Color
	}
	if u.IsAIGenerated != nil {
		out.IsAIGenerated = *u.IsAIGenerated
	}
	if u.UpdatedAt != nil {
		out.UpdatedAt = *u.UpdatedAt
	}
	return out
}

// AnnotationRepository defines the interface for annotation storage operations
type AnnotationRepository interface {
	// GetAnnotations lists the annotations of an image, labels denormalized
	GetAnnotations(ctx context.Context, imageID string) ([]Annotation, error)

	// CreateAnnotation stores a new annotation
	CreateAnnotation(ctx context.Context, annotation Annotation) error

	// UpdateAnnotation applies a partial update
	UpdateAnnotation(ctx context.Context, id string, update AnnotationUpdate) error

	// DeleteAnnotation removes an annotation by ID
	DeleteAnnotation(ctx context.Context, id string) error
}
