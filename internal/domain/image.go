package domain

import (
	"context"
	"time"
)

// ImageData represents an image of a project. Data holds the encoded payload
// or a blob key, URL is where a client can download it.
type ImageData struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Name      string    `json:"name"`
	Data      string    `json:"data"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ImageUpdate is a partial update for an image
type ImageUpdate struct {
	Name   *string `json:"name,omitempty"`
	Data   *string `json:"data,omitempty"`
	Width  *int    `json:"width,omitempty"`
	Height *int    `json:"height,omitempty"`
	URL    *string `json:"url,omitempty"`
}

func (u ImageUpdate) Apply(img ImageData) ImageData {
	if u.Name != nil {
		img.Name = *u.Name
	}
	if u.Data != nil {
		img.Data = *u.Data
	}
	if u.Width != nil {
		img.Width = *u.Width
	}
	if u.Height != nil {
		img.Height = *u.Height
	}
	if u.URL != nil {
		img.URL = *u.URL
	}
	return img
}

// ImageRepository defines the interface for image storage operations.
// Listing methods return images ordered by ID.
type ImageRepository interface {
	// FetchImageDataByProjectID lists every image of a project
	FetchImageDataByProjectID(ctx context.Context, projectID string) ([]ImageData, error)

	// FetchImageDataRange lists a window of a project's images
	FetchImageDataRange(ctx context.Context, projectID string, offset, limit int) ([]ImageData, error)

	// FetchImagesCount returns the number of images in a project
	FetchImagesCount(ctx context.Context, projectID string) (int, error)

	// GetImage retrieves an image by its ID, nil when missing
	GetImage(ctx context.Context, id string) (*ImageData, error)

	CreateImage(ctx context.Context, image ImageData) error
	UpdateImage(ctx context.Context, id string, update ImageUpdate) error
	DeleteImage(ctx context.Context, id string) error
}
