package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidTaskStatus = errors.New("invalid task status")

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskReview     TaskStatus = "review"
	TaskArchived   TaskStatus = "archived"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted, TaskReview, TaskArchived:
		return true
	}
	return false
}

// Task is a unit of annotation work inside a project
type Task struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"projectId"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	AssignedTo  string     `json:"assignedTo,omitempty"`
	Status      TaskStatus `json:"status"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Validate checks the status. An empty status means pending.
func (t *Task) Validate() error {
	if t.Status == "" {
		t.Status = TaskPending
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTaskStatus, string(t.Status))
	}
	return nil
}

// TaskRepository defines the interface for task storage operations
type TaskRepository interface {
	// GetTasksByProjectID lists the tasks of a project, oldest first
	GetTasksByProjectID(ctx context.Context, projectID string) ([]Task, error)

	// GetTask retrieves a task by ID, nil when missing
	GetTask(ctx context.Context, id string) (*Task, error)

	// SaveTask inserts the task or replaces the one with the same ID
	SaveTask(ctx context.Context, task Task) error

	DeleteTask(ctx context.Context, id string) error
}

// Setting is one key/value pair of a project's settings
type Setting struct {
	ProjectID string `json:"projectId"`
	Key       string `json:"key"`
	Value     string `json:"value"`
}

type SettingsRepository interface {
	// GetSettings lists a project's settings ordered by key
	GetSettings(ctx context.Context, projectID string) ([]Setting, error)

	// SaveSetting inserts or replaces the value of a key
	SaveSetting(ctx context.Context, setting Setting) error

	DeleteSetting(ctx context.Context, projectID, key string) error
}
