// Package memory implements the persistence port on process memory.
// It backs the "memory" storage backend and most tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lewtec/rotulador-studio/internal/domain"
)

// Store keeps every entity in maps guarded by one RWMutex
type Store struct {
	mu          sync.RWMutex
	projects    map[string]domain.Project
	images      map[string]domain.ImageData
	labels      map[string]domain.Label
	annotations map[string]domain.Annotation
	tasks       map[string]domain.Task
	// project id -> key -> value
	settings map[string]map[string]string
}

func New() *Store {
	return &Store{
		projects:    make(map[string]domain.Project),
		images:      make(map[string]domain.ImageData),
		labels:      make(map[string]domain.Label),
		annotations: make(map[string]domain.Annotation),
		tasks:       make(map[string]domain.Task),
		settings:    make(map[string]map[string]string),
	}
}

func (s *Store) Close() error { return nil }

// Projects

func (s *Store) ListProjects(ctx context.Context) ([]domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *Store) CreateProject(ctx context.Context, project domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[project.ID]; ok {
		return fmt.Errorf("project %s already exists", project.ID)
	}
	s.projects[project.ID] = project
	return nil
}

func (s *Store) UpdateProject(ctx context.Context, id string, update domain.ProjectUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	s.projects[id] = update.Apply(p)
	return nil
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	delete(s.projects, id)
	for imgID, img := range s.images {
		if img.ProjectID == id {
			s.deleteImageLocked(imgID)
		}
	}
	for labelID, l := range s.labels {
		if l.ProjectID == id {
			delete(s.labels, labelID)
		}
	}
	for taskID, t := range s.tasks {
		if t.ProjectID == id {
			delete(s.tasks, taskID)
		}
	}
	delete(s.settings, id)
	return nil
}

// Images

func (s *Store) projectImages(projectID string) []domain.ImageData {
	out := make([]domain.ImageData, 0)
	for _, img := range s.images {
		if img.ProjectID == projectID {
			out = append(out, img)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) FetchImageDataByProjectID(ctx context.Context, projectID string) ([]domain.ImageData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projectImages(projectID), nil
}

func (s *Store) FetchImageDataRange(ctx context.Context, projectID string, offset, limit int) ([]domain.ImageData, error) {
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("invalid range offset=%d limit=%d", offset, limit)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.projectImages(projectID)
	if offset >= len(all) {
		return []domain.ImageData{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (s *Store) FetchImagesCount(ctx context.Context, projectID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, img := range s.images {
		if img.ProjectID == projectID {
			n++
		}
	}
	return n, nil
}

func (s *Store) GetImage(ctx context.Context, id string) (*domain.ImageData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.images[id]
	if !ok {
		return nil, nil
	}
	return &img, nil
}

func (s *Store) CreateImage(ctx context.Context, image domain.ImageData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.images[image.ID]; ok {
		return fmt.Errorf("image %s already exists", image.ID)
	}
	if image.CreatedAt.IsZero() {
		image.CreatedAt = time.Now()
	}
	s.images[image.ID] = image
	return nil
}

func (s *Store) UpdateImage(ctx context.Context, id string, update domain.ImageUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.images[id]
	if !ok {
		return fmt.Errorf("image %s: %w", id, domain.ErrNotFound)
	}
	s.images[id] = update.Apply(img)
	return nil
}

func (s *Store) DeleteImage(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.images[id]; !ok {
		return fmt.Errorf("image %s: %w", id, domain.ErrNotFound)
	}
	s.deleteImageLocked(id)
	return nil
}

func (s *Store) deleteImageLocked(id string) {
	delete(s.images, id)
	for annID, a := range s.annotations {
		if a.ImageID == id {
			delete(s.annotations, annID)
		}
	}
}

// Labels

func sortLabels(out []domain.Label) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
}

func (s *Store) GetLabels(ctx context.Context) ([]domain.Label, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Label, 0, len(s.labels))
	for _, l := range s.labels {
		out = append(out, l)
	}
	sortLabels(out)
	return out, nil
}

func (s *Store) GetLabelsByProjectID(ctx context.Context, projectID string) ([]domain.Label, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Label, 0)
	for _, l := range s.labels {
		if l.ProjectID == projectID {
			out = append(out, l)
		}
	}
	sortLabels(out)
	return out, nil
}

func (s *Store) CreateLabel(ctx context.Context, label domain.Label, annotationIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.labels[label.ID]; ok {
		return fmt.Errorf("label %s already exists", label.ID)
	}
	now := time.Now()
	if label.CreatedAt.IsZero() {
		label.CreatedAt = now
	}
	if label.UpdatedAt.IsZero() {
		label.UpdatedAt = label.CreatedAt
	}
	s.labels[label.ID] = label
	for _, annID := range annotationIDs {
		a, ok := s.annotations[annID]
		if !ok {
			continue
		}
		a.LabelID = label.ID
		a.UpdatedAt = now
		s.annotations[annID] = a
	}
	return nil
}

func (s *Store) UpdateLabel(ctx context.Context, id string, update domain.LabelUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.labels[id]
	if !ok {
		return fmt.Errorf("label %s: %w", id, domain.ErrNotFound)
	}
	if update.UpdatedAt == nil {
		now := time.Now()
		update.UpdatedAt = &now
	}
	s.labels[id] = update.Apply(l)
	return nil
}

func (s *Store) DeleteLabel(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.labels[id]; !ok {
		return fmt.Errorf("label %s: %w", id, domain.ErrNotFound)
	}
	delete(s.labels, id)
	return nil
}

// Annotations

func (s *Store) GetAnnotations(ctx context.Context, imageID string) ([]domain.Annotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Annotation, 0)
	for _, a := range s.annotations {
		if a.ImageID != imageID {
			continue
		}
		a = a.Clone()
		a.Label = nil
		if l, ok := s.labels[a.LabelID]; ok {
			a.Label = &l
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CreateAnnotation(ctx context.Context, annotation domain.Annotation) error {
	if err := annotation.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.annotations[annotation.ID]; ok {
		return fmt.Errorf("annotation %s already exists", annotation.ID)
	}
	now := time.Now()
	if annotation.CreatedAt.IsZero() {
		annotation.CreatedAt = now
	}
	if annotation.UpdatedAt.IsZero() {
		annotation.UpdatedAt = annotation.CreatedAt
	}
	s.annotations[annotation.ID] = annotation.Clone()
	return nil
}

func (s *Store) UpdateAnnotation(ctx context.Context, id string, update domain.AnnotationUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.annotations[id]
	if !ok {
		return fmt.Errorf("annotation %s: %w", id, domain.ErrNotFound)
	}
	updated := update.Apply(a)
	if err := updated.Validate(); err != nil {
		return err
	}
	if update.UpdatedAt == nil {
		updated.UpdatedAt = time.Now()
	}
	s.annotations[id] = updated
	return nil
}

func (s *Store) DeleteAnnotation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.annotations[id]; !ok {
		return fmt.Errorf("annotation %s: %w", id, domain.ErrNotFound)
	}
	delete(s.annotations, id)
	return nil
}

// Tasks

func cloneTask(t domain.Task) domain.Task {
	if t.DueDate != nil {
		due := *t.DueDate
		t.DueDate = &due
	}
	return t
}

func (s *Store) GetTasksByProjectID(ctx context.Context, projectID string) ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Task, 0)
	for _, t := range s.tasks {
		if t.ProjectID == projectID {
			out = append(out, cloneTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	t = cloneTask(t)
	return &t, nil
}

func (s *Store) SaveTask(ctx context.Context, task domain.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if old, ok := s.tasks[task.ID]; ok && task.CreatedAt.IsZero() {
		task.CreatedAt = old.CreatedAt
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = now
	}
	s.tasks[task.ID] = cloneTask(task)
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	delete(s.tasks, id)
	return nil
}

// Settings

func (s *Store) GetSettings(ctx context.Context, projectID string) ([]domain.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	values := s.settings[projectID]
	out := make([]domain.Setting, 0, len(values))
	for key, value := range values {
		out = append(out, domain.Setting{ProjectID: projectID, Key: key, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) SaveSetting(ctx context.Context, setting domain.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, ok := s.settings[setting.ProjectID]
	if !ok {
		values = make(map[string]string)
		s.settings[setting.ProjectID] = values
	}
	values[setting.Key] = setting.Value
	return nil
}

func (s *Store) DeleteSetting(ctx context.Context, projectID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.settings[projectID][key]; !ok {
		return fmt.Errorf("setting %s of project %s: %w", key, projectID, domain.ErrNotFound)
	}
	delete(s.settings[projectID], key)
	return nil
}

var _ domain.Store = (*Store)(nil)
