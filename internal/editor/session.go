// Package editor keeps the annotation set of the open image consistent with
// storage and with its undo/redo history.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lewtec/rotulador-studio/internal/debounce"
	"github.com/lewtec/rotulador-studio/internal/domain"
	"github.com/lewtec/rotulador-studio/internal/history"
	"github.com/lewtec/rotulador-studio/internal/labels"
	"github.com/lewtec/rotulador-studio/internal/metrics"
)

// DefaultDebounce is how long an annotation must stay quiet before an
// update is written to storage
const DefaultDebounce = 300 * time.Millisecond

var (
	ErrClosed  = errors.New("editor session closed")
	ErrNoImage = errors.New("no image open")
)

type Options struct {
	MaxHistory int
	Debounce   time.Duration
	LabelMatch labels.MatchMode

	// OnPersistError receives debounced writes that failed. They are not retried.
	OnPersistError func(annotationID string, err error)
}

// Session owns the annotations, labels, selection and history of the image
// currently open in one editor. Storage calls run outside the session lock;
// results fetched for an image that is no longer open are dropped.
type Session struct {
	store     domain.Store
	resolver  *labels.Resolver
	debouncer *debounce.Debouncer
	onError   func(string, error)

	mu          sync.Mutex
	image       *domain.ImageData
	annotations []domain.Annotation
	labels      []domain.Label
	selected    string
	history     *history.Stack
	generation  uint64
	closed      bool
}

func New(store domain.Store, opts Options) *Session {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	metrics.SessionOpened()
	return &Session{
		store:       store,
		resolver:    labels.NewResolver(store, opts.LabelMatch),
		debouncer:   debounce.New(opts.Debounce),
		onError:     opts.OnPersistError,
		annotations: []domain.Annotation{},
		labels:      []domain.Label{},
		history:     history.New(opts.MaxHistory),
	}
}

// Open switches the session to image. Pending writes of the previous image
// are flushed, then annotations and project labels are loaded and the
// history restarts from the loaded set.
func (s *Session) Open(ctx context.Context, image domain.ImageData) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	s.debouncer.Flush()

	anns, err := s.store.GetAnnotations(ctx, image.ID)
	if err != nil {
		return fmt.Errorf("while loading annotations of image %s: %w", image.ID, err)
	}
	projectLabels, err := s.store.GetLabelsByProjectID(ctx, image.ProjectID)
	if err != nil {
		return fmt.Errorf("while loading labels of project %s: %w", image.ProjectID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return nil
	}
	img := image
	s.image = &img
	s.annotations = anns
	s.labels = projectLabels
	s.selected = ""
	s.history.Reset(anns)
	return nil
}

// CurrentImage returns a copy of the open image, nil when none is open
func (s *Session) CurrentImage() *domain.ImageData {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.image == nil {
		return nil
	}
	img := *s.image
	return &img
}

func (s *Session) Annotations() []domain.Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneAnnotations(s.annotations)
}

func (s *Session) Labels() []domain.Label {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Label, len(s.labels))
	copy(out, s.labels)
	return out
}

// Select marks an annotation as selected. An empty id clears the selection.
func (s *Session) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" && s.indexOf(id) < 0 {
		return fmt.Errorf("annotation %s: %w", id, domain.ErrNotFound)
	}
	s.selected = id
	return nil
}

// Selected returns the selected annotation, nil when nothing is selected
func (s *Session) Selected() *domain.Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(s.selected); i >= 0 {
		a := s.annotations[i].Clone()
		return &a
	}
	return nil
}

func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

// HistoryLen returns how many snapshots the history holds
func (s *Session) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Len()
}

// Undo restores the previous snapshot. Storage is not touched.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot, ok := s.history.Undo()
	if ok {
		s.replaceLocked(snapshot)
	}
	return ok
}

// Redo restores the next snapshot. Storage is not touched.
func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot, ok := s.history.Redo()
	if ok {
		s.replaceLocked(snapshot)
	}
	return ok
}

func (s *Session) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, a := range s.annotations {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) replaceLocked(anns []domain.Annotation) {
	s.annotations = anns
	if s.indexOf(s.selected) < 0 {
		s.selected = ""
	}
}

// begin returns the open image and the generation of the current state
func (s *Session) begin() (imageID, projectID string, gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", "", 0, ErrClosed
	}
	if s.image != nil {
		imageID, projectID = s.image.ID, s.image.ProjectID
	}
	return imageID, projectID, s.generation, nil
}

// refresh re-reads the full annotation list of the open image, optionally
// the project labels too, and pushes the result onto the history. Pending
// debounced writes are flushed first so the reload carries them.
func (s *Session) refresh(ctx context.Context, imageID, projectID string, gen uint64, withLabels bool) error {
	if imageID == "" {
		return nil
	}
	s.debouncer.Flush()
	start := time.Now()
	anns, err := s.store.GetAnnotations(ctx, imageID)
	metrics.ObserveRefetch(start)
	if err != nil {
		return fmt.Errorf("while reloading annotations of image %s: %w", imageID, err)
	}
	var projectLabels []domain.Label
	if withLabels {
		projectLabels, err = s.store.GetLabelsByProjectID(ctx, projectID)
		if err != nil {
			return fmt.Errorf("while reloading labels of project %s: %w", projectID, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		log.Printf("editor: dropping reload of image %s, session moved on", imageID)
		return nil
	}
	s.replaceLocked(anns)
	if withLabels {
		s.labels = projectLabels
	}
	s.history.Push(anns)
	return nil
}

// CreateAnnotation stores the annotation, then reloads the image's set.
// On error the session state is unchanged.
func (s *Session) CreateAnnotation(ctx context.Context, annotation domain.Annotation) error {
	imageID, projectID, gen, err := s.begin()
	if err != nil {
		return err
	}
	if annotation.ImageID == "" {
		annotation.ImageID = imageID
	}
	if err := s.store.CreateAnnotation(ctx, annotation); err != nil {
		return err
	}
	return s.refresh(ctx, imageID, projectID, gen, false)
}

// DeleteAnnotation removes the annotation from storage, then reloads
func (s *Session) DeleteAnnotation(ctx context.Context, id string) error {
	imageID, projectID, gen, err := s.begin()
	if err != nil {
		return err
	}
	s.debouncer.Cancel(id)
	if err := s.store.DeleteAnnotation(ctx, id); err != nil {
		return err
	}
	return s.refresh(ctx, imageID, projectID, gen, false)
}

// UpdateAnnotation applies update in memory and history right away. The
// write to storage waits until the annotation has been quiet for the
// debounce delay and carries only the latest update.
func (s *Session) UpdateAnnotation(id string, update domain.AnnotationUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("annotation %s: %w", id, domain.ErrNotFound)
	}
	updated := update.Apply(s.annotations[i])
	if err := updated.Validate(); err != nil {
		return err
	}
	if update.UpdatedAt == nil {
		updated.UpdatedAt = time.Now()
	}

	next := domain.CloneAnnotations(s.annotations)
	next[i] = updated
	s.annotations = next
	s.history.Push(next)

	s.debouncer.Schedule(id, func() { s.persist(id, update) })
	return nil
}

func (s *Session) persist(id string, update domain.AnnotationUpdate) {
	err := s.store.UpdateAnnotation(context.Background(), id, update)
	metrics.DebouncedWrite(err)
	if err == nil {
		return
	}
	log.Printf("editor: failed to persist update of annotation %s: %v", id, err)
	if s.onError != nil {
		s.onError(id, err)
	}
}

// CreateLabel stores the label, attaches annotationIDs to it and reloads
func (s *Session) CreateLabel(ctx context.Context, label domain.Label, annotationIDs []string) error {
	imageID, projectID, gen, err := s.begin()
	if err != nil {
		return err
	}
	if label.ProjectID == "" {
		label.ProjectID = projectID
	}
	if err := s.store.CreateLabel(ctx, label, annotationIDs); err != nil {
		return err
	}
	return s.refreshLabels(ctx, imageID, projectID, gen)
}

func (s *Session) UpdateLabel(ctx context.Context, id string, update domain.LabelUpdate) error {
	imageID, projectID, gen, err := s.begin()
	if err != nil {
		return err
	}
	if err := s.store.UpdateLabel(ctx, id, update); err != nil {
		return err
	}
	return s.refreshLabels(ctx, imageID, projectID, gen)
}

func (s *Session) DeleteLabel(ctx context.Context, id string) error {
	imageID, projectID, gen, err := s.begin()
	if err != nil {
		return err
	}
	if err := s.store.DeleteLabel(ctx, id); err != nil {
		return err
	}
	return s.refreshLabels(ctx, imageID, projectID, gen)
}

func (s *Session) refreshLabels(ctx context.Context, imageID, projectID string, gen uint64) error {
	if imageID == "" {
		// nothing to push, but keep the label list current
		projectLabels, err := s.store.GetLabelsByProjectID(ctx, projectID)
		if err != nil {
			return err
		}
		s.mu.Lock()
		if gen == s.generation {
			s.labels = projectLabels
		}
		s.mu.Unlock()
		return nil
	}
	return s.refresh(ctx, imageID, projectID, gen, true)
}

// GetOrCreateLabel resolves a label of the open image's project by name,
// creating it when missing
func (s *Session) GetOrCreateLabel(ctx context.Context, name, color string) (domain.Label, error) {
	_, projectID, gen, err := s.begin()
	if err != nil {
		return domain.Label{}, err
	}
	label, err := s.resolver.GetOrCreate(ctx, projectID, name, color)
	if err != nil {
		return domain.Label{}, err
	}
	projectLabels, err := s.store.GetLabelsByProjectID(ctx, projectID)
	if err != nil {
		return label, fmt.Errorf("while reloading labels of project %s: %w", projectID, err)
	}
	s.mu.Lock()
	if gen == s.generation {
		s.labels = projectLabels
	}
	s.mu.Unlock()
	return label, nil
}

// Flush writes every pending debounced update now
func (s *Session) Flush() {
	s.debouncer.Flush()
}

// Close flushes pending updates and stops the debounce timers. The session
// refuses further work afterwards.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.debouncer.Flush()
	s.debouncer.Stop()
	metrics.SessionClosed()
	return nil
}
