package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/lewtec/rotulador-studio/internal/domain"
)

// Store composes the SQLite repositories into a domain.Store. Operations
// spanning several tables run in a transaction.
type Store struct {
	*ProjectRepository
	*ImageRepository
	*LabelRepository
	*AnnotationRepository
	*TaskRepository
	*SettingsRepository
	db *sql.DB
}

// NewStore wraps an already migrated database
func NewStore(db *sql.DB) *Store {
	return &Store{
		ProjectRepository:    NewProjectRepository(db),
		ImageRepository:      NewImageRepository(db),
		LabelRepository:      NewLabelRepository(db),
		AnnotationRepository: NewAnnotationRepository(db),
		TaskRepository:       NewTaskRepository(db),
		SettingsRepository:   NewSettingsRepository(db),
		db:                   db,
	}
}

// Open opens the database file, applies pending migrations and returns the store
func Open(ctx context.Context, filename string) (*Store, error) {
	db, err := OpenDatabase(filename)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("while connecting to '%s': %w", filename, err)
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	log.Printf("sqlite: opened %s", filename)
	return NewStore(db), nil
}

// DB exposes the underlying handle, used by the query command
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("while starting transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// DeleteProject removes a project with its images, annotations and labels.
// Tasks and settings go with the project row through their foreign keys.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := NewImageRepository(tx).deleteProjectImages(ctx, id); err != nil {
			return err
		}
		if err := NewLabelRepository(tx).deleteProjectLabels(ctx, id); err != nil {
			return err
		}
		return NewProjectRepository(tx).deleteProject(ctx, id)
	})
}

// DeleteImage removes an image with its annotations
func (s *Store) DeleteImage(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return NewImageRepository(tx).deleteImage(ctx, id)
	})
}

// CreateLabel stores a label and points the listed annotations at it
func (s *Store) CreateLabel(ctx context.Context, label domain.Label, annotationIDs []string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := NewLabelRepository(tx).insertLabel(ctx, label); err != nil {
			return err
		}
		return NewAnnotationRepository(tx).relabel(ctx, label.ID, annotationIDs)
	})
}

var _ domain.Store = (*Store)(nil)
