package gormstore

import (
	"os"
	"testing"

	"github.com/lewtec/rotulador-studio/internal/domain"
	"github.com/lewtec/rotulador-studio/internal/store/storetest"
)

func TestStore(t *testing.T) {
	dsn := os.Getenv("STUDIO_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("STUDIO_TEST_POSTGRES_DSN not set")
	}
	storetest.Run(t, func(t *testing.T) domain.Store {
		s, err := Open(dsn)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if err := s.db.Exec("TRUNCATE projects, images, labels, annotations, tasks, settings").Error; err != nil {
			t.Fatalf("failed to truncate tables: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}
