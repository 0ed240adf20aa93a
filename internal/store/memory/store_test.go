package memory

import (
	"context"
	"testing"

	"github.com/lewtec/rotulador-studio/internal/domain"
	"github.com/lewtec/rotulador-studio/internal/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.Store { return New() })
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	ids := storetest.Seed(t, s, "p", 1)
	if err := s.CreateAnnotation(ctx, storetest.Box("a", ids[0], "")); err != nil {
		t.Fatalf("CreateAnnotation() error = %v", err)
	}

	anns, _ := s.GetAnnotations(ctx, ids[0])
	anns[0].Coordinates[0].X = 1000

	again, _ := s.GetAnnotations(ctx, ids[0])
	if again[0].Coordinates[0].X == 1000 {
		t.Error("caller mutation leaked into the store")
	}
}
