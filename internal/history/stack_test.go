package history

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/lewtec/rotulador-studio/internal/domain"
)

func snapshot(ids ...string) []domain.Annotation {
	out := make([]domain.Annotation, len(ids))
	for i, id := range ids {
		out[i] = domain.Annotation{
			ID:          id,
			Type:        domain.ShapeBox,
			Coordinates: []domain.Point{{X: 0, Y: 0}, {X: 1, Y: 1}},
		}
	}
	return out
}

func ids(set []domain.Annotation) []string {
	out := make([]string, len(set))
	for i, a := range set {
		out[i] = a.ID
	}
	return out
}

func TestStack_Initial(t *testing.T) {
	s := New(0)
	if s.Len() != 1 || s.Cursor() != 0 {
		t.Fatalf("Len() = %d, Cursor() = %d, want 1, 0", s.Len(), s.Cursor())
	}
	if s.Limit() != MaxHistory {
		t.Errorf("Limit() = %d, want %d", s.Limit(), MaxHistory)
	}
	if s.CanUndo() || s.CanRedo() {
		t.Error("fresh stack should not be undoable or redoable")
	}
	if len(s.Current()) != 0 {
		t.Errorf("Current() = %v, want empty", s.Current())
	}

	t.Run("undo and redo are safe no-ops", func(t *testing.T) {
		if _, ok := s.Undo(); ok {
			t.Error("Undo() ok on fresh stack")
		}
		if _, ok := s.Redo(); ok {
			t.Error("Redo() ok on fresh stack")
		}
		if s.Cursor() != 0 {
			t.Errorf("Cursor() = %d, want 0", s.Cursor())
		}
	})
}

func TestStack_Bound(t *testing.T) {
	s := New(MaxHistory)
	for i := 0; i < 250; i++ {
		s.Push(snapshot(fmt.Sprintf("a%d", i)))
		if s.Len() > MaxHistory {
			t.Fatalf("after %d pushes Len() = %d, want <= %d", i+1, s.Len(), MaxHistory)
		}
		if s.Cursor() < 0 || s.Cursor() >= s.Len() {
			t.Fatalf("after %d pushes Cursor() = %d out of range [0,%d)", i+1, s.Cursor(), s.Len())
		}
	}
	if got := ids(s.Current()); !reflect.DeepEqual(got, []string{"a249"}) {
		t.Errorf("Current() = %v, want [a249]", got)
	}

	t.Run("overflow keeps cursor on the same logical snapshot", func(t *testing.T) {
		s := New(3)
		s.Push(snapshot("a"))
		s.Push(snapshot("b"))
		s.Undo()
		s.Push(snapshot("c"))
		s.Push(snapshot("d"))
		// [], a, c, d -> a, c, d
		if s.Len() != 3 {
			t.Fatalf("Len() = %d, want 3", s.Len())
		}
		s.Undo()
		if got := ids(s.Current()); !reflect.DeepEqual(got, []string{"c"}) {
			t.Errorf("after undo Current() = %v, want [c]", got)
		}
	})
}

func TestStack_UndoRedoInverse(t *testing.T) {
	s := New(MaxHistory)
	s.Push(snapshot("a"))
	s.Push(snapshot("a", "b"))
	s.Push(snapshot("a", "b", "c"))

	for s.CanUndo() {
		before := s.Current()
		s.Undo()
		after, ok := s.Redo()
		if !ok {
			t.Fatal("Redo() after Undo() was not ok")
		}
		if !reflect.DeepEqual(before, after) {
			t.Fatalf("redo after undo = %v, want %v", ids(after), ids(before))
		}
		s.Undo()
	}
	if s.Cursor() != 0 {
		t.Errorf("Cursor() = %d, want 0", s.Cursor())
	}
}

func TestStack_PushTruncatesRedo(t *testing.T) {
	s := New(MaxHistory)
	s.Push(snapshot("a"))
	s.Push(snapshot("a", "b"))
	s.Undo()
	if !s.CanRedo() {
		t.Fatal("CanRedo() = false after undo")
	}
	s.Push(snapshot("a", "c"))
	if s.CanRedo() {
		t.Error("CanRedo() = true after push")
	}
	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}
}

func TestStack_SnapshotsAreImmutable(t *testing.T) {
	s := New(MaxHistory)
	in := snapshot("a")
	s.Push(in)
	in[0].Coordinates[0].X = 42

	out := s.Current()
	if out[0].Coordinates[0].X != 0 {
		t.Fatal("pushed snapshot changed through caller slice")
	}
	out[0].Coordinates[0].X = 42
	if s.Current()[0].Coordinates[0].X != 0 {
		t.Fatal("stored snapshot changed through returned slice")
	}
}

func TestStack_Reset(t *testing.T) {
	s := New(MaxHistory)
	s.Push(snapshot("a"))
	s.Reset(snapshot("x", "y"))
	if s.Len() != 1 || s.CanUndo() || s.CanRedo() {
		t.Fatalf("Reset() left Len() = %d", s.Len())
	}
	if got := ids(s.Current()); !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Errorf("Current() = %v, want [x y]", got)
	}
}
