// Package history keeps a bounded linear undo/redo log of annotation sets.
package history

import (
	"github.com/lewtec/rotulador-studio/internal/domain"
)

// MaxHistory is the default number of snapshots kept per image
const MaxHistory = 100

// Stack holds full annotation-set snapshots plus a cursor.
// It always holds at least one snapshot and cursor is in [0, Len()-1].
// Stack is not safe for concurrent use; the owning session serializes access.
type Stack struct {
	entries [][]domain.Annotation
	cursor  int
	limit   int
}

// New creates a stack starting at a single empty snapshot.
// A limit below 1 falls back to MaxHistory.
func New(limit int) *Stack {
	if limit < 1 {
		limit = MaxHistory
	}
	return &Stack{
		entries: [][]domain.Annotation{{}},
		limit:   limit,
	}
}

// Reset drops every snapshot and starts over from initial
func (s *Stack) Reset(initial []domain.Annotation) {
	s.entries = [][]domain.Annotation{domain.CloneAnnotations(initial)}
	s.cursor = 0
}

// Push records a new snapshot after the cursor. Redoable snapshots are
// discarded; when the bound is exceeded the oldest snapshot goes away.
func (s *Stack) Push(snapshot []domain.Annotation) {
	s.entries = append(s.entries[:s.cursor+1], domain.CloneAnnotations(snapshot))
	s.cursor = len(s.entries) - 1
	for len(s.entries) > s.limit {
		s.entries[0] = nil
		s.entries = s.entries[1:]
		s.cursor--
	}
}

// Undo moves the cursor back and returns the snapshot it lands on.
// ok is false when there is nothing to undo.
func (s *Stack) Undo() (snapshot []domain.Annotation, ok bool) {
	if !s.CanUndo() {
		return s.Current(), false
	}
	s.cursor--
	return s.Current(), true
}

// Redo moves the cursor forward and returns the snapshot it lands on.
// ok is false when there is nothing to redo.
func (s *Stack) Redo() (snapshot []domain.Annotation, ok bool) {
	if !s.CanRedo() {
		return s.Current(), false
	}
	s.cursor++
	return s.Current(), true
}

// Current returns a copy of the snapshot under the cursor
func (s *Stack) Current() []domain.Annotation {
	return domain.CloneAnnotations(s.entries[s.cursor])
}

func (s *Stack) CanUndo() bool { return s.cursor > 0 }
func (s *Stack) CanRedo() bool { return s.cursor < len(s.entries)-1 }
func (s *Stack) Len() int      { return len(s.entries) }
func (s *Stack) Cursor() int   { return s.cursor }
func (s *Stack) Limit() int    { return s.limit }
