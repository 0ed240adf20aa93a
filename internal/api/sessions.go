package api

import (
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/lewtec/rotulador-studio/internal/domain"
	"github.com/lewtec/rotulador-studio/internal/editor"
)

const (
	DefaultSessionIdleTimeout = 30 * time.Minute
	DefaultMaxSessions        = 256
)

type sessionEntry struct {
	sess     *editor.Session
	lastUsed time.Time
}

func closeSessionEntry(id string, e *sessionEntry, reason string) {
	if err := e.sess.Close(); err != nil {
		log.Printf("http: closing session %s (%s): %v", id, reason, err)
		return
	}
	log.Printf("http: closed session %s (%s)", id, reason)
}

// sweepLocked removes idle sessions and, when the map is still at the cap,
// the least recently used ones until room is left for one more. The removed
// sessions are returned so they can be closed outside the lock.
func (s *Server) sweepLocked(now time.Time) map[string]*sessionEntry {
	removed := make(map[string]*sessionEntry)
	for id, e := range s.sessions {
		if now.Sub(e.lastUsed) >= s.idleTimeout {
			removed[id] = e
			delete(s.sessions, id)
		}
	}
	if over := len(s.sessions) - s.maxSessions + 1; over > 0 {
		ids := make([]string, 0, len(s.sessions))
		for id := range s.sessions {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool {
			return s.sessions[ids[i]].lastUsed.Before(s.sessions[ids[j]].lastUsed)
		})
		for _, id := range ids[:over] {
			removed[id] = s.sessions[id]
			delete(s.sessions, id)
		}
	}
	return removed
}

// SessionCount returns how many editing sessions are open
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// SessionState is what every session endpoint answers with
type SessionState struct {
	ID          string              `json:"id"`
	Image       *domain.ImageData   `json:"image"`
	Annotations []domain.Annotation `json:"annotations"`
	Labels      []domain.Label      `json:"labels"`
	SelectedID  string              `json:"selectedId,omitempty"`
	CanUndo     bool                `json:"canUndo"`
	CanRedo     bool                `json:"canRedo"`
}

type OpenSessionRequest struct {
	ImageID string `json:"imageId"`
}

type LabelRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type SelectRequest struct {
	ID string `json:"id"`
}

func stateOf(id string, sess *editor.Session) SessionState {
	state := SessionState{
		ID:          id,
		Image:       sess.CurrentImage(),
		Annotations: sess.Annotations(),
		Labels:      sess.Labels(),
		CanUndo:     sess.CanUndo(),
		CanRedo:     sess.CanRedo(),
	}
	if selected := sess.Selected(); selected != nil {
		state.SelectedID = selected.ID
	}
	return state
}

// session resolves :sid and marks it used. An idle session found here is
// closed and reported missing.
func (s *Server) session(c *fiber.Ctx) (string, *editor.Session, bool) {
	id := c.Params("sid")
	now := time.Now()
	s.mu.Lock()
	e, ok := s.sessions[id]
	if ok && now.Sub(e.lastUsed) >= s.idleTimeout {
		delete(s.sessions, id)
		s.mu.Unlock()
		closeSessionEntry(id, e, "idle")
		return id, nil, false
	}
	if !ok {
		s.mu.Unlock()
		return id, nil, false
	}
	e.lastUsed = now
	s.mu.Unlock()
	return id, e.sess, true
}

// withSession resolves :sid, runs fn and answers with the session state.
// Errors returned by fn go through the app error handler.
func (s *Server) withSession(fn func(c *fiber.Ctx, sess *editor.Session) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, sess, ok := s.session(c)
		if !ok {
			return notFound(c, "session", id)
		}
		if err := fn(c, sess); err != nil {
			return err
		}
		return c.JSON(stateOf(id, sess))
	}
}

func (s *Server) loadImage(c *fiber.Ctx, imageID string) (*domain.ImageData, error) {
	if imageID == "" {
		return nil, fiber.NewError(fiber.StatusBadRequest, "imageId is required")
	}
	img, err := s.store.GetImage(c.UserContext(), imageID)
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, fmt.Errorf("image %s: %w", imageID, domain.ErrNotFound)
	}
	return img, nil
}

func (s *Server) openSession(c *fiber.Ctx) error {
	var req OpenSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session request")
	}
	img, err := s.loadImage(c, req.ImageID)
	if err != nil {
		return err
	}

	sess := editor.New(s.store, s.editor)
	if err := sess.Open(c.UserContext(), *img); err != nil {
		sess.Close()
		return err
	}
	id := uuid.NewString()
	now := time.Now()
	s.mu.Lock()
	evicted := s.sweepLocked(now)
	s.sessions[id] = &sessionEntry{sess: sess, lastUsed: now}
	s.mu.Unlock()
	for old, e := range evicted {
		closeSessionEntry(old, e, "evicted")
	}
	log.Printf("http: opened session %s on image %s", id, img.ID)
	return c.Status(fiber.StatusCreated).JSON(stateOf(id, sess))
}

func (s *Server) sessionState(c *fiber.Ctx) error {
	return s.withSession(func(c *fiber.Ctx, sess *editor.Session) error { return nil })(c)
}

func (s *Server) closeSession(c *fiber.Ctx) error {
	id := c.Params("sid")
	s.mu.Lock()
	e, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return notFound(c, "session", id)
	}
	if err := e.sess.Close(); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) switchImage(c *fiber.Ctx) error {
	return s.withSession(func(c *fiber.Ctx, sess *editor.Session) error {
		var req OpenSessionRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid image request")
		}
		img, err := s.loadImage(c, req.ImageID)
		if err != nil {
			return err
		}
		return sess.Open(c.UserContext(), *img)
	})(c)
}

func (s *Server) sessionCreateAnnotation(c *fiber.Ctx) error {
	return s.withSession(func(c *fiber.Ctx, sess *editor.Session) error {
		var a domain.Annotation
		if err := c.BodyParser(&a); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid annotation")
		}
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		return sess.CreateAnnotation(c.UserContext(), a)
	})(c)
}

func (s *Server) sessionUpdateAnnotation(c *fiber.Ctx) error {
	return s.withSession(func(c *fiber.Ctx, sess *editor.Session) error {
		var update domain.AnnotationUpdate
		if err := c.BodyParser(&update); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid annotation update")
		}
		return sess.UpdateAnnotation(c.Params("id"), update)
	})(c)
}

func (s *Server) sessionDeleteAnnotation(c *fiber.Ctx) error {
	return s.withSession(func(c *fiber.Ctx, sess *editor.Session) error {
		return sess.DeleteAnnotation(c.UserContext(), c.Params("id"))
	})(c)
}

func (s *Server) sessionGetOrCreateLabel(c *fiber.Ctx) error {
	return s.withSession(func(c *fiber.Ctx, sess *editor.Session) error {
		var req LabelRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid label request")
		}
		if req.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "label name is required")
		}
		_, err := sess.GetOrCreateLabel(c.UserContext(), req.Name, req.Color)
		return err
	})(c)
}

func (s *Server) sessionSelect(c *fiber.Ctx) error {
	return s.withSession(func(c *fiber.Ctx, sess *editor.Session) error {
		var req SelectRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid selection")
		}
		return sess.Select(req.ID)
	})(c)
}

func (s *Server) sessionUndo(c *fiber.Ctx) error {
	return s.withSession(func(c *fiber.Ctx, sess *editor.Session) error {
		sess.Undo()
		return nil
	})(c)
}

func (s *Server) sessionRedo(c *fiber.Ctx) error {
	return s.withSession(func(c *fiber.Ctx, sess *editor.Session) error {
		sess.Redo()
		return nil
	})(c)
}

func (s *Server) sessionFlush(c *fiber.Ctx) error {
	return s.withSession(func(c *fiber.Ctx, sess *editor.Session) error {
		sess.Flush()
		return nil
	})(c)
}
