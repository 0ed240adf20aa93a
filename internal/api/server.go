// Package api exposes the persistence port, editing sessions and image
// navigation over HTTP.
package api

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/lewtec/rotulador-studio/internal/blob"
	"github.com/lewtec/rotulador-studio/internal/browse"
	"github.com/lewtec/rotulador-studio/internal/domain"
	"github.com/lewtec/rotulador-studio/internal/editor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Error codes carried in error bodies, so clients can rebuild sentinel errors
const (
	CodeNotFound   = "not_found"
	CodeIncomplete = "incomplete_annotation"
	CodeInvalid    = "invalid_shape"
	CodeTaskStatus = "invalid_task_status"
	CodeBadRequest = "bad_request"
	CodeInternal   = "internal"
)

type Config struct {
	Store    domain.Store
	Blobs    blob.Store
	Cache    *browse.Cache
	Editor   editor.Options
	PageSize int

	// SessionIdleTimeout closes editing sessions nobody touched for that
	// long. MaxSessions caps the open ones; the least recently used goes
	// first. Zero means the defaults.
	SessionIdleTimeout time.Duration
	MaxSessions        int

	// Middleware runs before every route
	Middleware []fiber.Handler
}

type Server struct {
	store    domain.Store
	blobs    blob.Store
	cache    *browse.Cache
	editor   editor.Options
	pageSize int
	app      *fiber.App

	idleTimeout time.Duration
	maxSessions int

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

func New(cfg Config) *Server {
	if cfg.Cache == nil {
		cfg.Cache = browse.NewCache(cfg.Store, nil, 0)
	}
	if cfg.PageSize < 1 {
		cfg.PageSize = browse.DefaultPageSize
	}
	if cfg.SessionIdleTimeout <= 0 {
		cfg.SessionIdleTimeout = DefaultSessionIdleTimeout
	}
	if cfg.MaxSessions < 1 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	s := &Server{
		store:       cfg.Store,
		blobs:       cfg.Blobs,
		cache:       cfg.Cache,
		editor:      cfg.Editor,
		pageSize:    cfg.PageSize,
		idleTimeout: cfg.SessionIdleTimeout,
		maxSessions: cfg.MaxSessions,
		sessions:    make(map[string]*sessionEntry),
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "rotulador-studio",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	for _, m := range cfg.Middleware {
		s.app.Use(m)
	}
	s.routes()
	return s
}

func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) routes() {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	s.app.Get("/help", s.help)

	api := s.app.Group("/api")

	api.Get("/projects", s.listProjects)
	api.Post("/projects", s.createProject)
	api.Get("/projects/:id", s.getProject)
	api.Patch("/projects/:id", s.updateProject)
	api.Delete("/projects/:id", s.deleteProject)
	api.Get("/projects/:id/images", s.listImages)
	api.Get("/projects/:id/images/count", s.countImages)
	api.Get("/projects/:id/images/:imageId/next", s.nextImage)
	api.Get("/projects/:id/images/:imageId/previous", s.previousImage)
	api.Get("/projects/:id/page", s.page)
	api.Get("/projects/:id/labels", s.projectLabels)
	api.Delete("/projects/:id/cache", s.clearCache)
	api.Get("/projects/:id/tasks", s.listTasks)
	api.Get("/projects/:id/settings", s.listSettings)
	api.Put("/projects/:id/settings/:key", s.saveSetting)
	api.Delete("/projects/:id/settings/:key", s.deleteSetting)

	api.Post("/images", s.createImage)
	api.Get("/images/:id", s.getImage)
	api.Patch("/images/:id", s.updateImage)
	api.Delete("/images/:id", s.deleteImage)
	api.Get("/images/:id/blob", s.imageBlob)
	api.Get("/images/:id/annotations", s.listAnnotations)

	api.Post("/annotations", s.createAnnotation)
	api.Patch("/annotations/:id", s.updateAnnotation)
	api.Delete("/annotations/:id", s.deleteAnnotation)

	api.Get("/labels", s.listLabels)
	api.Post("/labels", s.createLabel)
	api.Patch("/labels/:id", s.updateLabel)
	api.Delete("/labels/:id", s.deleteLabel)

	api.Get("/tasks/:id", s.getTask)
	api.Put("/tasks/:id", s.saveTask)
	api.Delete("/tasks/:id", s.deleteTask)

	api.Post("/sessions", s.openSession)
	api.Get("/sessions/:sid", s.sessionState)
	api.Delete("/sessions/:sid", s.closeSession)
	api.Put("/sessions/:sid/image", s.switchImage)
	api.Post("/sessions/:sid/annotations", s.sessionCreateAnnotation)
	api.Patch("/sessions/:sid/annotations/:id", s.sessionUpdateAnnotation)
	api.Delete("/sessions/:sid/annotations/:id", s.sessionDeleteAnnotation)
	api.Post("/sessions/:sid/labels", s.sessionGetOrCreateLabel)
	api.Post("/sessions/:sid/select", s.sessionSelect)
	api.Post("/sessions/:sid/undo", s.sessionUndo)
	api.Post("/sessions/:sid/redo", s.sessionRedo)
	api.Post("/sessions/:sid/flush", s.sessionFlush)
}

// Listen serves until Shutdown
func (s *Server) Listen(addr string) error {
	log.Printf("http: listening on %s", addr)
	return s.app.Listen(addr)
}

// Shutdown closes every editing session, flushing pending writes, and stops
// the HTTP server
func (s *Server) Shutdown() error {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*sessionEntry)
	s.mu.Unlock()
	for id, e := range sessions {
		closeSessionEntry(id, e, "shutdown")
	}
	return s.app.Shutdown()
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := CodeBadRequest
		switch {
		case fe.Code == fiber.StatusNotFound:
			code = CodeNotFound
		case fe.Code >= fiber.StatusInternalServerError:
			code = CodeInternal
		}
		return c.Status(fe.Code).JSON(fiber.Map{
			"error": true, "message": fe.Message, "code": code,
		})
	}
	return fail(c, err)
}

// fail maps domain errors to HTTP statuses
func fail(c *fiber.Ctx, err error) error {
	status, code := fiber.StatusInternalServerError, CodeInternal
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, code = fiber.StatusNotFound, CodeNotFound
	case errors.Is(err, domain.ErrIncompleteAnnotation):
		status, code = fiber.StatusUnprocessableEntity, CodeIncomplete
	case errors.Is(err, domain.ErrInvalidShape):
		status, code = fiber.StatusUnprocessableEntity, CodeInvalid
	case errors.Is(err, domain.ErrInvalidTaskStatus):
		status, code = fiber.StatusUnprocessableEntity, CodeTaskStatus
	case errors.Is(err, editor.ErrClosed):
		status, code = fiber.StatusGone, CodeNotFound
	}
	if status == fiber.StatusInternalServerError {
		log.Printf("http: %s %s failed: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(fiber.Map{
		"error": true, "message": err.Error(), "code": code,
	})
}

func badRequest(c *fiber.Ctx, message string, err error) error {
	body := fiber.Map{"error": true, "message": message, "code": CodeBadRequest}
	if err != nil {
		body["details"] = err.Error()
	}
	return c.Status(fiber.StatusBadRequest).JSON(body)
}

func notFound(c *fiber.Ctx, kind, id string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": true, "message": kind + " " + id + " not found", "code": CodeNotFound,
	})
}
