package annotation

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/lewtec/rotulador-studio/internal/api"
	"github.com/lewtec/rotulador-studio/internal/blob"
	"github.com/lewtec/rotulador-studio/internal/browse"
	"github.com/lewtec/rotulador-studio/internal/domain"
	"github.com/lewtec/rotulador-studio/internal/editor"
	"github.com/lewtec/rotulador-studio/internal/labels"
)

// StudioApp holds every backend opened from a Config
type StudioApp struct {
	Config *Config
	Store  domain.Store
	Blobs  blob.Store
	Cache  *browse.Cache

	closeCache func() error
}

// backend openers, swapped in tests
var (
	openStore     = OpenStore
	openBlobs     = OpenBlobs
	openDataCache = OpenDataCache
)

// closeBlobs releases a blob backend that holds resources. The filesystem
// and minio backends hold none.
func closeBlobs(blobs blob.Store) error {
	if c, ok := blobs.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// NewStudioApp opens the storage, blob and cache backends. Close releases
// them. When one fails, the ones already open are released.
func NewStudioApp(ctx context.Context, cfg *Config) (*StudioApp, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("while opening storage: %w", err)
	}
	blobs, err := openBlobs(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("while opening blob storage: %w", err)
	}
	data, closeCache, err := openDataCache(cfg)
	if err != nil {
		if err := closeBlobs(blobs); err != nil {
			log.Printf("StudioApp: closing blob storage: %s", err)
		}
		store.Close()
		return nil, err
	}
	return &StudioApp{
		Config:     cfg,
		Store:      store,
		Blobs:      blobs,
		Cache:      browse.NewCache(store, data, cfg.Browse.PrefetchWindow),
		closeCache: closeCache,
	}, nil
}

// EditorOptions are the session options from the editor section
func (a *StudioApp) EditorOptions() editor.Options {
	return editor.Options{
		MaxHistory: a.Config.Editor.MaxHistory,
		Debounce:   a.Config.Editor.Debounce,
		LabelMatch: a.Config.MatchMode(),
		OnPersistError: func(id string, err error) {
			log.Printf("editor: annotation %s was not saved: %s", id, err)
		},
	}
}

func (a *StudioApp) Resolver() *labels.Resolver {
	return labels.NewResolver(a.Store, a.Config.MatchMode())
}

func (a *StudioApp) Pager(projectID string) *browse.Pager {
	return browse.NewPager(a.Store, projectID, a.Config.Browse.PageSize).WithCache(a.Cache)
}

func (a *StudioApp) Ingester(jobs int) *Ingester {
	return &Ingester{Store: a.Store, Blobs: a.Blobs, Jobs: jobs}
}

// Server builds the HTTP server with request logging
func (a *StudioApp) Server() *api.Server {
	return api.New(api.Config{
		Store:      a.Store,
		Blobs:      a.Blobs,
		Cache:      a.Cache,
		Editor:     a.EditorOptions(),
		PageSize:   a.Config.Browse.PageSize,
		Middleware: []fiber.Handler{HTTPLogger},

		SessionIdleTimeout: a.Config.Server.SessionIdleTimeout,
		MaxSessions:        a.Config.Server.MaxSessions,
	})
}

// Serve listens on the configured address until ctx is done
func (a *StudioApp) Serve(ctx context.Context) error {
	server := a.Server()
	errs := make(chan error, 1)
	go func() {
		errs <- server.Listen(a.Config.Server.Addr)
	}()
	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		log.Printf("http: shutting down")
		if err := server.Shutdown(); err != nil {
			return err
		}
		return <-errs
	}
}

func (a *StudioApp) Close() error {
	a.Cache.Wait()
	if err := a.closeCache(); err != nil {
		log.Printf("StudioApp: closing cache: %s", err)
	}
	if err := closeBlobs(a.Blobs); err != nil {
		log.Printf("StudioApp: closing blob storage: %s", err)
	}
	return a.Store.Close()
}
