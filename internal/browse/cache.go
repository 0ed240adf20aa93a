// Package browse implements next/previous navigation and page browsing over
// the images of a project.
package browse

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/lewtec/rotulador-studio/internal/domain"
	"github.com/lewtec/rotulador-studio/internal/metrics"
)

// DefaultPrefetchWindow is how many images are loaded ahead of navigation
const DefaultPrefetchWindow = 10

type projectEntry struct {
	ids    []string
	index  map[string]int
	loaded bool
	// generation changes on every clear; prefetches started before a clear
	// are discarded
	generation uint64
}

// Cache keeps, per project, the ordered image ids and a window of fetched
// image records. It never invalidates itself: callers clear a project after
// adding, removing or reordering its images.
type Cache struct {
	store  domain.ImageRepository
	data   DataCache
	window int

	mu       sync.Mutex
	projects map[string]*projectEntry
	inflight sync.WaitGroup
}

// NewCache creates a cache over store. A nil data cache means an in-process
// one, a window below 1 means DefaultPrefetchWindow.
func NewCache(store domain.ImageRepository, data DataCache, window int) *Cache {
	if data == nil {
		data = NewMemoryDataCache()
	}
	if window < 1 {
		window = DefaultPrefetchWindow
	}
	return &Cache{
		store:    store,
		data:     data,
		window:   window,
		projects: make(map[string]*projectEntry),
	}
}

func (c *Cache) entry(projectID string) *projectEntry {
	e, ok := c.projects[projectID]
	if !ok {
		e = &projectEntry{}
		c.projects[projectID] = e
	}
	return e
}

// ids returns the project's id list, fetching it once
func (c *Cache) ids(ctx context.Context, projectID string) ([]string, map[string]int, uint64, error) {
	c.mu.Lock()
	e := c.entry(projectID)
	if e.loaded {
		defer c.mu.Unlock()
		return e.ids, e.index, e.generation, nil
	}
	gen := e.generation
	c.mu.Unlock()

	images, err := c.store.FetchImageDataByProjectID(ctx, projectID)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("while listing images of project %s: %w", projectID, err)
	}
	metrics.IDListFetched()
	ids := make([]string, len(images))
	index := make(map[string]int, len(images))
	for i, img := range images {
		ids[i] = img.ID
		index[img.ID] = i
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	e = c.entry(projectID)
	if e.generation == gen && !e.loaded {
		e.ids, e.index, e.loaded = ids, index, true
	}
	return ids, index, gen, nil
}

// NextImage returns the id following currentID. When currentID is unknown
// the first image is returned. ok is false at the end of the list. Up to the
// prefetch window of images from the next one on is loaded in the background.
func (c *Cache) NextImage(ctx context.Context, projectID, currentID string) (id string, ok bool, err error) {
	ids, index, gen, err := c.ids(ctx, projectID)
	if err != nil {
		return "", false, err
	}
	i, found := index[currentID]
	if !found {
		i = -1
	}
	next := i + 1
	if next >= len(ids) {
		return "", false, nil
	}
	c.prefetch(projectID, gen, next, c.window)
	return ids[next], true, nil
}

// PreviousImage returns the id preceding currentID; ok is false at the start
// of the list or when currentID is unknown. The prefetch window ends at the
// previous image.
func (c *Cache) PreviousImage(ctx context.Context, projectID, currentID string) (id string, ok bool, err error) {
	ids, index, gen, err := c.ids(ctx, projectID)
	if err != nil {
		return "", false, err
	}
	i, found := index[currentID]
	if !found || i == 0 {
		return "", false, nil
	}
	prev := i - 1
	start := prev - c.window + 1
	if start < 0 {
		start = 0
	}
	c.prefetch(projectID, gen, start, prev-start+1)
	return ids[prev], true, nil
}

func (c *Cache) prefetch(projectID string, gen uint64, offset, limit int) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		ctx := context.Background()
		images, err := c.store.FetchImageDataRange(ctx, projectID, offset, limit)
		if err != nil {
			metrics.PrefetchFailed()
			log.Printf("browse: prefetch of %s [%d,+%d) failed: %v", projectID, offset, limit, err)
			return
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.entry(projectID).generation != gen {
			return
		}
		if err := c.data.Put(ctx, projectID, images); err != nil {
			metrics.PrefetchFailed()
			log.Printf("browse: caching prefetched images of %s failed: %v", projectID, err)
			return
		}
		metrics.Prefetched(len(images))
	}()
}

// Image returns an image record, from the cache when present
func (c *Cache) Image(ctx context.Context, projectID, id string) (*domain.ImageData, error) {
	img, err := c.data.Get(ctx, projectID, id)
	if err != nil {
		log.Printf("browse: cache lookup of %s failed: %v", id, err)
	}
	if img != nil {
		metrics.CacheHit()
		return img, nil
	}
	metrics.CacheMiss()

	c.mu.Lock()
	gen := c.entry(projectID).generation
	c.mu.Unlock()

	img, err = c.store.GetImage(ctx, id)
	if err != nil || img == nil {
		return img, err
	}
	if img.ProjectID != projectID {
		return nil, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entry(projectID).generation == gen {
		if err := c.data.Put(ctx, projectID, []domain.ImageData{*img}); err != nil {
			log.Printf("browse: caching image %s failed: %v", id, err)
		}
	}
	return img, nil
}

// Cached reports whether an image record is in the data cache
func (c *Cache) Cached(ctx context.Context, projectID, id string) bool {
	img, err := c.data.Get(ctx, projectID, id)
	return err == nil && img != nil
}

// ClearImageCache forgets the id list and image records of a project
func (c *Cache) ClearImageCache(ctx context.Context, projectID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(projectID)
	e.generation++
	e.ids, e.index, e.loaded = nil, nil, false
	return c.data.Clear(ctx, projectID)
}

// Wait blocks until every prefetch started so far has finished
func (c *Cache) Wait() {
	c.inflight.Wait()
}
