package browse

import (
	"context"
	"fmt"
	"sync"

	"github.com/lewtec/rotulador-studio/internal/domain"
	"golang.org/x/sync/errgroup"
)

const DefaultPageSize = 20

// PageState is a snapshot of the page being browsed
type PageState struct {
	Images          []domain.ImageData `json:"images"`
	PageIndex       int                `json:"pageIndex"`
	PageSize        int                `json:"pageSize"`
	TotalCount      int                `json:"totalCount"`
	PageCount       int                `json:"pageCount"`
	HasNextPage     bool               `json:"hasNextPage"`
	HasPreviousPage bool               `json:"hasPreviousPage"`
}

// Pager browses a project's images one page at a time. Every page change
// fetches the page and the total count again.
type Pager struct {
	store     domain.ImageRepository
	projectID string
	cache     *Cache

	mu        sync.Mutex
	pageIndex int
	pageSize  int
	images    []domain.ImageData
	total     int
}

func NewPager(store domain.ImageRepository, projectID string, pageSize int) *Pager {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return &Pager{
		store:     store,
		projectID: projectID,
		pageSize:  pageSize,
		images:    []domain.ImageData{},
	}
}

// WithCache makes deletions through the pager clear the project's
// navigation cache
func (p *Pager) WithCache(c *Cache) *Pager {
	p.cache = c
	return p
}

func pageCount(total, size int) int {
	if size < 1 {
		return 0
	}
	return (total + size - 1) / size
}

// LoadPage fetches the current page and the total count concurrently
func (p *Pager) LoadPage(ctx context.Context) error {
	p.mu.Lock()
	index, size := p.pageIndex, p.pageSize
	p.mu.Unlock()

	var images []domain.ImageData
	var total int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		images, err = p.store.FetchImageDataRange(gctx, p.projectID, index*size, size)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = p.store.FetchImagesCount(gctx, p.projectID)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("while loading page %d of project %s: %w", index, p.projectID, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pageIndex == index && p.pageSize == size {
		p.images = images
		p.total = total
	}
	return nil
}

// SetPageIndex moves to a page and loads it. A failed load keeps the
// previous page.
func (p *Pager) SetPageIndex(ctx context.Context, index int) error {
	if index < 0 {
		index = 0
	}
	p.mu.Lock()
	prevIndex, size := p.pageIndex, p.pageSize
	p.pageIndex = index
	p.mu.Unlock()
	return p.loadOrRevert(ctx, index, size, prevIndex, size)
}

// SetPageSize changes the page size and goes back to the first page
func (p *Pager) SetPageSize(ctx context.Context, size int) error {
	if size < 1 {
		return fmt.Errorf("invalid page size %d", size)
	}
	p.mu.Lock()
	prevIndex, prevSize := p.pageIndex, p.pageSize
	p.pageSize = size
	p.pageIndex = 0
	p.mu.Unlock()
	return p.loadOrRevert(ctx, 0, size, prevIndex, prevSize)
}

func (p *Pager) loadOrRevert(ctx context.Context, index, size, prevIndex, prevSize int) error {
	err := p.LoadPage(ctx)
	if err == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	// only undo our own move
	if p.pageIndex == index && p.pageSize == size {
		p.pageIndex, p.pageSize = prevIndex, prevSize
	}
	return err
}

func (p *Pager) NextPage(ctx context.Context) error {
	state := p.State()
	if !state.HasNextPage {
		return nil
	}
	return p.SetPageIndex(ctx, state.PageIndex+1)
}

func (p *Pager) PreviousPage(ctx context.Context) error {
	state := p.State()
	if !state.HasPreviousPage {
		return nil
	}
	return p.SetPageIndex(ctx, state.PageIndex-1)
}

func (p *Pager) FirstPage(ctx context.Context) error {
	return p.SetPageIndex(ctx, 0)
}

func (p *Pager) LastPage(ctx context.Context) error {
	state := p.State()
	last := state.PageCount - 1
	if last < 0 {
		last = 0
	}
	return p.SetPageIndex(ctx, last)
}

// Refresh reloads the current page
func (p *Pager) Refresh(ctx context.Context) error {
	return p.LoadPage(ctx)
}

// DeleteImage deletes an image and drops it from the loaded page without
// reloading
func (p *Pager) DeleteImage(ctx context.Context, id string) error {
	if err := p.store.DeleteImage(ctx, id); err != nil {
		return err
	}
	if p.cache != nil {
		if err := p.cache.ClearImageCache(ctx, p.projectID); err != nil {
			return err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	kept := make([]domain.ImageData, 0, len(p.images))
	for _, img := range p.images {
		if img.ID != id {
			kept = append(kept, img)
		}
	}
	if len(kept) != len(p.images) && p.total > 0 {
		p.total--
	}
	p.images = kept
	return nil
}

// UpdateImage updates an image and patches the loaded page in place
func (p *Pager) UpdateImage(ctx context.Context, id string, update domain.ImageUpdate) error {
	if err := p.store.UpdateImage(ctx, id, update); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, img := range p.images {
		if img.ID == id {
			p.images[i] = update.Apply(img)
		}
	}
	return nil
}

func (p *Pager) State() PageState {
	p.mu.Lock()
	defer p.mu.Unlock()
	images := make([]domain.ImageData, len(p.images))
	copy(images, p.images)
	count := pageCount(p.total, p.pageSize)
	return PageState{
		Images:          images,
		PageIndex:       p.pageIndex,
		PageSize:        p.pageSize,
		TotalCount:      p.total,
		PageCount:       count,
		HasNextPage:     p.pageIndex < count-1,
		HasPreviousPage: p.pageIndex > 0,
	}
}
