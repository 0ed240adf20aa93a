package browse

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/lewtec/rotulador-studio/internal/domain"
	"github.com/lewtec/rotulador-studio/internal/store/memory"
	"github.com/lewtec/rotulador-studio/internal/store/storetest"
)

type countingStore struct {
	*memory.Store

	mu         sync.Mutex
	listCalls  int
	rangeCalls int
	failRange  error
	gate       chan struct{}
}

func (c *countingStore) FetchImageDataByProjectID(ctx context.Context, projectID string) ([]domain.ImageData, error) {
	c.mu.Lock()
	c.listCalls++
	c.mu.Unlock()
	return c.Store.FetchImageDataByProjectID(ctx, projectID)
}

func (c *countingStore) FetchImageDataRange(ctx context.Context, projectID string, offset, limit int) ([]domain.ImageData, error) {
	c.mu.Lock()
	c.rangeCalls++
	fail, gate := c.failRange, c.gate
	c.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if fail != nil {
		return nil, fail
	}
	return c.Store.FetchImageDataRange(ctx, projectID, offset, limit)
}

func (c *countingStore) ListCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listCalls
}

func setupCache(t *testing.T, n, window int) (*Cache, *countingStore, []string) {
	t.Helper()
	store := &countingStore{Store: memory.New()}
	ids := storetest.Seed(t, store, "p", n)
	return NewCache(store, nil, window), store, ids
}

func TestCache_MonotonicNavigation(t *testing.T) {
	c, store, ids := setupCache(t, 25, 0)
	ctx := context.Background()

	visited := []string{ids[0]}
	current := ids[0]
	for {
		next, ok, err := c.NextImage(ctx, "p", current)
		if err != nil {
			t.Fatalf("NextImage() error = %v", err)
		}
		if !ok {
			if next != "" {
				t.Errorf("NextImage() at the end = %q, want empty", next)
			}
			break
		}
		visited = append(visited, next)
		current = next
	}
	if len(visited) != len(ids) {
		t.Fatalf("visited %d images, want %d", len(visited), len(ids))
	}
	for i := range ids {
		if visited[i] != ids[i] {
			t.Errorf("step %d = %s, want %s", i, visited[i], ids[i])
		}
	}

	var back []string
	for {
		prev, ok, err := c.PreviousImage(ctx, "p", current)
		if err != nil {
			t.Fatalf("PreviousImage() error = %v", err)
		}
		if !ok {
			break
		}
		back = append(back, prev)
		current = prev
	}
	if len(back) != len(ids)-1 || back[0] != ids[len(ids)-2] || back[len(back)-1] != ids[0] {
		t.Errorf("backwards walk = %v", back)
	}
	c.Wait()

	if got := store.ListCalls(); got != 1 {
		t.Errorf("id list fetched %d times, want 1", got)
	}
}

func TestCache_Prefetch(t *testing.T) {
	c, _, ids := setupCache(t, 30, 10)
	ctx := context.Background()

	if _, _, err := c.NextImage(ctx, "p", ids[0]); err != nil {
		t.Fatalf("NextImage() error = %v", err)
	}
	c.Wait()
	for i := 1; i <= 10; i++ {
		if !c.Cached(ctx, "p", ids[i]) {
			t.Errorf("image %d not prefetched", i)
		}
	}
	if c.Cached(ctx, "p", ids[11]) {
		t.Error("prefetch went past the window")
	}

	if _, _, err := c.PreviousImage(ctx, "p", ids[25]); err != nil {
		t.Fatalf("PreviousImage() error = %v", err)
	}
	c.Wait()
	for i := 15; i <= 24; i++ {
		if !c.Cached(ctx, "p", ids[i]) {
			t.Errorf("image %d not prefetched backwards", i)
		}
	}
	if c.Cached(ctx, "p", ids[14]) {
		t.Error("backward prefetch went past the window")
	}
}

func TestCache_EdgeCases(t *testing.T) {
	c, _, ids := setupCache(t, 3, 0)
	ctx := context.Background()

	t.Run("unknown id starts from the first image", func(t *testing.T) {
		id, ok, err := c.NextImage(ctx, "p", "missing")
		if err != nil || !ok || id != ids[0] {
			t.Errorf("NextImage(missing) = %q, %v, %v; want %s", id, ok, err, ids[0])
		}
	})

	t.Run("no previous before the first image", func(t *testing.T) {
		id, ok, err := c.PreviousImage(ctx, "p", ids[0])
		if err != nil || ok || id != "" {
			t.Errorf("PreviousImage(first) = %q, %v, %v", id, ok, err)
		}
	})

	t.Run("empty project", func(t *testing.T) {
		id, ok, err := c.NextImage(ctx, "empty", "")
		if err != nil || ok || id != "" {
			t.Errorf("NextImage(empty) = %q, %v, %v", id, ok, err)
		}
	})
}

func TestCache_ClearRefetches(t *testing.T) {
	c, store, ids := setupCache(t, 3, 0)
	ctx := context.Background()

	c.NextImage(ctx, "p", ids[0])
	c.Wait()
	if !c.Cached(ctx, "p", ids[1]) {
		t.Fatal("expected prefetched image")
	}

	if err := c.ClearImageCache(ctx, "p"); err != nil {
		t.Fatalf("ClearImageCache() error = %v", err)
	}
	if c.Cached(ctx, "p", ids[1]) {
		t.Error("data cache survived ClearImageCache()")
	}

	if err := store.CreateImage(ctx, domain.ImageData{ID: ids[2] + "-b", ProjectID: "p", Name: "new"}); err != nil {
		t.Fatalf("CreateImage() error = %v", err)
	}

	next, ok, err := c.NextImage(ctx, "p", ids[2])
	if err != nil {
		t.Fatalf("NextImage() error = %v", err)
	}
	if store.ListCalls() != 2 {
		t.Errorf("id list fetched %d times, want 2", store.ListCalls())
	}
	if !ok || next != ids[2]+"-b" {
		t.Errorf("NextImage() = %q, %v; want the image added after the clear", next, ok)
	}
	c.Wait()
}

func TestCache_ClearDiscardsInflightPrefetch(t *testing.T) {
	c, store, ids := setupCache(t, 5, 0)
	ctx := context.Background()
	gate := make(chan struct{})
	store.mu.Lock()
	store.gate = gate
	store.mu.Unlock()

	next, ok, err := c.NextImage(ctx, "p", ids[0])
	if err != nil || !ok || next != ids[1] {
		t.Fatalf("NextImage() = %q, %v, %v", next, ok, err)
	}
	if err := c.ClearImageCache(ctx, "p"); err != nil {
		t.Fatalf("ClearImageCache() error = %v", err)
	}
	close(gate)
	c.Wait()

	if c.Cached(ctx, "p", ids[1]) {
		t.Error("prefetch started before ClearImageCache() repopulated the cache")
	}
}

func TestCache_PrefetchFailureIsSwallowed(t *testing.T) {
	c, store, ids := setupCache(t, 3, 0)
	ctx := context.Background()
	store.failRange = errors.New("backend down")

	next, ok, err := c.NextImage(ctx, "p", ids[0])
	if err != nil || !ok || next != ids[1] {
		t.Fatalf("NextImage() = %q, %v, %v", next, ok, err)
	}
	c.Wait()
	if c.Cached(ctx, "p", ids[1]) {
		t.Error("failed prefetch populated the cache")
	}
}

func TestCache_ImageReadThrough(t *testing.T) {
	c, _, ids := setupCache(t, 2, 0)
	ctx := context.Background()

	img, err := c.Image(ctx, "p", ids[1])
	if err != nil {
		t.Fatalf("Image() error = %v", err)
	}
	if img == nil || img.ID != ids[1] {
		t.Fatalf("Image() = %+v, want %s", img, ids[1])
	}
	if !c.Cached(ctx, "p", ids[1]) {
		t.Error("Image() did not populate the cache")
	}

	if img, _ := c.Image(ctx, "other", ids[1]); img != nil {
		t.Error("Image() returned an image of another project")
	}
	if img, _ := c.Image(ctx, "p", "missing"); img != nil {
		t.Error("Image() returned a missing image")
	}
}
