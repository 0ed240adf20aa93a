package browse

import (
	"context"
	"sync"

	"github.com/lewtec/rotulador-studio/internal/domain"
)

// DataCache holds fetched image records per project
type DataCache interface {
	Get(ctx context.Context, projectID, id string) (*domain.ImageData, error)
	Put(ctx context.Context, projectID string, images []domain.ImageData) error
	Clear(ctx context.Context, projectID string) error
	Len(ctx context.Context, projectID string) (int, error)
}

// MemoryDataCache is a process-local DataCache
type MemoryDataCache struct {
	mu       sync.RWMutex
	projects map[string]map[string]domain.ImageData
}

func NewMemoryDataCache() *MemoryDataCache {
	return &MemoryDataCache{projects: make(map[string]map[string]domain.ImageData)}
}

func (m *MemoryDataCache) Get(ctx context.Context, projectID, id string) (*domain.ImageData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	img, ok := m.projects[projectID][id]
	if !ok {
		return nil, nil
	}
	return &img, nil
}

func (m *MemoryDataCache) Put(ctx context.Context, projectID string, images []domain.ImageData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries, ok := m.projects[projectID]
	if !ok {
		entries = make(map[string]domain.ImageData, len(images))
		m.projects[projectID] = entries
	}
	for _, img := range images {
		entries[img.ID] = img
	}
	return nil
}

func (m *MemoryDataCache) Clear(ctx context.Context, projectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.projects, projectID)
	return nil
}

func (m *MemoryDataCache) Len(ctx context.Context, projectID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.projects[projectID]), nil
}
