package blob

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-billy/v6/util"
	"github.com/lewtec/rotulador-studio/internal/domain"
)

// FilesystemStore keeps blobs on a billy filesystem
type FilesystemStore struct {
	fs billy.Filesystem
}

func NewFilesystemStore(fs billy.Filesystem) *FilesystemStore {
	return &FilesystemStore{fs: fs}
}

// NewDirStore stores blobs under dir on the local disk
func NewDirStore(dir string) (*FilesystemStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("while creating blob directory '%s': %w", dir, err)
	}
	return NewFilesystemStore(osfs.New(dir)), nil
}

// NewMemoryStore keeps blobs in memory
func NewMemoryStore() *FilesystemStore {
	return NewFilesystemStore(memfs.New())
}

func (s *FilesystemStore) Save(ctx context.Context, key string, data []byte, contentType string) error {
	name := shardedPath(key)
	if err := s.fs.MkdirAll(s.fs.Join(name, ".."), 0o755); err != nil {
		return fmt.Errorf("while creating directory for blob %s: %w", key, err)
	}
	if err := util.WriteFile(s.fs, name, data, 0o644); err != nil {
		return fmt.Errorf("while writing blob %s: %w", key, err)
	}
	return nil
}

func (s *FilesystemStore) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := util.ReadFile(s.fs, shardedPath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("blob %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("while reading blob %s: %w", key, err)
	}
	return data, nil
}

func (s *FilesystemStore) Delete(ctx context.Context, key string) error {
	err := s.fs.Remove(shardedPath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("blob %s: %w", key, domain.ErrNotFound)
		}
		return fmt.Errorf("while deleting blob %s: %w", key, err)
	}
	return nil
}
