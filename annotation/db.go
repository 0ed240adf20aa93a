package annotation

import (
	"context"
	"fmt"
	"log"

	"github.com/lewtec/rotulador-studio/internal/blob"
	"github.com/lewtec/rotulador-studio/internal/browse"
	"github.com/lewtec/rotulador-studio/internal/domain"
	"github.com/lewtec/rotulador-studio/internal/repository"
	"github.com/lewtec/rotulador-studio/internal/store/gormstore"
	"github.com/lewtec/rotulador-studio/internal/store/memory"
	"github.com/lewtec/rotulador-studio/internal/store/rest"
)

// OpenStore opens the storage backend selected by the config. SQLite
// databases are migrated on open.
func OpenStore(ctx context.Context, cfg *Config) (domain.Store, error) {
	log.Printf("OpenStore: opening %s storage", cfg.Storage.Backend)
	switch cfg.Storage.Backend {
	case "sqlite":
		s, err := repository.Open(ctx, cfg.Storage.SQLite)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := gormstore.Open(cfg.Storage.Postgres)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "rest":
		s, err := rest.New(rest.Options{
			BaseURL: cfg.Storage.REST.URL,
			Token:   cfg.Storage.REST.Token,
			Timeout: cfg.Storage.REST.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown storage backend '%s'", cfg.Storage.Backend)
}

// OpenBlobs opens the blob backend selected by the config
func OpenBlobs(ctx context.Context, cfg *Config) (blob.Store, error) {
	log.Printf("OpenBlobs: opening %s blob storage", cfg.Blobs.Backend)
	switch cfg.Blobs.Backend {
	case "filesystem":
		s, err := blob.NewDirStore(cfg.Blobs.Dir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "minio":
		s, err := blob.NewMinioStore(ctx, cfg.Blobs.Minio)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown blob backend '%s'", cfg.Blobs.Backend)
}

// OpenDataCache opens the image data cache behind the navigation cache.
// The returned close function is never nil.
func OpenDataCache(cfg *Config) (browse.DataCache, func() error, error) {
	switch cfg.Browse.Cache {
	case "memory":
		return browse.NewMemoryDataCache(), func() error { return nil }, nil
	case "redis":
		r := cfg.Browse.Redis
		c, err := browse.NewRedisDataCache(browse.RedisOptions{
			Addr:     r.Addr,
			Password: r.Password,
			DB:       r.DB,
			Prefix:   r.Prefix,
			TTL:      r.TTL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("while connecting to redis at %s: %w", r.Addr, err)
		}
		return c, c.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown browse cache '%s'", cfg.Browse.Cache)
}
