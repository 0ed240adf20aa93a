package browse

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/lewtec/rotulador-studio/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisDataCache shares the image window between server instances. Each
// project is one hash keyed by image id.
type RedisDataCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// NewRedisDataCache connects to redis and checks the connection
func NewRedisDataCache(opts RedisOptions) (*RedisDataCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("while connecting to redis at %s: %w", opts.Addr, err)
	}
	log.Printf("browse: redis image cache at %s", opts.Addr)
	return NewRedisDataCacheFromClient(client, opts.Prefix, opts.TTL), nil
}

func NewRedisDataCacheFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisDataCache {
	if prefix == "" {
		prefix = "studio"
	}
	return &RedisDataCache{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisDataCache) key(projectID string) string {
	return r.prefix + ":images:" + projectID
}

func (r *RedisDataCache) Get(ctx context.Context, projectID, id string) (*domain.ImageData, error) {
	raw, err := r.client.HGet(ctx, r.key(projectID), id).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var img domain.ImageData
	if err := json.Unmarshal(raw, &img); err != nil {
		return nil, fmt.Errorf("while decoding cached image %s: %w", id, err)
	}
	return &img, nil
}

func (r *RedisDataCache) Put(ctx context.Context, projectID string, images []domain.ImageData) error {
	if len(images) == 0 {
		return nil
	}
	values := make([]interface{}, 0, 2*len(images))
	for _, img := range images {
		data, err := json.Marshal(img)
		if err != nil {
			return err
		}
		values = append(values, img.ID, data)
	}
	key := r.key(projectID)
	if err := r.client.HSet(ctx, key, values...).Err(); err != nil {
		return err
	}
	if r.ttl > 0 {
		if err := r.client.Expire(ctx, key, r.ttl).Err(); err != nil {
			return fmt.Errorf("while setting expiry of %s: %w", key, err)
		}
	}
	return nil
}

func (r *RedisDataCache) Clear(ctx context.Context, projectID string) error {
	return r.client.Del(ctx, r.key(projectID)).Err()
}

func (r *RedisDataCache) Len(ctx context.Context, projectID string) (int, error) {
	n, err := r.client.HLen(ctx, r.key(projectID)).Result()
	return int(n), err
}

func (r *RedisDataCache) Close() error {
	return r.client.Close()
}
