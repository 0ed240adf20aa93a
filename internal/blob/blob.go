// Package blob stores encoded image payloads by content key.
package blob

import (
	"context"
	"strings"
)

// Store saves and loads image payloads. Keys are content hashes with an
// extension, like "3fa4...e1.png".
type Store interface {
	Save(ctx context.Context, key string, data []byte, contentType string) error
	Load(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// shardedPath spreads keys over two-character directories
func shardedPath(key string) string {
	key = strings.TrimLeft(key, "/")
	if len(key) < 3 {
		return key
	}
	return key[:2] + "/" + key
}

// ContentType guesses the MIME type of a key from its extension
func ContentType(key string) string {
	switch {
	case strings.HasSuffix(key, ".png"):
		return "image/png"
	case strings.HasSuffix(key, ".jpg"), strings.HasSuffix(key, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(key, ".gif"):
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}
