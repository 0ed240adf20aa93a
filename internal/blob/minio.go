package blob

import (
	"bytes"
	"context"
	"io"
	"log"

	"github.com/lewtec/rotulador-studio/internal/domain"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// MinioStore keeps blobs in an S3 compatible bucket
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to the endpoint and creates the bucket when missing
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create minio client")
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to check bucket %s", cfg.Bucket)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrapf(err, "failed to create bucket %s", cfg.Bucket)
		}
		log.Printf("blob: created bucket %s", cfg.Bucket)
	}
	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *MinioStore) Save(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, shardedPath(key), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	return errors.Wrapf(err, "failed to upload blob %s", key)
}

func (s *MinioStore) Load(ctx context.Context, key string) ([]byte, error) {
	object, err := s.client.GetObject(ctx, s.bucket, shardedPath(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get blob %s", key)
	}
	defer object.Close()
	data, err := io.ReadAll(object)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, errors.Wrapf(domain.ErrNotFound, "blob %s", key)
		}
		return nil, errors.Wrapf(err, "failed to read blob %s", key)
	}
	return data, nil
}

// Delete removes a blob. S3 deletes are idempotent, so the object is
// checked first to report missing keys.
func (s *MinioStore) Delete(ctx context.Context, key string) error {
	if _, err := s.client.StatObject(ctx, s.bucket, shardedPath(key), minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return errors.Wrapf(domain.ErrNotFound, "blob %s", key)
		}
		return errors.Wrapf(err, "failed to stat blob %s", key)
	}
	err := s.client.RemoveObject(ctx, s.bucket, shardedPath(key), minio.RemoveObjectOptions{})
	return errors.Wrapf(err, "failed to delete blob %s", key)
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
