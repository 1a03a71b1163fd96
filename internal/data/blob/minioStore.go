package blob

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/nkurra/CaseAPI/internal/config"
	"github.com/nkurra/CaseAPI/pkg/logger_i"
)

var log = logger_i.NewLogger("blobStore")

var ErrObjectNotFound = errors.New("blob object not found")

var (
	minioInstance *minioStore
	minioOnce     sync.Once
)

type minioStore struct {
	client *minio.Client
	bucket string
}

// GetMinioStore returns the shared MinIO-backed blob store, or nil when the
// endpoint is unreachable so the caller can fall back to the in-memory store.
func GetMinioStore(ctx context.Context) Store {
	minioOnce.Do(func() {
		client, err := minio.New(config.MinioEndpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(config.MinioAccessKey, config.MinioSecretKey, ""),
			Secure: config.MinioUseSSL,
		})
		if err != nil {
			log.Error("failed to create minio client", "error", err)
			return
		}

		exists, err := client.BucketExists(ctx, config.MinioBucket)
		if err != nil {
			log.Error("failed to check bucket", "bucket", config.MinioBucket, "error", err)
			return
		}
		if !exists {
			if err := client.MakeBucket(ctx, config.MinioBucket, minio.MakeBucketOptions{}); err != nil {
				log.Error("failed to create bucket", "bucket", config.MinioBucket, "error", err)
				return
			}
		}

		minioInstance = &minioStore{client: client, bucket: config.MinioBucket}
	})

	if minioInstance == nil {
		return nil
	}
	return minioInstance
}

func (s *minioStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return err
	}
	return nil
}

func (s *minioStore) Get(ctx context.Context, key string) ([]byte, error) {
	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer object.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(object); err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *minioStore) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}
