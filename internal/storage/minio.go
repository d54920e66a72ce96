package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/flatcms/accounts/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const recordContentType = "application/yaml"

// MinioBackend stores records as objects in a MinIO (or S3) bucket.
type MinioBackend struct {
	client *minio.Client
	bucket string
}

// NewMinioBackend constructs a MinIO backend from config.
func NewMinioBackend(cfg config.MinioConfig) (*MinioBackend, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("minio endpoint is required")
	}
	if strings.TrimSpace(cfg.AccessKey) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("minio access key and secret key are required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("minio bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	return &MinioBackend{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// Init ensures the configured bucket exists.
func (m *MinioBackend) Init(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
}

// Exists reports whether an object exists at key.
func (m *MinioBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isMinioNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Read downloads the object at key.
func (m *MinioBackend) Read(ctx context.Context, key string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		if isMinioNotFound(err) {
			return nil, ErrNotExist
		}
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isMinioNotFound(err) {
			return nil, ErrNotExist
		}
		return nil, err
	}
	return data, nil
}

// Write uploads data to key. Object PUTs replace the object as a whole.
func (m *MinioBackend) Write(ctx context.Context, key string, data []byte) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: recordContentType,
	})
	return err
}

// Create uploads data with an If-None-Match: * precondition, so only the
// first writer succeeds.
func (m *MinioBackend) Create(ctx context.Context, key string, data []byte) error {
	opts := minio.PutObjectOptions{ContentType: recordContentType}
	opts.SetMatchETagExcept("*")
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.StatusCode == http.StatusPreconditionFailed || resp.Code == "PreconditionFailed" {
			return ErrExist
		}
	}
	return err
}

// Delete removes the object at key.
func (m *MinioBackend) Delete(ctx context.Context, key string) (bool, error) {
	exists, err := m.Exists(ctx, key)
	if err != nil || !exists {
		return false, err
	}
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return false, err
	}
	return true, nil
}

// CreateContainer is a no-op: prefixes exist implicitly.
func (m *MinioBackend) CreateContainer(ctx context.Context, key string) error {
	return nil
}

// List returns objects and common prefixes directly below key.
func (m *MinioBackend) List(ctx context.Context, key string) ([]Entry, error) {
	prefix := strings.TrimSuffix(key, "/") + "/"

	var entries []Entry
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if strings.HasSuffix(obj.Key, "/") {
			entries = append(entries, Entry{Path: strings.TrimSuffix(obj.Key, "/"), Type: TypeDir})
			continue
		}
		entries = append(entries, Entry{Path: obj.Key, Type: TypeFile})
	}
	return entries, nil
}

// Name returns the backend name.
func (m *MinioBackend) Name() string {
	return "minio"
}

// Client exposes the underlying MinIO SDK client.
func (m *MinioBackend) Client() *minio.Client {
	return m.client
}

// Bucket returns the configured bucket name.
func (m *MinioBackend) Bucket() string {
	return m.bucket
}

func isMinioNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket"
}
