package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/flatcms/accounts/config"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSBackend stores records as objects in a Google Cloud Storage bucket.
type GCSBackend struct {
	client    *storage.Client
	bucket    string
	projectID string
}

// NewGCSBackend constructs a GCS backend from config.
func NewGCSBackend(ctx context.Context, cfg config.GCSConfig) (*GCSBackend, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("gcs bucket is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &GCSBackend{
		client:    client,
		bucket:    cfg.Bucket,
		projectID: cfg.ProjectID,
	}, nil
}

// Init ensures the configured bucket exists.
func (g *GCSBackend) Init(ctx context.Context) error {
	_, err := g.client.Bucket(g.bucket).Attrs(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrBucketNotExist) {
		return err
	}
	if strings.TrimSpace(g.projectID) == "" {
		return errors.New("gcs project id is required to create bucket")
	}
	return g.client.Bucket(g.bucket).Create(ctx, g.projectID, nil)
}

// Exists reports whether an object exists at key.
func (g *GCSBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := g.client.Bucket(g.bucket).Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Read downloads the object at key.
func (g *GCSBackend) Read(ctx context.Context, key string) ([]byte, error) {
	reader, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotExist
		}
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

// Write uploads data to key. The object becomes visible only when the
// writer is closed successfully.
func (g *GCSBackend) Write(ctx context.Context, key string, data []byte) error {
	return g.put(ctx, g.client.Bucket(g.bucket).Object(key), data)
}

// Create uploads data with a DoesNotExist precondition, so only the first
// writer succeeds.
func (g *GCSBackend) Create(ctx context.Context, key string, data []byte) error {
	obj := g.client.Bucket(g.bucket).Object(key).If(storage.Conditions{DoesNotExist: true})
	err := g.put(ctx, obj, data)
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed {
		return ErrExist
	}
	return err
}

// Delete removes the object at key.
func (g *GCSBackend) Delete(ctx context.Context, key string) (bool, error) {
	err := g.client.Bucket(g.bucket).Object(key).Delete(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateContainer is a no-op: prefixes exist implicitly.
func (g *GCSBackend) CreateContainer(ctx context.Context, key string) error {
	return nil
}

// List returns objects and prefixes directly below key.
func (g *GCSBackend) List(ctx context.Context, key string) ([]Entry, error) {
	prefix := strings.TrimSuffix(key, "/") + "/"
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Prefix: prefix, Delimiter: "/"})

	var entries []Entry
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		if attrs.Prefix != "" {
			entries = append(entries, Entry{Path: strings.TrimSuffix(attrs.Prefix, "/"), Type: TypeDir})
			continue
		}
		entries = append(entries, Entry{Path: attrs.Name, Type: TypeFile})
	}
	return entries, nil
}

// Name returns the backend name.
func (g *GCSBackend) Name() string {
	return "gcs"
}

// Client exposes the underlying GCS SDK client.
func (g *GCSBackend) Client() *storage.Client {
	return g.client
}

// Bucket returns the configured bucket name.
func (g *GCSBackend) Bucket() string {
	return g.bucket
}

func (g *GCSBackend) put(ctx context.Context, obj *storage.ObjectHandle, data []byte) error {
	writer := obj.NewWriter(ctx)
	writer.ContentType = recordContentType
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return err
	}
	return writer.Close()
}
