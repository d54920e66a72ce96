package storage

import (
	"context"
	"errors"
	"path"
	"strings"
)

var (
	// ErrNotExist is returned when a record does not exist.
	ErrNotExist = errors.New("record does not exist")
	// ErrExist is returned by Create when the record is already present.
	ErrExist = errors.New("record already exists")
	// ErrInvalidKey is returned for keys that are empty or escape the root.
	ErrInvalidKey = errors.New("invalid record key")
)

// EntryType distinguishes records from containers in a listing.
type EntryType string

const (
	TypeFile EntryType = "file"
	TypeDir  EntryType = "dir"
)

// Entry is one item of a container listing.
type Entry struct {
	Path string
	Type EntryType
}

// Name returns the last path element.
func (e Entry) Name() string {
	return path.Base(e.Path)
}

// Backend defines the record operations shared by all storage backends.
// Keys are slash-separated paths relative to the backend root.
type Backend interface {
	Init(ctx context.Context) error
	Exists(ctx context.Context, key string) (bool, error)
	Read(ctx context.Context, key string) ([]byte, error)
	// Write replaces the record atomically: readers see the old or the new
	// content, never a partial write.
	Write(ctx context.Context, key string, data []byte) error
	// Create writes the record only if it does not exist yet and fails with
	// ErrExist otherwise.
	Create(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) (bool, error)
	CreateContainer(ctx context.Context, key string) error
	List(ctx context.Context, key string) ([]Entry, error)
	Name() string
}

// Storage wraps a Backend with key validation and a stable API.
type Storage struct {
	backend Backend
}

// NewStorage constructs a Storage wrapper for the provided backend.
func NewStorage(backend Backend) *Storage {
	return &Storage{backend: backend}
}

// Init prepares the backend (creates the root directory or bucket).
func (s *Storage) Init(ctx context.Context) error {
	return s.backend.Init(ctx)
}

// Exists reports whether a record exists at key.
func (s *Storage) Exists(ctx context.Context, key string) (bool, error) {
	key, err := CleanKey(key)
	if err != nil {
		return false, err
	}
	return s.backend.Exists(ctx, key)
}

// Read returns the content of the record at key.
func (s *Storage) Read(ctx context.Context, key string) ([]byte, error) {
	key, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	return s.backend.Read(ctx, key)
}

// Write stores data at key, replacing any previous content.
func (s *Storage) Write(ctx context.Context, key string, data []byte) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	return s.backend.Write(ctx, key, data)
}

// Create stores data at key unless a record is already there.
func (s *Storage) Create(ctx context.Context, key string, data []byte) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	return s.backend.Create(ctx, key, data)
}

// Delete removes the record at key. It reports false when nothing was removed.
func (s *Storage) Delete(ctx context.Context, key string) (bool, error) {
	key, err := CleanKey(key)
	if err != nil {
		return false, err
	}
	return s.backend.Delete(ctx, key)
}

// CreateContainer makes sure the container at key exists.
func (s *Storage) CreateContainer(ctx context.Context, key string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	return s.backend.CreateContainer(ctx, key)
}

// List returns the direct children of the container at key. A missing
// container yields an empty listing.
func (s *Storage) List(ctx context.Context, key string) ([]Entry, error) {
	key, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	return s.backend.List(ctx, key)
}

// Backend returns the name of the underlying backend.
func (s *Storage) Backend() string {
	return s.backend.Name()
}

// Join builds a key from path segments. Segments must not contain slashes.
func Join(segments ...string) (string, error) {
	for _, segment := range segments {
		if segment == "" || segment == "." || segment == ".." ||
			strings.ContainsAny(segment, "/\\\x00") {
			return "", ErrInvalidKey
		}
	}
	return strings.Join(segments, "/"), nil
}

// CleanKey normalizes key and rejects keys that are empty or point outside
// the backend root.
func CleanKey(key string) (string, error) {
	if strings.ContainsAny(key, "\\\x00") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean("/" + key)
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", ErrInvalidKey
	}
	if cleaned != strings.Trim(key, "/") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
