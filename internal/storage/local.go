package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// LocalBackend stores records as files below a root directory.
type LocalBackend struct {
	root string
}

// NewLocalBackend constructs a filesystem backend rooted at dir.
func NewLocalBackend(dir string) (*LocalBackend, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("local storage root is required")
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &LocalBackend{root: root}, nil
}

// Init creates the root directory.
func (l *LocalBackend) Init(ctx context.Context) error {
	return os.MkdirAll(l.root, dirPerm)
}

// Exists reports whether a regular file exists at key.
func (l *LocalBackend) Exists(ctx context.Context, key string) (bool, error) {
	info, err := os.Stat(l.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// Read returns the file content at key.
func (l *LocalBackend) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(l.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, err
	}
	return data, nil
}

// Write stores data through a temp file and a rename so the record is
// replaced in one step.
func (l *LocalBackend) Write(ctx context.Context, key string, data []byte) error {
	target := l.path(key)
	tmp, err := l.writeTemp(target, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Create links a fully written temp file into place. link(2) fails when the
// target exists, which makes the first writer win.
func (l *LocalBackend) Create(ctx context.Context, key string, data []byte) error {
	target := l.path(key)
	tmp, err := l.writeTemp(target, data)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	if err := os.Link(tmp, target); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrExist
		}
		return err
	}
	return nil
}

// Delete removes the file at key.
func (l *LocalBackend) Delete(ctx context.Context, key string) (bool, error) {
	err := os.Remove(l.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateContainer creates the directory at key and its parents.
func (l *LocalBackend) CreateContainer(ctx context.Context, key string) error {
	return os.MkdirAll(l.path(key), dirPerm)
}

// List returns the entries of the directory at key, skipping temp files.
func (l *LocalBackend) List(ctx context.Context, key string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(l.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if strings.HasPrefix(de.Name(), ".tmp-") {
			continue
		}
		entryType := TypeFile
		if de.IsDir() {
			entryType = TypeDir
		}
		entries = append(entries, Entry{Path: key + "/" + de.Name(), Type: entryType})
	}
	return entries, nil
}

// Name returns the backend name.
func (l *LocalBackend) Name() string {
	return "local"
}

// Root returns the absolute root directory.
func (l *LocalBackend) Root() string {
	return l.root
}

func (l *LocalBackend) path(key string) string {
	return filepath.Join(l.root, filepath.FromSlash(key))
}

func (l *LocalBackend) writeTemp(target string, data []byte) (string, error) {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", err
	}

	f, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(target)+"-*")
	if err != nil {
		return "", err
	}
	name := f.Name()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", fmt.Errorf("write %s: %w", filepath.Base(target), err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	if err := os.Chmod(name, filePerm); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}
