package storage

import (
	"context"
	"fmt"

	"github.com/flatcms/accounts/config"
)

// Open constructs and initializes the backend selected by cfg.
func Open(ctx context.Context, cfg config.Config) (*Storage, error) {
	var (
		backend Backend
		err     error
	)
	switch cfg.Storage.Backend {
	case config.BackendLocal, "":
		backend, err = NewLocalBackend(cfg.DataDir)
	case config.BackendMinio:
		backend, err = NewMinioBackend(cfg.Storage.Minio)
	case config.BackendGCS:
		backend, err = NewGCSBackend(ctx, cfg.Storage.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if err != nil {
		return nil, err
	}

	s := NewStorage(backend)
	if err := s.Init(ctx); err != nil {
		return nil, fmt.Errorf("init %s storage: %w", backend.Name(), err)
	}
	return s, nil
}
