package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/flatcms/accounts/internal/storage"
)

// Settings keys used by the accounts service.
const (
	KeySuperAdminRegistered = "accounts.supper_admin_registered"
	KeyMailFromEmail        = "accounts.from.email"
	KeyMailFromName         = "accounts.from.name"
	KeySiteURL              = "site.url"
	KeySiteTitle            = "site.title"
	KeyDateFormat           = "site.date_format"
)

// DefaultTokenKey returns the settings key holding the default token of scope.
func DefaultTokenKey(scope string) string {
	return "api." + scope + ".default_token"
}

// SettingsRepository is a registry over a single YAML settings document.
// Keys are dotted paths into nested mappings ("api.entries.default_token").
// Every read goes to the record store, so values written by another process
// are visible immediately.
type SettingsRepository struct {
	storage *storage.Storage
	key     string
	mu      sync.Mutex
}

// NewSettingsRepository constructs a registry backed by the document at key.
func NewSettingsRepository(s *storage.Storage, key string) *SettingsRepository {
	return &SettingsRepository{storage: s, key: key}
}

// Init writes defaults for keys that are not set yet.
func (r *SettingsRepository) Init(ctx context.Context, defaults map[string]any) error {
	return r.modify(ctx, func(doc map[string]any) bool {
		changed := false
		for key, value := range defaults {
			if _, ok := lookup(doc, key); !ok {
				assign(doc, key, value)
				changed = true
			}
		}
		return changed
	})
}

// Get returns the value at key.
func (r *SettingsRepository) Get(ctx context.Context, key string) (any, bool, error) {
	doc, err := r.load(ctx)
	if err != nil {
		return nil, false, err
	}
	value, ok := lookup(doc, key)
	return value, ok, nil
}

// Has reports whether key is set.
func (r *SettingsRepository) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := r.Get(ctx, key)
	return ok, err
}

// GetString returns the value at key formatted as a string, or "" if unset.
func (r *SettingsRepository) GetString(ctx context.Context, key string) (string, error) {
	value, ok, err := r.Get(ctx, key)
	if err != nil || !ok || value == nil {
		return "", err
	}
	if s, ok := value.(string); ok {
		return s, nil
	}
	return fmt.Sprint(value), nil
}

// GetBool returns the value at key as a bool. Unset keys read as false.
func (r *SettingsRepository) GetBool(ctx context.Context, key string) (bool, error) {
	value, ok, err := r.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	switch typed := value.(type) {
	case bool:
		return typed, nil
	case string:
		return strings.EqualFold(typed, "true"), nil
	default:
		return false, nil
	}
}

// Set writes a single value.
func (r *SettingsRepository) Set(ctx context.Context, key string, value any) error {
	return r.SetMany(ctx, map[string]any{key: value})
}

// SetMany writes several values with one document write.
func (r *SettingsRepository) SetMany(ctx context.Context, values map[string]any) error {
	return r.modify(ctx, func(doc map[string]any) bool {
		for key, value := range values {
			assign(doc, key, value)
		}
		return true
	})
}

func (r *SettingsRepository) modify(ctx context.Context, fn func(map[string]any) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load(ctx)
	if err != nil {
		return err
	}
	if !fn(doc) {
		return nil
	}

	data, err := Encode(doc)
	if err != nil {
		return err
	}
	return r.storage.Write(ctx, r.key, data)
}

func (r *SettingsRepository) load(ctx context.Context) (map[string]any, error) {
	data, err := r.storage.Read(ctx, r.key)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	doc := map[string]any{}
	if err := Decode(data, &doc); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

func lookup(doc map[string]any, key string) (any, bool) {
	parts := strings.Split(key, ".")
	var current any = doc
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func assign(doc map[string]any, key string, value any) {
	parts := strings.Split(key, ".")
	m := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := m[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[part] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}
