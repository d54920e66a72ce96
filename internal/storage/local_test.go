package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalStorage(t *testing.T) (*Storage, string) {
	t.Helper()
	dir := t.TempDir()
	backend, err := NewLocalBackend(dir)
	require.NoError(t, err)
	s := NewStorage(backend)
	require.NoError(t, s.Init(context.Background()))
	return s, dir
}

func TestLocalWriteReadDelete(t *testing.T) {
	ctx := context.Background()
	s, dir := newLocalStorage(t)

	ok, err := s.Exists(ctx, "accounts/a@example.com/profile.yaml")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Write(ctx, "accounts/a@example.com/profile.yaml", []byte("name: A\n")))

	ok, err = s.Exists(ctx, "accounts/a@example.com/profile.yaml")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := s.Read(ctx, "accounts/a@example.com/profile.yaml")
	require.NoError(t, err)
	assert.Equal(t, "name: A\n", string(data))

	require.NoError(t, s.Write(ctx, "accounts/a@example.com/profile.yaml", []byte("name: B\n")))
	data, err = s.Read(ctx, "accounts/a@example.com/profile.yaml")
	require.NoError(t, err)
	assert.Equal(t, "name: B\n", string(data))

	leftovers, err := filepath.Glob(filepath.Join(dir, "accounts", "a@example.com", ".tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)

	deleted, err := s.Delete(ctx, "accounts/a@example.com/profile.yaml")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.Delete(ctx, "accounts/a@example.com/profile.yaml")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = s.Read(ctx, "accounts/a@example.com/profile.yaml")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestLocalCreateIsExclusive(t *testing.T) {
	ctx := context.Background()
	s, _ := newLocalStorage(t)

	require.NoError(t, s.Create(ctx, "tokens/entries/abc/token.yaml", []byte("first")))
	err := s.Create(ctx, "tokens/entries/abc/token.yaml", []byte("second"))
	assert.ErrorIs(t, err, ErrExist)

	data, err := s.Read(ctx, "tokens/entries/abc/token.yaml")
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

func TestLocalCreateRace(t *testing.T) {
	ctx := context.Background()
	s, _ := newLocalStorage(t)

	const writers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Create(ctx, "accounts/race@example.com/profile.yaml", []byte("x")); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, success)
}

func TestLocalExistsIgnoresContainers(t *testing.T) {
	ctx := context.Background()
	s, _ := newLocalStorage(t)

	require.NoError(t, s.CreateContainer(ctx, "accounts/empty@example.com"))

	ok, err := s.Exists(ctx, "accounts/empty@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Exists(ctx, "accounts/empty@example.com/profile.yaml")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalList(t *testing.T) {
	ctx := context.Background()
	s, dir := newLocalStorage(t)

	entries, err := s.List(ctx, "accounts")
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, s.Write(ctx, "accounts/a@example.com/profile.yaml", []byte("a")))
	require.NoError(t, s.CreateContainer(ctx, "accounts/b@example.com"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "accounts", "README"), []byte("x"), 0o644))

	entries, err = s.List(ctx, "accounts")
	require.NoError(t, err)
	assert.ElementsMatch(t, []Entry{
		{Path: "accounts/a@example.com", Type: TypeDir},
		{Path: "accounts/b@example.com", Type: TypeDir},
		{Path: "accounts/README", Type: TypeFile},
	}, entries)
	assert.Equal(t, "a@example.com", Entry{Path: "accounts/a@example.com", Type: TypeDir}.Name())
}

func TestKeys(t *testing.T) {
	cases := []struct {
		key   string
		valid bool
	}{
		{"accounts/a@example.com/profile.yaml", true},
		{"/config/settings.yaml", true},
		{"", false},
		{"../etc/passwd", false},
		{"accounts/../../etc/passwd", false},
		{"accounts//profile.yaml", false},
		{"accounts\\profile.yaml", false},
	}
	for _, tc := range cases {
		_, err := CleanKey(tc.key)
		if tc.valid {
			assert.NoError(t, err, tc.key)
		} else {
			assert.ErrorIs(t, err, ErrInvalidKey, tc.key)
		}
	}

	_, err := Join("accounts", "..", "profile.yaml")
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = Join("accounts", "a/b", "profile.yaml")
	assert.ErrorIs(t, err, ErrInvalidKey)

	key, err := Join("accounts", "a@example.com", "profile.yaml")
	require.NoError(t, err)
	assert.Equal(t, "accounts/a@example.com/profile.yaml", key)
}
