package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 stores object bodies by path and honors If-None-Match: * on PUT.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    []http.Header
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusNotImplemented)
		return
	}
	f.puts = append(f.puts, r.Header.Clone())

	body, _ := io.ReadAll(r.Body)
	if _, exists := f.objects[r.URL.Path]; exists && r.Header.Get("If-None-Match") == "*" {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusPreconditionFailed)
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>PreconditionFailed</Code><Message>At least one of the pre-conditions you specified did not hold</Message></Error>`)
		return
	}
	f.objects[r.URL.Path] = body
	w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
	w.WriteHeader(http.StatusOK)
}

func newFakeMinio(t *testing.T) (*MinioBackend, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	endpoint, err := url.Parse(srv.URL)
	require.NoError(t, err)
	client, err := minio.New(endpoint.Host, &minio.Options{
		Creds:  credentials.NewStaticV4("access", "secret", ""),
		Secure: false,
		Region: "us-east-1",
	})
	require.NoError(t, err)
	return &MinioBackend{client: client, bucket: "records"}, fake
}

func TestMinioCreateIsConditional(t *testing.T) {
	ctx := context.Background()
	backend, fake := newFakeMinio(t)

	require.NoError(t, backend.Create(ctx, "accounts/a@example.com/profile.yaml", []byte("name: first\n")))
	err := backend.Create(ctx, "accounts/a@example.com/profile.yaml", []byte("name: second\n"))
	assert.ErrorIs(t, err, ErrExist)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.puts, 2)
	for _, header := range fake.puts {
		assert.Equal(t, "*", header.Get("If-None-Match"))
	}
}

func TestMinioWriteOverwrites(t *testing.T) {
	ctx := context.Background()
	backend, fake := newFakeMinio(t)

	require.NoError(t, backend.Write(ctx, "config/settings.yaml", []byte("a: 1\n")))
	require.NoError(t, backend.Write(ctx, "config/settings.yaml", []byte("a: 2\n")))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.puts, 2)
	assert.Empty(t, fake.puts[1].Get("If-None-Match"))
}
