//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/flatcms/accounts/config"
	"github.com/flatcms/accounts/internal/logging"
	"github.com/flatcms/accounts/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	serverPort = 18081
	adminID    = "owner@example.com"
	adminPass  = "correct horse"
)

var (
	baseURL string
	dataDir string
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	dir, err := os.MkdirTemp("", "accounts-e2e-")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create data dir: %v\n", err)
		os.Exit(1)
	}
	dataDir = dir

	srv, err := startServer(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = os.RemoveAll(dir)
		os.Exit(1)
	}

	baseURL = fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown(context.Background())
		_ = os.RemoveAll(dir)
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown(context.Background())
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

func startServer(ctx context.Context) (*server.Server, error) {
	cfg := config.Config{
		ServerPort: serverPort,
		DataDir:    dataDir,
		Storage:    config.StorageConfig{Backend: config.BackendLocal},
		MQ:         config.MQConfig{Backend: config.BackendMemory, Channel: "accounts.events"},
		Auth:       config.AuthConfig{JWTSecret: "e2e-secret", SessionTTL: time.Hour, BcryptCost: bcrypt.MinCost},
		Mail:       config.MailConfig{FromEmail: "site@example.com", FromName: "E2E"},
		Site:       config.SiteConfig{URL: fmt.Sprintf("http://localhost:%d", serverPort), Title: "E2E Site"},
	}

	srv, err := server.New(ctx, cfg, logging.Discard())
	if err != nil {
		return nil, err
	}
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		}
	}()
	return srv, nil
}

func waitForHealth(ctx context.Context, url string) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func doJSON(t *testing.T, client *http.Client, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, baseURL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAccountsLifecycle(t *testing.T) {
	client := newClient(t)

	resp := doJSON(t, client, http.MethodGet, "/accounts/login", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/accounts/registration", resp.Header.Get("Location"))

	resp = doJSON(t, client, http.MethodPost, "/accounts/registration", map[string]any{
		"id":       adminID,
		"password": adminPass,
		"name":     "Owner",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	profile, err := os.ReadFile(filepath.Join(dataDir, "accounts", adminID, "profile.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(profile), "roles: admin")

	settings, err := os.ReadFile(filepath.Join(dataDir, "config", "settings.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(settings), "supper_admin_registered: true")
	assert.Regexp(t, regexp.MustCompile(`default_token: [0-9a-f]{32}`), string(settings))

	resp = doJSON(t, client, http.MethodPost, "/accounts/registration", map[string]any{"id": "late@example.com", "password": "x"})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp = doJSON(t, client, http.MethodPost, "/accounts/login", map[string]any{"id": adminID, "password": adminPass})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, client, http.MethodGet, "/accounts/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me struct {
		ID    string   `json:"id"`
		Roles []string `json:"roles"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	assert.Equal(t, adminID, me.ID)
	assert.Equal(t, []string{"admin"}, me.Roles)

	resp = doJSON(t, client, http.MethodPost, "/accounts", map[string]any{"id": "writer@example.com", "password": "writer-pass", "roles": "editor"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, client, http.MethodPost, "/accounts/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, client, http.MethodGet, "/accounts/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	writer := newClient(t)
	resp = doJSON(t, writer, http.MethodPost, "/accounts/login", map[string]any{"id": "Writer@Example.com", "password": "writer-pass"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = doJSON(t, writer, http.MethodGet, "/accounts", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
