package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flatcms/accounts/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	s := New()
	assert.False(t, s.IsLoggedIn())

	s.SetPrincipal(types.Principal{ID: "admin@example.com", Roles: types.Roles{"admin"}, UUID: "u"})
	p, ok := s.Principal()
	require.True(t, ok)
	assert.Equal(t, "admin@example.com", p.ID)
	assert.True(t, p.HasRole(types.RoleAdmin))

	s.Clear()
	assert.False(t, s.IsLoggedIn())
}

func TestFromContext(t *testing.T) {
	s := New()
	ctx := WithSession(context.Background(), s)
	assert.Same(t, s, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestCodecRoundTrip(t *testing.T) {
	codec := NewCodec("secret", time.Hour)
	principal := types.Principal{ID: "admin@example.com", Roles: types.Roles{"admin", "editor"}, UUID: "u"}

	token, err := codec.Issue(principal)
	require.NoError(t, err)

	got, err := codec.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, principal, got)
}

func TestCodecRejects(t *testing.T) {
	codec := NewCodec("secret", time.Hour)
	token, err := codec.Issue(types.Principal{ID: "admin@example.com"})
	require.NoError(t, err)

	_, err = NewCodec("other", time.Hour).Parse(token)
	assert.Error(t, err)

	expired := NewCodec("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = expired.Parse(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	_, err = codec.Parse("not-a-token")
	assert.Error(t, err)
}

func TestFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := FromRequest(req)
	assert.Error(t, err)

	req.AddCookie(&http.Cookie{Name: CookieName, Value: "cookie-token"})
	token, err := FromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "cookie-token", token)

	req.Header.Set("Authorization", "Bearer header-token")
	token, err = FromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "header-token", token)
}
