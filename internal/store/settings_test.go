package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/flatcms/accounts/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsDottedKeys(t *testing.T) {
	ctx := context.Background()
	s, dir := newTestStorage(t)
	settings := NewSettingsRepository(s, "config/settings.yaml")

	ok, err := settings.Has(ctx, KeySuperAdminRegistered)
	require.NoError(t, err)
	assert.False(t, ok)

	registered, err := settings.GetBool(ctx, KeySuperAdminRegistered)
	require.NoError(t, err)
	assert.False(t, registered)

	require.NoError(t, settings.Set(ctx, KeySuperAdminRegistered, true))
	require.NoError(t, settings.SetMany(ctx, map[string]any{
		DefaultTokenKey("entries"): "aaa",
		DefaultTokenKey("media"):   "bbb",
	}))

	registered, err = settings.GetBool(ctx, KeySuperAdminRegistered)
	require.NoError(t, err)
	assert.True(t, registered)

	token, err := settings.GetString(ctx, "api.entries.default_token")
	require.NoError(t, err)
	assert.Equal(t, "aaa", token)

	raw, err := os.ReadFile(filepath.Join(dir, "config", "settings.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "supper_admin_registered: true")
	assert.Contains(t, string(raw), "default_token: bbb")
}

func TestSettingsInitKeepsExistingValues(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage(t)
	settings := NewSettingsRepository(s, "config/settings.yaml")

	require.NoError(t, settings.Set(ctx, KeyMailFromName, "Custom"))
	require.NoError(t, settings.Init(ctx, map[string]any{
		KeyMailFromName:         "Default",
		KeyMailFromEmail:        "site@example.com",
		KeySuperAdminRegistered: false,
	}))

	name, err := settings.GetString(ctx, KeyMailFromName)
	require.NoError(t, err)
	assert.Equal(t, "Custom", name)

	email, err := settings.GetString(ctx, KeyMailFromEmail)
	require.NoError(t, err)
	assert.Equal(t, "site@example.com", email)

	ok, err := settings.Has(ctx, KeySuperAdminRegistered)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSettingsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage(t)

	require.NoError(t, NewSettingsRepository(s, "config/settings.yaml").Set(ctx, KeySuperAdminRegistered, true))

	reopened := NewSettingsRepository(s, "config/settings.yaml")
	registered, err := reopened.GetBool(ctx, KeySuperAdminRegistered)
	require.NoError(t, err)
	assert.True(t, registered)
}

func TestTokenRepository(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage(t)
	repo := NewTokenRepository(s)

	token := types.AccessToken{
		Token:     "0123456789abcdef0123456789abcdef",
		Scope:     types.ScopeImages,
		Title:     "Default",
		Icon:      types.TokenIcon{Icon: "images", Set: "bootstrap"},
		State:     types.TokenEnabled,
		UUID:      "u",
		CreatedBy: "owner",
		CreatedAt: "2026-01-02 03:04:05",
		UpdatedBy: "owner",
		UpdatedAt: "2026-01-02 03:04:05",
	}
	_, err := repo.Create(ctx, token)
	require.NoError(t, err)

	_, err = repo.Create(ctx, token)
	assert.ErrorIs(t, err, ErrConflict)

	got, err := repo.Get(ctx, types.ScopeImages, token.Token)
	require.NoError(t, err)
	assert.Equal(t, token, got)

	_, err = repo.Get(ctx, types.ScopeMedia, token.Token)
	assert.ErrorIs(t, err, ErrNotFound)

	tokens, err := repo.List(ctx, types.ScopeImages)
	require.NoError(t, err)
	assert.Equal(t, []types.AccessToken{token}, tokens)
}
