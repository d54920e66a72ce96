package services

import (
	"context"
	"testing"

	"github.com/flatcms/accounts/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountServiceCreate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account, err := env.accounts.Create(ctx, CreateAccountRequest{
		ID:       "  Editor@Example.com ",
		Password: "secret123",
		Name:     "Ed",
		Roles:    types.Roles{"editor"},
		Fields:   map[string]any{"bio": "hi"},
	})
	require.NoError(t, err)

	assert.Equal(t, "editor@example.com", account.ID)
	assert.Empty(t, account.HashedPassword)
	assert.Equal(t, types.AccountEnabled, account.State)
	assert.Equal(t, "2026-01-02 03:04:05", account.RegisteredAt)
	assert.Len(t, account.UUID, 36)

	ok, err := env.accounts.Exists(ctx, "editor@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err := env.repo.Get(ctx, "editor@example.com")
	require.NoError(t, err)
	assert.True(t, env.hasher.Verify("secret123", stored.HashedPassword))
	assert.Equal(t, "hi", stored.Fields["bio"])
}

func TestAccountServiceCreateConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.accounts.Create(ctx, CreateAccountRequest{ID: "a@example.com", Password: "one"})
	require.NoError(t, err)

	_, err = env.accounts.Create(ctx, CreateAccountRequest{ID: "a@example.com", Password: "two", Name: "Other"})
	assert.ErrorIs(t, err, ErrConflict)

	stored, err := env.repo.Get(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.UUID, stored.UUID)
	assert.Empty(t, stored.Name)
	assert.True(t, env.hasher.Verify("one", stored.HashedPassword))
}

func TestAccountServiceValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   CreateAccountRequest
		field string
	}{
		{name: "missing id", req: CreateAccountRequest{Password: "x"}, field: "id"},
		{name: "not an email", req: CreateAccountRequest{ID: "admin", Password: "x"}, field: "id"},
		{name: "missing password", req: CreateAccountRequest{ID: "a@example.com"}, field: "password"},
		{name: "bad state", req: CreateAccountRequest{ID: "a@example.com", Password: "x", State: "locked"}, field: "state"},
		{name: "reserved field", req: CreateAccountRequest{ID: "a@example.com", Password: "x", Fields: map[string]any{"uuid": "x"}}, field: "uuid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.accounts.Create(ctx, tt.req)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Contains(t, validationErr.Fields, tt.field)
		})
	}

	accounts, err := env.accounts.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestAccountServiceUpdateMerges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.accounts.Create(ctx, CreateAccountRequest{
		ID:       "a@example.com",
		Password: "secret123",
		Name:     "Alice",
		Fields:   map[string]any{"bio": "hi", "site": "example.com"},
	})
	require.NoError(t, err)

	updated, err := env.accounts.Update(ctx, "a@example.com", types.AccountPatch{
		Fields: map[string]any{"k": "v", "site": nil},
	})
	require.NoError(t, err)
	assert.Equal(t, "v", updated.Fields["k"])

	fetched, err := env.accounts.Fetch(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "v", fetched.Fields["k"])
	assert.Equal(t, "hi", fetched.Fields["bio"])
	assert.NotContains(t, fetched.Fields, "site")
	assert.Equal(t, "Alice", fetched.Name)
	assert.Equal(t, "a@example.com", fetched.ID)
	assert.Empty(t, fetched.HashedPassword)

	stored, err := env.repo.Get(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, env.hasher.Verify("secret123", stored.HashedPassword))
}

func TestAccountServiceUpdatePasswordAndState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.accounts.Create(ctx, CreateAccountRequest{ID: "a@example.com", Password: "old"})
	require.NoError(t, err)

	newPassword := "new"
	disabled := types.AccountDisabled
	roles := types.ParseRoles("admin, editor")
	_, err = env.accounts.Update(ctx, "a@example.com", types.AccountPatch{
		NewPassword: &newPassword,
		State:       &disabled,
		Roles:       &roles,
	})
	require.NoError(t, err)

	stored, err := env.repo.Get(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, env.hasher.Verify("new", stored.HashedPassword))
	assert.False(t, env.hasher.Verify("old", stored.HashedPassword))
	assert.Equal(t, types.AccountDisabled, stored.State)
	assert.Equal(t, types.Roles{"admin", "editor"}, stored.Roles)

	bad := types.AccountState("locked")
	_, err = env.accounts.Update(ctx, "a@example.com", types.AccountPatch{State: &bad})
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestAccountServiceUpdateMissing(t *testing.T) {
	env := newTestEnv(t)
	name := "x"
	_, err := env.accounts.Update(context.Background(), "nobody@example.com", types.AccountPatch{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAccountServiceFetchMissing(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.accounts.Fetch(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAccountServiceListAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, id := range []string{"a@example.com", "b@example.com"} {
		_, err := env.accounts.Create(ctx, CreateAccountRequest{ID: id, Password: "x"})
		require.NoError(t, err)
	}
	require.NoError(t, env.storage.CreateContainer(ctx, "accounts/orphan@example.com"))

	accounts, err := env.accounts.List(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	for _, account := range accounts {
		assert.Empty(t, account.HashedPassword)
		assert.Empty(t, account.HashedPasswordReset)
	}

	deleted, err := env.accounts.Delete(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = env.accounts.Delete(ctx, "a@example.com")
	require.NoError(t, err)
	assert.False(t, deleted)

	ok, err := env.accounts.Exists(ctx, "a@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAccountServiceStorageFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.accounts.Create(ctx, CreateAccountRequest{ID: "a@example.com", Password: "x"})
	require.NoError(t, err)

	env.backend.failWrites.Store(true)
	name := "New"
	_, err = env.accounts.Update(ctx, "a@example.com", types.AccountPatch{Name: &name})
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, errWriteFailed)
}
