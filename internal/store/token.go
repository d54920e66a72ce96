package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/flatcms/accounts/internal/storage"
	"github.com/flatcms/accounts/types"
)

const (
	tokensRoot = "tokens"
	tokenFile  = "token.yaml"
)

// TokenRepository persists access tokens under tokens/<scope>/<token>/token.yaml.
type TokenRepository struct {
	storage *storage.Storage
}

func NewTokenRepository(s *storage.Storage) *TokenRepository {
	return &TokenRepository{storage: s}
}

// Create writes a new token document. It fails with ErrConflict if the
// token value is already taken within its scope.
func (r *TokenRepository) Create(ctx context.Context, token types.AccessToken) (types.AccessToken, error) {
	dir, err := storage.Join(tokensRoot, string(token.Scope), token.Token)
	if err != nil {
		return types.AccessToken{}, err
	}
	if err := r.storage.CreateContainer(ctx, dir); err != nil {
		return types.AccessToken{}, err
	}

	data, err := Encode(token)
	if err != nil {
		return types.AccessToken{}, err
	}
	if err := r.storage.Create(ctx, dir+"/"+tokenFile, data); err != nil {
		if errors.Is(err, storage.ErrExist) {
			return types.AccessToken{}, ErrConflict
		}
		return types.AccessToken{}, err
	}
	return token, nil
}

func (r *TokenRepository) Get(ctx context.Context, scope types.TokenScope, token string) (types.AccessToken, error) {
	key, err := storage.Join(tokensRoot, string(scope), token, tokenFile)
	if err != nil {
		return types.AccessToken{}, ErrNotFound
	}

	data, err := r.storage.Read(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return types.AccessToken{}, ErrNotFound
		}
		return types.AccessToken{}, err
	}

	var accessToken types.AccessToken
	if err := Decode(data, &accessToken); err != nil {
		return types.AccessToken{}, fmt.Errorf("token %s/%s: %w", scope, token, err)
	}
	accessToken.Scope = scope
	accessToken.Token = token
	return accessToken, nil
}

// List returns every token of scope.
func (r *TokenRepository) List(ctx context.Context, scope types.TokenScope) ([]types.AccessToken, error) {
	dir, err := storage.Join(tokensRoot, string(scope))
	if err != nil {
		return nil, err
	}
	entries, err := r.storage.List(ctx, dir)
	if err != nil {
		return nil, err
	}

	var tokens []types.AccessToken
	for _, entry := range entries {
		if entry.Type != storage.TypeDir {
			continue
		}
		token, err := r.Get(ctx, scope, entry.Name())
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}
