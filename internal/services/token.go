package services

import (
	"context"
	"errors"

	"github.com/flatcms/accounts/internal/store"
	"github.com/flatcms/accounts/types"
	"github.com/google/uuid"
)

const (
	defaultTokenTitle   = "Default"
	defaultTokenIconSet = "bootstrap"
	tokenMintAttempts   = 3
)

var defaultTokenIcons = map[types.TokenScope]string{
	types.ScopeEntries:  "newspaper",
	types.ScopeImages:   "images",
	types.ScopeRegistry: "archive",
	types.ScopeMedia:    "archive",
}

// TokenRepository defines persistence operations for access tokens.
type TokenRepository interface {
	Create(ctx context.Context, token types.AccessToken) (types.AccessToken, error)
}

// TokenProvisioner mints the default delivery tokens created at bootstrap.
type TokenProvisioner struct {
	repo     TokenRepository
	settings Settings
}

func NewTokenProvisioner(repo TokenRepository, settings Settings) *TokenProvisioner {
	return &TokenProvisioner{repo: repo, settings: settings}
}

// IssueDefaultTokens writes one enabled, unlimited token per default scope,
// stamped with ownerUUID as creator, then points each scope's
// default_token setting at it. It is not idempotent: a second call mints a
// new set and replaces the defaults.
func (p *TokenProvisioner) IssueDefaultTokens(ctx context.Context, ownerUUID, createdAt string) (types.DefaultTokens, error) {
	var issued types.DefaultTokens
	pointers := make(map[string]any, len(types.DefaultScopes))

	for _, scope := range types.DefaultScopes {
		token, err := p.mint(ctx, scope, ownerUUID, createdAt)
		if err != nil {
			return types.DefaultTokens{}, err
		}
		issued.Set(scope, token.Token)
		pointers[store.DefaultTokenKey(string(scope))] = token.Token
	}

	if err := p.settings.SetMany(ctx, pointers); err != nil {
		return types.DefaultTokens{}, storageError("store default tokens", err)
	}
	return issued, nil
}

func (p *TokenProvisioner) mint(ctx context.Context, scope types.TokenScope, ownerUUID, createdAt string) (types.AccessToken, error) {
	var lastErr error
	for range tokenMintAttempts {
		value, err := RandomHex()
		if err != nil {
			return types.AccessToken{}, err
		}
		token, err := p.repo.Create(ctx, types.AccessToken{
			Token: value,
			Scope: scope,
			Title: defaultTokenTitle,
			Icon: types.TokenIcon{
				Icon: defaultTokenIcons[scope],
				Set:  defaultTokenIconSet,
			},
			LimitCalls: 0,
			Calls:      0,
			State:      types.TokenEnabled,
			UUID:       uuid.NewString(),
			CreatedBy:  ownerUUID,
			CreatedAt:  createdAt,
			UpdatedBy:  ownerUUID,
			UpdatedAt:  createdAt,
		})
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return types.AccessToken{}, storageError("create token", err)
		}
		lastErr = err
	}
	return types.AccessToken{}, storageError("create token", lastErr)
}
