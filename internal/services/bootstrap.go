package services

import (
	"context"

	"github.com/flatcms/accounts/internal/store"
)

// Bootstrap is the one-shot super admin state machine. The state lives in
// the settings registry so it survives restarts.
type Bootstrap struct {
	settings Settings
}

func NewBootstrap(settings Settings) *Bootstrap {
	return &Bootstrap{settings: settings}
}

// CanRegister reports whether no super admin has been registered yet.
func (b *Bootstrap) CanRegister(ctx context.Context) (bool, error) {
	registered, err := b.settings.GetBool(ctx, store.KeySuperAdminRegistered)
	if err != nil {
		return false, storageError("read bootstrap flag", err)
	}
	return !registered, nil
}

// MarkRegistered flips the flag to registered. Writing it twice is harmless.
func (b *Bootstrap) MarkRegistered(ctx context.Context) error {
	if err := b.settings.Set(ctx, store.KeySuperAdminRegistered, true); err != nil {
		return storageError("write bootstrap flag", err)
	}
	return nil
}
