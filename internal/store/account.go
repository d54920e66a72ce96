package store

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/flatcms/accounts/internal/storage"
	"github.com/flatcms/accounts/types"
)

const (
	accountsRoot = "accounts"
	profileFile  = "profile.yaml"
	idKey        = "id"
)

// AccountRepository persists one profile document per account under
// accounts/<id>/profile.yaml.
type AccountRepository struct {
	storage *storage.Storage
	locks   stripedLock
}

func NewAccountRepository(s *storage.Storage) *AccountRepository {
	return &AccountRepository{storage: s}
}

// Exists reports whether a profile document exists for id. A container
// without a profile does not count.
func (r *AccountRepository) Exists(ctx context.Context, id string) (bool, error) {
	key, err := profileKey(id)
	if err != nil {
		return false, nil
	}
	return r.storage.Exists(ctx, key)
}

func (r *AccountRepository) Get(ctx context.Context, id string) (types.Account, error) {
	key, err := profileKey(id)
	if err != nil {
		return types.Account{}, ErrNotFound
	}
	return r.read(ctx, id, key)
}

// Create creates the account container, then writes the profile. The write
// fails with ErrConflict when a profile for the id already exists.
func (r *AccountRepository) Create(ctx context.Context, account types.Account) (types.Account, error) {
	dir, err := storage.Join(accountsRoot, account.ID)
	if err != nil {
		return types.Account{}, err
	}
	if err := r.storage.CreateContainer(ctx, dir); err != nil {
		return types.Account{}, err
	}

	data, err := Encode(account)
	if err != nil {
		return types.Account{}, err
	}

	unlock := r.locks.lock(account.ID)
	defer unlock()
	if err := r.storage.Create(ctx, dir+"/"+profileFile, data); err != nil {
		if errors.Is(err, storage.ErrExist) {
			return types.Account{}, ErrConflict
		}
		return types.Account{}, err
	}
	return account, nil
}

// Update reads the account, applies fn and writes the result as one record.
// Nothing is written when fn returns an error. Concurrent updates of the
// same account are serialized.
func (r *AccountRepository) Update(ctx context.Context, id string, fn func(*types.Account) error) (types.Account, error) {
	key, err := profileKey(id)
	if err != nil {
		return types.Account{}, ErrNotFound
	}

	unlock := r.locks.lock(id)
	defer unlock()

	account, err := r.read(ctx, id, key)
	if err != nil {
		return types.Account{}, err
	}
	if err := fn(&account); err != nil {
		return types.Account{}, err
	}
	account.ID = id

	data, err := Encode(account)
	if err != nil {
		return types.Account{}, err
	}
	if err := r.storage.Write(ctx, key, data); err != nil {
		return types.Account{}, err
	}
	return account, nil
}

// Delete removes the profile document. It reports false when there was
// nothing to delete.
func (r *AccountRepository) Delete(ctx context.Context, id string) (bool, error) {
	key, err := profileKey(id)
	if err != nil {
		return false, nil
	}
	unlock := r.locks.lock(id)
	defer unlock()
	return r.storage.Delete(ctx, key)
}

// All yields every account with a profile document. Containers without a
// profile are skipped. Each call starts a fresh listing.
func (r *AccountRepository) All(ctx context.Context) iter.Seq2[types.Account, error] {
	return func(yield func(types.Account, error) bool) {
		entries, err := r.storage.List(ctx, accountsRoot)
		if err != nil {
			yield(types.Account{}, err)
			return
		}
		for _, entry := range entries {
			if entry.Type != storage.TypeDir {
				continue
			}
			id := entry.Name()
			account, err := r.Get(ctx, id)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if !yield(account, err) {
				return
			}
		}
	}
}

func (r *AccountRepository) List(ctx context.Context) ([]types.Account, error) {
	var accounts []types.Account
	for account, err := range r.All(ctx) {
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (r *AccountRepository) read(ctx context.Context, id, key string) (types.Account, error) {
	data, err := r.storage.Read(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return types.Account{}, ErrNotFound
		}
		return types.Account{}, err
	}

	var account types.Account
	if err := Decode(data, &account); err != nil {
		return types.Account{}, fmt.Errorf("account %q: %w", id, err)
	}
	// The id is the record location. A stray id key in the document is
	// dropped so it is neither returned nor written back.
	delete(account.Fields, idKey)
	account.ID = id
	return account, nil
}

func profileKey(id string) (string, error) {
	return storage.Join(accountsRoot, id, profileFile)
}
