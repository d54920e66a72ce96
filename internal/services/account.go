package services

import (
	"context"
	"errors"
	"iter"
	"strings"
	"time"

	"github.com/flatcms/accounts/internal/store"
	"github.com/flatcms/accounts/types"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// DefaultDateFormat is used when the settings carry no date format.
const DefaultDateFormat = "2006-01-02 15:04:05"

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) (types.Account, error)
	Create(ctx context.Context, account types.Account) (types.Account, error)
	Update(ctx context.Context, id string, fn func(*types.Account) error) (types.Account, error)
	Delete(ctx context.Context, id string) (bool, error)
	All(ctx context.Context) iter.Seq2[types.Account, error]
}

// Settings is the global settings registry.
type Settings interface {
	Has(ctx context.Context, key string) (bool, error)
	GetString(ctx context.Context, key string) (string, error)
	GetBool(ctx context.Context, key string) (bool, error)
	Set(ctx context.Context, key string, value any) error
	SetMany(ctx context.Context, values map[string]any) error
}

// CreateAccountRequest is the input of AccountService.Create.
type CreateAccountRequest struct {
	ID       string             `json:"id" validate:"required,email,max=254"`
	Password string             `json:"password" validate:"required,max=72"`
	Name     string             `json:"name,omitempty" validate:"omitempty,max=255"`
	Roles    types.Roles        `json:"roles,omitempty"`
	State    types.AccountState `json:"state,omitempty" validate:"omitempty,oneof=enabled disabled"`
	Fields   map[string]any     `json:"fields,omitempty"`
}

// reservedFields cannot be set through the opaque extra fields.
var reservedFields = map[string]struct{}{
	"id":                    {},
	"name":                  {},
	"hashed_password":       {},
	"hashed_password_reset": {},
	"roles":                 {},
	"state":                 {},
	"uuid":                  {},
	"registered_at":         {},
}

// AccountService encapsulates account use-cases. Every account it returns
// has its secret fields stripped.
type AccountService struct {
	repo     AccountRepository
	settings Settings
	hasher   *PasswordHasher
	validate *validator.Validate
	now      func() time.Time
}

func NewAccountService(repo AccountRepository, settings Settings, hasher *PasswordHasher) *AccountService {
	return &AccountService{
		repo:     repo,
		settings: settings,
		hasher:   hasher,
		validate: newValidator(),
		now:      time.Now,
	}
}

// NormalizeID trims and lower-cases an account id. Email addresses are the
// canonical identifier.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func (s *AccountService) Exists(ctx context.Context, id string) (bool, error) {
	ok, err := s.repo.Exists(ctx, NormalizeID(id))
	if err != nil {
		return false, storageError("check account", err)
	}
	return ok, nil
}

func (s *AccountService) Fetch(ctx context.Context, id string) (types.Account, error) {
	account, err := s.repo.Get(ctx, NormalizeID(id))
	if err != nil {
		return types.Account{}, storageError("fetch account", err)
	}
	return account.Public(), nil
}

// Create validates req, hashes the password and writes a new account. It
// fails with ErrConflict when the id is taken.
func (s *AccountService) Create(ctx context.Context, req CreateAccountRequest) (types.Account, error) {
	account, err := s.newAccount(ctx, req)
	if err != nil {
		return types.Account{}, err
	}
	created, err := s.repo.Create(ctx, account)
	if err != nil {
		return types.Account{}, storageError("create account", err)
	}
	return created.Public(), nil
}

// Update applies patch over the stored account. The id cannot change.
func (s *AccountService) Update(ctx context.Context, id string, patch types.AccountPatch) (types.Account, error) {
	if err := validateStruct(s.validate, patch); err != nil {
		return types.Account{}, err
	}
	if err := checkFields(patch.Fields); err != nil {
		return types.Account{}, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}

	var hashed string
	if patch.NewPassword != nil && *patch.NewPassword != "" {
		var err error
		hashed, err = s.hasher.Hash(*patch.NewPassword)
		if err != nil {
			return types.Account{}, err
		}
	}

	updated, err := s.repo.Update(ctx, NormalizeID(id), func(account *types.Account) error {
		if patch.Name != nil {
			account.Name = *patch.Name
		}
		if patch.Roles != nil {
			account.Roles = *patch.Roles
		}
		if patch.State != nil {
			account.State = *patch.State
		}
		if hashed != "" {
			account.HashedPassword = hashed
		}
		for key, value := range patch.Fields {
			if value == nil {
				delete(account.Fields, key)
				continue
			}
			if account.Fields == nil {
				account.Fields = map[string]any{}
			}
			account.Fields[key] = value
		}
		return nil
	})
	if err != nil {
		return types.Account{}, storageError("update account", err)
	}
	return updated.Public(), nil
}

// Delete removes the account. It reports false when nothing was deleted.
func (s *AccountService) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := s.repo.Delete(ctx, NormalizeID(id))
	if err != nil {
		return false, storageError("delete account", err)
	}
	return deleted, nil
}

// All lazily yields every account. Each call restarts the listing.
func (s *AccountService) All(ctx context.Context) iter.Seq2[types.Account, error] {
	return func(yield func(types.Account, error) bool) {
		for account, err := range s.repo.All(ctx) {
			if err != nil {
				yield(types.Account{}, storageError("list accounts", err))
				return
			}
			if !yield(account.Public(), nil) {
				return
			}
		}
	}
}

func (s *AccountService) List(ctx context.Context) ([]types.Account, error) {
	accounts := []types.Account{}
	for account, err := range s.All(ctx) {
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// Now returns the current time formatted with the site date format.
func (s *AccountService) Now(ctx context.Context) (string, error) {
	format, err := s.settings.GetString(ctx, store.KeyDateFormat)
	if err != nil {
		return "", storageError("read date format", err)
	}
	if format == "" {
		format = DefaultDateFormat
	}
	return s.now().Format(format), nil
}

func (s *AccountService) newAccount(ctx context.Context, req CreateAccountRequest) (types.Account, error) {
	req.ID = NormalizeID(req.ID)
	req.Name = strings.TrimSpace(req.Name)
	if err := validateStruct(s.validate, req); err != nil {
		return types.Account{}, err
	}
	if err := checkFields(req.Fields); err != nil {
		return types.Account{}, err
	}

	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		return types.Account{}, err
	}
	registeredAt, err := s.Now(ctx)
	if err != nil {
		return types.Account{}, err
	}

	state := req.State
	if state == "" {
		state = types.AccountEnabled
	}

	var fields map[string]any
	if len(req.Fields) > 0 {
		fields = make(map[string]any, len(req.Fields))
		for key, value := range req.Fields {
			fields[key] = value
		}
	}

	return types.Account{
		ID:             req.ID,
		Name:           req.Name,
		HashedPassword: hashed,
		Roles:          req.Roles,
		State:          state,
		UUID:           uuid.NewString(),
		RegisteredAt:   registeredAt,
		Fields:         fields,
	}, nil
}

func checkFields(fields map[string]any) error {
	for key := range fields {
		if _, ok := reservedFields[key]; ok {
			return invalidField(key, "Field '"+key+"' cannot be set as a custom field")
		}
		if strings.TrimSpace(key) == "" {
			return invalidField("fields", "Custom field names must not be empty")
		}
	}
	return nil
}

// isNotFound reports whether err means the account does not exist.
func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
