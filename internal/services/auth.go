package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flatcms/accounts/internal/session"
	"github.com/flatcms/accounts/types"
	"github.com/sirupsen/logrus"
)

// Events raised for external subscribers.
const (
	EventUserLoggedIn     = "onAccountsAdminUserLoggedIn"
	EventNewPasswordReset = "onAccountsAdminNewPasswordReset"
	EventLogout           = "onAccountsAdminLogout"
	EventRegistered       = "onAccountsAdminRegistered"
)

// Email templates.
const (
	TemplateNewUser       = "new-user"
	TemplateResetPassword = "reset-password"
	TemplateNewPassword   = "new-password"
)

// mailTimeout bounds a single email delivery. It is detached from the
// request context so a disconnecting client does not cancel the send.
var mailTimeout = 10 * time.Second

// Mailer renders the named template with tags and sends it to one recipient.
type Mailer interface {
	Send(ctx context.Context, template, to string, tags map[string]string) error
}

// Notifier emits named events. It never fails the caller.
type Notifier interface {
	Emit(ctx context.Context, event string)
}

// RegisterRequest is the input of the super admin registration.
type RegisterRequest struct {
	ID       string         `json:"id"`
	Password string         `json:"password"`
	Name     string         `json:"name,omitempty"`
	Fields   map[string]any `json:"fields,omitempty"`
}

// AuthService implements registration, login and logout.
type AuthService struct {
	accounts  *AccountService
	repo      AccountRepository
	hasher    *PasswordHasher
	bootstrap *Bootstrap
	tokens    *TokenProvisioner
	mailer    Mailer
	notifier  Notifier
	log       logrus.FieldLogger

	registerMu sync.Mutex
}

// AuthDeps groups the collaborators of AuthService.
type AuthDeps struct {
	Accounts  *AccountService
	Repo      AccountRepository
	Hasher    *PasswordHasher
	Bootstrap *Bootstrap
	Tokens    *TokenProvisioner
	Mailer    Mailer
	Notifier  Notifier
	Log       logrus.FieldLogger
}

func NewAuthService(deps AuthDeps) *AuthService {
	return &AuthService{
		accounts:  deps.Accounts,
		repo:      deps.Repo,
		hasher:    deps.Hasher,
		bootstrap: deps.Bootstrap,
		tokens:    deps.Tokens,
		mailer:    deps.Mailer,
		notifier:  deps.Notifier,
		log:       deps.Log,
	}
}

// Register creates the super admin, mints the default tokens and closes
// registration. It is rejected before touching the account store once a
// super admin exists. Registrations within this process are serialized;
// across processes the exclusive account create decides the winner.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (types.Account, types.DefaultTokens, error) {
	s.registerMu.Lock()
	defer s.registerMu.Unlock()

	open, err := s.bootstrap.CanRegister(ctx)
	if err != nil {
		return types.Account{}, types.DefaultTokens{}, err
	}
	if !open {
		return types.Account{}, types.DefaultTokens{}, ErrRegistrationClosed
	}

	account, err := s.accounts.Create(ctx, CreateAccountRequest{
		ID:       req.ID,
		Password: req.Password,
		Name:     req.Name,
		Roles:    types.Roles{types.RoleAdmin},
		State:    types.AccountEnabled,
		Fields:   req.Fields,
	})
	if err != nil {
		return types.Account{}, types.DefaultTokens{}, err
	}
	log := s.log.WithField("account_id", account.ID)

	deliver(ctx, s.mailer, log, TemplateNewUser, account, nil)

	tokens, err := s.tokens.IssueDefaultTokens(ctx, account.UUID, account.RegisteredAt)
	if err != nil {
		log.WithError(err).Error("Failed to issue default tokens, registration left incomplete")
		return types.Account{}, types.DefaultTokens{}, err
	}
	if err := s.bootstrap.MarkRegistered(ctx); err != nil {
		log.WithError(err).Error("Failed to close registration")
		return types.Account{}, types.DefaultTokens{}, err
	}

	log.Info("Super admin registered")
	s.notifier.Emit(ctx, EventRegistered)
	return account, tokens, nil
}

// Login verifies the credentials and stores the principal in sess. Unknown
// accounts, wrong passwords and disabled accounts all fail with
// ErrInvalidCredentials after a hash comparison.
func (s *AuthService) Login(ctx context.Context, sess *session.Session, id, password string) (types.Principal, error) {
	id = NormalizeID(id)

	account, err := s.repo.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			s.hasher.VerifyDummy(password)
			return types.Principal{}, ErrInvalidCredentials
		}
		return types.Principal{}, storageError("fetch account", err)
	}

	if !s.hasher.Verify(password, account.HashedPassword) {
		return types.Principal{}, ErrInvalidCredentials
	}
	if account.State != types.AccountEnabled {
		s.log.WithField("account_id", id).Warn("Login attempt on disabled account")
		return types.Principal{}, ErrInvalidCredentials
	}

	principal := types.Principal{
		ID:    account.ID,
		Roles: account.Roles,
		UUID:  account.UUID,
	}
	if sess != nil {
		sess.SetPrincipal(principal)
	}

	s.log.WithField("account_id", id).Info("Account logged in")
	s.notifier.Emit(ctx, EventUserLoggedIn)
	return principal, nil
}

// Resolve checks a principal carried by a session token against the stored
// account. It fails with ErrInvalidCredentials when the account is gone, is
// not enabled or was recreated under the same id. Roles come from the
// record, not from the token.
func (s *AuthService) Resolve(ctx context.Context, claimed types.Principal) (types.Principal, error) {
	account, err := s.repo.Get(ctx, NormalizeID(claimed.ID))
	if err != nil {
		if isNotFound(err) {
			return types.Principal{}, ErrInvalidCredentials
		}
		return types.Principal{}, storageError("fetch account", err)
	}
	if account.State != types.AccountEnabled || account.UUID != claimed.UUID {
		return types.Principal{}, ErrInvalidCredentials
	}
	return types.Principal{
		ID:    account.ID,
		Roles: account.Roles,
		UUID:  account.UUID,
	}, nil
}

// Logout clears sess and raises the logout event.
func (s *AuthService) Logout(ctx context.Context, sess *session.Session) {
	if sess != nil {
		if principal, ok := sess.Principal(); ok {
			s.log.WithField("account_id", principal.ID).Info("Account logged out")
		}
		sess.Clear()
	}
	s.notifier.Emit(ctx, EventLogout)
}

// deliver sends a templated email to account. Failures are logged and
// dropped so a credential change that already happened is never reported as
// failed.
func deliver(ctx context.Context, mailer Mailer, log logrus.FieldLogger, template string, account types.Account, extra map[string]string) {
	tags := map[string]string{
		"email": account.ID,
		"user":  account.DisplayName(),
	}
	for key, value := range extra {
		tags[key] = value
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mailTimeout)
	defer cancel()
	if err := mailer.Send(ctx, template, account.ID, tags); err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrMail, template, err)
		log.WithError(err).Warn("Email not delivered")
	}
}
