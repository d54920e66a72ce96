package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flatcms/accounts/internal/logging"
	"github.com/flatcms/accounts/internal/storage"
	"github.com/flatcms/accounts/internal/store"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var errWriteFailed = errors.New("disk full")

type sentMail struct {
	template string
	to       string
	tags     map[string]string
}

// fakeMailer records sends. With block set it hangs until ctx is done, like
// a provider that never answers.
type fakeMailer struct {
	mu    sync.Mutex
	sent  []sentMail
	err   error
	block bool
}

func (m *fakeMailer) Send(ctx context.Context, template, to string, tags map[string]string) error {
	m.mu.Lock()
	m.sent = append(m.sent, sentMail{template: template, to: to, tags: tags})
	block, err := m.block, m.err
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (m *fakeMailer) last() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMail{}
	}
	return m.sent[len(m.sent)-1]
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *fakeNotifier) Emit(_ context.Context, event string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *fakeNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

// flakyBackend fails writes while failWrites is set.
type flakyBackend struct {
	storage.Backend
	failWrites atomic.Bool
}

func (b *flakyBackend) Write(ctx context.Context, key string, data []byte) error {
	if b.failWrites.Load() {
		return errWriteFailed
	}
	return b.Backend.Write(ctx, key, data)
}

type testEnv struct {
	backend   *flakyBackend
	storage   *storage.Storage
	repo      *store.AccountRepository
	tokenRepo *store.TokenRepository
	settings  *store.SettingsRepository
	hasher    *PasswordHasher
	accounts  *AccountService
	bootstrap *Bootstrap
	tokens    *TokenProvisioner
	auth      *AuthService
	reset     *ResetService
	mailer    *fakeMailer
	notifier  *fakeNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	local, err := storage.NewLocalBackend(t.TempDir())
	require.NoError(t, err)
	backend := &flakyBackend{Backend: local}
	s := storage.NewStorage(backend)
	require.NoError(t, s.Init(context.Background()))

	hasher, err := NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	env := &testEnv{
		backend:   backend,
		storage:   s,
		repo:      store.NewAccountRepository(s),
		tokenRepo: store.NewTokenRepository(s),
		settings:  store.NewSettingsRepository(s, "config/settings.yaml"),
		hasher:    hasher,
		mailer:    &fakeMailer{},
		notifier:  &fakeNotifier{},
	}
	log := logging.Discard()

	env.accounts = NewAccountService(env.repo, env.settings, hasher)
	env.accounts.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	env.bootstrap = NewBootstrap(env.settings)
	env.tokens = NewTokenProvisioner(env.tokenRepo, env.settings)
	env.auth = NewAuthService(AuthDeps{
		Accounts:  env.accounts,
		Repo:      env.repo,
		Hasher:    hasher,
		Bootstrap: env.bootstrap,
		Tokens:    env.tokens,
		Mailer:    env.mailer,
		Notifier:  env.notifier,
		Log:       log,
	})
	env.reset = NewResetService(env.repo, hasher, env.settings, env.mailer, env.notifier, log)
	return env
}

// shortMailTimeout lowers the delivery bound for the duration of a test.
func shortMailTimeout(t *testing.T) {
	t.Helper()
	previous := mailTimeout
	mailTimeout = 50 * time.Millisecond
	t.Cleanup(func() { mailTimeout = previous })
}

func (e *testEnv) register(t *testing.T, id, password string) {
	t.Helper()
	_, _, err := e.auth.Register(context.Background(), RegisterRequest{ID: id, Password: password})
	require.NoError(t, err)
}
