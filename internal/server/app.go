package server

import (
	"context"
	"errors"

	"github.com/flatcms/accounts/config"
	"github.com/flatcms/accounts/internal/mail"
	"github.com/flatcms/accounts/internal/mq"
	"github.com/flatcms/accounts/internal/services"
	"github.com/flatcms/accounts/internal/session"
	"github.com/flatcms/accounts/internal/storage"
	"github.com/flatcms/accounts/internal/store"
	"github.com/sirupsen/logrus"
)

const settingsKey = "config/settings.yaml"

var errNoApp = errors.New("server: app is required")

// App holds the wired services shared by the HTTP server and the CLI.
type App struct {
	Config    config.Config
	Log       logrus.FieldLogger
	Storage   *storage.Storage
	Settings  *store.SettingsRepository
	Tokens    *store.TokenRepository
	Accounts  *services.AccountService
	Auth      *services.AuthService
	Reset     *services.ResetService
	Bootstrap *services.Bootstrap
	MQ        *mq.MQ
	Codec     *session.Codec
}

// NewApp opens the record store and the event transport and wires the
// services on top of them.
func NewApp(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*App, error) {
	s, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	settings := store.NewSettingsRepository(s, settingsKey)
	if err := settings.Init(ctx, settingDefaults(cfg)); err != nil {
		return nil, err
	}

	events, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		return nil, err
	}
	return Wire(cfg, log, s, settings, events, newTransport(cfg, log))
}

// Wire builds an App from already opened collaborators.
func Wire(cfg config.Config, log logrus.FieldLogger, s *storage.Storage, settings *store.SettingsRepository, events *mq.MQ, transport mail.Transport) (*App, error) {
	hasher, err := services.NewPasswordHasher(cfg.Auth.BcryptCost)
	if err != nil {
		_ = events.Close()
		return nil, err
	}

	accountRepo := store.NewAccountRepository(s)
	tokenRepo := store.NewTokenRepository(s)
	notifier := mq.NewNotifier(events, cfg.MQ.Channel, log)
	mailer := mail.NewMailer(mail.NewTemplates(s), transport, settings, log)

	accounts := services.NewAccountService(accountRepo, settings, hasher)
	bootstrap := services.NewBootstrap(settings)
	auth := services.NewAuthService(services.AuthDeps{
		Accounts:  accounts,
		Repo:      accountRepo,
		Hasher:    hasher,
		Bootstrap: bootstrap,
		Tokens:    services.NewTokenProvisioner(tokenRepo, settings),
		Mailer:    mailer,
		Notifier:  notifier,
		Log:       log,
	})

	return &App{
		Config:    cfg,
		Log:       log,
		Storage:   s,
		Settings:  settings,
		Tokens:    tokenRepo,
		Accounts:  accounts,
		Auth:      auth,
		Reset:     services.NewResetService(accountRepo, hasher, settings, mailer, notifier, log),
		Bootstrap: bootstrap,
		MQ:        events,
		Codec:     session.NewCodec(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL),
	}, nil
}

// Close releases the event transport.
func (a *App) Close() error {
	if a.MQ == nil {
		return nil
	}
	return a.MQ.Close()
}

// settingDefaults seeds the settings registry from config. Keys already in
// the registry are kept.
func settingDefaults(cfg config.Config) map[string]any {
	dateFormat := cfg.Site.DateFormat
	if dateFormat == "" {
		dateFormat = services.DefaultDateFormat
	}
	return map[string]any{
		store.KeyMailFromEmail: cfg.Mail.FromEmail,
		store.KeyMailFromName:  cfg.Mail.FromName,
		store.KeySiteURL:       cfg.Site.URL,
		store.KeySiteTitle:     cfg.Site.Title,
		store.KeyDateFormat:    dateFormat,
	}
}

func newTransport(cfg config.Config, log logrus.FieldLogger) mail.Transport {
	if cfg.Mail.SendGridAPIKey == "" {
		return mail.NewLogTransport(log)
	}
	return mail.NewSendGridTransport(cfg.Mail.SendGridAPIKey, cfg.Mail.SandboxMode)
}
