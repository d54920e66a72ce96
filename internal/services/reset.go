package services

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/flatcms/accounts/internal/store"
	"github.com/flatcms/accounts/types"
	"github.com/sirupsen/logrus"
)

// ResetService implements password reset by emailed link.
type ResetService struct {
	repo     AccountRepository
	hasher   *PasswordHasher
	settings Settings
	mailer   Mailer
	notifier Notifier
	log      logrus.FieldLogger
}

func NewResetService(repo AccountRepository, hasher *PasswordHasher, settings Settings, mailer Mailer, notifier Notifier, log logrus.FieldLogger) *ResetService {
	return &ResetService{
		repo:     repo,
		hasher:   hasher,
		settings: settings,
		mailer:   mailer,
		notifier: notifier,
		log:      log,
	}
}

// RequestReset stores the hash of a fresh random value as the pending reset
// of id, replacing any earlier one, and emails the reset link. The raw value
// is returned and never persisted.
func (s *ResetService) RequestReset(ctx context.Context, id string) (string, error) {
	id = NormalizeID(id)

	raw, err := RandomHex()
	if err != nil {
		return "", err
	}
	hashed, err := s.hasher.Hash(raw)
	if err != nil {
		return "", err
	}

	account, err := s.repo.Update(ctx, id, func(account *types.Account) error {
		account.HashedPasswordReset = hashed
		return nil
	})
	if err != nil {
		return "", storageError("store reset", err)
	}

	log := s.log.WithField("account_id", id)
	log.Info("Password reset requested")

	link, err := s.ResetLink(ctx, id, raw)
	if err != nil {
		log.WithError(err).Warn("Failed to build reset link")
	}
	deliver(ctx, s.mailer, log, TemplateResetPassword, account, map[string]string{
		"new_hash": raw,
		"link":     link,
	})
	s.notifier.Emit(ctx, EventNewPasswordReset)
	return raw, nil
}

// ConsumeReset verifies presented against the pending reset of id. On a
// match it sets a new random password and clears the reset in the same
// record write, then emails the new password and returns it. A mismatch
// leaves the account untouched.
func (s *ResetService) ConsumeReset(ctx context.Context, id, presented string) (string, error) {
	id = NormalizeID(id)

	password, err := RandomHex()
	if err != nil {
		return "", err
	}
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return "", err
	}

	account, err := s.repo.Update(ctx, id, func(account *types.Account) error {
		if !account.ResetPending() {
			return ErrInvalidToken
		}
		if !s.hasher.Verify(presented, account.HashedPasswordReset) {
			return ErrInvalidToken
		}
		account.HashedPassword = hashed
		account.HashedPasswordReset = ""
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return "", err
		}
		return "", storageError("consume reset", err)
	}

	log := s.log.WithField("account_id", id)
	log.Info("Password reset completed")

	deliver(ctx, s.mailer, log, TemplateNewPassword, account, map[string]string{
		"password": password,
	})
	s.notifier.Emit(ctx, EventNewPasswordReset)
	return password, nil
}

// ResetLink returns the URL that consumes raw for id.
func (s *ResetService) ResetLink(ctx context.Context, id, raw string) (string, error) {
	base, err := s.settings.GetString(ctx, store.KeySiteURL)
	if err != nil {
		return "", storageError("read site url", err)
	}
	return strings.TrimRight(base, "/") + "/accounts/new-password/" + url.PathEscape(NormalizeID(id)) + "/" + url.PathEscape(raw), nil
}
