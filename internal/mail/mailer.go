package mail

import (
	"context"
	"strings"

	"github.com/flatcms/accounts/internal/store"
	"github.com/sirupsen/logrus"
)

// SettingsReader reads the mail identity and site settings.
type SettingsReader interface {
	GetString(ctx context.Context, key string) (string, error)
}

// Mailer renders templates and hands them to a Transport. Every failure is
// returned so the caller decides whether it matters.
type Mailer struct {
	templates *Templates
	transport Transport
	settings  SettingsReader
	log       logrus.FieldLogger
}

func NewMailer(templates *Templates, transport Transport, settings SettingsReader, log logrus.FieldLogger) *Mailer {
	return &Mailer{
		templates: templates,
		transport: transport,
		settings:  settings,
		log:       log,
	}
}

// Send renders the named template for to. The tags sitename and url are
// filled from the settings unless tags already carries them.
func (m *Mailer) Send(ctx context.Context, template, to string, tags map[string]string) error {
	tpl, err := m.templates.Load(ctx, template)
	if err != nil {
		return err
	}

	fromEmail, err := m.settings.GetString(ctx, store.KeyMailFromEmail)
	if err != nil {
		return err
	}
	fromName, err := m.settings.GetString(ctx, store.KeyMailFromName)
	if err != nil {
		return err
	}
	siteTitle, err := m.settings.GetString(ctx, store.KeySiteTitle)
	if err != nil {
		return err
	}
	siteURL, err := m.settings.GetString(ctx, store.KeySiteURL)
	if err != nil {
		return err
	}
	if siteTitle == "" {
		siteTitle = fromName
	}

	all := map[string]string{
		"sitename": siteTitle,
		"url":      strings.TrimRight(siteURL, "/"),
	}
	for key, value := range tags {
		all[key] = value
	}

	text := Expand(tpl.Content, all)
	html, err := Render(text)
	if err != nil {
		return err
	}

	m.log.WithFields(logrus.Fields{"template": template, "to": to}).Debug("Sending email")
	return m.transport.Send(ctx, Message{
		FromName:  fromName,
		FromEmail: fromEmail,
		ToName:    all["user"],
		ToEmail:   to,
		Subject:   Expand(tpl.Subject, all),
		HTML:      html,
		Text:      text,
	})
}
