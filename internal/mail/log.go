package mail

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogTransport only logs the envelope. It is used when no mail provider is
// configured.
type LogTransport struct {
	log logrus.FieldLogger
}

func NewLogTransport(log logrus.FieldLogger) *LogTransport {
	return &LogTransport{log: log}
}

func (t *LogTransport) Send(_ context.Context, msg Message) error {
	t.log.WithFields(logrus.Fields{
		"to":      msg.ToEmail,
		"subject": msg.Subject,
	}).Info("Email not sent, no mail transport configured")
	return nil
}
