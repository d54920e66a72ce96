package mail

import (
	"context"
	"errors"
)

// ErrUnknownTemplate is returned when neither the record store nor the
// built-in set has the requested template.
var ErrUnknownTemplate = errors.New("unknown email template")

// Message is a fully rendered email.
type Message struct {
	FromName  string
	FromEmail string
	ToName    string
	ToEmail   string
	Subject   string
	HTML      string
	Text      string
}

// Transport delivers rendered messages.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}
