package mail

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridTransport delivers messages through the SendGrid v3 API.
type SendGridTransport struct {
	client  *sendgrid.Client
	sandbox bool
}

func NewSendGridTransport(apiKey string, sandbox bool) *SendGridTransport {
	return &SendGridTransport{
		client:  sendgrid.NewSendClient(apiKey),
		sandbox: sandbox,
	}
}

// Send posts msg and treats any non-2xx response as a failure. The request
// is bound to ctx. Each call works on its own copy of the client, which
// carries the request body.
func (t *SendGridTransport) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	client := *t.client
	resp, err := client.SendWithContext(ctx, t.build(msg))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func (t *SendGridTransport) build(msg Message) *sgmail.SGMailV3 {
	from := sgmail.NewEmail(msg.FromName, msg.FromEmail)
	to := sgmail.NewEmail(msg.ToName, msg.ToEmail)
	email := sgmail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)
	if t.sandbox {
		ms := sgmail.NewMailSettings()
		ms.SetSandboxMode(sgmail.NewSetting(true))
		email.MailSettings = ms
	}
	return email
}
