package email

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

type SendGridSender struct {
	client *sendgrid.Client
}

func NewSendGridSender(apiKey string) *SendGridSender {
	return &SendGridSender{client: sendgrid.NewSendClient(apiKey)}
}

func (s *SendGridSender) Name() string { return "sendgrid" }

func (s *SendGridSender) Send(ctx context.Context, msg Message) Result {
	if err := validateMessage(msg); err != nil {
		return Result{Success: false, Error: err}
	}

	from := sgmail.NewEmail("", msg.From)
	to := sgmail.NewEmail("", msg.To)
	message := sgmail.NewSingleEmailPlainText(from, msg.Subject, to, msg.Body)

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return Result{Success: false, Error: fmt.Errorf("sendgrid send failed: %w", err)}
	}
	if resp.StatusCode >= 300 {
		return Result{Success: false, Error: fmt.Errorf("sendgrid rejected message: status %d", resp.StatusCode)}
	}

	messageID := ""
	if ids, ok := resp.Headers["X-Message-Id"]; ok && len(ids) > 0 {
		messageID = ids[0]
	}
	return Result{Success: true, MessageID: messageID}
}
