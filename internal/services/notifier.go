package services

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"user-directory-server/internal/models"
)

// RecoveryNotifier tells a user that a password recovery was requested.
type RecoveryNotifier interface {
	NotifyRecovery(ctx context.Context, user models.User) error
}

// LogNotifier records recovery requests in the service log only.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifyRecovery(ctx context.Context, user models.User) error {
	n.log.InfoContext(ctx, "password recovery requested", "user_id", user.ID)
	return nil
}

type mailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendgridNotifier e-mails the recovery notice through SendGrid.
type SendgridNotifier struct {
	client mailSender
	from   *mail.Email
}

func NewSendgridNotifier(apiKey, from string) *SendgridNotifier {
	return &SendgridNotifier{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail("User Directory", from),
	}
}

func (n *SendgridNotifier) NotifyRecovery(ctx context.Context, user models.User) error {
	to := mail.NewEmail(user.Username, user.Email)
	subject := "Password recovery requested"
	plain := fmt.Sprintf("Hello %s, we received a request to recover the password of your account.", user.Username)
	body := fmt.Sprintf("<p>Hello %s,</p><p>we received a request to recover the password of your account.</p>", html.EscapeString(user.Username))

	resp, err := n.client.SendWithContext(ctx, mail.NewSingleEmail(n.from, subject, to, plain, body))
	if err != nil {
		return fmt.Errorf("send recovery mail: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("send recovery mail: status %d", resp.StatusCode)
	}
	return nil
}
