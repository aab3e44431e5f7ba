package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"user-directory-server/internal/models"
)

type fakeSender struct {
	sent   []*mail.SGMailV3
	status int
	err    error
}

func (f *fakeSender) SendWithContext(_ context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	f.sent = append(f.sent, email)
	if f.err != nil {
		return nil, f.err
	}
	return &rest.Response{StatusCode: f.status}, nil
}

func newTestSendgridNotifier(sender *fakeSender) *SendgridNotifier {
	return &SendgridNotifier{client: sender, from: mail.NewEmail("User Directory", "no-reply@example.com")}
}

func TestSendgridNotifier_Sends(t *testing.T) {
	sender := &fakeSender{status: 202}
	n := newTestSendgridNotifier(sender)

	err := n.NotifyRecovery(context.Background(), models.User{ID: 1, Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "Password recovery requested", msg.Subject)
	require.Len(t, msg.Personalizations, 1)
	assert.Equal(t, "alice@example.com", msg.Personalizations[0].To[0].Address)
}

func TestSendgridNotifier_Failures(t *testing.T) {
	user := models.User{ID: 1, Username: "alice", Email: "alice@example.com"}

	err := newTestSendgridNotifier(&fakeSender{status: 401}).NotifyRecovery(context.Background(), user)
	assert.ErrorContains(t, err, "status 401")

	err = newTestSendgridNotifier(&fakeSender{err: errors.New("dial tcp")}).NotifyRecovery(context.Background(), user)
	assert.ErrorContains(t, err, "dial tcp")
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.NoError(t, n.NotifyRecovery(context.Background(), models.User{ID: 3}))
}
