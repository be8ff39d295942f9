package notification

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartalerte/smartalerte/internal/conf"
	"github.com/smartalerte/smartalerte/internal/errors"
)

type capturedSend struct {
	url     string
	message string
	params  types.Params
}

func newCapturingEmailSender(settings conf.EmailSettings, result error) (*EmailSender, *capturedSend) {
	captured := &capturedSend{}
	s := NewEmailSender(settings)
	s.send = func(rawURL, message string, params types.Params) error {
		captured.url = rawURL
		captured.message = message
		captured.params = params
		return result
	}
	return s, captured
}

func smtpSettings() conf.EmailSettings {
	return conf.EmailSettings{
		Enabled:    true,
		Host:       "smtp.example.com",
		Port:       587,
		Username:   "alerts@example.com",
		Password:   "p@ss word",
		From:       "alerts@example.com",
		Encryption: "ExplicitTLS",
	}
}

func TestSendEmail_BuildsSMTPURL(t *testing.T) {
	t.Parallel()

	s, captured := newCapturingEmailSender(smtpSettings(), nil)
	n, err := s.SendEmail(context.Background(), []string{"a@example.com", "b@example.com"}, "Alerte déclenchée: Low", "body")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	u, err := url.Parse(captured.url)
	require.NoError(t, err)
	assert.Equal(t, "smtp", u.Scheme)
	assert.Equal(t, "smtp.example.com:587", u.Host)
	assert.Equal(t, "alerts@example.com", u.User.Username())
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss word", pw)

	q := u.Query()
	assert.Equal(t, "alerts@example.com", q.Get("fromaddress"))
	assert.Equal(t, "a@example.com,b@example.com", q.Get("toaddresses"))
	assert.Equal(t, "ExplicitTLS", q.Get("encryption"))
	assert.Empty(t, q.Get("auth"))

	assert.Equal(t, "body", captured.message)
	assert.Equal(t, "Alerte déclenchée: Low", captured.params["subject"])
}

func TestSendEmail_NoCredentialsDisablesAuth(t *testing.T) {
	t.Parallel()

	settings := smtpSettings()
	settings.Username, settings.Password = "", ""
	s, captured := newCapturingEmailSender(settings, nil)

	_, err := s.SendEmail(context.Background(), []string{"a@example.com"}, "s", "b")
	require.NoError(t, err)

	u, err := url.Parse(captured.url)
	require.NoError(t, err)
	assert.Nil(t, u.User)
	assert.Equal(t, "None", u.Query().Get("auth"))
}

func TestSendEmail_Failure(t *testing.T) {
	t.Parallel()

	s, _ := newCapturingEmailSender(smtpSettings(), errors.NewStd("connection refused"))
	n, err := s.SendEmail(context.Background(), []string{"a@example.com"}, "s", "b")
	require.Error(t, err)
	assert.Zero(t, n)
	assert.True(t, errors.IsCategory(err, errors.CategoryNotification))
}

func TestSendEmail_DisabledAndEmpty(t *testing.T) {
	t.Parallel()

	s, captured := newCapturingEmailSender(conf.EmailSettings{}, nil)
	_, err := s.SendEmail(context.Background(), []string{"a@example.com"}, "s", "b")
	require.ErrorIs(t, err, ErrChannelDisabled)

	s, captured = newCapturingEmailSender(smtpSettings(), nil)
	n, err := s.SendEmail(context.Background(), nil, "s", "b")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, captured.url)
}

func TestSendEmail_ContextCancelledWhileSending(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)

	s := NewEmailSender(smtpSettings())
	s.send = func(string, string, types.Params) error {
		<-release
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.SendEmail(ctx, []string{"a@example.com"}, "s", "b")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
