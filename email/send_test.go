package email

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"testing"

	"github.com/ptgott/fluentmail/mailerr"
	"github.com/ptgott/fluentmail/session"
	"github.com/ptgott/fluentmail/smtptest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, opts smtptest.Options) (*smtptest.InProcessServer, *tls.Config) {
	t.Helper()

	key, cert, err := smtptest.GenerateTLSFiles(t)
	require.NoError(t, err)

	srv := smtptest.NewInProcessServer(key, cert, opts)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Close)

	tc, err := smtptest.ClientTLSConfig(cert)
	require.NoError(t, err)
	return srv, tc
}

func TestSendOverSMTP(t *testing.T) {
	srv, tc := startServer(t, smtptest.Options{})

	cfg, err := session.HostPort(srv.Host(), srv.Port()).TLSConfig(tc).UserPassword("me", "secret")
	require.NoError(t, err)

	body, err := NewBody().
		Content("<p>Hello, $name$!</p>").
		Delimiter('$').
		Replace("name", "World").
		AddAttachment(strings.NewReader("col1,col2\n1,2\n"), "numbers.csv", "text/csv").
		Build()
	require.NoError(t, err)

	e, err := New(cfg).
		From("Sender <sender@example.com>").
		To("to@example.com").
		Cc("cc@example.com").
		Bcc("bcc@example.com").
		Subject("Monthly report").
		Body(body).
		Build()
	require.NoError(t, err)

	require.NoError(t, e.Send(context.Background()))
	assert.Equal(t, StateSent, e.State())

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	m := msgs[0]
	assert.Equal(t, "me", m.Username)
	assert.Equal(t, "sender@example.com", m.From)
	assert.ElementsMatch(t, []string{"to@example.com", "cc@example.com", "bcc@example.com"}, m.Recipients)

	p, err := smtptest.ParseEmail(m.Data)
	require.NoError(t, err)
	assert.Equal(t, "to@example.com", p.Header.Get("To"))
	assert.Equal(t, "cc@example.com", p.Header.Get("Cc"))
	assert.Equal(t, "", p.Header.Get("Bcc"))
	assert.NotContains(t, m.Data, "bcc@example.com")
	assert.Equal(t, e.MessageID(), p.Header.Get("Message-ID"))
	assert.Equal(t, "Monthly report", p.Subject())

	part, ok := p.Body("text/html")
	require.True(t, ok)
	assert.Equal(t, "<p>Hello, World!</p>", string(part.Body))

	a := p.Attachments()
	require.Len(t, a, 1)
	assert.Equal(t, "numbers.csv", a[0].Filename)
	assert.Equal(t, "text/csv", a[0].Type)
	assert.Equal(t, "col1,col2\n1,2\n", string(a[0].Body))

	err = e.Send(context.Background())
	assert.True(t, errors.Is(err, mailerr.ErrValidation))
	assert.Len(t, srv.Messages(), 1)
}

func TestSendAuthModes(t *testing.T) {
	testCases := []struct {
		description   string
		opts          smtptest.Options
		build         func(*session.Builder) (*session.Config, error)
		expectedUser  string
		shouldBeError bool
		errContains   string
	}{
		{
			description: "unauthenticated",
			opts:        smtptest.Options{AllowAnonymous: true},
			build:       (*session.Builder).Unauthenticated,
		},
		{
			description:   "server requires auth",
			opts:          smtptest.Options{},
			build:         (*session.Builder).Unauthenticated,
			shouldBeError: true,
		},
		{
			description: "STARTTLS",
			opts:        smtptest.Options{},
			build: func(b *session.Builder) (*session.Config, error) {
				return b.TLSAuth("me", "secret")
			},
			expectedUser: "me",
		},
		{
			description: "STARTTLS not offered",
			opts:        smtptest.Options{DisableStartTLS: true},
			build: func(b *session.Builder) (*session.Config, error) {
				return b.TLSAuth("me", "secret")
			},
			shouldBeError: true,
			errContains:   "STARTTLS",
		},
		{
			description: "plain auth without STARTTLS",
			opts:        smtptest.Options{DisableStartTLS: true},
			build: func(b *session.Builder) (*session.Config, error) {
				return b.UserPassword("me", "secret")
			},
			expectedUser: "me",
		},
		{
			description: "implicit TLS",
			opts:        smtptest.Options{ImplicitTLS: true},
			build: func(b *session.Builder) (*session.Config, error) {
				return b.SSLAuth("me", "secret")
			},
			expectedUser: "me",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			srv, tlsConf := startServer(t, tc.opts)

			cfg, err := tc.build(session.HostPort(srv.Host(), srv.Port()).TLSConfig(tlsConf))
			require.NoError(t, err)

			e, err := New(cfg).
				From("sender@example.com").
				To("to@example.com").
				Subject(tc.description).
				Body(BodyFromString("<p>hi</p>")).
				Build()
			require.NoError(t, err)

			err = e.Send(context.Background())
			if (err != nil) != tc.shouldBeError {
				t.Fatalf(
					"%v: unexpected error status--wanted %v but got %v with error %v",
					tc.description,
					tc.shouldBeError,
					err != nil,
					err,
				)
			}
			if tc.shouldBeError {
				assert.True(t, errors.Is(err, mailerr.ErrDelivery), err)
				assert.Contains(t, err.Error(), tc.errContains)
				assert.Equal(t, StateSendFailed, e.State())
				assert.Empty(t, srv.Messages())
				return
			}

			msgs := srv.Messages()
			require.Len(t, msgs, 1)
			assert.Equal(t, tc.expectedUser, msgs[0].Username)
		})
	}
}

func TestSendConnectionRefused(t *testing.T) {
	srv, _ := startServer(t, smtptest.Options{AllowAnonymous: true})
	port := srv.Port()
	srv.Close()

	cfg, err := session.HostPort(smtptest.Host, port).Unauthenticated()
	require.NoError(t, err)
	e, err := New(cfg).From("sender@example.com").To("to@example.com").Build()
	require.NoError(t, err)

	err = e.Send(context.Background())
	assert.True(t, errors.Is(err, mailerr.ErrDelivery), err)
	assert.Equal(t, StateSendFailed, e.State())
}
