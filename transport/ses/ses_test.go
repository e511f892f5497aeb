package ses

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/ptgott/fluentmail/mailerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "gopkg.in/gomail.v2"
)

// mockSESClient implements SendEmailAPI for testing.
type mockSESClient struct {
	err       error
	callCount int
	lastInput *sesv2.SendEmailInput
}

func (m *mockSESClient) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	m.callCount++
	m.lastInput = params
	if m.err != nil {
		return nil, m.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("test-message-id")}, nil
}

func testMessage() *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", "sender@example.com", "Sender")
	m.SetHeader("To", "to@example.com")
	m.SetHeader("Cc", "cc@example.com")
	m.SetHeader("Bcc", "bcc@example.com")
	m.SetHeader("Subject", "Test Subject")
	m.SetBody("text/html", "<p>Hello, World!</p>")
	return m
}

func TestDeliverSendsRawMessage(t *testing.T) {
	mock := &mockSESClient{}
	require.NoError(t, NewWithClient(mock).Deliver(context.Background(), testMessage()))

	require.Equal(t, 1, mock.callCount)
	in := mock.lastInput
	assert.Equal(t, `"Sender" <sender@example.com>`, aws.ToString(in.FromEmailAddress))
	assert.Equal(t, []string{"to@example.com"}, in.Destination.ToAddresses)
	assert.Equal(t, []string{"cc@example.com"}, in.Destination.CcAddresses)
	assert.Equal(t, []string{"bcc@example.com"}, in.Destination.BccAddresses)
	assert.Nil(t, in.Content.Simple)

	raw := string(in.Content.Raw.Data)
	assert.Contains(t, raw, "Subject: Test Subject")
	assert.Contains(t, raw, "<p>Hello, World!</p>")
	assert.False(t, strings.Contains(raw, "bcc@example.com"), "Bcc stays out of the data")
}

func TestDeliverDoesNotRetry(t *testing.T) {
	cause := errors.New("throttled")
	mock := &mockSESClient{err: cause}

	err := NewWithClient(mock).Deliver(context.Background(), testMessage())
	assert.True(t, errors.Is(err, mailerr.ErrDelivery))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, 1, mock.callCount)
}

func TestNewNeedsRegion(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.True(t, errors.Is(err, mailerr.ErrConfig))
}

func TestNewWithStaticCredentials(t *testing.T) {
	tr, err := New(context.Background(), Config{
		Region:          "us-east-1",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "ses", tr.Name())
}
