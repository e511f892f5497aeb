// Package ses implements a transport that hands raw MIME messages to the AWS
// SES v2 API.
package ses

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/ptgott/fluentmail/mailerr"
	"github.com/ptgott/fluentmail/strutil"
	"github.com/rs/zerolog/log"
	gomail "gopkg.in/gomail.v2"
)

// Config holds the settings for reaching SES. Without static keys the
// default AWS credential chain is used.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// SendEmailAPI is the part of the SES v2 client the transport needs.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Transport sends messages through SES with one API call each.
type Transport struct {
	client SendEmailAPI
}

// New loads the AWS config for cfg and returns a Transport.
func New(ctx context.Context, cfg Config) (*Transport, error) {
	if strutil.IsBlank(cfg.Region) {
		return nil, mailerr.New(mailerr.ErrConfig, "an SES region is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, mailerr.Wrap(mailerr.ErrConfig, err, "can't load the AWS config")
	}

	return NewWithClient(sesv2.NewFromConfig(awsCfg)), nil
}

// NewWithClient returns a Transport that uses client.
func NewWithClient(client SendEmailAPI) *Transport {
	return &Transport{client: client}
}

// Deliver implements email.Transport. The envelope comes from the From, To,
// Cc and Bcc headers; the Bcc header itself isn't part of the raw data.
func (t *Transport) Deliver(ctx context.Context, m *gomail.Message) error {
	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return mailerr.Wrap(mailerr.ErrDelivery, err, "can't write the message")
	}

	input := &sesv2.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses:  m.GetHeader("To"),
			CcAddresses:  m.GetHeader("Cc"),
			BccAddresses: m.GetHeader("Bcc"),
		},
		Content: &types.EmailContent{
			Raw: &types.RawMessage{Data: buf.Bytes()},
		},
	}
	if from := strutil.SingleOrZero(m.GetHeader("From")); from != "" {
		input.FromEmailAddress = aws.String(from)
	}

	out, err := t.client.SendEmail(ctx, input)
	if err != nil {
		return mailerr.Wrap(mailerr.ErrDelivery, err, "SES rejected the message")
	}

	log.Debug().
		Str("sesMessageID", aws.ToString(out.MessageId)).
		Int("bytes", buf.Len()).
		Msg("handed the message to SES")
	return nil
}

// Name returns the transport name used in config files.
func (t *Transport) Name() string {
	return "ses"
}
