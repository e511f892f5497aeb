// Package stdout implements a transport that writes messages to a writer
// instead of sending them. It backs dry runs.
package stdout

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/ptgott/fluentmail/mailerr"
	"github.com/rs/zerolog/log"
	gomail "gopkg.in/gomail.v2"
)

// Transport writes each message in its wire format, followed by a blank
// line. Bcc recipients aren't part of the wire format, so they're listed in a
// comment line before the message.
type Transport struct {
	w io.Writer
}

// New returns a Transport that writes to os.Stdout.
func New() *Transport {
	return &Transport{w: os.Stdout}
}

// NewWithWriter returns a Transport that writes to w.
func NewWithWriter(w io.Writer) *Transport {
	return &Transport{w: w}
}

// Deliver implements email.Transport.
func (t *Transport) Deliver(ctx context.Context, m *gomail.Message) error {
	if err := ctx.Err(); err != nil {
		return mailerr.Wrap(mailerr.ErrDelivery, err, "not writing the message")
	}

	if bcc := m.GetHeader("Bcc"); len(bcc) > 0 {
		if _, err := io.WriteString(t.w, "# Bcc: "+strings.Join(bcc, ", ")+"\r\n"); err != nil {
			return mailerr.Wrap(mailerr.ErrDelivery, err, "can't write the message")
		}
	}
	n, err := m.WriteTo(t.w)
	if err != nil {
		return mailerr.Wrap(mailerr.ErrDelivery, err, "can't write the message")
	}
	if _, err := io.WriteString(t.w, "\r\n\r\n"); err != nil {
		return mailerr.Wrap(mailerr.ErrDelivery, err, "can't write the message")
	}

	log.Debug().Int64("bytes", n).Msg("wrote the message instead of sending it")
	return nil
}

// Name returns the transport name used in config files.
func (t *Transport) Name() string {
	return "stdout"
}
