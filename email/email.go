package email

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/ptgott/fluentmail/mailerr"
	"github.com/ptgott/fluentmail/session"
	"github.com/ptgott/fluentmail/strutil"
	"github.com/rs/zerolog/log"
	gomail "gopkg.in/gomail.v2"
)

// Transport hands a composed message to something that delivers it.
// *session.Session is the SMTP implementation.
type Transport interface {
	Deliver(ctx context.Context, m *gomail.Message) error
}

// State is where an Email is in its lifecycle. Sent and SendFailed are
// terminal.
type State int32

const (
	StateBuilt State = iota
	StateSending
	StateSent
	StateSendFailed
)

func (s State) String() string {
	switch s {
	case StateBuilt:
		return "built"
	case StateSending:
		return "sending"
	case StateSent:
		return "sent"
	case StateSendFailed:
		return "send failed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Email is a message ready to send. Create one with New(...).Build(). Apart
// from its State, an Email never changes after it is built.
type Email struct {
	messageID string
	from      Address
	to        []Address
	cc        []Address
	bcc       []Address
	subject   string
	body      *Body
	session   *session.Config
	state     atomic.Int32
}

// MessageID returns the value of the Message-ID header, angle brackets
// included.
func (e *Email) MessageID() string { return e.messageID }

// From returns the sender.
func (e *Email) From() Address { return e.from }

// To returns a copy of the primary recipients.
func (e *Email) To() []Address { return strutil.CloneSlice(e.to) }

// Cc returns a copy of the carbon-copy recipients.
func (e *Email) Cc() []Address { return strutil.CloneSlice(e.cc) }

// Bcc returns a copy of the blind-carbon-copy recipients.
func (e *Email) Bcc() []Address { return strutil.CloneSlice(e.bcc) }

// Subject returns the subject line.
func (e *Email) Subject() string { return e.subject }

// Body returns the body. Body values are immutable, so it isn't copied.
func (e *Email) Body() *Body { return e.body }

// Session returns the session config the email was built with.
func (e *Email) Session() *session.Config { return e.session }

// State returns the current lifecycle state.
func (e *Email) State() State { return State(e.state.Load()) }

// Send opens a session from the email's config and delivers the message
// with a single attempt. It blocks until the server accepts or rejects it.
func (e *Email) Send(ctx context.Context) error {
	return e.SendVia(ctx, e.session.OpenSession())
}

// SendVia delivers the message through t instead of the email's own session.
// An email can only be sent once, whether or not the attempt succeeded.
func (e *Email) SendVia(ctx context.Context, t Transport) error {
	if t == nil {
		return mailerr.New(mailerr.ErrConfig, "no transport to send %v with", e.messageID)
	}
	if !e.state.CompareAndSwap(int32(StateBuilt), int32(StateSending)) {
		return mailerr.New(
			mailerr.ErrValidation,
			"email %v can't be sent again: it is %v",
			e.messageID,
			e.State(),
		)
	}

	err := t.Deliver(ctx, e.Message())
	if err != nil {
		e.state.Store(int32(StateSendFailed))
		if !errors.Is(err, mailerr.ErrDelivery) {
			err = mailerr.Wrap(mailerr.ErrDelivery, err, "sending %v", e.messageID)
		}
		log.Error().
			Err(err).
			Str("messageID", e.messageID).
			Msg("could not send the email")
		return err
	}

	e.state.Store(int32(StateSent))
	log.Info().
		Str("messageID", e.messageID).
		Int("recipients", len(e.to)+len(e.cc)+len(e.bcc)).
		Msg("sent the email")
	return nil
}

// Builder assembles an Email. The first error stops the builder: later calls
// are ignored and Build returns that error.
type Builder struct {
	session *session.Config
	from    *Address
	to      []Address
	cc      []Address
	bcc     []Address
	subject string
	body    *Body
	err     error
}

// New starts an Email that will be sent with cfg. The subject defaults to ""
// and the body to an empty DefaultType body.
func New(cfg *session.Config) *Builder {
	b := &Builder{
		session: cfg,
		subject: strutil.Empty(),
		body:    BodyFromString(strutil.Empty()),
	}
	if cfg == nil {
		b.err = mailerr.New(mailerr.ErrConfig, "session config can't be nil")
	}
	return b
}

// From sets the sender, replacing any earlier one.
func (b *Builder) From(address string) *Builder {
	if b.err != nil {
		return b
	}
	a, err := ParseAddress(address)
	if err != nil {
		b.err = fmt.Errorf("from: %w", err)
		return b
	}
	b.from = &a
	return b
}

// To adds a primary recipient. Duplicates are kept.
func (b *Builder) To(address string) *Builder {
	return b.add(&b.to, "to", address)
}

// Cc adds a carbon-copy recipient.
func (b *Builder) Cc(address string) *Builder {
	return b.add(&b.cc, "cc", address)
}

// Bcc adds a blind-carbon-copy recipient. Bcc recipients get the message but
// don't appear in its headers.
func (b *Builder) Bcc(address string) *Builder {
	return b.add(&b.bcc, "bcc", address)
}

func (b *Builder) add(list *[]Address, field string, address string) *Builder {
	if b.err != nil {
		return b
	}
	a, err := ParseAddress(address)
	if err != nil {
		b.err = fmt.Errorf("%v: %w", field, err)
		return b
	}
	*list = append(*list, a)
	return b
}

// Subject sets the subject line.
func (b *Builder) Subject(text string) *Builder {
	if b.err == nil {
		b.subject = text
	}
	return b
}

// Body sets the body.
func (b *Builder) Body(body *Body) *Builder {
	if b.err != nil {
		return b
	}
	if body == nil {
		b.err = mailerr.New(mailerr.ErrValidation, "body can't be nil")
		return b
	}
	b.body = body
	return b
}

// Err returns the error that stopped the builder, if any.
func (b *Builder) Err() error {
	return b.err
}

// Build checks that there is a sender and at least one "to" recipient and
// returns a new Email. Each call returns a distinct Email with its own
// Message-ID.
func (b *Builder) Build() (*Email, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.from == nil {
		b.err = mailerr.New(mailerr.ErrValidation, "a \"from\" address is required")
		return nil, b.err
	}
	if len(b.to) == 0 {
		b.err = mailerr.New(mailerr.ErrValidation, "at least one \"to\" address is required")
		return nil, b.err
	}

	return &Email{
		messageID: newMessageID(*b.from),
		from:      *b.from,
		to:        strutil.CloneSlice(b.to),
		cc:        strutil.CloneSlice(b.cc),
		bcc:       strutil.CloneSlice(b.bcc),
		subject:   b.subject,
		body:      b.body,
		session:   b.session,
	}, nil
}

// newMessageID returns a globally unique Message-ID in the sender's domain.
func newMessageID(from Address) string {
	d := from.Domain()
	if d == "" {
		d = "localhost"
	}
	return "<" + strings.ReplaceAll(uuid.NewString(), "-", "") + "@" + d + ">"
}
