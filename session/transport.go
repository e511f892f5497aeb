package session

import (
	"context"
	"crypto/tls"
	"errors"
	"net/smtp"
	"strconv"

	"github.com/ptgott/fluentmail/mailerr"
	"github.com/ptgott/fluentmail/strutil"
	"github.com/rs/zerolog/log"
	gomail "gopkg.in/gomail.v2"
)

// Property keys set by OpenSession. Implicit-TLS sessions use the smtps
// namespace for auth, host and port.
const (
	PropProtocol       = "transport.protocol"
	PropAuth           = "smtp.auth"
	PropHost           = "smtp.host"
	PropPort           = "smtp.port"
	PropStartTLSEnable = "smtp.starttls.enable"
	PropSSLEnable      = "smtp.ssl.enable"
	PropSSLAuth        = "smtps.auth"
	PropSSLHost        = "smtps.host"
	PropSSLPort        = "smtps.port"
)

// Properties describes a session as flat key/value pairs.
type Properties map[string]string

// Session is a Config mapped onto the transport library. Opening one does no
// network I/O; Deliver dials, sends and hangs up.
type Session struct {
	props  Properties
	dialer *gomail.Dialer
}

// OpenSession maps the config onto a transport session.
func (c *Config) OpenSession() *Session {
	p := Properties{}
	port := strconv.Itoa(c.port)

	switch c.mode {
	case AuthSSL:
		p[PropProtocol] = "smtps"
		p[PropSSLAuth] = "true"
		p[PropSSLHost] = c.host
		p[PropSSLPort] = port
		p[PropSSLEnable] = "true"
	case AuthTLS:
		p[PropAuth] = "true"
		p[PropHost] = c.host
		p[PropPort] = port
		p[PropStartTLSEnable] = "true"
	case AuthPlain:
		p[PropAuth] = "true"
		p[PropHost] = c.host
		p[PropPort] = port
	default:
		p[PropAuth] = "false"
		p[PropHost] = c.host
		p[PropPort] = port
	}

	return &Session{
		props:  p,
		dialer: c.dialer(),
	}
}

// dialer builds a fresh gomail.Dialer. gomail picks an AUTH mechanism lazily
// and stores it on the Dialer, so each session gets its own.
func (c *Config) dialer() *gomail.Dialer {
	d := &gomail.Dialer{
		Host:      c.host,
		Port:      c.port,
		LocalName: c.localName,
		SSL:       c.mode == AuthSSL,
	}

	tc := c.TLSConfig()
	if tc == nil {
		tc = &tls.Config{ServerName: c.host}
	}
	if tc.ServerName == "" {
		tc.ServerName = c.host
	}
	d.TLSConfig = tc

	if c.creds != nil {
		d.Username = c.creds.Username
		d.Password = c.creds.Password
	}
	if c.mode == AuthTLS {
		d.Auth = &startTLSAuth{
			Auth: smtp.PlainAuth("", c.creds.Username, c.creds.Password, c.host),
		}
	}
	return d
}

// Properties returns a copy of the session's property bag.
func (s *Session) Properties() Properties {
	return strutil.CloneMap(s.props)
}

// Deliver sends m with a single connection attempt. The context is only
// consulted before dialing; the transport library can't be interrupted
// mid-conversation.
func (s *Session) Deliver(ctx context.Context, m *gomail.Message) error {
	if err := ctx.Err(); err != nil {
		return mailerr.Wrap(mailerr.ErrDelivery, err, "not dialing %v", s.addr())
	}

	log.Debug().
		Str("addr", s.addr()).
		Bool("ssl", s.dialer.SSL).
		Msg("dialing the SMTP server")

	if err := s.dialer.DialAndSend(m); err != nil {
		return mailerr.Wrap(mailerr.ErrDelivery, err, "sending via %v", s.addr())
	}
	return nil
}

func (s *Session) addr() string {
	return s.dialer.Host + ":" + strconv.Itoa(s.dialer.Port)
}

// errNoStartTLS is returned when a TLS-mode session reaches AUTH over a
// connection that was never upgraded.
var errNoStartTLS = errors.New("refusing to authenticate: the server did not negotiate STARTTLS")

// startTLSAuth refuses to hand credentials to the wrapped mechanism unless
// the connection is encrypted.
type startTLSAuth struct {
	smtp.Auth
}

func (a *startTLSAuth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	if !server.TLS {
		return "", nil, errNoStartTLS
	}
	return a.Auth.Start(server)
}
