package session

import (
	"crypto/tls"
	"fmt"
	"strconv"

	"github.com/ptgott/fluentmail/mailerr"
	"github.com/ptgott/fluentmail/strutil"
	"github.com/rs/zerolog"
)

// DefaultPort is used when a builder is created without a port.
const DefaultPort int = 25

const (
	minPort int = 0
	maxPort int = 65535
)

// AuthMode selects how a session authenticates and whether it encrypts the
// connection.
type AuthMode int

const (
	// AuthNone sends without authenticating.
	AuthNone AuthMode = iota
	// AuthPlain authenticates with a username and password.
	AuthPlain
	// AuthTLS upgrades the connection with STARTTLS before authenticating and
	// refuses to authenticate if the upgrade doesn't happen.
	AuthTLS
	// AuthSSL connects over TLS from the start (implicit TLS, "smtps").
	AuthSSL
)

// String returns the name used for the mode in config files.
func (m AuthMode) String() string {
	switch m {
	case AuthNone:
		return "none"
	case AuthPlain:
		return "plain"
	case AuthTLS:
		return "tls"
	case AuthSSL:
		return "ssl"
	default:
		return "AuthMode(" + strconv.Itoa(int(m)) + ")"
	}
}

// ParseAuthMode is the inverse of AuthMode.String.
func ParseAuthMode(s string) (AuthMode, error) {
	switch strutil.Trim(s) {
	case "none", "":
		return AuthNone, nil
	case "plain":
		return AuthPlain, nil
	case "tls":
		return AuthTLS, nil
	case "ssl":
		return AuthSSL, nil
	}
	return AuthNone, mailerr.New(mailerr.ErrConfig, "unknown auth mode %q", s)
}

// Credentials are only ever set together, by the call that picks an
// authenticated mode.
type Credentials struct {
	Username string
	Password string
}

// Config holds everything needed to open a session with an SMTP server.
// Create one with a Builder; a Config is immutable afterward.
type Config struct {
	host      string
	port      int
	mode      AuthMode
	creds     *Credentials
	tlsConfig *tls.Config
	localName string
}

// Host returns the SMTP server's hostname.
func (c *Config) Host() string { return c.host }

// Port returns the SMTP server's port.
func (c *Config) Port() int { return c.port }

// Mode returns the authentication mode.
func (c *Config) Mode() AuthMode { return c.mode }

// LocalName returns the name sent with HELO/EHLO, or "" for the default.
func (c *Config) LocalName() string { return c.localName }

// Credentials returns a copy of the credentials. ok is false for AuthNone.
func (c *Config) Credentials() (creds Credentials, ok bool) {
	if c.creds == nil {
		return Credentials{}, false
	}
	return *c.creds, true
}

// TLSConfig returns a clone of the TLS settings, or nil if none were given.
func (c *Config) TLSConfig() *tls.Config {
	if c.tlsConfig == nil {
		return nil
	}
	return c.tlsConfig.Clone()
}

// String never includes the password.
func (c *Config) String() string {
	if c.creds == nil {
		return fmt.Sprintf("%v:%v (auth=%v)", c.host, c.port, c.mode)
	}
	return fmt.Sprintf("%v@%v:%v (auth=%v)", c.creds.Username, c.host, c.port, c.mode)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler so a Config can
// be attached to log lines with Object().
func (c *Config) MarshalZerologObject(e *zerolog.Event) {
	e.Str("host", c.host).
		Int("port", c.port).
		Stringer("auth", c.mode)
	if c.creds != nil {
		e.Str("username", c.creds.Username)
	}
}

// Builder collects connection settings. Validation failures are remembered
// and returned by whichever terminal method is called.
type Builder struct {
	host      string
	port      int
	tlsConfig *tls.Config
	localName string
	err       error
}

// Host starts a Builder for host on DefaultPort.
func Host(name string) *Builder {
	return HostPort(name, DefaultPort)
}

// HostPort starts a Builder for host on port.
func HostPort(name string, port int) *Builder {
	b := &Builder{
		host: strutil.Trim(name),
		port: port,
	}
	if strutil.IsBlank(name) {
		b.err = mailerr.New(mailerr.ErrConfig, "host can't be blank")
		return b
	}
	if port < minPort || port > maxPort {
		b.err = mailerr.New(
			mailerr.ErrConfig,
			"port %v is out of range [%v, %v]",
			port,
			minPort,
			maxPort,
		)
	}
	return b
}

// Unauthenticated is shorthand for Host(name).Unauthenticated().
func Unauthenticated(name string) (*Config, error) {
	return Host(name).Unauthenticated()
}

// TLSConfig sets the TLS settings used for STARTTLS and implicit TLS. When
// unset, the server certificate is verified against the host name.
func (b *Builder) TLSConfig(c *tls.Config) *Builder {
	if c != nil {
		b.tlsConfig = c.Clone()
	}
	return b
}

// LocalName sets the name sent with HELO/EHLO.
func (b *Builder) LocalName(name string) *Builder {
	b.localName = strutil.Trim(name)
	return b
}

// Err returns the first validation error, if any.
func (b *Builder) Err() error {
	return b.err
}

// Unauthenticated returns a Config that sends without AUTH.
func (b *Builder) Unauthenticated() (*Config, error) {
	return b.build(AuthNone, nil)
}

// UserPassword returns a Config that authenticates with username and
// password.
func (b *Builder) UserPassword(username, password string) (*Config, error) {
	return b.build(AuthPlain, &Credentials{Username: username, Password: password})
}

// TLSAuth returns a Config that requires STARTTLS before authenticating.
func (b *Builder) TLSAuth(username, password string) (*Config, error) {
	return b.build(AuthTLS, &Credentials{Username: username, Password: password})
}

// SSLAuth returns a Config that connects with implicit TLS and then
// authenticates.
func (b *Builder) SSLAuth(username, password string) (*Config, error) {
	return b.build(AuthSSL, &Credentials{Username: username, Password: password})
}

func (b *Builder) build(mode AuthMode, creds *Credentials) (*Config, error) {
	if b.err != nil {
		return nil, b.err
	}
	if mode != AuthNone {
		if creds == nil || strutil.IsBlank(creds.Username) || creds.Password == "" {
			return nil, mailerr.New(
				mailerr.ErrConfig,
				"auth mode %v needs a username and a password",
				mode,
			)
		}
	}

	c := &Config{
		host:      b.host,
		port:      b.port,
		mode:      mode,
		creds:     creds,
		localName: b.localName,
	}
	if b.tlsConfig != nil {
		c.tlsConfig = b.tlsConfig.Clone()
	}
	return c, nil
}
