package userconfig

import (
	"crypto/tls"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/alecthomas/units"
	"github.com/ptgott/fluentmail/mailerr"
	"github.com/ptgott/fluentmail/session"
	"github.com/ptgott/fluentmail/storage"
	"github.com/ptgott/fluentmail/strutil"
	"github.com/ptgott/fluentmail/transport/ses"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	yaml "gopkg.in/yaml.v2"
)

// Names accepted by the "transport" option.
const (
	TransportSMTP   string = "smtp"
	TransportSES    string = "ses"
	TransportStdout string = "stdout"
)

// Ports used when the config doesn't set one, by auth mode.
const (
	submissionPort int = 587
	smtpsPort      int = 465
)

// The journal forgets messages after 30 days unless told otherwise.
const defaultKeyTTL = time.Duration(720) * time.Hour

// Meta represents all current config options that the application can use,
// i.e., after validation and parsing
type Meta struct {
	SMTP        SMTP        `yaml:"smtp"`
	Transport   string      `yaml:"transport"`
	SES         SES         `yaml:"ses"`
	Attachments Attachments `yaml:"attachments"`
	Journal     Journal     `yaml:"journal"`
	Logging     Logging     `yaml:"logging"`
}

// SMTP describes the server a session connects to.
type SMTP struct {
	Host                 string
	Port                 int
	Auth                 session.AuthMode
	Username             string
	Password             string
	SkipCertVerification bool
	LocalName            string
}

// UnmarshalYAML parses the "smtp" section. Validation waits for
// CheckAndSetDefaults, since environment variables may fill gaps.
func (s *SMTP) UnmarshalYAML(unmarshal func(interface{}) error) error {
	v := make(map[string]string)
	err := unmarshal(&v)

	if err != nil {
		return fmt.Errorf("can't parse the smtp settings: %v", err)
	}

	s.Host = v["host"]
	s.Username = v["username"]
	s.Password = v["password"]
	s.LocalName = v["localName"]

	if p, ok := v["port"]; ok {
		s.Port, err = strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("can't parse the smtp port as an integer: %v", err)
		}
	}

	s.Auth, err = session.ParseAuthMode(v["auth"])
	if err != nil {
		return err
	}

	if sv, ok := v["skipCertVerification"]; ok {
		s.SkipCertVerification, err = strconv.ParseBool(sv)
		if err != nil {
			return fmt.Errorf("can't parse skipCertVerification as a boolean: %v", err)
		}
	}

	return nil
}

// CheckAndSetDefaults validates s and either returns a copy of s with default
// settings applied or returns an error due to an invalid configuration
func (s *SMTP) CheckAndSetDefaults() (SMTP, error) {
	c := *s
	c.Host = strutil.Trim(c.Host)
	if strutil.IsEmpty(c.Host) {
		return SMTP{}, mailerr.New(mailerr.ErrConfig, "the smtp section must include a host")
	}

	if c.Port == 0 {
		switch c.Auth {
		case session.AuthSSL:
			c.Port = smtpsPort
		case session.AuthTLS:
			c.Port = submissionPort
		default:
			c.Port = session.DefaultPort
		}
	}

	return c, nil
}

// SES holds the settings for the SES transport.
type SES struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"accessKeyID"`
	SecretAccessKey string `yaml:"secretAccessKey"`
}

// Config converts s to the transport's own config.
func (s SES) Config() ses.Config {
	return ses.Config{
		Region:          s.Region,
		AccessKeyID:     s.AccessKeyID,
		SecretAccessKey: s.SecretAccessKey,
	}
}

// Attachments limits what can be attached.
type Attachments struct {
	// MaxSize is in bytes. Zero means no limit.
	MaxSize int64
}

// UnmarshalYAML parses sizes such as "10MiB" or "500KB".
func (a *Attachments) UnmarshalYAML(unmarshal func(interface{}) error) error {
	v := make(map[string]string)
	if err := unmarshal(&v); err != nil {
		return fmt.Errorf("can't parse the attachment settings: %v", err)
	}

	ms, ok := v["maxSize"]
	if !ok {
		return nil
	}
	n, err := parseSize(ms)
	if err != nil {
		return err
	}
	a.MaxSize = n
	return nil
}

func parseSize(s string) (int64, error) {
	n, err := units.ParseStrictBytes(strutil.Trim(s))
	if err != nil {
		return 0, fmt.Errorf("can't parse %q as a size: %v", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("size %q can't be negative", s)
	}
	return n, nil
}

// Journal configures the delivery journal. An empty StorageDir turns it off.
type Journal struct {
	StorageDir string
	KeyTTL     time.Duration
}

// UnmarshalYAML parses the "journal" section.
func (j *Journal) UnmarshalYAML(unmarshal func(interface{}) error) error {
	v := make(map[string]string)
	if err := unmarshal(&v); err != nil {
		return fmt.Errorf("can't parse the journal settings: %v", err)
	}

	j.StorageDir = v["storageDir"]

	if d, ok := v["keyTTL"]; ok {
		pd, err := time.ParseDuration(d)
		if err != nil {
			return fmt.Errorf("can't parse the journal key TTL as a duration: %v", err)
		}
		j.KeyTTL = pd
	}
	return nil
}

// KVConfig returns the storage settings for the journal.
func (j Journal) KVConfig() storage.KVConfig {
	return storage.KVConfig{
		StorageDirPath: j.StorageDir,
		KeyTTLDuration: j.KeyTTL,
	}
}

// Logging sets the log level.
type Logging struct {
	Level zerolog.Level
}

// UnmarshalYAML parses the "logging" section.
func (l *Logging) UnmarshalYAML(unmarshal func(interface{}) error) error {
	v := make(map[string]string)
	if err := unmarshal(&v); err != nil {
		return fmt.Errorf("can't parse the logging settings: %v", err)
	}

	lv, err := parseLevel(v["level"])
	if err != nil {
		return err
	}
	l.Level = lv
	return nil
}

func parseLevel(s string) (zerolog.Level, error) {
	if strutil.IsBlank(s) {
		return zerolog.InfoLevel, nil
	}
	lv, err := zerolog.ParseLevel(strutil.Trim(s))
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
	return lv, nil
}

// Parse generates usable configurations from possibly arbitrary user input.
// An error indicates a problem with parsing. The Reader r can be either JSON
// or YAML. Call CheckAndSetDefaults before using the result.
func Parse(r io.Reader) (*Meta, error) {
	m := Meta{
		Logging: Logging{Level: zerolog.InfoLevel},
	}
	err := yaml.NewDecoder(r).Decode(&m)
	if err != nil {
		return &Meta{}, mailerr.Wrap(mailerr.ErrConfig, err, "can't read the config file as YAML")
	}

	return &m, nil
}

// Load reads the config file at path, applies overrides from the environment
// (and from a .env file in the working directory, if there is one) and
// validates the result.
func Load(path string) (Meta, error) {
	loadDotEnv()

	f, err := os.Open(path)
	if err != nil {
		return Meta{}, mailerr.Wrap(mailerr.ErrConfig, err, "can't open the config file")
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return Meta{}, err
	}

	if err := m.ApplyEnv(os.LookupEnv); err != nil {
		return Meta{}, err
	}

	return m.CheckAndSetDefaults()
}

// CheckAndSetDefaults validates m and either returns a copy of m with default
// settings applied or returns an error due to an invalid configuration
func (m *Meta) CheckAndSetDefaults() (Meta, error) {
	c := *m

	if strutil.IsBlank(c.Transport) {
		c.Transport = TransportSMTP
	}

	switch c.Transport {
	case TransportSMTP:
		s, err := m.SMTP.CheckAndSetDefaults()
		if err != nil {
			return Meta{}, err
		}
		c.SMTP = s
		// Catches auth modes without credentials before anything is sent.
		if _, err := c.SessionConfig(); err != nil {
			return Meta{}, err
		}
	case TransportSES:
		if strutil.IsBlank(c.SES.Region) {
			return Meta{}, mailerr.New(mailerr.ErrConfig, "the ses transport needs a region")
		}
	case TransportStdout:
	default:
		return Meta{}, mailerr.New(
			mailerr.ErrConfig,
			"unknown transport %q: use %v, %v or %v",
			c.Transport,
			TransportSMTP,
			TransportSES,
			TransportStdout,
		)
	}

	if c.Journal.KeyTTL < 0 {
		return Meta{}, mailerr.New(mailerr.ErrConfig, "the journal key TTL can't be negative")
	}
	if c.Journal.StorageDir != "" && c.Journal.KeyTTL == 0 {
		c.Journal.KeyTTL = defaultKeyTTL
	}

	log.Debug().
		Str("transport", c.Transport).
		Bool("journal", c.Journal.StorageDir != "").
		Msg("validated the config")

	return c, nil
}

// SessionConfig maps the smtp section onto a session config. Transports
// other than SMTP never dial, so without a host they get a placeholder
// session for localhost.
func (m *Meta) SessionConfig() (*session.Config, error) {
	host := m.SMTP.Host
	if strutil.IsBlank(host) && m.Transport != TransportSMTP && m.Transport != "" {
		return session.Unauthenticated("localhost")
	}

	b := session.HostPort(host, m.SMTP.Port).LocalName(m.SMTP.LocalName)
	if m.SMTP.SkipCertVerification {
		b.TLSConfig(&tls.Config{
			ServerName:         strutil.Trim(host),
			InsecureSkipVerify: true,
		})
	}

	switch m.SMTP.Auth {
	case session.AuthPlain:
		return b.UserPassword(m.SMTP.Username, m.SMTP.Password)
	case session.AuthTLS:
		return b.TLSAuth(m.SMTP.Username, m.SMTP.Password)
	case session.AuthSSL:
		return b.SSLAuth(m.SMTP.Username, m.SMTP.Password)
	default:
		return b.Unauthenticated()
	}
}
