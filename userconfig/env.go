package userconfig

import (
	"errors"
	"io/fs"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/ptgott/fluentmail/mailerr"
	"github.com/ptgott/fluentmail/session"
	"github.com/rs/zerolog/log"
)

// EnvPrefix starts the name of every environment variable that overrides the
// config file, e.g. FLUENTMAIL_SMTP_PASSWORD.
const EnvPrefix = "FLUENTMAIL_"

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// loadDotEnv copies variables from ./.env into the environment without
// replacing ones that are already set.
func loadDotEnv() {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("could not read the .env file")
	}
}

// ApplyEnv overrides settings in m with the FLUENTMAIL_* variables that
// lookup finds.
func (m *Meta) ApplyEnv(lookup LookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	str("SMTP_HOST", &m.SMTP.Host)
	str("SMTP_USERNAME", &m.SMTP.Username)
	str("SMTP_PASSWORD", &m.SMTP.Password)
	str("SMTP_LOCAL_NAME", &m.SMTP.LocalName)
	str("TRANSPORT", &m.Transport)
	str("SES_REGION", &m.SES.Region)
	str("SES_ACCESS_KEY_ID", &m.SES.AccessKeyID)
	str("SES_SECRET_ACCESS_KEY", &m.SES.SecretAccessKey)
	str("JOURNAL_STORAGE_DIR", &m.Journal.StorageDir)

	if v, ok := lookup(EnvPrefix + "SMTP_PORT"); ok {
		p, err := strconv.Atoi(v)
		if err != nil {
			return envError("SMTP_PORT", err)
		}
		m.SMTP.Port = p
	}

	if v, ok := lookup(EnvPrefix + "SMTP_AUTH"); ok {
		a, err := session.ParseAuthMode(v)
		if err != nil {
			return envError("SMTP_AUTH", err)
		}
		m.SMTP.Auth = a
	}

	if v, ok := lookup(EnvPrefix + "SMTP_SKIP_CERT_VERIFICATION"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return envError("SMTP_SKIP_CERT_VERIFICATION", err)
		}
		m.SMTP.SkipCertVerification = b
	}

	if v, ok := lookup(EnvPrefix + "ATTACHMENTS_MAX_SIZE"); ok {
		n, err := parseSize(v)
		if err != nil {
			return envError("ATTACHMENTS_MAX_SIZE", err)
		}
		m.Attachments.MaxSize = n
	}

	if v, ok := lookup(EnvPrefix + "JOURNAL_KEY_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return envError("JOURNAL_KEY_TTL", err)
		}
		m.Journal.KeyTTL = d
	}

	if v, ok := lookup(EnvPrefix + "LOG_LEVEL"); ok {
		l, err := parseLevel(v)
		if err != nil {
			return envError("LOG_LEVEL", err)
		}
		m.Logging.Level = l
	}

	return nil
}

func envError(name string, err error) error {
	return mailerr.Wrap(mailerr.ErrConfig, err, "can't use %v%v", EnvPrefix, name)
}
