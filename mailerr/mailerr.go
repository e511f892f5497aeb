// mailerr defines the kinds of failure the builders and transports report.
// Every error returned by this module wraps exactly one of these, so callers
// can branch with errors.Is.
package mailerr

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig means a session could not be configured: a blank host, a port
	// out of range, missing credentials or a missing session config.
	ErrConfig = errors.New("invalid session config")
	// ErrAddress means an address was blank or failed to parse.
	ErrAddress = errors.New("invalid address")
	// ErrValidation means a required field was missing at build time.
	ErrValidation = errors.New("validation failed")
	// ErrAttachment means an attachment could not be read.
	ErrAttachment = errors.New("can't attach file")
	// ErrTemplate means template text was malformed or referenced a tag that
	// has no substitution.
	ErrTemplate = errors.New("can't render template")
	// ErrDelivery means the transport failed to send the message.
	ErrDelivery = errors.New("delivery failed")
)

// Wrap returns an error that matches kind with errors.Is and also wraps
// cause, if there is one.
func Wrap(kind error, cause error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if cause == nil {
		return fmt.Errorf("%w: %s", kind, msg)
	}
	return fmt.Errorf("%w: %s: %w", kind, msg, cause)
}

// New returns an error of the given kind with no underlying cause.
func New(kind error, format string, args ...interface{}) error {
	return Wrap(kind, nil, format, args...)
}
