package smtptest

// Server is an SMTP server that runs for the length of a test (or test
// suite) and returns the payloads of messages sent to it.
type Server interface {
	// Start launches the server and returns an error if this fails. Retry
	// behavior is left to the caller. Start should also set up any
	// resources, such as listeners, required to run the server.
	Start() error

	// Close terminates the server and any required resources. It doesn't
	// return an error so it's easier to use with defer.
	Close()

	// RetrieveEmails returns the payloads of all email messages sent to the
	// server after time t in Unix epoch nanoseconds.
	RetrieveEmails(t int64) ([]string, error)

	// Messages returns every transaction, envelope included.
	Messages() []Message

	// Address returns the host:port of the server.
	Address() string
}

var _ Server = (*InProcessServer)(nil)
