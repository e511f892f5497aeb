package smtptest

import (
	"crypto/tls"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/docker/go-units"
	"github.com/emersion/go-smtp"
)

// Message is one mail transaction received by the server. Recipients is the
// SMTP envelope, so it includes Bcc recipients that the headers leave out.
type Message struct {
	Created    time.Time
	From       string
	Recipients []string
	Data       string
	// Username is empty when the client didn't authenticate.
	Username string
}

// Options change how an InProcessServer treats clients. The zero value is a
// server that offers STARTTLS and only accepts mail after AUTH, which it only
// allows over TLS.
type Options struct {
	// AllowAnonymous accepts mail from clients that don't authenticate.
	AllowAnonymous bool
	// ImplicitTLS serves TLS from the first byte ("smtps") instead of
	// offering STARTTLS.
	ImplicitTLS bool
	// DisableStartTLS stops the server from offering STARTTLS. AUTH is then
	// offered over the plaintext connection.
	DisableStartTLS bool
}

// Backend implements smtp.Backend. Any non-empty username/password is fine,
// since we don't want to couple this with specific test configurations.
type Backend struct {
	store *InMemoryEmailStore
	opts  Options
}

// Login implements smtp.Backend.
func (be *Backend) Login(_ *smtp.ConnectionState, username string, password string) (smtp.Session, error) {
	if username != "" && password != "" {
		return &session{store: be.store, username: username}, nil
	}
	return nil, errors.New("no username or password provided")
}

// AnonymousLogin implements smtp.Backend. Refused unless the server allows
// anonymous senders, so tests can check that clients authenticate.
func (be *Backend) AnonymousLogin(_ *smtp.ConnectionState) (smtp.Session, error) {
	if !be.opts.AllowAnonymous {
		return nil, smtp.ErrAuthRequired
	}
	return &session{store: be.store}, nil
}

// session implements smtp.Session for a single connection and collects the
// envelope of the current transaction.
type session struct {
	store    *InMemoryEmailStore
	username string
	from     string
	rcpts    []string
}

func (s *session) Reset() {
	s.from = ""
	s.rcpts = nil
}

func (s *session) Logout() error { return nil }

func (s *session) Mail(from string, _ smtp.MailOptions) error {
	s.from = from
	return nil
}

func (s *session) Rcpt(to string) error {
	s.rcpts = append(s.rcpts, to)
	return nil
}

// Data stores the message in memory for retrieval at the end of the test.
func (s *session) Data(r io.Reader) error {
	// doubtful we'll get an email this big, but we need a limit
	var maxEmailSize int64 = 100 * units.MiB
	buf, err := io.ReadAll(io.LimitReader(r, maxEmailSize))
	if err != nil {
		return err
	}

	s.store.saveEmail(Message{
		Created:    time.Now(),
		From:       s.from,
		Recipients: append([]string(nil), s.rcpts...),
		Data:       string(buf),
		Username:   s.username,
	})
	return nil
}

// InMemoryEmailStore retains messages in memory for comparison against a
// test's expected output. Goroutine safe, since the server handles each
// connection on its own goroutine.
type InMemoryEmailStore struct {
	mu       sync.Mutex
	messages []Message
}

// saveEmail stores a message along with a timestamp created just prior to
// saving
func (es *InMemoryEmailStore) saveEmail(m Message) {
	es.mu.Lock()
	defer es.mu.Unlock()

	es.messages = append(es.messages, m)
}

// Messages returns every message received so far, oldest first.
func (es *InMemoryEmailStore) Messages() []Message {
	es.mu.Lock()
	defer es.mu.Unlock()

	return append([]Message(nil), es.messages...)
}

// RetrieveEmails returns the raw data of all messages received at or after
// epoch nanoseconds t. Satisfies smtptest.Server but isn't expected to return
// an error.
func (es *InMemoryEmailStore) RetrieveEmails(t int64) ([]string, error) {
	es.mu.Lock()
	defer es.mu.Unlock()

	r := make([]string, 0, len(es.messages))
	for _, m := range es.messages {
		if m.Created.UnixNano() >= t {
			r = append(r, m.Data)
		}
	}
	return r, nil
}

// InProcessServer is a Server that runs in the same process as the test
// suite, letting us inspect sent emails. You must initialize this via
// NewInProcessServer.
type InProcessServer struct {
	*smtp.Server
	*InMemoryEmailStore
	opts     Options
	listener net.Listener
}

// NewInProcessServer creates an InProcessServer, including configuring
// its SMTP server to store incoming messages in memory. Must provide
// the paths to the key and cert used for TLS. The cert must be a
// root cert.
func NewInProcessServer(keypath string, certpath string, opts Options) *InProcessServer {
	is := &InMemoryEmailStore{}

	srv := smtp.NewServer(&Backend{
		store: is,
		opts:  opts,
	})

	srv.Domain = "localhost"
	srv.AuthDisabled = false
	// Strict is undocumented, but it looks like it enforces <address> syntax
	// in messages:
	// https://github.com/emersion/go-smtp/blob/f92bf7f1a25777bcdaa28a142b1cd1a54b74c8f4/conn.go#L321-L325
	srv.Strict = true
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second

	cert, err := tls.LoadX509KeyPair(certpath, keypath)

	// No way to carry on without a cert, so we panic. We're in a test
	// suite, so this should be fine.
	if err != nil {
		panic(err)
	}

	tc := &tls.Config{
		Certificates: []tls.Certificate{cert},
	}
	if opts.DisableStartTLS && !opts.ImplicitTLS {
		// go-smtp only offers STARTTLS when it has a TLS config
		srv.AllowInsecureAuth = true
	} else {
		srv.TLSConfig = tc
	}

	return &InProcessServer{
		Server:             srv,
		InMemoryEmailStore: is,
		opts:               opts,
	}
}

// Start listens on a random local port and serves in the background. It
// returns once the server is accepting connections.
func (is *InProcessServer) Start() error {
	var l net.Listener
	var err error
	if is.opts.ImplicitTLS {
		l, err = tls.Listen("tcp", "127.0.0.1:0", is.Server.TLSConfig)
	} else {
		l, err = net.Listen("tcp", "127.0.0.1:0")
	}
	if err != nil {
		return err
	}

	is.listener = l
	is.Server.Addr = l.Addr().String()
	go is.Server.Serve(l)
	return nil
}

// Close shuts down the test server daemon. You must initialize a new
// InProcessServer instead of restarting this one.
func (is *InProcessServer) Close() {
	is.Server.Close()
}

// Address returns the host:port of the test SMTP server.
func (is *InProcessServer) Address() string {
	return is.Server.Addr
}

// Host returns the IP address the server listens on.
func (is *InProcessServer) Host() string {
	h, _, _ := net.SplitHostPort(is.Address())
	return h
}

// Port returns the port the server listens on.
func (is *InProcessServer) Port() int {
	_, p, _ := net.SplitHostPort(is.Address())
	n, _ := strconv.Atoi(p)
	return n
}
