package session

// session turns SMTP connection settings (host, port, credentials and the
// choice between no auth, plain auth, STARTTLS and implicit TLS) into a
// transport session. Building a Config does no network I/O; the connection is
// only opened when a Session delivers a message.
