package email

// email builds messages and hands them to a transport. Body and Email values
// are assembled with builders and can't be changed afterward. Addresses are
// parsed with go-addr, template substitutions are rendered once when a body is
// built, and the MIME encoding and SMTP conversation belong to gomail.
