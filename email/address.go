package email

import (
	"net/mail"
	"strings"

	"github.com/ptgott/fluentmail/mailerr"
	"github.com/ptgott/fluentmail/strutil"
	"github.com/zostay/go-addr/pkg/addr"
)

// Address is a single mailbox: an optional display name and an addr-spec.
type Address struct {
	Name  string
	Email string
}

// ParseAddress parses an RFC 5322 mailbox such as "me@example.com" or
// `"Me" <me@example.com>`. Groups aren't accepted.
func ParseAddress(s string) (Address, error) {
	if strutil.IsBlank(s) {
		return Address{}, mailerr.New(mailerr.ErrAddress, "address can't be blank")
	}

	mb, err := addr.ParseEmailMailbox(strutil.Trim(s))
	if err != nil {
		return Address{}, mailerr.Wrap(mailerr.ErrAddress, err, "can't parse %q", s)
	}

	return Address{
		Name:  displayName(mb),
		Email: mb.Address(),
	}, nil
}

// displayName reads the phrase in front of the angle-addr from the text the
// mailbox was parsed from. The parser's own DisplayName joins the words of an
// unquoted phrase without the spaces between them.
func displayName(mb *addr.Mailbox) string {
	orig := mb.OriginalString()
	i := strings.LastIndex(orig, "<")
	if i < 0 {
		return mb.DisplayName()
	}

	phrase := strutil.Trim(orig[:i])
	if len(phrase) >= 2 && phrase[0] == '"' && phrase[len(phrase)-1] == '"' {
		phrase = unquote(phrase[1 : len(phrase)-1])
	}
	// Folding whitespace inside the phrase reads as a single space.
	return strings.Join(strings.Fields(phrase), " ")
}

// unquote removes the backslashes from the quoted-pairs of a quoted-string.
func unquote(s string) string {
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}

// Domain returns the part of the address after the last "@".
func (a Address) Domain() string {
	i := strings.LastIndex(a.Email, "@")
	if i < 0 {
		return ""
	}
	return a.Email[i+1:]
}

// String formats the address for a header, quoting the name if needed.
func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return (&mail.Address{Name: a.Name, Address: a.Email}).String()
}
