package email

import (
	"io"
	"mime"
	"time"

	gomail "gopkg.in/gomail.v2"
)

const fallbackAttachmentType = "application/octet-stream"

// Message assembles the MIME message that Send hands to the transport. Every
// call builds a new message, so the result may be modified freely.
func (e *Email) Message() *gomail.Message {
	m := gomail.NewMessage()

	m.SetHeader("Message-ID", e.messageID)
	m.SetDateHeader("Date", time.Now())
	m.SetAddressHeader("From", e.from.Email, e.from.Name)
	setAddressList(m, "To", e.to)
	setAddressList(m, "Cc", e.cc)
	// gomail adds Bcc recipients to the envelope and leaves the header out
	setAddressList(m, "Bcc", e.bcc)
	m.SetHeader("Subject", e.subject)

	if alt := e.body.Alternative(); alt != "" {
		m.SetBody("text/plain", alt)
		m.AddAlternative(e.body.Type(), e.body.Content())
	} else {
		m.SetBody(e.body.Type(), e.body.Content())
	}

	for _, a := range e.body.Attachments() {
		a := a
		m.Attach(
			a.Filename,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(a.Content)
				return err
			}),
			gomail.SetHeader(map[string][]string{
				"Content-Type": {attachmentType(a)},
			}),
		)
	}

	return m
}

func setAddressList(m *gomail.Message, field string, list []Address) {
	if len(list) == 0 {
		return
	}
	v := make([]string, len(list))
	for i, a := range list {
		v[i] = m.FormatAddress(a.Email, a.Name)
	}
	m.SetHeader(field, v...)
}

// attachmentType returns the Content-Type header for a, carrying the file
// name as a parameter the way mail clients expect.
func attachmentType(a Attachment) string {
	mt, params, err := mime.ParseMediaType(a.ContentType)
	if err != nil {
		mt, params = fallbackAttachmentType, map[string]string{}
	}
	params["name"] = a.Filename
	return mime.FormatMediaType(mt, params)
}
