package smtptest

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"
)

// Part is a leaf of a received message with its transfer encoding removed.
type Part struct {
	Header   textproto.MIMEHeader
	Type     string
	Filename string
	Body     []byte
}

// ParsedEmail is a received message split into its leaf parts, depth first.
type ParsedEmail struct {
	Header mail.Header
	Parts  []Part
}

// ParseEmail parses the raw data of a received message. If a test is failing
// here, the message on the wire probably isn't well-formed MIME.
func ParseEmail(data string) (*ParsedEmail, error) {
	m, err := mail.ReadMessage(strings.NewReader(data))
	if err != nil {
		return nil, err
	}

	p := &ParsedEmail{Header: m.Header}
	h := textproto.MIMEHeader(m.Header)
	if err := p.walk(h, m.Body); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *ParsedEmail) walk(h textproto.MIMEHeader, body io.Reader) error {
	mt, params, err := mime.ParseMediaType(h.Get("Content-Type"))
	if err != nil {
		mt, params = "text/plain", map[string]string{}
	}

	if strings.HasPrefix(mt, "multipart/") {
		mr := multipart.NewReader(body, params["boundary"])
		for {
			part, err := mr.NextRawPart()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			if err := p.walk(part.Header, part); err != nil {
				return err
			}
		}
	}

	data, err := decode(h.Get("Content-Transfer-Encoding"), body)
	if err != nil {
		return err
	}

	name := params["name"]
	if _, dp, err := mime.ParseMediaType(h.Get("Content-Disposition")); err == nil && dp["filename"] != "" {
		name = dp["filename"]
	}

	p.Parts = append(p.Parts, Part{
		Header:   h,
		Type:     mt,
		Filename: name,
		Body:     data,
	})
	return nil
}

func decode(encoding string, r io.Reader) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		// base64 bodies are wrapped at 76 columns
		raw = bytes.Join(bytes.Fields(raw), nil)
		return base64.StdEncoding.DecodeString(string(raw))
	case "quoted-printable":
		return io.ReadAll(quotedprintable.NewReader(r))
	case "", "7bit", "8bit", "binary":
		return io.ReadAll(r)
	}
	return nil, fmt.Errorf("unknown transfer encoding %q", encoding)
}

// Subject returns the decoded Subject header.
func (p *ParsedEmail) Subject() string {
	s := p.Header.Get("Subject")
	d, err := new(mime.WordDecoder).DecodeHeader(s)
	if err != nil {
		return s
	}
	return d
}

// Body returns the first part of mediaType that isn't an attachment.
func (p *ParsedEmail) Body(mediaType string) (Part, bool) {
	for _, pt := range p.Parts {
		if pt.Type == mediaType && pt.Filename == "" {
			return pt, true
		}
	}
	return Part{}, false
}

// Attachments returns the parts that carry a file name.
func (p *ParsedEmail) Attachments() []Part {
	var r []Part
	for _, pt := range p.Parts {
		if pt.Filename != "" {
			r = append(r, pt)
		}
	}
	return r
}
