package email

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/docker/go-units"
	"github.com/gabriel-vasile/mimetype"
	"github.com/ptgott/fluentmail/html"
	"github.com/ptgott/fluentmail/mailerr"
	"github.com/ptgott/fluentmail/strutil"
)

// DefaultType is the MIME type of a body that doesn't set one.
const DefaultType string = "text/html"

// Attachment is a named payload sent alongside the body.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

func (a Attachment) clone() Attachment {
	a.Content = append([]byte(nil), a.Content...)
	return a
}

// Body is the rendered content of an email plus its attachments. Create one
// with NewBody or BodyFromString.
type Body struct {
	content     string
	mimeType    string
	alternative string
	attachments []Attachment
}

// BodyFromString returns a body of DefaultType with content used as is.
func BodyFromString(content string) *Body {
	// Without substitutions or attachments Build can't fail.
	b, _ := NewBody().Content(content).Build()
	return b
}

// Content returns the rendered content.
func (b *Body) Content() string { return b.content }

// Type returns the MIME type of the content.
func (b *Body) Type() string { return b.mimeType }

// Alternative returns the text/plain rendering of an HTML body, or "" if none
// was requested.
func (b *Body) Alternative() string { return b.alternative }

// Attachments returns copies of the attachments in the order they were added.
func (b *Body) Attachments() []Attachment {
	return cloneAttachments(b.attachments)
}

func cloneAttachments(list []Attachment) []Attachment {
	if len(list) == 0 {
		return nil
	}
	a := make([]Attachment, len(list))
	for i := range list {
		a[i] = list[i].clone()
	}
	return a
}

// BodyBuilder assembles a Body. The first error stops the builder: later calls
// are ignored and Build returns that error.
type BodyBuilder struct {
	content           string
	mimeType          string
	substitutions     map[string]interface{}
	delimiter         *rune
	attachments       []Attachment
	maxAttachmentSize int64
	plainText         bool
	err               error
}

// NewBody returns an empty BodyBuilder of DefaultType.
func NewBody() *BodyBuilder {
	return &BodyBuilder{
		mimeType:      DefaultType,
		substitutions: map[string]interface{}{},
	}
}

// Content sets the body text, which may contain template tags.
func (bb *BodyBuilder) Content(text string) *BodyBuilder {
	if bb.err == nil {
		bb.content = text
	}
	return bb
}

// Type sets the MIME type of the content.
func (bb *BodyBuilder) Type(mimeType string) *BodyBuilder {
	if bb.err == nil {
		bb.mimeType = mimeType
	}
	return bb
}

// Delimiter marks tags on both sides with d, e.g. '$' for "$name$". Without
// it, tags use the text/template pair and look like "{{name}}", not "<name>":
// angle brackets can't be the default in bodies that are mostly HTML.
func (bb *BodyBuilder) Delimiter(d rune) *BodyBuilder {
	if bb.err == nil {
		bb.delimiter = &d
	}
	return bb
}

// Replace substitutes value for tag when the body is built. A later call
// for the same tag wins.
func (bb *BodyBuilder) Replace(tag string, value interface{}) *BodyBuilder {
	if bb.err == nil {
		bb.substitutions[tag] = value
	}
	return bb
}

// PlainTextAlternative adds a text/plain version of an HTML body, so clients
// that don't render HTML still get readable text. Ignored for other types.
func (bb *BodyBuilder) PlainTextAlternative() *BodyBuilder {
	if bb.err == nil {
		bb.plainText = true
	}
	return bb
}

// MaxAttachmentSize rejects attachments larger than n bytes. Zero or less
// means no limit. It only applies to attachments added afterward.
func (bb *BodyBuilder) MaxAttachmentSize(n int64) *BodyBuilder {
	if bb.err == nil {
		bb.maxAttachmentSize = n
	}
	return bb
}

// AddFileAttachment reads the file at path and attaches it under its base
// name. The content type comes from the extension, or from the content if the
// extension is unknown.
func (bb *BodyBuilder) AddFileAttachment(path string) *BodyBuilder {
	if bb.err != nil {
		return bb
	}

	f, err := os.Open(path)
	if err != nil {
		bb.err = mailerr.Wrap(mailerr.ErrAttachment, err, "can't open %v", path)
		return bb
	}
	defer f.Close()

	name := filepath.Base(path)
	data, err := bb.read(f, name)
	if err != nil {
		bb.err = err
		return bb
	}

	ct := mime.TypeByExtension(filepath.Ext(name))
	if ct == "" {
		ct = mimetype.Detect(data).String()
	}

	bb.attachments = append(bb.attachments, Attachment{
		Filename:    name,
		ContentType: ct,
		Content:     data,
	})
	return bb
}

// AddAttachment reads r to the end and attaches the content as name. An
// empty contentType is detected from the content.
func (bb *BodyBuilder) AddAttachment(r io.Reader, name string, contentType string) *BodyBuilder {
	if bb.err != nil {
		return bb
	}
	if r == nil {
		bb.err = mailerr.New(mailerr.ErrAttachment, "no reader for %q", name)
		return bb
	}
	if strutil.IsBlank(name) {
		bb.err = mailerr.New(mailerr.ErrAttachment, "attachment name can't be blank")
		return bb
	}

	data, err := bb.read(r, name)
	if err != nil {
		bb.err = err
		return bb
	}
	if strutil.IsBlank(contentType) {
		contentType = mimetype.Detect(data).String()
	}

	bb.attachments = append(bb.attachments, Attachment{
		Filename:    name,
		ContentType: contentType,
		Content:     data,
	})
	return bb
}

// read loads an attachment into memory, enforcing the size limit.
func (bb *BodyBuilder) read(r io.Reader, name string) ([]byte, error) {
	if bb.maxAttachmentSize <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, mailerr.Wrap(mailerr.ErrAttachment, err, "can't read %v", name)
		}
		return data, nil
	}

	data, err := io.ReadAll(io.LimitReader(r, bb.maxAttachmentSize+1))
	if err != nil {
		return nil, mailerr.Wrap(mailerr.ErrAttachment, err, "can't read %v", name)
	}
	if int64(len(data)) > bb.maxAttachmentSize {
		return nil, mailerr.New(
			mailerr.ErrAttachment,
			"%v is larger than the %v limit",
			name,
			units.BytesSize(float64(bb.maxAttachmentSize)),
		)
	}
	return data, nil
}

// Attachments returns copies of the attachments added so far.
func (bb *BodyBuilder) Attachments() []Attachment {
	return cloneAttachments(bb.attachments)
}

// Err returns the error that stopped the builder, if any.
func (bb *BodyBuilder) Err() error {
	return bb.err
}

// Build renders substitutions into the content and returns the Body. The
// content is rendered only when there is both content and at least one
// substitution.
func (bb *BodyBuilder) Build() (*Body, error) {
	if bb.err != nil {
		return nil, bb.err
	}

	content := bb.content
	if !strutil.IsEmpty(content) && len(bb.substitutions) > 0 {
		r, err := render(content, bb.delimiter, bb.substitutions)
		if err != nil {
			bb.err = err
			return nil, err
		}
		content = r
	}

	b := &Body{
		content:     content,
		mimeType:    bb.mimeType,
		attachments: cloneAttachments(bb.attachments),
	}

	if bb.plainText && isHTML(bb.mimeType) {
		alt, err := html.PlainText(content)
		if err != nil {
			bb.err = mailerr.Wrap(mailerr.ErrTemplate, err, "can't derive a text/plain alternative")
			return nil, bb.err
		}
		b.alternative = alt
	}

	return b, nil
}

func isHTML(mimeType string) bool {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return false
	}
	return mt == "text/html"
}

// String describes the body without its content.
func (b *Body) String() string {
	return fmt.Sprintf("%v body, %v attachment(s)", b.mimeType, len(b.attachments))
}
