package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ptgott/fluentmail/email"
	"github.com/ptgott/fluentmail/strutil"
	"github.com/spf13/cobra"
)

// bodyFlags are shared by send and render.
type bodyFlags struct {
	file      string
	mimeType  string
	sets      []string
	delimiter string
	attach    []string
	altText   bool
}

func (f *bodyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.file, "body-file", "", `path to the body template, or "-" for stdin`)
	cmd.Flags().StringVar(&f.mimeType, "type", email.DefaultType, "MIME type of the body")
	cmd.Flags().StringArrayVar(&f.sets, "set", nil, "tag=value substitution; repeatable")
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "", `single character around tags, e.g. "$" for $name$; defaults to {{name}}`)
	cmd.Flags().BoolVar(&f.altText, "alt-text", false, "add a text/plain alternative to an HTML body")
}

type substitution struct {
	tag   string
	value string
}

// substitutions parses tag=value pairs. The first "=" splits tag from value,
// and a later pair for the same tag wins.
func substitutions(sets []string) (map[string]substitution, error) {
	pairs := make([]substitution, 0, len(sets))
	for _, s := range sets {
		tag, value, ok := strings.Cut(s, "=")
		if !ok || strutil.IsBlank(tag) {
			return nil, fmt.Errorf("--set %q: expected tag=value", s)
		}
		pairs = append(pairs, substitution{tag: strutil.Trim(tag), value: value})
	}
	return strutil.ToMap(func(s substitution) string { return s.tag }, pairs), nil
}

func readContent(cmd *cobra.Command, path string) (string, error) {
	var r io.Reader
	switch path {
	case "":
		return "", nil
	case "-":
		r = cmd.InOrStdin()
	default:
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("can't open the body file: %w", err)
		}
		defer f.Close()
		r = f
	}

	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("can't read the body: %w", err)
	}
	return string(b), nil
}

// buildBody assembles the body described by f. maxSize limits attachments;
// zero means no limit.
func (f *bodyFlags) buildBody(cmd *cobra.Command, maxSize int64) (*email.Body, error) {
	content, err := readContent(cmd, f.file)
	if err != nil {
		return nil, err
	}
	subs, err := substitutions(f.sets)
	if err != nil {
		return nil, err
	}

	bb := email.NewBody().
		Content(content).
		Type(f.mimeType).
		MaxAttachmentSize(maxSize)

	if f.delimiter != "" {
		if utf8.RuneCountInString(f.delimiter) != 1 {
			return nil, fmt.Errorf("--delimiter must be a single character, not %q", f.delimiter)
		}
		d, _ := utf8.DecodeRuneInString(f.delimiter)
		bb.Delimiter(d)
	}
	for tag, s := range subs {
		bb.Replace(tag, s.value)
	}
	for _, p := range f.attach {
		bb.AddFileAttachment(p)
	}
	if f.altText {
		bb.PlainTextAlternative()
	}

	return bb.Build()
}
