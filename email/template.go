package email

import (
	"regexp"
	"strings"
	"text/template"

	"github.com/ptgott/fluentmail/mailerr"
)

// Delimiters used when a body doesn't set one.
const (
	defaultLeftDelim  = "{{"
	defaultRightDelim = "}}"
)

var tagRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Words the template parser reads as keywords, so they can't name a tag.
var reservedTags = map[string]struct{}{
	"block": {}, "break": {}, "continue": {}, "define": {}, "else": {},
	"end": {}, "false": {}, "if": {}, "nil": {}, "range": {}, "template": {},
	"true": {}, "with": {},
}

// render substitutes tags in content. Each tag becomes a template function
// that takes no arguments, so "Hello, $name$!" with the delimiter '$' reads as
// a call to name. The substitutions are also the template's data, so
// "{{.name}}" resolves too. A tag in the text with no substitution fails to
// parse, and a field with no substitution fails to execute.
func render(content string, delim *rune, subs map[string]interface{}) (string, error) {
	left, right := defaultLeftDelim, defaultRightDelim
	if delim != nil {
		left, right = string(*delim), string(*delim)
	}

	funcs := make(template.FuncMap, len(subs))
	for tag, v := range subs {
		if !tagRe.MatchString(tag) {
			return "", mailerr.New(mailerr.ErrTemplate, "%q is not a valid tag name", tag)
		}
		if _, ok := reservedTags[tag]; ok {
			return "", mailerr.New(mailerr.ErrTemplate, "%q is a reserved word", tag)
		}
		v := v
		funcs[tag] = func() interface{} { return v }
	}

	tmpl, err := template.New("body").
		Delims(left, right).
		Option("missingkey=error").
		Funcs(funcs).
		Parse(content)
	if err != nil {
		return "", mailerr.Wrap(mailerr.ErrTemplate, err, "can't parse the body")
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, subs); err != nil {
		return "", mailerr.Wrap(mailerr.ErrTemplate, err, "can't populate the body")
	}
	return b.String(), nil
}
