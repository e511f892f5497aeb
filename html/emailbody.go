package html

import (
	"fmt"
	"regexp"
	"strings"

	css "github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Elements whose content never reaches a reader of the text version.
var hiddenSelector = css.MustCompile("head, script, style, template, noscript")

// Elements that start a new line in the text version. Everything else is
// treated as inline.
var blockTags = map[string]struct{}{
	"address": {}, "article": {}, "aside": {}, "blockquote": {}, "div": {},
	"dl": {}, "dt": {}, "dd": {}, "footer": {}, "form": {}, "h1": {}, "h2": {},
	"h3": {}, "h4": {}, "h5": {}, "h6": {}, "header": {}, "hr": {}, "li": {},
	"main": {}, "nav": {}, "ol": {}, "p": {}, "pre": {}, "section": {},
	"table": {}, "tr": {}, "ul": {},
}

var (
	spaceRe     = regexp.MustCompile(`[ \t\r\n\f]+`)
	blankLineRe = regexp.MustCompile(`\n{3,}`)
)

// PlainText renders an HTML email body as text suitable for a text/plain
// alternative part. Links keep their targets in parentheses after the link
// text, and list items are prefixed with "- ".
func PlainText(body string) (string, error) {
	n, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("can't parse the HTML body: %v", err)
	}

	for _, h := range hiddenSelector.MatchAll(n) {
		if h.Parent != nil {
			h.Parent.RemoveChild(h)
		}
	}

	var b strings.Builder
	writeText(&b, n)

	t := blankLineRe.ReplaceAllString(b.String(), "\n\n")
	lines := strings.Split(t, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

// writeText walks n depth first, appending the text a reader would see.
func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(spaceRe.ReplaceAllString(n.Data, " "))
		return
	case html.ElementNode:
		switch n.Data {
		case "br":
			b.WriteString("\n")
			return
		case "li":
			b.WriteString("\n- ")
			writeChildren(b, n)
			b.WriteString("\n")
			return
		case "a":
			writeChildren(b, n)
			if href := attr(n, "href"); href != "" && !strings.HasPrefix(href, "#") {
				fmt.Fprintf(b, " (%v)", href)
			}
			return
		}
		if _, block := blockTags[n.Data]; block {
			b.WriteString("\n\n")
			writeChildren(b, n)
			b.WriteString("\n\n")
			return
		}
	}
	writeChildren(b, n)
}

func writeChildren(b *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
