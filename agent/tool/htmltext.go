package tool

import (
	"strings"

	"golang.org/x/net/html"
)

// htmlToText returns the visible text of an HTML page, one block per line.
func htmlToText(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	node, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	extractText(node, &b, false)
	return strings.TrimSpace(compactWhitespace(b.String())), nil
}

func extractText(n *html.Node, b *strings.Builder, hidden bool) {
	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "script", "style", "noscript", "head", "nav", "footer":
			hidden = true
		case "br", "p", "div", "li", "tr", "h1", "h2", "h3", "h4":
			b.WriteString("\n")
		}
	}
	if !hidden && n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, b, hidden)
	}
}

func compactWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	var out []string
	for _, ln := range strings.Split(s, "\n") {
		if ln = strings.Join(strings.Fields(ln), " "); ln != "" {
			out = append(out, ln)
		}
	}
	return strings.Join(out, "\n")
}
