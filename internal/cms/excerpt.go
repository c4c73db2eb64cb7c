package cms

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// PlainText strips markup from an HTML fragment, decoding entities and
// collapsing whitespace. Script and style contents are dropped.
func PlainText(fragment string) string {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(strings.Fields(sb.String()), " ")
}

// Excerpt returns at most n runes of plain text from an HTML fragment, cut on
// a word boundary and suffixed with "…" when shortened. WordPress's own
// "[…]" read-more marker is removed.
func Excerpt(fragment string, n int) string {
	text := PlainText(fragment)
	text = strings.TrimSpace(strings.TrimSuffix(text, "[…]"))
	text = strings.TrimSpace(strings.TrimSuffix(text, "[...]"))

	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}

	runes := []rune(text)
	cut := string(runes[:n])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:-") + "…"
}
