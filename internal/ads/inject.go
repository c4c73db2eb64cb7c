// Package ads places empty in-article ad slots between paragraphs of post
// content. Filling the slots is left to whatever ad script the page loads.
package ads

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// SlotClass is the CSS class carried by every injected slot.
const SlotClass = "ad-slot"

// Options controls slot placement.
type Options struct {
	Enabled       bool
	Every         int // Insert a slot after every Nth top-level paragraph
	MaxSlots      int
	MinParagraphs int // Articles shorter than this get no slots
}

// DefaultOptions returns the placement used when the config omits values.
func DefaultOptions() Options {
	return Options{Enabled: true, Every: 4, MaxSlots: 3, MinParagraphs: 3}
}

// Inject returns content with slots inserted and the number of slots placed.
// Content that is too short, or any parse failure, leaves the input untouched.
// A slot is never placed after the final paragraph.
func Inject(content string, opts Options) (string, int, error) {
	if !opts.Enabled || opts.Every <= 0 || opts.MaxSlots <= 0 {
		return content, 0, nil
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(content), body)
	if err != nil {
		return content, 0, fmt.Errorf("failed to parse article content: %w", err)
	}

	var paragraphs []int
	for i, n := range nodes {
		if n.Type == html.ElementNode && n.DataAtom == atom.P {
			paragraphs = append(paragraphs, i)
		}
	}
	if len(paragraphs) < opts.MinParagraphs {
		return content, 0, nil
	}

	// Record the node index after which each slot goes
	after := make(map[int]int)
	for count, idx := range paragraphs {
		position := count + 1
		if position%opts.Every != 0 || position == len(paragraphs) {
			continue
		}
		if len(after) == opts.MaxSlots {
			break
		}
		after[idx] = len(after) + 1
	}
	if len(after) == 0 {
		return content, 0, nil
	}

	var sb strings.Builder
	for i, n := range nodes {
		if err := html.Render(&sb, n); err != nil {
			return content, 0, fmt.Errorf("failed to render article content: %w", err)
		}
		if slot, ok := after[i]; ok {
			if err := html.Render(&sb, slotNode(slot)); err != nil {
				return content, 0, fmt.Errorf("failed to render ad slot: %w", err)
			}
		}
	}

	return sb.String(), len(after), nil
}

func slotNode(n int) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
		Attr: []html.Attribute{
			{Key: "class", Val: SlotClass},
			{Key: "data-ad-slot", Val: fmt.Sprintf("in-article-%d", n)},
			{Key: "aria-hidden", Val: "true"},
		},
	}
}
