// Package listing renders content lookups for the terminal.
package listing

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dyluth/gazette/internal/cms"
)

// OutputFormat selects how posts are written.
type OutputFormat string

const (
	OutputFormatDefault OutputFormat = "default"
	OutputFormatJSONL   OutputFormat = "jsonl"
)

// ParseOutputFormat validates an --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", OutputFormatDefault:
		return OutputFormatDefault, nil
	case OutputFormatJSONL:
		return OutputFormatJSONL, nil
	}
	return "", fmt.Errorf("invalid output format %q (must be 'default' or 'jsonl')", s)
}

// FormatTable writes posts as a formatted table to the provided writer.
// The table includes columns: ID, AGE, AUTHOR, CATEGORY, and TITLE (truncated).
// Returns the number of posts formatted.
func FormatTable(w io.Writer, posts []*cms.Post, source string, now time.Time) int {
	if len(posts) == 0 {
		fmt.Fprintf(w, "No posts found at %s\n", source)
		return 0
	}

	fmt.Fprintf(w, "Posts from %s:\n\n", source)

	fmt.Fprintf(w, "%-7s %-8s %-16s %-14s %s\n",
		"ID", "AGE", "AUTHOR", "CATEGORY", "TITLE")
	fmt.Fprintf(w, "%-7s %-8s %-16s %-14s %s\n",
		"-------", "--------", "----------------", "--------------", "----------------------------------------")

	for _, p := range posts {
		fmt.Fprintf(w, "%-7d %-8s %-16s %-14s %s\n",
			p.DatabaseID,
			formatAge(p.Date, now),
			formatAuthor(p.Author),
			formatCategory(p.Categories),
			truncate(cms.PlainText(p.Title), 50),
		)
	}

	countMsg := "post"
	if len(posts) != 1 {
		countMsg = "posts"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(posts), countMsg)

	return len(posts)
}

// FormatJSONL writes posts as line-delimited JSON (JSONL) to the provided writer.
// Post bodies are omitted; use `gazette resolve` for the full document.
func FormatJSONL(w io.Writer, posts []*cms.Post) error {
	enc := json.NewEncoder(w)
	for _, p := range posts {
		summary := *p
		summary.Content = ""
		if err := enc.Encode(&summary); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// FormatNode writes a resolved node as pretty-printed JSON.
func FormatNode(w io.Writer, node *cms.Node) error {
	data, err := json.MarshalIndent(node, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal node to JSON: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	fmt.Fprintln(w)

	return nil
}

func formatAuthor(a *cms.Author) string {
	if a == nil || a.Name == "" {
		return "-"
	}
	return truncate(a.Name, 16)
}

// formatCategory shows the first category, with a "+N" suffix for the rest.
func formatCategory(terms []cms.Term) string {
	if len(terms) == 0 {
		return "-"
	}
	name := terms[0].Name
	if len(terms) > 1 {
		return truncate(name, 11) + fmt.Sprintf("+%d", len(terms)-1)
	}
	return truncate(name, 14)
}

// formatAge shows relative time like "2m ago", "1h ago", etc.
func formatAge(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}

	diff := now.Sub(t)
	switch {
	case diff < 0:
		return "future"
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
