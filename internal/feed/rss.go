// Package feed renders post listings as RSS 2.0 documents.
package feed

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dyluth/gazette/internal/cms"
)

const (
	// ContentType is the media type served for feeds.
	ContentType = "application/rss+xml; charset=utf-8"

	excerptLength = 300
	generator     = "gazette"
)

// Channel describes the feed itself.
type Channel struct {
	Title       string
	Link        string // Site or archive URL
	SelfURL     string // Absolute URL of the feed
	Description string
	Language    string
	Updated     time.Time
}

// Item is one feed entry.
type Item struct {
	Title       string
	Link        string
	Description string
	Creator     string
	Categories  []string
	Published   time.Time
}

type rssDoc struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Atom    string     `xml:"xmlns:atom,attr"`
	DC      string     `xml:"xmlns:dc,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	AtomLink      atomLink  `xml:"atom:link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language,omitempty"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Generator     string    `xml:"generator"`
	Items         []rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	GUID        rssGUID  `xml:"guid"`
	PubDate     string   `xml:"pubDate,omitempty"`
	Creator     string   `xml:"dc:creator,omitempty"`
	Categories  []string `xml:"category"`
	Description string   `xml:"description,omitempty"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// WriteRSS encodes the channel and items as an RSS 2.0 document.
func WriteRSS(w io.Writer, ch Channel, items []Item) error {
	doc := rssDoc{
		Version: "2.0",
		Atom:    "http://www.w3.org/2005/Atom",
		DC:      "http://purl.org/dc/elements/1.1/",
		Channel: rssChannel{
			Title:       ch.Title,
			Link:        ch.Link,
			AtomLink:    atomLink{Href: ch.SelfURL, Rel: "self", Type: "application/rss+xml"},
			Description: ch.Description,
			Language:    ch.Language,
			Generator:   generator,
			Items:       make([]rssItem, 0, len(items)),
		},
	}
	if !ch.Updated.IsZero() {
		doc.Channel.LastBuildDate = ch.Updated.UTC().Format(time.RFC1123Z)
	}

	for _, it := range items {
		item := rssItem{
			Title:       it.Title,
			Link:        it.Link,
			GUID:        rssGUID{IsPermaLink: true, Value: it.Link},
			Creator:     it.Creator,
			Categories:  it.Categories,
			Description: it.Description,
		}
		if !it.Published.IsZero() {
			item.PubDate = it.Published.UTC().Format(time.RFC1123Z)
		}
		doc.Channel.Items = append(doc.Channel.Items, item)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode feed: %w", err)
	}
	return enc.Close()
}

// FromPosts converts posts to feed items. Relative post URIs are joined to siteURL.
// The channel's Updated time is the newest post date.
func FromPosts(siteURL string, posts []*cms.Post) ([]Item, time.Time) {
	base := strings.TrimRight(siteURL, "/")
	items := make([]Item, 0, len(posts))
	var updated time.Time

	for _, p := range posts {
		link := p.URI
		if strings.HasPrefix(link, "/") {
			link = base + link
		}

		item := Item{
			Title:       cms.PlainText(p.Title),
			Link:        link,
			Description: cms.Excerpt(firstNonEmpty(p.Excerpt, p.Content), excerptLength),
			Published:   p.Date,
		}
		if p.Author != nil {
			item.Creator = p.Author.Name
		}
		for _, c := range p.Categories {
			item.Categories = append(item.Categories, c.Name)
		}
		if p.Date.After(updated) {
			updated = p.Date
		}
		items = append(items, item)
	}
	return items, updated
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
