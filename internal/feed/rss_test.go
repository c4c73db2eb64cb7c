package feed

import (
	"bytes"
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/dyluth/gazette/internal/cms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePosts() []*cms.Post {
	return []*cms.Post{
		{
			Title:      "Hello &amp; welcome",
			URI:        "/2024/01/hello/",
			Date:       time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC),
			Excerpt:    "<p>First post on the new site [&hellip;]</p>",
			Author:     &cms.Author{Name: "Lois Lane"},
			Categories: []cms.Term{{Name: "News"}, {Name: "Metro"}},
		},
		{
			Title:   "Absolute link",
			URI:     "https://cdn.example.com/elsewhere/",
			Date:    time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
			Content: "<p>No excerpt, falls back to content.</p>",
		},
	}
}

func TestFromPosts(t *testing.T) {
	items, updated := FromPosts("https://news.example.com/", samplePosts())
	require.Len(t, items, 2)

	assert.Equal(t, "Hello & welcome", items[0].Title)
	assert.Equal(t, "https://news.example.com/2024/01/hello/", items[0].Link)
	assert.Equal(t, "First post on the new site", items[0].Description)
	assert.Equal(t, "Lois Lane", items[0].Creator)
	assert.Equal(t, []string{"News", "Metro"}, items[0].Categories)

	assert.Equal(t, "https://cdn.example.com/elsewhere/", items[1].Link)
	assert.Equal(t, "No excerpt, falls back to content.", items[1].Description)
	assert.Empty(t, items[1].Creator)

	assert.Equal(t, time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC), updated)
}

func TestWriteRSS(t *testing.T) {
	items, updated := FromPosts("https://news.example.com", samplePosts())
	ch := Channel{
		Title:       "Daily Planet",
		Link:        "https://news.example.com/",
		SelfURL:     "https://news.example.com/feed/",
		Description: "Metropolis news",
		Language:    "en-US",
		Updated:     updated,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRSS(&buf, ch, items))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, xml.Header))
	assert.Contains(t, out, `<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom" xmlns:dc="http://purl.org/dc/elements/1.1/">`)
	assert.Contains(t, out, `<atom:link href="https://news.example.com/feed/" rel="self" type="application/rss+xml"></atom:link>`)
	assert.Contains(t, out, `<guid isPermaLink="true">https://news.example.com/2024/01/hello/</guid>`)
	assert.Contains(t, out, "<pubDate>Tue, 02 Jan 2024 09:30:00 +0000</pubDate>")
	assert.Contains(t, out, "<lastBuildDate>Tue, 02 Jan 2024 09:30:00 +0000</lastBuildDate>")
	assert.Contains(t, out, "<dc:creator>Lois Lane</dc:creator>")
	assert.Contains(t, out, "<category>Metro</category>")
	assert.Contains(t, out, "<title>Hello &amp; welcome</title>")

	// The output must be well-formed XML
	var parsed struct {
		Channel struct {
			Title string `xml:"title"`
			Items []struct {
				Title string `xml:"title"`
				Link  string `xml:"link"`
			} `xml:"item"`
		} `xml:"channel"`
	}
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &parsed))
	assert.Equal(t, "Daily Planet", parsed.Channel.Title)
	require.Len(t, parsed.Channel.Items, 2)
	assert.Equal(t, "Hello & welcome", parsed.Channel.Items[0].Title)
}

func TestWriteRSS_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRSS(&buf, Channel{Title: "Empty", Link: "https://x.test/"}, nil))
	assert.NotContains(t, buf.String(), "<item>")
	assert.NotContains(t, buf.String(), "lastBuildDate")
}
