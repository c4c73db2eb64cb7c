package listing

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/dyluth/gazette/internal/cms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func testPosts() []*cms.Post {
	return []*cms.Post{
		{
			DatabaseID: 101,
			Title:      "Council approves new tram line &#8211; work starts in spring",
			URI:        "/2024/03/tram/",
			Date:       now.Add(-2 * time.Hour),
			Content:    "<p>Long body</p>",
			Author:     &cms.Author{Name: "Lois Lane"},
			Categories: []cms.Term{{Name: "Transport"}, {Name: "Politics"}},
		},
		{
			DatabaseID: 102,
			Title:      "Weather",
			Date:       now.Add(-72 * time.Hour),
		},
	}
}

func TestParseOutputFormat(t *testing.T) {
	f, err := ParseOutputFormat("")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatDefault, f)

	f, err = ParseOutputFormat("jsonl")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatJSONL, f)

	_, err = ParseOutputFormat("yaml")
	assert.Error(t, err)
}

func TestFormatTable(t *testing.T) {
	var buf bytes.Buffer
	n := FormatTable(&buf, testPosts(), "https://cms.example.com/graphql", now)
	assert.Equal(t, 2, n)

	out := buf.String()
	assert.Contains(t, out, "Posts from https://cms.example.com/graphql:")
	assert.Contains(t, out, "ID      AGE      AUTHOR           CATEGORY       TITLE")

	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 6)
	assert.Equal(t, "101     2h ago   Lois Lane        Transport+1    Council approves new tram line – work starts in...", lines[4])
	assert.Equal(t, "102     3d ago   -                -              Weather", lines[5])
	assert.Contains(t, out, "2 posts found")
}

func TestFormatTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	n := FormatTable(&buf, nil, "https://cms.example.com/graphql", now)
	assert.Equal(t, 0, n)
	assert.Equal(t, "No posts found at https://cms.example.com/graphql\n", buf.String())
}

func TestFormatJSONL(t *testing.T) {
	posts := testPosts()
	var buf bytes.Buffer
	require.NoError(t, FormatJSONL(&buf, posts))

	scanner := bufio.NewScanner(&buf)
	var decoded []cms.Post
	for scanner.Scan() {
		var p cms.Post
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &p))
		decoded = append(decoded, p)
	}
	require.Len(t, decoded, 2)
	assert.Equal(t, 101, decoded[0].DatabaseID)
	assert.Empty(t, decoded[0].Content, "bodies are dropped")
	assert.Equal(t, "<p>Long body</p>", posts[0].Content, "input is not modified")
}

func TestFormatNode(t *testing.T) {
	var buf bytes.Buffer
	node := &cms.Node{Kind: cms.KindCategory, URI: "/category/news/", Slug: "news", MatchedBy: "nodeByUri /category/news/"}
	require.NoError(t, FormatNode(&buf, node))
	assert.Contains(t, buf.String(), `"kind": "category"`)
	assert.True(t, strings.HasSuffix(buf.String(), "}\n"))
}

func TestFormatAge(t *testing.T) {
	assert.Equal(t, "-", formatAge(time.Time{}, now))
	assert.Equal(t, "30s ago", formatAge(now.Add(-30*time.Second), now))
	assert.Equal(t, "5m ago", formatAge(now.Add(-5*time.Minute), now))
	assert.Equal(t, "future", formatAge(now.Add(time.Hour), now))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ééé...", truncate("éééééééé", 6))
}
