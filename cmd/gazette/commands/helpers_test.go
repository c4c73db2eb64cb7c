package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/dyluth/gazette/internal/config"
	"github.com/dyluth/gazette/internal/printer"
	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
)

// resetFlags restores flag variables between executions of the shared rootCmd
func resetFlags() {
	configPath = config.DefaultPath
	serveDebug = false
	forceInit = false
	initDir = "."
	resolveJSON = false
	postsOutputFormat = "default"
	postsSince, postsUntil = "", ""
	postsCategory, postsTag, postsAuthor, postsSearch = "", "", "", ""
	postsLimit = 20
	purgeReason = "manual purge"
	watchOutputFormat = "default"
	watchTimeout = 0

	if f := rootCmd.Flags().Lookup("version"); f != nil {
		f.Value.Set("false")
	}
}

// executeCommand runs the CLI with args and captures everything it prints
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()
	clearEnv(t)

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	prevOut, prevErr, prevColor := printer.Stdout, printer.Stderr, color.NoColor
	printer.Stdout, printer.Stderr, color.NoColor = stdout, stderr, true
	t.Cleanup(func() {
		printer.Stdout, printer.Stderr, color.NoColor = prevOut, prevErr, prevColor
	})

	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	err := Execute()
	return stdout.String(), stderr.String(), err
}

// clearEnv keeps the caller's environment from overriding test configs
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"GAZETTE_GRAPHQL_URL", "GAZETTE_AUTH_TOKEN", "REDIS_URL", "GAZETTE_ADDR", "GAZETTE_REVALIDATE_SECRET"} {
		t.Setenv(name, "")
	}
}

// writeTestConfig writes a minimal gazette.yml and returns its path
func writeTestConfig(t *testing.T, graphqlURL, redisURL string) string {
	t.Helper()
	content := fmt.Sprintf(`version: "1.0"
site:
  name: Daily Planet
  url: https://news.example.com
wordpress:
  graphql_url: %s
  max_retries: 0
cache:
  redis_url: %q
  namespace: test
`, graphqlURL, redisURL)

	path := filepath.Join(t.TempDir(), "gazette.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const wpPostJSON = `{
  "id": "cG9zdDo0Mg==", "databaseId": 42, "slug": "hello", "uri": "/2024/01/hello/",
  "title": "Hello from WordPress", "dateGmt": "2024-01-02T09:30:00", "modifiedGmt": "2024-01-02T09:30:00",
  "excerpt": "<p>Excerpt</p>", "content": "<p>Body</p>", "commentCount": 2, "commentStatus": "open",
  "author": {"node": {"name": "Lois Lane", "slug": "lois", "uri": "/author/lois/"}},
  "categories": {"nodes": [{"name": "News", "slug": "news", "uri": "/category/news/"}]},
  "tags": {"nodes": []},
  "featuredImage": null
}`

// fakeWordPress answers the WPGraphQL operations the commands issue and
// records the variables of every request
type fakeWordPress struct {
	*httptest.Server

	mu   sync.Mutex
	vars []map[string]any
}

func newFakeWordPress(t *testing.T) *fakeWordPress {
	t.Helper()
	fw := &fakeWordPress{}
	fw.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fw.mu.Lock()
		fw.vars = append(fw.vars, body.Variables)
		fw.mu.Unlock()

		data := `{"__typename": "RootQuery"}`
		q := strings.TrimSpace(body.Query)
		switch {
		case strings.HasPrefix(q, "query ListPosts"):
			data = `{"posts": {"pageInfo": {"hasNextPage": false, "endCursor": ""}, "nodes": [` + wpPostJSON + `]}}`
		case strings.HasPrefix(q, "query NodeByUri"):
			if body.Variables["uri"] == "/2024/01/hello/" {
				data = `{"nodeByUri": {"__typename": "Post", "uri": "/2024/01/hello/", "databaseId": 42, "slug": "hello"}}`
			} else {
				data = `{"nodeByUri": null}`
			}
		case strings.HasPrefix(q, "query Post("):
			if body.Variables["id"] == "/2024/01/hello/" {
				data = `{"post": ` + wpPostJSON + `}`
			} else {
				data = `{"post": null}`
			}
		case strings.HasPrefix(q, "query Page("):
			data = `{"page": null}`
		case strings.HasPrefix(q, "query Category"):
			data = `{"category": null}`
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": ` + data + `}`))
	}))
	t.Cleanup(fw.Close)
	return fw
}

func (fw *fakeWordPress) requests() []map[string]any {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return append([]map[string]any(nil), fw.vars...)
}
