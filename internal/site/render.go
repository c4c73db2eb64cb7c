package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/dyluth/gazette/internal/cms"
	"github.com/dyluth/gazette/internal/comments"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page templates, each rendered inside layout.html
var pageTemplates = []string{
	"home.html",
	"archive.html",
	"search.html",
	"article.html",
	"page.html",
	"error.html",
}

// Meta is the SEO metadata of a rendered page.
type Meta struct {
	Title       string
	Description string
	Canonical   string
	Type        string // Open Graph type: "website" or "article"
	Image       string
	Published   time.Time
	Modified    time.Time
	FeedURL     string
	NoIndex     bool
}

// layoutData wraps page-specific data with the site chrome.
type layoutData struct {
	Site     Config
	Meta     Meta
	Menu     []cms.MenuItem
	Year     int
	Page     any
	CSSPath  string
	Template string
}

type views struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("January 2, 2006")
	},
	"isoDate": func(t time.Time) string {
		return t.UTC().Format(time.RFC3339)
	},
	"text": cms.PlainText,
	"excerpt": func(post *cms.Post, n int) string {
		if post.Excerpt != "" {
			return cms.Excerpt(post.Excerpt, n)
		}
		return cms.Excerpt(post.Content, n)
	},
	// WordPress post content is trusted editorial HTML
	"trusted": func(s string) template.HTML {
		return template.HTML(s)
	},
	// Comment bodies are reader input and pass through a UGC policy first
	"comment": func(s string) template.HTML {
		return template.HTML(comments.SafeHTML(s))
	},
	"indent": func(depth int) int {
		if depth > maxThreadIndent {
			depth = maxThreadIndent
		}
		return depth * 2
	},
}

const maxThreadIndent = 5

func loadViews() (*views, error) {
	v := &views{pages: make(map[string]*template.Template, len(pageTemplates))}
	for _, name := range pageTemplates {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html", "templates/partials.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		v.pages[name] = t
	}
	return v, nil
}

// render writes a page template wrapped in the layout. Output is buffered
// until the template has executed.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, meta Meta, menu []cms.MenuItem, page any) {
	t, ok := s.views.pages[name]
	if !ok {
		s.logger.Error("Unknown template", zap.String("template", name))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if meta.Type == "" {
		meta.Type = "website"
	}
	if meta.Title == "" {
		meta.Title = s.cfg.Name
	}

	data := layoutData{
		Site:     s.cfg,
		Meta:     meta,
		Menu:     menu,
		Year:     time.Now().Year(),
		Page:     page,
		CSSPath:  "/static/style.css",
		Template: name,
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		s.logger.Error("Failed to render template", zap.String("template", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status == http.StatusOK {
		w.Header().Set("Cache-Control", "public, max-age=60")
	} else {
		w.Header().Set("Cache-Control", "no-store")
	}
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		w.Write(buf.Bytes())
	}
}

type errorPage struct {
	Status  int
	Message string
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.render(w, r, status, "error.html", Meta{Title: fmt.Sprintf("%s | %s", message, s.cfg.Name), NoIndex: true}, nil,
		errorPage{Status: status, Message: message})
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		fileServer.ServeHTTP(w, r)
	})
}
