// Package site is the HTTP front-end. It renders WordPress content fetched
// through the cms package as server-side HTML pages and RSS feeds.
package site

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dyluth/gazette/internal/ads"
	"github.com/dyluth/gazette/internal/cms"
	"github.com/dyluth/gazette/internal/comments"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const (
	// DefaultMenuLocation is the WordPress menu rendered in the header.
	DefaultMenuLocation = "PRIMARY"

	defaultRequestTimeout = 30 * time.Second
	maxFormBytes          = 64 << 10
)

// Content is the read side of the CMS. *cms.Service implements it.
type Content interface {
	ListPosts(ctx context.Context, params cms.ListParams) (*cms.PostList, error)
	CategoryBySlug(ctx context.Context, slug string) (*cms.Term, error)
	TagBySlug(ctx context.Context, slug string) (*cms.Term, error)
	AuthorBySlug(ctx context.Context, slug string) (*cms.Author, error)
	ResolveNode(ctx context.Context, uri string) (*cms.Node, error)
	Comments(ctx context.Context, postID int) ([]cms.Comment, error)
	Menu(ctx context.Context, location string) ([]cms.MenuItem, error)
	Settings(ctx context.Context) (*cms.Settings, error)
}

// Commenter accepts comment submissions. *comments.Service implements it.
type Commenter interface {
	Submit(ctx context.Context, sub comments.Submission) (*comments.Result, error)
}

// Cache is the response cache as seen by the revalidate and health endpoints.
// *cache.Client implements it.
type Cache interface {
	Purge(ctx context.Context, reason string) (int, error)
	Ping(ctx context.Context) error
}

// Pinger checks upstream reachability. *wpgraphql.Client implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds the presentation settings of the site.
type Config struct {
	Name             string
	URL              string // Absolute base URL without trailing slash
	Description      string
	Language         string
	PostsPerPage     int
	MenuLocation     string
	RevalidateSecret string
	CommentsEnabled  bool
	Ads              ads.Options
	RequestTimeout   time.Duration
}

// Deps are the collaborators a Server needs. Comments, Cache and WordPress may be nil.
type Deps struct {
	Content   Content
	Comments  Commenter
	Cache     Cache
	WordPress Pinger
	Logger    *zap.Logger
}

// Server renders the public site.
type Server struct {
	cfg       Config
	content   Content
	comments  Commenter
	cache     Cache
	wordpress Pinger
	views     *views
	logger    *zap.Logger
	router    chi.Router
}

// New builds a Server and its routes.
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Content == nil {
		return nil, fmt.Errorf("site requires a content source")
	}
	if cfg.Name == "" || cfg.URL == "" {
		return nil, fmt.Errorf("site name and url are required")
	}
	if cfg.PostsPerPage <= 0 {
		cfg.PostsPerPage = 10
	}
	if cfg.MenuLocation == "" {
		cfg.MenuLocation = DefaultMenuLocation
	}
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	v, err := loadViews()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:       cfg,
		content:   deps.Content,
		comments:  deps.Comments,
		cache:     deps.Cache,
		wordpress: deps.WordPress,
		views:     v,
		logger:    logger.Named("site"),
	}
	s.router = s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.GetHead)

	// Probes and static assets stay outside the page timeout
	r.Get("/healthz", s.handleHealthz)
	r.Handle("/static/*", staticHandler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))

		r.Get("/", s.handleHome)
		r.Get("/search", s.handleSearch)
		r.Get("/feed/", s.handleFeed)
		r.Get("/category/{slug}/", s.handleArchive(archiveCategory))
		r.Get("/category/{slug}/feed/", s.handleCategoryFeed)
		r.Get("/tag/{slug}/", s.handleArchive(archiveTag))
		r.Get("/author/{slug}/", s.handleArchive(archiveAuthor))

		r.Post("/comments", s.handleComment)
		r.Post("/api/revalidate", s.handleRevalidate)

		r.Get("/*", s.handleNode)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.renderError(w, r, http.StatusNotFound, "Page not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", "GET, HEAD")
		s.renderError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}

// absURL joins a site-relative path to the configured base URL.
func (s *Server) absURL(path string) string {
	if path == "" {
		path = "/"
	}
	if path[0] != '/' {
		return path
	}
	return s.cfg.URL + path
}
