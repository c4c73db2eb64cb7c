package site

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/dyluth/gazette/internal/ads"
	"github.com/dyluth/gazette/internal/cms"
	"github.com/dyluth/gazette/internal/comments"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	descriptionLength = 160
	maxQueryLength    = 200
)

type archiveKind string

const (
	archiveCategory archiveKind = "category"
	archiveTag      archiveKind = "tag"
	archiveAuthor   archiveKind = "author"
)

// listPage backs home, archive and search templates.
type listPage struct {
	Heading     string
	Kind        string
	Description string
	AvatarURL   string
	Query       string
	Posts       []*cms.Post
	NextURL     string
}

// articlePage backs the article template.
type articlePage struct {
	Post         *cms.Post
	Body         string
	Thread       []*comments.Thread
	CommentsOpen bool
	Notice       string
	Form         commentForm
}

// commentForm holds the values and error shown when a submission is re-rendered.
type commentForm struct {
	Author   string
	Email    string
	URL      string
	Content  string
	ParentID int
	Field    string
	Error    string
}

type staticPage struct {
	Page *cms.Page
}

// withMenu runs fetches concurrently with the header menu lookup and
// returns the first fetch error. A failed menu lookup renders no menu.
func (s *Server) withMenu(ctx context.Context, fetches ...func(ctx context.Context) error) ([]cms.MenuItem, error) {
	var menu []cms.MenuItem
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		items, err := s.content.Menu(gctx, s.cfg.MenuLocation)
		if err != nil {
			if gctx.Err() == nil {
				s.logger.Warn("Failed to load menu", zap.String("location", s.cfg.MenuLocation), zap.Error(err))
			}
			return nil
		}
		menu = items
		return nil
	})
	for _, fetch := range fetches {
		g.Go(func() error { return fetch(gctx) })
	}

	err := g.Wait()
	return menu, err
}

// fail maps a content error to an error page.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case cms.IsNotFoundError(err):
		s.renderError(w, r, http.StatusNotFound, "Page not found")
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		// Client went away
		s.logger.Debug("Request cancelled", zap.String("path", r.URL.Path))
	default:
		s.logger.Error("Upstream request failed", zap.String("path", r.URL.Path), zap.Error(err))
		s.renderError(w, r, http.StatusBadGateway, "The newsroom is not responding right now. Please try again shortly.")
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	after := r.URL.Query().Get("after")

	var list *cms.PostList
	var settings *cms.Settings
	menu, err := s.withMenu(r.Context(),
		func(ctx context.Context) error {
			var err error
			list, err = s.content.ListPosts(ctx, cms.ListParams{First: s.cfg.PostsPerPage, After: after})
			return err
		},
		func(ctx context.Context) error {
			var err error
			if settings, err = s.content.Settings(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("Failed to load settings", zap.Error(err))
			}
			return nil
		},
	)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	description := s.cfg.Description
	if description == "" && settings != nil {
		description = settings.Description
	}

	meta := Meta{
		Title:       s.cfg.Name,
		Description: description,
		Canonical:   s.absURL(withAfter("/", after)),
		FeedURL:     s.absURL("/feed/"),
	}
	if description != "" {
		meta.Title = s.cfg.Name + " | " + description
	}

	s.render(w, r, http.StatusOK, "home.html", meta, menu, listPage{
		Heading:     "Latest",
		Description: description,
		Posts:       list.Posts,
		NextURL:     nextURL("/", nil, list.PageInfo),
	})
}

func (s *Server) handleArchive(kind archiveKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		after := r.URL.Query().Get("after")
		path := "/" + string(kind) + "/" + slug + "/"

		params := cms.ListParams{First: s.cfg.PostsPerPage, After: after}
		page := listPage{Kind: string(kind)}

		var lookup func(ctx context.Context) error
		switch kind {
		case archiveCategory:
			params.CategorySlug = slug
			lookup = func(ctx context.Context) error {
				term, err := s.content.CategoryBySlug(ctx, slug)
				if err == nil {
					page.Heading, page.Description = term.Name, term.Description
				}
				return err
			}
		case archiveTag:
			params.TagSlug = slug
			lookup = func(ctx context.Context) error {
				term, err := s.content.TagBySlug(ctx, slug)
				if err == nil {
					page.Heading, page.Description = term.Name, term.Description
				}
				return err
			}
		case archiveAuthor:
			params.AuthorSlug = slug
			lookup = func(ctx context.Context) error {
				author, err := s.content.AuthorBySlug(ctx, slug)
				if err == nil {
					page.Heading, page.Description, page.AvatarURL = author.Name, author.Description, author.AvatarURL
				}
				return err
			}
		}

		var list *cms.PostList
		menu, err := s.withMenu(r.Context(), lookup, func(ctx context.Context) error {
			var err error
			list, err = s.content.ListPosts(ctx, params)
			return err
		})
		if err != nil {
			s.fail(w, r, err)
			return
		}

		page.Posts = list.Posts
		page.NextURL = nextURL(path, nil, list.PageInfo)

		description := cms.Excerpt(page.Description, descriptionLength)
		if description == "" {
			description = archiveDescription(kind, page.Heading, s.cfg.Name)
		}

		meta := Meta{
			Title:       page.Heading + " | " + s.cfg.Name,
			Description: description,
			Canonical:   s.absURL(withAfter(path, after)),
		}
		if kind == archiveCategory {
			meta.FeedURL = s.absURL(path + "feed/")
		}

		s.render(w, r, http.StatusOK, "archive.html", meta, menu, page)
	}
}

func archiveDescription(kind archiveKind, name, site string) string {
	switch kind {
	case archiveAuthor:
		return "Articles by " + name + " on " + site
	case archiveTag:
		return "Articles tagged " + name + " on " + site
	default:
		return "Latest " + name + " news on " + site
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if utf8.RuneCountInString(q) > maxQueryLength {
		q = string([]rune(q)[:maxQueryLength])
	}
	after := r.URL.Query().Get("after")

	page := listPage{Heading: "Search", Query: q}
	fetches := []func(ctx context.Context) error{}
	if q != "" {
		page.Heading = "Results for “" + q + "”"
		fetches = append(fetches, func(ctx context.Context) error {
			list, err := s.content.ListPosts(ctx, cms.ListParams{First: s.cfg.PostsPerPage, After: after, Search: q})
			if err != nil {
				return err
			}
			page.Posts = list.Posts
			page.NextURL = nextURL("/search", url.Values{"q": {q}}, list.PageInfo)
			return nil
		})
	}

	menu, err := s.withMenu(r.Context(), fetches...)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "search.html", Meta{
		Title:     page.Heading + " | " + s.cfg.Name,
		Canonical: s.absURL("/search"),
		NoIndex:   true,
	}, menu, page)
}

// handleNode serves every other path by resolving it against WordPress.
func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	s.serveNode(w, r, r.URL.EscapedPath(), http.StatusOK, commentForm{})
}

func (s *Server) serveNode(w http.ResponseWriter, r *http.Request, uri string, status int, form commentForm) {
	var node *cms.Node
	menu, err := s.withMenu(r.Context(), func(ctx context.Context) error {
		var err error
		node, err = s.content.ResolveNode(ctx, uri)
		return err
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	switch node.Kind {
	case cms.KindCategory, cms.KindTag, cms.KindAuthor:
		http.Redirect(w, r, "/"+string(node.Kind)+"/"+node.Slug+"/", http.StatusMovedPermanently)
		return
	}

	canonical := node.URI
	if r.Method == http.MethodGet && canonical != "" && !samePath(r.URL.Path, canonical) {
		target := canonical
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusMovedPermanently)
		return
	}

	switch node.Kind {
	case cms.KindPost:
		s.renderArticle(w, r, node.Post, menu, status, form)
	case cms.KindPage:
		s.renderPage(w, r, node.Page, menu)
	default:
		s.renderError(w, r, http.StatusNotFound, "Page not found")
	}
}

// samePath compares a decoded request path with a WordPress URI, which
// percent-encodes non-ASCII slugs in either hex case.
func samePath(requestPath, uri string) bool {
	decoded, err := url.PathUnescape(uri)
	if err != nil {
		decoded = uri
	}
	return cms.NormalizeURI(requestPath) == cms.NormalizeURI(decoded)
}

func (s *Server) renderArticle(w http.ResponseWriter, r *http.Request, post *cms.Post, menu []cms.MenuItem, status int, form commentForm) {
	open := s.cfg.CommentsEnabled && post.CommentsOpen

	var thread []*comments.Thread
	if open || post.CommentCount > 0 {
		flat, err := s.content.Comments(r.Context(), post.DatabaseID)
		if err != nil {
			// The article still renders without its comments
			s.logger.Warn("Failed to load comments", zap.Int("post_id", post.DatabaseID), zap.Error(err))
		} else {
			thread = comments.BuildThread(flat)
		}
	}

	body, slots, err := ads.Inject(post.Content, s.cfg.Ads)
	if err != nil {
		s.logger.Warn("Ad injection failed, serving article without slots", zap.Int("post_id", post.DatabaseID), zap.Error(err))
		body = post.Content
	} else if slots > 0 {
		s.logger.Debug("Injected ad slots", zap.Int("post_id", post.DatabaseID), zap.Int("slots", slots))
	}

	page := articlePage{
		Post:         post,
		Body:         body,
		Thread:       thread,
		CommentsOpen: open,
		Form:         form,
	}
	switch r.URL.Query().Get("comment") {
	case "pending":
		page.Notice = "Thanks! Your comment is awaiting moderation."
	case "published":
		page.Notice = "Thanks! Your comment has been published."
	}

	meta := Meta{
		Title:       cms.PlainText(post.Title) + " | " + s.cfg.Name,
		Description: cms.Excerpt(firstNonEmpty(post.Excerpt, post.Content), descriptionLength),
		Canonical:   s.absURL(post.URI),
		Type:        "article",
		Published:   post.Date,
		Modified:    post.Modified,
	}
	if post.FeaturedImage != nil {
		meta.Image = post.FeaturedImage.URL
	}

	s.render(w, r, status, "article.html", meta, menu, page)
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, page *cms.Page, menu []cms.MenuItem) {
	s.render(w, r, http.StatusOK, "page.html", Meta{
		Title:       cms.PlainText(page.Title) + " | " + s.cfg.Name,
		Description: cms.Excerpt(page.Content, descriptionLength),
		Canonical:   s.absURL(page.URI),
		Modified:    page.Modified,
	}, menu, staticPage{Page: page})
}

// nextURL builds the link to the following page of a cursor connection.
func nextURL(path string, query url.Values, info cms.PageInfo) string {
	if !info.HasNextPage || info.EndCursor == "" {
		return ""
	}
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("after", info.EndCursor)
	return path + "?" + q.Encode()
}

func withAfter(path, after string) string {
	if after == "" {
		return path
	}
	return path + "?" + url.Values{"after": {after}}.Encode()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
