package site

import (
	"bytes"
	"net/http"

	"github.com/dyluth/gazette/internal/cms"
	"github.com/dyluth/gazette/internal/feed"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	list, err := s.content.ListPosts(r.Context(), cms.ListParams{First: s.cfg.PostsPerPage})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.writeFeed(w, r, feed.Channel{
		Title:       s.cfg.Name,
		Link:        s.absURL("/"),
		SelfURL:     s.absURL("/feed/"),
		Description: s.cfg.Description,
		Language:    s.cfg.Language,
	}, list.Posts)
}

func (s *Server) handleCategoryFeed(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var term *cms.Term
	var list *cms.PostList
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		term, err = s.content.CategoryBySlug(ctx, slug)
		return err
	})
	g.Go(func() error {
		var err error
		list, err = s.content.ListPosts(ctx, cms.ListParams{First: s.cfg.PostsPerPage, CategorySlug: slug})
		return err
	})
	if err := g.Wait(); err != nil {
		s.fail(w, r, err)
		return
	}

	path := "/category/" + slug + "/"
	description := cms.PlainText(term.Description)
	if description == "" {
		description = archiveDescription(archiveCategory, term.Name, s.cfg.Name)
	}

	s.writeFeed(w, r, feed.Channel{
		Title:       term.Name + " | " + s.cfg.Name,
		Link:        s.absURL(path),
		SelfURL:     s.absURL(path + "feed/"),
		Description: description,
		Language:    s.cfg.Language,
	}, list.Posts)
}

func (s *Server) writeFeed(w http.ResponseWriter, r *http.Request, ch feed.Channel, posts []*cms.Post) {
	items, updated := feed.FromPosts(s.cfg.URL, posts)
	ch.Updated = updated

	var buf bytes.Buffer
	if err := feed.WriteRSS(&buf, ch, items); err != nil {
		s.logger.Error("Failed to write feed", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", feed.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=300")
	if r.Method != http.MethodHead {
		w.Write(buf.Bytes())
	}
}
