package site

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dyluth/gazette/internal/cms"
	"github.com/dyluth/gazette/internal/comments"
	"go.uber.org/zap"
)

// handleComment accepts the article comment form. Success redirects back to
// the article with 303; bad input and throttling re-render the article.
func (s *Server) handleComment(w http.ResponseWriter, r *http.Request) {
	if s.comments == nil || !s.cfg.CommentsEnabled {
		s.renderError(w, r, http.StatusNotFound, "Comments are closed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "The comment form could not be read")
		return
	}

	returnURI := localPath(r.PostFormValue("return_uri"))
	if returnURI == "" {
		s.renderError(w, r, http.StatusBadRequest, "The comment form is missing its article")
		return
	}

	postID, _ := strconv.Atoi(r.PostFormValue("post_id"))
	parentID, _ := strconv.Atoi(r.PostFormValue("parent_id"))
	sub := comments.Submission{
		PostID:     postID,
		ParentID:   parentID,
		Author:     r.PostFormValue("author"),
		Email:      r.PostFormValue("email"),
		URL:        r.PostFormValue("url"),
		Content:    r.PostFormValue("content"),
		ReturnURI:  returnURI,
		RemoteAddr: r.RemoteAddr,
	}

	res, err := s.comments.Submit(r.Context(), sub)
	if err == nil {
		state := "published"
		if res.Pending {
			state = "pending"
		}
		http.Redirect(w, r, returnURI+"?comment="+state+"#comments", http.StatusSeeOther)
		return
	}

	form := commentForm{
		Author:   sub.Author,
		Email:    sub.Email,
		URL:      sub.URL,
		Content:  sub.Content,
		ParentID: parentID,
	}

	var ve *comments.ValidationError
	switch {
	case errors.As(err, &ve):
		form.Field, form.Error = ve.Field, ve.Error()
		s.serveNode(w, r, returnURI, http.StatusBadRequest, form)
	case errors.Is(err, comments.ErrRateLimited):
		form.Error = err.Error()
		w.Header().Set("Retry-After", "60")
		s.serveNode(w, r, returnURI, http.StatusTooManyRequests, form)
	default:
		s.logger.Error("Comment submission failed", zap.Int("post_id", postID), zap.Error(err))
		s.renderError(w, r, http.StatusBadGateway, "Your comment could not be posted. Please try again later.")
	}
}

// localPath returns the normalised path of a same-site URI, or "" for
// anything that would redirect off-site.
func localPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, `\`) {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return ""
	}
	return cms.NormalizeURI(u.EscapedPath())
}
