package cms

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/dyluth/gazette/pkg/wpgraphql"
	"go.uber.org/zap"
)

var typenameKinds = map[string]NodeKind{
	"Post":     KindPost,
	"Page":     KindPage,
	"Category": KindCategory,
	"Tag":      KindTag,
	"User":     KindAuthor,
}

type wireNodeByURI struct {
	Typename   string `json:"__typename"`
	URI        string `json:"uri"`
	DatabaseID int    `json:"databaseId"`
	Slug       string `json:"slug"`
}

// NormalizeURI reduces a request path or absolute URL to a clean path:
// no query or fragment, a leading slash, no duplicate slashes.
// The trailing slash is preserved. Empty input becomes "/".
func NormalizeURI(raw string) string {
	raw = strings.TrimSpace(raw)
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" && u.Host != "" {
		raw = u.EscapedPath()
	}
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}

	trailing := strings.HasSuffix(raw, "/")
	var segs []string
	for _, s := range strings.Split(raw, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	if len(segs) == 0 {
		return "/"
	}

	out := "/" + strings.Join(segs, "/")
	if trailing {
		out += "/"
	}
	return out
}

// Candidates lists the paths tried against nodeByUri, most specific first.
func Candidates(uri string) []string {
	norm := NormalizeURI(uri)
	if norm == "/" {
		return []string{"/"}
	}

	bare := strings.TrimSuffix(norm, "/")
	list := []string{bare + "/", bare}

	segs := strings.Split(strings.Trim(bare, "/"), "/")
	if len(segs) == 1 {
		list = append(list, "/category/"+segs[0]+"/")
	}

	seen := make(map[string]bool, len(list))
	out := list[:0]
	for _, c := range list {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// ResolveNode locates the WordPress node behind a URI. It tries nodeByUri for
// every candidate path, then falls back to post-by-slug, page-by-URI and
// category-by-slug on the last path segment.
//
// A failure on one lookup does not stop the cascade. When nothing matches the
// last failure is returned, or a *NotFoundError if every lookup came back empty.
func (s *Service) ResolveNode(ctx context.Context, uri string) (*Node, error) {
	norm := NormalizeURI(uri)
	var lastErr error

	for _, candidate := range Candidates(norm) {
		ref, err := s.nodeByURI(ctx, candidate)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Debug("Candidate lookup failed", zap.String("candidate", candidate), zap.Error(err))
			lastErr = err
			continue
		}
		if ref == nil {
			continue
		}
		kind, ok := typenameKinds[ref.Typename]
		if !ok {
			s.logger.Debug("Skipping unsupported node type",
				zap.String("candidate", candidate),
				zap.String("typename", ref.Typename))
			continue
		}

		node := &Node{
			Kind:       kind,
			URI:        ref.URI,
			DatabaseID: ref.DatabaseID,
			Slug:       ref.Slug,
			MatchedBy:  "nodeByUri " + candidate,
		}
		if node.URI == "" {
			node.URI = candidate
		}
		if err := s.hydrate(ctx, node); err != nil {
			return nil, err
		}
		return node, nil
	}

	segment := lastSegment(norm)
	if segment != "" {
		fallbacks := []struct {
			name string
			find func() (*Node, error)
		}{
			{"post slug " + segment, func() (*Node, error) {
				post, err := s.PostBySlug(ctx, segment)
				if err != nil {
					return nil, err
				}
				return &Node{Kind: KindPost, URI: post.URI, DatabaseID: post.DatabaseID, Slug: post.Slug, Post: post}, nil
			}},
			{"page uri " + norm, func() (*Node, error) {
				page, err := s.PageByURI(ctx, norm)
				if err != nil {
					return nil, err
				}
				return &Node{Kind: KindPage, URI: page.URI, DatabaseID: page.DatabaseID, Slug: page.Slug, Page: page}, nil
			}},
			{"category slug " + segment, func() (*Node, error) {
				cat, err := s.CategoryBySlug(ctx, segment)
				if err != nil {
					return nil, err
				}
				return &Node{Kind: KindCategory, URI: cat.URI, Slug: cat.Slug}, nil
			}},
		}

		for _, fb := range fallbacks {
			node, err := fb.find()
			if err == nil {
				node.MatchedBy = fb.name
				return node, nil
			}
			if IsNotFoundError(err) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Debug("Fallback lookup failed", zap.String("fallback", fb.name), zap.Error(err))
			lastErr = err
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", norm, lastErr)
	}
	return nil, &NotFoundError{Kind: "node", Key: norm}
}

func (s *Service) nodeByURI(ctx context.Context, uri string) (*wireNodeByURI, error) {
	var data struct {
		NodeByURI *wireNodeByURI `json:"nodeByUri"`
	}
	req := wpgraphql.Request{Query: nodeByURIQuery, Variables: map[string]any{"uri": uri}, TTL: s.ttl}
	if err := s.gql.Do(ctx, req, &data); err != nil {
		return nil, err
	}
	return data.NodeByURI, nil
}

// hydrate loads the full post or page behind a nodeByUri match.
func (s *Service) hydrate(ctx context.Context, node *Node) error {
	switch node.Kind {
	case KindPost:
		post, err := s.PostByURI(ctx, node.URI)
		if err != nil {
			return err
		}
		node.Post = post
	case KindPage:
		page, err := s.PageByURI(ctx, node.URI)
		if err != nil {
			return err
		}
		node.Page = page
	}
	return nil
}

func lastSegment(uri string) string {
	trimmed := strings.Trim(uri, "/")
	if trimmed == "" {
		return ""
	}
	seg := path.Base(trimmed)
	if unescaped, err := url.PathUnescape(seg); err == nil {
		return unescaped
	}
	return seg
}
