package cms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// NodeKind identifies what a resolved URI points at.
type NodeKind string

const (
	KindPost     NodeKind = "post"
	KindPage     NodeKind = "page"
	KindCategory NodeKind = "category"
	KindTag      NodeKind = "tag"
	KindAuthor   NodeKind = "author"
)

// Post is a published article. Content is trusted HTML from WordPress.
type Post struct {
	ID            string    `json:"id"`
	DatabaseID    int       `json:"database_id"`
	Slug          string    `json:"slug"`
	URI           string    `json:"uri"`
	Title         string    `json:"title"`
	Date          time.Time `json:"date"`
	Modified      time.Time `json:"modified"`
	Excerpt       string    `json:"excerpt,omitempty"`
	Content       string    `json:"content,omitempty"`
	Author        *Author   `json:"author,omitempty"`
	Categories    []Term    `json:"categories,omitempty"`
	Tags          []Term    `json:"tags,omitempty"`
	FeaturedImage *Image    `json:"featured_image,omitempty"`
	CommentCount  int       `json:"comment_count"`
	CommentsOpen  bool      `json:"comments_open"`
}

// Page is a static WordPress page.
type Page struct {
	ID         string    `json:"id"`
	DatabaseID int       `json:"database_id"`
	Slug       string    `json:"slug"`
	URI        string    `json:"uri"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Modified   time.Time `json:"modified"`
}

// Term is a category or a tag.
type Term struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	URI         string `json:"uri"`
	Description string `json:"description,omitempty"`
	Count       int    `json:"count,omitempty"`
}

// Author is a WordPress user with published posts.
type Author struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	URI         string `json:"uri"`
	Description string `json:"description,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Image is a media attachment.
type Image struct {
	URL     string `json:"url"`
	AltText string `json:"alt_text,omitempty"`
}

// Comment is one approved comment, as returned flat by WordPress.
type Comment struct {
	DatabaseID int       `json:"database_id"`
	ParentID   int       `json:"parent_id,omitempty"`
	AuthorName string    `json:"author_name"`
	AuthorURL  string    `json:"author_url,omitempty"`
	Date       time.Time `json:"date"`
	Content    string    `json:"content"`
}

// CommentInput carries a new comment to the createComment mutation.
type CommentInput struct {
	PostID           int
	ParentID         int
	Author           string
	AuthorEmail      string
	AuthorURL        string
	Content          string
	ClientMutationID string
}

// CommentResult reports the outcome of createComment.
type CommentResult struct {
	Success    bool
	DatabaseID int
	Approved   bool
}

// MenuItem is a top-level navigation link.
type MenuItem struct {
	Label string `json:"label"`
	URI   string `json:"uri"`
}

// Settings holds the site-wide WordPress settings.
type Settings struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Language    string `json:"language"`
}

// PageInfo is the cursor state of a connection.
type PageInfo struct {
	HasNextPage bool   `json:"has_next_page"`
	EndCursor   string `json:"end_cursor,omitempty"`
}

// PostList is one page of a posts connection.
type PostList struct {
	Posts    []*Post  `json:"posts"`
	PageInfo PageInfo `json:"page_info"`
}

// ListParams filters a posts query. Zero values mean "no filter".
type ListParams struct {
	First        int
	After        string
	CategorySlug string
	TagSlug      string
	AuthorSlug   string
	Search       string
	Since        time.Time
	Until        time.Time
}

// Node is the result of ResolveNode. Exactly one of Post or Page is set for
// KindPost and KindPage; archive kinds only carry Slug and URI.
type Node struct {
	Kind       NodeKind `json:"kind"`
	URI        string   `json:"uri"`
	DatabaseID int      `json:"database_id,omitempty"`
	Slug       string   `json:"slug,omitempty"`
	MatchedBy  string   `json:"matched_by"`
	Post       *Post    `json:"post,omitempty"`
	Page       *Page    `json:"page,omitempty"`
}

// gmtTime decodes WPGraphQL's *Gmt date fields ("2006-01-02T15:04:05", no zone).
type gmtTime struct {
	time.Time
}

const wpDateLayout = "2006-01-02T15:04:05"

func (t *gmtTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseInLocation(wpDateLayout, s, time.UTC)
	if err != nil {
		// Some installs return a full RFC3339 value
		parsed, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("invalid wordpress date %q: %w", s, err)
		}
	}
	t.Time = parsed.UTC()
	return nil
}
