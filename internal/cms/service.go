package cms

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dyluth/gazette/pkg/wpgraphql"
	"go.uber.org/zap"
)

const (
	// MaxPageSize is the largest "first" WPGraphQL accepts by default.
	MaxPageSize = 100

	minCommentTTL = 5 * time.Second

	commentPageSize = MaxPageSize
	maxCommentPages = 10
)

// Querier executes GraphQL operations. *wpgraphql.Client implements it.
type Querier interface {
	Do(ctx context.Context, req wpgraphql.Request, out any) error
}

// Service exposes typed WordPress content lookups.
type Service struct {
	gql    Querier
	ttl    time.Duration
	logger *zap.Logger
}

// NewService wraps a GraphQL client. ttl is applied to content reads;
// zero disables caching.
func NewService(gql Querier, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{gql: gql, ttl: ttl, logger: logger.Named("cms")}
}

func (s *Service) commentTTL() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	if t := s.ttl / 4; t > minCommentTTL {
		return t
	}
	return minCommentTTL
}

// wire types mirror the WPGraphQL response shape

type wireNodeRef[T any] struct {
	Node *T `json:"node"`
}

type wireNodes[T any] struct {
	Nodes []T `json:"nodes"`
}

type wirePageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type wireAuthor struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	URI         string `json:"uri"`
	Description string `json:"description"`
	Avatar      *struct {
		URL string `json:"url"`
	} `json:"avatar"`
}

type wireImage struct {
	SourceURL string `json:"sourceUrl"`
	AltText   string `json:"altText"`
}

type wirePost struct {
	ID            string                  `json:"id"`
	DatabaseID    int                     `json:"databaseId"`
	Slug          string                  `json:"slug"`
	URI           string                  `json:"uri"`
	Title         string                  `json:"title"`
	DateGmt       gmtTime                 `json:"dateGmt"`
	ModifiedGmt   gmtTime                 `json:"modifiedGmt"`
	Excerpt       string                  `json:"excerpt"`
	Content       string                  `json:"content"`
	CommentCount  *int                    `json:"commentCount"`
	CommentStatus string                  `json:"commentStatus"`
	Author        wireNodeRef[wireAuthor] `json:"author"`
	Categories    wireNodes[Term]         `json:"categories"`
	Tags          wireNodes[Term]         `json:"tags"`
	FeaturedImage wireNodeRef[wireImage]  `json:"featuredImage"`
}

type wirePage struct {
	ID          string  `json:"id"`
	DatabaseID  int     `json:"databaseId"`
	Slug        string  `json:"slug"`
	URI         string  `json:"uri"`
	Title       string  `json:"title"`
	Content     string  `json:"content"`
	ModifiedGmt gmtTime `json:"modifiedGmt"`
}

type wireComment struct {
	DatabaseID       int     `json:"databaseId"`
	ParentDatabaseID int     `json:"parentDatabaseId"`
	DateGmt          gmtTime `json:"dateGmt"`
	Content          string  `json:"content"`
	Author           wireNodeRef[struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}] `json:"author"`
}

func (a *wireAuthor) toAuthor() *Author {
	if a == nil {
		return nil
	}
	out := &Author{Name: a.Name, Slug: a.Slug, URI: a.URI, Description: a.Description}
	if a.Avatar != nil {
		out.AvatarURL = a.Avatar.URL
	}
	return out
}

func (p *wirePost) toPost() *Post {
	post := &Post{
		ID:           p.ID,
		DatabaseID:   p.DatabaseID,
		Slug:         p.Slug,
		URI:          p.URI,
		Title:        p.Title,
		Date:         p.DateGmt.Time,
		Modified:     p.ModifiedGmt.Time,
		Excerpt:      p.Excerpt,
		Content:      p.Content,
		Author:       p.Author.Node.toAuthor(),
		Categories:   p.Categories.Nodes,
		Tags:         p.Tags.Nodes,
		CommentsOpen: p.CommentStatus == "open",
	}
	if p.CommentCount != nil {
		post.CommentCount = *p.CommentCount
	}
	if img := p.FeaturedImage.Node; img != nil && img.SourceURL != "" {
		post.FeaturedImage = &Image{URL: img.SourceURL, AltText: img.AltText}
	}
	return post
}

func (p *wirePage) toPage() *Page {
	return &Page{
		ID:         p.ID,
		DatabaseID: p.DatabaseID,
		Slug:       p.Slug,
		URI:        p.URI,
		Title:      p.Title,
		Content:    p.Content,
		Modified:   p.ModifiedGmt.Time,
	}
}

// ListPosts returns one page of published posts matching params.
func (s *Service) ListPosts(ctx context.Context, params ListParams) (*PostList, error) {
	first := params.First
	if first <= 0 {
		first = 10
	}
	if first > MaxPageSize {
		first = MaxPageSize
	}

	where := map[string]any{"status": "PUBLISH"}
	if params.CategorySlug != "" {
		where["categoryName"] = params.CategorySlug
	}
	if params.TagSlug != "" {
		where["tag"] = params.TagSlug
	}
	if params.AuthorSlug != "" {
		where["authorName"] = params.AuthorSlug
	}
	if params.Search != "" {
		where["search"] = params.Search
	}
	if dq := dateQuery(params.Since, params.Until); dq != nil {
		where["dateQuery"] = dq
	}

	vars := map[string]any{"first": first, "where": where}
	if params.After != "" {
		vars["after"] = params.After
	}

	var data struct {
		Posts *struct {
			PageInfo wirePageInfo `json:"pageInfo"`
			Nodes    []wirePost   `json:"nodes"`
		} `json:"posts"`
	}
	req := wpgraphql.Request{Query: listPostsQuery, Variables: vars, TTL: s.ttl}
	if err := s.gql.Do(ctx, req, &data); err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	list := &PostList{Posts: []*Post{}}
	if data.Posts == nil {
		return list, nil
	}
	for i := range data.Posts.Nodes {
		post := data.Posts.Nodes[i].toPost()
		if !inRange(post.Date, params.Since, params.Until) {
			continue
		}
		list.Posts = append(list.Posts, post)
	}
	list.PageInfo = PageInfo{
		HasNextPage: data.Posts.PageInfo.HasNextPage,
		EndCursor:   data.Posts.PageInfo.EndCursor,
	}
	return list, nil
}

// dateQuery builds an inclusive WPGraphQL dateQuery, or nil when unbounded.
func dateQuery(since, until time.Time) map[string]any {
	if since.IsZero() && until.IsZero() {
		return nil
	}
	dq := map[string]any{"inclusive": true, "column": "DATE_GMT"}
	if !since.IsZero() {
		dq["after"] = dateInput(since)
	}
	if !until.IsZero() {
		dq["before"] = dateInput(until)
	}
	return dq
}

// inRange applies the exact bounds that dateQuery can only express to the day.
func inRange(date, since, until time.Time) bool {
	if !since.IsZero() && date.Before(since) {
		return false
	}
	if !until.IsZero() && date.After(until) {
		return false
	}
	return true
}

func dateInput(t time.Time) map[string]any {
	t = t.UTC()
	return map[string]any{"year": t.Year(), "month": int(t.Month()), "day": t.Day()}
}

// PostBySlug fetches a full post by its slug.
func (s *Service) PostBySlug(ctx context.Context, slug string) (*Post, error) {
	return s.post(ctx, slug, "SLUG")
}

// PostByURI fetches a full post by its permalink path.
func (s *Service) PostByURI(ctx context.Context, uri string) (*Post, error) {
	return s.post(ctx, uri, "URI")
}

// PostByID fetches a full post by its database ID.
func (s *Service) PostByID(ctx context.Context, id int) (*Post, error) {
	return s.post(ctx, strconv.Itoa(id), "DATABASE_ID")
}

func (s *Service) post(ctx context.Context, id, idType string) (*Post, error) {
	var data struct {
		Post *wirePost `json:"post"`
	}
	req := wpgraphql.Request{
		Query:     postQuery,
		Variables: map[string]any{"id": id, "idType": idType},
		TTL:       s.ttl,
	}
	if err := s.gql.Do(ctx, req, &data); err != nil {
		return nil, fmt.Errorf("failed to fetch post %q: %w", id, err)
	}
	if data.Post == nil {
		return nil, &NotFoundError{Kind: "post", Key: id}
	}
	return data.Post.toPost(), nil
}

// PageByURI fetches a static page by its path.
func (s *Service) PageByURI(ctx context.Context, uri string) (*Page, error) {
	var data struct {
		Page *wirePage `json:"page"`
	}
	req := wpgraphql.Request{Query: pageQuery, Variables: map[string]any{"id": uri}, TTL: s.ttl}
	if err := s.gql.Do(ctx, req, &data); err != nil {
		return nil, fmt.Errorf("failed to fetch page %q: %w", uri, err)
	}
	if data.Page == nil {
		return nil, &NotFoundError{Kind: "page", Key: uri}
	}
	return data.Page.toPage(), nil
}

// CategoryBySlug fetches a category archive header.
func (s *Service) CategoryBySlug(ctx context.Context, slug string) (*Term, error) {
	var data struct {
		Category *Term `json:"category"`
	}
	if err := s.term(ctx, categoryQuery, slug, &data); err != nil {
		return nil, fmt.Errorf("failed to fetch category %q: %w", slug, err)
	}
	if data.Category == nil {
		return nil, &NotFoundError{Kind: "category", Key: slug}
	}
	return data.Category, nil
}

// TagBySlug fetches a tag archive header.
func (s *Service) TagBySlug(ctx context.Context, slug string) (*Term, error) {
	var data struct {
		Tag *Term `json:"tag"`
	}
	if err := s.term(ctx, tagQuery, slug, &data); err != nil {
		return nil, fmt.Errorf("failed to fetch tag %q: %w", slug, err)
	}
	if data.Tag == nil {
		return nil, &NotFoundError{Kind: "tag", Key: slug}
	}
	return data.Tag, nil
}

// AuthorBySlug fetches an author archive header.
func (s *Service) AuthorBySlug(ctx context.Context, slug string) (*Author, error) {
	var data struct {
		User *wireAuthor `json:"user"`
	}
	if err := s.term(ctx, authorQuery, slug, &data); err != nil {
		return nil, fmt.Errorf("failed to fetch author %q: %w", slug, err)
	}
	if data.User == nil {
		return nil, &NotFoundError{Kind: "author", Key: slug}
	}
	return data.User.toAuthor(), nil
}

func (s *Service) term(ctx context.Context, query, slug string, out any) error {
	req := wpgraphql.Request{Query: query, Variables: map[string]any{"id": slug}, TTL: s.ttl}
	return s.gql.Do(ctx, req, out)
}

// Comments returns the approved comments of a post, oldest first. Threads
// longer than maxCommentPages pages are truncated with a warning.
func (s *Service) Comments(ctx context.Context, postID int) ([]Comment, error) {
	id := strconv.Itoa(postID)
	comments := []Comment{}
	after := ""
	for page := 0; page < maxCommentPages; page++ {
		var data struct {
			Post *struct {
				Comments struct {
					PageInfo wirePageInfo  `json:"pageInfo"`
					Nodes    []wireComment `json:"nodes"`
				} `json:"comments"`
			} `json:"post"`
		}
		vars := map[string]any{"id": id, "first": commentPageSize}
		if after != "" {
			vars["after"] = after
		}
		req := wpgraphql.Request{Query: commentsQuery, Variables: vars, TTL: s.commentTTL()}
		if err := s.gql.Do(ctx, req, &data); err != nil {
			return nil, fmt.Errorf("failed to fetch comments for post %d: %w", postID, err)
		}
		if data.Post == nil {
			return nil, &NotFoundError{Kind: "post", Key: id}
		}

		for _, c := range data.Post.Comments.Nodes {
			comment := Comment{
				DatabaseID: c.DatabaseID,
				ParentID:   c.ParentDatabaseID,
				Date:       c.DateGmt.Time,
				Content:    c.Content,
			}
			if c.Author.Node != nil {
				comment.AuthorName = c.Author.Node.Name
				comment.AuthorURL = c.Author.Node.URL
			}
			comments = append(comments, comment)
		}

		info := data.Post.Comments.PageInfo
		if !info.HasNextPage || info.EndCursor == "" {
			return comments, nil
		}
		after = info.EndCursor
	}

	s.logger.Warn("Comment thread truncated",
		zap.Int("post_id", postID),
		zap.Int("comments", len(comments)))
	return comments, nil
}

// CreateComment submits a new comment. Never cached.
func (s *Service) CreateComment(ctx context.Context, in CommentInput) (*CommentResult, error) {
	input := map[string]any{
		"commentOn":   in.PostID,
		"author":      in.Author,
		"authorEmail": in.AuthorEmail,
		"content":     in.Content,
	}
	if in.AuthorURL != "" {
		input["authorUrl"] = in.AuthorURL
	}
	if in.ParentID > 0 {
		input["parent"] = strconv.Itoa(in.ParentID)
	}
	if in.ClientMutationID != "" {
		input["clientMutationId"] = in.ClientMutationID
	}

	var data struct {
		CreateComment *struct {
			Success bool `json:"success"`
			Comment *struct {
				DatabaseID int  `json:"databaseId"`
				Approved   bool `json:"approved"`
			} `json:"comment"`
		} `json:"createComment"`
	}
	req := wpgraphql.Request{Query: createCommentMutation, Variables: map[string]any{"input": input}}
	if err := s.gql.Do(ctx, req, &data); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	if data.CreateComment == nil {
		return nil, fmt.Errorf("failed to create comment: empty mutation result")
	}

	result := &CommentResult{Success: data.CreateComment.Success}
	if c := data.CreateComment.Comment; c != nil {
		result.DatabaseID = c.DatabaseID
		result.Approved = c.Approved
	}
	s.logger.Info("Comment submitted",
		zap.Int("post_id", in.PostID),
		zap.Bool("success", result.Success),
		zap.Bool("approved", result.Approved))
	return result, nil
}

// Menu returns the top-level items of a menu location such as "PRIMARY".
func (s *Service) Menu(ctx context.Context, location string) ([]MenuItem, error) {
	var data struct {
		MenuItems *wireNodes[MenuItem] `json:"menuItems"`
	}
	req := wpgraphql.Request{Query: menuQuery, Variables: map[string]any{"location": location}, TTL: s.ttl}
	if err := s.gql.Do(ctx, req, &data); err != nil {
		return nil, fmt.Errorf("failed to fetch menu %s: %w", location, err)
	}
	if data.MenuItems == nil {
		return []MenuItem{}, nil
	}
	return data.MenuItems.Nodes, nil
}

// Settings returns the WordPress general settings.
func (s *Service) Settings(ctx context.Context) (*Settings, error) {
	var data struct {
		GeneralSettings *Settings `json:"generalSettings"`
	}
	req := wpgraphql.Request{Query: settingsQuery, TTL: s.ttl}
	if err := s.gql.Do(ctx, req, &data); err != nil {
		return nil, fmt.Errorf("failed to fetch settings: %w", err)
	}
	if data.GeneralSettings == nil {
		return &Settings{}, nil
	}
	return data.GeneralSettings, nil
}
