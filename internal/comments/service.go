// Package comments validates, sanitises and rate-limits reader comments
// before handing them to WordPress, and arranges approved comments into
// reply threads for display.
package comments

import (
	"context"
	"fmt"
	"html"
	"net"
	"strings"
	"time"

	"github.com/dyluth/gazette/internal/cms"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// Creator submits comments upstream. *cms.Service implements it.
type Creator interface {
	CreateComment(ctx context.Context, in cms.CommentInput) (*cms.CommentResult, error)
}

// Limiter is a fixed-window rate limiter. *cache.Client implements it.
type Limiter interface {
	Allow(ctx context.Context, bucket string, limit int, window time.Duration) (bool, error)
}

// Config holds the comment policy.
type Config struct {
	MaxLength  int
	RateLimit  int
	RateWindow time.Duration
}

// Result reports what happened to an accepted submission.
type Result struct {
	DatabaseID int
	Pending    bool // Held for moderation
}

// Service accepts comment submissions.
type Service struct {
	creator Creator
	limiter Limiter
	policy  *bluemonday.Policy
	cfg     Config
	logger  *zap.Logger
}

// NewService creates a comment service. limiter may be nil to disable rate limiting.
func NewService(creator Creator, limiter Limiter, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		creator: creator,
		limiter: limiter,
		policy:  bluemonday.StrictPolicy(),
		cfg:     cfg,
		logger:  logger.Named("comments"),
	}
}

// Submit validates and forwards a submission.
// Returns a *ValidationError for bad input and ErrRateLimited when throttled.
func (s *Service) Submit(ctx context.Context, sub Submission) (*Result, error) {
	sub.Normalize()
	sub.Content = s.plainText(sub.Content)
	sub.Author = s.plainText(sub.Author)

	if err := sub.Validate(s.cfg.MaxLength); err != nil {
		return nil, err
	}

	if s.limiter != nil {
		bucket := "comment:" + clientIP(sub.RemoteAddr)
		allowed, err := s.limiter.Allow(ctx, bucket, s.cfg.RateLimit, s.cfg.RateWindow)
		if err != nil {
			// A broken limiter must not block readers from commenting
			s.logger.Warn("Rate limiter unavailable", zap.Error(err))
		} else if !allowed {
			s.logger.Info("Comment rate limited", zap.String("bucket", bucket))
			return nil, ErrRateLimited
		}
	}

	res, err := s.creator.CreateComment(ctx, cms.CommentInput{
		PostID:           sub.PostID,
		ParentID:         sub.ParentID,
		Author:           sub.Author,
		AuthorEmail:      sub.Email,
		AuthorURL:        sub.URL,
		Content:          sub.Content,
		ClientMutationID: uuid.New().String(),
	})
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, fmt.Errorf("wordpress rejected the comment")
	}

	return &Result{DatabaseID: res.DatabaseID, Pending: !res.Approved}, nil
}

// plainText strips all markup and decodes the entities the strict policy
// leaves behind, so lengths are counted on what the reader typed.
// WordPress filters comment HTML again on save, and display goes through
// displayPolicy.
func (s *Service) plainText(in string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(in)))
}

var displayPolicy = bluemonday.UGCPolicy()

// SafeHTML sanitises stored comment HTML for display.
func SafeHTML(content string) string {
	return displayPolicy.Sanitize(content)
}

// clientIP strips the port from a RemoteAddr.
func clientIP(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	if remoteAddr == "" {
		return "unknown"
	}
	return remoteAddr
}
