package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/dyluth/gazette/internal/cms"
	"github.com/dyluth/gazette/internal/listing"
	"github.com/dyluth/gazette/internal/printer"
	"github.com/dyluth/gazette/internal/timespec"
	"github.com/spf13/cobra"
)

var (
	postsOutputFormat string
	postsSince        string
	postsUntil        string
	postsCategory     string
	postsTag          string
	postsAuthor       string
	postsSearch       string
	postsLimit        int
)

var postsCmd = &cobra.Command{
	Use:   "posts",
	Short: "List published posts with filtering",
	Long: `List published posts from WordPress, newest first.

Output Formats:
  default - Human-readable table with ID, Age, Author, Category and Title
  jsonl   - Line-delimited JSON, one post per line (bodies omitted)

Time Filters:
  --since  - Show posts published after this time
  --until  - Show posts published before this time
  Both accept a duration counted back from now ("72h"), a date
  ("2025-10-29") or RFC3339 ("2025-10-29T13:00:00Z").

Examples:
  # Latest posts
  gazette posts

  # Last three days in one category
  gazette posts --category=politics --since=72h

  # Search as JSONL for piping to jq
  gazette posts --search=election --output=jsonl | jq -r .uri`,
	Args: cobra.NoArgs,
	RunE: runPosts,
}

func init() {
	postsCmd.Flags().StringVarP(&postsOutputFormat, "output", "o", "default", "Output format: default or jsonl")

	// Time-based filters
	postsCmd.Flags().StringVar(&postsSince, "since", "", "Show posts after time (duration, date or RFC3339)")
	postsCmd.Flags().StringVar(&postsUntil, "until", "", "Show posts before time (duration, date or RFC3339)")

	// Content-based filters
	postsCmd.Flags().StringVar(&postsCategory, "category", "", "Filter by category slug")
	postsCmd.Flags().StringVar(&postsTag, "tag", "", "Filter by tag slug")
	postsCmd.Flags().StringVar(&postsAuthor, "author", "", "Filter by author slug")
	postsCmd.Flags().StringVar(&postsSearch, "search", "", "Full-text search")
	postsCmd.Flags().IntVar(&postsLimit, "limit", 20, fmt.Sprintf("Maximum posts to list (1-%d)", cms.MaxPageSize))

	rootCmd.AddCommand(postsCmd)
}

func runPosts(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	format, err := listing.ParseOutputFormat(postsOutputFormat)
	if err != nil {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", postsOutputFormat),
			[]string{"Valid formats: default, jsonl"},
		)
	}

	if postsLimit < 1 || postsLimit > cms.MaxPageSize {
		return printer.Error(
			"invalid limit",
			fmt.Sprintf("--limit must be between 1 and %d, got %d", cms.MaxPageSize, postsLimit),
			nil,
		)
	}

	now := time.Now()
	since, until, err := timespec.ParseRange(postsSince, postsUntil, now)
	if err != nil {
		return printer.Error(
			"invalid time filter",
			err.Error(),
			[]string{"Use a duration like '72h', a date like '2025-10-29' or RFC3339 like '2025-10-29T13:00:00Z'"},
		)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	content, cleanup, err := newContentService(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	list, err := content.ListPosts(ctx, cms.ListParams{
		First:        postsLimit,
		CategorySlug: postsCategory,
		TagSlug:      postsTag,
		AuthorSlug:   postsAuthor,
		Search:       postsSearch,
		Since:        since,
		Until:        until,
	})
	if err != nil {
		return upstreamError(cfg, err)
	}

	out := cmd.OutOrStdout()
	if format == listing.OutputFormatJSONL {
		return listing.FormatJSONL(out, list.Posts)
	}
	listing.FormatTable(out, list.Posts, cfg.Site.URL, now)
	if list.PageInfo.HasNextPage {
		printer.Info("More posts are available; raise --limit or narrow the filters\n")
	}
	return nil
}
