package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dyluth/gazette/internal/cms"
	"github.com/dyluth/gazette/internal/listing"
	"github.com/dyluth/gazette/internal/printer"
	"github.com/spf13/cobra"
)

var resolveJSON bool

var resolveCmd = &cobra.Command{
	Use:   "resolve <URI>",
	Short: "Show which WordPress node a URI resolves to",
	Long: `Run the same URI lookup the site uses and print the matched node.

The lookup tries nodeByUri for the path with and without a trailing slash
(and as a category path for single-segment URIs), then falls back to
post-by-slug, page-by-URI and category-by-slug.

Examples:
  # Resolve a permalink
  gazette resolve /2024/01/hello-world/

  # Full URLs are accepted; print the node as JSON
  gazette resolve https://news.example.com/about --json`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "Print the resolved node as JSON")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	content, cleanup, err := newContentService(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	uri := cms.NormalizeURI(args[0])
	node, err := content.ResolveNode(ctx, uri)
	if err != nil {
		if cms.IsNotFoundError(err) {
			return printer.ErrorWithContext(
				fmt.Sprintf("nothing found at %s", uri),
				"No post, page, category, tag or author matches this URI.",
				map[string]string{"Tried": strings.Join(cms.Candidates(uri), ", ")},
				[]string{"List recent posts and their URIs:\n  gazette posts"},
			)
		}
		return upstreamError(cfg, err)
	}

	if resolveJSON {
		return listing.FormatNode(cmd.OutOrStdout(), node)
	}

	printer.Success("%s resolved to a %s\n", uri, node.Kind)
	printer.Field("URI", node.URI)
	printer.Field("Slug", node.Slug)
	if node.DatabaseID > 0 {
		printer.Field("ID", strconv.Itoa(node.DatabaseID))
	}
	printer.Field("Matched by", node.MatchedBy)

	switch {
	case node.Post != nil:
		printer.Field("Title", cms.PlainText(node.Post.Title))
		printer.Field("Published", node.Post.Date.UTC().Format("2006-01-02 15:04"))
		if node.Post.Author != nil {
			printer.Field("Author", node.Post.Author.Name)
		}
		printer.Field("Comments", fmt.Sprintf("%d (%s)", node.Post.CommentCount, openClosed(node.Post.CommentsOpen)))
	case node.Page != nil:
		printer.Field("Title", cms.PlainText(node.Page.Title))
	}
	return nil
}

func openClosed(open bool) string {
	if open {
		return "open"
	}
	return "closed"
}
