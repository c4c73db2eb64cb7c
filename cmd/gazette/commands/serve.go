package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/gazette/internal/ads"
	"github.com/dyluth/gazette/internal/cache"
	"github.com/dyluth/gazette/internal/cms"
	"github.com/dyluth/gazette/internal/comments"
	"github.com/dyluth/gazette/internal/config"
	"github.com/dyluth/gazette/internal/site"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

var serveDebug bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the news site",
	Long: `Serve the news site over HTTP.

Pages are rendered from WordPress content fetched over WPGraphQL. When
cache.redis_url is set, upstream responses are cached in Redis and comment
submissions are rate limited per client address.

The server shuts down gracefully on SIGINT or SIGTERM, waiting up to 5s for
in-flight requests.

Examples:
  # Serve using ./gazette.yml
  gazette serve

  # Serve with debug logging and another config file
  gazette serve --config /etc/gazette.yml --debug`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(serveDebug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rc, err := connectCache(ctx, cfg)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
	} else {
		logger.Warn("Response cache disabled, every request goes to WordPress")
	}

	handler, err := buildSite(cfg, rc, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("Gazette listening",
		zap.String("addr", cfg.Server.Addr),
		zap.String("site", cfg.Site.URL),
		zap.String("wordpress", cfg.WordPress.GraphQLURL),
		zap.Bool("cache", rc != nil),
		zap.String("version", version))

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("Gazette stopped")
	return nil
}

// buildSite wires the WordPress client, content and comment services into
// the site handler. rc may be nil.
func buildSite(cfg *config.GazetteConfig, rc *cache.Client, logger *zap.Logger) (http.Handler, error) {
	gql, err := newGraphQLClient(cfg, rc, logger)
	if err != nil {
		return nil, err
	}
	content := cms.NewService(gql, cfg.Cache.TTL, logger)

	deps := site.Deps{
		Content:   content,
		WordPress: gql,
		Logger:    logger,
	}

	commentCfg := comments.Config{
		MaxLength:  cfg.Comments.MaxLength,
		RateLimit:  cfg.Comments.RateLimit,
		RateWindow: cfg.Comments.RateWindow,
	}
	if rc != nil {
		deps.Cache = rc
		deps.Comments = comments.NewService(content, rc, commentCfg, logger)
	} else {
		deps.Comments = comments.NewService(content, nil, commentCfg, logger)
	}

	s, err := site.New(site.Config{
		Name:             cfg.Site.Name,
		URL:              cfg.Site.URL,
		Description:      cfg.Site.Description,
		Language:         cfg.Site.Language,
		PostsPerPage:     cfg.Site.PostsPerPage,
		RevalidateSecret: cfg.Server.RevalidateSecret,
		CommentsEnabled:  cfg.Comments.Enabled,
		Ads: ads.Options{
			Enabled:       cfg.Ads.Enabled,
			Every:         cfg.Ads.Every,
			MaxSlots:      cfg.Ads.MaxSlots,
			MinParagraphs: cfg.Ads.MinParagraphs,
		},
	}, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to build site: %w", err)
	}
	return s, nil
}
