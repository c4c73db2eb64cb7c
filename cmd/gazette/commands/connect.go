package commands

import (
	"context"
	"fmt"

	"github.com/dyluth/gazette/internal/cache"
	"github.com/dyluth/gazette/internal/cms"
	"github.com/dyluth/gazette/internal/config"
	"github.com/dyluth/gazette/internal/printer"
	"github.com/dyluth/gazette/pkg/wpgraphql"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// loadConfig reads --config and reports failures the way every command does
func loadConfig() (*config.GazetteConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, printer.ErrorWithContext(
			"invalid configuration",
			err.Error(),
			map[string]string{"Config": configPath},
			[]string{
				"Create a default configuration:\n  gazette init",
				"Point at another file:\n  gazette --config path/to/gazette.yml",
			},
		)
	}
	return cfg, nil
}

// connectCache opens and pings the Redis cache. It returns nil, nil when
// caching is not configured.
func connectCache(ctx context.Context, cfg *config.GazetteConfig) (*cache.Client, error) {
	if !cfg.CachingEnabled() {
		return nil, nil
	}

	client, err := cache.NewClientFromURL(cfg.Cache.RedisURL, cfg.Cache.Namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis: %v", err),
			map[string]string{"Redis": cfg.Cache.RedisURL},
			[]string{
				"Check that Redis is running and reachable",
				"Disable caching by removing cache.redis_url from gazette.yml",
			},
		)
	}
	return client, nil
}

// requireCache is connectCache for commands that cannot work without Redis
func requireCache(ctx context.Context, cfg *config.GazetteConfig) (*cache.Client, error) {
	if !cfg.CachingEnabled() {
		return nil, printer.Error(
			"caching is disabled",
			"This command needs the Redis response cache.",
			[]string{"Set cache.redis_url in gazette.yml or the REDIS_URL environment variable"},
		)
	}
	return connectCache(ctx, cfg)
}

// newGraphQLClient builds the WPGraphQL client. rc may be nil.
func newGraphQLClient(cfg *config.GazetteConfig, rc *cache.Client, logger *zap.Logger) (*wpgraphql.Client, error) {
	opts := wpgraphql.Options{
		Endpoint:     cfg.WordPress.GraphQLURL,
		AuthToken:    cfg.WordPress.AuthToken,
		Timeout:      cfg.WordPress.Timeout,
		MaxRetries:   *cfg.WordPress.MaxRetries,
		RetryBackoff: cfg.WordPress.RetryBackoff,
		UserAgent:    "gazette/" + version,
		Logger:       logger,
	}
	if rc != nil {
		opts.Cache = rc
	}

	client, err := wpgraphql.New(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create WordPress client: %w", err)
	}
	return client, nil
}

// newContentService wires cache, client and cms for read-only commands
func newContentService(ctx context.Context, cfg *config.GazetteConfig) (*cms.Service, func(), error) {
	rc, err := connectCache(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if rc != nil {
			rc.Close()
		}
	}

	gql, err := newGraphQLClient(cfg, rc, zap.NewNop())
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return cms.NewService(gql, cfg.Cache.TTL, nil), cleanup, nil
}

// newLogger builds the production JSON logger. debug lowers the level.
func newLogger(debug bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if debug {
		zcfg.Level.SetLevel(zapcore.DebugLevel)
	}
	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// upstreamError reports a failed WordPress call
func upstreamError(cfg *config.GazetteConfig, err error) error {
	return printer.ErrorWithContext(
		"WordPress request failed",
		err.Error(),
		map[string]string{"Endpoint": cfg.WordPress.GraphQLURL},
		[]string{"Check that WordPress is running and the WPGraphQL plugin is active"},
	)
}
