package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = "gazette.yml"

// Defaults applied by Validate when a field is omitted
const (
	DefaultPostsPerPage  = 10
	MaxPostsPerPage      = 100
	DefaultTimeout       = 10 * time.Second
	DefaultMaxRetries    = 2
	DefaultRetryBackoff  = 300 * time.Millisecond
	DefaultCacheTTL      = 60 * time.Second
	DefaultNamespace     = "gazette"
	DefaultAddr          = ":8080"
	DefaultReadTimeout   = 10 * time.Second
	DefaultWriteTimeout  = 30 * time.Second
	DefaultAdEvery       = 4
	DefaultAdMaxSlots    = 3
	DefaultAdMinParas    = 3
	DefaultRateLimit     = 5
	DefaultRateWindow    = 10 * time.Minute
	DefaultCommentLength = 5000
)

// GazetteConfig represents the top-level gazette.yml configuration
type GazetteConfig struct {
	Version   string          `yaml:"version"`
	Site      SiteConfig      `yaml:"site"`
	WordPress WordPressConfig `yaml:"wordpress"`
	Cache     CacheConfig     `yaml:"cache"`
	Server    ServerConfig    `yaml:"server"`
	Ads       AdsConfig       `yaml:"ads"`
	Comments  CommentsConfig  `yaml:"comments"`
}

// SiteConfig holds the public identity of the site
type SiteConfig struct {
	Name         string `yaml:"name"`
	URL          string `yaml:"url"` // Absolute base URL used for canonical links and feeds
	Description  string `yaml:"description,omitempty"`
	Language     string `yaml:"language,omitempty"`
	PostsPerPage int    `yaml:"posts_per_page,omitempty"`
}

// WordPressConfig points at the WPGraphQL endpoint
type WordPressConfig struct {
	GraphQLURL   string        `yaml:"graphql_url"`
	AuthToken    string        `yaml:"auth_token,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	MaxRetries   *int          `yaml:"max_retries,omitempty"` // 0 disables retries, default = 2
	RetryBackoff time.Duration `yaml:"retry_backoff,omitempty"`
}

// CacheConfig configures the Redis response cache. An empty RedisURL disables it.
type CacheConfig struct {
	RedisURL  string        `yaml:"redis_url,omitempty"`
	TTL       time.Duration `yaml:"ttl,omitempty"`
	Namespace string        `yaml:"namespace,omitempty"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Addr             string        `yaml:"addr,omitempty"`
	ReadTimeout      time.Duration `yaml:"read_timeout,omitempty"`
	WriteTimeout     time.Duration `yaml:"write_timeout,omitempty"`
	RevalidateSecret string        `yaml:"revalidate_secret,omitempty"`
}

// AdsConfig controls in-article ad slot placeholders
type AdsConfig struct {
	Enabled       bool `yaml:"enabled"`
	Every         int  `yaml:"every,omitempty"`
	MaxSlots      int  `yaml:"max_slots,omitempty"`
	MinParagraphs int  `yaml:"min_paragraphs,omitempty"`
}

// CommentsConfig controls the comment form
type CommentsConfig struct {
	Enabled    bool          `yaml:"enabled"`
	RateLimit  int           `yaml:"rate_limit,omitempty"` // Submissions per window per client address
	RateWindow time.Duration `yaml:"rate_window,omitempty"`
	MaxLength  int           `yaml:"max_length,omitempty"`
}

// CachingEnabled reports whether a Redis URL is configured.
func (c *GazetteConfig) CachingEnabled() bool {
	return c.Cache.RedisURL != ""
}

// Validate performs strict validation on the configuration and fills in defaults
func (c *GazetteConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if err := c.Site.validate(); err != nil {
		return err
	}
	if err := c.WordPress.validate(); err != nil {
		return err
	}
	if err := c.Cache.validate(); err != nil {
		return err
	}
	if err := c.Server.validate(); err != nil {
		return err
	}
	if err := c.Ads.validate(); err != nil {
		return err
	}
	return c.Comments.validate()
}

func (s *SiteConfig) validate() error {
	if s.Name == "" {
		return fmt.Errorf("site.name is required")
	}
	if err := requireAbsoluteURL("site.url", s.URL); err != nil {
		return err
	}
	s.URL = strings.TrimRight(s.URL, "/")

	if s.Language == "" {
		s.Language = "en-US"
	}

	if s.PostsPerPage == 0 {
		s.PostsPerPage = DefaultPostsPerPage
	}
	if s.PostsPerPage < 1 || s.PostsPerPage > MaxPostsPerPage {
		return fmt.Errorf("site.posts_per_page must be between 1 and %d, got %d", MaxPostsPerPage, s.PostsPerPage)
	}
	return nil
}

func (w *WordPressConfig) validate() error {
	if err := requireAbsoluteURL("wordpress.graphql_url", w.GraphQLURL); err != nil {
		return err
	}

	if w.Timeout == 0 {
		w.Timeout = DefaultTimeout
	}
	if w.Timeout < 0 {
		return fmt.Errorf("wordpress.timeout must be positive, got %s", w.Timeout)
	}

	// Max retries may legitimately be 0, so only a missing value gets the default
	if w.MaxRetries == nil {
		retries := DefaultMaxRetries
		w.MaxRetries = &retries
	}
	if *w.MaxRetries < 0 {
		return fmt.Errorf("wordpress.max_retries must be >= 0, got %d", *w.MaxRetries)
	}

	if w.RetryBackoff == 0 {
		w.RetryBackoff = DefaultRetryBackoff
	}
	if w.RetryBackoff < 0 {
		return fmt.Errorf("wordpress.retry_backoff must be positive, got %s", w.RetryBackoff)
	}
	return nil
}

func (c *CacheConfig) validate() error {
	if c.RedisURL != "" {
		u, err := url.Parse(c.RedisURL)
		if err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
			return fmt.Errorf("cache.redis_url must be a redis:// or rediss:// URL, got %q", c.RedisURL)
		}
	}
	if c.TTL == 0 {
		c.TTL = DefaultCacheTTL
	}
	if c.TTL < 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.TTL)
	}
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if strings.ContainsAny(c.Namespace, ": *") {
		return fmt.Errorf("cache.namespace cannot contain ':', '*' or spaces: %q", c.Namespace)
	}
	return nil
}

func (s *ServerConfig) validate() error {
	if s.Addr == "" {
		s.Addr = DefaultAddr
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.ReadTimeout < 0 || s.WriteTimeout < 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	return nil
}

func (a *AdsConfig) validate() error {
	if a.Every == 0 {
		a.Every = DefaultAdEvery
	}
	if a.MaxSlots == 0 {
		a.MaxSlots = DefaultAdMaxSlots
	}
	if a.MinParagraphs == 0 {
		a.MinParagraphs = DefaultAdMinParas
	}
	if a.Every < 1 || a.MaxSlots < 1 || a.MinParagraphs < 1 {
		return fmt.Errorf("ads.every, ads.max_slots and ads.min_paragraphs must be >= 1")
	}
	return nil
}

func (c *CommentsConfig) validate() error {
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("comments.rate_limit must be >= 1, got %d", c.RateLimit)
	}
	if c.RateWindow == 0 {
		c.RateWindow = DefaultRateWindow
	}
	if c.RateWindow < 0 {
		return fmt.Errorf("comments.rate_window must be positive, got %s", c.RateWindow)
	}
	if c.MaxLength == 0 {
		c.MaxLength = DefaultCommentLength
	}
	if c.MaxLength < 0 {
		return fmt.Errorf("comments.max_length must be >= 1, got %d", c.MaxLength)
	}
	return nil
}

func requireAbsoluteURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", field, raw)
	}
	return nil
}

// ApplyEnv overrides config values from the environment. lookup is usually os.Getenv.
func (c *GazetteConfig) ApplyEnv(lookup func(string) string) {
	overrides := map[string]*string{
		"GAZETTE_GRAPHQL_URL":       &c.WordPress.GraphQLURL,
		"GAZETTE_AUTH_TOKEN":        &c.WordPress.AuthToken,
		"REDIS_URL":                 &c.Cache.RedisURL,
		"GAZETTE_ADDR":              &c.Server.Addr,
		"GAZETTE_REVALIDATE_SECRET": &c.Server.RevalidateSecret,
	}
	for name, field := range overrides {
		if v := lookup(name); v != "" {
			*field = v
		}
	}
}

// Parse decodes, applies environment overrides to, and validates raw YAML
func Parse(data []byte) (*GazetteConfig, error) {
	var config GazetteConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config.ApplyEnv(os.Getenv)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Load reads and validates gazette.yml from the specified path
func Load(path string) (*GazetteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}
