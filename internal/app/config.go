package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (CATALOG_ prefix), flags, or YAML config files.
type Config struct {
	Addr      string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Feed      FeedConfig
	Wishlist  WishlistConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// FeedConfig selects where the product catalog is loaded from and how
// often it is refreshed.
type FeedConfig struct {
	Source          string        `default:"file" usage:"Catalog source: file, http, or postgres"`
	ProductsFile    string        `default:"data/products.json" usage:"Products JSON file (source=file)" flag:"products-file"`
	URL             string        `usage:"Upstream product feed URL (source=http)" flag:"feed-url"`
	FetchTimeout    time.Duration `default:"10s" usage:"Per-fetch timeout for the HTTP source" flag:"fetch-timeout"`
	RefreshInterval time.Duration `default:"5m" usage:"Catalog refresh period; 0 disables periodic refresh" flag:"refresh-interval"`
	DatabaseURL     string        `usage:"PostgreSQL connection URL (source=postgres, CATALOG_FEED_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
}

// WishlistConfig selects the wishlist backend and session lifetime.
type WishlistConfig struct {
	Backend    string        `default:"memory" usage:"Wishlist backend: memory or redis"`
	RedisURL   string        `usage:"Redis connection URL (backend=redis, CATALOG_WISHLIST_REDIS_URL or REDIS_URL)" flag:"redis-url"`
	SessionTTL time.Duration `default:"24h" usage:"Wishlist session lifetime" flag:"session-ttl"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML
// config files, and flags, then validates the selected source/backend
// combination.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "CATALOG",
		Files:     []string{"config.yaml", "/etc/catalog/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	switch cfg.Feed.Source {
	case "file":
		if cfg.Feed.ProductsFile == "" {
			return nil, errors.New("products file is required for the file source")
		}
	case "http":
		if cfg.Feed.URL == "" {
			return nil, errors.New("feed URL is required for the http source: set CATALOG_FEED_URL")
		}
	case "postgres":
		if cfg.Feed.DatabaseURL == "" {
			return nil, errors.New("database URL is required for the postgres source: set CATALOG_FEED_DATABASE_URL or DATABASE_URL")
		}
	default:
		return nil, errors.Errorf("unknown catalog source %q", cfg.Feed.Source)
	}

	switch cfg.Wishlist.Backend {
	case "memory":
	case "redis":
		if cfg.Wishlist.RedisURL == "" {
			return nil, errors.New("redis URL is required for the redis backend: set CATALOG_WISHLIST_REDIS_URL or REDIS_URL")
		}
	default:
		return nil, errors.Errorf("unknown wishlist backend %q", cfg.Wishlist.Backend)
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) that use standard names like DATABASE_URL and
// PORT to the application's CATALOG_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Feed.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.Feed.DatabaseURL = v
		}
	}
	if c.Wishlist.RedisURL == "" {
		if v := os.Getenv("REDIS_URL"); v != "" {
			c.Wishlist.RedisURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
