package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	Env      string `mapstructure:"ACF_ENV"`
	HTTPAddr string `mapstructure:"ACF_HTTP_ADDR"`

	Upstream UpstreamConfig `mapstructure:",squash"`
	Cache    CacheConfig    `mapstructure:",squash"`
	Feed     FeedConfig     `mapstructure:",squash"`
	Security SecurityConfig `mapstructure:",squash"`
}

// UpstreamConfig describes the remote community REST API the gateway fronts.
type UpstreamConfig struct {
	BaseURL   string        `mapstructure:"ACF_API_BASE_URL"`
	Timeout   time.Duration `mapstructure:"ACF_API_TIMEOUT"`
	UserAgent string        `mapstructure:"ACF_API_USER_AGENT"`
}

type CacheConfig struct {
	RedisAddr string `mapstructure:"ACF_REDIS_ADDR"`
}

type FeedConfig struct {
	PageSize     int `mapstructure:"ACF_FEED_PAGE_SIZE"`
	CommentLimit int `mapstructure:"ACF_COMMENT_PAGE_SIZE"`
	// HydrateLimit caps the number of secondary like-count fetches a single
	// feed read may trigger when the list payload omits counts.
	HydrateLimit int `mapstructure:"ACF_HYDRATE_LIMIT"`
}

type SecurityConfig struct {
	RateLimitRPM       int      `mapstructure:"ACF_RATE_LIMIT_RPM"`
	CORSAllowedOrigins []string `mapstructure:"ACF_CORS_ALLOWED_ORIGINS"`
}

func loadDotEnvFiles() {
	candidates := []string{
		".env",
		filepath.Join("..", ".env"),
	}

	seen := make(map[string]struct{})
	for _, path := range candidates {
		abs := path
		if resolved, err := filepath.Abs(path); err == nil {
			abs = resolved
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}

		if _, err := os.Stat(path); err == nil {
			_ = gotenv.Load(path) // env vars already set take precedence
		}
	}
}

func Load() (*Config, error) {
	loadDotEnvFiles()

	viper.SetConfigType("env")
	viper.AutomaticEnv()

	viper.SetDefault("ACF_ENV", "dev")
	viper.SetDefault("ACF_HTTP_ADDR", ":8080")
	viper.SetDefault("ACF_API_BASE_URL", "https://api.congdongacf.com/api")
	viper.SetDefault("ACF_API_TIMEOUT", "10s")
	viper.SetDefault("ACF_API_USER_AGENT", "congdongacf-gateway/1.0")
	viper.SetDefault("ACF_REDIS_ADDR", "127.0.0.1:6379")
	viper.SetDefault("ACF_FEED_PAGE_SIZE", 10)
	viper.SetDefault("ACF_COMMENT_PAGE_SIZE", 10)
	viper.SetDefault("ACF_HYDRATE_LIMIT", 20)
	viper.SetDefault("ACF_RATE_LIMIT_RPM", 120)
	viper.SetDefault("ACF_CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:19006")

	if origins := viper.GetString("ACF_CORS_ALLOWED_ORIGINS"); origins != "" {
		viper.Set("ACF_CORS_ALLOWED_ORIGINS", strings.Split(origins, ","))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("ACF_API_BASE_URL is required")
	}
	u, err := url.Parse(c.Upstream.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("ACF_API_BASE_URL %q is not an absolute URL", c.Upstream.BaseURL)
	}
	switch c.Env {
	case "dev", "prod":
	default:
		return fmt.Errorf("invalid ACF_ENV %q (must be dev or prod)", c.Env)
	}
	if c.Feed.PageSize <= 0 {
		return fmt.Errorf("ACF_FEED_PAGE_SIZE must be positive")
	}
	if c.Feed.CommentLimit <= 0 {
		return fmt.Errorf("ACF_COMMENT_PAGE_SIZE must be positive")
	}
	if c.Feed.HydrateLimit < 0 {
		return fmt.Errorf("ACF_HYDRATE_LIMIT must not be negative")
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

func (c *Config) IsProd() bool {
	return c.Env == "prod"
}
