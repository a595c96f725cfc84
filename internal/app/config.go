package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (VERA_ prefix), flags, or YAML config files.
type Config struct {
	Addr      string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Catalog   CatalogConfig
	Images    ImagesConfig
	Session   SessionConfig
	Health    HealthConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// CatalogConfig controls catalogue generation and listing.
type CatalogConfig struct {
	Size     int    `default:"300" usage:"Number of generated products"`
	Seed     uint64 `default:"0"   usage:"Generator seed, 0 picks one from the clock"`
	PageSize int    `default:"48"  usage:"Products shown per listing" flag:"page-size"`
}

// ImagesConfig controls product image resolution.
type ImagesConfig struct {
	BaseURL string        `default:"https://images.unsplash.com" usage:"Photo host base URL" flag:"image-base-url"`
	Verify  bool          `default:"false" usage:"HEAD-check image URLs and fall back on failure" flag:"verify-images"`
	Timeout time.Duration `default:"2s"    usage:"Timeout of one image check" flag:"image-timeout"`
}

// SessionConfig controls shopper session lifetime.
type SessionConfig struct {
	TTL       time.Duration `default:"30m"   usage:"Idle time before a session is evicted" flag:"session-ttl"`
	Sweep     time.Duration `default:"1m"    usage:"Session eviction interval" flag:"session-sweep"`
	MaxActive int           `default:"10000" usage:"Maximum concurrent sessions, 0 for unlimited" flag:"max-sessions"`
}

// HealthConfig controls background probe checks.
type HealthConfig struct {
	Interval time.Duration `default:"10s" usage:"Health check interval" flag:"health-interval"`
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

// LoadConfig loads .env, then configuration from environment variables, YAML
// config files and flags, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "load .env")
	}
	return loadConfig(aconfig.Config{
		EnvPrefix: "VERA",
		Files:     []string{"config.yaml", "/etc/vera/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(acfg aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, acfg).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps the platform-provided PORT (Railway, Render,
// etc.) onto Addr unless Addr was set explicitly.
func (c *Config) applyPlatformDefaults() {
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	switch {
	case c.Catalog.Size < 0:
		return errors.Errorf("catalog size must not be negative, got %d", c.Catalog.Size)
	case c.Catalog.PageSize <= 0:
		return errors.Errorf("page size must be positive, got %d", c.Catalog.PageSize)
	case c.Session.TTL <= 0:
		return errors.New("session TTL must be positive")
	case c.Session.MaxActive < 0:
		return errors.New("max sessions must not be negative")
	case c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0:
		return errors.New("rate limit max and window must be positive")
	}
	return nil
}
