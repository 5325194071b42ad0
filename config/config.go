package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Site      SiteConfig
	Scraper   ScraperConfig
	Engine    EngineConfig
	LLM       LLMConfig
	Output    OutputConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server started by `vgascout serve`.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: true

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is an optional upstream proxy for all browser traffic.
	Proxy string

	ViewportWidth  int // default: 1920
	ViewportHeight int // default: 1080
}

// ScraperConfig controls the page loop and per-page bounds.
type ScraperConfig struct {
	// MaxPages is the number of listing pages visited per run.
	MaxPages int // default: 3

	// NavigationTimeout bounds navigation until the network is quiet.
	NavigationTimeout time.Duration // default: 30s

	// ElementTimeout bounds the wait for the data element.
	ElementTimeout time.Duration // default: 15s

	// PageDelay is the pause between successful pages.
	PageDelay time.Duration // default: 2s

	// BlockedResourceTypes lists resource types to block.
	// default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string

	// DuplicateThreshold is the simhash distance at or below which two
	// consecutive page blobs are reported as duplicates.
	DuplicateThreshold int // default: 3
}

// Fetch modes accepted by EngineConfig.Mode.
const (
	FetchModeBrowser = "browser"
	FetchModeHTTP    = "http"
	FetchModeAuto    = "auto"
)

// EngineConfig selects how listing pages are fetched.
type EngineConfig struct {
	// Mode is "browser", "http" or "auto" (http first, browser fallback).
	Mode string // default: "browser"

	// HTTPTimeout is the deadline for the plain HTTP engine.
	HTTPTimeout time.Duration // default: 15s

	// MemoryTTL is how long the engine that worked for a domain is preferred.
	MemoryTTL time.Duration // default: 1h
}

// LLMConfig controls the extraction service client.
type LLMConfig struct {
	APIKey      string
	Model       string        // default: "gpt-4o-2024-08-06"
	BaseURL     string        // default: "https://api.openai.com/v1"
	Timeout     time.Duration // default: 120s
	Temperature float32       // default: 0
}

// OutputConfig controls where results end up.
type OutputConfig struct {
	// Path is the JSON result file.
	Path string // default: "resultado_placas.json"

	// DBPath enables the SQLite run history when non-empty.
	DBPath string
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 1

	// Burst is the maximum burst size per API key.
	Burst int // default: 3
}

// CacheConfig controls the in-memory run cache of the HTTP service.
type CacheConfig struct {
	MaxEntries int           // default: 100
	TTL        time.Duration // default: 24h
}

// WebhookConfig controls the completion notification.
type WebhookConfig struct {
	URL    string
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is loaded first when present, and
// VGASCOUT_SITE_CONFIG points at an optional YAML site profile.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host: envOr("VGASCOUT_HOST", "0.0.0.0"),
			Port: envIntOr("VGASCOUT_PORT", 8080),
			Mode: envOr("VGASCOUT_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:       envBoolOr("VGASCOUT_HEADLESS", true),
			NoSandbox:      envBoolOr("VGASCOUT_NO_SANDBOX", true),
			BrowserBin:     os.Getenv("VGASCOUT_BROWSER_BIN"),
			Proxy:          os.Getenv("VGASCOUT_PROXY"),
			ViewportWidth:  envIntOr("VGASCOUT_VIEWPORT_WIDTH", 1920),
			ViewportHeight: envIntOr("VGASCOUT_VIEWPORT_HEIGHT", 1080),
		},
		Site: DefaultSite(),
		Scraper: ScraperConfig{
			MaxPages:          envIntOr("VGASCOUT_MAX_PAGES", 3),
			NavigationTimeout: envDurationOr("VGASCOUT_NAV_TIMEOUT", 30*time.Second),
			ElementTimeout:    envDurationOr("VGASCOUT_ELEMENT_TIMEOUT", 15*time.Second),
			PageDelay:         envDurationOr("VGASCOUT_PAGE_DELAY", 2*time.Second),
			BlockedResourceTypes: envSliceOr("VGASCOUT_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
			DuplicateThreshold: envIntOr("VGASCOUT_DUPLICATE_THRESHOLD", 3),
		},
		Engine: EngineConfig{
			Mode:        envOr("VGASCOUT_FETCH_MODE", FetchModeBrowser),
			HTTPTimeout: envDurationOr("VGASCOUT_HTTP_TIMEOUT", 15*time.Second),
			MemoryTTL:   envDurationOr("VGASCOUT_ENGINE_MEMORY_TTL", time.Hour),
		},
		LLM: LLMConfig{
			APIKey:      os.Getenv("OPENAI_API_KEY"),
			Model:       envOr("VGASCOUT_LLM_MODEL", "gpt-4o-2024-08-06"),
			BaseURL:     envOr("VGASCOUT_LLM_BASE_URL", "https://api.openai.com/v1"),
			Timeout:     envDurationOr("VGASCOUT_LLM_TIMEOUT", 120*time.Second),
			Temperature: float32(envFloatOr("VGASCOUT_LLM_TEMPERATURE", 0)),
		},
		Output: OutputConfig{
			Path:   envOr("VGASCOUT_OUTPUT", "resultado_placas.json"),
			DBPath: os.Getenv("VGASCOUT_DB_PATH"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("VGASCOUT_AUTH_ENABLED", true),
			APIKeys: envSliceOr("VGASCOUT_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("VGASCOUT_RATE_RPS", 1.0),
			Burst:             envIntOr("VGASCOUT_RATE_BURST", 3),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("VGASCOUT_CACHE_MAX_ENTRIES", 100),
			TTL:        envDurationOr("VGASCOUT_CACHE_TTL", 24*time.Hour),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("VGASCOUT_WEBHOOK_URL"),
			Secret: os.Getenv("VGASCOUT_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("VGASCOUT_LOG_LEVEL", "info"),
			Format: envOr("VGASCOUT_LOG_FORMAT", "text"),
		},
	}

	if path := os.Getenv("VGASCOUT_SITE_CONFIG"); path != "" {
		profile, err := LoadSiteProfile(path)
		if err != nil {
			return nil, err
		}
		cfg.Site.Merge(profile)
	}
	if cookies := os.Getenv("VGASCOUT_COOKIES"); cookies != "" {
		cfg.Site.Cookies = cookies
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the scraper cannot run with.
func (c *Config) Validate() error {
	if _, err := cascadia.Compile(c.Site.DataSelector); err != nil {
		return fmt.Errorf("config: invalid data selector %q: %w", c.Site.DataSelector, err)
	}
	if !strings.Contains(c.Site.URLTemplate, pagePlaceholder) {
		return fmt.Errorf("config: url template must contain %s", pagePlaceholder)
	}
	if c.Site.PageSize <= 0 {
		return fmt.Errorf("config: page size must be positive, got %d", c.Site.PageSize)
	}
	if c.Scraper.MaxPages < 0 {
		return fmt.Errorf("config: max pages must not be negative, got %d", c.Scraper.MaxPages)
	}
	if c.Scraper.PageDelay < 0 {
		return fmt.Errorf("config: page delay must not be negative")
	}
	switch c.Engine.Mode {
	case FetchModeBrowser, FetchModeHTTP, FetchModeAuto:
	default:
		return fmt.Errorf("config: unknown fetch mode %q", c.Engine.Mode)
	}
	if c.Output.Path == "" {
		return fmt.Errorf("config: output path is empty")
	}
	switch c.Server.Mode {
	case "", "debug", "release", "test":
	default:
		return fmt.Errorf("config: unknown server mode %q (want debug, release or test)", c.Server.Mode)
	}
	return nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
