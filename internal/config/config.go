package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const (
	defaultPort        = "5001"
	defaultLogLevel    = LogLevelInfo
	defaultDownloadDir = "downloads"

	defaultBinPath   = "yt-dlp"
	defaultReferer   = "youtube.com"
	defaultUserAgent = "googlebot"

	defaultLimit         = 10
	defaultWindowSeconds = 15 * 60
	defaultSweepSeconds  = 5 * 60
)

// ExtractorConfig configures the external extraction tool invocation.
type ExtractorConfig struct {
	BinPath   string `yaml:"bin_path"`
	Referer   string `yaml:"referer"`
	UserAgent string `yaml:"user_agent"`
}

// RateLimitConfig configures the per-address request limiter. Durations are
// kept as plain seconds so the yaml stays trivial.
type RateLimitConfig struct {
	Limit         int     `yaml:"limit"`
	WindowSeconds int     `yaml:"window_seconds"`
	SweepSeconds  int     `yaml:"sweep_seconds"`
	GlobalRPS     float64 `yaml:"global_rps"`
	GlobalBurst   int     `yaml:"global_burst"`
}

func (c *RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

func (c *RateLimitConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepSeconds) * time.Second
}

type Config struct {
	Listen      string          `yaml:"listen"`
	LogLevel    string          `yaml:"log_level"`
	RedisURL    string          `yaml:"redis_url"`
	DownloadDir string          `yaml:"download_dir"`
	Extractor   ExtractorConfig `yaml:"extractor"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
}

func (c *Config) SetDefaults() {
	c.Listen = ":" + defaultPort
	c.LogLevel = defaultLogLevel
	c.DownloadDir = defaultDownloadDir
	c.Extractor.BinPath = defaultBinPath
	c.Extractor.Referer = defaultReferer
	c.Extractor.UserAgent = defaultUserAgent
	c.RateLimit.Limit = defaultLimit
	c.RateLimit.WindowSeconds = defaultWindowSeconds
	c.RateLimit.SweepSeconds = defaultSweepSeconds
}

// applyEnv lets the environment override file values. PORT alone is enough
// to run the service; the rest mirror the yaml keys.
func (c *Config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		c.Listen = ":" + port
	}
	if listen := os.Getenv("LISTEN"); listen != "" {
		c.Listen = listen
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.RedisURL = redisURL
	}
	if dir := os.Getenv("DOWNLOAD_DIR"); dir != "" {
		c.DownloadDir = dir
	}
	if bin := os.Getenv("YTDLP_PATH"); bin != "" {
		c.Extractor.BinPath = bin
	}
}

func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is empty")
	}
	if c.DownloadDir == "" {
		return fmt.Errorf("download dir is empty")
	}
	if c.Extractor.BinPath == "" {
		return fmt.Errorf("extractor bin path is empty")
	}
	if c.RateLimit.Limit < 1 {
		return fmt.Errorf("rate limit must be positive, got %d", c.RateLimit.Limit)
	}
	if c.RateLimit.WindowSeconds < 1 {
		return fmt.Errorf("rate window must be positive, got %d", c.RateLimit.WindowSeconds)
	}

	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return fmt.Errorf("unknown log level: %s", c.LogLevel)
	}

	return nil
}

// Load reads configuration with defaults, an optional yaml file and env
// overrides, in that order. A missing config file is fine; the service runs
// on defaults plus PORT.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.SetDefaults()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad is Load for app startup, where a bad config is fatal.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}
