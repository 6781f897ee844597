// Package config loads radiograb defaults from the environment. Command line
// flags override every value loaded here.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/tanq16/radiograb/internal/utils"
)

// Config holds the application configuration.
type Config struct {
	App      App
	HTTP     HTTP
	Download Download
	Stream   Stream
}

// App holds process-wide settings.
type App struct {
	Debug       bool   `env:"RADIOGRAB_DEBUG"        envDefault:"false"`
	LogFile     string `env:"RADIOGRAB_LOG_FILE"     envDefault:""`
	Workers     int    `env:"RADIOGRAB_WORKERS"      envDefault:"1"`
	MetricsAddr string `env:"RADIOGRAB_METRICS_ADDR" envDefault:""`
}

// HTTP holds client transport settings.
type HTTP struct {
	Timeout          time.Duration `env:"RADIOGRAB_HTTP_TIMEOUT"            envDefault:"10s"`
	KeepAliveTimeout time.Duration `env:"RADIOGRAB_HTTP_KEEP_ALIVE_TIMEOUT" envDefault:"90s"`
	UserAgent        string        `env:"RADIOGRAB_HTTP_USER_AGENT"         envDefault:"radiograb/1.0"`
	Proxy            string        `env:"RADIOGRAB_HTTP_PROXY"              envDefault:""`
	UseHTTP2         bool          `env:"RADIOGRAB_HTTP_HTTP2"              envDefault:"false"`
}

// Download holds per-download tuning.
type Download struct {
	ChunkSize   int           `env:"RADIOGRAB_CHUNK_SIZE"   envDefault:"8192"`
	MaxRetries  int           `env:"RADIOGRAB_MAX_RETRIES"  envDefault:"3"`
	Backoff     time.Duration `env:"RADIOGRAB_BACKOFF"      envDefault:"2s"`
	RateLimit   int64         `env:"RADIOGRAB_RATE_LIMIT"   envDefault:"0"`
	MaxDuration time.Duration `env:"RADIOGRAB_MAX_DURATION" envDefault:"0s"`
	MaxBytes    int64         `env:"RADIOGRAB_MAX_BYTES"    envDefault:"0"`
}

// Stream holds the quality to URL mapping and naming defaults.
type Stream struct {
	HighURL   string `env:"RADIOGRAB_STREAM_HIGH_URL" envDefault:"https://bytefm--di--nacs-ice-01--02--cdn.cast.addradio.de/bytefm/main/high/stream.mp3"` //nolint:lll
	MidURL    string `env:"RADIOGRAB_STREAM_MID_URL"  envDefault:"https://bytefm--di--nacs-ice-01--02--cdn.cast.addradio.de/bytefm/main/mid/stream.mp3"`  //nolint:lll
	Quality   string `env:"RADIOGRAB_STREAM_QUALITY"  envDefault:"high"`
	OutputDir string `env:"RADIOGRAB_OUTPUT_DIR"      envDefault:"."`
}

// New loads configuration from environment variables.
func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the download core cannot work with.
func (c *Config) Validate() error {
	if c.App.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.App.Workers)
	}
	if c.Download.ChunkSize < 1 {
		return fmt.Errorf("chunk size must be at least 1 byte, got %d", c.Download.ChunkSize)
	}
	if c.Download.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", c.Download.MaxRetries)
	}
	if c.Download.Backoff < 0 || c.HTTP.Timeout < 0 || c.Download.MaxDuration < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	if c.Download.RateLimit < 0 || c.Download.MaxBytes < 0 {
		return fmt.Errorf("limits must not be negative")
	}
	if _, _, err := utils.ResolveQuality(c.Stream.Quality, c.Stream.HighURL, c.Stream.MidURL); err != nil {
		return fmt.Errorf("stream quality: %w", err)
	}
	return nil
}

// OutputDirAbs returns the absolute output directory.
func (s Stream) OutputDirAbs() (string, error) {
	dir, err := filepath.Abs(s.OutputDir)
	if err != nil {
		return "", fmt.Errorf("output dir: %w", err)
	}
	return dir, nil
}

// Tuning converts the download section into per-job knobs.
func (c *Config) Tuning() utils.Tuning {
	return utils.Tuning{
		ChunkSize:   c.Download.ChunkSize,
		MaxRetries:  c.Download.MaxRetries,
		Backoff:     c.Download.Backoff,
		Timeout:     c.HTTP.Timeout,
		MaxDuration: c.Download.MaxDuration,
		MaxBytes:    c.Download.MaxBytes,
		RateLimit:   c.Download.RateLimit,
	}
}
