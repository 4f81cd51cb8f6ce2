// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrReplicateTokenRequired is returned when REPLICATE_API_TOKEN is not set.
	ErrReplicateTokenRequired = errors.New("config: REPLICATE_API_TOKEN is required")
	// ErrInvalidAttempts is returned when an attempt bound is not positive.
	ErrInvalidAttempts = errors.New("config: attempts must be at least 1")
	// ErrNegativeDelay is returned when a delay or timeout is negative.
	ErrNegativeDelay = errors.New("config: delays must not be negative")
	// ErrInvalidLogFormat is returned when LOG_FORMAT is neither text nor json.
	ErrInvalidLogFormat = errors.New("config: LOG_FORMAT must be text or json")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// Replicate settings
	ReplicateAPIToken   string `env:"REPLICATE_API_TOKEN" json:"-"` // Masked in JSON
	ReplicateBaseURL    string `env:"REPLICATE_BASE_URL, default=https://api.replicate.com/v1" json:"replicate_base_url"`
	ReplicateAuthScheme string `env:"REPLICATE_AUTH_SCHEME, default=Bearer" json:"replicate_auth_scheme"`

	// Rate-limit retry of a single API call
	RetryMaxAttempts int           `env:"RETRY_MAX_ATTEMPTS, default=3" json:"retry_max_attempts"`
	RetryBaseBackoff time.Duration `env:"RETRY_BASE_BACKOFF, default=30s" json:"retry_base_backoff"`

	// Keyframe pacing
	FrameAttempts   int           `env:"FRAME_ATTEMPTS, default=3" json:"frame_attempts"`
	FrameRetryDelay time.Duration `env:"FRAME_RETRY_DELAY, default=12s" json:"frame_retry_delay"`
	FrameInterDelay time.Duration `env:"FRAME_INTER_DELAY, default=10s" json:"frame_inter_delay"`

	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT, default=60s" json:"http_timeout"`

	// Storage settings
	TempDir   string `env:"TEMP_DIR, default=/tmp/pfp-animate" json:"temp_dir"`
	OutputDir string `env:"OUTPUT_DIR, default=/tmp/pfp-animate/output" json:"output_dir"`

	// Tooling
	FFmpegPath  string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath string `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`
	PresetsFile string `env:"PRESETS_FILE" json:"presets_file,omitempty"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	S3Prefix           string `env:"S3_PREFIX" json:"s3_prefix,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT" json:"log_format"`               // "json", "text", or empty to detect
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"` // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig
// and validates it. It returns an error if required variables are not set.
func Load() (*Config, error) {
	cfg, err := LoadEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv reads configuration from environment variables without validating
// it. Commands that never reach Replicate use it so no token is needed.
func LoadEnv() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration is present and in range.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ReplicateAPIToken) == "" {
		return ErrReplicateTokenRequired
	}
	if c.RetryMaxAttempts < 1 || c.FrameAttempts < 1 {
		return ErrInvalidAttempts
	}
	if c.RetryBaseBackoff < 0 || c.FrameRetryDelay < 0 || c.FrameInterDelay < 0 || c.HTTPTimeout < 0 {
		return ErrNegativeDelay
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.LogFormat)
	}
	return nil
}

// NewLogger creates a structured logger writing to stdout.
func (c *Config) NewLogger() *slog.Logger {
	return c.NewLoggerTo(os.Stdout)
}

// NewLoggerTo creates a structured logger writing to w.
// When LogFormat is "json", it outputs JSON logs suitable for production;
// "text" outputs human-readable logs. Left empty, w decides: text on a
// terminal, JSON otherwise.
func (c *Config) NewLoggerTo(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(c.LogLevel)}

	var handler slog.Handler
	if c.useJSON(w) {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

func (c *Config) useJSON(w io.Writer) bool {
	switch strings.ToLower(c.LogFormat) {
	case "json":
		return true
	case "text":
		return false
	default:
		return !IsTerminal(w)
	}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, ReplicateBaseURL: %s, RetryMaxAttempts: %d, RetryBaseBackoff: %s, FrameAttempts: %d, FrameRetryDelay: %s, FrameInterDelay: %s, TempDir: %s, OutputDir: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.ReplicateBaseURL,
		c.RetryMaxAttempts,
		c.RetryBaseBackoff,
		c.FrameAttempts,
		c.FrameRetryDelay,
		c.FrameInterDelay,
		c.TempDir,
		c.OutputDir,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
