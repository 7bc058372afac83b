// Package config provides configuration loading from a JSON file with
// environment variable overrides.
package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
)

// DefaultPath is the configuration file read when no -config flag is given.
const DefaultPath = "config.json"

// Static errors for configuration loading and validation.
var (
	// ErrNotFound is returned when the configuration file does not exist.
	ErrNotFound = errors.New("config: file not found")
	// ErrEmpty is returned when the configuration file has no content.
	ErrEmpty = errors.New("config: file is empty")
	// ErrInputDirRequired is returned when input_directory is not set.
	ErrInputDirRequired = errors.New("config: input_directory is required")
	// ErrOutputDirRequired is returned when output_directory is not set.
	ErrOutputDirRequired = errors.New("config: output_directory is required")
)

// Config holds all configuration for the application.
type Config struct {
	// Library settings
	InputDirectory  string `json:"input_directory" env:"TRANSCODER_INPUT_DIRECTORY" validate:"required"`
	OutputDirectory string `json:"output_directory" env:"TRANSCODER_OUTPUT_DIRECTORY" validate:"required"`

	// Encoding settings
	VideoCodec     string   `json:"video_codec" env:"TRANSCODER_VIDEO_CODEC" validate:"required"`
	Quality        int      `json:"quality" env:"TRANSCODER_QUALITY" validate:"gte=1,lte=51"`
	AudioBitrate   int      `json:"audio_bitrate" env:"TRANSCODER_AUDIO_BITRATE" validate:"gt=0"`
	FileExtensions []string `json:"file_extensions" env:"TRANSCODER_FILE_EXTENSIONS" validate:"min=1"`

	// Tool settings
	HandBrakePath  string `json:"handbrake_path" env:"TRANSCODER_HANDBRAKE_PATH" validate:"required"`
	FFprobePath    string `json:"ffprobe_path" env:"TRANSCODER_FFPROBE_PATH" validate:"required"`
	TimeoutSeconds int    `json:"timeout_seconds" env:"TRANSCODER_TIMEOUT_SECONDS" validate:"gte=0"`
	SkipExisting   bool   `json:"skip_existing" env:"TRANSCODER_SKIP_EXISTING"`

	// Optional S3 archive settings
	S3Bucket           string `json:"s3_bucket,omitempty" env:"TRANSCODER_S3_BUCKET"`
	S3Region           string `json:"s3_region,omitempty" env:"TRANSCODER_S3_REGION"`
	S3Endpoint         string `json:"s3_endpoint,omitempty" env:"TRANSCODER_S3_ENDPOINT"`
	AWSAccessKeyID     string `json:"-" env:"AWS_ACCESS_KEY_ID"`     // Masked in JSON
	AWSSecretAccessKey string `json:"-" env:"AWS_SECRET_ACCESS_KEY"` // Masked in JSON

	// Logging settings
	LogPath   string `json:"log_path" env:"TRANSCODER_LOG_PATH" validate:"required"`
	LogFormat string `json:"log_format" env:"TRANSCODER_LOG_FORMAT"` // "json" or "text"
	LogLevel  string `json:"log_level" env:"TRANSCODER_LOG_LEVEL"`   // "debug", "info", "warn", "error"
}

// Default returns the configuration applied for keys absent from the file.
func Default() *Config {
	return &Config{
		VideoCodec:     "h264",
		Quality:        22,
		AudioBitrate:   160,
		FileExtensions: []string{".mp4", ".mkv", ".avi", ".mov"},
		HandBrakePath:  "HandBrakeCLI",
		FFprobePath:    "ffprobe",
		SkipExisting:   true,
		LogPath:        filepath.Join("logs", "transcoding.log"),
		LogFormat:      "text",
		LogLevel:       "info",
	}
}

// S3Enabled returns true if S3 archive configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Timeout returns the per-item timeout, or zero when disabled.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Load reads the JSON configuration file at path, applies TRANSCODER_*
// environment overrides on top of it, normalizes the result, and validates
// it. All returned errors are fatal: nothing should be processed with a
// configuration that failed to load.
func Load(ctx context.Context, path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, path)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := envconfig.Process(ctx, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// normalize canonicalizes values before validation: codec identifiers are
// compared lowercase, extensions always carry a leading dot, and leading
// tildes in paths expand to the user's home directory.
func (c *Config) normalize() {
	c.VideoCodec = strings.ToLower(strings.TrimSpace(c.VideoCodec))
	c.InputDirectory = expandUser(c.InputDirectory)
	c.OutputDirectory = expandUser(c.OutputDirectory)
	c.LogPath = expandUser(c.LogPath)

	exts := c.FileExtensions[:0]
	for _, ext := range c.FileExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	c.FileExtensions = exts
}

// Validate checks that all required configuration is present and within
// bounds.
func (c *Config) Validate() error {
	if c.InputDirectory == "" {
		return ErrInputDirRequired
	}
	if c.OutputDirectory == "" {
		return ErrOutputDirRequired
	}
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{InputDirectory: %s, OutputDirectory: %s, VideoCodec: %s, Quality: %d, AudioBitrate: %d, FileExtensions: %v, S3Bucket: %s, S3Region: %s, LogPath: %s, LogFormat: %s, LogLevel: %s}",
		c.InputDirectory,
		c.OutputDirectory,
		c.VideoCodec,
		c.Quality,
		c.AudioBitrate,
		c.FileExtensions,
		c.S3Bucket,
		c.S3Region,
		c.LogPath,
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

// expandUser replaces a leading "~" with the current user's home directory.
func expandUser(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
