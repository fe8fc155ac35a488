// Package config provides the configuration schema, loader, and file watcher
// for the Versecraft annotation engine.
package config

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Slog maps l to the corresponding slog level. Unknown values map to Info.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// AltProviders lists the supported alternative-lyrics backends.
var AltProviders = []any{"gemini", "openai", "ollama"}

// Config is the root configuration structure. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Editor     EditorConfig     `yaml:"editor"`
	Dictionary DictionaryConfig `yaml:"dictionary"`
	AltLyrics  AltLyricsConfig  `yaml:"alt_lyrics"`
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Editor.Validate(); err != nil {
		return err
	}
	return c.AltLyrics.Validate()
}

// ServerConfig holds logging and metrics settings.
type ServerConfig struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is the TCP address of the Prometheus /metrics listener
	// (e.g. ":9100"). Empty disables the listener.
	MetricsAddr string `yaml:"metrics_addr"`
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.LogLevel != "" && !c.LogLevel.IsValid() {
		return fmt.Errorf("server: log_level %q is invalid; valid values: debug, info, warn, error", c.LogLevel)
	}
	return nil
}

// EditorConfig holds the document-editing behaviour settings.
type EditorConfig struct {
	// DebounceMS is the quiet period in milliseconds after the last edit
	// before the recompute notification fires.
	DebounceMS int `yaml:"debounce_ms"`

	// Width is the rendering container width for re-flow.
	Width float64 `yaml:"width"`

	// SeparatorWidth overrides the width charged between adjacent words on a
	// line. Zero means "measure a space".
	SeparatorWidth float64 `yaml:"separator_width"`

	// MinWidth is the minimum usable container width; re-flow requests below
	// it are ignored.
	MinWidth float64 `yaml:"min_width"`
}

// Debounce returns the debounce delay as a duration.
func (c *EditorConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// Validate validates the editor configuration.
func (c *EditorConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DebounceMS, validation.Min(0)),
		validation.Field(&c.Width, validation.Min(0.0)),
		validation.Field(&c.SeparatorWidth, validation.Min(0.0)),
		validation.Field(&c.MinWidth, validation.Min(0.0)),
	)
}

// DictionaryConfig locates the pronouncing dictionary.
type DictionaryConfig struct {
	// Path is a CMU-format dictionary file. Empty selects the built-in
	// dictionary.
	Path string `yaml:"path"`
}

// AltLyricsConfig configures the alternative-lyrics rewrite service.
type AltLyricsConfig struct {
	// Provider selects the LLM backend. Empty disables the service.
	Provider string `yaml:"provider"`

	// Model is the backend model name (e.g. "gemini-2.0-flash").
	Model string `yaml:"model"`

	// APIKey authenticates against the backend. Empty falls back to the
	// backend's environment variable.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the backend's default endpoint.
	BaseURL string `yaml:"base_url"`

	// Style is a free-form rewrite instruction passed with every request.
	Style string `yaml:"style"`

	// BatchSize is the number of words per chunk request. Zero uses the
	// service default.
	BatchSize int `yaml:"batch_size"`

	// Temperature is the sampling temperature.
	Temperature float64 `yaml:"temperature"`
}

// Enabled reports whether the service is configured.
func (c *AltLyricsConfig) Enabled() bool {
	return c.Provider != ""
}

// Validate validates the alternative-lyrics configuration.
func (c *AltLyricsConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.In(AltProviders...)),
		validation.Field(&c.BatchSize, validation.Min(0)),
		validation.Field(&c.Temperature, validation.Min(0.0), validation.Max(2.0)),
	); err != nil {
		return fmt.Errorf("alt_lyrics: %w", err)
	}
	if c.Provider != "" && c.Model == "" {
		return fmt.Errorf("alt_lyrics: provider is %q but model is empty", c.Provider)
	}
	return nil
}
