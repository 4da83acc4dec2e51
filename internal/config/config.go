// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for petalmind.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// .env files, environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.petalmind/config.toml
//   - ~/.petalmind/config.json
//   - Built-in defaults
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/petalmind/internal/chatapi"
	"github.com/jeranaias/petalmind/internal/render"
	"github.com/jeranaias/petalmind/internal/util"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = "1"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete petalmind configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	API     APIConfig     `toml:"api" json:"api"`
	Session SessionConfig `toml:"session" json:"session"`
	UI      UIConfig      `toml:"ui" json:"ui"`
	Log     LogConfig     `toml:"log" json:"log"`
	Metrics MetricsConfig `toml:"metrics" json:"metrics"`
}

// APIConfig configures the streaming chat endpoint.
type APIConfig struct {
	// BaseURL is the server origin, e.g. http://127.0.0.1:3000
	BaseURL string `toml:"base_url" json:"base_url"`

	// Endpoint is the chat path appended to BaseURL
	Endpoint string `toml:"endpoint" json:"endpoint"`

	// StreamFormat is one of text, ndjson, sse
	StreamFormat string `toml:"stream_format" json:"stream_format"`

	// TimeoutSecs bounds connecting and waiting for response headers
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`

	// Token is an optional bearer token
	Token string `toml:"token" json:"token,omitempty"`
}

// Timeout returns TimeoutSecs as a duration.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSecs) * time.Second
}

// SessionConfig configures the identity collaborator.
type SessionConfig struct {
	// AuthURL is the auth service origin; empty uses UserName as a static identity
	AuthURL string `toml:"auth_url" json:"auth_url"`

	// UserName is shown when no auth service is configured
	UserName string `toml:"user_name" json:"user_name"`
}

// UIConfig configures the terminal UI.
type UIConfig struct {
	// MarkdownStyle is one of auto, dark, light, notty
	MarkdownStyle string `toml:"markdown_style" json:"markdown_style"`

	// WordWrap caps the rendered width; 0 follows the terminal
	WordWrap int `toml:"word_wrap" json:"word_wrap"`

	// ShowSidebar shows the thread list
	ShowSidebar bool `toml:"show_sidebar" json:"show_sidebar"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `toml:"level" json:"level"`

	// File is the JSON log path; empty uses ~/.petalmind/petalmind.log
	File string `toml:"file" json:"file"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr serves /metrics when non-empty, e.g. 127.0.0.1:9464
	Addr string `toml:"addr" json:"addr"`
}

// Default returns a configuration with default values.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		API: APIConfig{
			BaseURL:      "http://127.0.0.1:3000",
			Endpoint:     "/api/chat",
			StreamFormat: string(chatapi.FormatText),
			TimeoutSecs:  30,
		},
		Session: SessionConfig{
			UserName: "Guest",
		},
		UI: UIConfig{
			MarkdownStyle: render.StyleAuto,
			WordWrap:      0,
			ShowSidebar:   true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the petalmind configuration directory path.
// PETALMIND_HOME overrides the default ~/.petalmind.
func ConfigDir() (string, error) {
	if dir := os.Getenv("PETALMIND_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".petalmind"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// DefaultLogPath returns ~/.petalmind/petalmind.log.
func DefaultLogPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "petalmind.log"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// .env files and environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	loaded := false
	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
				cfg = Default()
			} else {
				loaded = true
			}
		}
	}

	if !loaded {
		if jsonPath, err := ConfigPathJSON(); err == nil {
			if _, statErr := os.Stat(jsonPath); statErr == nil {
				if err := LoadJSON(cfg, jsonPath); err != nil {
					loadErr = fmt.Errorf("failed to load JSON config: %w", err)
					cfg = Default()
				}
			}
		}
	}

	LoadDotEnv()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Return the config with any load error for informational purposes
	return cfg, loadErr
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		// Default to TOML
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads .env from the working directory and the config
// directory. Variables already set in the environment win.
func LoadDotEnv() {
	paths := []string{".env"}
	if dir, err := ConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, ".env"))
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# petalmind configuration file\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var validLogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if err := validateHTTPURL(c.API.BaseURL); err != nil {
		errs = append(errs, ValidationError{Field: "api.base_url", Message: err.Error()})
	}
	if !strings.HasPrefix(c.API.Endpoint, "/") {
		errs = append(errs, ValidationError{Field: "api.endpoint", Message: "must start with /"})
	}
	if _, err := chatapi.ParseFormat(c.API.StreamFormat); err != nil {
		errs = append(errs, ValidationError{
			Field:   "api.stream_format",
			Message: fmt.Sprintf("must be one of %v", chatapi.Formats),
		})
	}
	if c.API.TimeoutSecs < 1 || c.API.TimeoutSecs > 600 {
		errs = append(errs, ValidationError{Field: "api.timeout_secs", Message: "must be between 1 and 600"})
	}

	if c.Session.AuthURL != "" {
		if err := validateHTTPURL(c.Session.AuthURL); err != nil {
			errs = append(errs, ValidationError{Field: "session.auth_url", Message: err.Error()})
		}
	}

	if !render.ValidStyle(c.UI.MarkdownStyle) {
		errs = append(errs, ValidationError{Field: "ui.markdown_style", Message: "must be one of auto, dark, light, notty"})
	}
	if c.UI.WordWrap != 0 && (c.UI.WordWrap < 20 || c.UI.WordWrap > 400) {
		errs = append(errs, ValidationError{Field: "ui.word_wrap", Message: "must be 0 or between 20 and 400"})
	}

	if !contains(validLogLevels, strings.ToLower(c.Log.Level)) {
		errs = append(errs, ValidationError{Field: "log.level", Message: fmt.Sprintf("must be one of %v", validLogLevels)})
	}

	if c.Metrics.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Addr); err != nil {
			errs = append(errs, ValidationError{Field: "metrics.addr", Message: "must be host:port"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("scheme must be http or https")
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

// SetDefaults fills zero values that have no meaningful zero.
func (c *Config) SetDefaults() {
	defaults := Default()
	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaults.API.BaseURL
	}
	if c.API.Endpoint == "" {
		c.API.Endpoint = defaults.API.Endpoint
	}
	if c.API.StreamFormat == "" {
		c.API.StreamFormat = defaults.API.StreamFormat
	}
	c.API.StreamFormat = strings.ToLower(c.API.StreamFormat)
	if c.API.TimeoutSecs == 0 {
		c.API.TimeoutSecs = defaults.API.TimeoutSecs
	}
	if c.UI.MarkdownStyle == "" {
		c.UI.MarkdownStyle = defaults.UI.MarkdownStyle
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported variables:
//   - PETALMIND_BASE_URL: overrides api.base_url
//   - PETALMIND_ENDPOINT: overrides api.endpoint
//   - PETALMIND_STREAM_FORMAT: overrides api.stream_format
//   - PETALMIND_TIMEOUT_SECS: overrides api.timeout_secs
//   - PETALMIND_TOKEN: overrides api.token
//   - PETALMIND_AUTH_URL: overrides session.auth_url
//   - PETALMIND_USER_NAME: overrides session.user_name
//   - PETALMIND_MARKDOWN_STYLE: overrides ui.markdown_style
//   - PETALMIND_LOG_LEVEL: overrides log.level
//   - PETALMIND_METRICS_ADDR: overrides metrics.addr
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("PETALMIND_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("PETALMIND_ENDPOINT"); v != "" {
		c.API.Endpoint = v
	}
	if v := os.Getenv("PETALMIND_STREAM_FORMAT"); v != "" {
		c.API.StreamFormat = v
	}
	if v := os.Getenv("PETALMIND_TIMEOUT_SECS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			c.API.TimeoutSecs = secs
		}
	}
	if v := os.Getenv("PETALMIND_TOKEN"); v != "" {
		c.API.Token = v
	}
	if v := os.Getenv("PETALMIND_AUTH_URL"); v != "" {
		c.Session.AuthURL = v
	}
	if v := os.Getenv("PETALMIND_USER_NAME"); v != "" {
		c.Session.UserName = v
	}
	if v := os.Getenv("PETALMIND_MARKDOWN_STYLE"); v != "" {
		c.UI.MarkdownStyle = v
	}
	if v := os.Getenv("PETALMIND_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("PETALMIND_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
}

// =============================================================================
// GET HELPER (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "api.base_url").
func (c *Config) Get(key string) (interface{}, error) {
	if key == "" {
		return nil, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			if part == "token" && field.String() != "" {
				return "[REDACTED]", nil
			}
			return field.Interface(), nil
		}

		if field.Kind() != reflect.Struct {
			return nil, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}

	return nil, fmt.Errorf("invalid key: %s", key)
}

// fieldByTag finds the struct field whose toml tag is name.
func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("toml"), ",")[0]
		if tag == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"api.base_url",
		"api.endpoint",
		"api.stream_format",
		"api.timeout_secs",
		"api.token",
		"session.auth_url",
		"session.user_name",
		"ui.markdown_style",
		"ui.word_wrap",
		"ui.show_sidebar",
		"log.level",
		"log.file",
		"metrics.addr",
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a JSON representation with the token redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.API.Token != "" {
		safe.API.Token = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if cfg == nil {
			cfg = Default()
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if cfg == nil {
		return err
	}
	SetGlobal(cfg)
	return err
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
