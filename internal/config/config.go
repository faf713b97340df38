// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/jeranaias/rkai/internal/storage"
	"github.com/jeranaias/rkai/internal/util"
)

// CurrentVersion is written to new config files.
const CurrentVersion = "1"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete rkai configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Auth    AuthConfig    `toml:"auth" json:"auth"`
	Gemini  GeminiConfig  `toml:"gemini" json:"gemini"`
	Storage StorageConfig `toml:"storage" json:"storage"`
	Chat    ChatConfig    `toml:"chat" json:"chat"`
	Export  ExportConfig  `toml:"export" json:"export"`
	Log     LogConfig     `toml:"log" json:"log"`
	UI      UIConfig      `toml:"ui" json:"ui"`
}

// AuthConfig contains the passphrase gate settings.
type AuthConfig struct {
	// Secrets are the accepted passphrases. The first one is shown as the
	// hint after a failed attempt.
	Secrets []string `toml:"secrets" json:"secrets"`
}

// GeminiConfig contains Gemini API settings.
type GeminiConfig struct {
	// APIKey is the Gemini API key. Prefer the GEMINI_API_KEY variable.
	APIKey string `toml:"api_key" json:"api_key"`
	// BaseURL overrides the API endpoint (proxies, testing)
	BaseURL string `toml:"base_url" json:"base_url"`
	// TextModel is used for text replies
	TextModel string `toml:"text_model" json:"text_model"`
	// ImageModel is used for image generation
	ImageModel string `toml:"image_model" json:"image_model"`
	// SystemInstruction overrides the assistant persona
	SystemInstruction string `toml:"system_instruction" json:"system_instruction"`
	// AspectRatio for generated images
	AspectRatio string `toml:"aspect_ratio" json:"aspect_ratio"`
	// TimeoutSecs bounds each request (0 = no timeout)
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// RateLimitPerMinute caps requests per minute (0 = unlimited)
	RateLimitPerMinute float64 `toml:"rate_limit_per_minute" json:"rate_limit_per_minute"`
	// RateBurst is the number of requests allowed back to back
	RateBurst int `toml:"rate_burst" json:"rate_burst"`
}

// Timeout returns the request timeout as a duration.
func (g GeminiConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSecs) * time.Second
}

// StorageConfig selects where the transcript is kept.
type StorageConfig struct {
	// Backend is "file", "bolt", "sqlite" or "memory"
	Backend string `toml:"backend" json:"backend"`
	// Path to the file or database. Empty means a default under ~/.rkai.
	Path string `toml:"path" json:"path"`
	// Key is the slot name inside bolt and sqlite databases
	Key string `toml:"key" json:"key"`
	// MalformedPolicy is "drop" or "default-timestamp"
	MalformedPolicy string `toml:"malformed_policy" json:"malformed_policy"`
}

// ResolvedPath returns Path, or the backend's default location when empty.
func (s StorageConfig) ResolvedPath() string {
	if s.Path != "" {
		return util.ExpandHome(s.Path)
	}
	dir, err := ConfigDir()
	if err != nil {
		dir = "."
	}
	switch s.Backend {
	case "bolt", "bbolt":
		return filepath.Join(dir, "rkai.bolt")
	case "sqlite", "sqlite3":
		return filepath.Join(dir, "rkai.db")
	default:
		return filepath.Join(dir, "history.json")
	}
}

// ChatConfig contains conversation front end settings.
type ChatConfig struct {
	// HistoryFile keeps REPL line history (empty disables it)
	HistoryFile string `toml:"history_file" json:"history_file"`
	// ShowWelcome shows starter prompts on an empty transcript
	ShowWelcome bool `toml:"show_welcome" json:"show_welcome"`
	// ConfirmClear asks before clearing the transcript
	ConfirmClear bool `toml:"confirm_clear" json:"confirm_clear"`
}

// ExportConfig contains export defaults.
type ExportConfig struct {
	// OutputDir for file exports
	OutputDir string `toml:"output_dir" json:"output_dir"`
	// Format is "txt" or "md"
	Format string `toml:"format" json:"format"`
	// IncludeMetadata adds a front matter header to Markdown exports
	IncludeMetadata bool `toml:"include_metadata" json:"include_metadata"`
	// ImageDir is where :save-image writes by default
	ImageDir string `toml:"image_dir" json:"image_dir"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is a zerolog level name: trace, debug, info, warn, error, disabled
	Level string `toml:"level" json:"level"`
	// File is the log file path. Empty means ~/.rkai/rkai.log.
	File string `toml:"file" json:"file"`
	// Console writes human-readable logs to stderr instead of the file
	Console bool `toml:"console" json:"console"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// RenderMarkdown renders model replies with glamour
	RenderMarkdown bool `toml:"render_markdown" json:"render_markdown"`
	// CompactMode uses a more compact UI layout
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Auth: AuthConfig{
			Secrets: []string{"rkai", "1234"},
		},
		Gemini: GeminiConfig{
			TextModel:   "gemini-3.1-pro-preview",
			ImageModel:  "gemini-2.5-flash-image",
			AspectRatio: "1:1",
			TimeoutSecs: 120,
			RateBurst:   1,
		},
		Storage: StorageConfig{
			Backend:         "file",
			Key:             storage.SlotKey,
			MalformedPolicy: "drop",
		},
		Chat: ChatConfig{
			ShowWelcome:  true,
			ConfirmClear: true,
		},
		Export: ExportConfig{
			OutputDir:       ".",
			Format:          "txt",
			IncludeMetadata: true,
			ImageDir:        ".",
		},
		Log: LogConfig{
			Level: "info",
		},
		UI: UIConfig{
			Theme:          "auto",
			RenderMarkdown: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the rkai data directory (~/.rkai). RKAI_HOME overrides it.
func ConfigDir() (string, error) {
	if dir := os.Getenv("RKAI_HOME"); dir != "" {
		return util.ExpandHome(dir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".rkai"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions tightens a config file to 0600; it may hold an API key.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads ~/.rkai/config.toml if it exists, otherwise the defaults.
// Environment overrides and validation are applied either way.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, util.ExpandHome(path)); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg. Keys absent from the file keep
// their current values.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil && !os.IsNotExist(err) {
		// Permissions might not be fixable on all systems
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return ValidateErrors{{Field: strings.Join(keys, ", "), Message: "unknown configuration key"}}
	}
	return nil
}

// SetDefaults fills empty values that would otherwise fail validation.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Version == "" {
		c.Version = d.Version
	}
	if len(c.Auth.Secrets) == 0 {
		c.Auth.Secrets = d.Auth.Secrets
	}
	if c.Gemini.TextModel == "" {
		c.Gemini.TextModel = d.Gemini.TextModel
	}
	if c.Gemini.ImageModel == "" {
		c.Gemini.ImageModel = d.Gemini.ImageModel
	}
	if c.Gemini.AspectRatio == "" {
		c.Gemini.AspectRatio = d.Gemini.AspectRatio
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	if c.Storage.Key == "" {
		c.Storage.Key = d.Storage.Key
	}
	if c.Storage.MalformedPolicy == "" {
		c.Storage.MalformedPolicy = d.Storage.MalformedPolicy
	}
	if c.Export.Format == "" {
		c.Export.Format = d.Export.Format
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# rkai configuration file\n")
	buf.WriteString("# Generated by rkai - edit with care\n")
	buf.WriteString("#\n")
	buf.WriteString("# The Gemini API key is read from GEMINI_API_KEY when gemini.api_key is empty.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(util.ExpandHome(path), buf.Bytes(), 0600); err != nil {
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
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var (
	validBackends = map[string]bool{"file": true, "json": true, "bolt": true, "bbolt": true, "sqlite": true, "sqlite3": true, "memory": true}
	validThemes   = map[string]bool{"dark": true, "light": true, "auto": true}
	validFormats  = map[string]bool{"txt": true, "md": true, "markdown": true}
)

// Validate validates the configuration and returns ValidateErrors if any
// field is invalid.
func (c *Config) Validate() error {
	var errs ValidateErrors

	hasSecret := false
	for _, s := range c.Auth.Secrets {
		if s != "" {
			hasSecret = true
			break
		}
	}
	if !hasSecret {
		errs = append(errs, ValidationError{"auth.secrets", "at least one non-empty passphrase is required"})
	}

	if c.Gemini.BaseURL != "" {
		u, err := url.Parse(c.Gemini.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, ValidationError{"gemini.base_url", "must be an http(s) URL"})
		}
	}
	if strings.TrimSpace(c.Gemini.TextModel) == "" {
		errs = append(errs, ValidationError{"gemini.text_model", "must not be empty"})
	}
	if strings.TrimSpace(c.Gemini.ImageModel) == "" {
		errs = append(errs, ValidationError{"gemini.image_model", "must not be empty"})
	}
	if c.Gemini.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{"gemini.timeout_secs", "must be >= 0"})
	}
	if c.Gemini.RateLimitPerMinute < 0 {
		errs = append(errs, ValidationError{"gemini.rate_limit_per_minute", "must be >= 0"})
	}
	if c.Gemini.RateBurst < 0 {
		errs = append(errs, ValidationError{"gemini.rate_burst", "must be >= 0"})
	}

	if !validBackends[strings.ToLower(c.Storage.Backend)] {
		errs = append(errs, ValidationError{"storage.backend", fmt.Sprintf("unknown backend %q (file, bolt, sqlite, memory)", c.Storage.Backend)})
	}
	if _, ok := storage.ParseMalformedPolicy(c.Storage.MalformedPolicy); !ok {
		errs = append(errs, ValidationError{"storage.malformed_policy", fmt.Sprintf("unknown policy %q (drop, default-timestamp)", c.Storage.MalformedPolicy)})
	}

	if !validFormats[strings.ToLower(c.Export.Format)] {
		errs = append(errs, ValidationError{"export.format", fmt.Sprintf("unknown format %q (txt, md)", c.Export.Format)})
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		errs = append(errs, ValidationError{"log.level", fmt.Sprintf("unknown level %q", c.Log.Level)})
	}

	if !validThemes[c.UI.Theme] {
		errs = append(errs, ValidationError{"ui.theme", fmt.Sprintf("unknown theme %q (dark, light, auto)", c.UI.Theme)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - GEMINI_API_KEY: overrides gemini.api_key
//   - RKAI_GEMINI_BASE_URL: overrides gemini.base_url
//   - RKAI_TEXT_MODEL: overrides gemini.text_model
//   - RKAI_IMAGE_MODEL: overrides gemini.image_model
//   - RKAI_STORAGE_BACKEND: overrides storage.backend
//   - RKAI_STORAGE_PATH: overrides storage.path
//   - RKAI_SECRETS: comma-separated list, overrides auth.secrets
//   - RKAI_LOG_LEVEL: overrides log.level
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Gemini.APIKey = key
	}
	if u := os.Getenv("RKAI_GEMINI_BASE_URL"); u != "" {
		c.Gemini.BaseURL = u
	}
	if m := os.Getenv("RKAI_TEXT_MODEL"); m != "" {
		c.Gemini.TextModel = m
	}
	if m := os.Getenv("RKAI_IMAGE_MODEL"); m != "" {
		c.Gemini.ImageModel = m
	}
	if b := os.Getenv("RKAI_STORAGE_BACKEND"); b != "" {
		c.Storage.Backend = b
	}
	if p := os.Getenv("RKAI_STORAGE_PATH"); p != "" {
		c.Storage.Path = p
	}
	if s := os.Getenv("RKAI_SECRETS"); s != "" {
		c.Auth.Secrets = splitList(s)
	}
	if l := os.Getenv("RKAI_LOG_LEVEL"); l != "" {
		c.Log.Level = l
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "gemini.text_model").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "storage.backend").
// String values are converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(strVal)
			if err != nil {
				boolVal = strings.EqualFold(strVal, "yes")
			}
			field.SetBool(boolVal)
			return nil
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				field.Set(reflect.ValueOf(splitList(strVal)))
				return nil
			}
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"auth.secrets",
		"gemini.api_key",
		"gemini.base_url",
		"gemini.text_model",
		"gemini.image_model",
		"gemini.system_instruction",
		"gemini.aspect_ratio",
		"gemini.timeout_secs",
		"gemini.rate_limit_per_minute",
		"gemini.rate_burst",
		"storage.backend",
		"storage.path",
		"storage.key",
		"storage.malformed_policy",
		"chat.history_file",
		"chat.show_welcome",
		"chat.confirm_clear",
		"export.output_dir",
		"export.format",
		"export.include_metadata",
		"export.image_dir",
		"log.level",
		"log.file",
		"log.console",
		"ui.theme",
		"ui.render_markdown",
		"ui.compact_mode",
	}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Auth.Secrets = append([]string(nil), c.Auth.Secrets...)
	return &clone
}

// String returns a JSON rendering with secrets redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Gemini.APIKey != "" {
		safe.Gemini.APIKey = "[REDACTED]"
	}
	for i := range safe.Auth.Secrets {
		safe.Auth.Secrets[i] = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}
