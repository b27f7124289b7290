// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Target
	ProfileURL   string `json:"profile_url,omitempty" validate:"omitempty,url"`       // Target profile URL
	LookbackDays int    `json:"lookback_days,omitempty" validate:"omitempty,min=1,max=365"` // Post discovery window in days

	// Identity
	ContextID  string `json:"context_id,omitempty"`  // Stored browsing context to reuse
	SessionDir string `json:"session_dir,omitempty"` // Directory holding session state and user data

	// Behavior
	APIKey      string `json:"api_key,omitempty"`      // Gemini API key
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL for session storage
	Output      string `json:"output,omitempty"`       // Path for the JSON results artifact
	DebugDir    string `json:"debug_dir,omitempty"`    // Directory for failure screenshots
	Headful     bool   `json:"headful,omitempty"`      // Run the browser with a visible window
	Verbose     bool   `json:"verbose,omitempty"`      // Print detailed debug information

	// Pacing overrides (zero means the built-in default)
	MinDelayMs       int `json:"min_delay_ms,omitempty" validate:"omitempty,min=0"`
	MaxDelayMs       int `json:"max_delay_ms,omitempty" validate:"omitempty,min=0"`
	ActionsPerMinute int `json:"actions_per_minute,omitempty" validate:"omitempty,min=1,max=120"`

	// Termination overrides (zero means the built-in default)
	MaxStallAttempts int `json:"max_stall_attempts,omitempty" validate:"omitempty,min=1"`
	StallPasses      int `json:"stall_passes,omitempty" validate:"omitempty,min=1"`
	MaxNavRetries    int `json:"max_nav_retries,omitempty" validate:"omitempty,min=1"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("config error: field %q failed %q validation", f.Field(), f.Tag())
		}
		return fmt.Errorf("config error: %w", err)
	}

	if c.MinDelayMs > 0 && c.MaxDelayMs > 0 && c.MaxDelayMs < c.MinDelayMs {
		return fmt.Errorf("config error: 'max_delay_ms' must be >= 'min_delay_ms'")
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.ProfileURL == "" {
		result.ProfileURL = defaults.ProfileURL
	}
	if result.ContextID == "" {
		result.ContextID = defaults.ContextID
	}
	if result.SessionDir == "" {
		result.SessionDir = defaults.SessionDir
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.Output == "" {
		result.Output = defaults.Output
	}
	if result.DebugDir == "" {
		result.DebugDir = defaults.DebugDir
	}

	// Int fields: use default if zero
	if result.LookbackDays == 0 {
		result.LookbackDays = defaults.LookbackDays
	}
	if result.MinDelayMs == 0 {
		result.MinDelayMs = defaults.MinDelayMs
	}
	if result.MaxDelayMs == 0 {
		result.MaxDelayMs = defaults.MaxDelayMs
	}
	if result.ActionsPerMinute == 0 {
		result.ActionsPerMinute = defaults.ActionsPerMinute
	}
	if result.MaxStallAttempts == 0 {
		result.MaxStallAttempts = defaults.MaxStallAttempts
	}
	if result.StallPasses == 0 {
		result.StallPasses = defaults.StallPasses
	}
	if result.MaxNavRetries == 0 {
		result.MaxNavRetries = defaults.MaxNavRetries
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
