package config

import "time"

// Config represents the complete application configuration.
// Values come from, in increasing precedence: built-in defaults, the optional
// YAML config file, KOSINTER_* environment variables and runtime overrides.
type Config struct {
	HTTP    HTTPConfig    `mapstructure:"http"`
	Scan    ScanConfig    `mapstructure:"scan"`
	Logging LoggingConfig `mapstructure:"logging"`
	Workers int           `mapstructure:"workers"`

	RateLimits      map[string]int `mapstructure:"rate_limits"`
	RateLimitMargin float64        `mapstructure:"rate_limit_margin"`
}

// HTTPConfig tunes the outbound probe.
type HTTPConfig struct {
	// Timeout bounds a single probe attempt, including reading the body.
	Timeout        time.Duration `mapstructure:"timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	AcceptLanguage string        `mapstructure:"accept_language"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`

	// PerHost caps in-flight requests to one remote host. Zero disables the cap.
	PerHost int `mapstructure:"per_host"`

	// Retries applies to transport failures only.
	Retries      int           `mapstructure:"retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// ScanConfig contains scan behaviour settings.
type ScanConfig struct {
	// ValidateHandles skips probes for spellings a platform cannot host.
	ValidateHandles bool `mapstructure:"validate_handles"`

	// Variants enables variant generation; when false only the base handle is scanned.
	Variants bool `mapstructure:"variants"`

	// Platforms restricts the scan to these registry ids. Empty means all.
	Platforms []string `mapstructure:"platforms"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: debug, info, warn, error
	Level string `mapstructure:"level"`
}
