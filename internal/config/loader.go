// Package config loads and validates kosinter configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/language"
)

// EnvPrefix is the prefix for environment overrides, e.g. KOSINTER_HTTP_TIMEOUT.
const EnvPrefix = "KOSINTER"

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// Defaults returns the built-in value of every config key, keyed by its
// dotted viper path.
func Defaults() map[string]any {
	return map[string]any{
		"http.timeout":          "8s",
		"http.user_agent":       "",
		"http.accept_language":  "en-US,en;q=0.9",
		"http.max_body_bytes":   2 << 20,
		"http.per_host":         2,
		"http.retries":          0,
		"http.retry_backoff":    "500ms",
		"scan.validate_handles": false,
		"scan.variants":         true,
		"scan.platforms":        []string{},
		"logging.level":         "info",
		"workers":               8,
		"rate_limits":           map[string]int{},
		"rate_limit_margin":     0.9,
	}
}

// ApplyDefaults registers Defaults on v and wires the environment prefix.
func ApplyDefaults(v *viper.Viper) {
	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes the settings held by v into a Config and validates it.
// Runtime overrides are nested maps merged on top, later maps winning.
//
// This function is safe to call multiple times (e.g., for config reload)
func Load(v *viper.Viper, runtimeOverrides ...map[string]any) (*Config, error) {
	if v == nil {
		v = viper.New()
		ApplyDefaults(v)
	}

	merged := v.AllSettings()
	// Host keys contain the key delimiter, so read the map as written.
	if limits := v.Get("rate_limits"); limits != nil {
		merged["rate_limits"] = limits
	}
	for _, overrides := range runtimeOverrides {
		mergeSettings(merged, overrides)
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(merged); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Scan.Platforms = normalizeList(cfg.Scan.Platforms)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	setConfig(cfg)

	return cfg, nil
}

// Validate reports the first out-of-range setting.
func (c *Config) Validate() error {
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("%w: http.timeout must be positive, got %s", ErrInvalidConfig, c.HTTP.Timeout)
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: http.max_body_bytes must be positive, got %d", ErrInvalidConfig, c.HTTP.MaxBodyBytes)
	}
	if c.HTTP.PerHost < 0 {
		return fmt.Errorf("%w: http.per_host must not be negative, got %d", ErrInvalidConfig, c.HTTP.PerHost)
	}
	if c.HTTP.Retries < 0 {
		return fmt.Errorf("%w: http.retries must not be negative, got %d", ErrInvalidConfig, c.HTTP.Retries)
	}
	if strings.TrimSpace(c.HTTP.AcceptLanguage) != "" {
		if _, _, err := language.ParseAcceptLanguage(c.HTTP.AcceptLanguage); err != nil {
			return fmt.Errorf("%w: http.accept_language %q: %v", ErrInvalidConfig, c.HTTP.AcceptLanguage, err)
		}
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.RateLimitMargin <= 0 || c.RateLimitMargin > 1 {
		return fmt.Errorf("%w: rate_limit_margin must be in (0, 1], got %g", ErrInvalidConfig, c.RateLimitMargin)
	}
	for host, limit := range c.RateLimits {
		if limit <= 0 {
			return fmt.Errorf("%w: rate_limits.%s must be positive, got %d", ErrInvalidConfig, host, limit)
		}
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %v", ErrInvalidConfig, err)
	}
	return nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

func mergeSettings(dst, src map[string]any) {
	for key, value := range src {
		key = strings.ToLower(key)
		if nested, ok := value.(map[string]any); ok {
			if existing, ok := dst[key].(map[string]any); ok {
				mergeSettings(existing, nested)
				continue
			}
			copied := map[string]any{}
			mergeSettings(copied, nested)
			dst[key] = copied
			continue
		}
		dst[key] = value
	}
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.ToLower(strings.TrimSpace(value))
		if value != "" {
			out = append(out, value)
		}
	}
	return out
}
