package config

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/bundlefang/pkg/observability"
	"github.com/Sumatoshi-tech/bundlefang/pkg/transform"
)

// Config is the top-level configuration struct for bundlefang.
// Field tags use mapstructure for viper unmarshalling and json for schema
// validation.
type Config struct {
	Graph     GraphConfig     `json:"graph"     mapstructure:"graph"`
	Emit      EmitConfig      `json:"emit"      mapstructure:"emit"`
	Transform TransformConfig `json:"transform" mapstructure:"transform"`
	Logging   LoggingConfig   `json:"logging"   mapstructure:"logging"`
	Telemetry TelemetryConfig `json:"telemetry" mapstructure:"telemetry"`
}

// GraphConfig holds module graph construction settings.
type GraphConfig struct {
	Dedupe       bool `json:"dedupe"        mapstructure:"dedupe"`
	DetectCycles bool `json:"detect_cycles" mapstructure:"detect_cycles"`
}

// EmitConfig holds artifact settings.
type EmitConfig struct {
	Banner       string `json:"banner"        mapstructure:"banner"`
	CacheModules bool   `json:"cache_modules" mapstructure:"cache_modules"`
	Minify       bool   `json:"minify"        mapstructure:"minify"`
}

// TransformConfig holds source transformer settings.
type TransformConfig struct {
	Target    string `json:"target"     mapstructure:"target"`
	CacheSize int    `json:"cache_size" mapstructure:"cache_size"`
}

// LoggingConfig holds slog settings.
type LoggingConfig struct {
	Level string `json:"level" mapstructure:"level"`
	JSON  bool   `json:"json"  mapstructure:"json"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `json:"otlp_endpoint" mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `json:"otlp_headers"  mapstructure:"otlp_headers"`
	Environment  string  `json:"environment"   mapstructure:"environment"`
	SampleRatio  float64 `json:"sample_ratio"  mapstructure:"sample_ratio"`
	OTLPInsecure bool    `json:"otlp_insecure" mapstructure:"otlp_insecure"`
}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidCacheSize indicates a negative transform cache size.
	ErrInvalidCacheSize = errors.New("transform.cache_size must be non-negative")
	// ErrInvalidSampleRatio indicates a sample ratio outside [0, 1].
	ErrInvalidSampleRatio = errors.New("telemetry.sample_ratio must be between 0 and 1")
	// ErrInvalidLogLevel indicates an unknown logging.level.
	ErrInvalidLogLevel = errors.New("logging.level is not a known level")
	// ErrInvalidTarget indicates an unknown transform.target.
	ErrInvalidTarget = errors.New("transform.target is not a known target")
	// ErrSchema indicates settings that do not match the configuration schema.
	ErrSchema = errors.New("config does not match schema")
)

const sampleRatioMax = 1.0

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if c.Transform.CacheSize < 0 {
		return ErrInvalidCacheSize
	}

	if _, err := transform.ParseTarget(c.Transform.Target); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTarget, c.Transform.Target)
	}

	if _, err := observability.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > sampleRatioMax {
		return ErrInvalidSampleRatio
	}

	return nil
}

// Observability converts the logging and telemetry sections into an
// observability.Config for the given binary version.
func (c *Config) Observability(version string) observability.Config {
	obs := observability.DefaultConfig()

	obs.ServiceVersion = version
	obs.Environment = c.Telemetry.Environment
	obs.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	obs.OTLPHeaders = observability.ParseOTLPHeaders(c.Telemetry.OTLPHeaders)
	obs.OTLPInsecure = c.Telemetry.OTLPInsecure
	obs.SampleRatio = c.Telemetry.SampleRatio
	obs.LogJSON = c.Logging.JSON

	// Validate has already rejected unknown levels.
	if level, err := observability.ParseLevel(c.Logging.Level); err == nil {
		obs.LogLevel = level
	}

	return obs
}
