// Package observability sets up OpenTelemetry tracing, metrics and
// structured logging for bundlefang.
package observability

import (
	"io"
	"log/slog"
)

// AppMode identifies how the bundler was invoked.
type AppMode string

const (
	// ModeCLI is a bundlefang command line run.
	ModeCLI AppMode = "cli"
	// ModeLibrary is an embedding program calling the bundler package.
	ModeLibrary AppMode = "library"
)

const (
	defaultServiceName = "bundlefang"

	defaultShutdownTimeoutSec = 5
)

// Config holds all observability configuration.
type Config struct {
	// LogWriter receives log records. Nil means os.Stderr, keeping stdout
	// free for the artifact.
	LogWriter io.Writer

	// OTLPHeaders are additional gRPC metadata headers for the OTLP exporter.
	OTLPHeaders map[string]string

	ServiceName    string
	ServiceVersion string

	// Environment is the deployment environment (e.g. "ci", "dev").
	Environment string

	Mode AppMode

	// OTLPEndpoint is the OTLP gRPC collector address (e.g. "localhost:4317").
	// Empty disables export; providers become no-op.
	OTLPEndpoint string

	// SampleRatio is the trace sampling ratio (0.0 to 1.0).
	// Zero keeps parent-based always-on sampling.
	SampleRatio float64

	LogLevel slog.Level

	ShutdownTimeoutSec int

	OTLPInsecure bool
	LogJSON      bool
}

// DefaultConfig returns a Config for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeCLI,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}
