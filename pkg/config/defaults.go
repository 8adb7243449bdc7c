// Package config provides YAML and environment configuration for bundlefang.
package config

// Graph builder defaults.
const (
	DefaultGraphDedupe       = true
	DefaultGraphDetectCycles = true
)

// Emitter defaults.
const (
	DefaultEmitCacheModules = true
	DefaultEmitMinify       = false
	DefaultEmitBanner       = ""
)

// Transformer defaults.
const (
	DefaultTransformTarget    = "es2015"
	DefaultTransformCacheSize = 256
)

// Logging defaults.
const (
	DefaultLoggingLevel = "info"
	DefaultLoggingJSON  = false
)

// Telemetry defaults. An empty endpoint disables export.
const (
	DefaultTelemetryOTLPEndpoint = ""
	DefaultTelemetryOTLPHeaders  = ""
	DefaultTelemetryOTLPInsecure = false
	DefaultTelemetryEnvironment  = ""
	DefaultTelemetrySampleRatio  = 0.0
)
