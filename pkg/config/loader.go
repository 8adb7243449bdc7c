package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/xeipuuv/gojsonschema"
)

// configName is the config file name without extension.
const configName = ".bundlefang"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for bundlefang settings.
const envPrefix = "BUNDLEFANG"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

//go:embed schema.json
var schemaJSON []byte

var schemaLoader = gojsonschema.NewBytesLoader(schemaJSON)

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}

	return nil
}

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	schemaErr := validateSchema(&cfg)
	if schemaErr != nil {
		return nil, fmt.Errorf("validate config: %w", schemaErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Graph: GraphConfig{
			Dedupe:       DefaultGraphDedupe,
			DetectCycles: DefaultGraphDetectCycles,
		},
		Emit: EmitConfig{
			CacheModules: DefaultEmitCacheModules,
			Minify:       DefaultEmitMinify,
			Banner:       DefaultEmitBanner,
		},
		Transform: TransformConfig{
			Target:    DefaultTransformTarget,
			CacheSize: DefaultTransformCacheSize,
		},
		Logging: LoggingConfig{
			Level: DefaultLoggingLevel,
			JSON:  DefaultLoggingJSON,
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: DefaultTelemetryOTLPEndpoint,
			OTLPHeaders:  DefaultTelemetryOTLPHeaders,
			OTLPInsecure: DefaultTelemetryOTLPInsecure,
			Environment:  DefaultTelemetryEnvironment,
			SampleRatio:  DefaultTelemetrySampleRatio,
		},
	}
}

// validateSchema checks the decoded settings against the embedded JSON
// schema and reports every violation in one error.
func validateSchema(cfg *Config) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(cfg))
	if err != nil {
		return fmt.Errorf("run schema: %w", err)
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		msgs = append(msgs, resultErr.Field()+": "+resultErr.Description())
	}

	return fmt.Errorf("%w: %s", ErrSchema, strings.Join(msgs, "; "))
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("graph.dedupe", DefaultGraphDedupe)
	viperCfg.SetDefault("graph.detect_cycles", DefaultGraphDetectCycles)

	viperCfg.SetDefault("emit.cache_modules", DefaultEmitCacheModules)
	viperCfg.SetDefault("emit.minify", DefaultEmitMinify)
	viperCfg.SetDefault("emit.banner", DefaultEmitBanner)

	viperCfg.SetDefault("transform.target", DefaultTransformTarget)
	viperCfg.SetDefault("transform.cache_size", DefaultTransformCacheSize)

	viperCfg.SetDefault("logging.level", DefaultLoggingLevel)
	viperCfg.SetDefault("logging.json", DefaultLoggingJSON)

	viperCfg.SetDefault("telemetry.otlp_endpoint", DefaultTelemetryOTLPEndpoint)
	viperCfg.SetDefault("telemetry.otlp_headers", DefaultTelemetryOTLPHeaders)
	viperCfg.SetDefault("telemetry.otlp_insecure", DefaultTelemetryOTLPInsecure)
	viperCfg.SetDefault("telemetry.environment", DefaultTelemetryEnvironment)
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultTelemetrySampleRatio)
}
