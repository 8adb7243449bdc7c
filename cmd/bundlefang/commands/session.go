// Package commands implements the bundlefang CLI commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Sumatoshi-tech/bundlefang/pkg/bundler"
	"github.com/Sumatoshi-tech/bundlefang/pkg/config"
	"github.com/Sumatoshi-tech/bundlefang/pkg/observability"
	"github.com/Sumatoshi-tech/bundlefang/pkg/version"
)

// dotEnvFile is loaded from the working directory before the config.
const dotEnvFile = ".env"

// Standard OTel exporter variables, honoured when the config has no endpoint.
const (
	envOTLPEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
	envOTLPHeaders  = "OTEL_EXPORTER_OTLP_HEADERS"
	envOTLPInsecure = "OTEL_EXPORTER_OTLP_INSECURE"
)

// GlobalOptions are the persistent flags shared by every command.
type GlobalOptions struct {
	// Fs is where entry files are read and outputs written. Nil means the OS.
	Fs afero.Fs

	ConfigPath string
	Verbose    bool
	Quiet      bool
	LogJSON    bool
}

// Register adds the persistent flags to flags.
func (g *GlobalOptions) Register(flags *pflag.FlagSet) {
	flags.StringVar(&g.ConfigPath, "config", "", "config file (default .bundlefang.yaml in . or $HOME)")
	flags.BoolVarP(&g.Verbose, "verbose", "v", false, "verbose output")
	flags.BoolVarP(&g.Quiet, "quiet", "q", false, "only log errors")
	flags.BoolVar(&g.LogJSON, "log-json", false, "write logs as JSON")
}

func (g *GlobalOptions) fs() afero.Fs {
	if g.Fs == nil {
		return afero.NewOsFs()
	}

	return g.Fs
}

// session is the per-invocation state: config, telemetry and logger.
type session struct {
	cfg       *config.Config
	providers observability.Providers
	metrics   *observability.BuildMetrics
}

func openSession(cmd *cobra.Command, g *GlobalOptions) (*session, error) {
	err := config.LoadDotEnv(dotEnvFile)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(g.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	obsCfg := cfg.Observability(version.Version)
	obsCfg.LogWriter = cmd.ErrOrStderr()

	if g.LogJSON {
		obsCfg.LogJSON = true
	}

	switch {
	case g.Quiet:
		obsCfg.LogLevel = slog.LevelError
	case g.Verbose:
		obsCfg.LogLevel = slog.LevelDebug
	}

	if obsCfg.OTLPEndpoint == "" {
		obsCfg.OTLPEndpoint = os.Getenv(envOTLPEndpoint)
		obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv(envOTLPHeaders))
		obsCfg.OTLPInsecure = obsCfg.OTLPInsecure || os.Getenv(envOTLPInsecure) == "true"
	}

	providers, err := observability.Init(cmd.Context(), obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	metrics, err := observability.NewBuildMetrics(providers.Meter)
	if err != nil {
		return nil, errors.Join(err, providers.Shutdown(context.Background()))
	}

	return &session{cfg: cfg, providers: providers, metrics: metrics}, nil
}

func (s *session) close() {
	err := s.providers.Shutdown(context.Background())
	if err != nil {
		s.providers.Logger.Warn("observability shutdown failed", "error", err)
	}
}

func (s *session) bundler(fs afero.Fs, overrides func(*bundler.Options)) (*bundler.Bundler, error) {
	opts := bundler.OptionsFromConfig(s.cfg)
	opts.Fs = fs
	opts.Tracer = s.providers.Tracer
	opts.Metrics = s.metrics
	opts.Logger = s.providers.Logger

	if overrides != nil {
		overrides(&opts)
	}

	return bundler.New(opts)
}
