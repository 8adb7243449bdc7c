// Package bundler wires the asset loader, graph builder and emitter into one
// traced, logged and measured bundle build.
package bundler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/bundlefang/pkg/asset"
	"github.com/Sumatoshi-tech/bundlefang/pkg/bundleerr"
	"github.com/Sumatoshi-tech/bundlefang/pkg/config"
	"github.com/Sumatoshi-tech/bundlefang/pkg/emit"
	"github.com/Sumatoshi-tech/bundlefang/pkg/graph"
	"github.com/Sumatoshi-tech/bundlefang/pkg/observability"
	"github.com/Sumatoshi-tech/bundlefang/pkg/transform"
)

const tracerName = "github.com/Sumatoshi-tech/bundlefang/pkg/bundler"

// Options configures a Bundler.
type Options struct {
	// Fs is the file system sources are read from. Nil means the OS.
	Fs afero.Fs
	// Transformer overrides the default cached esbuild transformer.
	Transformer transform.Transformer
	// Tracer defaults to the global tracer provider.
	Tracer trace.Tracer
	// Metrics is optional; nil records nothing.
	Metrics *observability.BuildMetrics
	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Target is the esbuild language target for the default transformer.
	Target string
	Emit   emit.Options

	// CacheSize bounds the default transformer's cache; zero disables it.
	CacheSize int

	Dedupe       bool
	DetectCycles bool
}

// OptionsFromConfig maps the graph, emit and transform config sections onto
// Options. Telemetry handles are left for the caller to set.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Target:       cfg.Transform.Target,
		CacheSize:    cfg.Transform.CacheSize,
		Dedupe:       cfg.Graph.Dedupe,
		DetectCycles: cfg.Graph.DetectCycles,
		Emit: emit.Options{
			CacheModules: cfg.Emit.CacheModules,
			Minify:       cfg.Emit.Minify,
			Banner:       cfg.Emit.Banner,
		},
	}
}

// Result is the output of one successful Bundle call.
type Result struct {
	Graph    *graph.ModuleGraph
	Artifact string
	Duration time.Duration
}

// Bundler runs builds. It is safe for concurrent use when its Transformer
// is; the default one is.
type Bundler struct {
	builder *graph.Builder
	tracer  trace.Tracer
	metrics *observability.BuildMetrics
	logger  *slog.Logger
	emit    emit.Options
}

// New creates a Bundler.
func New(opts Options) (*Bundler, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	transformer := opts.Transformer
	if transformer == nil {
		var err error

		transformer, err = defaultTransformer(opts.Target, opts.CacheSize)
		if err != nil {
			return nil, err
		}
	}

	builder := graph.NewBuilder(asset.NewLoader(opts.Fs, transformer), graph.Options{
		Logger:       logger,
		Dedupe:       opts.Dedupe,
		DetectCycles: opts.DetectCycles,
	})

	return &Bundler{
		builder: builder,
		tracer:  tracer,
		metrics: opts.Metrics,
		logger:  logger,
		emit:    opts.Emit,
	}, nil
}

func defaultTransformer(target string, cacheSize int) (transform.Transformer, error) {
	if target == "" {
		target = transform.DefaultTarget
	}

	esb, err := transform.New(transform.Options{Target: target})
	if err != nil {
		return nil, fmt.Errorf("create transformer: %w", err)
	}

	if cacheSize <= 0 {
		return esb, nil
	}

	cached, err := transform.NewCached(esb, cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create transform cache: %w", err)
	}

	return cached, nil
}

// Graph builds the module graph for entry without emitting an artifact.
func (b *Bundler) Graph(ctx context.Context, entry string) (*graph.ModuleGraph, error) {
	ctx, span := b.tracer.Start(ctx, "bundle.graph",
		trace.WithAttributes(attribute.String("bundle.entry", entry)),
	)
	defer span.End()

	g, err := b.builder.Build(ctx, entry)
	if err != nil {
		recordSpanError(span, err)

		return nil, fmt.Errorf("build graph for %s: %w", entry, err)
	}

	span.SetAttributes(attribute.Int("graph.assets", g.Len()))

	return g, nil
}

// Bundle builds the graph for entry and emits the artifact. No artifact is
// produced when any step fails.
func (b *Bundler) Bundle(ctx context.Context, entry string) (*Result, error) {
	start := time.Now()

	ctx, span := b.tracer.Start(ctx, "bundle",
		trace.WithAttributes(
			attribute.String("bundle.entry", entry),
			attribute.Bool("emit.minify", b.emit.Minify),
			attribute.Bool("emit.cache_modules", b.emit.CacheModules),
		),
	)
	defer span.End()

	res, err := b.bundle(ctx, entry)

	duration := time.Since(start)
	outcome := observability.BuildOutcome{Duration: duration}

	if err != nil {
		recordSpanError(span, err)

		outcome.ErrorKind = bundleerr.KindOf(err).String()
		b.record(ctx, outcome)

		b.logger.ErrorContext(ctx, "bundle failed", "entry", entry, "kind", outcome.ErrorKind, "error", err)

		return nil, err
	}

	res.Duration = duration
	outcome.Assets = res.Graph.Len()
	b.record(ctx, outcome)

	b.logger.InfoContext(ctx, "bundle built",
		"entry", entry,
		"assets", res.Graph.Len(),
		"size", humanize.Bytes(uint64(len(res.Artifact))),
		"duration", duration.Round(time.Millisecond),
	)

	return res, nil
}

func (b *Bundler) bundle(ctx context.Context, entry string) (*Result, error) {
	g, err := b.Graph(ctx, entry)
	if err != nil {
		return nil, err
	}

	_, span := b.tracer.Start(ctx, "bundle.emit",
		trace.WithAttributes(attribute.Int("graph.assets", g.Len())),
	)
	defer span.End()

	artifact, err := emit.Emit(g, b.emit)
	if err != nil {
		recordSpanError(span, err)

		return nil, fmt.Errorf("emit %s: %w", entry, err)
	}

	span.SetAttributes(attribute.Int("emit.bytes", len(artifact)))

	return &Result{Graph: g, Artifact: artifact}, nil
}

func (b *Bundler) record(ctx context.Context, outcome observability.BuildOutcome) {
	if b.metrics != nil {
		b.metrics.RecordBuild(ctx, outcome)
	}
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("error.kind", bundleerr.KindOf(err).String()))
}
