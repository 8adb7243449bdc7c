package bundler_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/bundlefang/internal/jsrun"
	"github.com/Sumatoshi-tech/bundlefang/pkg/bundleerr"
	"github.com/Sumatoshi-tech/bundlefang/pkg/bundler"
	"github.com/Sumatoshi-tech/bundlefang/pkg/config"
	"github.com/Sumatoshi-tech/bundlefang/pkg/observability"
)

func project(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()

	memFs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(memFs, path, []byte(content), 0o600))
	}

	return memFs
}

func greeting(t *testing.T) afero.Fs {
	t.Helper()

	return project(t, map[string]string{
		"src/main.js":    "import message from \"./message.js\";\nconsole.log(message);\n",
		"src/message.js": "import { name } from \"./lib/name.js\";\nexport default \"hello \" + name;\n",
		"src/lib/name.js": "export const name = \"world\";\n",
	})
}

func diamond(t *testing.T) afero.Fs {
	t.Helper()

	return project(t, map[string]string{
		"app/main.js":   "const a = require(\"./a.js\");\nconst b = require(\"./b.js\");\nconsole.log(a.n, b.n, a.shared === b.shared);\n",
		"app/a.js":      "exports.shared = require(\"./shared.js\");\nexports.n = \"a\";\n",
		"app/b.js":      "exports.shared = require(\"./shared.js\");\nexports.n = \"b\";\n",
		"app/shared.js": "console.log(\"shared runs\");\nmodule.exports = { id: 1 };\n",
	})
}

func newBundler(t *testing.T, opts bundler.Options) *bundler.Bundler {
	t.Helper()

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	b, err := bundler.New(opts)
	require.NoError(t, err)

	return b
}

func TestBundle_EndToEnd(t *testing.T) {
	t.Parallel()

	b := newBundler(t, bundler.Options{Fs: greeting(t), CacheSize: 8})

	res, err := b.Bundle(context.Background(), "src/main.js")
	require.NoError(t, err)

	assert.Equal(t, 3, res.Graph.Len())
	assert.Equal(t, map[string]int{"./message.js": 1}, res.Graph.Assets[0].Mapping)
	assert.Equal(t, map[string]int{"./lib/name.js": 2}, res.Graph.Assets[1].Mapping)
	assert.Empty(t, res.Graph.Assets[2].Mapping)
	assert.Positive(t, res.Duration)

	logs, err := jsrun.Capture(context.Background(), res.Artifact)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello world"}, logs)
}

func TestBundle_ReferenceBehaviourLoadsSharedFileTwice(t *testing.T) {
	t.Parallel()

	b := newBundler(t, bundler.Options{Fs: diamond(t)})

	res, err := b.Bundle(context.Background(), "app/main.js")
	require.NoError(t, err)
	assert.Equal(t, 5, res.Graph.Len())

	logs, err := jsrun.Capture(context.Background(), res.Artifact)
	require.NoError(t, err)
	assert.Equal(t, []string{"shared runs", "shared runs", "a b false"}, logs)
}

func TestBundle_ConfigDefaultsDedupeAndCache(t *testing.T) {
	t.Parallel()

	opts := bundler.OptionsFromConfig(config.Default())
	opts.Fs = diamond(t)

	res, err := newBundler(t, opts).Bundle(context.Background(), "app/main.js")
	require.NoError(t, err)
	assert.Equal(t, 4, res.Graph.Len())

	logs, err := jsrun.Capture(context.Background(), res.Artifact)
	require.NoError(t, err)
	assert.Equal(t, []string{"shared runs", "a b true"}, logs)
}

func TestBundle_MinifiedStillRuns(t *testing.T) {
	t.Parallel()

	opts := bundler.OptionsFromConfig(config.Default())
	opts.Fs = greeting(t)
	opts.Emit.Minify = true
	opts.Emit.Banner = "bundlefang test"

	res, err := newBundler(t, opts).Bundle(context.Background(), "src/main.js")
	require.NoError(t, err)
	assert.Contains(t, res.Artifact, "// bundlefang test\n")

	logs, err := jsrun.Capture(context.Background(), res.Artifact)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello world"}, logs)
}

func TestBundle_TypeScriptEntry(t *testing.T) {
	t.Parallel()

	memFs := project(t, map[string]string{
		"src/main.ts":  "import type { Shape } from \"./types.ts\";\nimport { area } from \"./area.ts\";\nconst s: Shape = { w: 2, h: 3 };\nconsole.log(area(s));\n",
		"src/area.ts":  "export function area(s: { w: number; h: number }): number {\n  return s.w * s.h;\n}\n",
		"src/types.ts": "export interface Shape { w: number; h: number }\n",
	})

	res, err := newBundler(t, bundler.Options{Fs: memFs}).Bundle(context.Background(), "src/main.ts")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Graph.Len())

	logs, err := jsrun.Capture(context.Background(), res.Artifact)
	require.NoError(t, err)
	assert.Equal(t, []string{"6"}, logs)
}

func TestBundle_MissingImportFailsWithoutArtifact(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	metrics, err := observability.NewBuildMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))
	require.NoError(t, err)

	var logBuf bytes.Buffer

	memFs := project(t, map[string]string{"src/main.js": "require(\"./missing.js\");\n"})

	b := newBundler(t, bundler.Options{
		Fs:      memFs,
		Metrics: metrics,
		Logger:  slog.New(slog.NewTextHandler(&logBuf, nil)),
	})

	res, err := b.Bundle(context.Background(), "src/main.js")
	require.ErrorIs(t, err, bundleerr.ErrIO)
	assert.Nil(t, res)
	assert.Contains(t, logBuf.String(), "kind=io")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := false

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "bundlefang.errors.total" {
				found = true
			}
		}
	}

	assert.True(t, found)
}

func TestBundle_SyntaxErrorIsTransformError(t *testing.T) {
	t.Parallel()

	memFs := project(t, map[string]string{"src/main.js": "const = ;\n"})

	_, err := newBundler(t, bundler.Options{Fs: memFs}).Bundle(context.Background(), "src/main.js")
	require.ErrorIs(t, err, bundleerr.ErrTransform)
	assert.Contains(t, err.Error(), "src/main.js")
}

func TestBundle_CycleDetected(t *testing.T) {
	t.Parallel()

	memFs := project(t, map[string]string{
		"src/a.js": "require(\"./b.js\");\n",
		"src/b.js": "require(\"./a.js\");\n",
	})

	_, err := newBundler(t, bundler.Options{Fs: memFs, DetectCycles: true}).Bundle(context.Background(), "src/a.js")
	require.ErrorIs(t, err, bundleerr.ErrCyclicImport)
	assert.Contains(t, err.Error(), "src/a.js -> src/b.js -> src/a.js")
}

func TestBundle_RecordsSpans(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	b := newBundler(t, bundler.Options{Fs: greeting(t), Tracer: tp.Tracer("test")})

	_, err := b.Bundle(context.Background(), "src/main.js")
	require.NoError(t, err)

	names := make([]string, 0, 3)
	for _, span := range exporter.GetSpans() {
		names = append(names, span.Name)
	}

	assert.ElementsMatch(t, []string{"bundle", "bundle.graph", "bundle.emit"}, names)
}

func TestGraph_OnlyBuildsGraph(t *testing.T) {
	t.Parallel()

	g, err := newBundler(t, bundler.Options{Fs: greeting(t)}).Graph(context.Background(), "src/main.js")
	require.NoError(t, err)
	require.NoError(t, g.Validate())
	assert.Equal(t, "src/lib/name.js", g.Assets[2].SourcePath)
}

func TestNew_RejectsUnknownTarget(t *testing.T) {
	t.Parallel()

	_, err := bundler.New(bundler.Options{Target: "es1999"})
	require.Error(t, err)
}

func TestBundle_EscapedSpecifier(t *testing.T) {
	t.Parallel()

	memFs := project(t, map[string]string{
		"src/main.js": "import v from \"./b\\u002ejs\";\nconsole.log(v);\n",
		"src/b.js":    "export default \"escaped\";\n",
	})

	res, err := newBundler(t, bundler.Options{Fs: memFs}).Bundle(context.Background(), "src/main.js")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"./b.js": 1}, res.Graph.Assets[0].Mapping)

	logs, err := jsrun.Capture(context.Background(), res.Artifact)
	require.NoError(t, err)
	assert.Equal(t, []string{"escaped"}, logs)
}
