package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/bundlefang/pkg/observability"
)

func setupTestMeter(t *testing.T) (*observability.BuildMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	bm, err := observability.NewBuildMetrics(mp.Meter("test"))
	require.NoError(t, err)

	return bm, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func sumValue(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()

	require.NotNil(t, m)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}

	return total
}

func TestBuildMetrics_RecordSuccess(t *testing.T) {
	t.Parallel()

	bm, reader := setupTestMeter(t)

	bm.RecordBuild(context.Background(), observability.BuildOutcome{Duration: 20 * time.Millisecond, Assets: 5})

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(1), sumValue(t, findMetric(rm, "bundlefang.builds.total")))
	assert.Equal(t, int64(5), sumValue(t, findMetric(rm, "bundlefang.assets.total")))
	require.NotNil(t, findMetric(rm, "bundlefang.build.duration.seconds"))
	assert.Nil(t, findMetric(rm, "bundlefang.errors.total"))
}

func TestBuildMetrics_RecordFailure(t *testing.T) {
	t.Parallel()

	bm, reader := setupTestMeter(t)

	bm.RecordBuild(context.Background(), observability.BuildOutcome{Duration: time.Millisecond, ErrorKind: "io"})
	bm.RecordBuild(context.Background(), observability.BuildOutcome{Duration: time.Millisecond, ErrorKind: "io"})

	rm := collectMetrics(t, reader)

	errs := findMetric(rm, "bundlefang.errors.total")
	assert.Equal(t, int64(2), sumValue(t, errs))

	sum, ok := errs.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)

	kind, found := sum.DataPoints[0].Attributes.Value("kind")
	require.True(t, found)
	assert.Equal(t, "io", kind.AsString())
}

func TestNewBuildMetrics_WithNoopMeter(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(context.Background(), observability.DefaultConfig())
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	bm, err := observability.NewBuildMetrics(providers.Meter)
	require.NoError(t, err)

	bm.RecordBuild(context.Background(), observability.BuildOutcome{Assets: 1})
}
