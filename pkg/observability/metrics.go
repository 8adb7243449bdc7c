package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricBuildsTotal   = "bundlefang.builds.total"
	metricBuildDuration = "bundlefang.build.duration.seconds"
	metricAssetsTotal   = "bundlefang.assets.total"
	metricErrorsTotal   = "bundlefang.errors.total"

	attrStatus = "status"
	attrKind   = "kind"

	statusOK    = "ok"
	statusError = "error"
)

// durationBucketBoundaries covers 1ms to 60s; most builds of a few hundred
// files finish well under a second.
var durationBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// BuildOutcome describes one finished bundle build.
type BuildOutcome struct {
	// ErrorKind is empty for a successful build.
	ErrorKind string
	Duration  time.Duration
	Assets    int
}

// BuildMetrics holds the OTel instruments recorded per build.
type BuildMetrics struct {
	builds   metric.Int64Counter
	duration metric.Float64Histogram
	assets   metric.Int64Counter
	errors   metric.Int64Counter
}

// metricBuilder keeps the first instrument creation error so a set of
// instruments can be created with one error check.
type metricBuilder struct {
	meter metric.Meter
	err   error
}

func (b *metricBuilder) counter(name, desc, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)

	return c
}

func (b *metricBuilder) histogram(name, desc, unit string, bounds ...float64) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit(unit),
		metric.WithExplicitBucketBoundaries(bounds...),
	)
	b.setErr(name, err)

	return h
}

func (b *metricBuilder) setErr(name string, err error) {
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("create %s: %w", name, err)
	}
}

// NewBuildMetrics creates the build instruments from mt.
func NewBuildMetrics(mt metric.Meter) (*BuildMetrics, error) {
	b := &metricBuilder{meter: mt}

	m := &BuildMetrics{
		builds:   b.counter(metricBuildsTotal, "Total number of bundle builds", "{build}"),
		duration: b.histogram(metricBuildDuration, "Bundle build duration in seconds", "s", durationBucketBoundaries...),
		assets:   b.counter(metricAssetsTotal, "Total number of assets loaded", "{asset}"),
		errors:   b.counter(metricErrorsTotal, "Total number of failed builds by error kind", "{error}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return m, nil
}

// RecordBuild records one finished build.
func (m *BuildMetrics) RecordBuild(ctx context.Context, outcome BuildOutcome) {
	status := statusOK
	if outcome.ErrorKind != "" {
		status = statusError
	}

	attrs := metric.WithAttributes(attribute.String(attrStatus, status))

	m.builds.Add(ctx, 1, attrs)
	m.duration.Record(ctx, outcome.Duration.Seconds(), attrs)

	if outcome.Assets > 0 {
		m.assets.Add(ctx, int64(outcome.Assets))
	}

	if outcome.ErrorKind != "" {
		m.errors.Add(ctx, 1, metric.WithAttributes(attribute.String(attrKind, outcome.ErrorKind)))
	}
}
