package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type Metrics struct {
	StoreCommands      metric.Int64Counter
	CommandDuration    metric.Float64Histogram
	CacheHits          metric.Int64Counter
	CacheMisses        metric.Int64Counter
	RateLimitDecisions metric.Int64Counter
	ActiveInstances    metric.Int64UpDownCounter
}

func Setup(serviceName string) (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	m := &Metrics{}

	m.StoreCommands, err = meter.Int64Counter(
		"mns_store_commands_total",
		metric.WithDescription("Total number of store commands executed"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.CommandDuration, err = meter.Float64Histogram(
		"mns_store_command_duration_seconds",
		metric.WithDescription("Store command duration in seconds"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.CacheHits, err = meter.Int64Counter(
		"mns_cache_hits_total",
		metric.WithDescription("Total number of cache hits"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.CacheMisses, err = meter.Int64Counter(
		"mns_cache_misses_total",
		metric.WithDescription("Total number of cache misses"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.RateLimitDecisions, err = meter.Int64Counter(
		"mns_rate_limit_decisions_total",
		metric.WithDescription("Rate limiter decisions, labelled by outcome"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.ActiveInstances, err = meter.Int64UpDownCounter(
		"mns_store_instances",
		metric.WithDescription("Number of live store instances"),
	)
	if err != nil {
		return nil, nil, err
	}

	handler := promhttp.Handler()
	return m, handler, nil
}

func (m *Metrics) RecordCommand(ctx context.Context, command string, failed bool, duration time.Duration) {
	labels := metric.WithAttributes(
		attribute.String("command", command),
		attribute.Bool("failed", failed),
	)

	m.StoreCommands.Add(ctx, 1, labels)
	m.CommandDuration.Record(ctx, duration.Seconds(), labels)
}

func (m *Metrics) RecordCacheHit(ctx context.Context, key string) {
	m.CacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("key", key)))
}

func (m *Metrics) RecordCacheMiss(ctx context.Context, key string) {
	m.CacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("key", key)))
}

func (m *Metrics) RecordRateLimitDecision(ctx context.Context, allowed bool) {
	m.RateLimitDecisions.Add(ctx, 1, metric.WithAttributes(attribute.Bool("allowed", allowed)))
}

func (m *Metrics) IncrementInstances(ctx context.Context) {
	m.ActiveInstances.Add(ctx, 1)
}

func (m *Metrics) DecrementInstances(ctx context.Context) {
	m.ActiveInstances.Add(ctx, -1)
}
