// Package otel exports cache.Metrics through an OpenTelemetry MeterProvider.
package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/IvanBrykalov/arccache/arc"
	"github.com/IvanBrykalov/arccache/cache"
)

const (
	defaultInstrumentationName = "github.com/IvanBrykalov/arccache"

	metricHits       = "arccache.hits"
	metricMisses     = "arccache.misses"
	metricPromotions = "arccache.promotions"
	metricEvictions  = "arccache.evictions"
	metricSize       = "arccache.size"
)

type config struct {
	instrumentationName string
	meterProvider       metric.MeterProvider
	attrs               []attribute.KeyValue
}

// Option configures the adapter.
type Option func(*config)

// WithInstrumentationName sets the meter name.
func WithInstrumentationName(name string) Option {
	return func(cfg *config) {
		if name != "" {
			cfg.instrumentationName = name
		}
	}
}

// WithMeterProvider sets the provider; the global one is used otherwise.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(cfg *config) {
		if provider != nil {
			cfg.meterProvider = provider
		}
	}
}

// WithAttributes adds static attributes to every measurement, e.g. a cache name.
func WithAttributes(attrs ...attribute.KeyValue) Option {
	return func(cfg *config) { cfg.attrs = append(cfg.attrs, attrs...) }
}

// Adapter implements cache.Metrics on top of OpenTelemetry instruments.
type Adapter struct {
	hits, misses, promotes metric.Int64Counter
	evicts                 metric.Int64Counter
	size                   metric.Int64Gauge

	base   metric.MeasurementOption
	byGen  [arc.Frequency + 1]metric.MeasurementOption
	record context.Context
}

// New creates the instruments. Errors come from the MeterProvider.
func New(opts ...Option) (*Adapter, error) {
	cfg := &config{
		instrumentationName: defaultInstrumentationName,
		meterProvider:       otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	meter := cfg.meterProvider.Meter(cfg.instrumentationName)

	counter := func(name, desc string) (metric.Int64Counter, error) {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit("1"))
		if err != nil {
			return nil, fmt.Errorf("otel: create counter %s: %w", name, err)
		}
		return c, nil
	}

	a := &Adapter{record: context.Background()}
	var err error
	if a.hits, err = counter(metricHits, "cache hits"); err != nil {
		return nil, err
	}
	if a.misses, err = counter(metricMisses, "cache misses"); err != nil {
		return nil, err
	}
	if a.promotes, err = counter(metricPromotions, "entries promoted from recency to frequency"); err != nil {
		return nil, err
	}
	if a.evicts, err = counter(metricEvictions, "entries evicted, by source generation"); err != nil {
		return nil, err
	}
	a.size, err = meter.Int64Gauge(metricSize, metric.WithDescription("resident entries"), metric.WithUnit("1"))
	if err != nil {
		return nil, fmt.Errorf("otel: create gauge %s: %w", metricSize, err)
	}

	a.base = metric.WithAttributeSet(attribute.NewSet(cfg.attrs...))
	for _, g := range []arc.Generation{arc.Recency, arc.Frequency} {
		kv := append([]attribute.KeyValue{attribute.String("generation", g.String())}, cfg.attrs...)
		a.byGen[g] = metric.WithAttributeSet(attribute.NewSet(kv...))
	}
	return a, nil
}

func (a *Adapter) Hit()     { a.hits.Add(a.record, 1, a.base) }
func (a *Adapter) Miss()    { a.misses.Add(a.record, 1, a.base) }
func (a *Adapter) Promote() { a.promotes.Add(a.record, 1, a.base) }

func (a *Adapter) Evict(from arc.Generation) {
	if from == arc.Recency || from == arc.Frequency {
		a.evicts.Add(a.record, 1, a.byGen[from])
	}
}

func (a *Adapter) Size(entries int) { a.size.Record(a.record, int64(entries), a.base) }

var _ cache.Metrics = (*Adapter)(nil)
