// Package prom exports cache.Metrics to Prometheus.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/IvanBrykalov/arccache/arc"
	"github.com/IvanBrykalov/arccache/cache"
)

// Adapter implements cache.Metrics and exports Prometheus counters/gauges.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	hits     prometheus.Counter
	misses   prometheus.Counter
	promotes prometheus.Counter
	evicts   [arc.Frequency + 1]prometheus.Counter
	size     prometheus.Gauge
}

// New constructs a Prometheus metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		})
	}
	evicts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "evictions_total",
			Help:        "Entries dropped by the replacement policy, by source generation",
			ConstLabels: constLabels,
		},
		[]string{"generation"},
	)
	a := &Adapter{
		hits:     counter("hits_total", "Cache hits"),
		misses:   counter("misses_total", "Cache misses"),
		promotes: counter("promotions_total", "Entries promoted from the recency to the frequency generation"),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "size_entries",
			Help:        "Number of resident entries",
			ConstLabels: constLabels,
		}),
	}
	// Resolve label children once; Evict runs under a partition lock.
	for _, g := range []arc.Generation{arc.Recency, arc.Frequency} {
		a.evicts[g] = evicts.WithLabelValues(g.String())
	}
	reg.MustRegister(a.hits, a.misses, a.promotes, evicts, a.size)
	return a
}

// Hit increments the hit counter.
func (a *Adapter) Hit() { a.hits.Inc() }

// Miss increments the miss counter.
func (a *Adapter) Miss() { a.misses.Inc() }

// Promote increments the promotion counter.
func (a *Adapter) Promote() { a.promotes.Inc() }

// Evict increments the eviction counter for the source generation.
func (a *Adapter) Evict(from arc.Generation) {
	if from == arc.Recency || from == arc.Frequency {
		a.evicts[from].Inc()
	}
}

// Size updates the resident entries gauge.
func (a *Adapter) Size(entries int) { a.size.Set(float64(entries)) }

// Compile-time check: ensure Adapter implements cache.Metrics.
var _ cache.Metrics = (*Adapter)(nil)
