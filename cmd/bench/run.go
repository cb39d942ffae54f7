package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/pprof"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/arccache/cache"
	"github.com/IvanBrykalov/arccache/config"
	pmet "github.com/IvanBrykalov/arccache/metrics/prom"
)

// target is the part of both cache variants the workload needs.
type target interface {
	Get(k string) (string, bool)
	Len() int
	Stats() cache.Stats
	Close() error
}

// report summarizes one run.
type report struct {
	Elapsed time.Duration
	Ops     uint64
	Reads   uint64
	Writes  uint64
	Hits    uint64
	Misses  uint64
	Failed  uint64 // ordered writes rejected by the comparator
	Len     int
	Stats   cache.Stats
}

func (r report) HitRate() float64 {
	if r.Reads == 0 {
		return 0
	}
	return float64(r.Hits) / float64(r.Reads) * 100
}

// run is the CLI action: logging, servers, config watch and the workload,
// all bound to ctx.
func run(ctx context.Context, s settings, p *config.Properties) error {
	var lvl slog.LevelVar
	lvl.Set(parseLevel(s.LogLevel))
	logger, closer := newLogger(&lvl, s.LogFile, s.LogJSON)
	defer func() { _ = closer.Close() }()

	logger.Info("bench starting",
		slog.Int("cap", s.Capacity),
		slog.Int("partitions", s.Partitions),
		slog.Bool("ordered", s.Ordered),
		slog.Int("workers", s.Workers),
		slog.Duration("duration", s.Duration),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := pmet.New(reg, "arccache", "bench", nil)

	g, gctx := errgroup.WithContext(ctx)

	// The workload decides when everything else stops.
	runCtx, stopAll := context.WithCancel(gctx)
	defer stopAll()

	if s.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		serve(runCtx, g, logger, "metrics", s.MetricsAddr, mux)
	}
	if s.PprofAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
		serve(runCtx, g, logger, "pprof", s.PprofAddr, mux)
	}
	if s.ConfigPath != "" {
		g.Go(func() error {
			return config.Watch(runCtx, p, func(p *config.Properties, err error) {
				if err != nil {
					return
				}
				next := parseLevel(p.String("log.level", s.LogLevel))
				if next != lvl.Level() {
					lvl.Set(next)
					logger.Info("log level changed", slog.String("level", next.String()))
				}
			}, config.WithLogger(logger))
		})
	}

	var rep report
	g.Go(func() error {
		defer stopAll()
		var err error
		rep, err = workload(runCtx, s, metrics, logger)
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	printReport(s, rep)
	return nil
}

// serve runs an HTTP server until ctx ends, then shuts it down.
func serve(ctx context.Context, g *errgroup.Group, logger *slog.Logger, name, addr string, h http.Handler) {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	g.Go(func() error {
		logger.Info("serving", slog.String("server", name), slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s server: %w", name, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// workload builds the cache, preloads it and runs Zipf-distributed
// readers/writers until the duration elapses or ctx ends.
func workload(ctx context.Context, s settings, metrics cache.Metrics, logger *slog.Logger) (report, error) {
	opt := cache.Options[string, string]{
		Capacity:   s.Capacity,
		Partitions: s.Partitions,
		Metrics:    metrics,
	}

	var failed atomic.Uint64
	var c target
	var put func(k, v string)
	if s.Ordered {
		oc := cache.NewOrdered(opt, strings.Compare)
		c = oc
		put = func(k, v string) {
			if err := oc.Insert(k, v); err != nil {
				failed.Add(1)
			}
		}
	} else {
		hc := cache.New(opt)
		c = hc
		put = hc.Insert
	}
	defer func() { _ = c.Close() }()

	// ---- Preload half capacity to get a realistic hit-rate ----
	pl := s.Preload
	if pl == 0 {
		pl = s.Capacity / 2
	}
	for i := 0; i < pl; i++ {
		put("k:"+strconv.Itoa(i), "v"+strconv.Itoa(i))
	}
	logger.Debug("preloaded", slog.Int("entries", c.Len()))

	// ---- Snapshot settings for goroutines ----
	seedBase := s.Seed
	if seedBase == 0 {
		seedBase = time.Now().UnixNano()
	}
	workers := max(s.Workers, 1)
	keysMax := uint64(max(s.Keys, 2) - 1)
	zipfS := s.ZipfS
	if zipfS <= 1 {
		zipfS = 1.0001
	}
	zipfV := max(s.ZipfV, 1)

	// ---- Load generation ----
	var reads, writes, hits, misses, total atomic.Uint64
	runCtx, cancel := context.WithTimeout(ctx, s.Duration)
	defer cancel()

	start := time.Now()
	g, gctx := errgroup.WithContext(runCtx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			r := rand.New(rand.NewSource(seedBase + int64(w)*9973))
			zipf := rand.NewZipf(r, zipfS, zipfV, keysMax)
			key := func() string { return "k:" + strconv.FormatUint(zipf.Uint64(), 10) }

			for gctx.Err() == nil {
				total.Add(1)
				if r.Intn(100) < s.ReadPct {
					reads.Add(1)
					if _, ok := c.Get(key()); ok {
						hits.Add(1)
					} else {
						misses.Add(1)
					}
				} else {
					writes.Add(1)
					put(key(), "v"+strconv.Itoa(r.Int()))
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report{}, err
	}

	return report{
		Elapsed: time.Since(start),
		Ops:     total.Load(),
		Reads:   reads.Load(),
		Writes:  writes.Load(),
		Hits:    hits.Load(),
		Misses:  misses.Load(),
		Failed:  failed.Load(),
		Len:     c.Len(),
		Stats:   c.Stats(),
	}, nil
}

func printReport(s settings, r report) {
	secs := r.Elapsed.Seconds()
	if secs <= 0 {
		secs = 1
	}
	fmt.Printf("cap=%d partitions=%d ordered=%v workers=%d keys=%d dur=%v\n",
		s.Capacity, r.Stats.Partitions, s.Ordered, s.Workers, s.Keys, r.Elapsed)
	fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  writes=%d  failed=%d\n",
		r.Ops, float64(r.Ops)/secs, r.Reads, r.Writes, r.Failed)
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%\n", r.Hits, r.Misses, r.HitRate())
	fmt.Printf("T1=%d  T2=%d  promotions=%d  evictions=%d  Len()=%d\n",
		r.Stats.Recency, r.Stats.Frequency, r.Stats.Promotions, r.Stats.Evictions, r.Len)
}
