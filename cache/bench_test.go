package cache

import (
	"math/rand/v2"
	"strconv"
	"sync/atomic"
	"testing"

	hcarc "github.com/hashicorp/golang-lru/arc/v2"

	"github.com/IvanBrykalov/arccache/internal/util"
)

// benchmarkMix exercises a read/write mix against a warm cache.
// It uses parallel workers (RunParallel spawns GOMAXPROCS goroutines).
// String keys include strconv/concat costs and often allocate, which is fine
// for an end-to-end benchmark.
func benchmarkMix(b *testing.B, readsPct int) {
	c := New[string, string](Options[string, string]{
		Capacity:   100_000,
		Partitions: util.ReasonableShardCount(),
	})
	b.Cleanup(func() { _ = c.Close() })

	// Preload half the capacity to get a realistic hit-rate.
	for i := 0; i < 50_000; i++ {
		c.Insert("k:"+strconv.Itoa(i), "v")
	}

	b.ReportAllocs()
	b.ResetTimer()

	var seed atomic.Uint64
	keyMask := (1 << 16) - 1 // hot keyspace (power of two for fast &-mask)

	b.RunParallel(func(pb *testing.PB) {
		// Independent RNG stream for each worker.
		r := rand.New(rand.NewPCG(seed.Add(1), 1))
		i := 0
		for pb.Next() {
			k := "k:" + strconv.Itoa(i&keyMask)
			if r.IntN(100) < readsPct {
				c.Get(k)
			} else {
				c.Insert(k, "v")
			}
			i++
		}
	})
}

func BenchmarkCache_90r10w(b *testing.B) { benchmarkMix(b, 90) }
func BenchmarkCache_50r50w(b *testing.B) { benchmarkMix(b, 50) }

// intCache is the subset shared by this cache and the reference ARC.
type intCache interface {
	Get(k int) (int, bool)
	Insert(k, v int)
}

type hcarcWrapper struct{ *hcarc.ARCCache[int, int] }

func (w hcarcWrapper) Insert(k, v int) { w.Add(k, v) }

// benchmarkMixInt is the same workload with int keys, run against this
// cache and, for reference, the classical (adaptive, ghost-tracking) ARC
// behind a single lock.
func benchmarkMixInt(b *testing.B, readsPct int) {
	ctors := []struct {
		name string
		new  func(capacity int) intCache
	}{
		{"partitioned", func(capacity int) intCache {
			return New[int, int](Options[int, int]{Capacity: capacity, Partitions: util.ReasonableShardCount()})
		}},
		{"hashicorp-arc", func(capacity int) intCache {
			c, err := hcarc.NewARC[int, int](capacity)
			if err != nil {
				b.Fatal(err)
			}
			return hcarcWrapper{c}
		}},
	}

	for _, ctor := range ctors {
		b.Run(ctor.name, func(b *testing.B) {
			c := ctor.new(100_000)
			for i := 0; i < 50_000; i++ {
				c.Insert(i, 1)
			}

			b.ReportAllocs()
			b.ResetTimer()

			var seed atomic.Uint64
			keyMask := (1 << 17) - 1

			var hits, lookups atomic.Int64
			b.RunParallel(func(pb *testing.PB) {
				r := rand.New(rand.NewPCG(seed.Add(1), 2))
				var h, l int64
				for pb.Next() {
					k := int(r.Uint64()) & keyMask
					if r.IntN(100) < readsPct {
						l++
						if _, ok := c.Get(k); ok {
							h++
						}
					} else {
						c.Insert(k, 1)
					}
				}
				hits.Add(h)
				lookups.Add(l)
			})
			if n := lookups.Load(); n > 0 {
				b.ReportMetric(float64(hits.Load())/float64(n), "hit-ratio")
			}
		})
	}
}

func BenchmarkCache_IntKeys_90r10w(b *testing.B) { benchmarkMixInt(b, 90) }
func BenchmarkCache_IntKeys_50r50w(b *testing.B) { benchmarkMixInt(b, 50) }
