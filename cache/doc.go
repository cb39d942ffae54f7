// Package cache provides a generic, partitioned in-memory cache with a
// simplified ARC (Adaptive Replacement Cache) eviction policy, optional
// singleflight loading, an ordered variant with key-order enumeration and
// lightweight metrics hooks.
//
// Design
//
//   - Concurrency: the cache is split into partitions, each protected by a
//     plain Mutex. A Get reorders the partition's lists, so reads lock
//     exclusively too. The partition count is rounded up to a power of two
//     and fixed for the life of the cache.
//
//   - Routing: a key lands in partition hash(key) & (N-1). The default hash
//     (xxhash) covers strings, byte slices and arrays, integers and
//     fmt.Stringer keys. A custom Options.Hash is run through a splitmix64
//     finalizer before masking, but it remains the caller's job to supply a
//     hash that is deterministic and well spread: a poor hash degrades the
//     cache to a single hot partition.
//
//   - Replacement: each partition runs the arc package. New keys enter T1
//     (recency); a second access moves them to T2 (frequency). Both
//     generations are held at half the partition capacity and evicted LRU
//     first. No ghost entries are kept.
//
//   - Capacity: Options.Capacity is split evenly, Capacity/N per partition;
//     the remainder is not used.
//
//   - Aggregates: Len, Clear, All and Stats visit partitions one at a time.
//     They never hold more than one lock and are not atomic across the
//     cache.
//
//   - Ordered variant: NewOrdered keeps a B-tree of keys per partition.
//     Ascend and AscendRange merge per-partition sorted copies into one
//     globally ordered sequence. A comparator panic fails only the call
//     that hit it (errors.Is(err, arc.ErrIncomparableKey)).
//
//   - GetOrLoad: coalesces concurrent loads for the same key using singleflight.
//     If Loader is nil, GetOrLoad returns ErrNoLoader.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Promote/Evict/Size signals.
//     By default NoopMetrics is used; see metrics/prom and metrics/otel.
//
// Basic usage
//
//	c := cache.New[string, []byte](cache.Options[string, []byte]{
//	    Capacity:   10_000,
//	    Partitions: 16,
//	})
//	c.Put("a", []byte("1"))
//	if v, ok := c.Get("a"); ok {
//	    _ = v // use value
//	}
//	c.Remove("a")
//
// Ordered enumeration
//
//	c := cache.NewOrdered[string, int](cache.Options[string, int]{Capacity: 1024}, strings.Compare)
//	_ = c.Insert("b", 2)
//	_ = c.Insert("a", 1)
//	_ = c.Ascend(func(k string, v int) bool {
//	    fmt.Println(k, v) // a 1, then b 2
//	    return true
//	})
//
// With GetOrLoad (singleflight)
//
//	c := cache.New[string, string](cache.Options[string, string]{
//	    Capacity: 1024,
//	    Loader: func(ctx context.Context, k string) (string, error) {
//	        // e.g. fetch from a remote shard
//	        return "v:" + k, nil
//	    },
//	})
//	v, err := c.GetOrLoad(context.Background(), "key")
//
// Thread-safety & complexity
//
// All methods are safe for concurrent use. Keyed operations cost O(1)
// expected time: one map access and a constant amount of pointer fixes.
// Ordered writes add an O(log n) B-tree update.
package cache
