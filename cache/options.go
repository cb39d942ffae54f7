package cache

import (
	"context"

	"github.com/IvanBrykalov/arccache/arc"
)

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
//
// Hooks are called under a partition lock; implementations must be cheap
// and safe for concurrent use.
type Metrics interface {
	Hit()
	Miss()
	// Promote is called when an entry moves from T1 to T2.
	Promote()
	// Evict is called once per entry dropped by the replacement policy,
	// with the generation the entry was evicted from.
	Evict(from arc.Generation)
	// Size reports the cache-wide resident entry count after a change.
	Size(entries int)
}

// Options configures the cache. Zero values are safe;
// defaults are applied in New():
//   - Partitions <= 0 => 1 (rounded up to a power of two otherwise)
//   - Capacity < 0    => 0 (every insert is evicted immediately)
//   - nil Hash        => util.Hash (xxhash)
//   - nil Metrics     => NoopMetrics
type Options[K comparable, V any] struct {
	// Capacity is the total entry limit. Each partition gets
	// Capacity/Partitions; the remainder is not distributed.
	Capacity int

	// Partitions is the requested partition count. It is rounded up to the
	// next power of two. util.ReasonableShardCount is a good default.
	Partitions int

	// Hash maps a key to a 64-bit hash. It is remixed before routing, but
	// it must still be deterministic and spread distinct keys over many
	// values; a constant hash funnels everything into one partition.
	Hash func(K) uint64

	// Loader fetches a value on cache miss. Used by GetOrLoad.
	Loader func(ctx context.Context, k K) (V, error)

	// OnEvict is called for every eviction under the partition lock;
	// keep callbacks lightweight and never call back into the cache.
	OnEvict func(k K, v V, from arc.Generation)

	Metrics Metrics
}
