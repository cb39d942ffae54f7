package cache

import (
	"context"
	"iter"
)

// Cache is a partitioned, in-memory key/value cache with ARC replacement.
// All methods are safe for concurrent use by multiple goroutines.
//
// Keyed operations lock exactly one partition and cost amortized O(1).
// Aggregates (Len, Clear, All, Stats) visit partitions one at a time and are
// not atomic across the whole cache.
type Cache[K comparable, V any] interface {
	// Get returns the value for k. A hit counts as an access: a key seen
	// once is promoted to the frequency generation.
	Get(k K) (V, bool)

	// Peek returns the value for k without counting an access.
	Peek(k K) (V, bool)

	// Put inserts or updates k→v and returns the previous value.
	// replaced distinguishes "no previous value" from a stored zero value.
	// Updating a resident key counts as an access and never evicts.
	Put(k K, v V) (prev V, replaced bool)

	// Insert is Put without the previous value.
	Insert(k K, v V)

	// Contains reports whether k is resident. It does not count as an access.
	Contains(k K) bool

	// Remove deletes k and returns its value.
	Remove(k K) (V, bool)

	// Len returns the number of resident entries, summed partition by partition.
	Len() int

	// Clear empties every partition.
	Clear()

	// All iterates over every resident entry. Each partition is copied under
	// its lock right before its entries are yielded; yield runs unlocked.
	All() iter.Seq2[K, V]

	// Stats returns aggregated counters and generation sizes.
	Stats() Stats

	// GetOrLoad returns the value for k, loading it via Options.Loader on miss.
	// Concurrent loads for the same key are coalesced (singleflight).
	// If no Loader was configured, returns ErrNoLoader.
	GetOrLoad(ctx context.Context, k K) (V, error)

	// Close empties the cache and marks it closed: reads miss and writes
	// are dropped from then on. It always returns nil.
	Close() error
}

// OrderedCache is a Cache whose partitions also keep keys sorted by a
// comparator, so the whole cache can be enumerated in key order.
//
// Writes consult the comparator and may fail with an error wrapping
// arc.ErrIncomparableKey; such a failure leaves the cache unchanged.
type OrderedCache[K comparable, V any] interface {
	Get(k K) (V, bool)
	Peek(k K) (V, bool)
	Contains(k K) bool
	Len() int
	Clear()
	All() iter.Seq2[K, V]
	Stats() Stats
	GetOrLoad(ctx context.Context, k K) (V, error)
	Close() error

	// Put inserts or updates k→v. See Cache.Put.
	Put(k K, v V) (prev V, replaced bool, err error)

	// Insert is Put without the previous value.
	Insert(k K, v V) error

	// Remove deletes k and returns its value.
	Remove(k K) (V, bool, error)

	// Ascend calls fn for every resident entry in ascending key order until
	// fn returns false. Partitions are copied one at a time and merged, so
	// the result is a best-effort view under concurrent writes.
	// Entries are not promoted.
	Ascend(fn func(k K, v V) bool) error

	// AscendRange is Ascend restricted to keys in [from, to).
	AscendRange(from, to K, fn func(k K, v V) bool) error
}

// Stats is a cache-wide snapshot.
type Stats struct {
	Hits       uint64
	Misses     uint64
	Promotions uint64
	Evictions  uint64

	Recency   int // entries in T1 across partitions
	Frequency int // entries in T2 across partitions

	Capacity   int // sum of partition capacities
	Partitions int
}

// Len is the number of resident entries in the snapshot.
func (s Stats) Len() int { return s.Recency + s.Frequency }

// HitRatio returns hits/(hits+misses), or 0 before the first lookup.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
