package cache

import (
	"context"
	"errors"
	"iter"
	"sync/atomic"

	"github.com/IvanBrykalov/arccache/internal/singleflight"
	"github.com/IvanBrykalov/arccache/internal/util"
)

var (
	// ErrNoLoader is returned by GetOrLoad when no Loader was configured in Options.
	ErrNoLoader = errors.New("cache: no Loader provided")
	// ErrClosed is returned by GetOrLoad and by ordered writes after Close.
	ErrClosed = errors.New("cache: closed")
)

// cache is the concurrency shell shared by both variants: routing,
// aggregation, loading and lifecycle. The partition slice never changes
// after construction.
type cache[K comparable, V any] struct {
	parts    []*partition[K, V]
	mask     uint64
	hash     func(K) uint64
	capacity int
	closed   atomic.Bool

	opt Options[K, V]

	// cache-wide resident entries, maintained by partitions on every change.
	resident util.PaddedAtomicInt64

	// singleflight group for coalescing concurrent loads in GetOrLoad.
	sf singleflight.Group[K, V]
}

// hashedCache is the Cache returned by New.
type hashedCache[K comparable, V any] struct{ *cache[K, V] }

// New constructs a cache of hashed ARC partitions.
// Invalid sizes never fail: see Options for how they are normalized.
// New panics if K has no built-in hash and Options.Hash is nil.
func New[K comparable, V any](opt Options[K, V]) Cache[K, V] {
	return hashedCache[K, V]{build(opt, nil)}
}

// NewOrdered constructs a cache whose partitions also index keys by cmp,
// which must be a total order consistent with ==.
// It panics if cmp is nil.
func NewOrdered[K comparable, V any](opt Options[K, V], cmp func(a, b K) int) OrderedCache[K, V] {
	if cmp == nil {
		panic("cache: nil comparator")
	}
	return &orderedCache[K, V]{cache: build(opt, cmp), cmp: cmp}
}

func build[K comparable, V any](opt Options[K, V], cmp func(a, b K) int) *cache[K, V] {
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Capacity < 0 {
		opt.Capacity = 0
	}

	hash := util.Hash[K]
	if h := opt.Hash; h != nil {
		hash = func(k K) uint64 { return util.Mix64(h(k)) }
	} else {
		// Fail fast on key types util.Hash cannot handle.
		var zero K
		_ = hash(zero)
	}

	n := util.PartitionCount(opt.Partitions)
	per := opt.Capacity / n

	c := &cache[K, V]{
		parts:    make([]*partition[K, V], n),
		mask:     uint64(n - 1),
		hash:     hash,
		capacity: per * n,
		opt:      opt,
	}
	for i := range c.parts {
		c.parts[i] = newPartition(per, cmp, opt, &c.resident)
	}
	return c
}

// ---- Cache[K,V] implementation ----

// Put inserts or updates k→v.
func (c hashedCache[K, V]) Put(k K, v V) (V, bool) {
	if c.closed.Load() {
		var zero V
		return zero, false
	}
	prev, ok, _ := c.partitionFor(k).Put(k, v)
	return prev, ok
}

// Insert inserts or updates k→v.
func (c hashedCache[K, V]) Insert(k K, v V) { c.Put(k, v) }

// Remove deletes k if present.
func (c hashedCache[K, V]) Remove(k K) (V, bool) {
	if c.closed.Load() {
		var zero V
		return zero, false
	}
	v, ok, _ := c.partitionFor(k).Remove(k)
	return v, ok
}

// ---- shared implementation ----

// Get returns the value for k and promotes it.
func (c *cache[K, V]) Get(k K) (V, bool) {
	if c.closed.Load() {
		var zero V
		return zero, false
	}
	return c.partitionFor(k).Get(k)
}

// Peek returns the value for k without promoting it.
func (c *cache[K, V]) Peek(k K) (V, bool) {
	if c.closed.Load() {
		var zero V
		return zero, false
	}
	return c.partitionFor(k).Peek(k)
}

// Contains reports whether k is resident.
func (c *cache[K, V]) Contains(k K) bool {
	if c.closed.Load() {
		return false
	}
	return c.partitionFor(k).Contains(k)
}

// Len returns the total number of resident entries across all partitions.
func (c *cache[K, V]) Len() int {
	total := 0
	for _, p := range c.parts {
		total += p.Len()
	}
	return total
}

// Clear empties partitions one after another.
func (c *cache[K, V]) Clear() {
	for _, p := range c.parts {
		p.Clear()
	}
}

// All yields every resident entry, partition by partition.
func (c *cache[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, p := range c.parts {
			for _, e := range p.snapshot() {
				if !yield(e.k, e.v) {
					return
				}
			}
		}
	}
}

// Stats sums the partition counters.
func (c *cache[K, V]) Stats() Stats {
	s := Stats{Partitions: len(c.parts), Capacity: c.capacity}
	for _, p := range c.parts {
		ps := p.Stats()
		s.Hits += uint64(p.hits.Load())
		s.Misses += uint64(p.misses.Load())
		s.Promotions += ps.Promotions
		s.Evictions += ps.Evictions
		s.Recency += ps.RecencyLen
		s.Frequency += ps.FrequencyLen
	}
	return s
}

// Close clears the cache and marks it closed. Future operations are ignored.
func (c *cache[K, V]) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.Clear()
	return nil
}

// GetOrLoad returns the value for k; on miss it loads via Options.Loader,
// coalescing concurrent loads for the same key (singleflight).
// If storing the loaded value fails, the value is returned with the error.
func (c *cache[K, V]) GetOrLoad(ctx context.Context, k K) (V, error) {
	var zero V
	if c.closed.Load() {
		return zero, ErrClosed
	}
	// fast path
	if v, ok := c.Get(k); ok {
		return v, nil
	}
	if c.opt.Loader == nil {
		return zero, ErrNoLoader
	}

	// singleflight: exactly one real load for the key
	v, err, _ := c.sf.Do(ctx, k, func() (V, error) {
		// double-check after flight join
		if v, ok := c.partitionFor(k).Peek(k); ok {
			return v, nil
		}
		v, err := c.opt.Loader(ctx, k)
		if err != nil {
			return v, err
		}
		if c.closed.Load() {
			return v, nil
		}
		_, _, err = c.partitionFor(k).Put(k, v)
		return v, err
	})
	return v, err
}

// ---- helpers ----

// partitionFor picks a partition by hashing the key and masking with len-1.
// len(c.parts) is guaranteed to be a power of two.
func (c *cache[K, V]) partitionFor(k K) *partition[K, V] {
	return c.parts[util.PartitionIndex(c.hash(k), c.mask)]
}
