package cache

import (
	"sync"

	"github.com/IvanBrykalov/arccache/arc"
	"github.com/IvanBrykalov/arccache/internal/util"
)

// engine is the keyed contract shared by both partition variants.
// The variant is fixed when the cache is built.
type engine[K comparable, V any] interface {
	Get(k K) (V, bool)
	Peek(k K) (V, bool)
	Contains(k K) bool
	Len() int
	Clear()
	Stats() arc.Stats
	put(k K, v V) (V, bool, error)
	remove(k K) (V, bool, error)
	// appendAll copies resident entries into dst.
	appendAll(dst []pair[K, V]) []pair[K, V]
}

type pair[K comparable, V any] struct {
	k K
	v V
}

// hashedEngine adapts arc.Partition; its writes never fail.
type hashedEngine[K comparable, V any] struct{ *arc.Partition[K, V] }

func (e hashedEngine[K, V]) put(k K, v V) (V, bool, error) {
	prev, ok := e.Put(k, v)
	return prev, ok, nil
}

func (e hashedEngine[K, V]) remove(k K) (V, bool, error) {
	v, ok := e.Remove(k)
	return v, ok, nil
}

func (e hashedEngine[K, V]) appendAll(dst []pair[K, V]) []pair[K, V] {
	for k, v := range e.All() {
		dst = append(dst, pair[K, V]{k, v})
	}
	return dst
}

// orderedEngine adapts arc.Ordered.
type orderedEngine[K comparable, V any] struct{ *arc.Ordered[K, V] }

func (e orderedEngine[K, V]) put(k K, v V) (V, bool, error) { return e.Put(k, v) }
func (e orderedEngine[K, V]) remove(k K) (V, bool, error)   { return e.Remove(k) }

func (e orderedEngine[K, V]) appendAll(dst []pair[K, V]) []pair[K, V] {
	for k, v := range e.All() {
		dst = append(dst, pair[K, V]{k, v})
	}
	return dst
}

// partition is one independently locked slice of the cache.
// Every operation, reads included, takes mu: a Get reorders the generations.
type partition[K comparable, V any] struct {
	// ---- guarded by mu ----
	mu  sync.Mutex
	eng engine[K, V]
	ord *arc.Ordered[K, V] // nil for hashed partitions

	metrics Metrics
	// resident is the cache-wide entry count shared by all partitions.
	resident *util.PaddedAtomicInt64

	// ---- hot counters (separate cache lines to avoid false sharing) ----
	_      util.CacheLinePad
	hits   util.PaddedAtomicInt64
	misses util.PaddedAtomicInt64
}

// newPartition builds a partition of the given capacity. cmp selects the
// ordered variant when non-nil.
func newPartition[K comparable, V any](capacity int, cmp func(a, b K) int, opt Options[K, V], resident *util.PaddedAtomicInt64) *partition[K, V] {
	p := &partition[K, V]{metrics: opt.Metrics, resident: resident}

	m := opt.Metrics
	onEvict := opt.OnEvict
	hooks := []arc.Option[K, V]{
		arc.WithPromoteFunc[K, V](func(K) { m.Promote() }),
		arc.WithEvictFunc(func(k K, v V, from arc.Generation) {
			m.Evict(from)
			if onEvict != nil {
				onEvict(k, v, from)
			}
		}),
	}

	if cmp != nil {
		p.ord = arc.NewOrdered(capacity, cmp, hooks...)
		p.eng = orderedEngine[K, V]{p.ord}
	} else {
		p.eng = hashedEngine[K, V]{arc.New(capacity, hooks...)}
	}
	return p
}

func (p *partition[K, V]) Get(k K) (V, bool) {
	p.mu.Lock()
	v, ok := p.eng.Get(k)
	if ok {
		p.hits.Add(1)
		p.metrics.Hit()
	} else {
		p.misses.Add(1)
		p.metrics.Miss()
	}
	p.mu.Unlock()
	return v, ok
}

func (p *partition[K, V]) Peek(k K) (V, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.eng.Peek(k)
}

func (p *partition[K, V]) Contains(k K) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.eng.Contains(k)
}

func (p *partition[K, V]) Put(k K, v V) (V, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	before := p.eng.Len()
	prev, replaced, err := p.eng.put(k, v)
	p.resizedLocked(before)
	return prev, replaced, err
}

func (p *partition[K, V]) Remove(k K) (V, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	before := p.eng.Len()
	v, ok, err := p.eng.remove(k)
	p.resizedLocked(before)
	return v, ok, err
}

func (p *partition[K, V]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.eng.Len()
}

func (p *partition[K, V]) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	before := p.eng.Len()
	p.eng.Clear()
	p.resizedLocked(before)
}

// snapshot copies the resident entries under the lock.
func (p *partition[K, V]) snapshot() []pair[K, V] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.eng.appendAll(make([]pair[K, V], 0, p.eng.Len()))
}

// sortedSnapshot copies entries in key order, optionally limited to
// [from, to). Only valid for ordered partitions.
func (p *partition[K, V]) sortedSnapshot(from, to *K) ([]pair[K, V], error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]pair[K, V], 0, p.ord.Len())
	collect := func(k K, v V) bool {
		out = append(out, pair[K, V]{k, v})
		return true
	}
	var err error
	if from != nil {
		err = p.ord.AscendRange(*from, *to, collect)
	} else {
		err = p.ord.Ascend(collect)
	}
	return out, err
}

func (p *partition[K, V]) Stats() arc.Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.eng.Stats()
}

// ---- helpers ----

// resizedLocked publishes the change in resident entries, if any.
func (p *partition[K, V]) resizedLocked(before int) {
	delta := p.eng.Len() - before
	if delta == 0 {
		return
	}
	n := p.resident.Add(int64(delta))
	p.metrics.Size(int(n))
}
