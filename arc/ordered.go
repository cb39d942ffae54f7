package arc

import (
	"iter"

	"github.com/google/btree"
)

// btreeDegree keeps nodes around a few cache lines of keys.
const btreeDegree = 32

// Ordered is a Partition with a secondary index that keeps resident keys
// sorted by a caller-supplied comparator. Eviction is exactly the same as
// for Partition; the index only serves ordered enumeration.
//
// A comparator that panics is a caller error. The panic is recovered and the
// operation that triggered it returns an error wrapping ErrIncomparableKey.
// Inserts and removals touch the index before the hashed storage, so a
// failed call leaves the partition unchanged. If the index cannot drop a key
// being evicted, the hashed storage is still updated and ordered
// enumeration reports ErrIndexDegraded until Clear.
//
// An Ordered partition is not safe for concurrent use.
type Ordered[K comparable, V any] struct {
	p        *Partition[K, V]
	index    *btree.BTreeG[K]
	cmp      func(a, b K) int
	degraded bool
}

// comparatorPanic tags panics raised by the comparator so that guard can
// tell them apart from panics in user callbacks.
type comparatorPanic struct{ value any }

// NewOrdered creates an ordered partition. cmp must be a total order over K
// consistent with ==, returning a negative number, zero or a positive number.
func NewOrdered[K comparable, V any](capacity int, cmp func(a, b K) int, opts ...Option[K, V]) *Ordered[K, V] {
	if cmp == nil {
		panic("arc: nil comparator")
	}
	o := &Ordered[K, V]{
		p:   New(capacity, opts...),
		cmp: cmp,
	}
	o.index = btree.NewG(btreeDegree, func(a, b K) bool {
		defer func() {
			if r := recover(); r != nil {
				panic(comparatorPanic{r})
			}
		}()
		return cmp(a, b) < 0
	})
	o.p.dropped = o.unindex
	return o
}

// Get returns the value for k and counts the access, like Partition.Get.
func (o *Ordered[K, V]) Get(k K) (V, bool) { return o.p.Get(k) }

// Peek returns the value for k without touching generation order.
func (o *Ordered[K, V]) Peek(k K) (V, bool) { return o.p.Peek(k) }

// Contains reports whether k is resident.
func (o *Ordered[K, V]) Contains(k K) bool { return o.p.Contains(k) }

// Len returns the number of resident entries.
func (o *Ordered[K, V]) Len() int { return o.p.Len() }

// Cap returns the partition capacity.
func (o *Ordered[K, V]) Cap() int { return o.p.Cap() }

// Generation reports which generation currently holds k.
func (o *Ordered[K, V]) Generation(k K) (Generation, bool) { return o.p.Generation(k) }

// Stats returns the current sizes, targets and counters.
func (o *Ordered[K, V]) Stats() Stats { return o.p.Stats() }

// All yields entries in generation order, see Partition.All.
func (o *Ordered[K, V]) All() iter.Seq2[K, V] { return o.p.All() }

// Degraded reports whether the ordered index has fallen out of sync with
// the hashed storage.
func (o *Ordered[K, V]) Degraded() bool { return o.degraded }

// Put stores v under k. A new key is indexed first; if the comparator
// fails, nothing is stored and the error wraps ErrIncomparableKey.
// Overwriting a resident key does not consult the comparator.
func (o *Ordered[K, V]) Put(k K, v V) (prev V, replaced bool, err error) {
	if o.p.Contains(k) {
		prev, replaced = o.p.Put(k, v)
		return prev, replaced, nil
	}

	var clash K
	var clashed bool
	err = o.guard("insert", k, func() {
		clash, clashed = o.index.ReplaceOrInsert(k)
		if clashed {
			// cmp(clash, k) == 0 for two different resident keys: put the
			// original back before reporting.
			o.index.ReplaceOrInsert(clash)
		}
	})
	if err != nil {
		return prev, false, err
	}
	if clashed {
		return prev, false, equalKeysError(k, clash)
	}

	prev, replaced = o.p.Put(k, v)
	return prev, replaced, nil
}

// Remove deletes k. When the comparator fails the entry stays resident and
// the error wraps ErrIncomparableKey.
func (o *Ordered[K, V]) Remove(k K) (V, bool, error) {
	var zero V
	if !o.p.Contains(k) {
		return zero, false, nil
	}
	var found bool
	if err := o.guard("remove", k, func() { _, found = o.index.Delete(k) }); err != nil {
		return zero, false, err
	}
	if !found {
		o.degraded = true
	}
	v, ok := o.p.Remove(k)
	return v, ok, nil
}

// Clear drops every entry and rebuilds an empty, healthy index.
func (o *Ordered[K, V]) Clear() {
	o.p.Clear()
	o.index.Clear(false)
	o.degraded = false
}

// Ascend calls fn for every resident entry in ascending key order until fn
// returns false. It does not count as an access.
func (o *Ordered[K, V]) Ascend(fn func(k K, v V) bool) error {
	if o.degraded {
		return ErrIndexDegraded
	}
	o.index.Ascend(o.visit(fn))
	return nil
}

// AscendRange is Ascend restricted to keys in [from, to).
func (o *Ordered[K, V]) AscendRange(from, to K, fn func(k K, v V) bool) error {
	if o.degraded {
		return ErrIndexDegraded
	}
	return o.guard("range", from, func() { o.index.AscendRange(from, to, o.visit(fn)) })
}

// Min returns the smallest resident key and its value.
func (o *Ordered[K, V]) Min() (K, V, bool, error) { return o.edge(o.index.Min) }

// Max returns the largest resident key and its value.
func (o *Ordered[K, V]) Max() (K, V, bool, error) { return o.edge(o.index.Max) }

// ---- helpers ----

func (o *Ordered[K, V]) edge(pick func() (K, bool)) (K, V, bool, error) {
	var zv V
	if o.degraded {
		var zk K
		return zk, zv, false, ErrIndexDegraded
	}
	k, ok := pick()
	if !ok {
		return k, zv, false, nil
	}
	e := o.p.items[k]
	return k, e.val, true, nil
}

func (o *Ordered[K, V]) visit(fn func(K, V) bool) btree.ItemIteratorG[K] {
	return func(k K) bool {
		e, ok := o.p.items[k]
		if !ok {
			return true
		}
		return fn(k, e.val)
	}
}

// unindex runs inside Partition.evict for every victim.
func (o *Ordered[K, V]) unindex(k K) {
	if err := o.guard("evict", k, func() {
		if _, ok := o.index.Delete(k); !ok {
			o.degraded = true
		}
	}); err != nil {
		o.degraded = true
	}
}

// guard runs fn and converts a comparator panic into an error. Any other
// panic, such as one raised by a user callback, is propagated.
func (o *Ordered[K, V]) guard(op string, k K, fn func()) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		cp, ok := r.(comparatorPanic)
		if !ok {
			panic(r)
		}
		err = incomparableKeyError(op, k, cp.value)
	}()
	fn()
	return nil
}
