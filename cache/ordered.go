package cache

import (
	"container/heap"
	"fmt"

	"github.com/IvanBrykalov/arccache/arc"
)

// orderedCache is the OrderedCache returned by NewOrdered.
type orderedCache[K comparable, V any] struct {
	*cache[K, V]
	cmp func(a, b K) int
}

// Put inserts or updates k→v. It returns ErrClosed after Close.
func (c *orderedCache[K, V]) Put(k K, v V) (V, bool, error) {
	if c.closed.Load() {
		var zero V
		return zero, false, ErrClosed
	}
	return c.partitionFor(k).Put(k, v)
}

// Insert inserts or updates k→v.
func (c *orderedCache[K, V]) Insert(k K, v V) error {
	_, _, err := c.Put(k, v)
	return err
}

// Remove deletes k if present.
func (c *orderedCache[K, V]) Remove(k K) (V, bool, error) {
	if c.closed.Load() {
		var zero V
		return zero, false, ErrClosed
	}
	return c.partitionFor(k).Remove(k)
}

// Ascend enumerates the whole cache in key order.
func (c *orderedCache[K, V]) Ascend(fn func(k K, v V) bool) error {
	return c.ascend(nil, nil, fn)
}

// AscendRange enumerates keys in [from, to) in key order.
func (c *orderedCache[K, V]) AscendRange(from, to K, fn func(k K, v V) bool) error {
	return c.ascend(&from, &to, fn)
}

// ascend copies each partition's sorted run under its lock, then merges
// the runs outside any lock.
func (c *orderedCache[K, V]) ascend(from, to *K, fn func(K, V) bool) (err error) {
	if c.closed.Load() {
		return nil
	}
	runs := make([][]pair[K, V], 0, len(c.parts))
	for i, p := range c.parts {
		run, serr := p.sortedSnapshot(from, to)
		if serr != nil {
			return fmt.Errorf("cache: partition %d: %w", i, serr)
		}
		if len(run) > 0 {
			runs = append(runs, run)
		}
	}

	switch len(runs) {
	case 0:
		return nil
	case 1:
		for _, e := range runs[0] {
			if !fn(e.k, e.v) {
				return nil
			}
		}
		return nil
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		cp, ok := r.(mergePanic)
		if !ok {
			panic(r)
		}
		err = fmt.Errorf("%w: merge: %v", arc.ErrIncomparableKey, cp.value)
	}()

	h := &runHeap[K, V]{runs: runs, cmp: c.cmp}
	heap.Init(h)
	for h.Len() > 0 {
		top := h.runs[0]
		if !fn(top[0].k, top[0].v) {
			return nil
		}
		if len(top) == 1 {
			heap.Pop(h)
		} else {
			h.runs[0] = top[1:]
			heap.Fix(h, 0)
		}
	}
	return nil
}

// mergePanic tags comparator panics raised while merging runs.
type mergePanic struct{ value any }

// runHeap orders sorted runs by their head key.
type runHeap[K comparable, V any] struct {
	runs [][]pair[K, V]
	cmp  func(a, b K) int
}

func (h *runHeap[K, V]) Len() int { return len(h.runs) }

func (h *runHeap[K, V]) Less(i, j int) (less bool) {
	defer func() {
		if r := recover(); r != nil {
			panic(mergePanic{r})
		}
	}()
	return h.cmp(h.runs[i][0].k, h.runs[j][0].k) < 0
}

func (h *runHeap[K, V]) Swap(i, j int) { h.runs[i], h.runs[j] = h.runs[j], h.runs[i] }

func (h *runHeap[K, V]) Push(x any) { h.runs = append(h.runs, x.([]pair[K, V])) }

func (h *runHeap[K, V]) Pop() any {
	last := h.runs[len(h.runs)-1]
	h.runs = h.runs[:len(h.runs)-1]
	return last
}
