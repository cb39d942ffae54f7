package arc

import "iter"

// Stats is a point-in-time view of one partition.
type Stats struct {
	Capacity        int
	RecencyLen      int // |T1|
	FrequencyLen    int // |T2|
	RecencyTarget   int
	FrequencyTarget int
	Promotions      uint64 // T1 -> T2 moves
	Evictions       uint64
}

// Partition is a bounded two-generation cache.
//
// New keys enter the recency generation (T1). A second access, read or write,
// promotes the key to the frequency generation (T2); further accesses refresh
// it there. Each generation has a fixed target of half the capacity (the odd
// slot goes to T1), and when the partition overflows the generation that is
// above its target gives up its least recently used entry. Evicted keys are
// forgotten entirely: there are no ghost lists and no adaptive target.
//
// A Partition is not safe for concurrent use.
type Partition[K comparable, V any] struct {
	items    map[K]*entry[K, V]
	t1, t2   generation[K, V]
	capacity int
	target1  int
	target2  int

	cfg config[K, V]
	// dropped is called for each evicted key before onEvict.
	// The ordered variant uses it to keep its index in sync.
	dropped func(k K)

	promotions uint64
	evictions  uint64
}

// New creates a partition holding at most capacity entries. A negative
// capacity is treated as zero; a zero-capacity partition keeps nothing.
func New[K comparable, V any](capacity int, opts ...Option[K, V]) *Partition[K, V] {
	if capacity < 0 {
		capacity = 0
	}
	half := capacity / 2
	return &Partition[K, V]{
		items:    make(map[K]*entry[K, V], capacity),
		t1:       generation[K, V]{id: Recency},
		t2:       generation[K, V]{id: Frequency},
		capacity: capacity,
		target1:  capacity - half,
		target2:  half,
		cfg:      buildConfig(opts),
	}
}

// Get returns the value for k and counts the access: a T1 hit is promoted to
// T2, a T2 hit is refreshed.
func (p *Partition[K, V]) Get(k K) (V, bool) {
	e, ok := p.items[k]
	if !ok {
		var zero V
		return zero, false
	}
	p.touch(e)
	return e.val, true
}

// Peek returns the value for k without touching generation order.
func (p *Partition[K, V]) Peek(k K) (V, bool) {
	if e, ok := p.items[k]; ok {
		return e.val, true
	}
	var zero V
	return zero, false
}

// Put stores v under k and returns the previous value, if any.
// Overwriting an existing key counts as an access and never evicts.
// A new key is admitted to T1 and the partition is trimmed back to capacity.
func (p *Partition[K, V]) Put(k K, v V) (prev V, replaced bool) {
	if e, ok := p.items[k]; ok {
		prev = e.val
		e.val = v
		p.touch(e)
		return prev, true
	}

	e := &entry[K, V]{key: k, val: v}
	p.items[k] = e
	p.t1.pushBack(e)
	p.evict()
	return prev, false
}

// Contains reports whether k is resident. Order is not affected.
func (p *Partition[K, V]) Contains(k K) bool {
	_, ok := p.items[k]
	return ok
}

// Remove deletes k and returns its value. It never triggers eviction.
func (p *Partition[K, V]) Remove(k K) (V, bool) {
	e, ok := p.items[k]
	if !ok {
		var zero V
		return zero, false
	}
	p.unlink(e)
	delete(p.items, k)
	return e.val, true
}

// Clear drops every entry. Counters are kept.
func (p *Partition[K, V]) Clear() {
	clear(p.items)
	p.t1.reset()
	p.t2.reset()
}

// Len returns |T1| + |T2|.
func (p *Partition[K, V]) Len() int { return p.t1.len + p.t2.len }

// Cap returns the partition capacity.
func (p *Partition[K, V]) Cap() int { return p.capacity }

// Generation reports which generation currently holds k.
func (p *Partition[K, V]) Generation(k K) (Generation, bool) {
	e, ok := p.items[k]
	if !ok {
		return 0, false
	}
	return e.gen, true
}

// All yields every resident entry: T1 from LRU to MRU, then T2 likewise.
// Callers must not rely on the order across generations, and must not
// mutate the partition while ranging.
func (p *Partition[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		visit := func(e *entry[K, V]) bool { return yield(e.key, e.val) }
		if !p.t1.each(visit) {
			return
		}
		p.t2.each(visit)
	}
}

// Stats returns the current sizes, targets and counters.
func (p *Partition[K, V]) Stats() Stats {
	return Stats{
		Capacity:        p.capacity,
		RecencyLen:      p.t1.len,
		FrequencyLen:    p.t2.len,
		RecencyTarget:   p.target1,
		FrequencyTarget: p.target2,
		Promotions:      p.promotions,
		Evictions:       p.evictions,
	}
}

// touch applies the access rule: promote out of T1, refresh within T2.
func (p *Partition[K, V]) touch(e *entry[K, V]) {
	if e.gen == Recency {
		p.t1.remove(e)
		p.t2.pushBack(e)
		p.promotions++
		if p.cfg.onPromote != nil {
			p.cfg.onPromote(e.key)
		}
		return
	}
	p.t2.moveToBack(e)
}

func (p *Partition[K, V]) unlink(e *entry[K, V]) {
	if e.gen == Recency {
		p.t1.remove(e)
	} else {
		p.t2.remove(e)
	}
}

// evict trims the partition back to capacity. The generation above its
// target loses its LRU entry first; otherwise whichever generation is
// non-empty gives way, T1 first.
func (p *Partition[K, V]) evict() {
	for p.Len() > p.capacity {
		var victim *entry[K, V]
		var from Generation
		switch {
		case p.t1.len > p.target1:
			victim, from = p.t1.popFront(), Recency
		case p.t2.len > p.target2:
			victim, from = p.t2.popFront(), Frequency
		case p.t1.len > 0:
			victim, from = p.t1.popFront(), Recency
		default:
			victim, from = p.t2.popFront(), Frequency
		}
		if victim == nil {
			return
		}
		delete(p.items, victim.key)
		p.evictions++
		if p.dropped != nil {
			p.dropped(victim.key)
		}
		if p.cfg.onEvict != nil {
			p.cfg.onEvict(victim.key, victim.val, from)
		}
	}
}
