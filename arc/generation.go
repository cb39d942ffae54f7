package arc

// generation is an intrusive LRU list: head is the least recently used entry
// (first to evict), tail the most recently used. All operations are O(1).
type generation[K comparable, V any] struct {
	head *entry[K, V]
	tail *entry[K, V]
	len  int
	id   Generation
}

// pushBack appends e at the MRU end and tags it with this generation.
func (g *generation[K, V]) pushBack(e *entry[K, V]) {
	e.gen = g.id
	e.next = nil
	e.prev = g.tail
	if g.tail != nil {
		g.tail.next = e
	}
	g.tail = e
	if g.head == nil {
		g.head = e
	}
	g.len++
}

// remove detaches e; e must belong to this generation.
func (g *generation[K, V]) remove(e *entry[K, V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		g.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		g.tail = e.prev
	}
	e.prev, e.next = nil, nil
	e.gen = 0
	g.len--
}

// moveToBack refreshes e to the MRU end.
func (g *generation[K, V]) moveToBack(e *entry[K, V]) {
	if g.tail == e {
		return
	}
	g.remove(e)
	g.pushBack(e)
}

// popFront removes and returns the LRU entry, or nil when empty.
func (g *generation[K, V]) popFront() *entry[K, V] {
	e := g.head
	if e == nil {
		return nil
	}
	g.remove(e)
	return e
}

func (g *generation[K, V]) reset() {
	g.head, g.tail, g.len = nil, nil, 0
}

// each walks LRU→MRU until fn returns false. It reports whether the walk
// ran to completion.
func (g *generation[K, V]) each(fn func(e *entry[K, V]) bool) bool {
	for e := g.head; e != nil; e = e.next {
		if !fn(e) {
			return false
		}
	}
	return true
}
