// Package arc implements the single-threaded replacement engine behind the
// partitioned cache: a simplified Adaptive Replacement Cache with two
// generations and fixed targets.
//
//   - T1 (Recency) holds keys seen once since admission.
//   - T2 (Frequency) holds keys accessed at least twice.
//
// Both generations are LRU lists. Their targets are fixed at half of the
// partition capacity each; the classical adaptive split and the B1/B2 ghost
// lists are intentionally absent, so an evicted key comes back as a brand
// new T1 entry.
//
// Two variants share that contract:
//
//	p := arc.New[string, int](128)
//	o := arc.NewOrdered[string, int](128, strings.Compare)
//
// The ordered variant keeps a B-tree of resident keys for sorted
// enumeration. The comparator never influences eviction.
//
// Neither type is safe for concurrent use; package cache adds locking and
// partitioning on top.
package arc
