package arc

// Generation names the resident list an entry lives in.
type Generation uint8

const (
	// Recency is T1: entries accessed once since they were admitted.
	Recency Generation = iota + 1
	// Frequency is T2: entries accessed at least twice.
	Frequency
)

func (g Generation) String() string {
	switch g {
	case Recency:
		return "recency"
	case Frequency:
		return "frequency"
	default:
		return "none"
	}
}

// entry is an intrusive doubly linked list element owned by one generation
// of one partition. prev points towards the LRU head, next towards the MRU tail.
type entry[K comparable, V any] struct {
	key K
	val V

	prev *entry[K, V]
	next *entry[K, V]

	gen Generation
}
