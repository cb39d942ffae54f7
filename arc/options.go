package arc

// Option configures a Partition or an Ordered partition.
type Option[K comparable, V any] func(*config[K, V])

type config[K comparable, V any] struct {
	onEvict   func(k K, v V, from Generation)
	onPromote func(k K)
}

// WithEvictFunc registers fn to be called for every entry dropped by the
// replacement policy. Remove and Clear do not count as evictions.
// fn runs inside the partition's critical section: keep it short and never
// call back into the same partition.
func WithEvictFunc[K comparable, V any](fn func(k K, v V, from Generation)) Option[K, V] {
	return func(c *config[K, V]) { c.onEvict = fn }
}

// WithPromoteFunc registers fn to be called whenever an entry moves from the
// recency generation to the frequency generation.
func WithPromoteFunc[K comparable, V any](fn func(k K)) Option[K, V] {
	return func(c *config[K, V]) { c.onPromote = fn }
}

func buildConfig[K comparable, V any](opts []Option[K, V]) config[K, V] {
	var c config[K, V]
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	return c
}
