package config

import "github.com/IvanBrykalov/arccache/internal/util"

// DefaultCacheSize is the total capacity used when none is configured.
const DefaultCacheSize = 100_000

// CacheConfig sizes a cache.
type CacheConfig struct {
	// Size is the total entry capacity.
	Size int `koanf:"size"`
	// Partitions is the requested partition count; rounded up by the cache.
	Partitions int `koanf:"partitions"`
	// Ordered selects the comparator-indexed variant.
	Ordered bool `koanf:"ordered"`
}

// LoadCacheConfig reads <prefix>.size, <prefix>.partitions and
// <prefix>.ordered. Missing or malformed values fall back to
// DefaultCacheSize, util.ReasonableShardCount() and false.
func LoadCacheConfig(p *Properties, prefix string) CacheConfig {
	key := func(name string) string {
		if prefix == "" {
			return name
		}
		return prefix + p.opts.delim + name
	}
	return CacheConfig{
		Size:       p.Int(key("size"), DefaultCacheSize),
		Partitions: p.Int(key("partitions"), util.ReasonableShardCount()),
		Ordered:    p.Bool(key("ordered"), false),
	}
}
