package util

import "runtime"

// MaxPartitions caps both the heuristic and explicit partition counts.
const MaxPartitions = 1 << 16

// ReasonableShardCount picks a practical default partition count based on CPU
// parallelism. Heuristic: nextPow2(2*GOMAXPROCS), clamped to [1..256].
func ReasonableShardCount() int {
	p := runtime.GOMAXPROCS(0)
	if p < 1 {
		p = 1
	}
	n := int(NextPow2(uint64(p * 2)))
	if n > 256 {
		n = 256
	}
	return n
}

// PartitionCount normalizes a requested partition count: non-positive values
// degrade to a single partition, everything else is rounded up to a power of
// two and clamped to MaxPartitions.
func PartitionCount(requested int) int {
	if requested <= 1 {
		return 1
	}
	if requested > MaxPartitions {
		return MaxPartitions
	}
	return int(NextPow2(uint64(requested)))
}

// PartitionIndex maps a 64-bit hash to a partition index.
// mask must be partitionCount-1 with partitionCount a power of two.
func PartitionIndex(hash, mask uint64) int {
	return int(hash & mask)
}
