package arc

import (
	"fmt"
	"iter"
	"maps"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func collect[K comparable, V any](p interface{ All() iter.Seq2[K, V] }) map[K]V {
	out := make(map[K]V)
	for k, v := range p.All() {
		out[k] = v
	}
	return out
}

func genOf[K comparable, V any](t *testing.T, p *Partition[K, V], k K) Generation {
	t.Helper()
	g, ok := p.Generation(k)
	require.True(t, ok, "key %v must be resident", k)
	return g
}

func TestPartition_InsertOrderEvictsRecencyHead(t *testing.T) {
	t.Parallel()

	p := New[string, int](4)
	for i, k := range []string{"a", "b", "c", "d", "e"} {
		p.Put(k, i)
	}

	require.Equal(t, 4, p.Len())
	_, ok := p.Get("a")
	require.False(t, ok, "a must be evicted first")
	for _, k := range []string{"b", "c", "d", "e"} {
		require.True(t, p.Contains(k), k)
	}
}

func TestPartition_PromotedKeySurvivesRecencyChurn(t *testing.T) {
	t.Parallel()

	var evicted []string
	p := New(4, WithEvictFunc(func(k string, _ int, from Generation) {
		require.Equal(t, Recency, from)
		evicted = append(evicted, k)
	}))

	p.Put("a", 1)
	p.Put("b", 2)
	_, ok := p.Get("a")
	require.True(t, ok)
	require.Equal(t, Frequency, genOf(t, p, "a"))

	p.Put("c", 3)
	p.Put("d", 4)
	p.Put("e", 5)

	require.Equal(t, []string{"b"}, evicted)
	require.True(t, p.Contains("a"))
	require.Equal(t, Frequency, genOf(t, p, "a"))
	require.Equal(t, 4, p.Len())
}

func TestPartition_ZeroCapacityKeepsNothing(t *testing.T) {
	t.Parallel()

	evictions := 0
	p := New(0, WithEvictFunc(func(int, int, Generation) { evictions++ }))
	for i := 0; i < 10; i++ {
		_, replaced := p.Put(i, i)
		require.False(t, replaced)
		require.Zero(t, p.Len())
	}
	require.Equal(t, 10, evictions)
	require.Equal(t, uint64(10), p.Stats().Evictions)

	require.Equal(t, 0, New[int, int](-3).Cap(), "negative capacity clamps to zero")
}

func TestPartition_PutExistingPromotesWithoutEviction(t *testing.T) {
	t.Parallel()

	p := New[string, string](2)
	p.Put("a", "1")
	p.Put("b", "2")

	prev, replaced := p.Put("a", "11")
	require.True(t, replaced)
	require.Equal(t, "1", prev)
	require.Equal(t, 2, p.Len())
	require.Equal(t, Frequency, genOf(t, p, "a"))

	v, _ := p.Peek("a")
	require.Equal(t, "11", v)

	// A zero value previously stored is still reported as replaced.
	z := New[string, int](2)
	z.Put("k", 0)
	prevZ, replacedZ := z.Put("k", 7)
	require.True(t, replacedZ)
	require.Zero(t, prevZ)
}

func TestPartition_FrequencyHitRefreshes(t *testing.T) {
	t.Parallel()

	// cap 4: targets T1=2, T2=2.
	p := New[string, int](4)
	for _, k := range []string{"a", "b", "c"} {
		p.Put(k, 0)
		p.Get(k) // all three in T2
	}
	p.Get("a") // a becomes T2 MRU, b is T2 LRU

	p.Put("x", 0)
	p.Put("y", 0) // 5 > 4, T1=2 at target, T2=3 over target -> evict b
	require.False(t, p.Contains("b"))
	require.True(t, p.Contains("a"))
	require.True(t, p.Contains("c"))
}

func TestPartition_ContainsAndPeekDoNotPromote(t *testing.T) {
	t.Parallel()

	p := New[int, int](4)
	p.Put(1, 1)
	require.True(t, p.Contains(1))
	_, ok := p.Peek(1)
	require.True(t, ok)
	require.Equal(t, Recency, genOf(t, p, 1))
	require.Zero(t, p.Stats().Promotions)
}

func TestPartition_NoGhosts(t *testing.T) {
	t.Parallel()

	p := New[int, int](2)
	p.Put(1, 1)
	p.Put(2, 2)
	p.Put(3, 3) // evicts 1
	_, ok := p.Get(1)
	require.False(t, ok)

	// Re-admitted as a brand-new recency entry, not as "previously seen".
	p.Put(1, 10)
	require.Equal(t, Recency, genOf(t, p, 1))
}

func TestPartition_RemoveAndClear(t *testing.T) {
	t.Parallel()

	evictions := 0
	p := New(3, WithEvictFunc(func(int, string, Generation) { evictions++ }))
	p.Put(1, "a")
	p.Put(2, "b")
	p.Get(2)

	v, ok := p.Remove(2)
	require.True(t, ok)
	require.Equal(t, "b", v)
	_, ok = p.Remove(2)
	require.False(t, ok)
	_, ok = p.Remove(42)
	require.False(t, ok)
	require.Equal(t, 1, p.Len())

	p.Clear()
	require.Zero(t, p.Len())
	require.Empty(t, collect[int, string](p))
	require.Zero(t, evictions, "Remove and Clear are not evictions")

	p.Put(5, "e")
	require.Equal(t, map[int]string{5: "e"}, collect[int, string](p))
}

func TestPartition_AllYieldsRecencyThenFrequency(t *testing.T) {
	t.Parallel()

	p := New[int, int](8)
	for i := 0; i < 4; i++ {
		p.Put(i, i*10)
	}
	p.Get(0)
	p.Get(2)

	var keys []int
	for k := range p.All() {
		keys = append(keys, k)
	}
	require.Equal(t, []int{1, 3, 0, 2}, keys)

	n := 0
	for range p.All() {
		n++
		break
	}
	require.Equal(t, 1, n)
}

func TestPartition_Stats(t *testing.T) {
	t.Parallel()

	promoted := []int{}
	p := New(5, WithPromoteFunc[int, int](func(k int) { promoted = append(promoted, k) }))
	for i := 0; i < 6; i++ {
		p.Put(i, i)
	}
	p.Get(3)

	st := p.Stats()
	require.Equal(t, Stats{
		Capacity:        5,
		RecencyLen:      4,
		FrequencyLen:    1,
		RecencyTarget:   3,
		FrequencyTarget: 2,
		Promotions:      1,
		Evictions:       1,
	}, st)
	require.Equal(t, []int{3}, promoted)
}

// TestPartition_CapacityBoundAndNoCrossTalk drives random operations and
// checks the partition against a plain map of what must still be resident.
func TestPartition_CapacityBoundAndNoCrossTalk(t *testing.T) {
	t.Parallel()

	for _, capacity := range []int{1, 2, 3, 7, 16} {
		t.Run(fmt.Sprintf("cap=%d", capacity), func(t *testing.T) {
			t.Parallel()

			model := map[int]int{}
			p := New(capacity, WithEvictFunc(func(k, v int, _ Generation) {
				require.Equal(t, model[k], v, "evicted value must be the last stored one")
				delete(model, k)
			}))
			r := rand.New(rand.NewPCG(uint64(capacity), 7))

			for i := 0; i < 5000; i++ {
				k := r.IntN(capacity * 3)
				switch r.IntN(4) {
				case 0, 1:
					model[k] = i
					p.Put(k, i)
				case 2:
					v, ok := p.Get(k)
					mv, mok := model[k]
					require.Equal(t, mok, ok)
					require.Equal(t, mv, v)
				case 3:
					_, ok := p.Remove(k)
					_, mok := model[k]
					require.Equal(t, mok, ok)
					delete(model, k)
				}
				require.LessOrEqual(t, p.Len(), capacity)
				require.Equal(t, len(model), p.Len())
			}
			require.True(t, maps.Equal(model, collect[int, int](p)))
		})
	}
}
