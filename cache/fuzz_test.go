package cache

import (
	"strings"
	"testing"
)

// Fuzz basic Put/Get/Remove semantics under arbitrary string inputs.
// Guards against panics and ensures core invariants hold.
func FuzzCache_PutGetRemove(f *testing.F) {
	// Seed corpus: empty, ASCII, Unicode, long strings.
	f.Add("", "", 1)
	f.Add("a", "1", 4)
	f.Add("b", "2", 0)
	f.Add("αβγ", "δ", 16)
	f.Add("emoji🙂", "🙂🙂", 3)
	f.Add("long", strings.Repeat("x", 1024), 64)

	f.Fuzz(func(t *testing.T, k, v string, capacity int) {
		// Cap lengths to keep memory bounded during fuzzing.
		const limit = 1 << 12
		if len(k) > limit {
			k = k[:limit]
		}
		if len(v) > limit {
			v = v[:limit]
		}
		capacity %= 1 << 10

		c := New[string, string](Options[string, string]{Capacity: capacity, Partitions: 1})
		t.Cleanup(func() { _ = c.Close() })

		c.Put(k, v)
		got, ok := c.Get(k)
		if capacity <= 0 {
			if ok || c.Len() != 0 {
				t.Fatalf("capacity %d must keep nothing", capacity)
			}
			return
		}
		if !ok || got != v {
			t.Fatalf("after Put/Get: want %q, got %q ok=%v", v, got, ok)
		}

		// Second Put overwrites and reports the previous value.
		if prev, replaced := c.Put(k, "other"); !replaced || prev != v {
			t.Fatalf("overwrite: want prev %q, got %q replaced=%v", v, prev, replaced)
		}
		if c.Len() != 1 {
			t.Fatalf("overwrite must not change Len, got %d", c.Len())
		}

		// Remove must delete once.
		if _, ok := c.Remove(k); !ok {
			t.Fatalf("Remove must find the key")
		}
		if _, ok := c.Get(k); ok {
			t.Fatalf("key must be absent after Remove")
		}
		if _, ok := c.Remove(k); ok {
			t.Fatalf("second Remove must miss")
		}
	})
}

// Fuzz the ordered variant: random inserts must enumerate sorted and
// agree with the hashed lookups.
func FuzzOrdered_Ascend(f *testing.F) {
	f.Add("b,a,c", 2)
	f.Add("", 1)
	f.Add("x,x,y,z,a,,", 4)

	f.Fuzz(func(t *testing.T, csv string, partitions int) {
		partitions %= 64
		c := NewOrdered[string, int](Options[string, int]{Capacity: 1 << 12, Partitions: partitions}, strings.Compare)
		for i, k := range strings.Split(csv, ",") {
			if err := c.Insert(k, i); err != nil {
				t.Fatal(err)
			}
		}

		var prev string
		n := 0
		err := c.Ascend(func(k string, v int) bool {
			if n > 0 && k <= prev {
				t.Fatalf("out of order: %q after %q", k, prev)
			}
			if got, ok := c.Peek(k); !ok || got != v {
				t.Fatalf("Ascend value for %q disagrees with Peek", k)
			}
			prev = k
			n++
			return true
		})
		if err != nil {
			t.Fatal(err)
		}
		if n != c.Len() {
			t.Fatalf("Ascend visited %d, Len %d", n, c.Len())
		}
	})
}
