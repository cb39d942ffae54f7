package cache

import (
	"context"
	"math/rand/v2"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/arccache/arc"
	"github.com/IvanBrykalov/arccache/internal/util"
)

// A mixed workload of concurrent Put/Get/Peek/Remove/All on random keys.
// Should pass under `-race` without detector reports.
func TestRace_Basic(t *testing.T) {
	c := New[string, []byte](Options[string, []byte]{
		Capacity:   8_192,
		Partitions: 32,
	})
	t.Cleanup(func() { _ = c.Close() })

	workers := 4 * runtime.GOMAXPROCS(0)
	keyspace := 50_000
	deadline := time.Now().Add(time.Second)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(id int) {
			defer wg.Done()
			r := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(id)))
			for time.Now().Before(deadline) {
				k := "k:" + strconv.Itoa(r.IntN(keyspace))
				switch r.IntN(100) {
				case 0, 1, 2, 3, 4: // ~5% Remove
					c.Remove(k)
				case 5: // ~1% full iteration
					for range c.All() {
					}
				case 6, 7, 8, 9: // ~4% Peek
					c.Peek(k)
				case 10, 11, 12, 13, 14, 15, 16, 17, 18, 19: // ~10% Put
					c.Put(k, []byte("x"))
				default: // ~80% Get
					c.Get(k)
				}
			}
		}(w)
	}
	wg.Wait()

	if n := c.Len(); n > 8_192 {
		t.Fatalf("Len %d exceeds capacity", n)
	}
}

// oracle mirrors the resident set of one partition.
type oracle struct {
	mu   sync.Mutex
	live map[int]int
}

// Workers own disjoint key sets for writes but read every key. Each value
// encodes its key, so a read can never return a value stored for another
// key. Oracles are updated before the matching cache write and by the
// eviction callback, which runs under the partition lock; at the end every
// partition must hold exactly what its oracle holds.
func TestRace_OracleAgreement(t *testing.T) {
	const (
		partitions = 8
		capacity   = 512
		keyspace   = 2048
		workers    = 8
	)

	oracles := make([]oracle, partitions)
	for i := range oracles {
		oracles[i].live = map[int]int{}
	}
	var hc hashedCache[int, int]
	oracleFor := func(k int) *oracle {
		return &oracles[util.PartitionIndex(hc.hash(k), hc.mask)]
	}
	hc = New[int, int](Options[int, int]{
		Capacity:   capacity,
		Partitions: partitions,
		OnEvict: func(k, v int, _ arc.Generation) {
			o := oracleFor(k)
			o.mu.Lock()
			if cur, ok := o.live[k]; ok && cur == v {
				delete(o.live, k)
			}
			o.mu.Unlock()
		},
	}).(hashedCache[int, int])
	var c Cache[int, int] = hc

	var g errgroup.Group
	var seq atomic.Int64
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			r := rand.New(rand.NewPCG(uint64(w), 99))
			for i := 0; i < 20_000; i++ {
				k := r.IntN(keyspace)
				owned := k%workers == w
				switch op := r.IntN(10); {
				case op == 0 && owned:
					o := oracleFor(k)
					o.mu.Lock()
					delete(o.live, k)
					o.mu.Unlock()
					if v, ok := c.Remove(k); ok && v%keyspace != k {
						t.Errorf("Remove(%d) returned foreign value %d", k, v)
					}
				case op <= 3 && owned:
					v := int(seq.Add(1))*keyspace + k
					o := oracleFor(k)
					o.mu.Lock()
					o.live[k] = v
					o.mu.Unlock()
					c.Put(k, v)
				default:
					if v, ok := c.Get(k); ok && v%keyspace != k {
						t.Errorf("Get(%d) returned foreign value %d", k, v)
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if n := c.Len(); n > capacity {
		t.Fatalf("Len %d exceeds capacity %d", n, capacity)
	}
	got := map[int]int{}
	for k, v := range c.All() {
		got[k] = v
	}
	want := 0
	for i := range oracles {
		for k, v := range oracles[i].live {
			want++
			if got[k] != v {
				t.Fatalf("key %d: cache has %d, oracle %d", k, got[k], v)
			}
		}
	}
	if want != len(got) {
		t.Fatalf("cache holds %d entries, oracles %d", len(got), want)
	}
}

// One hundred goroutines call GetOrLoad on the same key concurrently.
// The Loader should run at most once (singleflight coalescing).
func TestRace_GetOrLoad(t *testing.T) {
	var calls int64

	c := New[string, string](Options[string, string]{
		Capacity: 1024,
		Loader: func(_ context.Context, k string) (string, error) {
			atomic.AddInt64(&calls, 1)
			time.Sleep(2 * time.Millisecond) // simulate I/O
			return "v:" + k, nil
		},
	})
	t.Cleanup(func() { _ = c.Close() })

	const goroutines = 100
	key := "same-key"

	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, err := c.GetOrLoad(context.Background(), key)
			if err != nil {
				t.Errorf("GetOrLoad error: %v", err)
				return
			}
			if v != "v:"+key {
				t.Errorf("unexpected value: %q", v)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := atomic.LoadInt64(&calls); got > 1 {
		t.Fatalf("loader should run at most once, got %d", got)
	}

	// Subsequent call should be a pure cache hit.
	if v, err := c.GetOrLoad(context.Background(), key); err != nil || v != "v:"+key {
		t.Fatalf("second GetOrLoad failed: v=%q err=%v", v, err)
	}
}
