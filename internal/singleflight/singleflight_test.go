package singleflight

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDo_CoalescesConcurrentCalls(t *testing.T) {
	t.Parallel()

	var g Group[string, int]
	var calls atomic.Int32
	release := make(chan struct{})

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)
	results := make([]int, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			v, err, _ := g.Do(context.Background(), "k", func() (int, error) {
				calls.Add(1)
				<-release
				return 7, nil
			})
			if err != nil {
				t.Errorf("Do: %v", err)
			}
			results[i] = v
		}(i)
	}

	// Wait until the leader is in flight, then let followers pile up.
	for g.InFlight() == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("fn must run once, ran %d times", got)
	}
	for i, v := range results {
		if v != 7 {
			t.Fatalf("caller %d got %d, want 7", i, v)
		}
	}
	if g.InFlight() != 0 {
		t.Fatal("in-flight marker must be removed after completion")
	}
}

func TestDo_FollowerHonoursContext(t *testing.T) {
	t.Parallel()

	var g Group[string, int]
	release := make(chan struct{})
	leaderDone := make(chan struct{})

	go func() {
		defer close(leaderDone)
		_, _, _ = g.Do(context.Background(), "k", func() (int, error) {
			<-release
			return 1, nil
		})
	}()
	for g.InFlight() == 0 {
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err, shared := g.Do(ctx, "k", func() (int, error) { return 2, nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("follower err = %v, want context.Canceled", err)
	}
	if !shared {
		t.Fatal("follower must report a shared call")
	}

	close(release)
	<-leaderDone
}

func TestDo_PanicReachesFollowers(t *testing.T) {
	t.Parallel()

	var g Group[string, int]
	release := make(chan struct{})
	leaderPanicked := make(chan any, 1)

	go func() {
		defer func() { leaderPanicked <- recover() }()
		_, _, _ = g.Do(context.Background(), "k", func() (int, error) {
			<-release
			panic("boom")
		})
	}()
	for g.InFlight() == 0 {
		time.Sleep(time.Millisecond)
	}

	errc := make(chan error, 1)
	go func() {
		_, err, _ := g.Do(context.Background(), "k", func() (int, error) { return 0, nil })
		errc <- err
	}()
	time.Sleep(10 * time.Millisecond)
	close(release)

	if r := <-leaderPanicked; r != "boom" {
		t.Fatalf("leader recovered %v, want boom", r)
	}
	err := <-errc
	// The follower may have arrived after the leader finished; then it ran its own fn.
	if err != nil {
		var pe *PanicError
		if !errors.As(err, &pe) {
			t.Fatalf("follower err = %v, want *PanicError", err)
		}
	}
	if g.InFlight() != 0 {
		t.Fatal("marker must be cleared after a panic")
	}
}

func TestForget_StartsFreshCall(t *testing.T) {
	t.Parallel()

	var g Group[int, int]
	release := make(chan struct{})
	go func() {
		_, _, _ = g.Do(context.Background(), 1, func() (int, error) {
			<-release
			return 1, nil
		})
	}()
	for g.InFlight() == 0 {
		time.Sleep(time.Millisecond)
	}

	g.Forget(1)
	v, err, shared := g.Do(context.Background(), 1, func() (int, error) { return 2, nil })
	if err != nil || v != 2 || shared {
		t.Fatalf("after Forget: v=%d err=%v shared=%v, want fresh call returning 2", v, err, shared)
	}
	close(release)
}
