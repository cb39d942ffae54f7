// Package singleflight coalesces concurrent loads of the same key.
package singleflight

import (
	"context"
	"fmt"
	"sync"
)

// Group runs fn at most once per key at a time. Callers that arrive while a
// call is in flight wait for its result instead of starting their own.
//
// The first caller (leader) runs fn on its own goroutine stack. Followers
// wait on done and may give up early when their ctx ends; that never cancels
// the leader. The zero value is ready to use.
type Group[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]*call[V]
}

type call[V any] struct {
	done  chan struct{} // closed once val/err are published
	val   V
	err   error
	dups  int
	panic any
}

// PanicError carries a panic raised by fn to every waiting follower.
type PanicError struct {
	Value any
}

func (p *PanicError) Error() string { return fmt.Sprintf("singleflight: load panicked: %v", p.Value) }

// Do executes fn for key unless a call is already in flight, in which case it
// waits for that call. shared reports whether the result was handed to more
// than one caller. A panic inside fn is re-raised in the leader and returned
// to followers as *PanicError.
func (g *Group[K, V]) Do(ctx context.Context, key K, fn func() (V, error)) (v V, err error, shared bool) {
	g.mu.Lock()
	if g.m == nil {
		g.m = make(map[K]*call[V])
	}
	if c, ok := g.m[key]; ok {
		c.dups++
		g.mu.Unlock()

		select {
		case <-c.done:
			if c.panic != nil {
				var zero V
				return zero, &PanicError{Value: c.panic}, true
			}
			return c.val, c.err, true
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err(), true
		}
	}

	c := &call[V]{done: make(chan struct{})}
	g.m[key] = c
	g.mu.Unlock()

	g.run(key, c, fn)

	if c.panic != nil {
		panic(c.panic)
	}
	return c.val, c.err, c.dups > 0
}

// run executes fn and always publishes the outcome, even when fn panics.
func (g *Group[K, V]) run(key K, c *call[V], fn func() (V, error)) {
	defer func() {
		if r := recover(); r != nil {
			c.panic = r
		}
		g.mu.Lock()
		if g.m[key] == c {
			delete(g.m, key)
		}
		g.mu.Unlock()
		close(c.done)
	}()
	c.val, c.err = fn()
}

// Forget drops the in-flight marker for key so the next Do starts a fresh
// call. Callers already waiting still receive the original result.
func (g *Group[K, V]) Forget(key K) {
	g.mu.Lock()
	delete(g.m, key)
	g.mu.Unlock()
}

// InFlight returns the number of keys currently being loaded.
func (g *Group[K, V]) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.m)
}
