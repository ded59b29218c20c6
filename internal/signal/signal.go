// Package signal provides the observable cells that back the storefront's
// reactive state: cart lines, the current identity, checkout session fields.
// A Cell holds a value and notifies subscribers whenever it is replaced.
// Derived views (totals, summaries) are plain functions re-evaluated on read,
// so there is no dependency graph to maintain.
package signal

import "sync"

type subscriber[T any] struct {
	id int
	fn func(T)
}

// Cell is a mutable observable value. Subscribers are notified outside the
// cell's lock, in registration order, from the goroutine that called Set.
type Cell[T any] struct {
	mu     sync.Mutex
	value  T
	nextID int
	subs   []subscriber[T]
}

func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{value: initial}
}

func (c *Cell[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set replaces the value and notifies every subscriber with the new value.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	c.value = v
	subs := make([]subscriber[T], len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Update applies fn to the current value under the lock and stores the
// result, then notifies subscribers. Use it for read-modify-write sequences
// that must not interleave.
func (c *Cell[T]) Update(fn func(T) T) T {
	c.mu.Lock()
	c.value = fn(c.value)
	v := c.value
	subs := make([]subscriber[T], len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
	return v
}

// Subscribe registers fn for future changes and returns a cancel function.
// fn is not invoked with the current value; callers that need it use Get.
func (c *Cell[T]) Subscribe(fn func(T)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs = append(c.subs, subscriber[T]{id: id, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				return
			}
		}
	}
}
