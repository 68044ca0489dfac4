package reactive

import "sync"

// Computed is a value derived from other sources. It is recomputed lazily on
// the first Get after any dependency changed.
type Computed[T any] struct {
	mu      sync.Mutex
	fn      func() T
	value   T
	dirty   bool
	changes Notifier
	deps    Disposers
}

// NewComputed derives a value from fn, recomputed whenever one of deps changes.
func NewComputed[T any](fn func() T, deps ...Source) *Computed[T] {
	c := &Computed[T]{fn: fn, dirty: true}
	for _, dep := range deps {
		c.deps.Add(dep.Changes().subscribeEager(c.invalidate))
	}
	return c
}

func (c *Computed[T]) invalidate() {
	c.mu.Lock()
	c.dirty = true
	c.mu.Unlock()

	c.changes.Notify()
}

// Get returns the derived value, recomputing it if a dependency changed.
func (c *Computed[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dirty {
		c.value = c.fn()
		c.dirty = false
	}
	return c.value
}

// Observe subscribes fn to changes of c.
func (c *Computed[T]) Observe(fn func(T), opts ...ObserveOption) Disposer {
	return Observe[T](c, c.Get, fn, opts...)
}

// Changes implements Source.
func (c *Computed[T]) Changes() *Notifier {
	return &c.changes
}

// Dispose detaches c from its dependencies. c keeps its last value.
func (c *Computed[T]) Dispose() {
	c.deps.Dispose()
}
