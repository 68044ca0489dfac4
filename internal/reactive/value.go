package reactive

import "sync"

// Reader is a read-only reactive value.
type Reader[T any] interface {
	Source
	Get() T
	Observe(fn func(T), opts ...ObserveOption) Disposer
}

// ObserveOption configures an observation.
type ObserveOption func(*observeConfig)

type observeConfig struct {
	fireImmediately bool
}

// FireImmediately invokes the observer synchronously with the current value at subscribe time.
func FireImmediately() ObserveOption {
	return func(c *observeConfig) { c.fireImmediately = true }
}

// Observe subscribes fn to src, delivering get() on every batch that changed src.
func Observe[T any](src Source, get func() T, fn func(T), opts ...ObserveOption) Disposer {
	var cfg observeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	d := src.Changes().Subscribe(func() { fn(get()) })
	if cfg.fireImmediately {
		fn(get())
	}
	return d
}

// Value is a settable reactive box.
type Value[T any] struct {
	mu      sync.RWMutex
	v       T
	equal   func(a, b T) bool
	changes Notifier
}

// ValueOption configures a Value.
type ValueOption[T any] func(*Value[T])

// WithEqual suppresses writes that eq reports as equal to the current value.
func WithEqual[T any](eq func(a, b T) bool) ValueOption[T] {
	return func(v *Value[T]) { v.equal = eq }
}

// NewValue returns a Value holding initial.
func NewValue[T any](initial T, opts ...ValueOption[T]) *Value[T] {
	v := &Value[T]{v: initial}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.v
}

// Set replaces the value and notifies observers.
func (v *Value[T]) Set(x T) {
	v.mu.Lock()
	if v.equal != nil && v.equal(v.v, x) {
		v.mu.Unlock()
		return
	}
	v.v = x
	v.mu.Unlock()

	v.changes.Notify()
}

// Update applies fn to the current value and stores the result.
func (v *Value[T]) Update(fn func(T) T) {
	v.Set(fn(v.Get()))
}

// Observe subscribes fn to changes of v.
func (v *Value[T]) Observe(fn func(T), opts ...ObserveOption) Disposer {
	return Observe[T](v, v.Get, fn, opts...)
}

// Changes implements Source.
func (v *Value[T]) Changes() *Notifier {
	return &v.changes
}

// Static returns a Reader that always yields v and never changes.
func Static[T any](v T) Reader[T] {
	return NewValue(v)
}
