// Package reactive is a small in-process reactive runtime.
//
// It offers settable values, derived (computed) values and payload-less
// notifiers. Observers are notified after a change, at most once per outermost
// RunAtomically batch, with the value current at delivery time. A disposed
// observer never receives another delivery, including one already queued in the
// running batch.
//
// The graph is meant to be written from a single goroutine (the application
// loop). Reads are safe from any goroutine.
package reactive

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zjrosen/registrar/internal/log"
)

// Disposer releases a subscription or registration. Calling it more than once is a no-op.
type Disposer func()

// Once wraps fn so that it runs at most one time.
func Once(fn func()) Disposer {
	if fn == nil {
		return func() {}
	}
	var once sync.Once
	return func() { once.Do(fn) }
}

// Disposers collects disposers that are released together.
type Disposers []Disposer

// Add appends d.
func (ds *Disposers) Add(d Disposer) {
	if d != nil {
		*ds = append(*ds, d)
	}
}

// Dispose releases every collected disposer in insertion order and empties the set.
func (ds *Disposers) Dispose() {
	list := *ds
	*ds = nil
	for _, d := range list {
		d()
	}
}

// subscription is one queued observer callback.
type subscription struct {
	deliver  func()
	disposed atomic.Bool
	queued   bool // guarded by rt.mu
}

type runtime struct {
	mu       sync.Mutex
	depth    int
	flushing bool
	pending  []*subscription
}

var rt runtime

// RunAtomically runs fn as one batch. Changes made inside fn (or inside nested
// batches) are delivered to observers after the outermost batch returns, each
// observer at most once.
func RunAtomically(fn func()) {
	rt.mu.Lock()
	rt.depth++
	rt.mu.Unlock()

	defer func() {
		rt.mu.Lock()
		rt.depth--
		outer := rt.depth == 0 && !rt.flushing
		if outer {
			rt.flushing = true
		}
		rt.mu.Unlock()

		if outer {
			rt.flush()
		}
	}()

	fn()
}

// InBatch reports whether a batch is currently open or being delivered.
func InBatch() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.depth > 0 || rt.flushing
}

func (r *runtime) enqueue(s *subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.queued || s.disposed.Load() {
		return
	}
	s.queued = true
	r.pending = append(r.pending, s)
}

// flush delivers queued notifications. Changes made by observers during the
// flush are appended to the same queue.
func (r *runtime) flush() {
	defer func() {
		r.mu.Lock()
		r.flushing = false
		r.mu.Unlock()
	}()

	for {
		r.mu.Lock()
		if len(r.pending) == 0 {
			r.pending = nil
			r.mu.Unlock()
			return
		}
		s := r.pending[0]
		r.pending[0] = nil
		r.pending = r.pending[1:]
		s.queued = false
		r.mu.Unlock()

		if s.disposed.Load() {
			continue
		}
		deliver(s)
	}
}

func deliver(s *subscription) {
	defer func() {
		if p := recover(); p != nil {
			log.Error(log.CatRegistry, "Observer panicked", "panic", fmt.Sprint(p))
		}
	}()
	s.deliver()
}
