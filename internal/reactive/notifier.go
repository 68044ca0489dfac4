package reactive

import (
	"sync"
	"sync/atomic"
)

// Source is anything whose changes can be followed.
type Source interface {
	Changes() *Notifier
}

// Notifier is a payload-less change signal.
// The zero value is ready to use.
type Notifier struct {
	mu    sync.Mutex
	subs  []*subscription
	eager []*eagerListener
}

type eagerListener struct {
	fn       func()
	disposed atomic.Bool
}

// Changes returns n itself so a Notifier can be used as a Source.
func (n *Notifier) Changes() *Notifier {
	return n
}

// Subscribe registers fn to run after each batch in which Notify was called.
func (n *Notifier) Subscribe(fn func()) Disposer {
	s := &subscription{deliver: fn}

	n.mu.Lock()
	n.subs = append(n.subs, s)
	n.mu.Unlock()

	return Once(func() {
		s.disposed.Store(true)
		n.mu.Lock()
		defer n.mu.Unlock()
		for i, cur := range n.subs {
			if cur == s {
				n.subs = append(n.subs[:i], n.subs[i+1:]...)
				return
			}
		}
	})
}

// subscribeEager registers fn to run synchronously inside Notify.
// Used by computed values to invalidate before any deferred observer runs.
func (n *Notifier) subscribeEager(fn func()) Disposer {
	l := &eagerListener{fn: fn}

	n.mu.Lock()
	n.eager = append(n.eager, l)
	n.mu.Unlock()

	return Once(func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		l.disposed.Store(true)
		for i, cur := range n.eager {
			if cur == l {
				n.eager = append(n.eager[:i], n.eager[i+1:]...)
				return
			}
		}
	})
}

// Notify signals a change. Observers run when the enclosing batch completes,
// or before Notify returns when no batch is open.
func (n *Notifier) Notify() {
	RunAtomically(func() {
		n.mu.Lock()
		eager := append([]*eagerListener(nil), n.eager...)
		subs := append([]*subscription(nil), n.subs...)
		n.mu.Unlock()

		for _, l := range eager {
			if !l.disposed.Load() {
				l.fn()
			}
		}
		for _, s := range subs {
			rt.enqueue(s)
		}
	})
}

// Len returns the number of deferred subscribers.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

// Forward makes every change of src notify n as part of the same batch.
// Derived structures with a changing set of inputs use it in place of fixed
// Computed dependencies.
func (n *Notifier) Forward(src Source) Disposer {
	return src.Changes().subscribeEager(n.Notify)
}
