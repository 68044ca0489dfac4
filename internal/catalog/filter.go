package catalog

import (
	"fmt"
	"slices"
	"sync"

	"github.com/zjrosen/registrar/internal/log"
	"github.com/zjrosen/registrar/internal/reactive"
)

// EntityFilter keeps entities for which it returns true.
type EntityFilter func(e *Entity) bool

// CategoryFilter keeps categories for which it returns true.
type CategoryFilter func(c Category) bool

// filterChain is an AND-composed, removable set of predicates.
type filterChain[T any] struct {
	mu      sync.RWMutex
	preds   []*func(T) bool
	changes reactive.Notifier
}

func (f *filterChain[T]) add(pred func(T) bool) reactive.Disposer {
	p := &pred

	f.mu.Lock()
	f.preds = append(f.preds, p)
	f.mu.Unlock()
	f.changes.Notify()

	return reactive.Once(func() {
		f.mu.Lock()
		i := slices.Index(f.preds, p)
		if i >= 0 {
			f.preds = slices.Delete(f.preds, i, i+1)
		}
		f.mu.Unlock()
		if i >= 0 {
			f.changes.Notify()
		}
	})
}

func (f *filterChain[T]) len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.preds)
}

// keep applies every predicate to list. A panicking predicate is logged and
// counts as passing, so a broken filter cannot empty the catalog.
func (f *filterChain[T]) keep(list []T) []T {
	f.mu.RLock()
	preds := slices.Clone(f.preds)
	f.mu.RUnlock()

	if len(preds) == 0 {
		return list
	}
	out := make([]T, 0, len(list))
	for _, item := range list {
		if all(preds, item) {
			out = append(out, item)
		}
	}
	return out
}

func all[T any](preds []*func(T) bool, item T) bool {
	for _, p := range preds {
		if !safeCall(*p, item) {
			return false
		}
	}
	return true
}

func safeCall[T any](pred func(T) bool, item T) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			log.Error(log.CatCatalog, "Catalog filter panicked", "panic", fmt.Sprint(p))
			ok = true
		}
	}()
	return pred(item)
}
