package registry

import (
	"github.com/zjrosen/registrar/internal/log"
	"github.com/zjrosen/registrar/internal/reactive"
)

// Delta is the minimal change that turns one contribution list into another.
type Delta[T any] struct {
	ToRemove []*Contribution[T]
	ToAdd    []*Contribution[T]
}

// Empty reports whether applying d would change nothing.
func (d Delta[T]) Empty() bool {
	return len(d.ToRemove) == 0 && len(d.ToAdd) == 0
}

// Diff compares the previous and current list of one source.
//
// An item is removed when its id disappeared or when the id now maps to a
// different *Contribution, and added when its id is new or maps to a different
// *Contribution. A replaced item therefore appears once in each set. Items
// without a valid id are dropped. If an id occurs twice in one list the last
// occurrence is used.
func Diff[T any](prev, cur []*Contribution[T]) Delta[T] {
	prevIdx := index(prev, false)
	curIdx := index(cur, true)

	var d Delta[T]
	for _, c := range unique(prev, prevIdx) {
		if now, ok := curIdx[c.ID]; !ok || now != c {
			d.ToRemove = append(d.ToRemove, c)
		}
	}
	for _, c := range unique(cur, curIdx) {
		if before, ok := prevIdx[c.ID]; !ok || before != c {
			d.ToAdd = append(d.ToAdd, c)
		}
	}
	return d
}

// index maps ids to the last valid contribution carrying them.
// Problems are logged only when report is set so each list is reported once.
func index[T any](list []*Contribution[T], report bool) map[string]*Contribution[T] {
	idx := make(map[string]*Contribution[T], len(list))
	for i, c := range list {
		if err := c.Validate(); err != nil {
			if report {
				log.Warn(log.CatRegistry, "Skipping invalid contribution", "position", i, "error", err)
			}
			continue
		}
		if _, dup := idx[c.ID]; dup && report {
			log.Warn(log.CatRegistry, "Duplicate contribution id in one source, last wins", "id", c.ID)
		}
		idx[c.ID] = c
	}
	return idx
}

// unique returns the winning contributions of list in first-seen order.
func unique[T any](list []*Contribution[T], idx map[string]*Contribution[T]) []*Contribution[T] {
	out := make([]*Contribution[T], 0, len(idx))
	seen := make(map[string]struct{}, len(idx))
	for _, c := range list {
		if c.Validate() != nil {
			continue
		}
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, idx[c.ID])
	}
	return out
}

// Apply performs d against store on behalf of owner: removals first, then
// additions, as one atomic batch. An empty delta touches nothing.
// Registration errors are logged and do not stop the rest of the delta.
func Apply[T any](store *Store[T], owner string, d Delta[T]) {
	if d.Empty() {
		return
	}
	reactive.RunAtomically(func() {
		for _, c := range d.ToRemove {
			store.Deregister(owner, c.ID)
		}
		for _, c := range d.ToAdd {
			if err := store.Register(owner, c); err != nil {
				log.Warn(log.CatRegistry, "Contribution rejected",
					"token", store.Token(), "owner", owner, "id", c.ID, "error", err)
			}
		}
	})
}
