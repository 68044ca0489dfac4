package registry

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/zjrosen/registrar/internal/log"
	"github.com/zjrosen/registrar/internal/reactive"
)

// ErrDuplicateID is returned under CollisionReject when another owner already
// registered the id.
var ErrDuplicateID = errors.New("contribution id already registered by another producer")

// CollisionPolicy decides what happens when two producers register the same id
// under one token.
type CollisionPolicy int

const (
	// CollisionOverwrite logs a warning and lets the latest registration win.
	CollisionOverwrite CollisionPolicy = iota
	// CollisionReject keeps the first registration and rejects later ones.
	CollisionReject
)

// String returns the config spelling of the policy.
func (p CollisionPolicy) String() string {
	switch p {
	case CollisionOverwrite:
		return "overwrite"
	case CollisionReject:
		return "reject"
	default:
		return "unknown"
	}
}

// ParseCollisionPolicy parses "overwrite" or "reject". Empty means overwrite.
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "overwrite":
		return CollisionOverwrite, nil
	case "reject":
		return CollisionReject, nil
	default:
		return CollisionOverwrite, fmt.Errorf("unknown collision policy %q (want overwrite or reject)", s)
	}
}

type entry[T any] struct {
	c     *Contribution[T]
	owner string
}

// Store is the capability registry for one token: an insertion-ordered map
// from id to contribution that remembers which producer registered each entry.
type Store[T any] struct {
	token  Token[T]
	policy CollisionPolicy

	mu       sync.RWMutex
	order    []string
	entries  map[string]entry[T]
	// shadowed holds, per id, the entries of other owners that were overwritten
	// and not yet retracted, oldest first.
	shadowed map[string][]entry[T]
	changes  reactive.Notifier
}

// NewStore creates an empty store. Most callers get stores through StoreFor.
func NewStore[T any](token Token[T], policy CollisionPolicy) *Store[T] {
	return &Store[T]{
		token:    token,
		policy:   policy,
		entries:  make(map[string]entry[T]),
		shadowed: make(map[string][]entry[T]),
	}
}

// Token returns the token this store serves.
func (s *Store[T]) Token() Token[T] {
	return s.token
}

// Register adds c on behalf of owner. An existing entry with the same id is
// replaced when it belongs to owner; an entry of another owner is handled by the
// collision policy. The replaced entry moves to the end of the order.
//
// Under CollisionOverwrite the overwritten entry is kept aside and comes back
// when the newer owner retracts the id while the older owner still holds it.
func (s *Store[T]) Register(owner string, c *Contribution[T]) error {
	if err := c.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if prev, ok := s.entries[c.ID]; ok {
		if prev.owner != owner {
			if s.policy == CollisionReject {
				s.mu.Unlock()
				return fmt.Errorf("%s %q (owner %s): %w", s.token, c.ID, prev.owner, ErrDuplicateID)
			}
			log.Warn(log.CatRegistry, "Contribution id collision, overwriting",
				"token", s.token, "id", c.ID, "previous", prev.owner, "owner", owner)
			s.dropShadowLocked(c.ID, owner)
			s.shadowed[c.ID] = append(s.shadowed[c.ID], prev)
		}
		s.removeLocked(c.ID)
	}
	s.entries[c.ID] = entry[T]{c: c, owner: owner}
	s.order = append(s.order, c.ID)
	s.mu.Unlock()

	s.changes.Notify()
	return nil
}

// Deregister removes id if it is currently held by owner. The most recently
// overwritten entry of another owner, if any, takes its place. An overwritten
// entry of owner is forgotten without touching the visible one.
// Returns false when the visible entry did not change.
func (s *Store[T]) Deregister(owner, id string) bool {
	s.mu.Lock()
	cur, ok := s.entries[id]
	if !ok || cur.owner != owner {
		dropped := s.dropShadowLocked(id, owner)
		s.mu.Unlock()
		if ok && !dropped {
			log.Debug(log.CatRegistry, "Skipping removal of entry owned by another producer",
				"token", s.token, "id", id, "owner", owner, "holder", cur.owner)
		}
		return false
	}
	s.removeLocked(id)
	if stack := s.shadowed[id]; len(stack) > 0 {
		next := stack[len(stack)-1]
		if len(stack) == 1 {
			delete(s.shadowed, id)
		} else {
			s.shadowed[id] = stack[:len(stack)-1]
		}
		s.entries[id] = next
		s.order = append(s.order, id)
		log.Debug(log.CatRegistry, "Restored overwritten contribution",
			"token", s.token, "id", id, "owner", next.owner, "retracted", owner)
	}
	s.mu.Unlock()

	s.changes.Notify()
	return true
}

// dropShadowLocked forgets owner's overwritten entry for id.
func (s *Store[T]) dropShadowLocked(id, owner string) bool {
	stack := s.shadowed[id]
	i := slices.IndexFunc(stack, func(e entry[T]) bool { return e.owner == owner })
	if i < 0 {
		return false
	}
	stack = slices.Delete(stack, i, i+1)
	if len(stack) == 0 {
		delete(s.shadowed, id)
	} else {
		s.shadowed[id] = stack
	}
	return true
}

func (s *Store[T]) removeLocked(id string) {
	delete(s.entries, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
}

// Get returns the contribution registered under id.
func (s *Store[T]) Get(id string) (*Contribution[T], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e.c, ok
}

// Owner returns the producer currently holding id.
func (s *Store[T]) Owner(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e.owner, ok
}

// GetAll returns a snapshot of all contributions in registration order.
func (s *Store[T]) GetAll() []*Contribution[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Contribution[T], 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entries[id].c)
	}
	return out
}

// Len returns the number of registered contributions.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Children returns the contributions whose ParentID is parentID.
func (s *Store[T]) Children(parentID string) []*Contribution[T] {
	var out []*Contribution[T]
	for _, c := range s.GetAll() {
		if c.ParentID == parentID {
			out = append(out, c)
		}
	}
	return out
}

// Roots returns the contributions without a parent.
func (s *Store[T]) Roots() []*Contribution[T] {
	return s.Children("")
}

// OwnedBy returns the ids currently held by owner.
func (s *Store[T]) OwnedBy(owner string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, id := range s.order {
		if s.entries[id].owner == owner {
			ids = append(ids, id)
		}
	}
	return ids
}

// Changes implements reactive.Source.
func (s *Store[T]) Changes() *reactive.Notifier {
	return &s.changes
}

// Observe calls fn with a snapshot after every batch that changed the store.
func (s *Store[T]) Observe(fn func([]*Contribution[T]), opts ...reactive.ObserveOption) reactive.Disposer {
	return reactive.Observe[[]*Contribution[T]](s, s.GetAll, fn, opts...)
}

// Reader exposes the store as a reactive list.
func (s *Store[T]) Reader() reactive.Reader[[]*Contribution[T]] {
	return storeReader[T]{s}
}

type storeReader[T any] struct {
	s *Store[T]
}

func (r storeReader[T]) Get() []*Contribution[T] { return r.s.GetAll() }

func (r storeReader[T]) Observe(fn func([]*Contribution[T]), opts ...reactive.ObserveOption) reactive.Disposer {
	return r.s.Observe(fn, opts...)
}

func (r storeReader[T]) Changes() *reactive.Notifier { return r.s.Changes() }
