// Package hotbar keeps named rows of entity shortcuts. It consumes catalog
// entities and rejects structural operations on invalid slots instead of
// clamping them.
package hotbar

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/zjrosen/registrar/internal/catalog"
	"github.com/zjrosen/registrar/internal/log"
	"github.com/zjrosen/registrar/internal/reactive"
)

// DefaultSlots is the slot count of a hotbar unless configured otherwise.
const DefaultSlots = 12

var (
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrHotbarNotFound  = errors.New("hotbar not found")
	ErrLastHotbar      = errors.New("cannot remove the last hotbar")
	ErrHotbarFull      = errors.New("hotbar is full")
	ErrSlotOccupied    = errors.New("slot is occupied")
	ErrEmptyName       = errors.New("hotbar name is empty")
)

// IndexError reports an invalid slot index.
type IndexError struct {
	Op    string
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s: index %d not in [0, %d)", e.Op, e.Index, e.Len)
}

func (e *IndexError) Unwrap() error {
	return ErrIndexOutOfRange
}

// Item is an entity shortcut in a slot.
type Item struct {
	UID    string `json:"uid"`
	Name   string `json:"name"`
	Source string `json:"source,omitempty"`
}

// Hotbar is one row of slots. A nil slot is empty.
type Hotbar struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Items []*Item `json:"items"`
}

func (h *Hotbar) clone() *Hotbar {
	c := *h
	c.Items = slices.Clone(h.Items)
	return &c
}

func (h *Hotbar) indexOf(uid string) int {
	return slices.IndexFunc(h.Items, func(it *Item) bool { return it != nil && it.UID == uid })
}

// Store holds all hotbars and the active one.
type Store struct {
	mu      sync.RWMutex
	slots   int
	hotbars []*Hotbar
	active  string
	changes reactive.Notifier
}

// NewStore creates a store with one empty "default" hotbar.
func NewStore(slots int) *Store {
	if slots <= 0 {
		slots = DefaultSlots
	}
	s := &Store{slots: slots}
	h := s.newHotbar("default")
	s.hotbars = []*Hotbar{h}
	s.active = h.ID
	return s
}

func (s *Store) newHotbar(name string) *Hotbar {
	return &Hotbar{ID: uuid.NewString(), Name: name, Items: make([]*Item, s.slots)}
}

// Slots returns the slot count per hotbar.
func (s *Store) Slots() int {
	return s.slots
}

// Changes implements reactive.Source.
func (s *Store) Changes() *reactive.Notifier {
	return &s.changes
}

// Hotbars returns copies of all hotbars.
func (s *Store) Hotbars() []*Hotbar {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Hotbar, len(s.hotbars))
	for i, h := range s.hotbars {
		out[i] = h.clone()
	}
	return out
}

// Active returns a copy of the active hotbar.
func (s *Store) Active() *Hotbar {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeLocked().clone()
}

func (s *Store) activeLocked() *Hotbar {
	for _, h := range s.hotbars {
		if h.ID == s.active {
			return h
		}
	}
	return s.hotbars[0]
}

// Items returns the slots of the active hotbar.
func (s *Store) Items() []*Item {
	return s.Active().Items
}

// Add creates a hotbar and makes it active.
func (s *Store) Add(name string) (*Hotbar, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	h := s.newHotbar(name)
	s.mutate(func() error {
		s.hotbars = append(s.hotbars, h)
		s.active = h.ID
		return nil
	})
	log.Debug(log.CatHotbar, "Hotbar added", "id", h.ID, "name", name)
	return h.clone(), nil
}

// Remove deletes a hotbar. The last hotbar cannot be removed.
func (s *Store) Remove(id string) error {
	return s.mutate(func() error {
		i := slices.IndexFunc(s.hotbars, func(h *Hotbar) bool { return h.ID == id })
		if i < 0 {
			return fmt.Errorf("%s: %w", id, ErrHotbarNotFound)
		}
		if len(s.hotbars) == 1 {
			return ErrLastHotbar
		}
		s.hotbars = slices.Delete(s.hotbars, i, i+1)
		if s.active == id {
			s.active = s.hotbars[0].ID
		}
		return nil
	})
}

// SetActive switches the active hotbar.
func (s *Store) SetActive(id string) error {
	return s.mutate(func() error {
		if !slices.ContainsFunc(s.hotbars, func(h *Hotbar) bool { return h.ID == id }) {
			return fmt.Errorf("%s: %w", id, ErrHotbarNotFound)
		}
		s.active = id
		return nil
	})
}

// AddToHotbar pins e to the active hotbar, in the first empty slot or at index.
// Pinning an entity that is already present is a no-op.
func (s *Store) AddToHotbar(e *catalog.Entity, index ...int) error {
	if e == nil {
		return catalog.ErrNilEntity
	}
	item := &Item{UID: e.UID(), Name: e.Metadata.Name, Source: e.Metadata.Source}

	return s.mutate(func() error {
		h := s.activeLocked()
		if h.indexOf(item.UID) >= 0 {
			return errUnchanged
		}
		if len(index) > 0 {
			i := index[0]
			if i < 0 || i >= len(h.Items) {
				return &IndexError{Op: "add to hotbar", Index: i, Len: len(h.Items)}
			}
			if h.Items[i] != nil {
				return fmt.Errorf("slot %d: %w", i, ErrSlotOccupied)
			}
			h.Items[i] = item
			return nil
		}
		free := slices.Index(h.Items, nil)
		if free < 0 {
			return ErrHotbarFull
		}
		h.Items[free] = item
		return nil
	})
}

// RemoveFromHotbar clears the slot holding uid on the active hotbar.
func (s *Store) RemoveFromHotbar(uid string) bool {
	removed := false
	_ = s.mutate(func() error {
		h := s.activeLocked()
		i := h.indexOf(uid)
		if i < 0 {
			return errUnchanged
		}
		h.Items[i] = nil
		removed = true
		return nil
	})
	return removed
}

// Move takes the item at from out of the active hotbar and inserts it at to,
// shifting the slots in between.
func (s *Store) Move(from, to int) error {
	return s.mutate(func() error {
		h := s.activeLocked()
		for _, idx := range []int{from, to} {
			if idx < 0 || idx >= len(h.Items) {
				return &IndexError{Op: "move", Index: idx, Len: len(h.Items)}
			}
		}
		if from == to {
			return errUnchanged
		}
		item := h.Items[from]
		h.Items = slices.Delete(h.Items, from, from+1)
		h.Items = slices.Insert(h.Items, to, item)
		return nil
	})
}

var errUnchanged = errors.New("unchanged")

// mutate runs fn under the lock and notifies when it changed something.
func (s *Store) mutate(fn func() error) error {
	s.mu.Lock()
	err := fn()
	s.mu.Unlock()

	switch {
	case errors.Is(err, errUnchanged):
		return nil
	case err != nil:
		log.Debug(log.CatHotbar, "Hotbar operation rejected", "error", err)
		return err
	}
	s.changes.Notify()
	return nil
}

type document struct {
	Active  string    `json:"active"`
	Hotbars []*Hotbar `json:"hotbars"`
}

// Load replaces the state with a persisted document. Rows are padded or
// truncated to the configured slot count.
func (s *Store) Load(data []byte) error {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode hotbars: %w", err)
	}
	doc.Hotbars = slices.DeleteFunc(doc.Hotbars, func(h *Hotbar) bool { return h == nil || h.ID == "" })
	if len(doc.Hotbars) == 0 {
		return fmt.Errorf("decode hotbars: %w", ErrHotbarNotFound)
	}

	for _, h := range doc.Hotbars {
		if len(h.Items) > s.slots {
			if slices.ContainsFunc(h.Items[s.slots:], func(it *Item) bool { return it != nil }) {
				log.Warn(log.CatHotbar, "Dropping hotbar items beyond slot count", "hotbar", h.Name, "slots", s.slots)
			}
			h.Items = h.Items[:s.slots]
		}
		for len(h.Items) < s.slots {
			h.Items = append(h.Items, nil)
		}
	}

	return s.mutate(func() error {
		s.hotbars = doc.Hotbars
		s.active = doc.Active
		if !slices.ContainsFunc(s.hotbars, func(h *Hotbar) bool { return h.ID == s.active }) {
			s.active = s.hotbars[0].ID
		}
		return nil
	})
}

// ToJSON encodes the state for persistence.
func (s *Store) ToJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.Marshal(document{Active: s.active, Hotbars: s.hotbars})
}
