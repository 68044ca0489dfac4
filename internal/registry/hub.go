package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/registrar/internal/log"
	"github.com/zjrosen/registrar/internal/reactive"
	"github.com/zjrosen/registrar/internal/tracing"
)

// ErrTokenTypeMismatch is returned when a token name is reused with a different payload type.
var ErrTokenTypeMismatch = errors.New("token already bound to a different payload type")

// Hub owns every token store and every loaded producer.
type Hub struct {
	policy CollisionPolicy
	tracer trace.Tracer

	mu        sync.Mutex
	stores    map[string]any
	producers []*Manager
	changes   reactive.Notifier
}

// Option configures a Hub.
type Option func(*Hub)

// WithCollisionPolicy sets the policy for stores created by the hub.
func WithCollisionPolicy(p CollisionPolicy) Option {
	return func(h *Hub) { h.policy = p }
}

// WithTracer records reconciliation spans on tr.
func WithTracer(tr trace.Tracer) Option {
	return func(h *Hub) {
		if tr != nil {
			h.tracer = tr
		}
	}
}

// NewHub creates an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		policy: CollisionOverwrite,
		tracer: tracing.Noop().Tracer(),
		stores: make(map[string]any),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Policy returns the collision policy of the hub's stores.
func (h *Hub) Policy() CollisionPolicy {
	return h.policy
}

// StoreFor returns the store for token, creating it on first use.
func StoreFor[T any](h *Hub, token Token[T]) (*Store[T], error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.stores[token.Name()]; ok {
		s, ok := existing.(*Store[T])
		if !ok {
			return nil, fmt.Errorf("token %q: %w", token.Name(), ErrTokenTypeMismatch)
		}
		return s, nil
	}

	s := NewStore(token, h.policy)
	h.stores[token.Name()] = s
	return s, nil
}

// MustStoreFor is StoreFor for tokens whose type is fixed at compile time.
func MustStoreFor[T any](h *Hub, token Token[T]) *Store[T] {
	s, err := StoreFor(h, token)
	if err != nil {
		panic(err)
	}
	return s
}

// Tokens lists the names of all tokens with a store, sorted.
func (h *Hub) Tokens() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.stores))
	for name := range h.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load registers p and keeps it in the hub until Unload or Close.
func (h *Hub) Load(ctx context.Context, p Producer) (*Manager, error) {
	m := NewManager(h, p)
	if err := m.Register(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// Unload deregisters the producer with id. Unknown ids are ignored.
func (h *Hub) Unload(ctx context.Context, id string) {
	if m := h.Manager(id); m != nil {
		m.Deregister(ctx)
	}
}

// Manager returns the manager of a loaded producer, or nil.
func (h *Hub) Manager(id string) *Manager {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range h.producers {
		if m.producer.ID() == id {
			return m
		}
	}
	return nil
}

// Producers returns the ids of loaded producers in load order.
func (h *Hub) Producers() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, len(h.producers))
	for i, m := range h.producers {
		ids[i] = m.producer.ID()
	}
	return ids
}

// Changes notifies when a producer is loaded or unloaded.
func (h *Hub) Changes() *reactive.Notifier {
	return &h.changes
}

// Close unloads every producer in reverse load order.
func (h *Hub) Close(ctx context.Context) {
	h.mu.Lock()
	managers := append([]*Manager(nil), h.producers...)
	h.mu.Unlock()

	reactive.RunAtomically(func() {
		for i := len(managers) - 1; i >= 0; i-- {
			managers[i].Deregister(ctx)
		}
	})
	log.Debug(log.CatRegistry, "Hub closed", "producers", len(managers))
}

func (h *Hub) claim(m *Manager) error {
	h.mu.Lock()
	for _, cur := range h.producers {
		if cur.producer.ID() == m.producer.ID() {
			h.mu.Unlock()
			return fmt.Errorf("%s: %w", m.producer.ID(), ErrAlreadyRegistered)
		}
	}
	h.producers = append(h.producers, m)
	h.mu.Unlock()

	h.changes.Notify()
	return nil
}

func (h *Hub) release(m *Manager) {
	h.mu.Lock()
	removed := false
	for i, cur := range h.producers {
		if cur == m {
			h.producers = append(h.producers[:i], h.producers[i+1:]...)
			removed = true
			break
		}
	}
	h.mu.Unlock()

	if removed {
		h.changes.Notify()
	}
}
