package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/registrar/internal/log"
	"github.com/zjrosen/registrar/internal/reactive"
	"github.com/zjrosen/registrar/internal/tracing"
)

var (
	ErrAlreadyRegistered = errors.New("producer already registered")
	ErrEmptyProducerID   = errors.New("producer id is empty")
)

// Producer contributes to one or more tokens through its bindings.
type Producer interface {
	ID() string
	Bindings() []Binding
}

// NewProducer returns a Producer with a fixed binding set.
func NewProducer(id string, bindings ...Binding) Producer {
	return &producer{id: id, bindings: bindings}
}

type producer struct {
	id       string
	bindings []Binding
}

func (p *producer) ID() string          { return p.id }
func (p *producer) Bindings() []Binding { return p.bindings }

// Manager owns the registration lifecycle of one producer.
type Manager struct {
	hub      *Hub
	producer Producer

	mu         sync.Mutex
	registered bool
	attached   []Attachment
}

// NewManager prepares a manager for p. Nothing is registered until Register.
func NewManager(hub *Hub, p Producer) *Manager {
	return &Manager{hub: hub, producer: p}
}

// Producer returns the managed producer.
func (m *Manager) Producer() Producer {
	return m.producer
}

// Registered reports whether the producer is currently registered.
func (m *Manager) Registered() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registered
}

// Register claims the producer's slot in the hub and attaches every binding.
// Initial reconciliation of all bindings is one batch. If a binding cannot be
// attached, everything attached so far is withdrawn and the error returned.
func (m *Manager) Register(ctx context.Context) error {
	id := m.producer.ID()
	if id == "" {
		return ErrEmptyProducerID
	}

	m.mu.Lock()
	if m.registered {
		m.mu.Unlock()
		return fmt.Errorf("%s: %w", id, ErrAlreadyRegistered)
	}
	m.registered = true
	m.mu.Unlock()

	if err := m.hub.claim(m); err != nil {
		m.mu.Lock()
		m.registered = false
		m.mu.Unlock()
		return err
	}

	ctx, span := m.hub.tracer.Start(ctx, tracing.SpanProducerLoad,
		trace.WithAttributes(attribute.String(tracing.AttrProducer, id)))
	defer span.End()

	bindings := m.producer.Bindings()
	span.SetAttributes(attribute.Int(tracing.AttrBindings, len(bindings)))

	var (
		attached []Attachment
		err      error
	)
	reactive.RunAtomically(func() {
		for _, b := range bindings {
			a, aerr := b.Attach(ctx, m.hub, id)
			if aerr != nil {
				err = fmt.Errorf("producer %s: binding %s: %w", id, b.Target(), aerr)
				break
			}
			attached = append(attached, a)
		}
		if err != nil {
			detach(ctx, attached)
		}
	})

	if err != nil {
		tracing.RecordError(span, err)
		m.mu.Lock()
		m.registered = false
		m.mu.Unlock()
		m.hub.release(m)
		return err
	}

	m.mu.Lock()
	m.attached = attached
	m.mu.Unlock()

	log.Info(log.CatRegistry, "Producer registered", "producer", id, "bindings", len(bindings))
	return nil
}

// Deregister stops every subscription, then withdraws every contribution, then
// releases the producer's slot. Deregistering an unregistered producer is a no-op.
func (m *Manager) Deregister(ctx context.Context) {
	m.mu.Lock()
	if !m.registered {
		m.mu.Unlock()
		return
	}
	attached := m.attached
	m.attached = nil
	m.registered = false
	m.mu.Unlock()

	id := m.producer.ID()
	ctx, span := m.hub.tracer.Start(ctx, tracing.SpanProducerDrop,
		trace.WithAttributes(attribute.String(tracing.AttrProducer, id)))
	defer span.End()

	reactive.RunAtomically(func() {
		detach(ctx, attached)
	})
	m.hub.release(m)

	log.Info(log.CatRegistry, "Producer deregistered", "producer", id)
}

func detach(ctx context.Context, attached []Attachment) {
	for _, a := range attached {
		a.Stop()
	}
	for _, a := range attached {
		a.Retract(ctx)
	}
}
