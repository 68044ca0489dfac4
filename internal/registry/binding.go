package registry

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/registrar/internal/log"
	"github.com/zjrosen/registrar/internal/reactive"
	"github.com/zjrosen/registrar/internal/tracing"
)

// Binding is one contribution source of a producer, attached to a single target
// (a token store, or a sink such as the catalog).
type Binding interface {
	// Target names what the binding feeds, for logs and listings.
	Target() string
	// Attach starts feeding the target on behalf of owner.
	Attach(ctx context.Context, hub *Hub, owner string) (Attachment, error)
}

// Attachment is a live binding.
type Attachment interface {
	// Stop disposes every subscription. No reconciliation runs afterwards.
	Stop()
	// Retract withdraws everything the binding registered.
	Retract(ctx context.Context)
}

// Static binds a fixed list. It is reconciled once against the empty list.
func Static[T any](token Token[T], items ...*Contribution[T]) Binding {
	return &listBinding[T]{token: token, kind: "static", static: items}
}

// Reactive binds a reactive list. The list is reconciled immediately and again
// after every change.
func Reactive[T any](token Token[T], reader reactive.Reader[[]*Contribution[T]]) Binding {
	return &listBinding[T]{
		token: token,
		kind:  "reactive",
		source: func() (reactive.Reader[[]*Contribution[T]], func()) {
			return reader, func() {}
		},
	}
}

// Func binds a computed list that is re-evaluated whenever one of deps changes.
// An evaluation that fails or panics is logged and counts as an empty list.
func Func[T any](token Token[T], fn func() ([]*Contribution[T], error), deps ...reactive.Source) Binding {
	return &listBinding[T]{
		token: token,
		kind:  "func",
		source: func() (reactive.Reader[[]*Contribution[T]], func()) {
			c := reactive.NewComputed(func() []*Contribution[T] {
				items, err := fn()
				if err != nil {
					log.ErrorErr(log.CatRegistry, "Contribution source failed", err, "token", token)
					return nil
				}
				return items
			}, deps...)
			return c, c.Dispose
		},
	}
}

type listBinding[T any] struct {
	token  Token[T]
	kind   string
	static []*Contribution[T]
	source func() (reactive.Reader[[]*Contribution[T]], func())
}

func (b *listBinding[T]) Target() string {
	return b.token.Name()
}

func (b *listBinding[T]) String() string {
	return fmt.Sprintf("%s(%s)", b.kind, b.token.Name())
}

func (b *listBinding[T]) Attach(ctx context.Context, hub *Hub, owner string) (Attachment, error) {
	store, err := StoreFor(hub, b.token)
	if err != nil {
		return nil, err
	}

	r := &reconciler[T]{
		ctx:    context.WithoutCancel(ctx),
		store:  store,
		owner:  owner,
		tracer: hub.tracer,
	}

	if b.source == nil {
		r.reconcile(r.ctx, b.static)
		return r, nil
	}

	reader, release := b.source()
	r.release.Add(release)
	r.release.Add(reader.Changes().Subscribe(func() {
		if r.stopped.Load() {
			return
		}
		r.reconcile(r.ctx, evaluate(reader, b.token, owner))
	}))
	r.reconcile(r.ctx, evaluate(reader, b.token, owner))
	return r, nil
}

// evaluate reads the source's current list. A panic counts as an empty list.
func evaluate[T any](reader reactive.Reader[[]*Contribution[T]], token Token[T], owner string) (list []*Contribution[T]) {
	defer func() {
		if p := recover(); p != nil {
			log.Error(log.CatRegistry, "Contribution source panicked",
				"token", token, "producer", owner, "panic", fmt.Sprint(p))
			list = nil
		}
	}()
	return reader.Get()
}

// reconciler keeps one source's last list and applies deltas against it.
type reconciler[T any] struct {
	ctx     context.Context
	store   *Store[T]
	owner   string
	tracer  trace.Tracer
	last    []*Contribution[T]
	release reactive.Disposers
	stopped atomic.Bool
}

func (r *reconciler[T]) reconcile(ctx context.Context, cur []*Contribution[T]) {
	d := Diff(r.last, cur)
	r.last = slices.Clone(cur)
	if d.Empty() {
		return
	}

	_, span := tracing.StartReconcile(ctx, r.tracer, r.store.Token().Name(), r.owner)
	Apply(r.store, r.owner, d)
	tracing.EndReconcile(span, len(d.ToAdd), len(d.ToRemove))

	log.Debug(log.CatRegistry, "Reconciled",
		"token", r.store.Token(), "producer", r.owner, "added", len(d.ToAdd), "removed", len(d.ToRemove))
}

func (r *reconciler[T]) Stop() {
	r.stopped.Store(true)
	r.release.Dispose()
}

func (r *reconciler[T]) Retract(ctx context.Context) {
	r.reconcile(ctx, nil)
}
