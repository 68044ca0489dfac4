package catalog

import (
	"context"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/registrar/internal/log"
	"github.com/zjrosen/registrar/internal/reactive"
	"github.com/zjrosen/registrar/internal/tracing"
)

// RunEvent is passed to before-run hooks.
type RunEvent struct {
	Entity *Entity

	cancelledBy int // 1-based index of the first cancelling hook
	current     int
}

// PreventDefault cancels the run. Only the first call has an effect.
func (ev *RunEvent) PreventDefault() {
	if ev.cancelledBy == 0 {
		ev.cancelledBy = ev.current
	}
}

// Cancelled reports whether a hook has cancelled the run.
func (ev *RunEvent) Cancelled() bool {
	return ev.cancelledBy != 0
}

// BeforeRunHook is invoked before an entity is run. Returning an error logs it
// and does not cancel the run.
type BeforeRunHook func(ctx context.Context, ev *RunEvent) error

// AddOnBeforeRun installs hook. Hooks run in installation order.
func (r *EntityRegistry) AddOnBeforeRun(hook BeforeRunHook) reactive.Disposer {
	h := &hook

	r.hookMu.Lock()
	r.hooks = append(r.hooks, h)
	r.hookMu.Unlock()

	return reactive.Once(func() {
		r.hookMu.Lock()
		defer r.hookMu.Unlock()
		if i := slices.Index(r.hooks, h); i >= 0 {
			r.hooks = slices.Delete(r.hooks, i, i+1)
		}
	})
}

// Run invokes every before-run hook, even after one has cancelled. If no hook
// cancelled, the entity's OnRun handler runs and the entity becomes active.
// Returns whether the run proceeded.
func (r *EntityRegistry) Run(ctx context.Context, e *Entity) (bool, error) {
	if e == nil {
		return false, fmt.Errorf("run: %w", ErrNilEntity)
	}

	ctx, span := r.tracer.Start(ctx, tracing.SpanCatalogRun, trace.WithAttributes(
		attribute.String(tracing.AttrEntityUID, e.UID()),
		attribute.String(tracing.AttrEntityKind, e.KindData().String()),
	))
	defer span.End()

	r.hookMu.Lock()
	hooks := slices.Clone(r.hooks)
	r.hookMu.Unlock()

	ev := &RunEvent{Entity: e}
	for i, h := range hooks {
		ev.current = i + 1
		if err := callHook(ctx, *h, ev); err != nil {
			log.ErrorErr(log.CatCatalog, "Before-run hook failed", err, "uid", e.UID(), "hook", i)
		}
	}

	span.SetAttributes(attribute.Bool(tracing.AttrCancelled, ev.Cancelled()))
	if ev.Cancelled() {
		log.Debug(log.CatCatalog, "Run cancelled", "uid", e.UID(), "hook", ev.cancelledBy-1)
		return false, nil
	}

	if e.OnRun != nil {
		if err := e.OnRun(ctx, e); err != nil {
			tracing.RecordError(span, err)
			return false, fmt.Errorf("run %s: %w", e.UID(), err)
		}
	}
	r.SetActiveEntity(e)
	return true, nil
}

// CancelledBy returns the 0-based index of the hook that cancelled the run, or -1.
func (ev *RunEvent) CancelledBy() int {
	return ev.cancelledBy - 1
}

func callHook(ctx context.Context, h BeforeRunHook, ev *RunEvent) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("hook panicked: %v", p)
		}
	}()
	return h(ctx, ev)
}
