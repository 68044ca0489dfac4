package catalog

import (
	"fmt"
	"slices"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/registrar/internal/log"
	"github.com/zjrosen/registrar/internal/reactive"
	"github.com/zjrosen/registrar/internal/tracing"
)

type computedSource struct {
	id      string
	reader  reactive.Reader[[]*Entity]
	forward reactive.Disposer
}

type entityView struct {
	list  []*Entity
	byUID map[string]*Entity
}

// EntityRegistry unions entities from registered sources by UID, applies the
// installed catalog filters and tracks the active entity.
//
// When two sources provide the same UID, the source registered later wins and
// the entity takes that source's position in the ordering.
type EntityRegistry struct {
	mu      sync.Mutex
	sources []*computedSource
	inputs  reactive.Notifier

	filters filterChain[*Entity]
	all     *reactive.Computed[entityView]
	visible *reactive.Computed[entityView]
	active  *reactive.Value[*Entity]

	hookMu sync.Mutex
	hooks  []*BeforeRunHook

	tracer trace.Tracer
}

// RegistryOption configures an EntityRegistry.
type RegistryOption func(*EntityRegistry)

// WithTracer records catalog runs on tr.
func WithTracer(tr trace.Tracer) RegistryOption {
	return func(r *EntityRegistry) {
		if tr != nil {
			r.tracer = tr
		}
	}
}

// NewEntityRegistry creates an empty registry.
func NewEntityRegistry(opts ...RegistryOption) *EntityRegistry {
	r := &EntityRegistry{
		active: reactive.NewValue[*Entity](nil),
		tracer: tracing.Noop().Tracer(),
	}
	r.all = reactive.NewComputed(r.union, &r.inputs)
	r.visible = reactive.NewComputed(func() entityView {
		return newView(r.filters.keep(r.all.Get().list))
	}, r.all, &r.filters.changes)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddComputedSource registers a named entity source. Registering an id again
// replaces that source and moves it to the end of the precedence order.
// The returned disposer removes the source if it is still the registered one.
func (r *EntityRegistry) AddComputedSource(id string, reader reactive.Reader[[]*Entity]) reactive.Disposer {
	src := &computedSource{id: id, reader: reader}

	reactive.RunAtomically(func() {
		r.mu.Lock()
		if i := slices.IndexFunc(r.sources, func(s *computedSource) bool { return s.id == id }); i >= 0 {
			r.sources[i].forward()
			r.sources = slices.Delete(r.sources, i, i+1)
			log.Debug(log.CatCatalog, "Replacing entity source", "source", id)
		}
		src.forward = r.inputs.Forward(reader)
		r.sources = append(r.sources, src)
		r.mu.Unlock()

		r.inputs.Notify()
	})

	return reactive.Once(func() { r.removeSource(src) })
}

func (r *EntityRegistry) removeSource(src *computedSource) {
	r.mu.Lock()
	i := slices.Index(r.sources, src)
	if i < 0 {
		r.mu.Unlock()
		return
	}
	src.forward()
	r.sources = slices.Delete(r.sources, i, i+1)
	r.mu.Unlock()

	r.inputs.Notify()
}

// SourceIDs lists registered sources in precedence order (lowest first).
func (r *EntityRegistry) SourceIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, len(r.sources))
	for i, s := range r.sources {
		ids[i] = s.id
	}
	return ids
}

func (r *EntityRegistry) union() entityView {
	r.mu.Lock()
	sources := slices.Clone(r.sources)
	r.mu.Unlock()

	var merged []*Entity
	pos := make(map[string]int)
	for _, src := range sources {
		for _, e := range readSource(src) {
			if e == nil || e.UID() == "" {
				log.Warn(log.CatCatalog, "Skipping entity without uid", "source", src.id)
				continue
			}
			if i, dup := pos[e.UID()]; dup {
				merged[i] = nil
			}
			pos[e.UID()] = len(merged)
			merged = append(merged, e)
		}
	}
	return newView(slices.DeleteFunc(merged, func(e *Entity) bool { return e == nil }))
}

func readSource(src *computedSource) (list []*Entity) {
	defer func() {
		if p := recover(); p != nil {
			log.Error(log.CatCatalog, "Entity source panicked", "source", src.id, "panic", fmt.Sprint(p))
			list = nil
		}
	}()
	return src.reader.Get()
}

func newView(list []*Entity) entityView {
	v := entityView{list: list, byUID: make(map[string]*Entity, len(list))}
	for _, e := range list {
		v.byUID[e.UID()] = e
	}
	return v
}

// Entities returns the visible entities in order. The slice must not be modified.
func (r *EntityRegistry) Entities() []*Entity {
	return r.visible.Get().list
}

// EntityMap returns visible entities keyed by UID as a fresh map.
func (r *EntityRegistry) EntityMap() map[string]*Entity {
	v := r.visible.Get()
	m := make(map[string]*Entity, len(v.byUID))
	for k, e := range v.byUID {
		m[k] = e
	}
	return m
}

// GetByID returns a visible entity.
func (r *EntityRegistry) GetByID(uid string) (*Entity, bool) {
	e, ok := r.visible.Get().byUID[uid]
	return e, ok
}

// AllEntities returns every entity before filtering.
func (r *EntityRegistry) AllEntities() []*Entity {
	return r.all.Get().list
}

// Changes implements reactive.Source for the visible entity list.
func (r *EntityRegistry) Changes() *reactive.Notifier {
	return r.visible.Changes()
}

// Get implements reactive.Reader.
func (r *EntityRegistry) Get() []*Entity {
	return r.Entities()
}

// Observe calls fn with the visible entities after every change.
func (r *EntityRegistry) Observe(fn func([]*Entity), opts ...reactive.ObserveOption) reactive.Disposer {
	return reactive.Observe[[]*Entity](r, r.Entities, fn, opts...)
}

// AddCatalogFilter installs pred. Visible entities must pass every filter.
func (r *EntityRegistry) AddCatalogFilter(pred EntityFilter) reactive.Disposer {
	return r.filters.add(pred)
}

// FilterCount returns the number of installed filters.
func (r *EntityRegistry) FilterCount() int {
	return r.filters.len()
}

// GetItemsForAPIKind returns visible entities of the given apiVersion and kind.
func (r *EntityRegistry) GetItemsForAPIKind(apiVersion, kind string) []*Entity {
	var out []*Entity
	for _, e := range r.Entities() {
		if e.APIVersion == apiVersion && e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// GetItemsForCategory returns visible entities classified by c.
func (r *EntityRegistry) GetItemsForCategory(c Category) []*Entity {
	return r.GetItemsForAPIKind(c.APIVersion, c.Kind)
}

// ActiveEntity returns the last entity set active. It is kept even if the
// entity disappears from the catalog, until cleared.
func (r *EntityRegistry) ActiveEntity() *Entity {
	return r.active.Get()
}

// Active exposes the active entity as a reactive value.
func (r *EntityRegistry) Active() reactive.Reader[*Entity] {
	return r.active
}

// SetActiveEntity marks e active. e need not be in the catalog.
func (r *EntityRegistry) SetActiveEntity(e *Entity) {
	r.active.Set(e)
}

// ClearActiveEntity unsets the active entity.
func (r *EntityRegistry) ClearActiveEntity() {
	r.active.Set(nil)
}
