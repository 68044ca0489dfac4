package catalog

import (
	"fmt"
	"slices"
	"sync"

	"github.com/zjrosen/registrar/internal/log"
	"github.com/zjrosen/registrar/internal/reactive"
)

// CategoryMetadata describes how a category is displayed.
type CategoryMetadata struct {
	Name string `json:"name" yaml:"name"`
	Icon string `json:"icon,omitempty" yaml:"icon,omitempty"`
}

// Category classifies entities of one apiVersion and kind.
type Category struct {
	APIVersion string           `json:"apiVersion" yaml:"apiVersion"`
	Kind       string           `json:"kind" yaml:"kind"`
	Metadata   CategoryMetadata `json:"metadata" yaml:"metadata"`
}

// ID returns "apiVersion/kind".
func (c Category) ID() string {
	return c.KindData().String()
}

// KindData returns the pair the category matches.
func (c Category) KindData() KindData {
	return KindData{APIVersion: c.APIVersion, Kind: c.Kind}
}

// Matches reports whether entities with k belong to c.
func (c Category) Matches(k KindData) bool {
	return c.APIVersion == k.APIVersion && c.Kind == k.Kind
}

// Built-in categories.
var (
	General = Category{
		APIVersion: "catalog.registrar.dev/v1alpha1",
		Kind:       "General",
		Metadata:   CategoryMetadata{Name: "General", Icon: "◆"},
	}
	KubernetesCluster = Category{
		APIVersion: "entity.registrar.dev/v1alpha1",
		Kind:       "KubernetesCluster",
		Metadata:   CategoryMetadata{Name: "Kubernetes Clusters", Icon: "⎈"},
	}
)

// CategoryRegistry holds registered categories and the category filters.
type CategoryRegistry struct {
	mu      sync.RWMutex
	items   []Category
	refs    map[string]int // holders per category id
	changes reactive.Notifier

	filters filterChain[Category]
	visible *reactive.Computed[[]Category]
}

// NewCategoryRegistry creates a registry holding builtins.
func NewCategoryRegistry(builtins ...Category) *CategoryRegistry {
	r := &CategoryRegistry{refs: make(map[string]int)}
	r.visible = reactive.NewComputed(func() []Category {
		return r.filters.keep(r.Items())
	}, &r.changes, &r.filters.changes)
	for _, c := range builtins {
		if _, err := r.Add(c); err != nil {
			log.Warn(log.CatCatalog, "Skipping builtin category", "category", c.ID(), "error", err)
		}
	}
	return r
}

// Add registers c. The disposer removes it again.
func (r *CategoryRegistry) Add(c Category) (reactive.Disposer, error) {
	if c.APIVersion == "" || c.Kind == "" {
		return nil, fmt.Errorf("%q: %w", c.ID(), ErrInvalidCategory)
	}

	r.mu.Lock()
	if slices.ContainsFunc(r.items, func(cur Category) bool { return cur.ID() == c.ID() }) {
		r.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", c.ID(), ErrDuplicateCategory)
	}
	r.items = append(r.items, c)
	r.refs[c.ID()] = 1
	r.mu.Unlock()
	r.changes.Notify()

	id := c.ID()
	return reactive.Once(func() { r.release(id) }), nil
}

// Acquire is Add for callers that share categories: declaring a category that
// is already registered takes another hold on it instead of failing. The
// category stays registered until every holder has disposed.
func (r *CategoryRegistry) Acquire(c Category) (reactive.Disposer, error) {
	if c.APIVersion == "" || c.Kind == "" {
		return nil, fmt.Errorf("%q: %w", c.ID(), ErrInvalidCategory)
	}
	id := c.ID()

	r.mu.Lock()
	added := r.refs[id] == 0
	if added {
		r.items = append(r.items, c)
	}
	r.refs[id]++
	r.mu.Unlock()
	if added {
		r.changes.Notify()
	}
	return reactive.Once(func() { r.release(id) }), nil
}

// release drops one hold on id and removes the category with the last one.
func (r *CategoryRegistry) release(id string) {
	r.mu.Lock()
	r.refs[id]--
	if r.refs[id] > 0 {
		r.mu.Unlock()
		return
	}
	delete(r.refs, id)
	i := slices.IndexFunc(r.items, func(cur Category) bool { return cur.ID() == id })
	if i >= 0 {
		r.items = slices.Delete(r.items, i, i+1)
	}
	r.mu.Unlock()

	if i >= 0 {
		r.changes.Notify()
	}
}

// Items returns every registered category in registration order.
func (r *CategoryRegistry) Items() []Category {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.items)
}

// FilteredItems returns the categories passing every category filter.
func (r *CategoryRegistry) FilteredItems() []Category {
	return r.visible.Get()
}

// HasCategoryForEntity reports whether any registered category matches k.
func (r *CategoryRegistry) HasCategoryForEntity(k KindData) bool {
	_, ok := r.GetCategoryForEntity(k)
	return ok
}

// GetCategoryForEntity returns the registered category matching k.
func (r *CategoryRegistry) GetCategoryForEntity(k KindData) (Category, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.items {
		if c.Matches(k) {
			return c, true
		}
	}
	return Category{}, false
}

// AddCatalogCategoryFilter installs pred over the visible categories.
func (r *CategoryRegistry) AddCatalogCategoryFilter(pred CategoryFilter) reactive.Disposer {
	return r.filters.add(pred)
}

// Changes implements reactive.Source for the visible categories.
func (r *CategoryRegistry) Changes() *reactive.Notifier {
	return r.visible.Changes()
}

// Get implements reactive.Reader.
func (r *CategoryRegistry) Get() []Category {
	return r.FilteredItems()
}

// Observe calls fn with the visible categories after every change.
func (r *CategoryRegistry) Observe(fn func([]Category), opts ...reactive.ObserveOption) reactive.Disposer {
	return reactive.Observe[[]Category](r, r.FilteredItems, fn, opts...)
}
