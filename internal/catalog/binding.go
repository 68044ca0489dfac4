package catalog

import (
	"context"

	"github.com/zjrosen/registrar/internal/log"
	"github.com/zjrosen/registrar/internal/reactive"
	"github.com/zjrosen/registrar/internal/registry"
)

// Source binds a producer's entity list to the registry. The source id is
// "<producer>/<name>".
func (r *EntityRegistry) Source(name string, reader reactive.Reader[[]*Entity]) registry.Binding {
	return &entityBinding{reg: r, name: name, reader: reader}
}

type entityBinding struct {
	reg    *EntityRegistry
	name   string
	reader reactive.Reader[[]*Entity]
}

func (b *entityBinding) Target() string {
	return "catalog/" + b.name
}

func (b *entityBinding) Attach(_ context.Context, _ *registry.Hub, owner string) (registry.Attachment, error) {
	return &disposerAttachment{dispose: b.reg.AddComputedSource(owner+"/"+b.name, b.reader)}, nil
}

// Binding registers categories for the lifetime of a producer. A category
// declared by several producers, or also registered directly, stays until the
// last of them lets go of it.
func (r *CategoryRegistry) Binding(categories ...Category) registry.Binding {
	return &categoryBinding{reg: r, categories: categories}
}

type categoryBinding struct {
	reg        *CategoryRegistry
	categories []Category
}

func (b *categoryBinding) Target() string {
	return "categories"
}

func (b *categoryBinding) Attach(_ context.Context, _ *registry.Hub, owner string) (registry.Attachment, error) {
	var ds reactive.Disposers
	for _, c := range b.categories {
		d, err := b.reg.Acquire(c)
		if err != nil {
			ds.Dispose()
			return nil, err
		}
		log.Debug(log.CatCatalog, "Category held", "producer", owner, "category", c.ID())
		ds.Add(d)
	}
	return &disposerAttachment{dispose: ds.Dispose}, nil
}

// disposerAttachment withdraws everything when stopped; there is no separate
// list to retract.
type disposerAttachment struct {
	dispose func()
}

func (a *disposerAttachment) Stop() {
	a.dispose()
}

func (a *disposerAttachment) Retract(context.Context) {}
