package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/registrar/internal/catalog"
	"github.com/zjrosen/registrar/internal/reactive"
)

// SourceName is the entity source id used by Builder.
const SourceName = "testutil"

// Catalog is a populated entity and category registry pair.
type Catalog struct {
	Entities   *catalog.EntityRegistry
	Categories *catalog.CategoryRegistry

	// Source feeds Entities; set it to change the catalog contents.
	Source *reactive.Value[[]*catalog.Entity]
}

// Builder accumulates test entities and categories.
type Builder struct {
	t          *testing.T
	entities   []*catalog.Entity
	categories []catalog.Category
	active     string
}

// NewBuilder creates an empty builder.
func NewBuilder(t *testing.T) *Builder {
	t.Helper()
	return &Builder{t: t}
}

// WithEntity adds an entity with optional configuration.
func (b *Builder) WithEntity(id string, opts ...EntityOption) *Builder {
	b.entities = append(b.entities, NewEntity(id, opts...))
	return b
}

// WithCategory registers c in addition to the built-in categories.
func (b *Builder) WithCategory(c catalog.Category) *Builder {
	b.categories = append(b.categories, c)
	return b
}

// WithActive marks the entity with uid active after building.
func (b *Builder) WithActive(uid string) *Builder {
	b.active = uid
	return b
}

// Build creates the registries. Built-in categories are always registered.
func (b *Builder) Build() *Catalog {
	b.t.Helper()

	c := &Catalog{
		Entities:   catalog.NewEntityRegistry(),
		Categories: catalog.NewCategoryRegistry(catalog.General, catalog.KubernetesCluster),
		Source:     reactive.NewValue(b.entities),
	}
	for _, cat := range b.categories {
		_, err := c.Categories.Add(cat)
		require.NoError(b.t, err)
	}
	c.Entities.AddComputedSource(SourceName, c.Source)

	if b.active != "" {
		e, ok := c.Entities.GetByID(b.active)
		require.True(b.t, ok, "active entity %q not in catalog", b.active)
		c.Entities.SetActiveEntity(e)
	}
	return c
}
