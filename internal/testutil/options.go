package testutil

import (
	"context"

	"github.com/zjrosen/registrar/internal/catalog"
)

// EntityOption configures an entity during builder setup.
type EntityOption func(*catalog.Entity)

// defaultEntity returns a General entity whose uid and name are both id.
func defaultEntity(id string) *catalog.Entity {
	return &catalog.Entity{
		APIVersion: catalog.General.APIVersion,
		Kind:       catalog.General.Kind,
		Metadata:   catalog.Metadata{UID: id, Name: id, Source: SourceName},
		Status:     catalog.Status{Phase: catalog.PhaseAvailable},
	}
}

// Name sets metadata.name.
func Name(name string) EntityOption {
	return func(e *catalog.Entity) { e.Metadata.Name = name }
}

// OfCategory sets apiVersion and kind from c.
func OfCategory(c catalog.Category) EntityOption {
	return func(e *catalog.Entity) {
		e.APIVersion = c.APIVersion
		e.Kind = c.Kind
	}
}

// Cluster makes the entity a KubernetesCluster.
func Cluster() EntityOption {
	return OfCategory(catalog.KubernetesCluster)
}

// Labels adds key/value label pairs.
func Labels(kv ...string) EntityOption {
	return func(e *catalog.Entity) {
		if e.Metadata.Labels == nil {
			e.Metadata.Labels = make(map[string]string)
		}
		for i := 0; i+1 < len(kv); i += 2 {
			e.Metadata.Labels[kv[i]] = kv[i+1]
		}
	}
}

// Phase sets status.phase.
func Phase(phase string) EntityOption {
	return func(e *catalog.Entity) { e.Status.Phase = phase }
}

// Description sets metadata.description.
func Description(d string) EntityOption {
	return func(e *catalog.Entity) { e.Metadata.Description = d }
}

// Spec sets a spec field.
func Spec(key string, value any) EntityOption {
	return func(e *catalog.Entity) {
		if e.Spec == nil {
			e.Spec = make(map[string]any)
		}
		e.Spec[key] = value
	}
}

// OnRun sets the run handler.
func OnRun(fn func(ctx context.Context, e *catalog.Entity) error) EntityOption {
	return func(e *catalog.Entity) { e.OnRun = fn }
}

// NewEntity builds a standalone entity.
func NewEntity(id string, opts ...EntityOption) *catalog.Entity {
	e := defaultEntity(id)
	for _, opt := range opts {
		opt(e)
	}
	return e
}
