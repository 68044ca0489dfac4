// Package catalog aggregates catalog entities from many reactive sources into
// one filtered view and classifies them with categories.
package catalog

import (
	"context"
	"maps"

	"github.com/google/uuid"
)

// Entity phases.
const (
	PhaseAvailable    = "available"
	PhaseConnected    = "connected"
	PhaseDisconnected = "disconnected"
	PhaseDeleting     = "deleting"
)

// KindData is the (apiVersion, kind) pair categories match on.
type KindData struct {
	APIVersion string
	Kind       string
}

// String renders "apiVersion/kind".
func (k KindData) String() string {
	return k.APIVersion + "/" + k.Kind
}

// Metadata identifies an entity. UID is its identity in the registry.
type Metadata struct {
	UID         string            `json:"uid" yaml:"uid"`
	Name        string            `json:"name" yaml:"name"`
	Source      string            `json:"source,omitempty" yaml:"source,omitempty"`
	Labels      map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
}

// Status is the observed state of an entity.
type Status struct {
	Phase   string `json:"phase" yaml:"phase"`
	Reason  string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// RunFunc opens or activates an entity.
type RunFunc func(ctx context.Context, e *Entity) error

// Entity is a registered external resource, such as a cluster.
type Entity struct {
	APIVersion string         `json:"apiVersion" yaml:"apiVersion"`
	Kind       string         `json:"kind" yaml:"kind"`
	Metadata   Metadata       `json:"metadata" yaml:"metadata"`
	Spec       map[string]any `json:"spec,omitempty" yaml:"spec,omitempty"`
	Status     Status         `json:"status" yaml:"status"`

	OnRun RunFunc `json:"-" yaml:"-"`
}

// UID returns the entity identity.
func (e *Entity) UID() string {
	return e.Metadata.UID
}

// StableUID derives a deterministic uid for an entity that was declared
// without one, so it keeps its identity across reloads.
func StableUID(source, name string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("registrar://"+source+"/"+name)).String()
}

// KindData returns the entity's classification pair.
func (e *Entity) KindData() KindData {
	return KindData{APIVersion: e.APIVersion, Kind: e.Kind}
}

// Label returns a metadata label value.
func (e *Entity) Label(key string) string {
	return e.Metadata.Labels[key]
}

// Clone returns a copy whose maps can be modified independently.
func (e *Entity) Clone() *Entity {
	c := *e
	c.Metadata.Labels = maps.Clone(e.Metadata.Labels)
	c.Spec = maps.Clone(e.Spec)
	return &c
}

// AsMap is the view of e exposed to filter expressions.
func (e *Entity) AsMap() map[string]any {
	labels := make(map[string]any, len(e.Metadata.Labels))
	for k, v := range e.Metadata.Labels {
		labels[k] = v
	}
	spec := e.Spec
	if spec == nil {
		spec = map[string]any{}
	}
	return map[string]any{
		"apiVersion": e.APIVersion,
		"kind":       e.Kind,
		"metadata": map[string]any{
			"uid":         e.Metadata.UID,
			"name":        e.Metadata.Name,
			"source":      e.Metadata.Source,
			"labels":      labels,
			"description": e.Metadata.Description,
		},
		"spec": spec,
		"status": map[string]any{
			"phase":   e.Status.Phase,
			"reason":  e.Status.Reason,
			"message": e.Status.Message,
		},
	}
}
