package catalog

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/zjrosen/registrar/internal/reactive"
)

// LocalSourceName is the source label of user-added entities.
const LocalSourceName = "local"

// LocalSource holds entities added by the user. It is persisted through the
// Load/ToJSON contract.
type LocalSource struct {
	value *reactive.Value[[]*Entity]
}

type localDocument struct {
	Entities []*Entity `json:"entities"`
}

// NewLocalSource creates an empty source.
func NewLocalSource() *LocalSource {
	return &LocalSource{value: reactive.NewValue[[]*Entity](nil)}
}

// Reader exposes the entity list for AddComputedSource.
func (s *LocalSource) Reader() reactive.Reader[[]*Entity] {
	return s.value
}

// Add stores a copy of e, assigning a uid when it has none. An entity with the
// same uid is replaced. Returns the stored copy.
func (s *LocalSource) Add(e *Entity) (*Entity, error) {
	if e == nil {
		return nil, ErrNilEntity
	}
	if e.APIVersion == "" || e.Kind == "" {
		return nil, fmt.Errorf("entity %q needs apiVersion and kind", e.Metadata.Name)
	}

	stored := e.Clone()
	if stored.Metadata.UID == "" {
		stored.Metadata.UID = uuid.NewString()
	}
	stored.Metadata.Source = LocalSourceName

	s.value.Update(func(cur []*Entity) []*Entity {
		next := slices.DeleteFunc(slices.Clone(cur), func(x *Entity) bool { return x.UID() == stored.UID() })
		return append(next, stored)
	})
	return stored, nil
}

// Remove deletes the entity with uid.
func (s *LocalSource) Remove(uid string) bool {
	cur := s.value.Get()
	next := slices.DeleteFunc(slices.Clone(cur), func(x *Entity) bool { return x.UID() == uid })
	if len(next) == len(cur) {
		return false
	}
	s.value.Set(next)
	return true
}

// Load replaces the entities with the persisted document.
func (s *LocalSource) Load(data []byte) error {
	var doc localDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode local entities: %w", err)
	}
	doc.Entities = slices.DeleteFunc(doc.Entities, func(e *Entity) bool { return e == nil || e.UID() == "" })
	for _, e := range doc.Entities {
		e.Metadata.Source = LocalSourceName
	}
	s.value.Set(doc.Entities)
	return nil
}

// ToJSON encodes the entities for persistence.
func (s *LocalSource) ToJSON() ([]byte, error) {
	doc := localDocument{Entities: s.value.Get()}
	if doc.Entities == nil {
		doc.Entities = []*Entity{}
	}
	return json.Marshal(doc)
}
