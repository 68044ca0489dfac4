package registry

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyID         = errors.New("contribution id is empty")
	ErrNilContribution = errors.New("contribution is nil")
)

// Contribution is one registrable item. Contributions are compared by pointer:
// handing the reconciler a new *Contribution with an existing ID replaces the
// registered entry.
type Contribution[T any] struct {
	ID       string
	ParentID string // optional; groups menu and tree items
	Payload  T
}

// New allocates a contribution.
func New[T any](id string, payload T) *Contribution[T] {
	return &Contribution[T]{ID: id, Payload: payload}
}

// NewChild allocates a contribution nested under parentID.
func NewChild[T any](id, parentID string, payload T) *Contribution[T] {
	return &Contribution[T]{ID: id, ParentID: parentID, Payload: payload}
}

// Validate reports whether c can be registered.
func (c *Contribution[T]) Validate() error {
	if c == nil {
		return ErrNilContribution
	}
	if c.ID == "" {
		return ErrEmptyID
	}
	if c.ParentID == c.ID {
		return fmt.Errorf("contribution %q is its own parent", c.ID)
	}
	return nil
}
