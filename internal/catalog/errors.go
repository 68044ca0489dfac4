package catalog

import "errors"

var (
	ErrNilEntity         = errors.New("entity is nil")
	ErrDuplicateCategory = errors.New("category already registered")
	ErrInvalidCategory   = errors.New("category needs apiVersion and kind")
	ErrInvalidFilter     = errors.New("invalid filter expression")
	ErrUnknownCategory   = errors.New("unknown category")
)
