// Package registry implements the reactive capability registry: typed
// contribution stores, the differencing reconciler that keeps them in sync with
// producer sources, and the lifecycle manager that loads and unloads producers.
package registry

// Token names a contribution channel and fixes its payload type.
// Two tokens with the same name address the same store, so the name must
// always be used with the same payload type.
type Token[T any] struct {
	name string
}

// NewToken declares a token.
func NewToken[T any](name string) Token[T] {
	return Token[T]{name: name}
}

// Name returns the token name.
func (t Token[T]) Name() string {
	return t.name
}

// String implements fmt.Stringer.
func (t Token[T]) String() string {
	return t.name
}
