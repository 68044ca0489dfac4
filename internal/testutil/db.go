// Package testutil provides shared fixtures for registrar tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/registrar/internal/store"
)

// NewTestStore opens a migrated store in a temporary directory. It is closed
// when the test ends.
func NewTestStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "registrar.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
