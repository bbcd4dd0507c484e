// Package testutil opens throwaway stores for tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"daycare-backend-go/internal/db"
	"daycare-backend-go/internal/migrations"

	"github.com/stretchr/testify/require"
)

// OpenStore returns a migrated SQLite store in a temp directory. It is closed
// when the test ends.
func OpenStore(t testing.TB) *db.Store {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, migrations.Apply(context.Background(), store))
	return store
}
