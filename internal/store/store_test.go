package store_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qctl/queuectl/internal/logging"
	"github.com/qctl/queuectl/internal/store"
)

// newTestStore opens a real file-backed SQLite database under t.TempDir, not
// ":memory:", so the WAL/busy-timeout path and file-based pid-file neighbor
// (used by supervisor tests) match production behavior.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "queue.db")
	st, err := store.New(dbPath, logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}
