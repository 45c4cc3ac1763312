package testdb

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tokenfeed/salesbot/internal/db"
)

func SetupTestDB(t *testing.T) (*sql.DB, func()) {
	path := filepath.Join(t.TempDir(), "sqlite")
	sqlite, err := db.OpenSqlite(path)
	require.NoError(t, err)

	cleanup := func() {
		sqlite.Close()
	}
	return sqlite, cleanup
}
