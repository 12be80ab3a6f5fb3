package sqldb

import (
	"context"
	"path/filepath"
	"testing"

	"iinfinder/internal/platform/config"
)

// OpenTemp opens a migrated SQLite database in a test temp dir.
func OpenTemp(t testing.TB) *DB {
	t.Helper()
	db, err := Open(context.Background(), config.DatabaseConfig{
		Driver: string(DialectSQLite),
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("open temp database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
