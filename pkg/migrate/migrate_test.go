package migrate

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"migrations/001_create_runs.up.sql":      {Data: []byte("CREATE TABLE runs (id TEXT PRIMARY KEY);")},
		"migrations/001_create_runs.down.sql":    {Data: []byte("DROP TABLE runs;")},
		"migrations/002_add_run_label.up.sql":    {Data: []byte("ALTER TABLE runs ADD COLUMN label TEXT;")},
		"migrations/002_add_run_label.down.sql":  {Data: []byte("ALTER TABLE runs DROP COLUMN label;")},
		"migrations/README.md":                   {Data: []byte("not a migration")},
	}
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestFSProvider(t *testing.T) {
	migrations, err := NewFSProvider(testFS(), "migrations").Migrations()
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "create runs", migrations[0].Name)
	assert.NotEmpty(t, migrations[0].Up)
	assert.NotEmpty(t, migrations[0].Down)
	assert.Equal(t, 2, migrations[1].Version)
}

func TestMigrateUpAndDown(t *testing.T) {
	db := openDB(t)
	var applied []string
	m := NewMigrator(db, NewFSProvider(testFS(), "migrations"), WithLogger(func(format string, args ...any) {
		applied = append(applied, format)
	}))

	require.NoError(t, m.MigrateUp())
	v, err := m.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Len(t, applied, 2)

	_, err = db.Exec("INSERT INTO runs (id, label) VALUES ('a', 'first')")
	require.NoError(t, err)

	// running again is a no-op
	require.NoError(t, m.MigrateUp())
	pending, err := m.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, m.MigrateTo(1))
	v, err = m.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	require.NoError(t, m.MigrateDown(0))
	v, err = m.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 0, v)

	assert.Error(t, m.MigrateDown(0))
}
