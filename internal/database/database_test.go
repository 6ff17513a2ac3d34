package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mapreader/tracer/internal/model"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSqliteDB_Migrate(t *testing.T) {
	db, err := GetSqliteDB(filepath.Join(t.TempDir(), "projects.db"))
	require.NoError(t, err)

	require.NoError(t, Migrate(db))

	for _, m := range model.DatabaseModels {
		assert.True(t, db.Migrator().HasTable(m), "missing table for %T", m)
	}
}

func TestDumpMemoryDBToDisk(t *testing.T) {
	dir := t.TempDir()
	db, err := GetSqliteDB(filepath.Join(dir, "source.sqlite"))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	require.NoError(t, db.Create(&model.Project{Name: "dumped"}).Error)

	target := filepath.Join(dir, "dump.db")
	require.NoError(t, os.WriteFile(target, []byte("stale"), 0o644))

	require.NoError(t, DumpMemoryDBToDisk(db, target))

	restored, err := GetSqliteDB(target)
	require.NoError(t, err)
	var p model.Project
	require.NoError(t, restored.Where("name = ?", "dumped").First(&p).Error)
	assert.Equal(t, "dumped", p.Name)
}

func TestDumpMemoryDBToDisk_NoPath(t *testing.T) {
	assert.Error(t, DumpMemoryDBToDisk(nil, ""))
}

// Port 1 refuses connections, so Postgres is never reached.
func unreachablePostgres(t *testing.T) {
	t.Helper()
	viper.Set("db.host", "127.0.0.1")
	viper.Set("db.port", "1")
	viper.Set("db.username", "postgres")
	viper.Set("db.password", "postgres")
	viper.Set("db.database", "mapreader")
	t.Cleanup(viper.Reset)
}

func TestManager_ConnectWithoutFallback(t *testing.T) {
	unreachablePostgres(t)
	m := NewManager(zerolog.Nop())

	err := m.Connect()

	assert.Error(t, err)
	assert.False(t, m.IsValid)
	assert.False(t, m.ShouldSaveLocal)
	assert.NoError(t, m.Close())
}

func TestManager_FallbackDumpsOnClose(t *testing.T) {
	unreachablePostgres(t)
	path := filepath.Join(t.TempDir(), "nested", "fallback.db")
	m := NewManager(zerolog.Nop())
	m.Fallback = true
	m.SqliteFilePath = path

	require.NoError(t, m.Connect())
	assert.True(t, m.IsValid)
	assert.True(t, m.ShouldSaveLocal)
	assert.Equal(t, "sqlite", m.DB.Dialector.Name())

	require.NoError(t, Migrate(m.DB))
	require.NoError(t, m.DB.Create(&model.Project{Name: "offline"}).Error)
	require.NoError(t, m.Close())

	restored, err := GetSqliteDB(path)
	require.NoError(t, err)
	var p model.Project
	require.NoError(t, restored.Where("name = ?", "offline").First(&p).Error)
	assert.Equal(t, "offline", p.Name)
}

func TestProjectGetOrInsert(t *testing.T) {
	db, err := GetSqliteDB(filepath.Join(t.TempDir(), "projects.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	p := model.Project{Name: "sierra", Unit: "km"}
	created, err := p.GetOrInsert(db)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, p.ID)

	again := model.Project{Name: "sierra"}
	created, err = again.GetOrInsert(db)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, p.ID, again.ID)
	assert.Equal(t, "km", again.Unit)
}
