package sqlitestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mapreader/tracer/internal/database"
	"github.com/mapreader/tracer/internal/logging"
	"github.com/mapreader/tracer/internal/model"
	"github.com/mapreader/tracer/internal/storage"
	"github.com/mapreader/tracer/internal/storage/storagetest"
	"github.com/mapreader/tracer/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ storage.Backend = (*Backend)(nil)

func newTestBackend(t *testing.T, cfg Config) *Backend {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "live.sqlite")
	}
	b, err := New(cfg, logging.NewSlogManager())
	require.NoError(t, err)
	require.NoError(t, b.Init())
	return b
}

func TestBackend(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		b := newTestBackend(t, Config{})
		t.Cleanup(func() { _ = b.Close() })
		return b
	})
}

func TestDumpPath(t *testing.T) {
	b := &Backend{cfg: Config{DumpDir: "/data"}}
	assert.Equal(t, filepath.Join("/data", DumpFileName), b.DumpPath())

	b = &Backend{}
	assert.Empty(t, b.DumpPath())
}

func TestClose_WritesDump(t *testing.T) {
	dir := t.TempDir()
	b := newTestBackend(t, Config{DumpDir: dir})

	p := core.Project{Name: "sierra", References: core.ReferenceSet{{Latitude: 38, Longitude: -120}}}
	require.NoError(t, b.SaveProject(&p))
	lp := core.LocatedPoint{ProjectID: p.ID, Traces: []core.TraceRecord{{Unit: core.Kilometer}}}
	require.NoError(t, b.RecordLocation(&lp))

	require.NoError(t, b.Close())

	dump, err := database.GetSqliteDB(filepath.Join(dir, DumpFileName))
	require.NoError(t, err)
	var count int64
	require.NoError(t, dump.Model(&model.TraceRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	require.NoError(t, dump.Model(&model.ReferencePoint{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDumpLoop(t *testing.T) {
	dir := t.TempDir()
	b := newTestBackend(t, Config{DumpDir: dir, DumpInterval: 20 * time.Millisecond})
	defer b.Close()

	require.NoError(t, b.SaveProject(&core.Project{Name: "sierra"}))

	assert.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, DumpFileName))
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
}
