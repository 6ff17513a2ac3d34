// Package postgres implements the storage.Backend interface on PostgreSQL by
// wrapping the GORM backend with its own connection.
package postgres

import (
	"errors"
	"fmt"

	"github.com/mapreader/tracer/internal/database"
	"github.com/mapreader/tracer/internal/logging"
	gormstorage "github.com/mapreader/tracer/internal/storage/gorm"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the Postgres storage backend.
// DB is optional; when nil Init connects through Manager using the db.*
// configuration. A Manager with Fallback set may end up on SQLite.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager
	Manager    *database.Manager
}

// Backend is the GORM backend bound to a Postgres connection.
type Backend struct {
	*gormstorage.Backend
	deps    Dependencies
	manager *database.Manager
}

// New creates a new Postgres storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{deps: deps}
}

// Init connects if needed and initializes the embedded GORM backend.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		m := b.deps.Manager
		if m == nil {
			m = database.NewManager(zerolog.Nop())
		}
		if err := m.Connect(); err != nil {
			return err
		}
		b.manager = m
		b.deps.DB = m.DB
		if m.ShouldSaveLocal {
			b.writeLog("postgres:init", fmt.Sprintf("Postgres unreachable, using local SQLite written to %q", m.SqliteFilePath), "WARN")
		}
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:         b.deps.DB,
		LogManager: b.deps.LogManager,
	})
	return b.Backend.Init()
}

// Local reports whether Init fell back to a local SQLite database.
func (b *Backend) Local() bool {
	return b.manager != nil && b.manager.ShouldSaveLocal
}

// Close closes the embedded GORM backend, then the connection it opened.
func (b *Backend) Close() error {
	var errs []error
	if b.Backend != nil {
		errs = append(errs, b.Backend.Close())
	}
	if b.manager != nil {
		errs = append(errs, b.manager.Close())
		b.manager = nil
	}
	return errors.Join(errs...)
}

func (b *Backend) writeLog(command, data, level string) {
	if b.deps.LogManager != nil {
		b.deps.LogManager.WriteLog(command, data, level)
	}
}
