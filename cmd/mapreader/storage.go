package main

import (
	"fmt"

	"github.com/mapreader/tracer/internal/config"
	"github.com/mapreader/tracer/internal/database"
	"github.com/mapreader/tracer/internal/storage"
	"github.com/mapreader/tracer/internal/storage/memory"
	pgstorage "github.com/mapreader/tracer/internal/storage/postgres"
	sqlitestorage "github.com/mapreader/tracer/internal/storage/sqlite"
)

func initStorage() error {
	storageCfg := config.GetStorageConfig()

	backend, err := createStorageBackend(storageCfg)
	if err != nil {
		Logger.Error("Failed to create storage backend", "error", err)
		return err
	}
	if err := backend.Init(); err != nil {
		Logger.Error("Failed to initialize storage backend", "error", err, "type", storageCfg.Type)
		return err
	}
	storageBackend = backend
	Logger.Info("Storage backend initialized", "type", storageCfg.Type)
	return nil
}

func createStorageBackend(storageCfg config.StorageConfig) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		manager := database.NewManager(ZLogger)
		manager.Fallback = storageCfg.Postgres.Fallback
		manager.SqliteFilePath = storageCfg.Postgres.FallbackPath
		return pgstorage.New(pgstorage.Dependencies{
			LogManager: SlogManager,
			Manager:    manager,
		}), nil

	case "sqlite":
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: storageCfg.SQLite.DumpInterval,
			DumpDir:      storageCfg.SQLite.DumpDir,
		}, SlogManager)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		return backend, nil

	case "memory", "":
		return memory.New(storageCfg.Memory), nil
	}
	return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
}
