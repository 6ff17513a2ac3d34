package memory

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	v1 "github.com/mapreader/tracer/internal/storage/memory/export/v1"
)

const snapshotName = "projects.json"

// snapshotPath is the file Export writes and Init reads.
func (b *Backend) snapshotPath() string {
	name := snapshotName
	if b.cfg.CompressOutput {
		name += ".gz"
	}
	return filepath.Join(b.cfg.OutputDir, name)
}

// Export writes every project to the snapshot file and returns its path.
func (b *Backend) Export() (string, error) {
	b.mu.RLock()
	export := v1.Build(b.sorted(), b.now())
	b.mu.RUnlock()

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := b.snapshotPath()
	if err := writeSnapshot(outputPath, b.cfg.CompressOutput, export); err != nil {
		return "", err
	}

	b.mu.Lock()
	b.lastExportPath = outputPath
	b.mu.Unlock()
	return outputPath, nil
}

// ExportedFilePath returns the path of the last snapshot written.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

func (b *Backend) load() error {
	path := b.snapshotPath()
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if b.cfg.CompressOutput {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to open gzip snapshot: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var export v1.Export
	if err := sonic.ConfigDefault.NewDecoder(r).Decode(&export); err != nil {
		return fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}

	projects, err := v1.Restore(export)
	if err != nil {
		return fmt.Errorf("failed to restore snapshot %s: %w", path, err)
	}

	b.mu.Lock()
	b.restore(projects)
	b.mu.Unlock()
	return nil
}

func writeSnapshot(path string, compress bool, data v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	if compress {
		gzWriter := gzip.NewWriter(f)
		defer gzWriter.Close()
		w = gzWriter
	}

	return sonic.ConfigDefault.NewEncoder(w).Encode(data)
}
