// Package gormstorage implements the storage.Backend interface on GORM. It is
// shared by the SQLite and Postgres backends; trace records are queued and
// written in batches by a background goroutine.
package gormstorage

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mapreader/tracer/internal/database"
	"github.com/mapreader/tracer/internal/logging"
	"github.com/mapreader/tracer/internal/model"
	"github.com/mapreader/tracer/internal/model/convert"
	"github.com/mapreader/tracer/internal/queue"
	"github.com/mapreader/tracer/internal/storage"
	"github.com/mapreader/tracer/pkg/core"
	"gorm.io/gorm"
)

// DefaultFlushInterval is how often queued trace records are written.
const DefaultFlushInterval = 2 * time.Second

var ErrNoDatabase = errors.New("no database connection")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	LogManager    *logging.SlogManager
	FlushInterval time.Duration
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps     Dependencies
	traces   *queue.Queue[model.TraceRecord]
	stopChan chan struct{}
	done     chan struct{}
	flushMu  sync.Mutex
	now      func() time.Time
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps:   deps,
		traces: queue.New[model.TraceRecord](),
		now:    time.Now,
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return ErrNoDatabase
	}
	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.writeLog("setupDB", "Database setup complete", "INFO")

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writer()
	return nil
}

// Close stops the DB writer goroutine and writes whatever is still queued.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}
	if b.deps.DB == nil {
		return nil
	}
	return b.Flush()
}

// SaveProject creates the project or updates the one with the same name,
// replacing its reference set.
func (b *Backend) SaveProject(p *core.Project) error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return storage.ErrProjectName
	}

	now := b.now()
	row := model.Project{Name: name}
	row.CreatedAt = p.Created
	err := b.deps.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := row.GetOrInsert(tx); err != nil {
			return fmt.Errorf("failed to get or insert project: %w", err)
		}
		row.PixelsPerUnit = p.Scale.PixelsPerUnit
		row.Unit = string(p.Scale.Unit)
		row.LastAccessed = now
		if err := tx.Save(&row).Error; err != nil {
			return fmt.Errorf("failed to update project: %w", err)
		}

		if err := tx.Where("project_id = ?", row.ID).Delete(&model.ReferencePoint{}).Error; err != nil {
			return fmt.Errorf("failed to clear references: %w", err)
		}
		if len(p.References) == 0 {
			return nil
		}
		refs, err := convert.CoreToReferences(row.ID, p.References)
		if err != nil {
			return err
		}
		if err := tx.Create(&refs).Error; err != nil {
			return fmt.Errorf("failed to insert references: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	p.ID = row.ID
	p.Name = name
	p.Created = row.CreatedAt
	p.LastAccessed = now
	return nil
}

// LoadProject returns the named project with its references and points.
func (b *Backend) LoadProject(name string) (core.Project, error) {
	if err := b.Flush(); err != nil {
		return core.Project{}, err
	}

	var row model.Project
	err := b.deps.DB.
		Preload("References").
		Preload("Points", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Points.Traces").
		Where("name = ?", strings.TrimSpace(name)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.Project{}, fmt.Errorf("%w: %q", storage.ErrProjectNotFound, name)
	}
	if err != nil {
		return core.Project{}, fmt.Errorf("failed to load project: %w", err)
	}

	now := b.now()
	if err := b.deps.DB.Model(&model.Project{}).Where("id = ?", row.ID).Update("last_accessed", now).Error; err != nil {
		b.writeLog("LoadProject", fmt.Sprintf("Failed to stamp last access: %v", err), "WARN")
	} else {
		row.LastAccessed = now
	}

	return convert.ProjectToCore(row), nil
}

// ListProjects returns every project with its references, ordered by name.
func (b *Backend) ListProjects() ([]core.Project, error) {
	var rows []model.Project
	if err := b.deps.DB.Preload("References").Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	out := make([]core.Project, len(rows))
	for i, row := range rows {
		out[i] = convert.ProjectToCore(row)
	}
	return out, nil
}

// SetScale replaces a project's scale.
func (b *Backend) SetScale(projectID uint, scale core.ScaleFactor) error {
	res := b.deps.DB.Model(&model.Project{}).Where("id = ?", projectID).Updates(map[string]any{
		"pixels_per_unit": scale.PixelsPerUnit,
		"unit":            string(scale.Unit),
	})
	if res.Error != nil {
		return fmt.Errorf("failed to set scale: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: id %d", storage.ErrProjectNotFound, projectID)
	}
	return nil
}

// AddReference appends to a project's reference set.
func (b *Backend) AddReference(projectID uint, ref core.GeoCoordinate) error {
	if err := b.requireProject(projectID); err != nil {
		return err
	}

	var ordinal int64
	if err := b.deps.DB.Model(&model.ReferencePoint{}).Where("project_id = ?", projectID).Count(&ordinal).Error; err != nil {
		return fmt.Errorf("failed to count references: %w", err)
	}

	row, err := convert.CoreToReference(projectID, int(ordinal), ref)
	if err != nil {
		return err
	}
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert reference: %w", err)
	}
	return nil
}

// RecordLocation inserts the located point synchronously so its ID can be
// returned, and queues its trace records.
func (b *Backend) RecordLocation(lp *core.LocatedPoint) error {
	if err := b.requireProject(lp.ProjectID); err != nil {
		return err
	}

	now := b.now()
	if lp.Created.IsZero() {
		lp.Created = now
	}

	row, err := convert.CoreToLocatedPoint(*lp)
	if err != nil {
		return fmt.Errorf("failed to encode trace log: %w", err)
	}
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert located point: %w", err)
	}

	lp.ID = row.ID
	traces, err := convert.CoreToTraceRecords(row.ID, lp.Traces, now)
	if err != nil {
		return err
	}
	b.traces.Push(traces...)
	return nil
}

// Points returns a project's located points in insertion order.
func (b *Backend) Points(projectID uint) ([]core.LocatedPoint, error) {
	if err := b.requireProject(projectID); err != nil {
		return nil, err
	}
	if err := b.Flush(); err != nil {
		return nil, err
	}

	var rows []model.LocatedPoint
	if err := b.deps.DB.Preload("Traces").Where("project_id = ?", projectID).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load points: %w", err)
	}

	out := make([]core.LocatedPoint, len(rows))
	for i, row := range rows {
		out[i] = convert.LocatedPointToCore(row)
	}
	return out, nil
}

// Pending returns the number of queued trace records.
func (b *Backend) Pending() int {
	return b.traces.Len()
}

// Flush writes all queued trace records now.
func (b *Backend) Flush() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()
	return writeQueue(b.deps.DB, b.traces, "trace records", b.writeLog)
}

func (b *Backend) requireProject(projectID uint) error {
	var count int64
	if err := b.deps.DB.Model(&model.Project{}).Where("id = ?", projectID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up project: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("%w: id %d", storage.ErrProjectNotFound, projectID)
	}
	return nil
}

func (b *Backend) writeLog(command, data, level string) {
	if b.deps.LogManager != nil {
		b.deps.LogManager.WriteLog(command, data, level)
	}
}

// writeQueue writes all items from a queue to the database in a transaction.
// Failed batches go back to the front for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log func(string, string, string)) error {
	if q.Empty() {
		return nil
	}

	items := q.GetAndEmpty()
	tx := db.Begin()
	if err := tx.Create(&items).Error; err != nil {
		log(":DB:WRITER:", fmt.Sprintf("Error creating %s: %v", name, err), "ERROR")
		tx.Rollback()
		q.Requeue(items...)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	if err := tx.Commit().Error; err != nil {
		q.Requeue(items...)
		return fmt.Errorf("failed to commit %s: %w", name, err)
	}
	log(":DB:WRITER:", fmt.Sprintf("Wrote %d %s", len(items), name), "DEBUG")
	return nil
}

// writer periodically drains the trace queue into the DB.
func (b *Backend) writer() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			_ = b.Flush()
		}
	}
}
