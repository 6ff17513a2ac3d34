// Package memory keeps projects in process memory and persists them as a
// JSON snapshot in the output directory.
package memory

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mapreader/tracer/internal/config"
	"github.com/mapreader/tracer/internal/storage"
	"github.com/mapreader/tracer/pkg/core"
)

// Backend stores projects in memory and exports them to JSON
type Backend struct {
	cfg      config.MemoryConfig
	projects map[uint]*core.Project
	names    map[string]uint

	projectCounter uint
	pointCounter   uint
	lastExportPath string
	now            func() time.Time
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:      cfg,
		projects: make(map[uint]*core.Project),
		names:    make(map[string]uint),
		now:      time.Now,
	}
}

// Init loads the last snapshot from the output directory, if any.
func (b *Backend) Init() error {
	if b.cfg.OutputDir == "" {
		return nil
	}
	return b.load()
}

// Close writes a final snapshot when an output directory is configured.
func (b *Backend) Close() error {
	if b.cfg.OutputDir == "" {
		return nil
	}
	_, err := b.Export()
	return err
}

// SaveProject creates the project or updates the one with the same name.
// Saved points are left untouched.
func (b *Backend) SaveProject(p *core.Project) error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return storage.ErrProjectName
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	existing, ok := b.byName(name)
	if !ok {
		b.projectCounter++
		existing = &core.Project{ID: b.projectCounter, Name: name, Created: now}
		if !p.Created.IsZero() {
			existing.Created = p.Created
		}
		b.projects[existing.ID] = existing
		b.names[name] = existing.ID
	}

	existing.Scale = p.Scale
	existing.References = append(core.ReferenceSet(nil), p.References...)
	existing.LastAccessed = now

	p.ID = existing.ID
	p.Name = name
	p.Created = existing.Created
	p.LastAccessed = now
	return nil
}

// LoadProject returns the named project with its points.
func (b *Backend) LoadProject(name string) (core.Project, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.byName(strings.TrimSpace(name))
	if !ok {
		return core.Project{}, fmt.Errorf("%w: %q", storage.ErrProjectNotFound, name)
	}
	p.LastAccessed = b.now()
	return copyProject(p), nil
}

// ListProjects returns every project ordered by name.
func (b *Backend) ListProjects() ([]core.Project, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.sorted(), nil
}

// SetScale replaces a project's scale.
func (b *Backend) SetScale(projectID uint, scale core.ScaleFactor) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.projects[projectID]
	if !ok {
		return fmt.Errorf("%w: id %d", storage.ErrProjectNotFound, projectID)
	}
	p.Scale = scale
	return nil
}

// AddReference appends to a project's reference set.
func (b *Backend) AddReference(projectID uint, ref core.GeoCoordinate) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.projects[projectID]
	if !ok {
		return fmt.Errorf("%w: id %d", storage.ErrProjectNotFound, projectID)
	}
	p.References = append(p.References, ref)
	return nil
}

// RecordLocation stores a located point under its project.
func (b *Backend) RecordLocation(lp *core.LocatedPoint) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.projects[lp.ProjectID]
	if !ok {
		return fmt.Errorf("%w: id %d", storage.ErrProjectNotFound, lp.ProjectID)
	}

	b.pointCounter++
	lp.ID = b.pointCounter
	if lp.Created.IsZero() {
		lp.Created = b.now()
	}

	stored := *lp
	stored.Traces = append([]core.TraceRecord(nil), lp.Traces...)
	p.Points = append(p.Points, stored)
	return nil
}

// Points returns a project's located points in insertion order.
func (b *Backend) Points(projectID uint) ([]core.LocatedPoint, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	p, ok := b.projects[projectID]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", storage.ErrProjectNotFound, projectID)
	}
	return copyProject(p).Points, nil
}

func (b *Backend) byName(name string) (*core.Project, bool) {
	id, ok := b.names[name]
	if !ok {
		return nil, false
	}
	return b.projects[id], true
}

func (b *Backend) sorted() []core.Project {
	out := make([]core.Project, 0, len(b.projects))
	for _, p := range b.projects {
		out = append(out, copyProject(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// restore replaces the backend contents, keeping counters ahead of every
// restored ID.
func (b *Backend) restore(projects []core.Project) {
	b.projects = make(map[uint]*core.Project, len(projects))
	b.names = make(map[string]uint, len(projects))
	b.projectCounter, b.pointCounter = 0, 0

	for i := range projects {
		p := projects[i]
		b.projects[p.ID] = &p
		b.names[p.Name] = p.ID
		if p.ID > b.projectCounter {
			b.projectCounter = p.ID
		}
		for _, lp := range p.Points {
			if lp.ID > b.pointCounter {
				b.pointCounter = lp.ID
			}
		}
	}
}

func copyProject(p *core.Project) core.Project {
	out := *p
	if p.References != nil {
		out.References = append(core.ReferenceSet(nil), p.References...)
	}
	if p.Points != nil {
		out.Points = make([]core.LocatedPoint, len(p.Points))
		for i, lp := range p.Points {
			out.Points[i] = lp
			out.Points[i].Traces = append([]core.TraceRecord(nil), lp.Traces...)
		}
	}
	return out
}
