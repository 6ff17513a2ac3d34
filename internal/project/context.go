package project

import (
	"sync"

	"github.com/mapreader/tracer/pkg/core"
)

// NoProject is the name reported before any project is loaded.
const NoProject = "No project loaded"

// Context holds the loaded project and the kind of the active session.
type Context struct {
	mu      sync.RWMutex
	project core.Project
	loaded  bool
	session string
}

// NewContext creates a new Context with no project loaded.
func NewContext() *Context {
	return &Context{project: core.Project{Name: NoProject}}
}

// Project returns a copy of the current project.
func (c *Context) Project() core.Project {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return clone(c.project)
}

// Loaded reports whether SetProject has been called.
func (c *Context) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// SetProject replaces the current project.
func (c *Context) SetProject(p core.Project) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.project = clone(p)
	c.loaded = true
}

// SetScale updates the scale of the current project.
func (c *Context) SetScale(scale core.ScaleFactor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.project.Scale = scale
}

// AddReference appends to the current project's reference set.
func (c *Context) AddReference(ref core.GeoCoordinate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.project.References = append(c.project.References, ref)
}

// AddPoint appends a saved location to the current project.
func (c *Context) AddPoint(p core.LocatedPoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.project.Points = append(c.project.Points, p)
}

// SetSession records the kind of the active session; empty when idle.
func (c *Context) SetSession(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = kind
}

// Current returns the project name and session kind for log enrichment.
func (c *Context) Current() (project, session string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.project.Name, c.session
}

func clone(p core.Project) core.Project {
	out := p
	if p.References != nil {
		out.References = append(core.ReferenceSet(nil), p.References...)
	}
	if p.Points != nil {
		out.Points = append([]core.LocatedPoint(nil), p.Points...)
	}
	return out
}
