package storage

import (
	"errors"

	"github.com/mapreader/tracer/pkg/core"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrProjectName     = errors.New("project name is empty")
)

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Project management (SaveProject assigns ID to the passed pointer)
	SaveProject(p *core.Project) error
	LoadProject(name string) (core.Project, error)
	ListProjects() ([]core.Project, error)

	// Project inputs
	SetScale(projectID uint, scale core.ScaleFactor) error
	AddReference(projectID uint, ref core.GeoCoordinate) error

	// Results (RecordLocation assigns ID to the passed pointer)
	RecordLocation(p *core.LocatedPoint) error
	Points(projectID uint) ([]core.LocatedPoint, error)
}

// Exportable is an optional interface for storage backends that write a
// snapshot file of their projects.
type Exportable interface {
	Export() (string, error)
	ExportedFilePath() string
}
