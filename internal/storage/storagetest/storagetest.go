// Package storagetest runs the behaviour every storage.Backend shares.
package storagetest

import (
	"testing"

	"github.com/mapreader/tracer/internal/storage"
	"github.com/mapreader/tracer/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an initialised backend; the caller closes it.
type Factory func(t *testing.T) storage.Backend

var (
	sierra   = core.GeoCoordinate{Latitude: 38, Longitude: -120}
	island   = core.GeoCoordinate{Latitude: 0, Longitude: 0}
	oneOne   = core.GeoCoordinate{Latitude: 1, Longitude: 1}
	kmScale  = core.ScaleFactor{PixelsPerUnit: 131.5, Unit: core.Kilometer}
	camp     = core.GeoCoordinate{Latitude: 38.006851, Longitude: -119.991341}
	midpoint = core.GeoCoordinate{Latitude: 0.506877, Longitude: 0.506832}
)

// Run executes the shared backend tests against new backends from factory.
func Run(t *testing.T, factory Factory) {
	t.Run("SaveAndLoad", func(t *testing.T) { testSaveAndLoad(t, factory(t)) })
	t.Run("SaveUpdatesByName", func(t *testing.T) { testSaveUpdatesByName(t, factory(t)) })
	t.Run("EmptyName", func(t *testing.T) { testEmptyName(t, factory(t)) })
	t.Run("LoadMissing", func(t *testing.T) { testLoadMissing(t, factory(t)) })
	t.Run("ListProjects", func(t *testing.T) { testListProjects(t, factory(t)) })
	t.Run("ScaleAndReferences", func(t *testing.T) { testScaleAndReferences(t, factory(t)) })
	t.Run("UnknownProject", func(t *testing.T) { testUnknownProject(t, factory(t)) })
	t.Run("RecordLocation", func(t *testing.T) { testRecordLocation(t, factory(t)) })
}

func testSaveAndLoad(t *testing.T, b storage.Backend) {
	p := core.Project{Name: "sierra", Scale: kmScale, References: core.ReferenceSet{sierra}}
	require.NoError(t, b.SaveProject(&p))
	assert.NotZero(t, p.ID)

	loaded, err := b.LoadProject("sierra")
	require.NoError(t, err)
	assert.Equal(t, p.ID, loaded.ID)
	assert.Equal(t, kmScale, loaded.Scale)
	assert.Equal(t, core.ReferenceSet{sierra}, loaded.References)
	assert.Empty(t, loaded.Points)
	assert.False(t, loaded.LastAccessed.IsZero())
}

func testSaveUpdatesByName(t *testing.T, b storage.Backend) {
	first := core.Project{Name: "sierra", References: core.ReferenceSet{sierra}}
	require.NoError(t, b.SaveProject(&first))

	second := core.Project{Name: "sierra", Scale: kmScale, References: core.ReferenceSet{island, oneOne}}
	require.NoError(t, b.SaveProject(&second))
	assert.Equal(t, first.ID, second.ID)

	loaded, err := b.LoadProject("sierra")
	require.NoError(t, err)
	assert.Equal(t, core.ReferenceSet{island, oneOne}, loaded.References)
	assert.Equal(t, kmScale, loaded.Scale)
}

func testEmptyName(t *testing.T, b storage.Backend) {
	err := b.SaveProject(&core.Project{Name: "  "})
	assert.ErrorIs(t, err, storage.ErrProjectName)
}

func testLoadMissing(t *testing.T, b storage.Backend) {
	_, err := b.LoadProject("nowhere")
	assert.ErrorIs(t, err, storage.ErrProjectNotFound)
}

func testListProjects(t *testing.T, b storage.Backend) {
	for _, name := range []string{"tango", "alpha", "mike"} {
		require.NoError(t, b.SaveProject(&core.Project{Name: name}))
	}

	projects, err := b.ListProjects()
	require.NoError(t, err)
	require.Len(t, projects, 3)
	assert.Equal(t, "alpha", projects[0].Name)
	assert.Equal(t, "mike", projects[1].Name)
	assert.Equal(t, "tango", projects[2].Name)
}

func testScaleAndReferences(t *testing.T, b storage.Backend) {
	p := core.Project{Name: "grid"}
	require.NoError(t, b.SaveProject(&p))

	require.NoError(t, b.SetScale(p.ID, kmScale))
	require.NoError(t, b.AddReference(p.ID, island))
	require.NoError(t, b.AddReference(p.ID, oneOne))

	loaded, err := b.LoadProject("grid")
	require.NoError(t, err)
	assert.Equal(t, kmScale, loaded.Scale)
	assert.Equal(t, core.ReferenceSet{island, oneOne}, loaded.References)
}

func testUnknownProject(t *testing.T, b storage.Backend) {
	assert.ErrorIs(t, b.SetScale(999, kmScale), storage.ErrProjectNotFound)
	assert.ErrorIs(t, b.AddReference(999, island), storage.ErrProjectNotFound)
	assert.ErrorIs(t, b.RecordLocation(&core.LocatedPoint{ProjectID: 999}), storage.ErrProjectNotFound)

	_, err := b.Points(999)
	assert.ErrorIs(t, err, storage.ErrProjectNotFound)
}

func testRecordLocation(t *testing.T, b storage.Backend) {
	p := core.Project{Name: "sierra", Scale: kmScale, References: core.ReferenceSet{island, oneOne}}
	require.NoError(t, b.SaveProject(&p))

	traces := []core.TraceRecord{
		{Reference: island, DX: 100, DY: -100, DistancePixels: 141.421356, DistanceReal: 1.075448, Bearing: 45,
			Destination: core.GeoCoordinate{Latitude: 0.006877, Longitude: 0.006831}, Unit: core.Kilometer},
		{Reference: oneOne, DX: 100, DY: -100, DistancePixels: 141.421356, DistanceReal: 1.075448, Bearing: 45,
			Destination: core.GeoCoordinate{Latitude: 1.006877, Longitude: 1.006832}, Unit: core.Kilometer},
	}

	single := core.LocatedPoint{ProjectID: p.ID, Location: camp, Description: "camp",
		Distance: 1.075448, Bearing: 45, Unit: core.Kilometer, Traces: traces[:1]}
	multi := core.LocatedPoint{ProjectID: p.ID, Location: midpoint, Description: "well",
		Unit: core.Kilometer, Traces: traces}

	require.NoError(t, b.RecordLocation(&single))
	require.NoError(t, b.RecordLocation(&multi))
	assert.NotZero(t, single.ID)
	assert.NotEqual(t, single.ID, multi.ID)

	points, err := b.Points(p.ID)
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, single.ID, points[0].ID)
	assert.Equal(t, camp, points[0].Location)
	assert.Equal(t, "camp", points[0].Description)
	assert.Equal(t, 45.0, points[0].Bearing)
	assert.Equal(t, traces[:1], points[0].Traces)

	assert.Equal(t, midpoint, points[1].Location)
	assert.Zero(t, points[1].Bearing)
	assert.Equal(t, traces, points[1].Traces)

	loaded, err := b.LoadProject("sierra")
	require.NoError(t, err)
	assert.Len(t, loaded.Points, 2)
}
