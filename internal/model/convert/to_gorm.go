package convert

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mapreader/tracer/internal/geo"
	"github.com/mapreader/tracer/internal/model"
	"github.com/mapreader/tracer/pkg/core"
	"gorm.io/datatypes"
)

// CoreToProject converts a core.Project to its GORM row. References and
// points are written through their own converters.
func CoreToProject(p core.Project) model.Project {
	out := model.Project{
		Name:          p.Name,
		LastAccessed:  p.LastAccessed,
		PixelsPerUnit: p.Scale.PixelsPerUnit,
		Unit:          string(p.Scale.Unit),
	}
	out.ID = p.ID
	out.CreatedAt = p.Created
	return out
}

// CoreToReference converts one entry of a reference set.
func CoreToReference(projectID uint, ordinal int, c core.GeoCoordinate) (model.ReferencePoint, error) {
	position, err := geo.Point3857From4326(c)
	if err != nil {
		return model.ReferencePoint{}, err
	}
	return model.ReferencePoint{
		ProjectID: projectID,
		Ordinal:   ordinal,
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
		Position:  position,
	}, nil
}

// CoreToReferences converts a full reference set, keeping its order.
func CoreToReferences(projectID uint, refs core.ReferenceSet) ([]model.ReferencePoint, error) {
	out := make([]model.ReferencePoint, len(refs))
	for i, c := range refs {
		row, err := CoreToReference(projectID, i, c)
		if err != nil {
			return nil, fmt.Errorf("reference %d: %w", i, err)
		}
		out[i] = row
	}
	return out, nil
}

// CoreToLocatedPoint converts a located point without its trace rows; the
// trace log is kept as a JSON snapshot.
func CoreToLocatedPoint(p core.LocatedPoint) (model.LocatedPoint, error) {
	snapshot, err := json.Marshal(p.Traces)
	if err != nil {
		return model.LocatedPoint{}, err
	}
	position, err := geo.Point3857From4326(p.Location)
	if err != nil {
		return model.LocatedPoint{}, err
	}

	out := model.LocatedPoint{
		ProjectID:   p.ProjectID,
		Latitude:    p.Location.Latitude,
		Longitude:   p.Location.Longitude,
		Position:    position,
		Description: p.Description,
		Distance:    p.Distance,
		Bearing:     p.Bearing,
		Unit:        string(p.Unit),
		Snapshot:    datatypes.JSON(snapshot),
	}
	out.ID = p.ID
	out.CreatedAt = p.Created
	return out, nil
}

// CoreToTraceRecord converts one trace log entry. The line runs from the
// reference to the traced destination.
func CoreToTraceRecord(locatedPointID uint, ordinal int, r core.TraceRecord, at time.Time) (model.TraceRecord, error) {
	line, err := geo.TraceLine(r.Reference, r.Destination)
	if err != nil {
		return model.TraceRecord{}, err
	}
	return model.TraceRecord{
		Time:                 at,
		LocatedPointID:       locatedPointID,
		Ordinal:              ordinal,
		ReferenceLatitude:    r.Reference.Latitude,
		ReferenceLongitude:   r.Reference.Longitude,
		DX:                   r.DX,
		DY:                   r.DY,
		DistancePixels:       r.DistancePixels,
		DistanceReal:         r.DistanceReal,
		Bearing:              r.Bearing,
		DestinationLatitude:  r.Destination.Latitude,
		DestinationLongitude: r.Destination.Longitude,
		Unit:                 string(r.Unit),
		Line:                 line,
	}, nil
}

// CoreToTraceRecords converts a whole trace log.
func CoreToTraceRecords(locatedPointID uint, traces []core.TraceRecord, at time.Time) ([]model.TraceRecord, error) {
	out := make([]model.TraceRecord, len(traces))
	for i, r := range traces {
		row, err := CoreToTraceRecord(locatedPointID, i, r, at)
		if err != nil {
			return nil, fmt.Errorf("trace %d: %w", i, err)
		}
		out[i] = row
	}
	return out, nil
}
