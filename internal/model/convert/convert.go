// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"sort"

	"github.com/mapreader/tracer/internal/model"
	"github.com/mapreader/tracer/pkg/core"
)

// ProjectToCore converts a GORM project, including any preloaded references
// and points. References are ordered by ordinal.
func ProjectToCore(p model.Project) core.Project {
	out := core.Project{
		ID:           p.ID,
		Name:         p.Name,
		Created:      p.CreatedAt,
		LastAccessed: p.LastAccessed,
		Scale: core.ScaleFactor{
			PixelsPerUnit: p.PixelsPerUnit,
			Unit:          core.Unit(p.Unit),
		},
		References: ReferencesToCore(p.References),
	}
	if len(p.Points) > 0 {
		out.Points = make([]core.LocatedPoint, len(p.Points))
		for i, lp := range p.Points {
			out.Points[i] = LocatedPointToCore(lp)
		}
	}
	return out
}

// ReferencesToCore orders rows by ordinal and returns the reference set.
func ReferencesToCore(rows []model.ReferencePoint) core.ReferenceSet {
	if len(rows) == 0 {
		return nil
	}
	sorted := make([]model.ReferencePoint, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Ordinal < sorted[j].Ordinal
	})

	refs := make(core.ReferenceSet, len(sorted))
	for i, r := range sorted {
		refs[i] = core.GeoCoordinate{Latitude: r.Latitude, Longitude: r.Longitude}
	}
	return refs
}

// LocatedPointToCore converts a GORM located point. Preloaded trace rows win
// over the JSON snapshot.
func LocatedPointToCore(p model.LocatedPoint) core.LocatedPoint {
	out := core.LocatedPoint{
		ID:          p.ID,
		ProjectID:   p.ProjectID,
		Created:     p.CreatedAt,
		Location:    core.GeoCoordinate{Latitude: p.Latitude, Longitude: p.Longitude},
		Description: p.Description,
		Distance:    p.Distance,
		Bearing:     p.Bearing,
		Unit:        core.Unit(p.Unit),
	}

	if len(p.Traces) > 0 {
		out.Traces = TraceRecordsToCore(p.Traces)
	} else if len(p.Snapshot) > 0 {
		var traces []core.TraceRecord
		if err := json.Unmarshal(p.Snapshot, &traces); err == nil {
			out.Traces = traces
		}
	}
	return out
}

// TraceRecordsToCore orders rows by ordinal and returns the trace log.
func TraceRecordsToCore(rows []model.TraceRecord) []core.TraceRecord {
	sorted := make([]model.TraceRecord, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Ordinal < sorted[j].Ordinal
	})

	out := make([]core.TraceRecord, len(sorted))
	for i, r := range sorted {
		out[i] = TraceRecordToCore(r)
	}
	return out
}

// TraceRecordToCore converts one trace row.
func TraceRecordToCore(r model.TraceRecord) core.TraceRecord {
	return core.TraceRecord{
		Reference:      core.GeoCoordinate{Latitude: r.ReferenceLatitude, Longitude: r.ReferenceLongitude},
		DX:             r.DX,
		DY:             r.DY,
		DistancePixels: r.DistancePixels,
		DistanceReal:   r.DistanceReal,
		Bearing:        r.Bearing,
		Destination:    core.GeoCoordinate{Latitude: r.DestinationLatitude, Longitude: r.DestinationLongitude},
		Unit:           core.Unit(r.Unit),
	}
}
