// pkg/core/trace.go
package core

import "time"

// ScaleFactor is a calibrated pixels-per-unit ratio.
type ScaleFactor struct {
	PixelsPerUnit float64 `json:"pixelsPerUnit"`
	Unit          Unit    `json:"unit"`
}

// IsSet reports whether the scale can be used for conversion.
func (s ScaleFactor) IsSet() bool {
	return s.PixelsPerUnit > 0 && s.Unit.Valid()
}

// TraceResult is the outcome of one completed single-reference trace.
// In calibration mode only DX, DY and DistancePixels are populated.
type TraceResult struct {
	DX             int           `json:"dx"`
	DY             int           `json:"dy"`
	DistancePixels float64       `json:"distancePixels"`
	DistanceUnits  float64       `json:"distanceUnits"`
	BearingDegrees float64       `json:"bearingDegrees"`
	Unit           Unit          `json:"unit,omitempty"`
	Destination    GeoCoordinate `json:"destination"`
}

// TraceRecord is one entry of a multi-reference trace log.
type TraceRecord struct {
	Reference      GeoCoordinate `json:"reference"`
	DX             int           `json:"dx"`
	DY             int           `json:"dy"`
	DistancePixels float64       `json:"distancePixels"`
	DistanceReal   float64       `json:"distanceReal"`
	Bearing        float64       `json:"bearing"`
	Destination    GeoCoordinate `json:"destination"`
	Unit           Unit          `json:"unit"`
}

// Result converts the record into its single-reference TraceResult.
func (r TraceRecord) Result() TraceResult {
	return TraceResult{
		DX:             r.DX,
		DY:             r.DY,
		DistancePixels: r.DistancePixels,
		DistanceUnits:  r.DistanceReal,
		BearingDegrees: r.Bearing,
		Unit:           r.Unit,
		Destination:    r.Destination,
	}
}

// Project groups the persisted inputs of the engine: references and scale,
// plus every location saved so far.
type Project struct {
	ID           uint
	Name         string
	Created      time.Time
	LastAccessed time.Time
	References   ReferenceSet
	Scale        ScaleFactor
	Points       []LocatedPoint
}

// LocatedPoint is a confirmed location saved to a project.
// Distance and Bearing are only meaningful for single-reference traces.
type LocatedPoint struct {
	ID          uint
	ProjectID   uint
	Created     time.Time
	Location    GeoCoordinate
	Description string
	Distance    float64
	Bearing     float64
	Unit        Unit
	Traces      []TraceRecord
}
