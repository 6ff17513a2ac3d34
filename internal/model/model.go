package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Project{},
	&ReferencePoint{},
	&LocatedPoint{},
	&TraceRecord{},
}

////////////////////////
// PROJECT MODELS
////////////////////////

// Project holds the calibrated scale and is the parent of all references and
// located points.
type Project struct {
	gorm.Model
	Name          string           `json:"name" gorm:"size:127;uniqueIndex:idx_project_name"`
	LastAccessed  time.Time        `json:"lastAccessed" gorm:"index:idx_project_last_accessed"`
	PixelsPerUnit float64          `json:"pixelsPerUnit" gorm:"default:0"`
	Unit          string           `json:"unit" gorm:"size:8"`
	References    []ReferencePoint `json:"references" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Points        []LocatedPoint   `json:"points" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (*Project) TableName() string {
	return "projects"
}

// GetOrInsert loads the project by name, creating it when it does not exist.
func (p *Project) GetOrInsert(db *gorm.DB) (created bool, err error) {
	var existing Project
	err = db.Where("name = ?", p.Name).First(&existing).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			err = db.Create(p).Error
			return err == nil, err
		}
		return false, err
	}
	*p = existing
	return false, nil
}

// ReferencePoint is one known coordinate of a project's reference set.
// Ordinal keeps the order the references were added in.
type ReferencePoint struct {
	ID        uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	CreatedAt time.Time  `json:"createdAt"`
	ProjectID uint       `json:"projectId" gorm:"index:idx_reference_project_id"`
	Ordinal   int        `json:"ordinal"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Position  geom.Point `json:"position"` // EPSG:3857
}

func (*ReferencePoint) TableName() string {
	return "reference_points"
}

////////////////////////
// RECORDING MODELS
////////////////////////

// LocatedPoint is a confirmed location. Distance and Bearing are zero for
// multi-reference results.
type LocatedPoint struct {
	gorm.Model
	ProjectID   uint           `json:"projectId" gorm:"index:idx_located_project_id"`
	Latitude    float64        `json:"latitude"`
	Longitude   float64        `json:"longitude"`
	Position    geom.Point     `json:"position"`
	Description string         `json:"description" gorm:"size:255"`
	Distance    float64        `json:"distance"`
	Bearing     float64        `json:"bearing"`
	Unit        string         `json:"unit" gorm:"size:8"`
	Snapshot    datatypes.JSON `json:"snapshot"` // trace log as recorded
	Traces      []TraceRecord  `json:"traces" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (*LocatedPoint) TableName() string {
	return "located_points"
}

// TraceRecord is one leg of a located point's trace log.
type TraceRecord struct {
	ID                   uint            `json:"id" gorm:"primarykey;autoIncrement;"`
	Time                 time.Time       `json:"time" gorm:"index:idx_trace_time"`
	LocatedPointID       uint            `json:"locatedPointId" gorm:"index:idx_trace_located_point_id"`
	Ordinal              int             `json:"ordinal"`
	ReferenceLatitude    float64         `json:"referenceLatitude"`
	ReferenceLongitude   float64         `json:"referenceLongitude"`
	DX                   int             `json:"dx"`
	DY                   int             `json:"dy"`
	DistancePixels       float64         `json:"distancePixels"`
	DistanceReal         float64         `json:"distanceReal"`
	Bearing              float64         `json:"bearing"`
	DestinationLatitude  float64         `json:"destinationLatitude"`
	DestinationLongitude float64         `json:"destinationLongitude"`
	Unit                 string          `json:"unit" gorm:"size:8"`
	Line                 geom.LineString `json:"line"`
}

func (*TraceRecord) TableName() string {
	return "trace_records"
}
