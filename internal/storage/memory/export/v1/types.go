// Package v1 contains the v1 snapshot format of the memory backend.
package v1

// Version is written into every snapshot of this format.
const Version = "1"

// Export is the root JSON structure for v1 format
type Export struct {
	Version    string    `json:"version"`
	ExportedAt string    `json:"exportedAt"`
	Projects   []Project `json:"projects"`
}

// Project is one project with its references as [lat, lon] pairs
type Project struct {
	ID            uint         `json:"id"`
	Name          string       `json:"name"`
	Created       string       `json:"created"`
	LastAccessed  string       `json:"lastAccessed"`
	PixelsPerUnit float64      `json:"pixelsPerUnit"`
	Unit          string       `json:"unit,omitempty"`
	References    [][2]float64 `json:"references"`
	Points        []Point      `json:"points"`
}

// Point is a saved location
type Point struct {
	ID          uint       `json:"id"`
	Created     string     `json:"created"`
	Location    [2]float64 `json:"location"`
	Description string     `json:"description,omitempty"`
	Distance    float64    `json:"distance,omitempty"`
	Bearing     float64    `json:"bearing,omitempty"`
	Unit        string     `json:"unit,omitempty"`
	Traces      []Trace    `json:"traces"`
}

// Trace is one leg of a point's trace log
type Trace struct {
	Reference      [2]float64 `json:"ref"`
	DX             int        `json:"dx"`
	DY             int        `json:"dy"`
	DistancePixels float64    `json:"px"`
	DistanceReal   float64    `json:"dist"`
	Bearing        float64    `json:"brg"`
	Destination    [2]float64 `json:"dest"`
	Unit           string     `json:"unit"`
}
