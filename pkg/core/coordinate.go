// pkg/core/coordinate.go
package core

import (
	"errors"
	"fmt"
	"math"
)

// Precision is the number of decimal places kept on every derived value.
const Precision = 6

var (
	ErrLatitudeRange     = errors.New("latitude out of range [-90, 90]")
	ErrLongitudeRange    = errors.New("longitude out of range [-180, 180]")
	ErrUnknownUnit       = errors.New("unknown distance unit")
	ErrEmptyReferenceSet = errors.New("reference set is empty")
)

// Round rounds v to the package precision.
func Round(v float64) float64 {
	const scale = 1e6
	return math.Round(v*scale) / scale
}

// GeoCoordinate is a WGS84 latitude/longitude pair in degrees.
type GeoCoordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewGeoCoordinate validates the ranges and rounds both components.
func NewGeoCoordinate(lat, lon float64) (GeoCoordinate, error) {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return GeoCoordinate{}, fmt.Errorf("%w: %v", ErrLatitudeRange, lat)
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return GeoCoordinate{}, fmt.Errorf("%w: %v", ErrLongitudeRange, lon)
	}
	return GeoCoordinate{Latitude: Round(lat), Longitude: Round(lon)}, nil
}

func (c GeoCoordinate) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", c.Latitude, c.Longitude)
}

// ReferenceSet is the ordered list of known points a location trace starts from.
type ReferenceSet []GeoCoordinate

// Validate fails on an empty set.
func (r ReferenceSet) Validate() error {
	if len(r) == 0 {
		return ErrEmptyReferenceSet
	}
	return nil
}

// Unit is a real-world distance unit.
type Unit string

const (
	Kilometer Unit = "km"
	Mile      Unit = "mi"
	Meter     Unit = "m"
	Foot      Unit = "ft"
)

// Units lists every supported unit.
var Units = []Unit{Kilometer, Mile, Meter, Foot}

// ParseUnit maps a unit abbreviation onto a Unit. Unknown names are an error,
// never a default.
func ParseUnit(s string) (Unit, error) {
	u := Unit(s)
	if !u.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownUnit, s)
	}
	return u, nil
}

// Valid reports whether u is one of the supported units.
func (u Unit) Valid() bool {
	switch u {
	case Kilometer, Mile, Meter, Foot:
		return true
	}
	return false
}

func (u Unit) String() string {
	return string(u)
}
