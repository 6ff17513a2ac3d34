package geo

import (
	"fmt"
	"math"

	"github.com/mapreader/tracer/pkg/core"
	"github.com/tidwall/geodesic"
)

// metres per unit
const (
	metersPerKilometer = 1000.0
	metersPerMile      = 1609.344
	metersPerMeter     = 1.0
	metersPerFoot      = 0.3048
)

// ToMeters converts a distance in unit to metres.
func ToMeters(distance float64, unit core.Unit) (float64, error) {
	switch unit {
	case core.Kilometer:
		return distance * metersPerKilometer, nil
	case core.Mile:
		return distance * metersPerMile, nil
	case core.Meter:
		return distance * metersPerMeter, nil
	case core.Foot:
		return distance * metersPerFoot, nil
	default:
		return 0, fmt.Errorf("%w: %q", core.ErrUnknownUnit, unit)
	}
}

// FromMeters converts metres to unit.
func FromMeters(meters float64, unit core.Unit) (float64, error) {
	perUnit, err := ToMeters(1, unit)
	if err != nil {
		return 0, err
	}
	return meters / perUnit, nil
}

// Project solves the direct geodetic problem on the WGS84 ellipsoid: start at
// ref, travel distance (in unit) along the initial bearing (degrees clockwise
// from north). Both output components are rounded.
func Project(ref core.GeoCoordinate, distance, bearing float64, unit core.Unit) (core.GeoCoordinate, error) {
	meters, err := ToMeters(distance, unit)
	if err != nil {
		return core.GeoCoordinate{}, err
	}
	if math.IsNaN(meters) || math.IsInf(meters, 0) || math.IsNaN(bearing) || math.IsInf(bearing, 0) {
		return core.GeoCoordinate{}, fmt.Errorf("%w: distance %v bearing %v", ErrInvalidCoordinates, distance, bearing)
	}

	var lat2, lon2 float64
	geodesic.WGS84.Direct(ref.Latitude, ref.Longitude, bearing, meters, &lat2, &lon2, nil)

	return core.NewGeoCoordinate(lat2, normalizeLongitude(lon2))
}

// Inverse solves the inverse geodetic problem and returns the distance in
// unit and the initial bearing from -> to in [0, 360).
func Inverse(from, to core.GeoCoordinate, unit core.Unit) (distance, bearing float64, err error) {
	if !unit.Valid() {
		return 0, 0, fmt.Errorf("%w: %q", core.ErrUnknownUnit, unit)
	}

	var meters, azi1 float64
	geodesic.WGS84.Inverse(from.Latitude, from.Longitude, to.Latitude, to.Longitude, &meters, &azi1, nil)

	distance, err = FromMeters(meters, unit)
	if err != nil {
		return 0, 0, err
	}
	return distance, math.Mod(azi1+360, 360), nil
}

func normalizeLongitude(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}
