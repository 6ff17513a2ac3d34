package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mapreader/tracer/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// GEO POINTS
// Geographic inputs and outputs are EPSG:4326 lat/lon degrees. Anything stored or
// intersected on a plane goes through EPSG:3857 so distances are in metres and
// SQLite can keep the WKB without spatial extensions.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// ParseCoordinate parses a string in the format "lat,lon" into a validated,
// rounded core.GeoCoordinate.
func ParseCoordinate(coords string) (core.GeoCoordinate, error) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) < 2 {
		return core.GeoCoordinate{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[0]), 64)
	if err != nil {
		return core.GeoCoordinate{}, ErrInvalidCoordinates
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[1]), 64)
	if err != nil {
		return core.GeoCoordinate{}, ErrInvalidCoordinates
	}
	c, err := core.NewGeoCoordinate(lat, lon)
	if err != nil {
		return core.GeoCoordinate{}, fmt.Errorf("%w: %w", ErrInvalidCoordinates, err)
	}
	return c, nil
}

// Point3857From4326 creates a Web Mercator point from a geographic coordinate
func Point3857From4326(c core.GeoCoordinate) (geom.Point, error) {
	x, y := XY3857From4326(c)
	point, err := geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: x, Y: y},
			Type: geom.DimXY,
		},
	)
	if err != nil {
		return geom.Point{}, fmt.Errorf("%w: %w", ErrInvalidCoordinates, err)
	}
	return point, nil
}

// XY3857From4326 returns the Web Mercator x/y in metres for c.
func XY3857From4326(c core.GeoCoordinate) (x, y float64) {
	f := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ = f(c.Longitude, c.Latitude, 0)
	return x, y
}

// Coordinate4326From3857 converts Web Mercator metres back to a rounded geographic coordinate.
func Coordinate4326From3857(x, y float64) (core.GeoCoordinate, error) {
	f := wgs84.EPSG().Transform(3857, 4326)
	lon, lat, _ := f(x, y, 0)
	return core.NewGeoCoordinate(lat, lon)
}

// Coordinate4326FromPoint reads a stored Web Mercator point back into lat/lon.
func Coordinate4326FromPoint(p geom.Point) (core.GeoCoordinate, error) {
	xy, ok := p.XY()
	if !ok {
		return core.GeoCoordinate{}, ErrInvalidCoordinates
	}
	return Coordinate4326From3857(xy.X, xy.Y)
}
