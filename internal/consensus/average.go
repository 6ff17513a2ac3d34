package consensus

import (
	"github.com/mapreader/tracer/pkg/core"
	"gonum.org/v1/gonum/stat"
)

// Average returns the mean destination latitude and longitude, rounded.
// A single record returns its destination unchanged.
func Average(records []core.TraceRecord) (core.GeoCoordinate, error) {
	switch len(records) {
	case 0:
		return core.GeoCoordinate{}, ErrNoTraces
	case 1:
		return records[0].Destination, nil
	}

	lats := make([]float64, len(records))
	lons := make([]float64, len(records))
	for i, rec := range records {
		lats[i] = rec.Destination.Latitude
		lons[i] = rec.Destination.Longitude
	}

	return core.NewGeoCoordinate(stat.Mean(lats, nil), stat.Mean(lons, nil))
}
