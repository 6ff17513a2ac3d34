package geo

import (
	"encoding/json"
	"fmt"

	"github.com/mapreader/tracer/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// TraceLine builds the EPSG:3857 line from a reference to its traced
// destination. A zero-length trace yields an empty line.
func TraceLine(ref, dest core.GeoCoordinate) (geom.LineString, error) {
	x1, y1 := XY3857From4326(ref)
	x2, y2 := XY3857From4326(dest)
	if x1 == x2 && y1 == y2 {
		return geom.LineString{}, nil
	}
	seq := geom.NewSequence([]float64{x1, y1, x2, y2}, geom.DimXY)
	ls, err := geom.NewLineString(seq)
	if err != nil {
		return geom.LineString{}, fmt.Errorf("failed to build trace line: %w", err)
	}
	return ls, nil
}

// ParseReferenceList parses a JSON array of coordinates into a reference set.
// Input format: "[[lat1,lon1],[lat2,lon2],...]"
func ParseReferenceList(input string) (core.ReferenceSet, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return nil, fmt.Errorf("failed to parse reference JSON: %w", err)
	}

	if len(coords) == 0 {
		return nil, core.ErrEmptyReferenceSet
	}

	refs := make(core.ReferenceSet, len(coords))
	for i, coord := range coords {
		if len(coord) < 2 {
			return nil, fmt.Errorf("coordinate %d has insufficient values", i)
		}
		c, err := core.NewGeoCoordinate(coord[0], coord[1])
		if err != nil {
			return nil, fmt.Errorf("coordinate %d: %w", i, err)
		}
		refs[i] = c
	}

	return refs, nil
}
