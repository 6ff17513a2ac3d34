package consensus

import (
	"errors"
	"fmt"
	"math"

	"github.com/mapreader/tracer/internal/geo"
	"github.com/mapreader/tracer/pkg/core"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrConcentric      = errors.New("all reference circles share a centre")
	ErrCircleContained = errors.New("reference circle lies inside another")
)

// metres, in the Web Mercator plane
const tolerance = 1e-6

type circle struct {
	centre r2.Vec
	radius float64
}

// Trilaterate intersects the reference circles pairwise in EPSG:3857. Each
// circle is centred on a reference with the planar distance to its traced
// destination as radius. Crossing pairs contribute the intersection nearer
// the averaged estimate, tangent pairs their contact point and separate pairs
// the midpoint of the gap. The candidates are averaged and transformed back.
// Fewer than two records fall back on Average.
func Trilaterate(records []core.TraceRecord) (core.GeoCoordinate, error) {
	if len(records) < 2 {
		return Average(records)
	}

	estimate, err := Average(records)
	if err != nil {
		return core.GeoCoordinate{}, err
	}
	ex, ey := geo.XY3857From4326(estimate)
	near := r2.Vec{X: ex, Y: ey}

	circles := make([]circle, len(records))
	for i, rec := range records {
		cx, cy := geo.XY3857From4326(rec.Reference)
		dx, dy := geo.XY3857From4326(rec.Destination)
		centre := r2.Vec{X: cx, Y: cy}
		circles[i] = circle{centre: centre, radius: r2.Norm(r2.Sub(r2.Vec{X: dx, Y: dy}, centre))}
	}

	var xs, ys []float64
	for i := 0; i < len(circles); i++ {
		for j := i + 1; j < len(circles); j++ {
			p, ok, err := intersect(circles[i], circles[j], near)
			if err != nil {
				return core.GeoCoordinate{}, fmt.Errorf("references %d and %d: %w", i, j, err)
			}
			if !ok {
				continue
			}
			xs = append(xs, p.X)
			ys = append(ys, p.Y)
		}
	}
	if len(xs) == 0 {
		return core.GeoCoordinate{}, ErrConcentric
	}

	return geo.Coordinate4326From3857(stat.Mean(xs, nil), stat.Mean(ys, nil))
}

// intersect returns the candidate point of one circle pair. ok is false for
// concentric circles, which carry no positional information.
func intersect(a, b circle, near r2.Vec) (r2.Vec, bool, error) {
	delta := r2.Sub(b.centre, a.centre)
	d := r2.Norm(delta)
	if d < tolerance {
		return r2.Vec{}, false, nil
	}
	u := r2.Scale(1/d, delta)

	sum := a.radius + b.radius
	diff := math.Abs(a.radius - b.radius)

	switch {
	case d < diff-tolerance:
		return r2.Vec{}, false, ErrCircleContained

	case math.Abs(d-diff) <= tolerance:
		// internally tangent: contact point lies beyond the smaller circle
		if a.radius >= b.radius {
			return r2.Add(a.centre, r2.Scale(a.radius, u)), true, nil
		}
		return r2.Sub(a.centre, r2.Scale(a.radius, u)), true, nil

	case math.Abs(d-sum) <= tolerance:
		return r2.Add(a.centre, r2.Scale(a.radius, u)), true, nil

	case d > sum:
		gap := (d - sum) / 2
		return r2.Add(a.centre, r2.Scale(a.radius+gap, u)), true, nil
	}

	along := (a.radius*a.radius - b.radius*b.radius + d*d) / (2 * d)
	h := math.Sqrt(math.Max(a.radius*a.radius-along*along, 0))
	base := r2.Add(a.centre, r2.Scale(along, u))
	perp := r2.Vec{X: -u.Y, Y: u.X}

	p1 := r2.Add(base, r2.Scale(h, perp))
	p2 := r2.Sub(base, r2.Scale(h, perp))
	if r2.Norm(r2.Sub(p1, near)) <= r2.Norm(r2.Sub(p2, near)) {
		return p1, true, nil
	}
	return p2, true, nil
}
