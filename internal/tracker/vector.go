package tracker

import (
	"math"

	"github.com/mapreader/tracer/pkg/core"
)

// Distance is the straight-line length of (dx, dy), rounded.
func Distance(dx, dy float64) core.Measurement {
	d := math.Hypot(dx, dy)
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return core.Undefined("non-finite displacement")
	}
	return core.DefinedValue(core.Round(d))
}

// Bearing converts (dx, dy), up positive, into a compass bearing: 0 is north
// and angles grow clockwise, in [0, 360).
func Bearing(dx, dy float64) core.Measurement {
	if math.IsNaN(dx) || math.IsNaN(dy) || math.IsInf(dx, 0) || math.IsInf(dy, 0) {
		return core.Undefined("non-finite displacement")
	}
	if dx == 0 && dy == 0 {
		return core.Undefined("zero displacement")
	}

	raw := math.Atan2(dy, dx) * 180 / math.Pi
	b := core.Round(math.Mod(360+(90-raw), 360))
	if b >= 360 {
		b = 0
	}
	return core.DefinedValue(b)
}
