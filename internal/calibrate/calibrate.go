// Package calibrate derives the pixels-per-unit scale of a map from a traced
// reference distance and converts traced pixels back into real units.
package calibrate

import (
	"errors"
	"fmt"
	"math"

	"github.com/mapreader/tracer/pkg/core"
)

var (
	ErrInvalidCalibration = errors.New("calibration inputs must be positive")
	ErrInvalidLocation    = errors.New("location values out of range")
)

// Location bounds accepted when a point is saved by hand.
const (
	MinDistance = 0.01
	MaxDistance = 10000
)

// Calibrate returns tracedPixels / declaredDistance as the scale for unit.
func Calibrate(tracedPixels, declaredDistance float64, unit core.Unit) (core.ScaleFactor, error) {
	if !positive(tracedPixels) || !positive(declaredDistance) {
		return core.ScaleFactor{}, fmt.Errorf("%w: pixels %v distance %v", ErrInvalidCalibration, tracedPixels, declaredDistance)
	}
	if !unit.Valid() {
		return core.ScaleFactor{}, fmt.Errorf("%w: %q", core.ErrUnknownUnit, unit)
	}
	return core.ScaleFactor{PixelsPerUnit: tracedPixels / declaredDistance, Unit: unit}, nil
}

// ToUnits converts a pixel distance with scale. An unusable scale yields an
// undefined measurement.
func ToUnits(pixels float64, scale core.ScaleFactor) core.Measurement {
	if !positive(scale.PixelsPerUnit) {
		return core.Undefined("scale factor not set")
	}
	v := pixels / scale.PixelsPerUnit
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return core.Undefined("non-finite distance")
	}
	return core.DefinedValue(core.Round(v))
}

// ValidateLocation checks hand-entered location values before they are saved.
func ValidateLocation(lat, lon, distance, bearing float64) error {
	var errs []error
	if !(lat >= -90 && lat <= 90) {
		errs = append(errs, fmt.Errorf("latitude %v", lat))
	}
	if !(lon >= -180 && lon <= 180) {
		errs = append(errs, fmt.Errorf("longitude %v", lon))
	}
	if !(distance >= MinDistance && distance <= MaxDistance) {
		errs = append(errs, fmt.Errorf("distance %v", distance))
	}
	if !(bearing >= 0 && bearing <= 360) {
		errs = append(errs, fmt.Errorf("bearing %v", bearing))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidLocation, errors.Join(errs...))
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
