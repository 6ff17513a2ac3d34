package calibrate

import (
	"math"
	"testing"

	"github.com/mapreader/tracer/internal/geo"
	"github.com/mapreader/tracer/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalibrate(t *testing.T) {
	scale, err := Calibrate(263, 2, core.Kilometer)

	require.NoError(t, err)
	assert.Equal(t, 131.5, scale.PixelsPerUnit)
	assert.Equal(t, core.Kilometer, scale.Unit)
	assert.True(t, scale.IsSet())
}

func TestCalibrate_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		pixels   float64
		distance float64
	}{
		{"zero pixels", 0, 1},
		{"negative pixels", -10, 1},
		{"zero distance", 100, 0},
		{"negative distance", 100, -2},
		{"nan pixels", math.NaN(), 1},
		{"infinite distance", 100, math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Calibrate(tt.pixels, tt.distance, core.Mile)
			assert.ErrorIs(t, err, ErrInvalidCalibration)
		})
	}
}

func TestCalibrate_UnknownUnit(t *testing.T) {
	_, err := Calibrate(100, 1, core.Unit("yd"))

	assert.ErrorIs(t, err, core.ErrUnknownUnit)
}

func TestToUnits(t *testing.T) {
	scale := core.ScaleFactor{PixelsPerUnit: 131.5, Unit: core.Kilometer}

	m := ToUnits(141.421356, scale)
	require.True(t, m.Defined)
	assert.Equal(t, 1.075448, m.Value)

	unset := ToUnits(141.421356, core.ScaleFactor{})
	assert.False(t, unset.Defined)
	assert.Equal(t, 1.0, unset.Or(1))
}

func TestCalibrate_Idempotent(t *testing.T) {
	for _, unit := range core.Units {
		t.Run(string(unit), func(t *testing.T) {
			scale, err := Calibrate(141.421356, 3.25, unit)
			require.NoError(t, err)

			back := ToUnits(141.421356, scale)
			require.True(t, back.Defined)
			assert.InDelta(t, 3.25, back.Value, 1e-6)

			// the reproduced distance projects to the same point as the declared one
			ref := core.GeoCoordinate{Latitude: 38, Longitude: -120}
			want, err := geo.Project(ref, 3.25, 45, unit)
			require.NoError(t, err)
			got, err := geo.Project(ref, back.Value, 45, unit)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestValidateLocation(t *testing.T) {
	assert.NoError(t, ValidateLocation(38, -120, 1.5, 45))
	assert.NoError(t, ValidateLocation(-90, 180, MinDistance, 360))

	err := ValidateLocation(91, -181, 0, 400)
	require.ErrorIs(t, err, ErrInvalidLocation)
	assert.Contains(t, err.Error(), "latitude 91")
	assert.Contains(t, err.Error(), "bearing 400")

	assert.ErrorIs(t, ValidateLocation(0, 0, MaxDistance+1, 0), ErrInvalidLocation)
	assert.ErrorIs(t, ValidateLocation(math.NaN(), 0, 1, 0), ErrInvalidLocation)
}
