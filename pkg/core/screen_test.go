package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSurface_Center(t *testing.T) {
	s := Surface{OriginX: 10, OriginY: 20, Width: 301, Height: 201}

	assert.Equal(t, ScreenPoint{X: 160, Y: 120}, s.Center())
}

func TestSurface_Touches(t *testing.T) {
	s := Surface{Width: 400, Height: 300}

	tests := []struct {
		name string
		p    ScreenPoint
		want bool
	}{
		{"interior", ScreenPoint{X: 200, Y: 150}, false},
		{"left edge", ScreenPoint{X: 0, Y: 150}, true},
		{"top edge", ScreenPoint{X: 200, Y: 0}, true},
		{"right edge", ScreenPoint{X: 399, Y: 150}, true},
		{"bottom edge", ScreenPoint{X: 200, Y: 299}, true},
		{"x on height edge", ScreenPoint{X: 299, Y: 150}, true},
		{"y on width edge", ScreenPoint{X: 200, Y: 399}, true},
		{"just inside", ScreenPoint{X: 1, Y: 298}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Touches(tt.p))
		})
	}
}

func TestDisplacement_Totals(t *testing.T) {
	d := Displacement{NetDX: 100, NetDY: -40, PendingDX: -3, PendingDY: 7}

	assert.Equal(t, 97, d.TotalDX())
	assert.Equal(t, -33, d.TotalDY())
}

func TestDisplacement_RecentredTotals(t *testing.T) {
	d := Displacement{NetDX: 97, NetDY: -33, PendingDX: -3, PendingDY: 7, Recentred: true}

	assert.Equal(t, 97, d.TotalDX())
	assert.Equal(t, -33, d.TotalDY())
}
