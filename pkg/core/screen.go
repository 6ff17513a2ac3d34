// pkg/core/screen.go
package core

// ScreenPoint is a pointer position in pixels, in the same coordinate space
// as the capture surface origin.
type ScreenPoint struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Surface is the geometry of the capture surface at sampling time.
type Surface struct {
	OriginX int `json:"originX"`
	OriginY int `json:"originY"`
	Width   int `json:"width"`
	Height  int `json:"height"`
}

// Center returns origin + (width/2, height/2) using integer division.
func (s Surface) Center() ScreenPoint {
	return ScreenPoint{
		X: s.OriginX + s.Width/2,
		Y: s.OriginY + s.Height/2,
	}
}

// Touches reports whether either raw component of p sits on one of the
// boundary values {0, width-1, height-1}. Both axes are tested against the
// whole set.
func (s Surface) Touches(p ScreenPoint) bool {
	edges := [3]int{0, s.Width - 1, s.Height - 1}
	for _, e := range edges {
		if p.X == e || p.Y == e {
			return true
		}
	}
	return false
}

// Displacement is the accumulator state after a sample.
// Net holds what was committed at recentring events, Pending the offset of
// the pointer from the surface centre as last read. A sample that triggered
// a recentring keeps its pending offset for display and sets Recentred: that
// offset is already part of Net.
type Displacement struct {
	NetDX     int  `json:"netDX"`
	NetDY     int  `json:"netDY"`
	PendingDX int  `json:"pendingDX"`
	PendingDY int  `json:"pendingDY"`
	Recentred bool `json:"recentred"`
}

// TotalDX is the cumulative horizontal displacement since gesture start.
func (d Displacement) TotalDX() int {
	if d.Recentred {
		return d.NetDX
	}
	return d.NetDX + d.PendingDX
}

// TotalDY is the cumulative vertical displacement since gesture start, up positive.
func (d Displacement) TotalDY() int {
	if d.Recentred {
		return d.NetDY
	}
	return d.NetDY + d.PendingDY
}
