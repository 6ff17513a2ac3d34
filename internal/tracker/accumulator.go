package tracker

import (
	"fmt"

	"github.com/mapreader/tracer/pkg/core"
)

// Pointer repositions the on-screen cursor.
type Pointer interface {
	SetCursorPosition(x, y int) error
}

// Accumulator turns screen-clamped pointer samples into an unbounded
// displacement. Whenever the cursor touches the surface boundary the pending
// offset is committed and the cursor is put back at the centre.
type Accumulator struct {
	pointer     Pointer
	state       core.Displacement
	recentrings int
}

func NewAccumulator(p Pointer) *Accumulator {
	return &Accumulator{pointer: p}
}

// Sample reads one cursor position. The displacement is updated before the
// cursor is moved, so a failing reposition never loses movement.
func (a *Accumulator) Sample(pos core.ScreenPoint, s core.Surface) (core.Displacement, error) {
	center := s.Center()

	a.state.PendingDX = pos.X - center.X
	a.state.PendingDY = center.Y - pos.Y
	a.state.Recentred = false

	if !s.Touches(pos) {
		return a.state, nil
	}

	a.state.NetDX += a.state.PendingDX
	a.state.NetDY += a.state.PendingDY
	a.state.Recentred = true
	a.recentrings++

	if err := a.pointer.SetCursorPosition(center.X, center.Y); err != nil {
		return a.state, fmt.Errorf("recentre cursor: %w", err)
	}
	return a.state, nil
}

// Commit ends the gesture: the pending offset is folded into the net total
// unless the last sample already did so.
func (a *Accumulator) Commit() core.Displacement {
	if !a.state.Recentred {
		a.state.NetDX += a.state.PendingDX
		a.state.NetDY += a.state.PendingDY
	}
	a.state.PendingDX, a.state.PendingDY = 0, 0
	a.state.Recentred = false
	return a.state
}

// Reset zeroes the displacement.
func (a *Accumulator) Reset() {
	a.state = core.Displacement{}
	a.recentrings = 0
}

func (a *Accumulator) State() core.Displacement {
	return a.state
}

// Recentrings counts boundary hits since the last Reset.
func (a *Accumulator) Recentrings() int {
	return a.recentrings
}
