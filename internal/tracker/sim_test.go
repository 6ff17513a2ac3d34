package tracker

import (
	"github.com/mapreader/tracer/pkg/core"
)

// screen simulates a cursor clamped to a surface. Physical movement is applied
// one pixel at a time so every boundary touch is observed.
type screen struct {
	surface core.Surface
	x, y    int
	moves   int
}

func newScreen(w, h int) *screen {
	return &screen{surface: core.Surface{Width: w, Height: h}}
}

func (s *screen) SetCursorPosition(x, y int) error {
	s.x, s.y = x, y
	s.moves++
	return nil
}

func (s *screen) pos() core.ScreenPoint {
	return core.ScreenPoint{X: s.x, Y: s.y}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// drag moves the hand by (dx, dy) with y up, sampling after every pixel.
func (s *screen) drag(sess Session, dx, dy int) (Frame, error) {
	var f Frame
	steps := max(abs(dx), abs(dy))
	for i := 0; i < steps; i++ {
		if i < abs(dx) {
			s.x = clamp(s.x+sign(dx), 0, s.surface.Width-1)
		}
		if i < abs(dy) {
			s.y = clamp(s.y-sign(dy), 0, s.surface.Height-1)
		}
		var err error
		f, err = sess.Sample(s.pos(), s.surface)
		if err != nil {
			return f, err
		}
	}
	return f, nil
}

// dragAcc is drag for a bare accumulator.
func (s *screen) dragAcc(a *Accumulator, dx, dy int) error {
	steps := max(abs(dx), abs(dy))
	for i := 0; i < steps; i++ {
		if i < abs(dx) {
			s.x = clamp(s.x+sign(dx), 0, s.surface.Width-1)
		}
		if i < abs(dy) {
			s.y = clamp(s.y-sign(dy), 0, s.surface.Height-1)
		}
		if _, err := a.Sample(s.pos(), s.surface); err != nil {
			return err
		}
	}
	return nil
}
