// Package tracker drives one trace session: it turns pointer samples into
// displacement, distance and bearing, and hands completed gestures to either
// the calibration or the location flow.
package tracker

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mapreader/tracer/internal/device"
	"github.com/mapreader/tracer/pkg/core"
)

var (
	ErrNotPressed   = errors.New("no gesture in progress")
	ErrSessionDone  = errors.New("session already finished")
	ErrSessionClose = errors.New("session closed")
	ErrScaleNotSet  = errors.New("scale factor not set")
	ErrNoPointer    = errors.New("no pointer collaborator")
)

// Kind names a session variant.
type Kind string

const (
	KindCalibration Kind = "calibration"
	KindLocation    Kind = "location"
)

// Session is the capability set shared by both variants.
type Session interface {
	Kind() Kind
	// Press starts a gesture: recentres the cursor and overrides the pointer settings.
	Press(s core.Surface) error
	// Sample feeds one cursor position and returns the display state.
	Sample(pos core.ScreenPoint, s core.Surface) (Frame, error)
	// Release ends the gesture.
	Release() (Completion, error)
	// Reset cancels the session and starts it over.
	Reset() error
	// Close abandons the session.
	Close() error
	// Finished reports whether the session reached a terminal state and
	// may be replaced by a new one.
	Finished() bool
}

// Frame is the display state after a sample.
type Frame struct {
	DX        int              `json:"dx"`
	DY        int              `json:"dy"`
	Distance  core.Measurement `json:"distance"`
	Recentred bool             `json:"recentred"`

	// location sessions only
	Index       int                 `json:"index"`
	Reference   *core.GeoCoordinate `json:"reference,omitempty"`
	Bearing     core.Measurement    `json:"bearing"`
	Converted   core.Measurement    `json:"converted"`
	Unit        core.Unit           `json:"unit,omitempty"`
	Destination *core.GeoCoordinate `json:"destination,omitempty"`
}

// Completion is the outcome of a released gesture.
type Completion struct {
	Trace core.TraceResult `json:"trace"`
	// Record is the trace log entry of a location gesture.
	Record *core.TraceRecord `json:"record,omitempty"`
	// Final is set once every reference has been traced.
	Final     *core.GeoCoordinate `json:"final,omitempty"`
	Done      bool                `json:"done"`
	Remaining int                 `json:"remaining"`
}

// Options wires a session to its collaborators.
type Options struct {
	Pointer Pointer
	// Device is optional; without it the pointer settings are left alone.
	Device  device.Controller
	Profile device.Profile
	Logger  *slog.Logger
}

// gesture is the press/sample/release plumbing both variants embed.
type gesture struct {
	acc     *Accumulator
	opts    Options
	log     *slog.Logger
	guard   *device.Guard
	pressed bool
	closed  bool
	// traced counts released gestures since the last reset.
	traced int
}

func newGesture(opts Options) (gesture, error) {
	if opts.Pointer == nil {
		return gesture{}, ErrNoPointer
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return gesture{
		acc:  NewAccumulator(opts.Pointer),
		opts: opts,
		log:  log,
	}, nil
}

func (g *gesture) press(s core.Surface) error {
	if g.closed {
		return ErrSessionClose
	}

	g.acc.Reset()
	center := s.Center()
	if err := g.opts.Pointer.SetCursorPosition(center.X, center.Y); err != nil {
		return fmt.Errorf("centre cursor: %w", err)
	}

	if g.opts.Device != nil && g.guard == nil {
		guard, err := device.Override(g.opts.Device, g.opts.Profile)
		if err != nil {
			return fmt.Errorf("override pointer settings: %w", err)
		}
		g.guard = guard
	}

	g.pressed = true
	return nil
}

func (g *gesture) sample(pos core.ScreenPoint, s core.Surface) (core.Displacement, error) {
	if g.closed {
		return core.Displacement{}, ErrSessionClose
	}
	if !g.pressed {
		return core.Displacement{}, ErrNotPressed
	}
	return g.acc.Sample(pos, s)
}

// release commits the gesture and restores the pointer settings.
func (g *gesture) release() (core.Displacement, error) {
	if g.closed {
		return core.Displacement{}, ErrSessionClose
	}
	if !g.pressed {
		return core.Displacement{}, ErrNotPressed
	}
	g.pressed = false
	g.traced++
	d := g.acc.Commit()
	g.restore()
	return d, nil
}

func (g *gesture) cancel() {
	g.pressed = false
	g.traced = 0
	g.acc.Reset()
	g.restore()
}

func (g *gesture) close() error {
	g.pressed = false
	g.closed = true
	g.acc.Reset()
	err := g.guard.Restore()
	g.guard = nil
	return err
}

func (g *gesture) restore() {
	if err := g.guard.Restore(); err != nil {
		g.log.Warn("Failed to restore pointer settings", "error", err)
	}
	g.guard = nil
}

func frameOf(d core.Displacement) Frame {
	dx, dy := d.TotalDX(), d.TotalDY()
	return Frame{
		DX:        dx,
		DY:        dy,
		Distance:  Distance(float64(dx), float64(dy)),
		Recentred: d.Recentred,
	}
}
