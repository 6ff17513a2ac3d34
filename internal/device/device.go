// Package device wraps the OS pointer settings (speed and acceleration) that a
// trace session overrides while the user is tracing, and the cursor
// reposition primitive used for recentring.
package device

import (
	"errors"
	"fmt"
	"sync"
)

const (
	MinSpeed     = 1
	MaxSpeed     = 20
	DefaultSpeed = 10
)

var (
	ErrSpeedRange  = errors.New("pointer speed out of range [1, 20]")
	ErrUnsupported = errors.New("pointer settings not supported on this platform")
)

// Controller reads and writes the system-wide pointer settings.
type Controller interface {
	Speed() (int, error)
	SetSpeed(speed int) error
	Acceleration() (bool, error)
	SetAcceleration(enabled bool) error
}

// Cursor moves the pointer.
type Cursor interface {
	SetCursorPosition(x, y int) error
}

// ValidateSpeed checks speed against [MinSpeed, MaxSpeed].
func ValidateSpeed(speed int) error {
	if speed < MinSpeed || speed > MaxSpeed {
		return fmt.Errorf("%w: %d", ErrSpeedRange, speed)
	}
	return nil
}

// Profile is the pointer behaviour applied for the duration of a trace.
// A zero Speed leaves the user's speed untouched.
type Profile struct {
	Speed        int
	Acceleration bool
}

// Guard holds the settings captured by Override.
type Guard struct {
	ctl   Controller
	speed int
	accel bool
	once  sync.Once
	err   error
}

// Override captures the current settings of ctl and applies p. If applying p
// fails part way, the captured settings are put back before returning.
func Override(ctl Controller, p Profile) (*Guard, error) {
	if p.Speed != 0 {
		if err := ValidateSpeed(p.Speed); err != nil {
			return nil, err
		}
	}

	speed, err := ctl.Speed()
	if err != nil {
		return nil, fmt.Errorf("read pointer speed: %w", err)
	}
	accel, err := ctl.Acceleration()
	if err != nil {
		return nil, fmt.Errorf("read pointer acceleration: %w", err)
	}

	g := &Guard{ctl: ctl, speed: speed, accel: accel}

	if p.Speed != 0 {
		if err := ctl.SetSpeed(p.Speed); err != nil {
			return nil, errors.Join(fmt.Errorf("apply pointer speed: %w", err), g.Restore())
		}
	}
	if err := ctl.SetAcceleration(p.Acceleration); err != nil {
		return nil, errors.Join(fmt.Errorf("apply pointer acceleration: %w", err), g.Restore())
	}

	return g, nil
}

// Restore puts the captured settings back. Only the first call touches the
// controller; later calls return the same result.
func (g *Guard) Restore() error {
	if g == nil {
		return nil
	}
	g.once.Do(func() {
		var errs []error
		if err := g.ctl.SetSpeed(g.speed); err != nil {
			errs = append(errs, fmt.Errorf("restore pointer speed: %w", err))
		}
		if err := g.ctl.SetAcceleration(g.accel); err != nil {
			errs = append(errs, fmt.Errorf("restore pointer acceleration: %w", err))
		}
		g.err = errors.Join(errs...)
	})
	return g.err
}

// Original returns the captured settings.
func (g *Guard) Original() Profile {
	return Profile{Speed: g.speed, Acceleration: g.accel}
}
