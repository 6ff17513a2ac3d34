package tracker

import (
	"github.com/mapreader/tracer/pkg/core"
)

// CalibrationSession traces a known distance on the map. Each release yields
// the pixel length of the gesture; the session can be traced again until it
// is closed.
type CalibrationSession struct {
	gesture
}

var _ Session = (*CalibrationSession)(nil)

func NewCalibrationSession(opts Options) (*CalibrationSession, error) {
	g, err := newGesture(opts)
	if err != nil {
		return nil, err
	}
	return &CalibrationSession{gesture: g}, nil
}

func (c *CalibrationSession) Kind() Kind { return KindCalibration }

func (c *CalibrationSession) Press(s core.Surface) error {
	return c.press(s)
}

func (c *CalibrationSession) Sample(pos core.ScreenPoint, s core.Surface) (Frame, error) {
	d, err := c.sample(pos, s)
	f := frameOf(d)
	return f, err
}

func (c *CalibrationSession) Release() (Completion, error) {
	d, err := c.release()
	if err != nil {
		return Completion{}, err
	}

	f := frameOf(d)
	c.log.Debug("Calibration trace released", "dx", f.DX, "dy", f.DY, "pixels", f.Distance.Or(0))

	return Completion{
		Trace: core.TraceResult{
			DX:             f.DX,
			DY:             f.DY,
			DistancePixels: f.Distance.Or(0),
		},
	}, nil
}

func (c *CalibrationSession) Reset() error {
	if c.closed {
		return ErrSessionClose
	}
	c.cancel()
	return nil
}

func (c *CalibrationSession) Close() error {
	return c.close()
}

// Finished is true once a trace has been released and no gesture is in
// progress. The session still accepts further attempts until replaced.
func (c *CalibrationSession) Finished() bool {
	return c.closed || (c.traced > 0 && !c.pressed)
}
