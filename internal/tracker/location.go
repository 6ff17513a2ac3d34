package tracker

import (
	"errors"
	"fmt"

	"github.com/mapreader/tracer/internal/calibrate"
	"github.com/mapreader/tracer/internal/consensus"
	"github.com/mapreader/tracer/internal/geo"
	"github.com/mapreader/tracer/pkg/core"
)

// LocationSession traces from each reference in turn and projects every
// gesture onto the ellipsoid with the project scale. After the last
// reference the trace log is reduced to one coordinate.
type LocationSession struct {
	gesture
	resolver *consensus.Resolver
	scale    core.ScaleFactor
}

var _ Session = (*LocationSession)(nil)

func NewLocationSession(refs core.ReferenceSet, scale core.ScaleFactor, method consensus.Method, opts Options) (*LocationSession, error) {
	if !scale.IsSet() {
		return nil, ErrScaleNotSet
	}
	resolver, err := consensus.NewResolver(refs, method)
	if err != nil {
		return nil, err
	}
	g, err := newGesture(opts)
	if err != nil {
		return nil, err
	}
	return &LocationSession{gesture: g, resolver: resolver, scale: scale}, nil
}

func (l *LocationSession) Kind() Kind { return KindLocation }

// State exposes the consensus state machine position.
func (l *LocationSession) State() consensus.State {
	return l.resolver.State()
}

// Log returns the traces recorded so far.
func (l *LocationSession) Log() []core.TraceRecord {
	return l.resolver.Log()
}

func (l *LocationSession) Press(s core.Surface) error {
	switch l.resolver.State().Phase {
	case consensus.Done:
		return ErrSessionDone
	case consensus.AwaitingReference:
		if err := l.resolver.Begin(); err != nil {
			return err
		}
	case consensus.Aggregating:
		return fmt.Errorf("%w: aggregation pending", consensus.ErrInvalidTransition)
	}
	return l.press(s)
}

func (l *LocationSession) Sample(pos core.ScreenPoint, s core.Surface) (Frame, error) {
	if l.resolver.State().Phase == consensus.Done {
		return Frame{}, ErrSessionDone
	}
	d, err := l.sample(pos, s)
	if errors.Is(err, ErrNotPressed) || errors.Is(err, ErrSessionClose) {
		return Frame{}, err
	}

	f := frameOf(d)
	ref, ok := l.resolver.Current()
	if !ok {
		return f, err
	}
	if perr := l.locate(&f, ref); perr != nil {
		return f, perr
	}
	return f, err
}

// locate fills the location fields of f for a trace from ref.
func (l *LocationSession) locate(f *Frame, ref core.GeoCoordinate) error {
	f.Index = l.resolver.State().Index
	f.Reference = &ref
	f.Unit = l.scale.Unit
	f.Bearing = Bearing(float64(f.DX), float64(f.DY))
	f.Converted = calibrate.ToUnits(f.Distance.Or(0), l.scale)

	if !f.Converted.Defined {
		return nil
	}
	if f.Converted.Value == 0 {
		dest := ref
		f.Destination = &dest
		return nil
	}
	if !f.Bearing.Defined {
		return nil
	}

	dest, err := geo.Project(ref, f.Converted.Value, f.Bearing.Value, l.scale.Unit)
	if err != nil {
		return fmt.Errorf("project from %s: %w", ref, err)
	}
	f.Destination = &dest
	return nil
}

func (l *LocationSession) Release() (Completion, error) {
	if l.resolver.State().Phase == consensus.Done {
		return Completion{}, ErrSessionDone
	}
	ref, ok := l.resolver.Current()
	if !ok {
		return Completion{}, fmt.Errorf("%w: aggregation pending", consensus.ErrInvalidTransition)
	}

	d, err := l.release()
	if err != nil {
		return Completion{}, err
	}

	f := frameOf(d)
	if err := l.locate(&f, ref); err != nil {
		return Completion{}, err
	}
	if f.Destination == nil {
		return Completion{}, fmt.Errorf("trace from %s: bearing %s", ref, f.Bearing)
	}

	rec := core.TraceRecord{
		Reference:      ref,
		DX:             f.DX,
		DY:             f.DY,
		DistancePixels: f.Distance.Or(0),
		DistanceReal:   f.Converted.Value,
		Bearing:        f.Bearing.Or(0),
		Destination:    *f.Destination,
		Unit:           l.scale.Unit,
	}
	l.log.Debug("Location trace released",
		"reference", ref.String(),
		"index", f.Index,
		"distance", rec.DistanceReal,
		"bearing", rec.Bearing,
		"destination", rec.Destination.String())

	c := Completion{Trace: rec.Result(), Record: &rec}
	if err := l.resolver.Record(rec); err != nil {
		return c, err
	}
	return l.complete(c), nil
}

// Retry re-aggregates the trace log with another method after the configured
// one failed.
func (l *LocationSession) Retry(method consensus.Method) (Completion, error) {
	if err := l.resolver.Retry(method); err != nil {
		return Completion{}, err
	}
	return l.complete(Completion{}), nil
}

func (l *LocationSession) complete(c Completion) Completion {
	c.Remaining = l.resolver.References() - len(l.resolver.Log())
	final, err := l.resolver.Final()
	if err != nil {
		return c
	}
	c.Final = &final
	c.Done = true
	l.log.Info("Location resolved", "location", final.String(), "references", l.resolver.References(), "method", l.resolver.Method())
	return c
}

// Reset discards every trace and starts again from the first reference.
func (l *LocationSession) Reset() error {
	if l.closed {
		return ErrSessionClose
	}
	l.cancel()
	l.resolver.Reset()
	return nil
}

func (l *LocationSession) Close() error {
	return l.close()
}

// Finished is true once the consensus location has been resolved.
func (l *LocationSession) Finished() bool {
	return l.closed || l.resolver.State().Phase == consensus.Done
}
