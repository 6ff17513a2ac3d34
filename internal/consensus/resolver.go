// Package consensus reduces the per-reference trace log of a location session
// to a single coordinate.
package consensus

import (
	"errors"
	"fmt"

	"github.com/mapreader/tracer/pkg/core"
)

var (
	ErrNoTraces          = errors.New("no traces recorded")
	ErrSessionDone       = errors.New("consensus already resolved")
	ErrNotDone           = errors.New("consensus not resolved yet")
	ErrInvalidTransition = errors.New("invalid consensus state transition")
	ErrUnknownMethod     = errors.New("unknown consensus method")
)

// Method selects the aggregation algorithm.
type Method string

const (
	MethodAverage     Method = "average"
	MethodTrilaterate Method = "trilaterate"
)

// ParseMethod maps a configuration value onto a Method. Empty means average.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case "", MethodAverage:
		return MethodAverage, nil
	case MethodTrilaterate:
		return MethodTrilaterate, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

// Phase is the kind of a resolver state.
type Phase int

const (
	AwaitingReference Phase = iota
	TraceInProgress
	Aggregating
	Done
)

func (p Phase) String() string {
	switch p {
	case AwaitingReference:
		return "AwaitingReference"
	case TraceInProgress:
		return "TraceInProgress"
	case Aggregating:
		return "Aggregating"
	case Done:
		return "Done"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// State is a phase plus the index of the reference it applies to. Index is
// only meaningful for AwaitingReference and TraceInProgress.
type State struct {
	Phase Phase
	Index int
}

func (s State) String() string {
	switch s.Phase {
	case AwaitingReference, TraceInProgress:
		return fmt.Sprintf("%s(%d)", s.Phase, s.Index)
	}
	return s.Phase.String()
}

// Resolver walks an ordered reference set one trace at a time:
// AwaitingReference(i) -> TraceInProgress(i) -> AwaitingReference(i+1) ...
// -> Aggregating -> Done.
type Resolver struct {
	refs   core.ReferenceSet
	method Method
	state  State
	log    []core.TraceRecord
	final  core.GeoCoordinate
}

// NewResolver starts in AwaitingReference(0).
func NewResolver(refs core.ReferenceSet, method Method) (*Resolver, error) {
	if err := refs.Validate(); err != nil {
		return nil, err
	}
	if _, err := ParseMethod(string(method)); err != nil {
		return nil, err
	}
	if method == "" {
		method = MethodAverage
	}

	r := &Resolver{
		refs:   append(core.ReferenceSet(nil), refs...),
		method: method,
	}
	r.Reset()
	return r, nil
}

func (r *Resolver) State() State {
	return r.state
}

func (r *Resolver) Method() Method {
	return r.method
}

// References returns the number of references in the session.
func (r *Resolver) References() int {
	return len(r.refs)
}

// Current returns the reference being traced or awaited. ok is false once
// every reference has been consumed.
func (r *Resolver) Current() (core.GeoCoordinate, bool) {
	switch r.state.Phase {
	case AwaitingReference, TraceInProgress:
		return r.refs[r.state.Index], true
	}
	return core.GeoCoordinate{}, false
}

// Begin marks the current reference as being traced.
func (r *Resolver) Begin() error {
	switch r.state.Phase {
	case Done:
		return ErrSessionDone
	case AwaitingReference:
		r.state.Phase = TraceInProgress
		return nil
	}
	return fmt.Errorf("%w: begin in %s", ErrInvalidTransition, r.state)
}

// Record appends a completed trace for the current reference and advances.
// After the last reference the log is aggregated; on success the resolver is
// Done, otherwise it stays in Aggregating and the error is returned.
func (r *Resolver) Record(rec core.TraceRecord) error {
	switch r.state.Phase {
	case Done:
		return ErrSessionDone
	case TraceInProgress:
	default:
		return fmt.Errorf("%w: record in %s", ErrInvalidTransition, r.state)
	}

	rec.Reference = r.refs[r.state.Index]
	r.log = append(r.log, rec)

	if next := r.state.Index + 1; next < len(r.refs) {
		r.state = State{Phase: AwaitingReference, Index: next}
		return nil
	}

	r.state = State{Phase: Aggregating}
	return r.finish()
}

// Retry re-runs aggregation while in Aggregating, optionally with a different
// method. Used after a trilateration failure to fall back on averaging.
func (r *Resolver) Retry(method Method) error {
	if r.state.Phase != Aggregating {
		return fmt.Errorf("%w: retry in %s", ErrInvalidTransition, r.state)
	}
	if _, err := ParseMethod(string(method)); err != nil {
		return err
	}
	r.method = method
	return r.finish()
}

func (r *Resolver) finish() error {
	final, err := r.Aggregate()
	if err != nil {
		return err
	}
	r.final = final
	r.state = State{Phase: Done}
	return nil
}

// Aggregate reduces the current trace log with the resolver's method.
func (r *Resolver) Aggregate() (core.GeoCoordinate, error) {
	if r.method == MethodTrilaterate {
		return Trilaterate(r.log)
	}
	return Average(r.log)
}

// Final returns the consensus coordinate once Done.
func (r *Resolver) Final() (core.GeoCoordinate, error) {
	if r.state.Phase != Done {
		return core.GeoCoordinate{}, fmt.Errorf("%w: %s", ErrNotDone, r.state)
	}
	return r.final, nil
}

// Log returns a copy of the ordered trace log.
func (r *Resolver) Log() []core.TraceRecord {
	return append([]core.TraceRecord(nil), r.log...)
}

// Reset clears the log and restarts from the first reference.
func (r *Resolver) Reset() {
	r.log = nil
	r.final = core.GeoCoordinate{}
	r.state = State{Phase: AwaitingReference, Index: 0}
}
