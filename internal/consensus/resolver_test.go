package consensus

import (
	"testing"

	"github.com/mapreader/tracer/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coord(lat, lon float64) core.GeoCoordinate {
	return core.GeoCoordinate{Latitude: lat, Longitude: lon}
}

func traceTo(dest core.GeoCoordinate) core.TraceRecord {
	return core.TraceRecord{
		DX:             100,
		DY:             100,
		DistancePixels: 141.421356,
		DistanceReal:   1.075448,
		Bearing:        45,
		Destination:    dest,
		Unit:           core.Kilometer,
	}
}

func TestNewResolver(t *testing.T) {
	_, err := NewResolver(nil, MethodAverage)
	assert.ErrorIs(t, err, core.ErrEmptyReferenceSet)

	_, err = NewResolver(core.ReferenceSet{coord(0, 0)}, Method("median"))
	assert.ErrorIs(t, err, ErrUnknownMethod)

	r, err := NewResolver(core.ReferenceSet{coord(0, 0)}, "")
	require.NoError(t, err)
	assert.Equal(t, MethodAverage, r.Method())
	assert.Equal(t, State{Phase: AwaitingReference, Index: 0}, r.State())
}

func TestResolver_WalksReferences(t *testing.T) {
	refs := core.ReferenceSet{coord(0, 0), coord(1, 1)}
	r, err := NewResolver(refs, MethodAverage)
	require.NoError(t, err)

	cur, ok := r.Current()
	require.True(t, ok)
	assert.Equal(t, refs[0], cur)

	require.NoError(t, r.Begin())
	assert.Equal(t, "TraceInProgress(0)", r.State().String())

	require.NoError(t, r.Record(traceTo(coord(0.006877, 0.006831))))
	assert.Equal(t, State{Phase: AwaitingReference, Index: 1}, r.State())
	cur, _ = r.Current()
	assert.Equal(t, refs[1], cur)

	_, err = r.Final()
	assert.ErrorIs(t, err, ErrNotDone)

	require.NoError(t, r.Begin())
	require.NoError(t, r.Record(traceTo(coord(1.006877, 1.006832))))
	assert.Equal(t, Done, r.State().Phase)

	_, ok = r.Current()
	assert.False(t, ok)

	final, err := r.Final()
	require.NoError(t, err)
	assert.InDelta(t, 0.506877, final.Latitude, 1e-6)
	assert.InDelta(t, 0.5068315, final.Longitude, 1e-6)

	log := r.Log()
	require.Len(t, log, 2)
	assert.Equal(t, refs[0], log[0].Reference)
	assert.Equal(t, refs[1], log[1].Reference)
}

func TestResolver_SingleReferenceIsExact(t *testing.T) {
	dest := coord(38.006851, -119.991341)
	r, err := NewResolver(core.ReferenceSet{coord(38, -120)}, MethodAverage)
	require.NoError(t, err)

	require.NoError(t, r.Begin())
	require.NoError(t, r.Record(traceTo(dest)))

	final, err := r.Final()
	require.NoError(t, err)
	assert.Equal(t, dest, final)
}

func TestResolver_InvalidTransitions(t *testing.T) {
	r, err := NewResolver(core.ReferenceSet{coord(0, 0)}, MethodAverage)
	require.NoError(t, err)

	assert.ErrorIs(t, r.Record(traceTo(coord(0, 0))), ErrInvalidTransition)
	require.NoError(t, r.Begin())
	assert.ErrorIs(t, r.Begin(), ErrInvalidTransition)
	assert.ErrorIs(t, r.Retry(MethodAverage), ErrInvalidTransition)

	require.NoError(t, r.Record(traceTo(coord(0, 0))))
	assert.ErrorIs(t, r.Begin(), ErrSessionDone)
	assert.ErrorIs(t, r.Record(traceTo(coord(0, 0))), ErrSessionDone)
}

func TestResolver_Reset(t *testing.T) {
	refs := core.ReferenceSet{coord(0, 0), coord(1, 1)}
	r, err := NewResolver(refs, MethodAverage)
	require.NoError(t, err)

	require.NoError(t, r.Begin())
	require.NoError(t, r.Record(traceTo(coord(0.1, 0.1))))
	r.Reset()

	assert.Equal(t, State{Phase: AwaitingReference, Index: 0}, r.State())
	assert.Empty(t, r.Log())
	cur, _ := r.Current()
	assert.Equal(t, refs[0], cur)

	_, err = r.Aggregate()
	assert.ErrorIs(t, err, ErrNoTraces)
}

func TestResolver_RetryAfterContainedCircles(t *testing.T) {
	refs := core.ReferenceSet{coord(0, 0), coord(0, 0.01)}
	r, err := NewResolver(refs, MethodTrilaterate)
	require.NoError(t, err)

	require.NoError(t, r.Begin())
	require.NoError(t, r.Record(traceTo(coord(0, 0.5))))
	require.NoError(t, r.Begin())
	err = r.Record(traceTo(coord(0, 0.011)))
	require.ErrorIs(t, err, ErrCircleContained)
	assert.Equal(t, Aggregating, r.State().Phase)

	require.NoError(t, r.Retry(MethodAverage))
	final, err := r.Final()
	require.NoError(t, err)
	assert.InDelta(t, 0.2555, final.Longitude, 1e-6)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("")
	require.NoError(t, err)
	assert.Equal(t, MethodAverage, m)

	m, err = ParseMethod("trilaterate")
	require.NoError(t, err)
	assert.Equal(t, MethodTrilaterate, m)

	_, err = ParseMethod("vote")
	assert.ErrorIs(t, err, ErrUnknownMethod)
}
