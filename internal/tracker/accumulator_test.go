package tracker

import (
	"errors"
	"testing"

	"github.com/mapreader/tracer/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func centred(w, h int) (*screen, *Accumulator) {
	scr := newScreen(w, h)
	c := scr.surface.Center()
	_ = scr.SetCursorPosition(c.X, c.Y)
	return scr, NewAccumulator(scr)
}

func TestAccumulator_NoBoundary(t *testing.T) {
	scr, acc := centred(1000, 800)

	require.NoError(t, scr.dragAcc(acc, 120, -45))

	d := acc.State()
	assert.Equal(t, 0, d.NetDX)
	assert.Equal(t, 0, d.NetDY)
	assert.Equal(t, 120, d.PendingDX)
	assert.Equal(t, -45, d.PendingDY)
	assert.Equal(t, 0, acc.Recentrings())

	final := acc.Commit()
	assert.Equal(t, 120, final.NetDX)
	assert.Equal(t, -45, final.NetDY)
	assert.Equal(t, 0, final.PendingDX)
}

func TestAccumulator_YIsUpPositive(t *testing.T) {
	s := core.Surface{Width: 200, Height: 100}
	acc := NewAccumulator(newScreen(200, 100))

	d, err := acc.Sample(core.ScreenPoint{X: 100, Y: 40}, s)

	require.NoError(t, err)
	assert.Equal(t, 0, d.PendingDX)
	assert.Equal(t, 10, d.PendingDY)
}

func TestAccumulator_BoundaryRecentres(t *testing.T) {
	scr := newScreen(200, 100)
	acc := NewAccumulator(scr)

	d, err := acc.Sample(core.ScreenPoint{X: 199, Y: 50}, scr.surface)

	require.NoError(t, err)
	assert.True(t, d.Recentred)
	assert.Equal(t, 99, d.NetDX)
	// pending is kept as read
	assert.Equal(t, 99, d.PendingDX)
	assert.Equal(t, 99, d.TotalDX())
	assert.Equal(t, core.ScreenPoint{X: 100, Y: 50}, scr.pos())

	d, err = acc.Sample(scr.pos(), scr.surface)
	require.NoError(t, err)
	assert.False(t, d.Recentred)
	assert.Equal(t, 0, d.PendingDX)
	assert.Equal(t, 99, d.TotalDX())
}

func TestAccumulator_CommitRightAfterRecentring(t *testing.T) {
	scr := newScreen(200, 100)
	acc := NewAccumulator(scr)

	_, err := acc.Sample(core.ScreenPoint{X: 0, Y: 50}, scr.surface)
	require.NoError(t, err)

	final := acc.Commit()
	assert.Equal(t, -100, final.NetDX)
	assert.Equal(t, 0, final.NetDY)
}

func TestAccumulator_RecentringInvariance(t *testing.T) {
	gesture := [][2]int{{700, 0}, {0, 450}, {-1300, -200}, {35, 35}, {0, -900}}
	wantDX, wantDY := 0, 0
	for _, g := range gesture {
		wantDX += g[0]
		wantDY += g[1]
	}

	sizes := [][2]int{{4000, 4000}, {1920, 1080}, {640, 480}, {101, 77}, {33, 21}}
	seen := map[int]bool{}
	for _, size := range sizes {
		scr, acc := centred(size[0], size[1])
		for _, g := range gesture {
			require.NoError(t, scr.dragAcc(acc, g[0], g[1]))
		}
		final := acc.Commit()
		assert.Equal(t, wantDX, final.NetDX, "surface %v", size)
		assert.Equal(t, wantDY, final.NetDY, "surface %v", size)
		seen[acc.Recentrings()] = true
	}
	assert.Greater(t, len(seen), 2, "surfaces should produce different recentring counts")
}

func TestAccumulator_TotalTracksTruthEverySample(t *testing.T) {
	scr, acc := centred(41, 31)
	s := scr.surface
	trueDX, trueDY := 0, 0

	moves := [][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	for round := 0; round < 60; round++ {
		m := moves[(round*3)%len(moves)]
		for i := 0; i < 17; i++ {
			scr.x = clamp(scr.x+m[0], 0, s.Width-1)
			scr.y = clamp(scr.y-m[1], 0, s.Height-1)
			trueDX += m[0]
			trueDY += m[1]

			d, err := acc.Sample(scr.pos(), s)
			require.NoError(t, err)
			require.Equal(t, trueDX, d.TotalDX())
			require.Equal(t, trueDY, d.TotalDY())
		}
	}
	assert.Positive(t, acc.Recentrings())
}

func TestAccumulator_Reset(t *testing.T) {
	scr, acc := centred(100, 100)
	require.NoError(t, scr.dragAcc(acc, 80, 0))
	require.Positive(t, acc.Recentrings())

	acc.Reset()

	assert.Equal(t, core.Displacement{}, acc.State())
	assert.Equal(t, 0, acc.Recentrings())
}

type failingPointer struct{ err error }

func (f failingPointer) SetCursorPosition(int, int) error { return f.err }

func TestAccumulator_PointerFailureKeepsDisplacement(t *testing.T) {
	boom := errors.New("no cursor")
	acc := NewAccumulator(failingPointer{err: boom})
	s := core.Surface{Width: 100, Height: 100}

	d, err := acc.Sample(core.ScreenPoint{X: 99, Y: 50}, s)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 49, d.NetDX)
	assert.Equal(t, 49, acc.Commit().NetDX)
}
