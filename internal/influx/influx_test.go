package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/mapreader/tracer/internal/config"
	"github.com/mapreader/tracer/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func unreachable() config.InfluxConfig {
	return config.InfluxConfig{
		Enabled:  true,
		Protocol: "http",
		Host:     "127.0.0.1",
		Port:     "1",
		Org:      "mapreader",
		Bucket:   "trace_metrics",
	}
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, zerolog.Nop(), "")

	assert.ErrorIs(t, m.Connect(), ErrDisabled)
	assert.False(t, m.IsValid)
}

func TestTracePoint_Location(t *testing.T) {
	r := core.TraceResult{
		DX: 100, DY: -100, DistancePixels: 141.421356, DistanceUnits: 1.075448, BearingDegrees: 45,
		Unit: core.Kilometer, Destination: core.GeoCoordinate{Latitude: 38.006851, Longitude: -119.991341},
	}

	line := influxdb2_write.PointToLineProtocol(TracePoint("sierra", "location", r, at), time.Nanosecond)

	assert.True(t, strings.HasPrefix(line, "trace,"), line)
	assert.Contains(t, line, "project=sierra")
	assert.Contains(t, line, "unit=km")
	assert.Contains(t, line, "bearing=45")
	assert.Contains(t, line, "latitude=38.006851")
}

func TestTracePoint_Calibration(t *testing.T) {
	line := influxdb2_write.PointToLineProtocol(
		TracePoint("sierra", "calibration", core.TraceResult{DX: 3, DY: 4, DistancePixels: 5}, at), time.Nanosecond)

	assert.Contains(t, line, "distance_px=5")
	assert.NotContains(t, line, "unit=")
	assert.NotContains(t, line, "bearing=")
}

func TestLocationPoint(t *testing.T) {
	line := influxdb2_write.PointToLineProtocol(
		LocationPoint("sierra", "average", core.GeoCoordinate{Latitude: 0.506877, Longitude: 0.506832}, 2, at), time.Nanosecond)

	assert.True(t, strings.HasPrefix(line, "location,"), line)
	assert.Contains(t, line, "method=average")
	assert.Contains(t, line, "references=2i")
}

func TestBackupWriter(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "metrics.lp.gz")
	m := NewManager(unreachable(), zerolog.Nop(), backup)

	require.NoError(t, m.Connect())
	assert.False(t, m.IsValid)

	ctx := context.Background()
	require.NoError(t, m.WriteTrace(ctx, "sierra", "calibration", core.TraceResult{DX: 3, DY: 4, DistancePixels: 5}, at))
	require.NoError(t, m.WriteLocation(ctx, "sierra", "average", core.GeoCoordinate{Latitude: 1, Longitude: 2}, 1, at))
	require.NoError(t, m.Close())

	f, err := os.Open(backup)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)

	lines := strings.Split(string(data), "\n")
	require.Len(t, lines, 3)
	assert.Empty(t, lines[2])
	assert.True(t, strings.HasPrefix(lines[0], "trace,"))
	assert.True(t, strings.HasPrefix(lines[1], "location,"))
}

func TestWritePoint_NoWriter(t *testing.T) {
	m := NewManager(unreachable(), zerolog.Nop(), "")

	err := m.WritePoint(context.Background(), "trace_metrics", LocationPoint("p", "average", core.GeoCoordinate{}, 1, at))

	assert.Error(t, err)
	assert.NoError(t, m.Close())
}
