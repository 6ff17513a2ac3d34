package v1

import (
	"fmt"
	"time"

	"github.com/mapreader/tracer/pkg/core"
)

const timeLayout = time.RFC3339Nano

// Build creates an Export from the projects
func Build(projects []core.Project, at time.Time) Export {
	export := Export{
		Version:    Version,
		ExportedAt: at.UTC().Format(timeLayout),
		Projects:   make([]Project, 0, len(projects)),
	}

	for _, p := range projects {
		out := Project{
			ID:            p.ID,
			Name:          p.Name,
			Created:       formatTime(p.Created),
			LastAccessed:  formatTime(p.LastAccessed),
			PixelsPerUnit: p.Scale.PixelsPerUnit,
			Unit:          string(p.Scale.Unit),
			References:    make([][2]float64, len(p.References)),
			Points:        make([]Point, 0, len(p.Points)),
		}
		for i, ref := range p.References {
			out.References[i] = pair(ref)
		}
		for _, lp := range p.Points {
			out.Points = append(out.Points, buildPoint(lp))
		}
		export.Projects = append(export.Projects, out)
	}

	return export
}

func buildPoint(lp core.LocatedPoint) Point {
	pt := Point{
		ID:          lp.ID,
		Created:     formatTime(lp.Created),
		Location:    pair(lp.Location),
		Description: lp.Description,
		Distance:    lp.Distance,
		Bearing:     lp.Bearing,
		Unit:        string(lp.Unit),
		Traces:      make([]Trace, len(lp.Traces)),
	}
	for i, r := range lp.Traces {
		pt.Traces[i] = Trace{
			Reference:      pair(r.Reference),
			DX:             r.DX,
			DY:             r.DY,
			DistancePixels: r.DistancePixels,
			DistanceReal:   r.DistanceReal,
			Bearing:        r.Bearing,
			Destination:    pair(r.Destination),
			Unit:           string(r.Unit),
		}
	}
	return pt
}

// Restore converts a snapshot back into projects. Point.ProjectID is filled
// from the enclosing project.
func Restore(e Export) ([]core.Project, error) {
	if e.Version != Version {
		return nil, fmt.Errorf("unsupported snapshot version %q", e.Version)
	}

	projects := make([]core.Project, 0, len(e.Projects))
	for _, in := range e.Projects {
		created, err := parseTime(in.Created)
		if err != nil {
			return nil, fmt.Errorf("project %q: %w", in.Name, err)
		}
		accessed, err := parseTime(in.LastAccessed)
		if err != nil {
			return nil, fmt.Errorf("project %q: %w", in.Name, err)
		}

		p := core.Project{
			ID:           in.ID,
			Name:         in.Name,
			Created:      created,
			LastAccessed: accessed,
			Scale:        core.ScaleFactor{PixelsPerUnit: in.PixelsPerUnit, Unit: core.Unit(in.Unit)},
		}
		for _, ref := range in.References {
			p.References = append(p.References, coordinate(ref))
		}
		for _, pt := range in.Points {
			lp, err := restorePoint(p.ID, pt)
			if err != nil {
				return nil, fmt.Errorf("project %q: %w", in.Name, err)
			}
			p.Points = append(p.Points, lp)
		}
		projects = append(projects, p)
	}

	return projects, nil
}

func restorePoint(projectID uint, pt Point) (core.LocatedPoint, error) {
	created, err := parseTime(pt.Created)
	if err != nil {
		return core.LocatedPoint{}, fmt.Errorf("point %d: %w", pt.ID, err)
	}

	lp := core.LocatedPoint{
		ID:          pt.ID,
		ProjectID:   projectID,
		Created:     created,
		Location:    coordinate(pt.Location),
		Description: pt.Description,
		Distance:    pt.Distance,
		Bearing:     pt.Bearing,
		Unit:        core.Unit(pt.Unit),
	}
	for _, tr := range pt.Traces {
		lp.Traces = append(lp.Traces, core.TraceRecord{
			Reference:      coordinate(tr.Reference),
			DX:             tr.DX,
			DY:             tr.DY,
			DistancePixels: tr.DistancePixels,
			DistanceReal:   tr.DistanceReal,
			Bearing:        tr.Bearing,
			Destination:    coordinate(tr.Destination),
			Unit:           core.Unit(tr.Unit),
		})
	}
	return lp, nil
}

func pair(c core.GeoCoordinate) [2]float64 {
	return [2]float64{c.Latitude, c.Longitude}
}

func coordinate(p [2]float64) core.GeoCoordinate {
	return core.GeoCoordinate{Latitude: p[0], Longitude: p[1]}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s)
}
