package handlers

import (
	"fmt"

	"github.com/mapreader/tracer/internal/dispatcher"
	"github.com/mapreader/tracer/internal/util"
	"github.com/mapreader/tracer/pkg/core"
)

// RegisterHandlers registers all session and project commands with the dispatcher.
func (s *Service) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Project state - sync, later commands read it
	d.Register(":PROJECT:LOAD:", s.handleProjectLoad, dispatcher.Logged())
	d.Register(":PROJECT:LIST:", s.handleProjectList)
	d.Register(":SCALE:SET:", s.handleScaleSet, dispatcher.Logged())
	d.Register(":REFERENCE:ADD:", s.handleReferenceAdd, dispatcher.Logged())
	d.Register(":LOCATION:SAVE:", s.handleLocationSave, dispatcher.Logged())
	d.Register(":POINTS:", s.handlePoints)

	// Session lifecycle - sync
	d.Register(":SESSION:CALIBRATE:", s.handleSessionCalibrate, dispatcher.Logged())
	d.Register(":SESSION:LOCATE:", s.handleSessionLocate, dispatcher.Logged())
	d.Register(":SESSION:CLOSE:", s.handleSessionClose, dispatcher.Logged())

	// Gestures - sync, every sample returns a frame
	d.Register(":TRACE:PRESS:", s.handleTracePress)
	d.Register(":TRACE:SAMPLE:", s.handleTraceSample)
	d.Register(":TRACE:RELEASE:", s.handleTraceRelease, dispatcher.Logged())
	d.Register(":TRACE:RESET:", s.handleTraceReset, dispatcher.Logged())
}

func (s *Service) handleProjectLoad(e dispatcher.Event) (any, error) {
	name := util.ArgString(e.Args, 0)
	if name == "" {
		name = s.deps.Tracker.Project
	}
	return s.LoadProject(name)
}

func (s *Service) handleProjectList(e dispatcher.Event) (any, error) {
	projects, err := s.ListProjects()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(projects))
	for _, p := range projects {
		names = append(names, p.Name)
	}
	return names, nil
}

func (s *Service) handleScaleSet(e dispatcher.Event) (any, error) {
	pixels := 0.0
	if util.ArgString(e.Args, 0) != "" {
		v, err := util.ArgFloat(e.Args, 0, "pixels")
		if err != nil {
			return nil, err
		}
		pixels = v
	}
	distance, err := util.ArgFloat(e.Args, 1, "distance")
	if err != nil {
		return nil, err
	}
	unit, err := core.ParseUnit(util.ArgString(e.Args, 2))
	if err != nil {
		return nil, err
	}
	return s.SetScale(pixels, distance, unit)
}

func (s *Service) handleReferenceAdd(e dispatcher.Event) (any, error) {
	lat, err := util.ArgFloat(e.Args, 0, "lat")
	if err != nil {
		return nil, err
	}
	lon, err := util.ArgFloat(e.Args, 1, "lon")
	if err != nil {
		return nil, err
	}
	return s.AddReference(lat, lon)
}

func (s *Service) handlePoints(e dispatcher.Event) (any, error) {
	return s.Points()
}

func (s *Service) handleSessionCalibrate(e dispatcher.Event) (any, error) {
	if err := s.StartCalibration(); err != nil {
		return nil, err
	}
	return "ok", nil
}

func (s *Service) handleSessionLocate(e dispatcher.Event) (any, error) {
	if err := s.StartLocation(); err != nil {
		return nil, err
	}
	return "ok", nil
}

func (s *Service) handleSessionClose(e dispatcher.Event) (any, error) {
	if err := s.CloseSession(); err != nil {
		return nil, err
	}
	return "ok", nil
}

func (s *Service) handleTracePress(e dispatcher.Event) (any, error) {
	surface, err := parseSurface(e.Args, 0)
	if err != nil {
		return nil, err
	}
	if err := s.Press(surface); err != nil {
		return nil, err
	}
	return "ok", nil
}

func (s *Service) handleTraceSample(e dispatcher.Event) (any, error) {
	xy, err := util.ArgInts(e.Args, 0, "x", "y")
	if err != nil {
		return nil, err
	}
	surface, err := parseSurface(e.Args, 2)
	if err != nil {
		return nil, err
	}
	return s.Sample(core.ScreenPoint{X: xy[0], Y: xy[1]}, surface)
}

func (s *Service) handleTraceRelease(e dispatcher.Event) (any, error) {
	return s.Release()
}

func (s *Service) handleTraceReset(e dispatcher.Event) (any, error) {
	if err := s.ResetSession(); err != nil {
		return nil, err
	}
	return "ok", nil
}

// handleLocationSave takes an optional description, optionally followed by
// lat, lon, distance and bearing replacing the resolved values.
func (s *Service) handleLocationSave(e dispatcher.Event) (any, error) {
	description := util.ArgString(e.Args, 0)

	var override *Override
	if len(e.Args) > 1 {
		v := make([]float64, 4)
		for i, name := range []string{"lat", "lon", "distance", "bearing"} {
			f, err := util.ArgFloat(e.Args, i+1, name)
			if err != nil {
				return nil, fmt.Errorf("location override: %w", err)
			}
			v[i] = f
		}
		override = &Override{Latitude: v[0], Longitude: v[1], Distance: v[2], Bearing: v[3]}
	}

	return s.SaveLocation(description, override)
}

// parseSurface reads originX, originY, width and height starting at from.
func parseSurface(args []string, from int) (core.Surface, error) {
	v, err := util.ArgInts(args, from, "originX", "originY", "width", "height")
	if err != nil {
		return core.Surface{}, err
	}
	if v[2] <= 0 || v[3] <= 0 {
		return core.Surface{}, fmt.Errorf("%w: surface %dx%d", util.ErrBadArg, v[2], v[3])
	}
	return core.Surface{OriginX: v[0], OriginY: v[1], Width: v[2], Height: v[3]}, nil
}
