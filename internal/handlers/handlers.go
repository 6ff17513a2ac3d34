// Package handlers owns the active trace session and the loaded project and
// exposes them as the commands the presentation layer sends.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mapreader/tracer/internal/calibrate"
	"github.com/mapreader/tracer/internal/config"
	"github.com/mapreader/tracer/internal/consensus"
	"github.com/mapreader/tracer/internal/device"
	"github.com/mapreader/tracer/internal/influx"
	"github.com/mapreader/tracer/internal/logging"
	"github.com/mapreader/tracer/internal/project"
	"github.com/mapreader/tracer/internal/storage"
	"github.com/mapreader/tracer/internal/tracker"
	"github.com/mapreader/tracer/pkg/core"
)

var (
	ErrSessionActive = errors.New("a session is already active")
	ErrNoSession     = errors.New("no active session")
	ErrNoProject     = errors.New("no project loaded")
	ErrNoCalibration = errors.New("no calibration trace recorded")
	ErrNothingToSave = errors.New("no resolved location to save")
	ErrNoBackend     = errors.New("no storage backend")
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Backend    storage.Backend
	Influx     *influx.Manager
	LogManager *logging.SlogManager
	// Device is optional; Cursor is required to start a session.
	Device  device.Controller
	Cursor  device.Cursor
	Tracker config.TrackerConfig
}

// Override replaces the consensus values of a location before it is saved.
type Override struct {
	Latitude  float64
	Longitude float64
	Distance  float64
	Bearing   float64
}

// resolved is the last consensus result waiting to be saved.
type resolved struct {
	location core.GeoCoordinate
	traces   []core.TraceRecord
	unit     core.Unit
	method   consensus.Method
	// from is the session that produced it
	from tracker.Session
}

// Service provides handler methods for driving trace sessions
type Service struct {
	deps         Dependencies
	ctx          *project.Context
	writeLogFunc func(functionName, data, level string)
	now          func() time.Time

	mu          sync.Mutex
	session     tracker.Session
	calibration *core.TraceResult
	last        *resolved
}

// NewService creates a new handler service
func NewService(deps Dependencies, ctx *project.Context) *Service {
	if ctx == nil {
		ctx = project.NewContext()
	}
	s := &Service{
		deps: deps,
		ctx:  ctx,
		now:  time.Now,
	}
	s.writeLogFunc = func(functionName, data, level string) {
		if deps.LogManager != nil {
			deps.LogManager.WriteLog(functionName, data, level)
		}
	}
	return s
}

// GetProjectContext returns the project context
func (s *Service) GetProjectContext() *project.Context {
	return s.ctx
}

func (s *Service) writeLog(functionName, data, level string) {
	s.writeLogFunc(functionName, data, level)
}

func (s *Service) logger() *slog.Logger {
	if s.deps.LogManager != nil {
		return s.deps.LogManager.Logger()
	}
	return slog.Default()
}

func (s *Service) options() tracker.Options {
	return tracker.Options{
		Pointer: s.deps.Cursor,
		Device:  s.deps.Device,
		Profile: device.Profile{
			Speed:        s.deps.Tracker.PointerSpeed,
			Acceleration: s.deps.Tracker.Acceleration,
		},
		Logger: s.logger(),
	}
}

////////////////////////
// PROJECTS
////////////////////////

// LoadProject makes the named project current, creating it when the backend
// does not know it yet.
func (s *Service) LoadProject(name string) (core.Project, error) {
	functionName := ":PROJECT:LOAD:"
	if s.deps.Backend == nil {
		return core.Project{}, ErrNoBackend
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.admitLocked(); err != nil {
		return core.Project{}, err
	}

	p, err := s.deps.Backend.LoadProject(name)
	if errors.Is(err, storage.ErrProjectNotFound) {
		p = core.Project{Name: name}
		if err = s.deps.Backend.SaveProject(&p); err == nil {
			s.writeLog(functionName, fmt.Sprintf(`Created project %q`, p.Name), "INFO")
		}
	}
	if err != nil {
		s.writeLog(functionName, fmt.Sprintf(`Error loading project %q: %v`, name, err), "ERROR")
		return core.Project{}, err
	}

	s.ctx.SetProject(p)
	s.calibration = nil
	s.last = nil
	s.writeLog(functionName, fmt.Sprintf(`Loaded project %q with %d references and %d points`, p.Name, len(p.References), len(p.Points)), "INFO")
	return s.ctx.Project(), nil
}

// ListProjects returns every stored project.
func (s *Service) ListProjects() ([]core.Project, error) {
	if s.deps.Backend == nil {
		return nil, ErrNoBackend
	}
	return s.deps.Backend.ListProjects()
}

// Points returns the saved locations of the current project.
func (s *Service) Points() ([]core.LocatedPoint, error) {
	p, err := s.current()
	if err != nil {
		return nil, err
	}
	return s.deps.Backend.Points(p.ID)
}

func (s *Service) current() (core.Project, error) {
	if !s.ctx.Loaded() {
		return core.Project{}, ErrNoProject
	}
	if s.deps.Backend == nil {
		return core.Project{}, ErrNoBackend
	}
	return s.ctx.Project(), nil
}

// SetScale calibrates the current project from a traced pixel length and the
// distance it represents. pixels <= 0 uses the last calibration trace.
func (s *Service) SetScale(pixels, distance float64, unit core.Unit) (core.ScaleFactor, error) {
	functionName := ":SCALE:SET:"

	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.current()
	if err != nil {
		return core.ScaleFactor{}, err
	}

	if pixels <= 0 {
		if s.calibration == nil {
			return core.ScaleFactor{}, ErrNoCalibration
		}
		pixels = s.calibration.DistancePixels
	}

	scale, err := calibrate.Calibrate(pixels, distance, unit)
	if err != nil {
		s.writeLog(functionName, fmt.Sprintf(`Rejected calibration: %v`, err), "WARN")
		return core.ScaleFactor{}, err
	}
	if err := s.deps.Backend.SetScale(p.ID, scale); err != nil {
		s.writeLog(functionName, fmt.Sprintf(`Error saving scale: %v`, err), "ERROR")
		return core.ScaleFactor{}, err
	}

	s.ctx.SetScale(scale)
	s.writeLog(functionName, fmt.Sprintf(`Scale set to %v px/%s`, scale.PixelsPerUnit, scale.Unit), "INFO")
	return scale, nil
}

// AddReference appends a known coordinate to the current project.
func (s *Service) AddReference(lat, lon float64) (core.GeoCoordinate, error) {
	functionName := ":REFERENCE:ADD:"

	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.current()
	if err != nil {
		return core.GeoCoordinate{}, err
	}

	ref, err := core.NewGeoCoordinate(lat, lon)
	if err != nil {
		return core.GeoCoordinate{}, err
	}
	if err := s.deps.Backend.AddReference(p.ID, ref); err != nil {
		s.writeLog(functionName, fmt.Sprintf(`Error saving reference: %v`, err), "ERROR")
		return core.GeoCoordinate{}, err
	}

	s.ctx.AddReference(ref)
	s.writeLog(functionName, fmt.Sprintf(`Added reference %s`, ref), "DEBUG")
	return ref, nil
}

////////////////////////
// SESSIONS
////////////////////////

// StartCalibration opens a calibration session, replacing a finished one.
func (s *Service) StartCalibration() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.admitLocked(); err != nil {
		return err
	}

	sess, err := tracker.NewCalibrationSession(s.options())
	if err != nil {
		return err
	}
	s.open(sess)
	return nil
}

// StartLocation opens a location session on the current project's
// references and scale, replacing a finished one. An unsaved result of the
// replaced session can still be saved until the new session resolves.
func (s *Service) StartLocation() error {
	if !s.ctx.Loaded() {
		return ErrNoProject
	}
	method, err := consensus.ParseMethod(s.deps.Tracker.Method)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil && !s.session.Finished() {
		return ErrSessionActive
	}

	p := s.ctx.Project()
	sess, err := tracker.NewLocationSession(p.References, p.Scale, method, s.options())
	if err != nil {
		s.writeLog(":SESSION:LOCATE:", fmt.Sprintf(`Cannot start location session: %v`, err), "WARN")
		return err
	}
	if err := s.admitLocked(); err != nil {
		return err
	}
	s.open(sess)
	return nil
}

// admitLocked makes room for a new session. A finished session is closed;
// any other active session is ErrSessionActive.
func (s *Service) admitLocked() error {
	if s.session == nil {
		return nil
	}
	if !s.session.Finished() {
		return ErrSessionActive
	}
	s.writeLog(":SESSION:", fmt.Sprintf(`Replacing finished %s session`, s.session.Kind()), "DEBUG")
	// restore failures are logged by closeLocked
	_ = s.closeLocked()
	return nil
}

func (s *Service) open(sess tracker.Session) {
	s.session = sess
	s.ctx.SetSession(string(sess.Kind()))
	s.writeLog(":SESSION:", fmt.Sprintf(`Started %s session`, sess.Kind()), "INFO")
}

// Active returns the kind of the open session, or "" when idle.
func (s *Service) Active() tracker.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return ""
	}
	return s.session.Kind()
}

// Press starts a gesture on the active session.
func (s *Service) Press(surface core.Surface) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return ErrNoSession
	}
	return s.session.Press(surface)
}

// Sample feeds one pointer position to the active session.
func (s *Service) Sample(pos core.ScreenPoint, surface core.Surface) (tracker.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return tracker.Frame{}, ErrNoSession
	}
	return s.session.Sample(pos, surface)
}

// Release ends the gesture. A location session whose trilateration cannot
// be solved falls back on averaging the trace log.
func (s *Service) Release() (tracker.Completion, error) {
	functionName := ":TRACE:RELEASE:"

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return tracker.Completion{}, ErrNoSession
	}

	c, err := s.session.Release()
	method, _ := consensus.ParseMethod(s.deps.Tracker.Method)

	loc, isLocation := s.session.(*tracker.LocationSession)
	if isLocation && (errors.Is(err, consensus.ErrCircleContained) || errors.Is(err, consensus.ErrConcentric)) {
		s.writeLog(functionName, fmt.Sprintf(`Trilateration failed, averaging instead: %v`, err), "WARN")
		retried, rerr := loc.Retry(consensus.MethodAverage)
		if rerr != nil {
			return c, errors.Join(err, rerr)
		}
		retried.Trace, retried.Record = c.Trace, c.Record
		c, err, method = retried, nil, consensus.MethodAverage
	}
	if err != nil {
		return c, err
	}

	at := s.now()
	p := s.ctx.Project()
	s.writeTrace(p.Name, s.session.Kind(), c.Trace, at)

	if !isLocation {
		trace := c.Trace
		s.calibration = &trace
		return c, nil
	}

	if c.Done && c.Final != nil {
		s.last = &resolved{
			location: *c.Final,
			traces:   loc.Log(),
			unit:     p.Scale.Unit,
			method:   method,
			from:     s.session,
		}
		s.writeLocation(p.Name, method, *c.Final, len(s.last.traces), at)
	}
	return c, nil
}

// ResetSession cancels the current gesture and restarts the session.
func (s *Service) ResetSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return ErrNoSession
	}
	if err := s.session.Reset(); err != nil {
		return err
	}
	if s.last != nil && s.last.from == s.session {
		s.last = nil
	}
	return nil
}

// CloseSession abandons the active session and restores the pointer settings.
func (s *Service) CloseSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Service) closeLocked() error {
	if s.session == nil {
		return ErrNoSession
	}
	kind := s.session.Kind()
	err := s.session.Close()
	s.session = nil
	s.ctx.SetSession("")
	if err != nil {
		s.writeLog(":SESSION:CLOSE:", fmt.Sprintf(`Error restoring pointer settings: %v`, err), "ERROR")
	} else {
		s.writeLog(":SESSION:CLOSE:", fmt.Sprintf(`Closed %s session`, kind), "INFO")
	}
	return err
}

// Close ends any active session.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	return s.closeLocked()
}

////////////////////////
// LOCATIONS
////////////////////////

// SaveLocation persists the last resolved location of the current project.
// Distance and bearing are filled from the trace when a single reference was
// used. A non-nil override replaces the resolved values after validation.
func (s *Service) SaveLocation(description string, override *Override) (core.LocatedPoint, error) {
	functionName := ":LOCATION:SAVE:"

	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.current()
	if err != nil {
		return core.LocatedPoint{}, err
	}

	last := s.last
	if last == nil {
		return core.LocatedPoint{}, ErrNothingToSave
	}

	point := core.LocatedPoint{
		ProjectID:   p.ID,
		Created:     s.now(),
		Location:    last.location,
		Description: description,
		Unit:        last.unit,
		Traces:      last.traces,
	}
	if len(last.traces) == 1 {
		point.Distance = last.traces[0].DistanceReal
		point.Bearing = last.traces[0].Bearing
	}

	if override != nil {
		if err := calibrate.ValidateLocation(override.Latitude, override.Longitude, override.Distance, override.Bearing); err != nil {
			s.writeLog(functionName, fmt.Sprintf(`Rejected location: %v`, err), "WARN")
			return core.LocatedPoint{}, err
		}
		loc, err := core.NewGeoCoordinate(override.Latitude, override.Longitude)
		if err != nil {
			return core.LocatedPoint{}, err
		}
		point.Location = loc
		point.Distance = override.Distance
		point.Bearing = override.Bearing
	}

	if err := s.deps.Backend.RecordLocation(&point); err != nil {
		s.writeLog(functionName, fmt.Sprintf(`Error saving location: %v`, err), "ERROR")
		return core.LocatedPoint{}, err
	}

	s.last = nil
	s.ctx.AddPoint(point)
	s.writeLog(functionName, fmt.Sprintf(`Saved location %s (%s)`, point.Location, last.method), "INFO")
	return point, nil
}

////////////////////////
// METRICS
////////////////////////

func (s *Service) writeTrace(projectName string, kind tracker.Kind, r core.TraceResult, at time.Time) {
	if s.deps.Influx == nil {
		return
	}
	if err := s.deps.Influx.WriteTrace(context.Background(), projectName, string(kind), r, at); err != nil {
		s.writeLog(":METRICS:", fmt.Sprintf(`Error writing trace point: %v`, err), "DEBUG")
	}
}

func (s *Service) writeLocation(projectName string, method consensus.Method, final core.GeoCoordinate, references int, at time.Time) {
	if s.deps.Influx == nil {
		return
	}
	if err := s.deps.Influx.WriteLocation(context.Background(), projectName, string(method), final, references, at); err != nil {
		s.writeLog(":METRICS:", fmt.Sprintf(`Error writing location point: %v`, err), "DEBUG")
	}
}
