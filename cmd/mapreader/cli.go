package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/mapreader/tracer/internal/calibrate"
	"github.com/mapreader/tracer/internal/dispatcher"
	"github.com/mapreader/tracer/internal/geo"
	"github.com/mapreader/tracer/pkg/core"
)

const usage = `usage: mapreader <command> [args]

  project <lat> <lon> <distance> <bearing> <unit>   destination of a traced leg
  inverse <lat1> <lon1> <lat2> <lon2> <unit>         distance and bearing between two points
  calibrate <pixels> <distance> <unit>               pixels per unit of a traced distance
  replay <script.json>                               feed a recorded command script
  points <project>                                   list saved locations
  serve                                              read COMMAND|arg|... lines from stdin
`

// Step is one command of a replay script.
type Step struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

// Reply is what replay and serve print for every command.
type Reply struct {
	Command string `json:"command"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// run executes one CLI command and returns the process exit code.
func run(args []string, in io.Reader, out io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return 2
	}

	var err error
	switch strings.ToLower(args[0]) {
	case "project":
		err = runProject(args[1:], out)
	case "inverse":
		err = runInverse(args[1:], out)
	case "calibrate":
		err = runCalibrate(args[1:], out)
	case "replay":
		if len(args) < 2 {
			err = fmt.Errorf("replay needs a script path")
			break
		}
		err = withServices(func() error { return runReplay(args[1], out) })
	case "points":
		if len(args) < 2 {
			err = fmt.Errorf("points needs a project name")
			break
		}
		err = withServices(func() error { return runPoints(args[1], out) })
	case "serve":
		err = withServices(func() error { return serve(in, out) })
	default:
		fmt.Fprint(out, usage)
		return 2
	}

	if err != nil {
		fmt.Fprintln(out, "error:", err)
		return 1
	}
	return 0
}

func withServices(fn func() error) error {
	if err := startServices(); err != nil {
		shutdown()
		return err
	}
	defer shutdown()
	return fn()
}

func parseFloats(args []string, names ...string) ([]float64, error) {
	if len(args) < len(names) {
		return nil, fmt.Errorf("expected %s", strings.Join(names, " "))
	}
	out := make([]float64, len(names))
	for i, name := range names {
		v, err := strconv.ParseFloat(args[i], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q", name, args[i])
		}
		out[i] = v
	}
	return out, nil
}

func runProject(args []string, out io.Writer) error {
	v, err := parseFloats(args, "lat", "lon", "distance", "bearing")
	if err != nil {
		return err
	}
	if len(args) < 5 {
		return fmt.Errorf("expected unit")
	}
	ref, err := core.NewGeoCoordinate(v[0], v[1])
	if err != nil {
		return err
	}
	dest, err := geo.Project(ref, v[2], v[3], core.Unit(args[4]))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%.6f,%.6f\n", dest.Latitude, dest.Longitude)
	return nil
}

func runInverse(args []string, out io.Writer) error {
	v, err := parseFloats(args, "lat1", "lon1", "lat2", "lon2")
	if err != nil {
		return err
	}
	if len(args) < 5 {
		return fmt.Errorf("expected unit")
	}
	from, err := core.NewGeoCoordinate(v[0], v[1])
	if err != nil {
		return err
	}
	to, err := core.NewGeoCoordinate(v[2], v[3])
	if err != nil {
		return err
	}
	distance, bearing, err := geo.Inverse(from, to, core.Unit(args[4]))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%.6f %s %.6f\n", distance, args[4], bearing)
	return nil
}

func runCalibrate(args []string, out io.Writer) error {
	v, err := parseFloats(args, "pixels", "distance")
	if err != nil {
		return err
	}
	if len(args) < 3 {
		return fmt.Errorf("expected unit")
	}
	scale, err := calibrate.Calibrate(v[0], v[1], core.Unit(args[2]))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%.6f px/%s\n", scale.PixelsPerUnit, scale.Unit)
	return nil
}

// loadScript decodes a JSON array of steps.
func loadScript(r io.Reader) ([]Step, error) {
	var steps []Step
	if err := sonic.ConfigDefault.NewDecoder(r).Decode(&steps); err != nil {
		return nil, fmt.Errorf("invalid script: %w", err)
	}
	return steps, nil
}

func runReplay(path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	steps, err := loadScript(f)
	if err != nil {
		return err
	}
	Logger.Info("Replaying script", "path", path, "steps", len(steps))

	for _, step := range steps {
		result, err := eventDispatcher.Dispatch(dispatcher.Event{
			Command:   step.Command,
			Args:      step.Args,
			Timestamp: time.Now(),
		})
		if werr := writeReply(out, step.Command, result, err); werr != nil {
			return werr
		}
	}
	return nil
}

func runPoints(name string, out io.Writer) error {
	p, err := handlerService.LoadProject(name)
	if err != nil {
		return err
	}
	for _, pt := range p.Points {
		fmt.Fprintf(out, "%d\t%s\t%.6f,%.6f\t%s\n",
			pt.ID, pt.Created.Format(time.RFC3339), pt.Location.Latitude, pt.Location.Longitude, pt.Description)
	}
	return nil
}

// serve runs the line protocol until in is exhausted.
func serve(in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		e, err := dispatcher.ParseEvent(line)
		if err != nil {
			if werr := writeReply(out, line, nil, err); werr != nil {
				return werr
			}
			continue
		}
		result, err := eventDispatcher.Dispatch(e)
		if werr := writeReply(out, e.Command, result, err); werr != nil {
			return werr
		}
	}
	return scanner.Err()
}

func writeReply(out io.Writer, command string, result any, err error) error {
	r := Reply{Command: command, Result: result}
	if err != nil {
		r.Error = err.Error()
		r.Result = nil
	}
	b, merr := sonic.Marshal(r)
	if merr != nil {
		return fmt.Errorf("encode reply to %s: %w", command, merr)
	}
	_, werr := fmt.Fprintln(out, string(b))
	return werr
}
