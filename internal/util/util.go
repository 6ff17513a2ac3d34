// Package util provides helpers for decoding command arguments.
package util

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrMissingArg = errors.New("missing argument")
	ErrBadArg     = errors.New("malformed argument")
)

// TrimQuotes removes one pair of surrounding double quotes from a string.
// Inner and escaped quotes are left alone.
func TrimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// Clean trims whitespace and surrounding quotes and unescapes inner quotes.
func Clean(s string) string {
	return FixEscapeQuotes(TrimQuotes(strings.TrimSpace(s)))
}

// ArgString returns args[i] cleaned, or "" when it is absent.
func ArgString(args []string, i int) string {
	if i < 0 || i >= len(args) {
		return ""
	}
	return Clean(args[i])
}

// ArgFloat parses args[i] as a finite float.
func ArgFloat(args []string, i int, name string) (float64, error) {
	s := ArgString(args, i)
	if s == "" {
		return 0, fmt.Errorf("%w: %s", ErrMissingArg, name)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s=%q", ErrBadArg, name, s)
	}
	return v, nil
}

// ArgInt parses args[i] as an integer. Whole floats such as "12.0" are
// accepted since hosts often send numbers that way.
func ArgInt(args []string, i int, name string) (int, error) {
	s := ArgString(args, i)
	if s == "" {
		return 0, fmt.Errorf("%w: %s", ErrMissingArg, name)
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %s=%q", ErrBadArg, name, s)
	}
	return int(f), nil
}

// ArgInts parses len(names) consecutive integer arguments starting at from.
func ArgInts(args []string, from int, names ...string) ([]int, error) {
	out := make([]int, len(names))
	for i, name := range names {
		v, err := ArgInt(args, from+i, name)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
