// pkg/core/measurement.go
package core

import "fmt"

// Measurement is a computed value that may be undefined. It replaces the
// bare sentinel numbers (0 for distance, 1 for bearing and unit conversion)
// so a caller cannot mistake a failure for a real measurement.
type Measurement struct {
	Value   float64
	Defined bool
	Reason  string
}

// DefinedValue wraps a real value.
func DefinedValue(v float64) Measurement {
	return Measurement{Value: v, Defined: true}
}

// Undefined marks a measurement that could not be computed.
func Undefined(reason string) Measurement {
	return Measurement{Reason: reason}
}

// Or returns the value if defined, otherwise the given sentinel.
func (m Measurement) Or(sentinel float64) float64 {
	if m.Defined {
		return m.Value
	}
	return sentinel
}

func (m Measurement) String() string {
	if !m.Defined {
		return fmt.Sprintf("undefined (%s)", m.Reason)
	}
	return fmt.Sprintf("%.6f", m.Value)
}
