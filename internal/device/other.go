//go:build !windows

package device

// Native returns an in-memory controller on platforms without pointer
// settings support, starting from the default speed with acceleration on.
func Native() (Controller, Cursor, error) {
	m := NewMemoryController(DefaultSpeed, true)
	return m, m, nil
}
