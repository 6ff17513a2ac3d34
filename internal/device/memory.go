package device

import "sync"

// MemoryController keeps pointer settings in process. It backs tests and
// hosts without a native implementation.
type MemoryController struct {
	mu     sync.Mutex
	speed  int
	accel  bool
	x, y   int
	moves  int
	writes int

	// FailSpeed and FailAccel make the next writes fail with the given error.
	FailSpeed error
	FailAccel error
}

func NewMemoryController(speed int, accel bool) *MemoryController {
	return &MemoryController{speed: speed, accel: accel}
}

func (m *MemoryController) Speed() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speed, nil
}

func (m *MemoryController) SetSpeed(speed int) error {
	if err := ValidateSpeed(speed); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSpeed != nil {
		return m.FailSpeed
	}
	m.speed = speed
	m.writes++
	return nil
}

func (m *MemoryController) Acceleration() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accel, nil
}

func (m *MemoryController) SetAcceleration(enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAccel != nil {
		return m.FailAccel
	}
	m.accel = enabled
	m.writes++
	return nil
}

func (m *MemoryController) SetCursorPosition(x, y int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.x, m.y = x, y
	m.moves++
	return nil
}

// Position returns the last cursor position set.
func (m *MemoryController) Position() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.x, m.y
}

// Moves counts SetCursorPosition calls.
func (m *MemoryController) Moves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.moves
}

// Writes counts successful setting writes.
func (m *MemoryController) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
