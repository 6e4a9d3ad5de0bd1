package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector returns scripted candidates and ignores the mask.
type MockDetector struct {
	mu      sync.Mutex
	circles []Circle
	err     error
	calls   int
}

func NewMockDetector() *MockDetector { return &MockDetector{} }

// SetCircles scripts the candidates every later Detect returns.
func (m *MockDetector) SetCircles(circles []Circle) {
	m.mu.Lock()
	m.circles = append([]Circle(nil), circles...)
	m.mu.Unlock()
}

// SetError makes Detect fail with err until it is reset to nil.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Calls counts Detect invocations, including failed ones.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockDetector) Detect(gocv.Mat) ([]Circle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return append([]Circle(nil), m.circles...), nil
}

func (m *MockDetector) Close() error { return nil }
