package detector

import (
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// MockResult is one scripted Detect outcome.
type MockResult struct {
	Hands []HandLandmarks
	Err   error
}

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results. Safe for concurrent use.
type MockDetector struct {
	mu      sync.Mutex
	hands   []HandLandmarks
	err     error
	openErr error
	queue   []MockResult
	delay   time.Duration
	calls   int
	opened  bool
	closed  bool

	detection, tracking float64
	reconfigs           int
	reconfigErr         error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetOpenError makes Open fail with err.
func (m *MockDetector) SetOpenError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErr = err
}

// SetDelay makes every Detect call take at least d.
func (m *MockDetector) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Enqueue appends results consumed one per Detect call before falling back
// to the fixed hands or error.
func (m *MockDetector) Enqueue(results ...MockResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, results...)
}

// SetReconfigureError makes SetConfidence fail with err.
func (m *MockDetector) SetReconfigureError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconfigErr = err
}

// SetConfidence records the thresholds unless a reconfigure error is set.
func (m *MockDetector) SetConfidence(detection, tracking float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reconfigErr != nil {
		return m.reconfigErr
	}
	m.detection, m.tracking = detection, tracking
	m.reconfigs++
	return nil
}

// Confidence returns the thresholds from the last successful SetConfidence.
func (m *MockDetector) Confidence() (detection, tracking float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detection, m.tracking
}

// Reconfigs returns how many times SetConfidence succeeded.
func (m *MockDetector) Reconfigs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconfigs
}

// Open records the call and returns the configured open error.
func (m *MockDetector) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openErr != nil {
		return m.openErr
	}
	m.opened = true
	return nil
}

// Detect returns the next queued result, or the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	m.calls++
	delay := m.delay
	var res MockResult
	if len(m.queue) > 0 {
		res = m.queue[0]
		m.queue = m.queue[1:]
	} else {
		res = MockResult{Hands: m.hands, Err: m.err}
	}
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if res.Err != nil {
		return nil, res.Err
	}
	return res.Hands, nil
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Calls returns how many times Detect was invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Opened reports whether Open succeeded.
func (m *MockDetector) Opened() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opened
}

// Closed reports whether Close was called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
