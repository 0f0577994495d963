package redkv

import (
	"sync"
	"time"
)

// Clock is an abstract time source returning milliseconds since the Unix
// epoch. Production code always uses the real clock; tests substitute a
// MockClock so TTL behavior can be exercised deterministically.
type Clock interface {
	NowMillis() int64
}

// realClock reads the actual system time.
type realClock struct{}

func (realClock) NowMillis() int64 {
	return time.Now().UnixMilli()
}

// RealClock is the production Clock implementation.
var RealClock Clock = realClock{}

// MockClock is a test-only Clock that can be frozen, advanced, or set to a
// specific epoch. The zero value is not usable; construct one through
// NewMockClockSession.
type MockClock struct {
	mu  sync.Mutex
	now int64
}

func (m *MockClock) NowMillis() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Freeze pins the mock clock to the current real time.
func (m *MockClock) Freeze() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = time.Now().UnixMilli()
}

// Advance moves the mock clock forward by d.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now += d.Milliseconds()
}

// SetMillis pins the mock clock to a specific epoch-millisecond instant.
func (m *MockClock) SetMillis(epochMillis int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = epochMillis
}

// sessionLock ensures only one test at a time holds a MockClockSession.
var sessionLock sync.Mutex

// MockClockSession scopes ownership of a MockClock to a single test. Close
// releases the session lock so the next test can mock the clock again.
type MockClockSession struct {
	Clock *MockClock
}

// NewMockClockSession blocks until any other active session is closed, then
// hands back a frozen MockClock for the caller's exclusive use.
func NewMockClockSession() *MockClockSession {
	sessionLock.Lock()
	clock := &MockClock{}
	clock.Freeze()
	return &MockClockSession{Clock: clock}
}

// Close releases the session lock. Callers typically defer this or register
// it with t.Cleanup.
func (s *MockClockSession) Close() {
	sessionLock.Unlock()
}
