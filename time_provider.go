package reactlm

import (
	"sync"
	"time"
)

// TimeProvider supplies the clock used for trace timestamps, memory records and the
// query template. It is exposed to the template as .Time:
//
//	Today is {{.Time.Today}}
type TimeProvider interface {
	// Now returns the current time.
	Now() time.Time

	// Today returns the current date as YYYY-MM-DD.
	Today() string

	// Format returns the current time formatted with a Go time layout.
	Format(layout string) string
}

// DefaultTimeProvider reads the system clock.
type DefaultTimeProvider struct{}

// NewDefaultTimeProvider creates a DefaultTimeProvider.
func NewDefaultTimeProvider() *DefaultTimeProvider {
	return &DefaultTimeProvider{}
}

// Now returns the current system time.
func (p *DefaultTimeProvider) Now() time.Time {
	return time.Now()
}

// Today returns today's date as YYYY-MM-DD.
func (p *DefaultTimeProvider) Today() string {
	return p.Now().Format(time.DateOnly)
}

// Format returns the current time formatted with the given layout.
func (p *DefaultTimeProvider) Format(layout string) string {
	return p.Now().Format(layout)
}

// MockTimeProvider returns a fixed time that tests can move forward.
// It is safe for concurrent use.
type MockTimeProvider struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewMockTimeProvider creates a MockTimeProvider fixed at t.
func NewMockTimeProvider(t time.Time) *MockTimeProvider {
	return &MockTimeProvider{now: t}
}

// WithStep makes every Now call advance the clock by d after reading it.
func (m *MockTimeProvider) WithStep(d time.Duration) *MockTimeProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.step = d
	return m
}

// SetTime replaces the current time.
func (m *MockTimeProvider) SetTime(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// Advance moves the clock forward by d.
func (m *MockTimeProvider) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Now returns the current mock time.
func (m *MockTimeProvider) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.now
	m.now = m.now.Add(m.step)
	return t
}

// Today returns the mock date as YYYY-MM-DD.
func (m *MockTimeProvider) Today() string {
	return m.peek().Format(time.DateOnly)
}

// Format returns the mock time formatted with the given layout.
func (m *MockTimeProvider) Format(layout string) string {
	return m.peek().Format(layout)
}

func (m *MockTimeProvider) peek() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Compile-time checks.
var (
	_ TimeProvider = (*DefaultTimeProvider)(nil)
	_ TimeProvider = (*MockTimeProvider)(nil)
)
