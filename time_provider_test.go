package reactlm

import (
	"sync"
	"testing"
	"time"
)

func TestDefaultTimeProvider_Now(t *testing.T) {
	tp := NewDefaultTimeProvider()

	before := time.Now()
	result := tp.Now()
	after := time.Now()

	if result.Before(before) || result.After(after) {
		t.Errorf("Now() returned time outside expected range")
	}
}

func TestDefaultTimeProvider_Today(t *testing.T) {
	tp := NewDefaultTimeProvider()

	before := time.Now().Format(time.DateOnly)
	result := tp.Today()
	after := time.Now().Format(time.DateOnly)

	// Allow for midnight rollover
	if result != before && result != after {
		t.Errorf("Today() = %q, want %q or %q", result, before, after)
	}
}

func TestMockTimeProvider(t *testing.T) {
	start := time.Date(2025, 2, 15, 23, 30, 0, 0, time.UTC)
	tp := NewMockTimeProvider(start)

	if got := tp.Now(); !got.Equal(start) {
		t.Errorf("Now() = %v, want %v", got, start)
	}
	if got := tp.Today(); got != "2025-02-15" {
		t.Errorf("Today() = %q, want %q", got, "2025-02-15")
	}

	tp.Advance(time.Hour)
	if got := tp.Today(); got != "2025-02-16" {
		t.Errorf("Today() after Advance = %q, want %q", got, "2025-02-16")
	}
	if got := tp.Format("15:04"); got != "00:30" {
		t.Errorf("Format() = %q, want %q", got, "00:30")
	}

	later := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	tp.SetTime(later)
	if got := tp.Now(); !got.Equal(later) {
		t.Errorf("Now() after SetTime = %v, want %v", got, later)
	}
}

func TestMockTimeProvider_WithStep(t *testing.T) {
	start := time.Date(2025, 2, 15, 12, 0, 0, 0, time.UTC)
	tp := NewMockTimeProvider(start).WithStep(time.Second)

	tests := []struct {
		name     string
		expected time.Time
	}{
		{name: "first read", expected: start},
		{name: "second read", expected: start.Add(time.Second)},
		{name: "third read", expected: start.Add(2 * time.Second)},
	}

	for _, tt := range tests {
		if got := tp.Now(); !got.Equal(tt.expected) {
			t.Errorf("%s: Now() = %v, want %v", tt.name, got, tt.expected)
		}
	}

	// Today and Format do not advance the clock.
	_ = tp.Today()
	_ = tp.Format(time.RFC3339)
	if got := tp.Now(); !got.Equal(start.Add(3 * time.Second)) {
		t.Errorf("Now() = %v, want %v", got, start.Add(3*time.Second))
	}
}

func TestMockTimeProvider_Concurrent(t *testing.T) {
	start := time.Date(2025, 2, 15, 12, 0, 0, 0, time.UTC)
	tp := NewMockTimeProvider(start).WithStep(time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tp.Now()
		}()
	}
	wg.Wait()

	if got := tp.Now(); !got.Equal(start.Add(50 * time.Millisecond)) {
		t.Errorf("Now() = %v, want %v", got, start.Add(50*time.Millisecond))
	}
}
