package logic

import (
	"math"
	"testing"
	"time"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestNewSlidingWindowPrefilled(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	w := NewSlidingWindow(415, 10, now)

	if w.Len() != 10 {
		t.Fatalf("expected len 10, got %d", w.Len())
	}
	for i, v := range w.Values() {
		if v != 415 {
			t.Errorf("slot %d: expected 415, got %v", i, v)
		}
	}
	last := w.Last()
	if last.Value != 415 {
		t.Errorf("expected initial smoothed value 415, got %v", last.Value)
	}
	if last.Rate != 0 {
		t.Errorf("expected initial smoothed rate 0, got %v", last.Rate)
	}
}

func TestSlidingWindowSizeClamp(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for _, size := range []int{0, -3} {
		w := NewSlidingWindow(1, size, now)
		if w.Len() != 1 {
			t.Errorf("size %d: expected len 1, got %d", size, w.Len())
		}
	}
}

func TestSlidingWindowLengthInvariant(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	w := NewSlidingWindow(0, 10, now)

	for i := 0; i < 137; i++ {
		w.Update(float64(i%7), now.Add(time.Duration(i+1)*time.Second))
		if w.Len() != 10 {
			t.Fatalf("update %d: expected len 10, got %d", i, w.Len())
		}
		if n := len(w.Values()); n != 10 {
			t.Fatalf("update %d: expected 10 values, got %d", i, n)
		}
	}
}

func TestSlidingWindowEvictsOldestFirst(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	w := NewSlidingWindow(0, 3, now)

	for i := 1; i <= 5; i++ {
		w.Update(float64(i), now.Add(time.Duration(i)*time.Second))
	}

	got := w.Values()
	want := []float64{3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("slot %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestSlidingWindowSteadyState(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	w := NewSlidingWindow(23.5, 10, now)

	var s Smoothed
	for i := 1; i <= 50; i++ {
		s = w.Update(23.5, now.Add(time.Duration(i)*2*time.Second))
	}
	if !almostEqual(s.Value, 23.5) {
		t.Errorf("expected smoothed value 23.5, got %v", s.Value)
	}
	if !almostEqual(s.Rate, 0) {
		t.Errorf("expected smoothed rate 0, got %v", s.Rate)
	}
}

func TestSlidingWindowMovingAverage(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	w := NewSlidingWindow(0, 4, now)

	s := w.Update(4, now.Add(time.Second))
	if !almostEqual(s.Value, 1) {
		t.Errorf("after first update: expected 1, got %v", s.Value)
	}
	s = w.Update(8, now.Add(2*time.Second))
	if !almostEqual(s.Value, 3) {
		t.Errorf("after second update: expected 3, got %v", s.Value)
	}
}

func TestSlidingWindowRateAgainstEvicted(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	w := NewSlidingWindow(10, 2, now)

	steps := []struct {
		value     float64
		wantValue float64
		wantRate  float64
	}{
		// evicts 10 (rate 0): rate (20-10)/1s = 10
		{20, 15, 5},
		// evicts 10 (rate 0): rate 10
		{20, 20, 10},
		// evicts 20 (rate 10): rate 0
		{20, 20, 5},
		// evicts 20 (rate 10): rate 0
		{20, 20, 0},
	}

	for i, step := range steps {
		s := w.Update(step.value, now.Add(time.Duration(i+1)*time.Second))
		if !almostEqual(s.Value, step.wantValue) {
			t.Errorf("step %d: expected value %v, got %v", i, step.wantValue, s.Value)
		}
		if !almostEqual(s.Rate, step.wantRate) {
			t.Errorf("step %d: expected rate %v, got %v", i, step.wantRate, s.Rate)
		}
	}
}

func TestSlidingWindowRateUsesElapsedSeconds(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	w := NewSlidingWindow(400, 1, now)

	// 100 ppm over 4s = 25 ppm/s
	s := w.Update(500, now.Add(4*time.Second))
	if !almostEqual(s.Rate, 25) {
		t.Errorf("expected rate 25, got %v", s.Rate)
	}
}

func TestSlidingWindowZeroElapsed(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	w := NewSlidingWindow(0, 1, now)

	s := w.Update(1, now)
	if math.IsInf(s.Rate, 0) || math.IsNaN(s.Rate) {
		t.Fatalf("expected finite rate for zero elapsed time, got %v", s.Rate)
	}
	want := 1 / MinElapsed.Seconds()
	if !almostEqual(s.Rate, want) {
		t.Errorf("expected rate clamped to %v, got %v", want, s.Rate)
	}
}

func TestSlidingWindowBackwardsClock(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	w := NewSlidingWindow(0, 1, now)

	s := w.Update(2, now.Add(-time.Minute))
	if math.IsInf(s.Rate, 0) || math.IsNaN(s.Rate) {
		t.Fatalf("expected finite rate, got %v", s.Rate)
	}
	if s.Rate <= 0 {
		t.Errorf("expected positive rate for an increase, got %v", s.Rate)
	}
}

func TestSlidingWindowIncreasingRateNonNegative(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	const size = 5
	w := NewSlidingWindow(100, size, now)

	for i := 1; i <= 30; i++ {
		s := w.Update(100+float64(i), now.Add(time.Duration(i)*time.Second))
		if i >= size && s.Rate < 0 {
			t.Errorf("update %d: expected non-negative rate, got %v", i, s.Rate)
		}
	}
}

func TestSlidingWindowDecreasingRateNonPositive(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	const size = 5
	w := NewSlidingWindow(100, size, now)

	for i := 1; i <= 30; i++ {
		s := w.Update(100-float64(i), now.Add(time.Duration(i)*time.Second))
		if i >= size && s.Rate > 0 {
			t.Errorf("update %d: expected non-positive rate, got %v", i, s.Rate)
		}
	}
}

func TestSlidingWindowLastTracksUpdate(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	w := NewSlidingWindow(1, 3, now)

	s := w.Update(4, now.Add(time.Second))
	if w.Last() != s {
		t.Errorf("Last() = %+v, want %+v", w.Last(), s)
	}
}

func TestEnvironmentFilterRoutesQuantities(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f := NewEnvironmentFilter(400, 20, 50, 1, now)

	env := f.Update(800, 30, 60, now.Add(time.Second))
	if env.CO2.Value != 800 {
		t.Errorf("CO2: expected 800, got %v", env.CO2.Value)
	}
	if env.Temperature.Value != 30 {
		t.Errorf("Temperature: expected 30, got %v", env.Temperature.Value)
	}
	if env.Humidity.Value != 60 {
		t.Errorf("Humidity: expected 60, got %v", env.Humidity.Value)
	}
	if f.Last() != env {
		t.Errorf("Last() = %+v, want %+v", f.Last(), env)
	}
}
