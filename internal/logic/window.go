package logic

import "time"

// MinElapsed is the smallest interval used to compute a per-step rate.
// Updates closer together than this, including zero or backwards clock
// steps, are treated as MinElapsed apart.
const MinElapsed = time.Millisecond

// sample is one slot of the window.
type sample struct {
	value float64
	at    time.Time
	rate  float64 // rate recorded when this sample was inserted
}

// SlidingWindow smooths an irregularly sampled quantity over its last N samples.
// Not safe for concurrent use; the monitor loop is its only writer.
type SlidingWindow struct {
	samples []sample
	head    int // oldest sample, next slot to overwrite
	sum     float64
	rateSum float64
	last    Smoothed
}

// NewSlidingWindow creates a window of the given size pre-filled with initial,
// every slot stamped now, so early updates are not compared against zeros.
// A size below 1 is treated as 1.
func NewSlidingWindow(initial float64, size int, now time.Time) *SlidingWindow {
	if size < 1 {
		size = 1
	}
	w := &SlidingWindow{samples: make([]sample, size)}
	for i := range w.samples {
		w.samples[i] = sample{value: initial, at: now}
	}
	w.sum = initial * float64(size)
	w.last = Smoothed{Value: initial}
	return w
}

// Update evicts the oldest sample, inserts value observed at now and returns
// the new moving averages of value and rate.
//
// The inserted sample's rate is (value - evicted value) / Δt, where Δt is the
// time since the newest sample, clamped to MinElapsed.
func (w *SlidingWindow) Update(value float64, now time.Time) Smoothed {
	n := len(w.samples)
	newest := w.samples[(w.head+n-1)%n]

	elapsed := now.Sub(newest.at)
	if elapsed < MinElapsed {
		elapsed = MinElapsed
	}

	oldest := w.samples[w.head]
	w.sum -= oldest.value
	w.rateSum -= oldest.rate

	rate := (value - oldest.value) / elapsed.Seconds()

	w.samples[w.head] = sample{value: value, at: now, rate: rate}
	w.head = (w.head + 1) % n
	w.sum += value
	w.rateSum += rate

	w.last = Smoothed{
		Value: w.sum / float64(n),
		Rate:  w.rateSum / float64(n),
	}
	return w.last
}

// Last returns the result of the most recent Update (or the initial value).
func (w *SlidingWindow) Last() Smoothed {
	return w.last
}

// Len returns the number of samples held. It always equals the window size.
func (w *SlidingWindow) Len() int {
	return len(w.samples)
}

// Values returns the window contents oldest first.
func (w *SlidingWindow) Values() []float64 {
	n := len(w.samples)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = w.samples[(w.head+i)%n].value
	}
	return out
}

// EnvironmentFilter bundles the three windows of the monitored quantities.
type EnvironmentFilter struct {
	CO2         *SlidingWindow
	Temperature *SlidingWindow
	Humidity    *SlidingWindow
}

// NewEnvironmentFilter creates one window per quantity, each pre-filled with
// the matching initial reading.
func NewEnvironmentFilter(co2, temperature, humidity float64, size int, now time.Time) *EnvironmentFilter {
	return &EnvironmentFilter{
		CO2:         NewSlidingWindow(co2, size, now),
		Temperature: NewSlidingWindow(temperature, size, now),
		Humidity:    NewSlidingWindow(humidity, size, now),
	}
}

// Update feeds one reading into all three windows.
func (f *EnvironmentFilter) Update(co2, temperature, humidity float64, now time.Time) SmoothedEnvironment {
	return SmoothedEnvironment{
		CO2:         f.CO2.Update(co2, now),
		Temperature: f.Temperature.Update(temperature, now),
		Humidity:    f.Humidity.Update(humidity, now),
	}
}

// Last returns the most recent smoothed state without updating.
func (f *EnvironmentFilter) Last() SmoothedEnvironment {
	return SmoothedEnvironment{
		CO2:         f.CO2.Last(),
		Temperature: f.Temperature.Last(),
		Humidity:    f.Humidity.Last(),
	}
}
