package telemetry

import "context"

// FakeSink records published batches for test assertions.
type FakeSink struct {
	// Batches contains every published batch in order.
	Batches [][]Point

	// PublishError, if set, will be returned by Publish.
	PublishError error
}

// NewFakeSink creates a FakeSink for testing.
func NewFakeSink() *FakeSink {
	return &FakeSink{}
}

// Publish records the batch.
func (f *FakeSink) Publish(ctx context.Context, points []Point) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Batches = append(f.Batches, append([]Point(nil), points...))
	return nil
}

// Points returns all recorded points flattened.
func (f *FakeSink) Points() []Point {
	var out []Point
	for _, b := range f.Batches {
		out = append(out, b...)
	}
	return out
}

// Reset clears recorded batches.
func (f *FakeSink) Reset() {
	f.Batches = nil
	f.PublishError = nil
}
