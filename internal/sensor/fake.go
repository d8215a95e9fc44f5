package sensor

import (
	"context"
	"errors"
)

// FakeReader is a test double that returns scripted readings.
type FakeReader struct {
	// Steps contains scripted results. Each call to Read consumes the next step.
	// When steps are exhausted the last one is returned repeatedly.
	Steps []Step

	index int

	// Reads counts calls to Read.
	Reads int

	// Closed tracks if Close was called.
	Closed bool

	// ReadError, if set, is returned by Read regardless of Steps.
	ReadError error
}

// Step is a single scripted Read result.
type Step struct {
	Reading Reading
	Err     error
}

// NewFakeReader creates a FakeReader that returns the given readings in order.
func NewFakeReader(readings ...Reading) *FakeReader {
	steps := make([]Step, len(readings))
	for i, r := range readings {
		steps[i] = Step{Reading: r}
	}
	return &FakeReader{Steps: steps}
}

// Read returns the next scripted step.
func (f *FakeReader) Read(ctx context.Context) (Reading, error) {
	f.Reads++
	if f.ReadError != nil {
		return Reading{}, f.ReadError
	}
	if len(f.Steps) == 0 {
		return Reading{}, errors.New("no readings configured")
	}

	step := f.Steps[f.index]
	if f.index < len(f.Steps)-1 {
		f.index++
	}
	return step.Reading, step.Err
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the script.
func (f *FakeReader) Reset() {
	f.index = 0
	f.Reads = 0
	f.Closed = false
}
