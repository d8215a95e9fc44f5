package vision

import (
	"context"

	"github.com/sweeney/cabin-monitor/internal/logic"
)

// FakeDetector is a test double that returns scripted detections.
type FakeDetector struct {
	// Frames contains scripted detections. Each Detect call consumes the next one;
	// when exhausted the last frame is repeated.
	Frames [][]logic.Detection

	index int

	// DetectError, if set, is returned by Detect.
	DetectError error

	// Calls counts calls to Detect.
	Calls int
}

// NewFakeDetector creates a FakeDetector with the given frames.
func NewFakeDetector(frames ...[]logic.Detection) *FakeDetector {
	return &FakeDetector{Frames: frames}
}

// Detect returns the next scripted frame.
func (f *FakeDetector) Detect(ctx context.Context) ([]logic.Detection, error) {
	f.Calls++
	if f.DetectError != nil {
		return nil, f.DetectError
	}
	if len(f.Frames) == 0 {
		return nil, nil
	}
	frame := f.Frames[f.index]
	if f.index < len(f.Frames)-1 {
		f.index++
	}
	return frame, nil
}

// Labels builds a frame from class names with full confidence.
func Labels(labels ...string) []logic.Detection {
	out := make([]logic.Detection, len(labels))
	for i, l := range labels {
		out[i] = logic.Detection{Label: l, Confidence: 1}
	}
	return out
}
