// Package vision receives object-detection frames produced by the camera
// inference process and hands the latest frame's detections to the monitor.
package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sweeney/cabin-monitor/internal/logic"
)

var (
	// ErrNoFrame is returned before any frame has been received.
	ErrNoFrame = errors.New("vision: no frame received")

	// ErrStaleFrame is returned when the latest frame is older than the allowed age.
	ErrStaleFrame = errors.New("vision: latest frame is stale")
)

// Detector returns the detections of the most recent frame.
type Detector interface {
	Detect(ctx context.Context) ([]logic.Detection, error)
}

// BoundingBox is the JSON shape of a detection rectangle.
type BoundingBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Detection is the JSON shape of one detected object.
type Detection struct {
	ClassName  string      `json:"class_name"`
	Confidence float64     `json:"confidence"`
	BBox       BoundingBox `json:"bbox"`
}

// Frame is the JSON payload published once per processed camera frame.
type Frame struct {
	FrameNumber int         `json:"frame_number"`
	Timestamp   float64     `json:"timestamp"` // unix seconds, 0 if unknown
	Detections  []Detection `json:"detections"`
}

// DecodeFrame parses a frame payload.
func DecodeFrame(payload []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(payload, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}

// Time returns the frame capture time, or the zero time if the producer did not set one.
func (f Frame) Time() time.Time {
	if f.Timestamp <= 0 {
		return time.Time{}
	}
	sec, frac := math.Modf(f.Timestamp)
	return time.Unix(int64(sec), int64(frac*1e9))
}

// Filter converts detections at or above minConfidence.
func (f Frame) Filter(minConfidence float64) []logic.Detection {
	out := make([]logic.Detection, 0, len(f.Detections))
	for _, d := range f.Detections {
		if d.Confidence < minConfidence {
			continue
		}
		out = append(out, logic.Detection{
			Label:      d.ClassName,
			Confidence: d.Confidence,
			Box:        logic.BoundingBox{X: d.BBox.X, Y: d.BBox.Y, W: d.BBox.W, H: d.BBox.H},
		})
	}
	return out
}

// FeedOptions configures how frames are accepted.
type FeedOptions struct {
	// MinConfidence drops detections below this score.
	MinConfidence float64
	// MaxAge is how old the latest frame may be before Detect reports ErrStaleFrame.
	// Zero disables the check.
	MaxAge time.Duration
}

// Latest holds the most recently received frame. Safe for concurrent use:
// frames arrive on transport goroutines while the monitor loop reads.
type Latest struct {
	opts FeedOptions
	now  func() time.Time

	mu       sync.Mutex
	frame    Frame
	received time.Time
	has      bool
	frames   int
}

// NewLatest creates an empty frame cache.
func NewLatest(opts FeedOptions) *Latest {
	return &Latest{opts: opts, now: time.Now}
}

// Store replaces the cached frame with f. The last frame received wins, so a
// restarted producer that numbers frames from scratch is picked up at once.
func (l *Latest) Store(f Frame) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frame = f
	l.received = l.now()
	l.has = true
	l.frames++
}

// Frames returns how many frames have been stored.
func (l *Latest) Frames() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frames
}

// Detect returns the detections of the cached frame.
func (l *Latest) Detect(ctx context.Context) ([]logic.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.has {
		return nil, ErrNoFrame
	}
	if l.opts.MaxAge > 0 {
		if age := l.now().Sub(l.received); age > l.opts.MaxAge {
			return nil, fmt.Errorf("%w: age %v", ErrStaleFrame, age.Truncate(time.Millisecond))
		}
	}
	return l.frame.Filter(l.opts.MinConfidence), nil
}
