package vision

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sweeney/cabin-monitor/internal/logic"
)

// DefaultDetectionsPath is the endpoint of the inference process that returns
// the latest frame.
const DefaultDetectionsPath = "/api/detections"

// HTTPFeed polls the inference process for its latest frame on every Detect.
type HTTPFeed struct {
	client *resty.Client
	path   string
	opts   FeedOptions
	now    func() time.Time
}

// NewHTTPFeed creates a feed polling baseURL+path.
func NewHTTPFeed(baseURL, path string, timeout time.Duration, opts FeedOptions) *HTTPFeed {
	if path == "" {
		path = DefaultDetectionsPath
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &HTTPFeed{
		client: client,
		path:   path,
		opts:   opts,
		now:    time.Now,
	}
}

// Detect fetches the latest frame. Frames carrying a capture timestamp older
// than MaxAge are reported as ErrStaleFrame.
func (h *HTTPFeed) Detect(ctx context.Context) ([]logic.Detection, error) {
	var frame Frame
	resp, err := h.client.R().
		SetContext(ctx).
		SetResult(&frame).
		Get(h.path)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", h.path, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("get %s: status %d", h.path, resp.StatusCode())
	}

	if h.opts.MaxAge > 0 {
		if at := frame.Time(); !at.IsZero() {
			if age := h.now().Sub(at); age > h.opts.MaxAge {
				return nil, fmt.Errorf("%w: frame %d age %v", ErrStaleFrame, frame.FrameNumber, age.Truncate(time.Millisecond))
			}
		}
	}
	return frame.Filter(h.opts.MinConfidence), nil
}
