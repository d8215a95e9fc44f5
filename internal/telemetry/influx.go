package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// InfluxOptions configures an InfluxDB 1.x write endpoint.
type InfluxOptions struct {
	URL      string // e.g. http://localhost:8086
	Database string
	Username string
	Password string
	Timeout  time.Duration
}

// InfluxSink writes points to InfluxDB through the /write HTTP API.
type InfluxSink struct {
	client   *resty.Client
	database string
}

// NewInfluxSink creates a sink for the given server and database.
func NewInfluxSink(opts InfluxOptions) *InfluxSink {
	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.URL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "text/plain; charset=utf-8")
	if opts.Username != "" {
		client.SetBasicAuth(opts.Username, opts.Password)
	}
	return &InfluxSink{client: client, database: opts.Database}
}

// Publish writes the batch in a single request.
func (s *InfluxSink) Publish(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"db":        s.database,
			"precision": "ns",
		}).
		SetBody(FormatLines(points)).
		Post("/write")
	if err != nil {
		return fmt.Errorf("influx write: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("influx write: status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}
