// Package monitor runs the cabin decision loop: read the environment, smooth
// it, count occupants, publish telemetry and alert when conditions are unsafe.
//
// A Loop is owned by a single goroutine. Collaborators are injected so the
// loop can be driven step by step in tests with a fake clock.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/cabin-monitor/internal/logic"
	"github.com/sweeney/cabin-monitor/internal/mqtt"
	"github.com/sweeney/cabin-monitor/internal/notify"
	"github.com/sweeney/cabin-monitor/internal/sensor"
	"github.com/sweeney/cabin-monitor/internal/status"
	"github.com/sweeney/cabin-monitor/internal/telemetry"
)

// Sensor reads the cabin environment.
type Sensor interface {
	Read(ctx context.Context) (sensor.Reading, error)
}

// Detector reports the objects currently visible in the cabin.
type Detector interface {
	Detect(ctx context.Context) ([]logic.Detection, error)
}

// EventPublisher publishes system events.
type EventPublisher interface {
	PublishSystem(event mqtt.SystemEvent) error
}

// Deps are the loop's collaborators. Sensor, Sink and Notifier are required.
type Deps struct {
	Sensor   Sensor
	Detector Detector // nil means the cabin is never observed as occupied
	Sink     telemetry.Sink
	Notifier notify.Notifier

	Events     EventPublisher        // optional
	Connection mqtt.ConnectionStatus // optional
	Tracker    *status.Tracker       // optional
	Logger     *zap.Logger           // optional
}

// Options configure the loop.
type Options struct {
	Initial      sensor.Reading // pre-fills the filters
	Start        time.Time
	WindowSize   int
	Thresholds   logic.Thresholds
	PersonLabels []string
	AnimalLabels []string
	IOTimeout    time.Duration // per collaborator call; 0 means none
	Heartbeat    time.Duration // 0 disables
	Message      string        // defaults to notify.AlertMessage
}

// Result describes one iteration.
type Result struct {
	Reading  sensor.Reading // fresh, or carried forward when Stale or SensorErr is set
	Stale    bool           // the sensor had no new measurement; not an error
	Smoothed logic.SmoothedEnvironment
	Count    logic.DetectionCount
	Alerted  bool
	Reasons  []string // exceeded thresholds when Alerted

	SensorErr  error
	DetectErr  error
	PublishErr error
	NotifyErr  error
}

// Loop is the monitor loop.
type Loop struct {
	deps       Deps
	opts       Options
	logger     *zap.Logger
	filter     *logic.EnvironmentFilter
	summarizer logic.Summarizer
	policy     *logic.AlertPolicy
	heartbeat  *logic.Heartbeat

	raw   sensor.Reading
	count logic.DetectionCount
	errs  status.ErrorCounts
	steps int64
}

// New creates a loop with filters pre-filled from opts.Initial.
func New(deps Deps, opts Options) (*Loop, error) {
	if deps.Sensor == nil {
		return nil, errors.New("monitor: sensor is required")
	}
	if deps.Sink == nil {
		return nil, errors.New("monitor: telemetry sink is required")
	}
	if deps.Notifier == nil {
		return nil, errors.New("monitor: notifier is required")
	}
	if opts.WindowSize < 1 {
		opts.WindowSize = logic.DefaultWindowSize
	}
	if opts.Thresholds == (logic.Thresholds{}) {
		opts.Thresholds = logic.DefaultThresholds()
	}
	if opts.PersonLabels == nil {
		opts.PersonLabels = logic.DefaultPersonLabels
	}
	if opts.AnimalLabels == nil {
		opts.AnimalLabels = logic.DefaultAnimalLabels
	}
	if opts.Message == "" {
		opts.Message = notify.AlertMessage
	}
	if opts.Start.IsZero() {
		opts.Start = time.Now()
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	first := opts.Initial
	if first.Time.IsZero() {
		first.Time = opts.Start
	}

	return &Loop{
		deps:       deps,
		opts:       opts,
		logger:     logger.Named("monitor"),
		filter:     logic.NewEnvironmentFilter(first.CO2, first.Temperature, first.Humidity, opts.WindowSize, opts.Start),
		summarizer: logic.NewSummarizer(opts.PersonLabels, opts.AnimalLabels),
		policy:     logic.NewAlertPolicy(opts.Thresholds),
		heartbeat:  logic.NewHeartbeat(opts.Heartbeat, opts.Start),
		raw:        first,
	}, nil
}

// Step runs one iteration at now. Collaborator failures are logged, counted
// and reported in the Result; they never stop the loop.
func (l *Loop) Step(ctx context.Context, now time.Time) Result {
	var res Result

	// Environment
	reading, err := l.read(ctx)
	switch {
	case errors.Is(err, sensor.ErrNotReady):
		// The SCD30 measures less often than the loop ticks.
		res.Stale = true
		res.Smoothed = l.filter.Last()
		l.logger.Debug("no new measurement, carrying previous reading forward")
	case err != nil:
		l.errs.Sensor++
		res.SensorErr = err
		res.Smoothed = l.filter.Last()
		l.logger.Warn("sensor read failed, carrying previous reading forward", zap.Error(err))
	default:
		if reading.Time.IsZero() {
			reading.Time = now
		}
		l.raw = reading
		res.Smoothed = l.filter.Update(reading.CO2, reading.Temperature, reading.Humidity, now)
	}
	res.Reading = l.raw

	// Occupants
	detections, err := l.detect(ctx)
	if err != nil {
		l.errs.Detector++
		res.DetectErr = err
		l.logger.Warn("detection failed, assuming empty cabin", zap.Error(err))
	}
	res.Count = l.summarizer.Summarize(detections)
	l.count = res.Count

	// Telemetry
	points := telemetry.Points(l.raw.CO2, l.raw.Temperature, l.raw.Humidity, res.Count, now)
	if err := l.publish(ctx, points); err != nil {
		l.errs.Publish++
		res.PublishErr = err
		l.logger.Warn("telemetry publish failed", zap.Error(err))
	}

	// Alert
	if l.policy.Evaluate(res.Smoothed, res.Count, now) {
		res.Alerted = true
		res.Reasons = l.policy.Reason(res.Smoothed)
		l.logger.Warn("unsafe cabin conditions",
			zap.Strings("reasons", res.Reasons),
			zap.Int("people", res.Count.People),
			zap.Int("animals", res.Count.Animals),
			zap.Float64("co2", res.Smoothed.CO2.Value),
			zap.Float64("temperature", res.Smoothed.Temperature.Value))

		// The cooldown stands even if delivery fails.
		if err := l.notify(ctx); err != nil {
			l.errs.Notify++
			res.NotifyErr = err
			l.logger.Error("alert notification failed", zap.Error(err))
		}
	}

	l.steps++
	l.updateTracker(now)

	if res.Alerted {
		l.publishEvent(now, "ALERT", strings.Join(res.Reasons, ","), false)
	}
	if l.heartbeat.Due(now) {
		l.logger.Info("heartbeat",
			zap.Int64("steps", l.steps),
			zap.Int("alerts", l.policy.Sent()),
			zap.Int("sensor_errors", l.errs.Sensor),
			zap.Int("detector_errors", l.errs.Detector))
		l.publishEvent(now, "HEARTBEAT", "", false)
	}

	return res
}

// Run calls Step on every tick until ctx is done.
func (l *Loop) Run(ctx context.Context, tick <-chan time.Time, now func() time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			l.Step(ctx, now())
		}
	}
}

// Startup publishes the retained STARTUP event.
func (l *Loop) Startup(now time.Time) {
	l.updateTracker(now)
	l.publishEvent(now, "STARTUP", "", true)
}

// Shutdown publishes the retained SHUTDOWN event with reason (e.g. the signal name).
func (l *Loop) Shutdown(now time.Time, reason string) {
	l.updateTracker(now)
	l.publishEvent(now, "SHUTDOWN", reason, true)
}

// State returns the loop's current view for status reporting.
func (l *Loop) State(now time.Time) status.LoopState {
	last, _ := l.policy.LastAlert()
	return status.LoopState{
		Raw: status.Reading{
			CO2:         l.raw.CO2,
			Temperature: l.raw.Temperature,
			Humidity:    l.raw.Humidity,
			Time:        l.raw.Time,
		},
		Smoothed:   l.filter.Last(),
		Count:      l.count,
		Policy:     l.policy.State(now),
		LastAlert:  last,
		AlertsSent: l.policy.Sent(),
		Errors:     l.errs,
		Steps:      l.steps,
	}
}

func (l *Loop) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.opts.IOTimeout > 0 {
		return context.WithTimeout(ctx, l.opts.IOTimeout)
	}
	return context.WithCancel(ctx)
}

func (l *Loop) read(ctx context.Context) (sensor.Reading, error) {
	cctx, cancel := l.callContext(ctx)
	defer cancel()
	r, err := l.deps.Sensor.Read(cctx)
	if err != nil {
		return sensor.Reading{}, fmt.Errorf("read sensor: %w", err)
	}
	return r, nil
}

func (l *Loop) detect(ctx context.Context) ([]logic.Detection, error) {
	if l.deps.Detector == nil {
		return nil, nil
	}
	cctx, cancel := l.callContext(ctx)
	defer cancel()
	d, err := l.deps.Detector.Detect(cctx)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	return d, nil
}

func (l *Loop) publish(ctx context.Context, points []telemetry.Point) error {
	cctx, cancel := l.callContext(ctx)
	defer cancel()
	if err := l.deps.Sink.Publish(cctx, points); err != nil {
		return fmt.Errorf("publish telemetry: %w", err)
	}
	return nil
}

func (l *Loop) notify(ctx context.Context) error {
	cctx, cancel := l.callContext(ctx)
	defer cancel()
	if err := l.deps.Notifier.Send(cctx, l.opts.Message); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

func (l *Loop) updateTracker(now time.Time) {
	if l.deps.Tracker == nil {
		return
	}
	l.deps.Tracker.Update(l.State(now))
	if l.deps.Connection != nil {
		l.deps.Tracker.SetMQTTConnected(l.deps.Connection.IsConnected())
	}
}

func (l *Loop) publishEvent(now time.Time, event, reason string, retained bool) {
	if l.deps.Events == nil {
		return
	}
	e := mqtt.SystemEvent{
		Timestamp: now,
		Event:     event,
		Reason:    reason,
		Retained:  retained,
	}
	if l.deps.Tracker != nil {
		e.RawPayload = status.FormatStatusEvent(l.deps.Tracker.Snapshot(), event, reason)
	}
	if err := l.deps.Events.PublishSystem(e); err != nil {
		l.logger.Warn("system event publish failed", zap.String("event", event), zap.Error(err))
		return
	}
	l.logger.Debug("published system event", zap.String("event", event))
}

// Bootstrap obtains the reading used to pre-fill the filters, retrying up
// to attempts times with wait between tries.
func Bootstrap(ctx context.Context, s Sensor, attempts int, wait time.Duration) (sensor.Reading, error) {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return sensor.Reading{}, fmt.Errorf("bootstrap: %w", ctx.Err())
			case <-time.After(wait):
			}
		}
		r, err := s.Read(ctx)
		if err == nil {
			return r, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return sensor.Reading{}, fmt.Errorf("bootstrap: %w", ctx.Err())
		}
	}
	return sensor.Reading{}, fmt.Errorf("bootstrap: no reading after %d attempts: %w", attempts, lastErr)
}
