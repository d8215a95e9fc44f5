// Package status provides a thread-safe status tracker for the cabin-monitor daemon.
// It is read by the HTTP handlers and by the heartbeat/alert system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/cabin-monitor/internal/logic"
)

// NetworkInfo contains network state.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	IntervalMs    int64
	WindowSize    int
	CO2Max        float64
	TempMax       float64
	MinIntervalMs int64
	HeartbeatMs   int64
	Broker        string
	HTTPPort      string
	WSBroker      string // Websocket broker URL for browser MQTT (empty = disabled)
	Sinks         []string
	Notifier      string
}

// Reading is the last raw sensor measurement.
type Reading struct {
	CO2         float64
	Temperature float64
	Humidity    float64
	Time        time.Time
}

// ErrorCounts counts collaborator failures since startup.
type ErrorCounts struct {
	Sensor   int
	Detector int
	Publish  int
	Notify   int
}

// LoopState is the monitor loop's view after one iteration.
type LoopState struct {
	Raw        Reading
	Smoothed   logic.SmoothedEnvironment
	Count      logic.DetectionCount
	Policy     logic.PolicyState
	LastAlert  time.Time // zero if no alert was ever sent
	AlertsSent int
	Errors     ErrorCounts
	Steps      int64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Loop          LoopState
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Ready reports whether at least one loop iteration has completed.
func (s Snapshot) Ready() bool {
	return s.Loop.Steps > 0
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update replaces the loop state. Called by the monitor after every step.
func (t *Tracker) Update(state LoopState) {
	t.mu.Lock()
	t.snap.Loop = state
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Config.Sinks = append([]string(nil), s.Config.Sinks...)
	s.Now = time.Now()
	return s
}
