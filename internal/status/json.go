package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/cabin-monitor/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Ready         bool         `json:"ready"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	Steps         int64        `json:"steps"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Reading       ReadingJSON  `json:"reading"`
	Smoothed      SmoothedJSON `json:"smoothed"`
	Detections    CountJSON    `json:"detections"`
	Alert         AlertJSON    `json:"alert"`
	Errors        ErrorsJSON   `json:"errors"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ReadingJSON is the last raw measurement.
type ReadingJSON struct {
	CO2         float64 `json:"co2"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"relative_humidity"`
	Timestamp   string  `json:"timestamp,omitempty"`
}

// SignalJSON is one smoothed signal.
type SignalJSON struct {
	Value float64 `json:"value"`
	Rate  float64 `json:"rate"`
}

// SmoothedJSON holds the three smoothed signals.
type SmoothedJSON struct {
	CO2         SignalJSON `json:"co2"`
	Temperature SignalJSON `json:"temperature"`
	Humidity    SignalJSON `json:"relative_humidity"`
}

// CountJSON is the JSON representation of a detection count.
type CountJSON struct {
	People  int `json:"people"`
	Animals int `json:"animals"`
}

// AlertJSON reports the alert policy state.
type AlertJSON struct {
	State     string `json:"state"`
	LastAlert string `json:"last_alert,omitempty"`
	Sent      int    `json:"sent"`
}

// ErrorsJSON is the JSON representation of error counters.
type ErrorsJSON struct {
	Sensor   int `json:"sensor"`
	Detector int `json:"detector"`
	Publish  int `json:"publish"`
	Notify   int `json:"notify"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	IntervalMs    int64    `json:"interval_ms"`
	WindowSize    int      `json:"window_size"`
	CO2Max        float64  `json:"co2_max"`
	TempMax       float64  `json:"temp_max"`
	MinIntervalMs int64    `json:"min_alert_interval_ms"`
	HeartbeatMs   int64    `json:"heartbeat_ms"`
	Broker        string   `json:"broker"`
	HTTPPort      string   `json:"http_port"`
	WSBroker      string   `json:"ws_broker,omitempty"`
	Sinks         []string `json:"sinks"`
	Notifier      string   `json:"notifier"`
}

func signal(s logic.Smoothed) SignalJSON {
	return SignalJSON{Value: s.Value, Rate: s.Rate}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func buildInner(snap Snapshot) StatusInner {
	loop := snap.Loop
	policy := string(loop.Policy)
	if policy == "" {
		policy = string(logic.StateReady)
	}
	sinks := snap.Config.Sinks
	if sinks == nil {
		sinks = []string{}
	}

	return StatusInner{
		Ready:         snap.Ready(),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Steps:         loop.Steps,
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Reading: ReadingJSON{
			CO2:         loop.Raw.CO2,
			Temperature: loop.Raw.Temperature,
			Humidity:    loop.Raw.Humidity,
			Timestamp:   formatTime(loop.Raw.Time),
		},
		Smoothed: SmoothedJSON{
			CO2:         signal(loop.Smoothed.CO2),
			Temperature: signal(loop.Smoothed.Temperature),
			Humidity:    signal(loop.Smoothed.Humidity),
		},
		Detections: CountJSON{People: loop.Count.People, Animals: loop.Count.Animals},
		Alert: AlertJSON{
			State:     policy,
			LastAlert: formatTime(loop.LastAlert),
			Sent:      loop.AlertsSent,
		},
		Errors: ErrorsJSON{
			Sensor:   loop.Errors.Sensor,
			Detector: loop.Errors.Detector,
			Publish:  loop.Errors.Publish,
			Notify:   loop.Errors.Notify,
		},
		Config: ConfigJSON{
			IntervalMs:    snap.Config.IntervalMs,
			WindowSize:    snap.Config.WindowSize,
			CO2Max:        snap.Config.CO2Max,
			TempMax:       snap.Config.TempMax,
			MinIntervalMs: snap.Config.MinIntervalMs,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			Broker:        snap.Config.Broker,
			HTTPPort:      snap.Config.HTTPPort,
			WSBroker:      snap.Config.WSBroker,
			Sinks:         sinks,
			Notifier:      snap.Config.Notifier,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
