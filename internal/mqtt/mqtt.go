// Package mqtt provides MQTT publishing and subscription with abstraction for testing.
package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sweeney/cabin-monitor/internal/telemetry"
)

// TopicTelemetry is the MQTT topic for cabin telemetry batches.
const TopicTelemetry = "vehicle/cabin/telemetry"

// TopicSystem is the MQTT topic for system lifecycle and alert events.
const TopicSystem = "vehicle/cabin/system"

// TopicDetections is the default topic the inference process publishes frames on.
const TopicDetections = "vehicle/cabin/detections"

// Publisher publishes telemetry and system events to MQTT.
type Publisher interface {
	// Publish sends a telemetry batch to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(ctx context.Context, points []telemetry.Point) error

	// PublishSystem sends a system event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system event (e.g., startup, shutdown, heartbeat, alert).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "ALERT"
	Reason     string // e.g., "SIGTERM" (shutdown), "co2,temperature" (alert)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// TelemetryPayload is the MQTT message payload for a telemetry batch.
type TelemetryPayload struct {
	Telemetry []PointJSON `json:"telemetry"`
}

// PointJSON is one telemetry point.
type PointJSON struct {
	Timestamp   string  `json:"timestamp"`
	Measurement string  `json:"measurement"`
	Value       float64 `json:"value"`
	PeopleCount int     `json:"people_count"`
	AnimalCount int     `json:"animal_count"`
}

// FormatTelemetryPayload creates the JSON payload for a telemetry batch.
func FormatTelemetryPayload(points []telemetry.Point) ([]byte, error) {
	payload := TelemetryPayload{Telemetry: make([]PointJSON, len(points))}
	for i, p := range points {
		payload.Telemetry[i] = PointJSON{
			Timestamp:   p.Time.UTC().Format(time.RFC3339Nano),
			Measurement: p.Measurement,
			Value:       p.Value,
			PeopleCount: p.Tags.PeopleCount,
			AnimalCount: p.Tags.AnimalCount,
		}
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
