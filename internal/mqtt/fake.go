package mqtt

import (
	"context"

	"github.com/sweeney/cabin-monitor/internal/telemetry"
)

// FakeClient records published messages for test assertions and lets tests
// deliver messages to subscribers.
type FakeClient struct {
	// Batches contains all telemetry batches that were published.
	Batches [][]telemetry.Point

	// Payloads contains the JSON payloads for telemetry batches.
	Payloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// Handlers holds subscription handlers keyed by topic.
	Handlers map[string]func(payload []byte)

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// SubscribeError, if set, will be returned by Subscribe.
	SubscribeError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakeClient creates a FakeClient for testing.
func NewFakeClient() *FakeClient {
	return &FakeClient{Handlers: make(map[string]func(payload []byte))}
}

// Publish records the telemetry batch.
func (f *FakeClient) Publish(_ context.Context, points []telemetry.Point) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	f.Batches = append(f.Batches, append([]telemetry.Point(nil), points...))

	payload, err := FormatTelemetryPayload(points)
	if err != nil {
		return err
	}
	f.Payloads = append(f.Payloads, payload)

	return nil
}

// PublishSystem records the system event.
func (f *FakeClient) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	f.SystemEvents = append(f.SystemEvents, event)

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemPayloads = append(f.SystemPayloads, payload)

	return nil
}

// Subscribe records the handler for topic.
func (f *FakeClient) Subscribe(topic string, _ byte, handler func(payload []byte)) error {
	if f.SubscribeError != nil {
		return f.SubscribeError
	}
	if f.Handlers == nil {
		f.Handlers = make(map[string]func(payload []byte))
	}
	f.Handlers[topic] = handler
	return nil
}

// Deliver invokes the handler subscribed to topic, reporting whether one existed.
func (f *FakeClient) Deliver(topic string, payload []byte) bool {
	h, ok := f.Handlers[topic]
	if !ok {
		return false
	}
	h(payload)
	return true
}

// Events returns the names of recorded system events in order.
func (f *FakeClient) Events() []string {
	names := make([]string, len(f.SystemEvents))
	for i, e := range f.SystemEvents {
		names[i] = e.Event
	}
	return names
}

// Close marks the client as closed.
func (f *FakeClient) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake client is "connected".
func (f *FakeClient) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded messages.
func (f *FakeClient) Reset() {
	f.Batches = nil
	f.Payloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.SubscribeError = nil
	f.Connected = false
}
