package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sweeney/cabin-monitor/internal/telemetry"
)

// DefaultBufferSize is the number of messages held while disconnected.
const DefaultBufferSize = 256

// Options configures the broker connection.
type Options struct {
	Broker   string // e.g. tcp://localhost:1883
	ClientID string // generated from a UUID when empty
	Username string
	Password string

	// BufferSize is the offline message capacity; oldest messages are dropped first.
	BufferSize int

	ConnectTimeout time.Duration
	PublishTimeout time.Duration

	Logger *zap.Logger
}

type subscription struct {
	qos     byte
	handler func(payload []byte)
}

// RealClient publishes to and subscribes on an actual MQTT broker.
// Messages published while the connection is down are buffered and
// replayed in order on reconnect.
type RealClient struct {
	client         paho.Client
	logger         *zap.Logger
	publishTimeout time.Duration
	connectTimeout time.Duration

	mu        sync.Mutex
	outbox    *outbox
	subs      map[string]subscription
	connected bool // set after the first successful connection
}

// NewRealClient creates a client connected to the given broker.
func NewRealClient(opts Options) (*RealClient, error) {
	c := newRealClient(opts)
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func newRealClient(opts Options) *RealClient {
	if opts.ClientID == "" {
		opts.ClientID = "cabin-monitor-" + uuid.NewString()[:8]
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &RealClient{
		logger:         logger.Named("mqtt"),
		publishTimeout: opts.PublishTimeout,
		connectTimeout: opts.ConnectTimeout,
		outbox:         newOutbox(opts.BufferSize),
		subs:           make(map[string]subscription),
	}

	will, _ := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "OFFLINE",
		Reason:    "connection_lost",
	})

	po := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			c.logger.Warn("connection lost", zap.Error(err))
		})
	if opts.Username != "" {
		po.SetUsername(opts.Username)
		po.SetPassword(opts.Password)
	}

	c.client = paho.NewClient(po)
	return c
}

func (c *RealClient) connect() error {
	token := c.client.Connect()
	if !token.WaitTimeout(c.connectTimeout) {
		c.client.Disconnect(0)
		return fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	return nil
}

// onConnect replays buffered messages and restores subscriptions.
func (c *RealClient) onConnect(client paho.Client) {
	c.mu.Lock()
	reconnect := c.connected
	c.connected = true
	queued := c.outbox.flush()
	subs := make(map[string]subscription, len(c.subs))
	for topic, s := range c.subs {
		subs[topic] = s
	}
	c.mu.Unlock()

	for topic, s := range subs {
		token := client.Subscribe(topic, s.qos, wrapHandler(s.handler))
		if token.WaitTimeout(c.publishTimeout) && token.Error() != nil {
			c.logger.Warn("resubscribe failed", zap.String("topic", topic), zap.Error(token.Error()))
		}
	}

	if len(queued) > 0 {
		c.logger.Info("replaying buffered messages", zap.Int("count", len(queued)))
	}
	for _, m := range queued {
		if err := c.send(m); err != nil {
			c.logger.Warn("replay failed", zap.String("topic", m.topic), zap.Error(err))
		}
	}

	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		if err := c.send(pending{topic: TopicSystem, payload: payload, qos: 1, retained: true}); err != nil {
			c.logger.Warn("publish reconnected event failed", zap.Error(err))
		}
	}
}

// Publish sends a telemetry batch to the broker.
func (c *RealClient) Publish(ctx context.Context, points []telemetry.Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := FormatTelemetryPayload(points)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	return c.publish(pending{topic: TopicTelemetry, payload: payload, qos: 0})
}

// PublishSystem sends a system event to the broker.
func (c *RealClient) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle and alert events
	return c.publish(pending{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (c *RealClient) publish(m pending) error {
	if !c.client.IsConnectionOpen() {
		c.mu.Lock()
		firstDrop := c.outbox.add(m)
		c.mu.Unlock()
		if firstDrop {
			c.logger.Warn("offline buffer full, dropping oldest messages")
		}
		return nil
	}
	return c.send(m)
}

func (c *RealClient) send(m pending) error {
	token := c.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(c.publishTimeout) {
		return fmt.Errorf("publish %s: timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.topic, err)
	}
	return nil
}

// Subscribe registers handler for messages on topic. The subscription is
// restored automatically after a reconnect.
func (c *RealClient) Subscribe(topic string, qos byte, handler func(payload []byte)) error {
	if handler == nil {
		return errors.New("subscribe: nil handler")
	}
	c.mu.Lock()
	c.subs[topic] = subscription{qos: qos, handler: handler}
	c.mu.Unlock()

	token := c.client.Subscribe(topic, qos, wrapHandler(handler))
	if !token.WaitTimeout(c.publishTimeout) {
		return fmt.Errorf("subscribe %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

func wrapHandler(handler func(payload []byte)) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		handler(msg.Payload())
	}
}

// Buffered returns the number of messages waiting for a connection.
func (c *RealClient) Buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outbox.size()
}

// IsConnected reports whether the broker connection is currently open.
func (c *RealClient) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (c *RealClient) Close() error {
	c.client.Disconnect(1000) // 1 second timeout
	return nil
}
