package vision

import (
	"fmt"

	"go.uber.org/zap"
)

// Subscriber delivers payloads published on an MQTT topic.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler func(payload []byte)) error
}

// MQTTFeed caches frames published on an MQTT topic.
type MQTTFeed struct {
	*Latest
	topic  string
	logger *zap.Logger
}

// NewMQTTFeed subscribes to topic and starts caching frames.
func NewMQTTFeed(sub Subscriber, topic string, opts FeedOptions, logger *zap.Logger) (*MQTTFeed, error) {
	f := &MQTTFeed{
		Latest: NewLatest(opts),
		topic:  topic,
		logger: logger,
	}
	// QoS 0: a dropped frame is superseded by the next one.
	if err := sub.Subscribe(topic, 0, f.handle); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return f, nil
}

func (f *MQTTFeed) handle(payload []byte) {
	frame, err := DecodeFrame(payload)
	if err != nil {
		f.logger.Warn("dropping detection frame", zap.String("topic", f.topic), zap.Error(err))
		return
	}
	f.Store(frame)
}
