package vision

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type fakeSubscriber struct {
	topic   string
	qos     byte
	handler func([]byte)
	err     error
}

func (s *fakeSubscriber) Subscribe(topic string, qos byte, handler func([]byte)) error {
	if s.err != nil {
		return s.err
	}
	s.topic = topic
	s.qos = qos
	s.handler = handler
	return nil
}

func TestMQTTFeedSubscribesAndCaches(t *testing.T) {
	sub := &fakeSubscriber{}
	feed, err := NewMQTTFeed(sub, "vehicle/cabin/detections", FeedOptions{MinConfidence: 0.5}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewMQTTFeed: %v", err)
	}
	if sub.topic != "vehicle/cabin/detections" {
		t.Errorf("subscribed to %q", sub.topic)
	}

	if _, err := feed.Detect(context.Background()); !errors.Is(err, ErrNoFrame) {
		t.Errorf("expected ErrNoFrame before first message, got %v", err)
	}

	sub.handler([]byte(framePayload))

	got, err := feed.Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 detections above 0.5, got %d", len(got))
	}
}

func TestMQTTFeedDropsInvalidPayload(t *testing.T) {
	sub := &fakeSubscriber{}
	feed, err := NewMQTTFeed(sub, "t", FeedOptions{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewMQTTFeed: %v", err)
	}

	sub.handler([]byte("{broken"))
	if feed.Frames() != 0 {
		t.Errorf("invalid payload was stored")
	}
}

func TestMQTTFeedSubscribeError(t *testing.T) {
	sub := &fakeSubscriber{err: errors.New("not connected")}
	if _, err := NewMQTTFeed(sub, "t", FeedOptions{}, zap.NewNop()); err == nil {
		t.Error("expected subscribe error")
	}
}
