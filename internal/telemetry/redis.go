package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisOptions configures the Redis stream sink.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	// MaxLen caps the stream length; 0 leaves it unbounded.
	MaxLen int64
}

// RedisSink appends points to a Redis stream, one entry per point.
type RedisSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisSink connects to Redis and verifies the connection.
func NewRedisSink(ctx context.Context, opts RedisOptions) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return NewRedisSinkFromClient(client, opts.Stream, opts.MaxLen), nil
}

// NewRedisSinkFromClient wraps an existing client.
func NewRedisSinkFromClient(client *redis.Client, stream string, maxLen int64) *RedisSink {
	return &RedisSink{client: client, stream: stream, maxLen: maxLen}
}

// Publish appends the batch in one pipeline round trip.
func (s *RedisSink) Publish(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, p := range points {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: s.stream,
			MaxLen: s.maxLen,
			Values: map[string]interface{}{
				"measurement":  p.Measurement,
				"value":        strconv.FormatFloat(p.Value, 'f', -1, 64),
				TagPeopleCount: strconv.Itoa(p.Tags.PeopleCount),
				TagAnimalCount: strconv.Itoa(p.Tags.AnimalCount),
				"timestamp":    p.Time.UTC().Format(time.RFC3339Nano),
			},
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis xadd %s: %w", s.stream, err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisSink) Close() error {
	return s.client.Close()
}
