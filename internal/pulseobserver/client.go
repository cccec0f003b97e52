// Package pulseobserver publishes Agent Runtime status updates to a
// Redis-backed goa.design/pulse stream, adapted from the teacher's
// features/stream/pulse/clients/pulse/client.go wrapper (itself trimmed to
// the write-only subset this observer needs: Stream + Add, dropping the
// subscriber-side NewSink/Destroy/Subscribe operations nothing here calls).
package pulseobserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"goa.design/pulse/streaming"
	streamopts "goa.design/pulse/streaming/options"
)

// ClientOptions configures the Pulse client.
type ClientOptions struct {
	// Redis is the Redis connection used to back Pulse streams. Required.
	Redis *redis.Client
	// StreamMaxLen bounds the number of entries kept per stream. Zero uses
	// Pulse's own default.
	StreamMaxLen int
	// OperationTimeout bounds individual Add operations. Zero means no
	// timeout.
	OperationTimeout time.Duration
}

// Client exposes the subset of Pulse APIs PulseObserver needs.
type Client interface {
	Stream(name string) (Stream, error)
	Close(ctx context.Context) error
}

// Stream publishes entries to one named Pulse stream.
type Stream interface {
	Add(ctx context.Context, event string, payload []byte) (string, error)
}

type client struct {
	redis   *redis.Client
	maxLen  int
	timeout time.Duration
}

// NewClient constructs a Pulse client backed by the provided Redis
// connection. opts.Redis is required.
func NewClient(opts ClientOptions) (Client, error) {
	if opts.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	return &client{redis: opts.Redis, maxLen: opts.StreamMaxLen, timeout: opts.OperationTimeout}, nil
}

func (c *client) Stream(name string) (Stream, error) {
	if name == "" {
		return nil, errors.New("stream name is required")
	}
	var opts []streamopts.Stream
	if c.maxLen > 0 {
		opts = append(opts, streamopts.WithStreamMaxLen(c.maxLen))
	}
	str, err := streaming.NewStream(name, c.redis, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pulse stream: %w", err)
	}
	return &handle{stream: str, timeout: c.timeout}, nil
}

// Close is a no-op; callers typically own the Redis connection's lifecycle.
func (c *client) Close(ctx context.Context) error { return nil }

type handle struct {
	stream  *streaming.Stream
	timeout time.Duration
}

func (h *handle) Add(ctx context.Context, event string, payload []byte) (string, error) {
	if event == "" {
		return "", errors.New("event name is required")
	}
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	id, err := h.stream.Add(ctx, event, payload)
	if err != nil {
		return "", fmt.Errorf("pulse add: %w", err)
	}
	return id, nil
}
