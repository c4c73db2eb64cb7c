package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// scanBatch is the COUNT hint used while walking the keyspace during a purge.
const scanBatch = 200

// Client provides namespaced Redis operations for a Gazette site.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb       *redis.Client
	namespace string
}

// NewClient creates a new cache client for the specified namespace.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - namespace: key prefix for this site (must not be empty)
//
// Returns an error if namespace is empty.
func NewClient(redisOpts *redis.Options, namespace string) (*Client, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}

	return &Client{
		rdb:       redis.NewClient(redisOpts),
		namespace: namespace,
	}, nil
}

// NewClientFromURL parses a redis:// URL and creates a client.
func NewClientFromURL(redisURL, namespace string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return NewClient(opts, namespace)
}

// Namespace returns the key prefix used by this client.
func (c *Client) Namespace() string {
	return c.namespace
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Used by the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Get returns the cached payload for a response hash.
// A miss is (nil, false, nil), not an error.
func (c *Client) Get(ctx context.Context, hash string) ([]byte, bool, error) {
	data, err := c.rdb.Get(ctx, ResponseKey(c.namespace, hash)).Bytes()
	if err != nil {
		if IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cached response: %w", err)
	}
	return data, true, nil
}

// Set stores a payload for a response hash with the given TTL.
func (c *Client) Set(ctx context.Context, hash string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %s", ttl)
	}
	if err := c.rdb.Set(ctx, ResponseKey(c.namespace, hash), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cached response: %w", err)
	}
	return nil
}

// Purge deletes every cached response in the namespace and publishes a
// PurgeEvent. Returns the number of keys removed.
// Rate-limit counters are left alone.
func (c *Client) Purge(ctx context.Context, reason string) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	pattern := ResponsePattern(c.namespace)

	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return removed, fmt.Errorf("failed to scan cached responses: %w", err)
		}
		if len(keys) > 0 {
			n, err := c.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("failed to delete cached responses: %w", err)
			}
			removed += int(n)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	event := &PurgeEvent{
		ID:     uuid.New().String(),
		Reason: reason,
		Keys:   removed,
		AtMs:   time.Now().UnixMilli(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return removed, fmt.Errorf("failed to marshal purge event: %w", err)
	}
	if err := c.rdb.Publish(ctx, PurgeEventsChannel(c.namespace), payload).Err(); err != nil {
		return removed, fmt.Errorf("failed to publish purge event: %w", err)
	}

	return removed, nil
}

// Allow implements a fixed-window rate limit. The first hit in a window
// starts the window; hits beyond limit inside it are refused. The counter
// is created with its expiry in the same transaction that increments it.
func (c *Client) Allow(ctx context.Context, bucket string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}

	key := RateLimitKey(c.namespace, bucket)
	var incr *redis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, window)
		incr = pipe.Incr(ctx, key)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	return incr.Val() <= int64(limit), nil
}

// PurgeSubscription represents an active Pub/Sub subscription to purge events.
// Caller must call Close() when done to clean up resources.
type PurgeSubscription struct {
	events <-chan *PurgeEvent
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of purge events.
// The channel will be closed when the subscription is closed or the context is cancelled.
func (s *PurgeSubscription) Events() <-chan *PurgeEvent {
	return s.events
}

// Errors returns the channel of subscription errors.
// The subscription continues after errors - malformed messages are skipped.
func (s *PurgeSubscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Safe to call multiple times.
func (s *PurgeSubscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribePurgeEvents subscribes to purge events for this namespace.
// The subscription is confirmed by Redis before this returns, so no event
// published afterwards is missed.
func (c *Client) SubscribePurgeEvents(ctx context.Context) (*PurgeSubscription, error) {
	pubsub := c.rdb.Subscribe(ctx, PurgeEventsChannel(c.namespace))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to purge events: %w", err)
	}

	eventsChan := make(chan *PurgeEvent, 10)
	errorsChan := make(chan error, 10)
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event PurgeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal purge event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &PurgeSubscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error (redis.Nil).
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
