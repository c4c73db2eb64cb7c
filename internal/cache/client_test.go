package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestClient creates a test client connected to a miniredis instance
func setupTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewClient(&redis.Options{Addr: mr.Addr()}, "test-site")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func TestNewClient(t *testing.T) {
	t.Run("creates client successfully", func(t *testing.T) {
		client, _ := setupTestClient(t)
		assert.NotNil(t, client)
		assert.Equal(t, "test-site", client.Namespace())
	})

	t.Run("rejects empty namespace", func(t *testing.T) {
		_, err := NewClient(&redis.Options{Addr: "localhost:6379"}, "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "namespace cannot be empty")
	})

	t.Run("rejects malformed URL", func(t *testing.T) {
		_, err := NewClientFromURL("not a url", "site")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid redis URL")
	})
}

func TestPing(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	assert.NoError(t, client.Ping(ctx))

	mr.Close()
	assert.Error(t, client.Ping(ctx))
}

func TestGetSet(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	t.Run("miss is not an error", func(t *testing.T) {
		data, ok, err := client.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, data)
	})

	t.Run("stores with namespace and ttl", func(t *testing.T) {
		require.NoError(t, client.Set(ctx, "abc", []byte(`{"x":1}`), time.Minute))

		data, ok, err := client.Get(ctx, "abc")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.JSONEq(t, `{"x":1}`, string(data))

		assert.True(t, mr.Exists("test-site:gql:abc"))
		assert.Equal(t, time.Minute, mr.TTL("test-site:gql:abc"))
	})

	t.Run("expires after ttl", func(t *testing.T) {
		require.NoError(t, client.Set(ctx, "short", []byte("1"), time.Second))
		mr.FastForward(2 * time.Second)

		_, ok, err := client.Get(ctx, "short")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("rejects non-positive ttl", func(t *testing.T) {
		err := client.Set(ctx, "zero", []byte("1"), 0)
		assert.Error(t, err)
	})
}

func TestPurge(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, client.Set(ctx, k, []byte(k), time.Minute))
	}
	require.NoError(t, mr.Set("other-site:gql:z", "keep"))
	allowed, err := client.Allow(ctx, "1.2.3.4", 5, time.Minute)
	require.NoError(t, err)
	require.True(t, allowed)

	sub, err := client.SubscribePurgeEvents(ctx)
	require.NoError(t, err)
	defer sub.Close()

	removed, err := client.Purge(ctx, "post 42 updated")
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	assert.False(t, mr.Exists("test-site:gql:a"))
	assert.True(t, mr.Exists("other-site:gql:z"), "other namespaces are untouched")
	assert.True(t, mr.Exists("test-site:ratelimit:1.2.3.4"), "rate limit counters survive purges")

	select {
	case event := <-sub.Events():
		require.NotNil(t, event)
		assert.Equal(t, "post 42 updated", event.Reason)
		assert.Equal(t, 3, event.Keys)
		assert.NotEmpty(t, event.ID)
		assert.WithinDuration(t, time.Now(), event.At(), 5*time.Second)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for purge event")
	}
}

func TestSubscribePurgeEvents_SkipsMalformed(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	sub, err := client.SubscribePurgeEvents(ctx)
	require.NoError(t, err)

	mr.Publish(PurgeEventsChannel("test-site"), "{not json")

	select {
	case err := <-sub.Errors():
		assert.Contains(t, err.Error(), "failed to unmarshal purge event")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for subscription error")
	}

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close(), "close is idempotent")

	// Events channel drains and closes once the goroutine exits
	for range sub.Events() {
	}
}

func TestAllow(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	t.Run("refuses hits beyond the limit", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			ok, err := client.Allow(ctx, "bucket", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, ok, "hit %d should pass", i+1)
		}
		ok, err := client.Allow(ctx, "bucket", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("first hit sets the window", func(t *testing.T) {
		ok, err := client.Allow(ctx, "fresh", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, time.Minute, mr.TTL("test-site:ratelimit:fresh"))

		mr.FastForward(30 * time.Second)
		_, err = client.Allow(ctx, "fresh", 3, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 30*time.Second, mr.TTL("test-site:ratelimit:fresh"), "later hits keep the window")
	})

	t.Run("window resets after expiry", func(t *testing.T) {
		mr.FastForward(2 * time.Minute)
		ok, err := client.Allow(ctx, "bucket", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("zero limit disables limiting", func(t *testing.T) {
		ok, err := client.Allow(ctx, "unlimited", 0, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.False(t, mr.Exists("test-site:ratelimit:unlimited"))
	})
}

func TestSchema(t *testing.T) {
	assert.Equal(t, "gz:gql:abc", ResponseKey("gz", "abc"))
	assert.Equal(t, "gz:gql:*", ResponsePattern("gz"))
	assert.Equal(t, "gz:ratelimit:ip", RateLimitKey("gz", "ip"))
	assert.Equal(t, "gz:purge_events", PurgeEventsChannel("gz"))
}
