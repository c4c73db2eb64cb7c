package wpgraphql

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryCache is a map-backed Cache for tests
type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
	ttls  map[string]time.Duration
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	m.ttls[key] = ttl
	return nil
}

// setupTestClient starts a fake GraphQL endpoint running handler
func setupTestClient(t *testing.T, handler http.HandlerFunc, mutate func(*Options)) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts := Options{
		Endpoint:     srv.URL,
		Timeout:      time.Second,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	}
	if mutate != nil {
		mutate(&opts)
	}

	client, err := New(opts)
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

type settingsData struct {
	GeneralSettings struct {
		Title string `json:"title"`
	} `json:"generalSettings"`
}

func TestNew(t *testing.T) {
	t.Run("rejects empty endpoint", func(t *testing.T) {
		_, err := New(Options{})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "endpoint cannot be empty")
	})

	t.Run("rejects relative endpoint", func(t *testing.T) {
		_, err := New(Options{Endpoint: "/graphql"})
		assert.Error(t, err)
	})

	t.Run("applies defaults", func(t *testing.T) {
		client, err := New(Options{Endpoint: "https://cms.example.com/graphql", MaxRetries: -1})
		require.NoError(t, err)
		assert.Equal(t, DefaultTimeout, client.timeout)
		assert.Equal(t, DefaultRetryBackoff, client.retryBackoff)
		assert.Equal(t, 0, client.maxRetries)
		assert.Equal(t, DefaultUserAgent, client.userAgent)
	})
}

func TestDo_Success(t *testing.T) {
	var gotBody requestBody
	var gotHeaders http.Header

	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotHeaders = r.Header.Clone()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		writeJSON(w, `{"data":{"generalSettings":{"title":"Daily Planet"}}}`)
	}, func(o *Options) { o.AuthToken = "secret-token" })

	var out settingsData
	err := client.Do(context.Background(), Request{
		Query:     "query Settings { generalSettings { title } }",
		Variables: map[string]any{"x": 1},
	}, &out)
	require.NoError(t, err)

	assert.Equal(t, "Daily Planet", out.GeneralSettings.Title)
	assert.Equal(t, "query Settings { generalSettings { title } }", gotBody.Query)
	assert.Equal(t, float64(1), gotBody.Variables["x"])
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "Bearer secret-token", gotHeaders.Get("Authorization"))
	assert.Equal(t, DefaultUserAgent, gotHeaders.Get("User-Agent"))
}

func TestDo_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, `{"data":{"generalSettings":{"title":"ok"}}}`)
	}, nil)

	var out settingsData
	err := client.Do(context.Background(), Request{Query: "{ generalSettings { title } }"}, &out)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "ok", out.GeneralSettings.Title)
}

func TestDo_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("maintenance"))
	}, nil)

	err := client.Do(context.Background(), Request{Query: "{ __typename }"}, nil)
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load(), "MaxRetries=2 means three attempts")
	assert.True(t, IsStatusError(err, http.StatusServiceUnavailable))
	assert.Contains(t, err.Error(), "maintenance")
}

func TestDo_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}, nil)

	err := client.Do(context.Background(), Request{Query: "{ __typename }"}, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, IsStatusError(err, http.StatusForbidden))
}

func TestDo_GraphQLErrors(t *testing.T) {
	var calls atomic.Int32
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, `{"data":null,"errors":[{"message":"Cannot query field \"nope\"","path":["post","nope"]},{"message":"second"}]}`)
	}, nil)

	err := client.Do(context.Background(), Request{Query: "{ post { nope } }"}, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "graphql errors are not retried")

	var gqlErr *GraphQLError
	require.True(t, errors.As(err, &gqlErr))
	assert.Equal(t, `Cannot query field "nope"`, gqlErr.Message)
	assert.Equal(t, `graphql error at post.nope: Cannot query field "nope"`, err.Error())
}

func TestDo_MissingData(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"data":null}`)
	}, nil)

	err := client.Do(context.Background(), Request{Query: "{ __typename }"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data")
}

func TestDo_AttemptTimeoutIsRetried(t *testing.T) {
	var calls atomic.Int32
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			select {
			case <-time.After(500 * time.Millisecond):
			case <-r.Context().Done():
			}
			return
		}
		writeJSON(w, `{"data":{"generalSettings":{"title":"late"}}}`)
	}, func(o *Options) { o.Timeout = 50 * time.Millisecond })

	var out settingsData
	err := client.Do(context.Background(), Request{Query: "{ generalSettings { title } }"}, &out)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "late", out.GeneralSettings.Title)
}

func TestDo_CancelledContextStopsRetrying(t *testing.T) {
	var calls atomic.Int32
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, func(o *Options) {
		o.MaxRetries = 10
		o.RetryBackoff = 200 * time.Millisecond
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := client.Do(ctx, Request{Query: "{ __typename }"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.LessOrEqual(t, calls.Load(), int32(2))
}

func TestDo_Cache(t *testing.T) {
	var calls atomic.Int32
	cache := newMemoryCache()
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, `{"data":{"generalSettings":{"title":"cached"}}}`)
	}, func(o *Options) { o.Cache = cache })

	req := Request{Query: "{ generalSettings { title } }", TTL: time.Minute}

	t.Run("second request is served from cache", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			var out settingsData
			require.NoError(t, client.Do(context.Background(), req, &out))
			assert.Equal(t, "cached", out.GeneralSettings.Title)
		}
		assert.Equal(t, int32(1), calls.Load())

		key := CacheKey(req.Query, nil)
		assert.Equal(t, time.Minute, cache.ttls[key])
	})

	t.Run("zero TTL bypasses cache", func(t *testing.T) {
		before := calls.Load()
		require.NoError(t, client.Do(context.Background(), Request{Query: req.Query}, nil))
		assert.Equal(t, before+1, calls.Load())
	})
}

func TestDo_CollapsesConcurrentRequests(t *testing.T) {
	const callers = 8

	var calls atomic.Int32
	arrived := make(chan struct{})
	release := make(chan struct{})
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			close(arrived)
		}
		<-release
		writeJSON(w, `{"data":{"generalSettings":{"title":"shared"}}}`)
	}, func(o *Options) { o.Cache = newMemoryCache() })

	req := Request{Query: "{ generalSettings { title } }", TTL: time.Minute}

	var wg sync.WaitGroup
	titles := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var out settingsData
			errs[i] = client.Do(context.Background(), req, &out)
			titles[i] = out.GeneralSettings.Title
		}(i)
	}

	<-arrived
	// Give the remaining callers time to join the in-flight fetch
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "shared", titles[i])
	}
}

func TestDo_SharedFetchSurvivesCallerCancel(t *testing.T) {
	var calls atomic.Int32
	arrived := make(chan struct{})
	release := make(chan struct{})
	cache := newMemoryCache()
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			close(arrived)
		}
		<-release
		writeJSON(w, `{"data":{"generalSettings":{"title":"kept"}}}`)
	}, func(o *Options) { o.Cache = cache })

	req := Request{Query: "{ generalSettings { title } }", TTL: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() { firstErr <- client.Do(ctx, req, nil) }()
	<-arrived

	second := make(chan error, 1)
	var out settingsData
	go func() { second <- client.Do(context.Background(), req, &out) }()
	time.Sleep(50 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	require.NoError(t, <-second)
	assert.Equal(t, "kept", out.GeneralSettings.Title)
	assert.Equal(t, int32(1), calls.Load())

	_, ok, _ := cache.Get(context.Background(), CacheKey(req.Query, nil))
	assert.True(t, ok, "cancelled caller does not abort the cache fill")
}

func TestDo_RejectsEmptyQuery(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}, nil)

	err := client.Do(context.Background(), Request{Query: "   "}, nil)
	assert.Error(t, err)
}

func TestCacheKey(t *testing.T) {
	a := CacheKey("{ a }", map[string]any{"x": 1, "y": "two"})
	b := CacheKey("  { a }\n", map[string]any{"y": "two", "x": 1})
	c := CacheKey("{ a }", map[string]any{"x": 2, "y": "two"})

	assert.Equal(t, a, b, "whitespace and variable order must not change the key")
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestLinearBackOff(t *testing.T) {
	b := &linearBackOff{step: 100 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 200*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 300*time.Millisecond, b.NextBackOff())
	b.Reset()
	assert.Equal(t, 100*time.Millisecond, b.NextBackOff())
}
