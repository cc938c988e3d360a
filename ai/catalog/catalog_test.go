package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/askbox/ai/core/llm"
)

const modelsBody = `{"data":[
	{"id":"zeta/model:free","name":"Zeta","context_length":8192,"top_provider":{"max_completion_tokens":2048},"pricing":{"prompt":"0","completion":"0"}},
	{"id":"openai/gpt-4o","name":"Alpha Paid","context_length":128000,"top_provider":{"max_completion_tokens":4096},"pricing":{"prompt":"0.000005"}},
	{"id":"meta/llama:free","name":"Llama","context_length":131072,"top_provider":{"max_completion_tokens":null},"pricing":{"prompt":"0"}},
	{"id":"acme/alpha:free","name":"Alpha","context_length":4096,"top_provider":{},"pricing":{}}
]}`

type countingObserver struct {
	mu      sync.Mutex
	results []string
}

func (o *countingObserver) ObserveCatalog(result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, result)
}

func newProvider(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/models", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func okModels(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(modelsBody))
}

func TestListModels_FiltersAndSorts(t *testing.T) {
	server, calls := newProvider(t, okModels)
	cat := New(llm.NewRestyClient(server.URL, "test-key", "", ""), nil)

	models, err := cat.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 3)

	names := []string{models[0].Name, models[1].Name, models[2].Name}
	assert.Equal(t, []string{"Alpha", "Llama", "Zeta"}, names)
	for _, m := range models {
		assert.True(t, strings.HasSuffix(m.ID, FreeSuffix), m.ID)
	}

	zeta := models[2]
	assert.Equal(t, "zeta/model:free", zeta.ID)
	assert.Equal(t, 8192, zeta.ContextLength)
	assert.Equal(t, 2048, zeta.MaxCompletionTokens)
	assert.Equal(t, "0", zeta.Pricing["prompt"])
	assert.Equal(t, 0, models[1].MaxCompletionTokens)
	assert.Equal(t, int32(1), calls.Load())
}

func TestListModels_CachedWithinTTL(t *testing.T) {
	server, calls := newProvider(t, okModels)
	observer := &countingObserver{}
	cat := New(llm.NewRestyClient(server.URL, "test-key", "", ""), observer)

	for i := 0; i < 3; i++ {
		_, err := cat.ListModels(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []string{"miss", "hit", "hit"}, observer.results)

	cat.Invalidate()
	_, err := cat.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestListModels_ConcurrentFirstAccessFetchesOnce(t *testing.T) {
	release := make(chan struct{})
	server, calls := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		okModels(w, r)
	})
	cat := New(llm.NewRestyClient(server.URL, "test-key", "", ""), nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			models, err := cat.ListModels(context.Background())
			assert.NoError(t, err)
			assert.Len(t, models, 3)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestListModels_ServesStaleOnFailure(t *testing.T) {
	var failing atomic.Bool
	server, _ := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		okModels(w, r)
	})
	observer := &countingObserver{}
	cat := New(llm.NewRestyClient(server.URL, "test-key", "", ""), observer)

	now := time.Now()
	cat.cache.Entries().SetClock(func() time.Time { return now })
	_, err := cat.ListModels(context.Background())
	require.NoError(t, err)

	failing.Store(true)
	now = now.Add(2 * CacheTTL)

	models, err := cat.ListModels(context.Background())
	require.NoError(t, err)
	assert.Len(t, models, 3)
	assert.Equal(t, "stale", observer.results[len(observer.results)-1])
}

func TestListModels_FailureWithoutCache(t *testing.T) {
	server, _ := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("bad gateway"))
	})
	cat := New(llm.NewRestyClient(server.URL, "test-key", "", ""), nil)

	_, err := cat.ListModels(context.Background())
	require.ErrorIs(t, err, llm.ErrUpstreamUnavailable)

	ok, err := cat.Contains(context.Background(), "acme/alpha:free")
	require.ErrorIs(t, err, llm.ErrUpstreamUnavailable)
	assert.False(t, ok)
}

func TestContains(t *testing.T) {
	server, _ := newProvider(t, okModels)
	cat := New(llm.NewRestyClient(server.URL, "test-key", "", ""), nil)

	ok, err := cat.Contains(context.Background(), "meta/llama:free")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cat.Contains(context.Background(), "openai/gpt-4o")
	require.NoError(t, err)
	assert.False(t, ok, "paid models are filtered out")
}

func TestContains_DoesNotRefetchDuringOutage(t *testing.T) {
	var failing atomic.Bool
	server, calls := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		okModels(w, r)
	})
	cat := New(llm.NewRestyClient(server.URL, "test-key", "", ""), nil)

	now := time.Now()
	cat.cache.Entries().SetClock(func() time.Time { return now })
	_, err := cat.ListModels(context.Background())
	require.NoError(t, err)

	failing.Store(true)
	now = now.Add(2 * CacheTTL)
	for i := 0; i < 5; i++ {
		ok, err := cat.Contains(context.Background(), "meta/llama:free")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestListModels_ReturnsCopy(t *testing.T) {
	server, _ := newProvider(t, okModels)
	cat := New(llm.NewRestyClient(server.URL, "test-key", "", ""), nil)

	first, err := cat.ListModels(context.Background())
	require.NoError(t, err)
	first[0].ID = "mutated"
	first[1].Pricing["prompt"] = "42"

	second, err := cat.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "acme/alpha:free", second[0].ID)
	assert.Equal(t, "0", second[1].Pricing["prompt"])
}
