package llm

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearBackoff(t *testing.T) {
	policy := LinearBackoff(5 * time.Second)

	testCases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 15 * time.Second},
		{4, 20 * time.Second},
	}

	for _, tc := range testCases {
		t.Run(strconv.Itoa(tc.attempt), func(t *testing.T) {
			assert.Equal(t, tc.want, policy(tc.attempt))
		})
	}
}

func TestRateLimitWait(t *testing.T) {
	now := time.Date(2025, 3, 3, 14, 5, 0, 0, time.UTC)
	limit := 30 * time.Second

	testCases := []struct {
		name      string
		headers   map[string]string
		want      time.Duration
		wantFound bool
	}{
		{
			name:      "reset in epoch milliseconds",
			headers:   map[string]string{"X-RateLimit-Reset": strconv.FormatInt(now.Add(7*time.Second).UnixMilli(), 10)},
			want:      7 * time.Second,
			wantFound: true,
		},
		{
			name:      "reset in epoch seconds",
			headers:   map[string]string{"X-RateLimit-Reset": strconv.FormatInt(now.Add(12*time.Second).Unix(), 10)},
			want:      12 * time.Second,
			wantFound: true,
		},
		{
			name:      "reset in the past clamps to zero",
			headers:   map[string]string{"X-RateLimit-Reset": strconv.FormatInt(now.Add(-time.Minute).UnixMilli(), 10)},
			want:      0,
			wantFound: true,
		},
		{
			name:      "reset far away is capped",
			headers:   map[string]string{"X-RateLimit-Reset": strconv.FormatInt(now.Add(time.Hour).UnixMilli(), 10)},
			want:      limit,
			wantFound: true,
		},
		{
			name:      "retry-after fallback",
			headers:   map[string]string{"Retry-After": "3"},
			want:      3 * time.Second,
			wantFound: true,
		},
		{
			name:      "unparseable reset uses retry-after",
			headers:   map[string]string{"X-RateLimit-Reset": "soon", "Retry-After": "2"},
			want:      2 * time.Second,
			wantFound: true,
		},
		{
			name:      "no signal",
			headers:   map[string]string{},
			wantFound: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tc.headers {
				h.Set(k, v)
			}
			got, found := rateLimitWait(h, now, limit)
			assert.Equal(t, tc.wantFound, found)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTimerSleeper_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := TimerSleeper.Sleep(ctx, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestTimerSleeper_Elapses(t *testing.T) {
	err := TimerSleeper.Sleep(context.Background(), 5*time.Millisecond)
	assert.NoError(t, err)
}
