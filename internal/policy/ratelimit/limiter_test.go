package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/contact-crawler/internal/crawler"
)

func TestLimiterWait(t *testing.T) {
	t.Parallel()

	// 10 RPS = one token every 100ms.
	l := New(Config{DefaultRPS: 10, DefaultBurst: 1})
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://test.com"))
	require.Less(t, time.Since(start), 50*time.Millisecond)

	start = time.Now()
	require.NoError(t, l.Wait(ctx, "https://www.test.com/about"))
	require.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestLimiterDifferentHosts(t *testing.T) {
	t.Parallel()

	l := New(Config{DefaultRPS: 1, DefaultBurst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://a.com/1"))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://b.com/1"))
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiterUnlimited(t *testing.T) {
	t.Parallel()

	l := New(Config{})
	start := time.Now()
	for range 50 {
		require.NoError(t, l.Wait(context.Background(), "https://a.com"))
	}
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestLimiterWaitCanceled(t *testing.T) {
	t.Parallel()

	l := New(Config{DefaultRPS: 0.1, DefaultBurst: 1})
	require.NoError(t, l.Wait(context.Background(), "https://slow.com"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, l.Wait(ctx, "https://slow.com"))
}

func TestHostKey(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in   string
		want string
	}{
		{"https://www.Acme.com/contact", "acme.com"},
		{"http://acme.com:8080/", "acme.com"},
		{"not a url", "unknown"},
		{"http://%zz", "unknown"},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, hostKey(tc.in))
		})
	}
}

type recordingFetcher struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *recordingFetcher) Fetch(_ context.Context, rawURL string) (crawler.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rawURL)
	if f.err != nil {
		return crawler.Page{}, f.err
	}
	return crawler.Page{URL: rawURL, StatusCode: 200, HTML: "<p>ok</p>"}, nil
}

func TestFetcherDelegates(t *testing.T) {
	t.Parallel()

	next := &recordingFetcher{}
	f := Wrap(next, New(Config{}))

	page, err := f.Fetch(context.Background(), "https://acme.com/contact")
	require.NoError(t, err)
	require.Equal(t, "<p>ok</p>", page.HTML)
	require.Equal(t, []string{"https://acme.com/contact"}, next.calls)
}

func TestFetcherPreservesOversized(t *testing.T) {
	t.Parallel()

	next := &recordingFetcher{err: crawler.ErrOversizedPage}
	_, err := Wrap(next, New(Config{})).Fetch(context.Background(), "https://acme.com")
	require.ErrorIs(t, err, crawler.ErrOversizedPage)
}

func TestFetcherCanceledSkipsFetch(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	next := &recordingFetcher{}
	limiter := New(Config{DefaultRPS: 0.1, DefaultBurst: 1})
	require.NoError(t, limiter.Wait(context.Background(), "https://acme.com"))

	_, err := Wrap(next, limiter).Fetch(ctx, "https://acme.com")
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, next.calls)
}
