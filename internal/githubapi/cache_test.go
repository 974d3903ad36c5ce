package githubapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCachingClient(t *testing.T, handler http.Handler, ttl time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{
		APIBaseURL: srv.URL,
		RawBaseURL: srv.URL + "/raw",
		CacheTTL:   ttl,
		Retry:      fastRetry(),
	}, nil)
	require.NoError(t, err)
	return client
}

func TestCacheServesRepeatedLookups(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octocat/hello", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"default_branch": "main", "stargazers_count": 7}`)
	})
	client := newCachingClient(t, mux, time.Hour)

	for i := 0; i < 3; i++ {
		meta, err := client.RepoMetadata(context.Background(), "octocat", "hello")
		require.NoError(t, err)
		assert.Equal(t, 7, meta.Stars)
	}

	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, 1, client.CachedResponses())
}

func TestCacheExpires(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octocat/hello", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"default_branch": "main"}`)
	})
	client := newCachingClient(t, mux, time.Hour)

	_, err := client.RepoMetadata(context.Background(), "octocat", "hello")
	require.NoError(t, err)

	// Jump past the TTL.
	defer func() { timeNow = time.Now }()
	timeNow = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err = client.RepoMetadata(context.Background(), "octocat", "hello")
	require.NoError(t, err)

	assert.Equal(t, int32(2), hits.Load())
}

func TestCacheSkipsErrors(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octocat/hello", func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, `{"message": "Not Found"}`, http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"default_branch": "main"}`)
	})
	client := newCachingClient(t, mux, time.Hour)

	_, err := client.RepoMetadata(context.Background(), "octocat", "hello")
	assert.ErrorIs(t, err, ErrRepoNotFound)

	// The 404 must not have been cached.
	meta, err := client.RepoMetadata(context.Background(), "octocat", "hello")
	require.NoError(t, err)
	assert.Equal(t, "main", meta.DefaultBranch)
}

func TestClearCache(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octocat/hello", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"default_branch": "main"}`)
	})
	client := newCachingClient(t, mux, time.Hour)

	_, err := client.RepoMetadata(context.Background(), "octocat", "hello")
	require.NoError(t, err)
	client.ClearCache()
	assert.Equal(t, 0, client.CachedResponses())

	_, err = client.RepoMetadata(context.Background(), "octocat", "hello")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}
