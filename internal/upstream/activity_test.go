package upstream

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListStarred(t *testing.T) {
	gh := newFakeGitHub(t)
	gh.mux.HandleFunc("/user/starred", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "updated", q.Get("sort"))
		assert.Equal(t, "asc", q.Get("direction"))
		assert.Equal(t, "10", q.Get("per_page"))
		writeJSON(t, w, []map[string]any{{
			"starred_at": "2024-05-06T07:08:09Z",
			"repo":       map[string]any{"full_name": "octocat/hello-world"},
		}})
	})

	c := newTestClient(t, gh.config("tok"), nil)
	starred, err := c.ListStarred(context.Background(), ListStarredParams{Sort: "updated", Direction: "asc", PerPage: 10})
	require.NoError(t, err)
	require.Len(t, starred, 1)
	assert.Equal(t, "octocat/hello-world", starred[0].GetRepository().GetFullName())
}

func TestListStarred_RetriesServerErrors(t *testing.T) {
	gh := newFakeGitHub(t)
	var calls atomic.Int32
	gh.mux.HandleFunc("/user/starred", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(t, w, []map[string]any{})
	})

	var slept []time.Duration
	c := newTestClient(t, gh.config("tok"), &slept)
	starred, err := c.ListStarred(context.Background(), ListStarredParams{})
	require.NoError(t, err)
	assert.Empty(t, starred)
	assert.Equal(t, []time.Duration{time.Second}, slept)
}
