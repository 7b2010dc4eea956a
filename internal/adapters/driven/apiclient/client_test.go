package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

type echo struct {
	Value string `json:"value"`
}

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/things", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "2", r.Header.Get("X-Version"))

		var in echo
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(echo{Value: in.Value + "!"})
	}))
	defer srv.Close()

	c := New("test", srv.URL+"/", time.Second, WithBearerToken("tok"), WithHeader("X-Version", "2"))
	var out echo
	err := c.PostJSON(context.Background(), "/v1/things", echo{Value: "hi"}, &out)

	require.NoError(t, err)
	assert.Equal(t, "hi!", out.Value)
}

func TestGet_NilOutChecksStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Empty(t, r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	assert.NoError(t, New("test", srv.URL, time.Second).Get(context.Background(), "/ping", nil))
}

func TestDo_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		want      error
		transient bool
	}{
		{"throttled", http.StatusTooManyRequests, domain.ErrRateLimited, true},
		{"outage", http.StatusServiceUnavailable, domain.ErrTransient, true},
		{"overloaded", 529, domain.ErrTransient, true},
		{"bad request", http.StatusBadRequest, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, `{"error":"nope"}`, tt.status)
			}))
			defer srv.Close()

			err := New("test", srv.URL, time.Second).PostJSON(context.Background(), "/x", echo{}, nil)

			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
			assert.Equal(t, tt.transient, domain.IsTransient(err))
			assert.Contains(t, err.Error(), "test:")
		})
	}
}

func TestDo_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := New("test", url, time.Second).Get(context.Background(), "/", nil)

	assert.ErrorIs(t, err, domain.ErrTransient)
}

func TestDo_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{`))
	}))
	defer srv.Close()

	var out echo
	err := New("test", srv.URL, time.Second).Get(context.Background(), "/", &out)

	require.Error(t, err)
	assert.False(t, domain.IsTransient(err))
}
