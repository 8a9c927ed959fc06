package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetJSON_SendsHeadersAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		require.Equal(t, "a,b", r.URL.Query().Get("ids"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"e-1"}`))
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL, Headers: map[string]string{"X-Api-Key": "secret"}})
	require.NoError(t, err)

	var out struct {
		ID string `json:"id"`
	}
	err = c.GetJSON(context.Background(), "/internal/events", url.Values{"ids": {"a,b"}}, &out)
	require.NoError(t, err)
	require.Equal(t, "e-1", out.ID)
}

func TestDoJSON_Non2xxIsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL})
	require.NoError(t, err)

	err = c.GetJSON(context.Background(), "missing", nil, nil)
	require.Error(t, err)
	require.True(t, IsStatus(err, http.StatusNotFound))
	require.False(t, IsStatus(err, http.StatusInternalServerError))
}

func TestDoJSON_TimeoutIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	err = c.GetJSON(context.Background(), "/slow", nil, nil)
	require.Error(t, err)
	var he *HTTPError
	require.NotErrorAs(t, err, &he)
}

func TestNew_RejectsInvalidBaseURL(t *testing.T) {
	_, err := New(Options{BaseURL: "::not a url"})
	require.Error(t, err)
}
