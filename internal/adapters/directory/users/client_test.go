package users

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"participation-service/internal/ports/directory"
)

func TestGetUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/internal/users/u-1":
			_, _ = w.Write([]byte(`{"id":"u-1","name":" Ana ","email":"ana@example.com"}`))
		case "/internal/users/u-2":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)

	u, err := c.GetUser(context.Background(), "u-1")
	require.NoError(t, err)
	require.Equal(t, directory.UserFacts{ID: "u-1", Name: "Ana", Email: "ana@example.com"}, u)

	_, err = c.GetUser(context.Background(), "u-2")
	require.ErrorIs(t, err, ErrUpstream)

	_, err = c.GetUser(context.Background(), "u-3")
	require.ErrorIs(t, err, directory.ErrNotFound)
}

func TestGetUsers_EmptyIDsSkipsCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	got, err := c.GetUsers(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, got)
	require.False(t, called)
}
