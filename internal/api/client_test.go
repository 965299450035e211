package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/hubsearch/internal/config"
	"github.com/pders01/hubsearch/internal/search"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *config.Config) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := config.TestConfig()
	cfg.API.BaseURL = srv.URL + "/v1/"
	return NewClient(cfg), cfg
}

func TestClient_Search(t *testing.T) {
	var got *http.Request
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"projects":[{"id":7,"title":"Project X"}],"services":[],"providers":[{"id":"42","name":"Designhaus"}]}`))
	})

	res, err := c.Search(context.Background(), "web design", search.Options{Limit: 5})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "/v1/search", got.URL.Path)
	assert.Equal(t, "web design", got.URL.Query().Get("q"))
	assert.Equal(t, "5", got.URL.Query().Get("limit"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
	assert.Equal(t, "hubsearch-test/1.0", got.Header.Get("User-Agent"))
	assert.Empty(t, got.Header.Get("Authorization"))
	_, uuidErr := uuid.Parse(got.Header.Get("X-Request-ID"))
	assert.NoError(t, uuidErr)

	assert.Equal(t, 2, res.Total())
	assert.Equal(t, "7", res.Projects[0].ID)
	assert.Equal(t, search.KindProvider, res.Providers[0].Type)
	assert.NotNil(t, res.Services)
}

func TestClient_BearerToken(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	cfg := config.TestConfig()
	cfg.API.BaseURL = srv.URL
	cfg.API.Token = "s3cret"

	res, err := NewClient(cfg).Search(context.Background(), "design", search.Options{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer s3cret", auth)
	assert.Equal(t, 0, res.Total())
}

func TestClient_ServerError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	_, err := c.Search(context.Background(), "design", search.Options{Limit: 5})
	require.Error(t, err)

	var se *ServerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.Equal(t, "upstream exploded", se.Body)
	assert.True(t, IsTransient(err))
}

func TestClient_MalformedBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	})

	_, err := c.Search(context.Background(), "design", search.Options{Limit: 5})
	var se *ServerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusOK, se.StatusCode)
	assert.Error(t, se.Err)
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	cfg := config.TestConfig()
	cfg.API.BaseURL = base

	_, err := NewClient(cfg).Search(context.Background(), "design", search.Options{Limit: 5})
	var ne *NetworkError
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, "GET /search", ne.Op)
	assert.True(t, IsTransient(err))
}

func TestClient_ContextCancelAbortsRequest(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Search(ctx, "design", search.Options{Limit: 5})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), time.Second)
}

func TestServerError_Message(t *testing.T) {
	assert.Equal(t, "search API: status 500", (&ServerError{StatusCode: 500}).Error())
	assert.Equal(t, "search API: status 404: nope", (&ServerError{StatusCode: 404, Body: "nope"}).Error())
	assert.False(t, IsTransient(errors.New("other")))
}
