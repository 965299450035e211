package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pders01/hubsearch/internal/config"
	"github.com/pders01/hubsearch/internal/storage"
)

func TestFetcher_Fetch(t *testing.T) {
	tests := []struct {
		name           string
		src            *storage.Source
		serverResponse func(w http.ResponseWriter, r *http.Request)
		expectUpdated  bool
		expectError    string
	}{
		{
			name: "successful fetch with new content",
			src:  &storage.Source{ID: "test1"},
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("User-Agent") != "hubsearch-test/1.0" {
					t.Errorf("unexpected User-Agent %s", r.Header.Get("User-Agent"))
				}
				w.Header().Set("ETag", "\"123\"")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("<rss></rss>"))
			},
			expectUpdated: true,
		},
		{
			name: "not modified response with ETag",
			src:  &storage.Source{ID: "test2", ETag: "\"123\""},
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("If-None-Match") != "\"123\"" {
					t.Errorf("expected If-None-Match \"123\", got %s", r.Header.Get("If-None-Match"))
				}
				w.WriteHeader(http.StatusNotModified)
			},
		},
		{
			name: "not modified response with Last-Modified",
			src:  &storage.Source{ID: "test3", LastModified: "Wed, 01 Jan 2025 00:00:00 GMT"},
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("If-Modified-Since") != "Wed, 01 Jan 2025 00:00:00 GMT" {
					t.Errorf("expected If-Modified-Since header")
				}
				w.WriteHeader(http.StatusNotModified)
			},
		},
		{
			name: "server error",
			src:  &storage.Source{ID: "test4"},
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			expectError: "HTTP error: 500",
		},
		{
			name: "rate limit with retry-after",
			src:  &storage.Source{ID: "test5"},
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", "60")
				w.WriteHeader(http.StatusTooManyRequests)
			},
			expectError: "retry after 1m0s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResponse))
			defer server.Close()

			tt.src.URL = server.URL
			fetcher := NewFetcher(config.TestConfig())

			resp, updated, err := fetcher.Fetch(context.Background(), tt.src)

			if tt.expectError != "" {
				if err == nil || !strings.Contains(err.Error(), tt.expectError) {
					t.Errorf("expected error containing %q, got %v", tt.expectError, err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if updated != tt.expectUpdated {
				t.Errorf("expected updated=%v, got %v", tt.expectUpdated, updated)
			}
			if resp != nil {
				resp.Body.Close()
			}
		})
	}
}

func TestFetcher_IgnoreCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") != "" {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		_, _ = w.Write([]byte("<rss></rss>"))
	}))
	defer server.Close()

	fetcher := NewFetcher(config.TestConfig())
	fetcher.SetIgnoreCache(true)

	resp, updated, err := fetcher.Fetch(context.Background(), &storage.Source{URL: server.URL, ETag: "\"1\""})
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if !updated {
		t.Error("expected a full fetch when ignoring the cache")
	}
}

func TestFetcher_UpdateSourceMetadata(t *testing.T) {
	fetcher := NewFetcher(config.TestConfig())
	src := &storage.Source{ID: "test", URL: "http://tenders.example.org"}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", "\"new-etag\"")
		w.Header().Set("Last-Modified", "Thu, 02 Jan 2025 00:00:00 GMT")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	fetcher.UpdateSourceMetadata(src, resp)

	if src.ETag != "\"new-etag\"" {
		t.Errorf("expected ETag \"new-etag\", got %s", src.ETag)
	}
	if src.LastModified != "Thu, 02 Jan 2025 00:00:00 GMT" {
		t.Errorf("unexpected LastModified %s", src.LastModified)
	}
	if time.Since(src.LastFetched) > time.Second {
		t.Error("LastFetched not updated")
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		name       string
		retryAfter string
		expected   time.Duration
	}{
		{name: "seconds", retryAfter: "120", expected: 120 * time.Second},
		{name: "invalid", retryAfter: "invalid", expected: 15 * time.Minute},
		{name: "missing", retryAfter: "", expected: 15 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{Header: http.Header{}}
			if tt.retryAfter != "" {
				resp.Header.Set("Retry-After", tt.retryAfter)
			}
			if got := RetryAfter(resp); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}
