package feed

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/pders01/hubsearch/internal/config"
	"github.com/pders01/hubsearch/internal/storage"
)

type Fetcher struct {
	client      *http.Client
	userAgent   string
	ignoreCache bool
}

func NewFetcher(cfg *config.Config) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Feed.HTTPTimeout,
		},
		userAgent: cfg.Feed.UserAgent,
	}
}

// SetIgnoreCache makes Fetch skip the conditional request headers.
func (f *Fetcher) SetIgnoreCache(ignore bool) {
	f.ignoreCache = ignore
}

// Fetch downloads the source. updated is false when the server answered
// 304 Not Modified, in which case resp is nil.
func (f *Fetcher) Fetch(ctx context.Context, src *storage.Source) (resp *http.Response, updated bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	if !f.ignoreCache {
		if src.ETag != "" {
			req.Header.Set("If-None-Match", src.ETag)
		}
		if src.LastModified != "" {
			req.Header.Set("If-Modified-Since", src.LastModified)
		}
	}

	resp, err = f.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("fetching feed: %w", err)
	}

	if resp.StatusCode == http.StatusNotModified {
		resp.Body.Close()
		return nil, false, nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		return nil, false, fmt.Errorf("rate limited, retry after %s", RetryAfter(resp))
	}

	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, false, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	return resp, true, nil
}

// UpdateSourceMetadata stores the validators of resp for the next
// conditional request.
func (f *Fetcher) UpdateSourceMetadata(src *storage.Source, resp *http.Response) {
	if etag := resp.Header.Get("ETag"); etag != "" {
		src.ETag = etag
	}

	if lastMod := resp.Header.Get("Last-Modified"); lastMod != "" {
		src.LastModified = lastMod
	}

	src.LastFetched = time.Now()
}

// RetryAfter reads a Retry-After header given in seconds, defaulting to 15m.
func RetryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds >= 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return 15 * time.Minute
}
