package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pders01/hubsearch/internal/config"
	"github.com/pders01/hubsearch/internal/debuglog"
	"github.com/pders01/hubsearch/internal/search"
)

const maxErrorBody = 512

// Client talks to the remote Search API. It implements search.Searcher.
type Client struct {
	baseURL   string
	userAgent string
	token     string
	client    *http.Client
}

var _ search.Searcher = (*Client)(nil)

// NewClient builds a client for cfg.API. The http.Client timeout is a
// backstop; callers bound each request with their own context.
func NewClient(cfg *config.Config) *Client {
	return NewClientWithHTTP(cfg, &http.Client{Timeout: cfg.API.Timeout})
}

// NewClientWithHTTP is NewClient with a caller supplied http.Client.
func NewClientWithHTTP(cfg *config.Config, hc *http.Client) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.API.BaseURL, "/"),
		userAgent: cfg.API.UserAgent,
		token:     cfg.API.Token,
		client:    hc,
	}
}

// Search calls GET {base}/search?q=&limit=. The limit applies per group.
func (c *Client) Search(ctx context.Context, query string, opts search.Options) (*search.Results, error) {
	params := url.Values{"q": {query}}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	endpoint := c.baseURL + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	log := debuglog.WithFields(map[string]any{"component": "api", "request_id": requestID})
	start := time.Now()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "GET /search", Err: err}
	}
	defer resp.Body.Close()

	log.Debugf("GET /search q=%q status=%d in %s", query, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &ServerError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	res, err := search.DecodeResults(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &NetworkError{Op: "reading /search response", Err: ctxErr}
		}
		return nil, &ServerError{StatusCode: resp.StatusCode, Err: err}
	}
	return res, nil
}
