// Package plugins resolves user-supplied tender source URLs (listing pages,
// portal searches) into fetchable feed URLs before they are imported.
package plugins

import (
	"context"
	"net/http"
	"time"
)

// SourceInfo is what a plugin knows about a tender source. FeedURL is the
// RSS or Atom document to fetch; Plugin names the plugin that resolved it and
// is empty when none did.
type SourceInfo struct {
	OriginalURL string
	FeedURL     string
	Title       string
	Description string
	Plugin      string
	Metadata    map[string]string
}

// Plugin handles the URLs of one tender portal.
type Plugin interface {
	Name() string
	CanHandle(url string) bool
	// Resolve may issue HTTP requests with client, e.g. to follow redirects.
	Resolve(ctx context.Context, url string, client *http.Client) (*SourceInfo, error)
	// Priority breaks ties when several plugins can handle a URL; higher wins.
	Priority() int
}

type Registry struct {
	plugins []Plugin
	client  *http.Client
}

func NewRegistry(timeout time.Duration) *Registry {
	return &Registry{client: &http.Client{Timeout: timeout}}
}

func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
}

// Find returns the highest priority plugin that can handle url, or nil.
func (r *Registry) Find(url string) Plugin {
	var best Plugin
	highest := -1
	for _, p := range r.plugins {
		if p.CanHandle(url) && p.Priority() > highest {
			best, highest = p, p.Priority()
		}
	}
	return best
}

// Resolve runs the matching plugin. Without one, url is used as the feed as is.
func (r *Registry) Resolve(ctx context.Context, url string) (*SourceInfo, error) {
	p := r.Find(url)
	if p == nil {
		return &SourceInfo{OriginalURL: url, FeedURL: url, Metadata: map[string]string{}}, nil
	}
	info, err := p.Resolve(ctx, url, r.client)
	if err != nil {
		return nil, err
	}
	if info.Plugin == "" {
		info.Plugin = p.Name()
	}
	return info, nil
}

func (r *Registry) Plugins() []Plugin {
	return append([]Plugin(nil), r.plugins...)
}
