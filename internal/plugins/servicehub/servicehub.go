// Package servicehub turns ServiceHub project listing pages into their RSS
// feeds so open projects can be mirrored into the local catalog.
package servicehub

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pders01/hubsearch/internal/plugins"
)

const name = "servicehub"

// Plugin handles <web base>/projects, optionally filtered by ?category=.
type Plugin struct {
	base *url.URL
}

// New returns a plugin for the site at baseURL. An unparsable baseURL yields
// a plugin that handles nothing.
func New(baseURL string) *Plugin {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil || u.Host == "" {
		return &Plugin{}
	}
	return &Plugin{base: u}
}

func (p *Plugin) Name() string { return name }

func (p *Plugin) Priority() int { return 50 }

func (p *Plugin) CanHandle(raw string) bool {
	if p.base == nil {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, p.base.Host) &&
		strings.TrimSuffix(u.Path, "/") == p.base.Path+"/projects"
}

func (p *Plugin) Resolve(_ context.Context, raw string, _ *http.Client) (*plugins.SourceInfo, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", raw, err)
	}

	feed := *u
	feed.Path = p.base.Path + "/projects.rss"
	feed.Fragment = ""

	info := &plugins.SourceInfo{
		OriginalURL: raw,
		FeedURL:     feed.String(),
		Title:       "ServiceHub projects",
		Description: "Open projects on " + p.base.Host,
		Plugin:      name,
		Metadata:    map[string]string{"plugin": name},
	}
	if c := u.Query().Get("category"); c != "" {
		info.Title += ": " + c
		info.Metadata["category"] = c
	}
	return info, nil
}
