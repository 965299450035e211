package feed

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pders01/hubsearch/internal/config"
	"github.com/pders01/hubsearch/internal/debuglog"
	"github.com/pders01/hubsearch/internal/plugins"
	"github.com/pders01/hubsearch/internal/plugins/servicehub"
	"github.com/pders01/hubsearch/internal/search"
	"github.com/pders01/hubsearch/internal/storage"
	"github.com/pders01/hubsearch/internal/validation"
)

const maxConcurrentRefresh = 5

// Manager imports tender feeds into the local catalog.
type Manager struct {
	store        *storage.Store
	fetcher      *Fetcher
	parser       *Parser
	config       *config.Config
	urlValidator *validation.URLValidator
	index        search.UpdateListener
	plugins      *plugins.Registry
	mu           sync.RWMutex
}

// NewManager creates a manager with the ServiceHub listing plugin registered.
func NewManager(store *storage.Store, cfg *config.Config) *Manager {
	registry := plugins.NewRegistry(cfg.Feed.HTTPTimeout)
	registry.Register(servicehub.New(cfg.Web.BaseURL))

	return &Manager{
		store:        store,
		fetcher:      NewFetcher(cfg),
		parser:       NewParser(),
		config:       cfg,
		urlValidator: validation.NewURLValidator(),
		plugins:      registry,
	}
}

// Plugins is the registry consulted by AddSource.
func (m *Manager) Plugins() *plugins.Registry {
	return m.plugins
}

// SetIndex registers the search index to keep in sync with imports. If it
// also implements search.DeleteListener it is told about removed sources.
func (m *Manager) SetIndex(l search.UpdateListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = l
}

// SetForceRefresh configures the manager to ignore ETag/Last-Modified headers
// and the refresh interval.
func (m *Manager) SetForceRefresh(force bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetcher.SetIgnoreCache(force)
}

// SetPermissiveValidation enables permissive URL validation for development/testing
func (m *Manager) SetPermissiveValidation(permissive bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if permissive {
		m.urlValidator = validation.NewPermissiveURLValidator()
	} else {
		m.urlValidator = validation.NewURLValidator()
	}
}

// AddSource validates url, lets a matching plugin resolve it to a feed,
// fetches the feed once and imports its items.
func (m *Manager) AddSource(ctx context.Context, url string) (*storage.Source, int, error) {
	m.mu.RLock()
	validator := m.urlValidator
	m.mu.RUnlock()

	normalizedURL, err := validator.ValidateAndNormalize(url)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid feed URL: %w", err)
	}

	info, err := m.plugins.Resolve(ctx, normalizedURL)
	if err != nil {
		return nil, 0, fmt.Errorf("resolving feed URL: %w", err)
	}
	feedURL := normalizedURL
	if info.FeedURL != normalizedURL {
		if feedURL, err = validator.ValidateAndNormalize(info.FeedURL); err != nil {
			return nil, 0, fmt.Errorf("invalid resolved feed URL: %w", err)
		}
		debuglog.Debugf("plugin %s resolved %s to %s", info.Plugin, normalizedURL, feedURL)
	}

	src := &storage.Source{
		ID:        generateSourceID(feedURL),
		URL:       feedURL,
		Title:     info.Title,
		Plugin:    info.Plugin,
		UpdatedAt: time.Now(),
	}

	n, err := m.fetchAndImport(ctx, src)
	if err != nil {
		return nil, 0, err
	}
	return src, n, nil
}

// RefreshSource re-imports one source unless it was fetched within the
// refresh interval. It returns the number of listings imported.
func (m *Manager) RefreshSource(ctx context.Context, id string) (int, error) {
	src, err := m.store.GetSource(id)
	if err != nil {
		return 0, fmt.Errorf("getting source: %w", err)
	}

	m.mu.RLock()
	force := m.fetcher.ignoreCache
	m.mu.RUnlock()

	if !force && time.Since(src.LastFetched) < m.config.Feed.RefreshInterval {
		return 0, nil
	}

	return m.fetchAndImport(ctx, src)
}

// RefreshAll refreshes every source, at most five at a time. Failures of
// single sources are collected and returned together.
func (m *Manager) RefreshAll(ctx context.Context) (int, error) {
	sources, err := m.store.GetAllSources()
	if err != nil {
		return 0, fmt.Errorf("getting sources: %w", err)
	}

	var (
		g        errgroup.Group
		imported atomic.Int64
		errMu    sync.Mutex
		errs     []error
	)
	g.SetLimit(maxConcurrentRefresh)

	for _, src := range sources {
		g.Go(func() error {
			n, err := m.RefreshSource(ctx, src.ID)
			if err != nil {
				errMu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", src.URL, err))
				errMu.Unlock()
				return nil
			}
			imported.Add(int64(n))
			return nil
		})
	}
	_ = g.Wait()

	return int(imported.Load()), errors.Join(errs...)
}

// RemoveSource deletes a source with its listings and drops them from the index.
func (m *Manager) RemoveSource(id string) error {
	if err := m.store.DeleteSource(id); err != nil {
		return fmt.Errorf("deleting source: %w", err)
	}
	m.mu.RLock()
	idx := m.index
	m.mu.RUnlock()
	if dl, ok := idx.(search.DeleteListener); ok {
		dl.OnSourceDeleted(id)
	}
	return nil
}

func (m *Manager) Sources() ([]*storage.Source, error) {
	return m.store.GetAllSources()
}

func (m *Manager) fetchAndImport(ctx context.Context, src *storage.Source) (int, error) {
	log := debuglog.WithFields(map[string]interface{}{"component": "feed", "source": src.URL})

	resp, updated, err := m.fetcher.Fetch(ctx, src)
	if err != nil {
		return 0, err
	}

	if !updated {
		log.Debugf("not modified")
		src.LastFetched = time.Now()
		if err := m.store.SaveSource(src); err != nil {
			return 0, fmt.Errorf("saving source metadata: %w", err)
		}
		return 0, nil
	}
	defer resp.Body.Close()

	parsed, err := m.parser.Parse(resp.Body, src.ID)
	if err != nil {
		return 0, err
	}

	if parsed.Title != "" && src.Plugin == "" {
		src.Title = parsed.Title
	}
	m.fetcher.UpdateSourceMetadata(src, resp)
	src.UpdatedAt = time.Now()

	if err := m.store.SaveSource(src); err != nil {
		return 0, fmt.Errorf("saving source: %w", err)
	}
	if err := m.store.SaveListings(parsed.Listings); err != nil {
		return 0, fmt.Errorf("saving listings: %w", err)
	}

	m.mu.RLock()
	idx := m.index
	m.mu.RUnlock()
	if idx != nil && len(parsed.Listings) > 0 {
		idx.OnListingsUpdated(parsed.Listings)
	}

	log.Infof("imported %d listings", len(parsed.Listings))
	return len(parsed.Listings), nil
}

func generateSourceID(url string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(url)))
}
