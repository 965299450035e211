package search

import (
	"context"

	"github.com/pders01/hubsearch/internal/storage"
)

// Options are the per-call parameters of a search. Limit applies per group.
type Options struct {
	Limit int
}

// Searcher is the minimal search API used by the autocomplete controller and
// the results page. Implementations must honour ctx cancellation.
type Searcher interface {
	Search(ctx context.Context, query string, opts Options) (*Results, error)
}

// UpdateListener can be implemented by search engines that maintain
// an external index and want to be notified about catalog changes.
type UpdateListener interface {
	OnListingsUpdated(listings []*storage.Listing)
}

// DeleteListener can be implemented to get notified when a feed source is removed.
type DeleteListener interface {
	OnSourceDeleted(sourceID string)
}

// DebugStatser provides lightweight stats for visibility/debugging.
type DebugStatser interface {
	DocCount() (int, error)
}
