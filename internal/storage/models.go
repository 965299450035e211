package storage

import (
	"time"
)

// Listing is a catalog entry cached locally: a project (tender), a service
// offering or a provider profile.
type Listing struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Name        string    `json:"name,omitempty"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Avatar      string    `json:"avatar,omitempty"`
	URL         string    `json:"url,omitempty"`
	SourceID    string    `json:"source_id,omitempty"`
	Published   time.Time `json:"published"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Key is the bucket key for the listing; IDs are only unique within a kind.
func (l *Listing) Key() string {
	return l.Kind + ":" + l.ID
}

// Source is a tender feed the catalog is populated from.
type Source struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	Plugin       string    `json:"plugin,omitempty"`
	LastFetched  time.Time `json:"last_fetched"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"last_modified"`
	UpdatedAt    time.Time `json:"updated_at"`
}
