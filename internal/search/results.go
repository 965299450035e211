package search

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/pders01/hubsearch/internal/storage"
)

// Kind is the category a suggestion belongs to.
type Kind string

const (
	KindProject  Kind = "project"
	KindService  Kind = "service"
	KindProvider Kind = "provider"
)

// Kinds lists the groups in display order.
var Kinds = []Kind{KindProject, KindService, KindProvider}

// Label is the human readable group heading.
func (k Kind) Label() string {
	switch k {
	case KindProject:
		return "Projects"
	case KindService:
		return "Services"
	case KindProvider:
		return "Providers"
	default:
		return "Other"
	}
}

// Item is a single suggestion. Type is attached when the item is grouped,
// it is never taken from the raw payload.
type Item struct {
	ID          string `json:"id"`
	Type        Kind   `json:"type"`
	Name        string `json:"name,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

// UnmarshalJSON accepts both numeric and string ids.
func (it *Item) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          json.RawMessage `json:"id"`
		Type        Kind            `json:"type"`
		Name        string          `json:"name"`
		Title       string          `json:"title"`
		Description string          `json:"description"`
		Avatar      string          `json:"avatar"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*it = Item{
		Type:        raw.Type,
		Name:        raw.Name,
		Title:       raw.Title,
		Description: raw.Description,
		Avatar:      raw.Avatar,
	}

	id := bytes.TrimSpace(raw.ID)
	switch {
	case len(id) == 0 || bytes.Equal(id, []byte("null")):
		it.ID = ""
	case id[0] == '"':
		var s string
		if err := json.Unmarshal(id, &s); err != nil {
			return fmt.Errorf("decoding item id: %w", err)
		}
		it.ID = s
	default:
		if _, err := strconv.ParseFloat(string(id), 64); err != nil {
			return fmt.Errorf("item id must be a string or number, got %s", id)
		}
		it.ID = string(id)
	}
	return nil
}

// Label is what the dropdown shows for the item.
func (it Item) Label() string {
	switch {
	case it.Title != "":
		return it.Title
	case it.Name != "":
		return it.Name
	default:
		return it.ID
	}
}

// Results is a categorized result set. After Normalize all three groups are
// non-nil so consumers never branch on a missing group.
type Results struct {
	Projects  []Item `json:"projects"`
	Services  []Item `json:"services"`
	Providers []Item `json:"providers"`
}

// Group pairs a kind with its items for rendering.
type Group struct {
	Kind  Kind
	Items []Item
}

// Empty returns a result set with all groups present and empty.
func Empty() *Results {
	return &Results{Projects: []Item{}, Services: []Item{}, Providers: []Item{}}
}

// Normalize fills missing groups and stamps every item with its group's kind.
func (r *Results) Normalize() *Results {
	r.Projects = stamp(r.Projects, KindProject)
	r.Services = stamp(r.Services, KindService)
	r.Providers = stamp(r.Providers, KindProvider)
	return r
}

func stamp(items []Item, kind Kind) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		it.Type = kind
		out[i] = it
	}
	return out
}

// Total counts items across all groups.
func (r *Results) Total() int {
	if r == nil {
		return 0
	}
	return len(r.Projects) + len(r.Services) + len(r.Providers)
}

// Flatten concatenates projects, services and providers in that order. The
// index into this slice is the unit of keyboard navigation.
func (r *Results) Flatten() []Item {
	if r == nil {
		return nil
	}
	out := make([]Item, 0, r.Total())
	out = append(out, r.Projects...)
	out = append(out, r.Services...)
	out = append(out, r.Providers...)
	return out
}

// Groups returns the non-empty groups in display order.
func (r *Results) Groups() []Group {
	if r == nil {
		return nil
	}
	var groups []Group
	for _, g := range []Group{
		{Kind: KindProject, Items: r.Projects},
		{Kind: KindService, Items: r.Services},
		{Kind: KindProvider, Items: r.Providers},
	} {
		if len(g.Items) > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}

// Truncate caps every group at limit items. A limit <= 0 leaves r untouched.
func (r *Results) Truncate(limit int) *Results {
	if limit <= 0 {
		return r
	}
	cut := func(items []Item) []Item {
		if len(items) > limit {
			return items[:limit]
		}
		return items
	}
	r.Projects = cut(r.Projects)
	r.Services = cut(r.Services)
	r.Providers = cut(r.Providers)
	return r
}

// DecodeResults reads a Search API payload and normalizes it.
func DecodeResults(r io.Reader) (*Results, error) {
	var res Results
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return nil, fmt.Errorf("decoding results: %w", err)
	}
	return res.Normalize(), nil
}

// ItemFromListing converts a cached catalog listing into a suggestion.
func ItemFromListing(l *storage.Listing) Item {
	return Item{
		ID:          l.ID,
		Type:        Kind(l.Kind),
		Name:        l.Name,
		Title:       l.Title,
		Description: l.Description,
		Avatar:      l.Avatar,
	}
}

// ListingsFromResults converts a result set into catalog listings, e.g. when
// importing a Search API dump into the local catalog.
func ListingsFromResults(r *Results) []*storage.Listing {
	flat := r.Flatten()
	out := make([]*storage.Listing, 0, len(flat))
	for _, it := range flat {
		if it.ID == "" {
			continue
		}
		out = append(out, &storage.Listing{
			ID:          it.ID,
			Kind:        string(it.Type),
			Name:        it.Name,
			Title:       it.Title,
			Description: it.Description,
			Avatar:      it.Avatar,
		})
	}
	return out
}
