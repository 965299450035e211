package search

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/pders01/hubsearch/internal/debuglog"
	"github.com/pders01/hubsearch/internal/storage"
)

// BleveEngine searches the locally cached catalog.
type BleveEngine struct {
	store *storage.Store
	idx   bleve.Index
}

// NewBleveEngine creates or opens a Bleve index at indexPath and indexes the
// current catalog. An empty indexPath keeps the index in memory.
func NewBleveEngine(store *storage.Store, indexPath string) (*BleveEngine, error) {
	var idx bleve.Index
	var err error

	if indexPath == "" {
		idx, err = bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, err
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(indexPath), 0o755); err != nil {
			return nil, err
		}

		idx, err = bleve.Open(indexPath)
		if err != nil {
			idx, err = bleve.New(indexPath, buildIndexMapping())
			if err != nil {
				return nil, err
			}
		}
	}

	be := &BleveEngine{store: store, idx: idx}
	if err := be.Reindex(); err != nil {
		idx.Close()
		return nil, err
	}
	return be, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	kind := bleve.NewTextFieldMapping()
	kind.Analyzer = keyword.Name
	kind.Store = true

	title := bleve.NewTextFieldMapping()
	title.Analyzer = standard.Name
	title.Store = true
	title.IncludeTermVectors = true

	name := bleve.NewTextFieldMapping()
	name.Analyzer = standard.Name
	name.Store = true

	desc := bleve.NewTextFieldMapping()
	desc.Analyzer = standard.Name
	desc.Store = true

	avatar := bleve.NewTextFieldMapping()
	avatar.Index = false
	avatar.Store = true

	sourceID := bleve.NewTextFieldMapping()
	sourceID.Analyzer = keyword.Name
	sourceID.Store = false

	dm.AddFieldMappingsAt("type", kind)
	dm.AddFieldMappingsAt("title", title)
	dm.AddFieldMappingsAt("name", name)
	dm.AddFieldMappingsAt("description", desc)
	dm.AddFieldMappingsAt("avatar", avatar)
	dm.AddFieldMappingsAt("source_id", sourceID)

	im.DefaultMapping = dm
	return im
}

func docFor(l *storage.Listing) map[string]any {
	return map[string]any{
		"type":        l.Kind,
		"id":          l.ID,
		"title":       l.Title,
		"name":        l.Name,
		"description": l.Description,
		"avatar":      l.Avatar,
		"source_id":   l.SourceID,
	}
}

// Reindex rebuilds the index from every listing in the store.
func (b *BleveEngine) Reindex() error {
	listings, err := b.store.GetListings("", 0)
	if err != nil {
		return err
	}

	batch := b.idx.NewBatch()
	for _, l := range listings {
		if err := batch.Index(l.Key(), docFor(l)); err != nil {
			return err
		}
	}
	return b.idx.Batch(batch)
}

// Search runs one query per kind so each group is filled up to opts.Limit.
func (b *BleveEngine) Search(ctx context.Context, query string, opts Options) (*Results, error) {
	res := Empty()
	if len([]rune(strings.TrimSpace(query))) < 2 {
		return res, nil
	}

	text := textQuery(query)
	if text == nil {
		return res, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 5
	}

	for _, kind := range Kinds {
		kq := bleve.NewTermQuery(string(kind))
		kq.SetField("type")

		req := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(text, kq), limit, 0, false)
		req.Fields = []string{"id", "title", "name", "description", "avatar"}

		hits, err := b.idx.SearchInContext(ctx, req)
		if err != nil {
			return nil, err
		}

		items := make([]Item, 0, len(hits.Hits))
		for _, h := range hits.Hits {
			it := Item{Type: kind}
			it.ID, _ = h.Fields["id"].(string)
			it.Title, _ = h.Fields["title"].(string)
			it.Name, _ = h.Fields["name"].(string)
			it.Description, _ = h.Fields["description"].(string)
			it.Avatar, _ = h.Fields["avatar"].(string)
			if it.ID == "" {
				it.ID = strings.TrimPrefix(h.ID, string(kind)+":")
			}
			items = append(items, it)
		}

		switch kind {
		case KindProject:
			res.Projects = items
		case KindService:
			res.Services = items
		case KindProvider:
			res.Providers = items
		}
	}

	return res, nil
}

// textQuery builds an OR of per-term matches across text fields with boosts.
func textQuery(query string) bleveQuery.Query {
	var qs []bleveQuery.Query
	for _, tok := range tokenize(query) {
		for _, f := range []struct {
			field string
			boost float64
		}{
			{"title", 4.0},
			{"name", 4.0},
			{"description", 1.5},
		} {
			mq := bleve.NewMatchQuery(tok)
			mq.SetField(f.field)
			mq.SetBoost(f.boost)
			qs = append(qs, mq)

			pq := bleve.NewPrefixQuery(tok)
			pq.SetField(f.field)
			pq.SetBoost(f.boost * 0.8)
			qs = append(qs, pq)
		}
	}
	if len(qs) == 0 {
		return nil
	}
	return bleve.NewDisjunctionQuery(qs...)
}

// OnListingsUpdated indexes the provided listings.
func (b *BleveEngine) OnListingsUpdated(listings []*storage.Listing) {
	batch := b.idx.NewBatch()
	for _, l := range listings {
		_ = batch.Index(l.Key(), docFor(l))
	}
	if err := b.idx.Batch(batch); err != nil {
		debuglog.Warnf("indexing %d listings: %v", len(listings), err)
	}
}

// OnSourceDeleted removes every document imported from the source.
func (b *BleveEngine) OnSourceDeleted(sourceID string) {
	tq := bleve.NewTermQuery(sourceID)
	tq.SetField("source_id")

	const size = 1000
	for {
		req := bleve.NewSearchRequestOptions(tq, size, 0, false)
		res, err := b.idx.Search(req)
		if err != nil || res == nil || len(res.Hits) == 0 {
			return
		}
		batch := b.idx.NewBatch()
		for _, h := range res.Hits {
			batch.Delete(h.ID)
		}
		if err := b.idx.Batch(batch); err != nil {
			debuglog.Warnf("removing docs of source %s: %v", sourceID, err)
			return
		}
		if len(res.Hits) < size {
			return
		}
	}
}

// Remove drops a single listing from the index.
func (b *BleveEngine) Remove(kind, id string) error {
	return b.idx.Delete(kind + ":" + id)
}

// DocCount reports total documents in the index.
func (b *BleveEngine) DocCount() (int, error) {
	n, err := b.idx.DocCount()
	return int(n), err
}

func (b *BleveEngine) Close() error {
	return b.idx.Close()
}

// tokenize breaks text into lower-cased searchable terms, skipping single characters.
func tokenize(text string) []string {
	var terms []string
	current := strings.Builder{}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(unicode.ToLower(r))
		} else if current.Len() > 0 {
			if term := current.String(); len([]rune(term)) > 1 {
				terms = append(terms, term)
			}
			current.Reset()
		}
	}

	if term := current.String(); len([]rune(term)) > 1 {
		terms = append(terms, term)
	}

	return terms
}
