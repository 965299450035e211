package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	bolt "go.etcd.io/bbolt"
)

var (
	listingsBucket = []byte("listings")
	sourcesBucket  = []byte("sources")
	recentBucket   = []byte("recent")

	recentSearchesKey = []byte("searches")
)

// ErrNotFound is returned when a listing or source does not exist.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *bolt.DB
}

func NewStore(dbPath string) (*Store, error) {
	return NewStoreWithTimeout(dbPath, 1*time.Second)
}

// NewStoreWithTimeout opens the database, waiting at most timeout for the file lock.
func NewStoreWithTimeout(dbPath string, timeout time.Duration) (*Store, error) {
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{listingsBucket, sourcesBucket, recentBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SaveListings(listings []*Listing) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(listingsBucket)
		for _, l := range listings {
			if l.ID == "" || l.Kind == "" {
				return fmt.Errorf("listing needs id and kind: %+v", l)
			}
			data, err := json.Marshal(l)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(l.Key()), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetListing(kind, id string) (*Listing, error) {
	var listing Listing
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(listingsBucket).Get([]byte(kind + ":" + id))
		if data == nil {
			return fmt.Errorf("listing %s:%s: %w", kind, id, ErrNotFound)
		}
		return json.Unmarshal(data, &listing)
	})
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// GetListings returns listings of the given kind (all kinds when kind is empty),
// newest first. A limit <= 0 means no limit.
func (s *Store) GetListings(kind string, limit int) ([]*Listing, error) {
	var listings []*Listing
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(listingsBucket).Cursor()
		prefix := []byte(kind + ":")
		var k, v []byte
		if kind == "" {
			k, v = c.First()
		} else {
			k, v = c.Seek(prefix)
		}
		for ; k != nil; k, v = c.Next() {
			if kind != "" && !strings.HasPrefix(string(k), string(prefix)) {
				break
			}
			var l Listing
			if err := json.Unmarshal(v, &l); err != nil {
				continue
			}
			listings = append(listings, &l)
		}
		return nil
	})
	sort.SliceStable(listings, func(i, j int) bool {
		return listings[i].Published.After(listings[j].Published)
	})
	if limit > 0 && len(listings) > limit {
		listings = listings[:limit]
	}
	return listings, err
}

func (s *Store) DeleteListing(kind, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(listingsBucket).Delete([]byte(kind + ":" + id))
	})
}

func (s *Store) SaveSource(src *Source) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(src)
		if err != nil {
			return err
		}
		return tx.Bucket(sourcesBucket).Put([]byte(src.ID), data)
	})
}

func (s *Store) GetSource(id string) (*Source, error) {
	var src Source
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(sourcesBucket).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("source %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &src)
	})
	if err != nil {
		return nil, err
	}
	return &src, nil
}

func (s *Store) GetAllSources() ([]*Source, error) {
	var sources []*Source
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(sourcesBucket).ForEach(func(_ []byte, v []byte) error {
			var src Source
			if err := json.Unmarshal(v, &src); err != nil {
				return err
			}
			sources = append(sources, &src)
			return nil
		})
	})
	sort.Slice(sources, func(i, j int) bool {
		ti, tj := sources[i].Title, sources[j].Title
		if ti == "" {
			ti = sources[i].URL
		}
		if tj == "" {
			tj = sources[j].URL
		}
		return strings.ToLower(ti) < strings.ToLower(tj)
	})
	return sources, err
}

// DeleteSource removes the source and every listing imported from it.
func (s *Store) DeleteSource(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(sourcesBucket).Delete([]byte(id)); err != nil {
			return err
		}

		b := tx.Bucket(listingsBucket)
		var doomed [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var l Listing
			if err := json.Unmarshal(v, &l); err != nil {
				return nil
			}
			if l.SourceID == id {
				doomed = append(doomed, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		// Deleting while a cursor walks the bucket skips entries
		for _, k := range doomed {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadRecent returns the raw serialized recent-search slot, or nil if unset.
func (s *Store) LoadRecent() ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if data := tx.Bucket(recentBucket).Get(recentSearchesKey); data != nil {
			out = append([]byte(nil), data...)
		}
		return nil
	})
	return out, err
}

// SaveRecent overwrites the recent-search slot with data.
func (s *Store) SaveRecent(data []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(recentBucket).Put(recentSearchesKey, data)
	})
}
