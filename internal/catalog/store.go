// Package catalog keeps the provider's list of news sources: a bbolt copy
// of the last fetched catalog, refreshed when older than catalog.max_age,
// with built-in presets as a fallback.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/pders01/newsdesk/internal/news"
)

var (
	sourcesBucket = []byte("sources")
	metaBucket    = []byte("metadata")

	fetchedAtKey = []byte("fetched_at")
)

// ErrSourceNotFound is returned by GetSource for unknown ids.
var ErrSourceNotFound = errors.New("source not found")

type Store struct {
	db *bolt.DB
}

func NewStore(dbPath string) (*Store, error) {
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{sourcesBucket, metaBucket} {
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

// ReplaceSources swaps the stored catalog for sources and records fetchedAt.
func (s *Store) ReplaceSources(sources []news.ProviderSource, fetchedAt time.Time) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(sourcesBucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		b, err := tx.CreateBucket(sourcesBucket)
		if err != nil {
			return err
		}
		for _, src := range sources {
			data, err := json.Marshal(src)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(src.ID), data); err != nil {
				return err
			}
		}

		stamp, err := fetchedAt.UTC().MarshalText()
		if err != nil {
			return err
		}
		return tx.Bucket(metaBucket).Put(fetchedAtKey, stamp)
	})
}

func (s *Store) GetSource(id string) (*news.ProviderSource, error) {
	var src news.ProviderSource
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(sourcesBucket).Get([]byte(id))
		if data == nil {
			return ErrSourceNotFound
		}
		return json.Unmarshal(data, &src)
	})
	if err != nil {
		return nil, err
	}
	return &src, nil
}

// GetSources returns the stored catalog sorted by name, case-insensitively.
func (s *Store) GetSources() ([]news.ProviderSource, error) {
	var sources []news.ProviderSource
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(sourcesBucket).ForEach(func(_ []byte, v []byte) error {
			var src news.ProviderSource
			if err := json.Unmarshal(v, &src); err != nil {
				return nil
			}
			sources = append(sources, src)
			return nil
		})
	})
	SortSources(sources)
	return sources, err
}

// FetchedAt is when the catalog was last replaced, or zero if never.
func (s *Store) FetchedAt() (time.Time, error) {
	var t time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(metaBucket).Get(fetchedAtKey)
		if data == nil {
			return nil
		}
		return t.UnmarshalText(data)
	})
	return t, err
}

// SortSources orders by name, falling back to id.
func SortSources(sources []news.ProviderSource) {
	sort.SliceStable(sources, func(i, j int) bool {
		ni, nj := sources[i].Name, sources[j].Name
		if ni == "" {
			ni = sources[i].ID
		}
		if nj == "" {
			nj = sources[j].ID
		}
		return strings.ToLower(ni) < strings.ToLower(nj)
	})
}
