package catalog

import (
	"context"
	"time"

	"github.com/pders01/newsdesk/internal/debuglog"
	"github.com/pders01/newsdesk/internal/news"
)

// Lister fetches the provider's source catalog.
type Lister interface {
	Sources(ctx context.Context) ([]news.ProviderSource, error)
}

// Catalog serves the source list from the store, refreshing it from the
// provider when stale.
type Catalog struct {
	store  *Store
	lister Lister
	maxAge time.Duration
	now    func() time.Time
}

// New builds a Catalog. store may be nil, in which case every call goes to
// the provider and falls back to the presets.
func New(store *Store, lister Lister, maxAge time.Duration) *Catalog {
	return &Catalog{store: store, lister: lister, maxAge: maxAge, now: time.Now}
}

// Sources returns the catalog. A provider failure is not an error as long
// as a stored copy or the presets can answer; the returned bool reports
// whether the data came from the provider or a fresh stored copy.
func (c *Catalog) Sources(ctx context.Context, refresh bool) ([]news.ProviderSource, bool, error) {
	if !refresh && c.store != nil {
		if sources, ok := c.fresh(); ok {
			return sources, true, nil
		}
	}

	if c.lister != nil {
		sources, err := c.lister.Sources(ctx)
		if err == nil && len(sources) > 0 {
			SortSources(sources)
			if c.store != nil {
				if err := c.store.ReplaceSources(sources, c.now()); err != nil {
					debuglog.Warnf("saving source catalog: %v", err)
				}
			}
			debuglog.Infof("source catalog refreshed: %d sources", len(sources))
			return sources, true, nil
		}
		if err != nil {
			debuglog.Warnf("fetching source catalog: %v", err)
		}
	}

	if c.store != nil {
		if stored, err := c.store.GetSources(); err == nil && len(stored) > 0 {
			return stored, false, nil
		}
	}

	presets, err := Presets()
	if err != nil {
		return nil, false, err
	}
	SortSources(presets)
	return presets, false, nil
}

func (c *Catalog) fresh() ([]news.ProviderSource, bool) {
	fetchedAt, err := c.store.FetchedAt()
	if err != nil || fetchedAt.IsZero() {
		return nil, false
	}
	if c.maxAge > 0 && c.now().Sub(fetchedAt) > c.maxAge {
		return nil, false
	}
	sources, err := c.store.GetSources()
	if err != nil || len(sources) == 0 {
		return nil, false
	}
	return sources, true
}
