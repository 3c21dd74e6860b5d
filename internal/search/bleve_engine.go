package search

import (
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/pders01/newsdesk/internal/news"
)

// SourceIndex is an in-memory bleve index over the source catalog. The
// catalog is small and rebuilt on every refresh, so nothing is written to disk.
type SourceIndex struct {
	mu      sync.RWMutex
	idx     bleve.Index
	sources map[string]news.ProviderSource
	order   []string
}

func NewSourceIndex() (*SourceIndex, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating source index: %w", err)
	}
	return &SourceIndex{idx: idx, sources: map[string]news.ProviderSource{}}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	name := bleve.NewTextFieldMapping()
	name.Analyzer = standard.Name
	name.IncludeTermVectors = true

	id := bleve.NewTextFieldMapping()
	id.Analyzer = standard.Name

	desc := bleve.NewTextFieldMapping()
	desc.Analyzer = standard.Name

	category := bleve.NewTextFieldMapping()
	category.Analyzer = standard.Name

	country := bleve.NewTextFieldMapping()
	country.Analyzer = standard.Name

	dm.AddFieldMappingsAt("name", name)
	dm.AddFieldMappingsAt("id", id)
	dm.AddFieldMappingsAt("description", desc)
	dm.AddFieldMappingsAt("category", category)
	dm.AddFieldMappingsAt("country", country)

	im.DefaultMapping = dm
	return im
}

// Index replaces the indexed catalog with sources.
func (s *SourceIndex) Index(sources []news.ProviderSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.idx.NewBatch()
	for _, id := range s.order {
		batch.Delete(id)
	}

	s.sources = make(map[string]news.ProviderSource, len(sources))
	s.order = s.order[:0]
	for _, src := range sources {
		if src.ID == "" {
			continue
		}
		if _, dup := s.sources[src.ID]; !dup {
			s.order = append(s.order, src.ID)
		}
		s.sources[src.ID] = src
		if err := batch.Index(src.ID, map[string]any{
			"name":        src.Name,
			"id":          src.ID,
			"description": src.Description,
			"category":    src.Category,
			"country":     src.Country,
		}); err != nil {
			return fmt.Errorf("indexing %s: %w", src.ID, err)
		}
	}
	return s.idx.Batch(batch)
}

// Search returns sources matching query, best first. An empty query lists
// the catalog in its indexed order. Queries shorter than two characters
// match on name or id prefix.
func (s *SourceIndex) Search(query string, limit int) ([]*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query = strings.TrimSpace(query)
	if query == "" {
		return s.all(limit), nil
	}
	if len(query) < 2 {
		return s.prefixScan(query, limit), nil
	}

	tokens := tokenize(query)
	var qs []bleveQuery.Query
	for _, tok := range tokens {
		qs = append(qs, fieldQueries(tok, "name", 4.0)...)
		qs = append(qs, fieldQueries(tok, "id", 3.0)...)
		qs = append(qs, fieldQueries(tok, "description", 1.5)...)
		qs = append(qs, fieldQueries(tok, "category", 1.0)...)
		qs = append(qs, fieldQueries(tok, "country", 0.5)...)
	}
	if len(qs) == 0 {
		return []*Result{}, nil
	}

	if limit <= 0 {
		limit = len(s.order)
	}
	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), limit, 0, false)
	res, err := s.idx.Search(req)
	if err != nil {
		return nil, err
	}

	out := make([]*Result, 0, len(res.Hits))
	for _, h := range res.Hits {
		src, ok := s.sources[h.ID]
		if !ok {
			continue
		}
		out = append(out, &Result{Source: src, Score: h.Score})
	}
	return out, nil
}

func fieldQueries(tok, field string, boost float64) []bleveQuery.Query {
	m := bleve.NewMatchQuery(tok)
	m.SetField(field)
	m.SetBoost(boost)

	p := bleve.NewPrefixQuery(strings.ToLower(tok))
	p.SetField(field)
	p.SetBoost(boost * 0.9)

	return []bleveQuery.Query{m, p}
}

func (s *SourceIndex) all(limit int) []*Result {
	out := make([]*Result, 0, len(s.order))
	for _, id := range s.order {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, &Result{Source: s.sources[id]})
	}
	return out
}

func (s *SourceIndex) prefixScan(query string, limit int) []*Result {
	q := strings.ToLower(query)
	var out []*Result
	for _, id := range s.order {
		if limit > 0 && len(out) >= limit {
			break
		}
		src := s.sources[id]
		if strings.HasPrefix(strings.ToLower(src.Name), q) || strings.HasPrefix(id, q) {
			out = append(out, &Result{Source: src, Score: 1})
		}
	}
	return out
}

// DocCount reports total documents in the index.
func (s *SourceIndex) DocCount() (int, error) {
	n, err := s.idx.DocCount()
	return int(n), err
}

func (s *SourceIndex) Close() error {
	return s.idx.Close()
}
