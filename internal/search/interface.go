// Package search indexes the news source catalog so the source picker can
// filter it by free text.
package search

import "github.com/pders01/newsdesk/internal/news"

// Searcher is the search API used by the TUI picker and the sources command.
type Searcher interface {
	Search(query string, limit int) ([]*Result, error)
}

// Indexer replaces the indexed catalog.
type Indexer interface {
	Index(sources []news.ProviderSource) error
}

// DebugStatser provides lightweight stats for visibility/debugging.
type DebugStatser interface {
	DocCount() (int, error)
}

// Result is one matching source.
type Result struct {
	Source news.ProviderSource
	Score  float64
}
