package query

import (
	"fmt"
	"strings"
	"time"
)

// MaxSources is the number of sources a single query may request.
const MaxSources = 3

// DateLayout is the provider's calendar date format.
const DateLayout = "2006-01-02"

// Mode selects the provider endpoint used for a query.
type Mode int

const (
	TopHeadlines Mode = iota
	Everything
)

func (m Mode) String() string {
	switch m {
	case TopHeadlines:
		return "top-headlines"
	case Everything:
		return "everything"
	default:
		return "unknown"
	}
}

// Label is the human readable tab title.
func (m Mode) Label() string {
	switch m {
	case Everything:
		return "Everything"
	default:
		return "Top Headlines"
	}
}

// ParseMode accepts the String form as well as a few shorthands.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "top-headlines", "topheadlines", "top", "headlines", "":
		return TopHeadlines, nil
	case "everything", "all":
		return Everything, nil
	default:
		return TopHeadlines, fmt.Errorf("unknown mode %q", s)
	}
}

// OrderBy is the result ordering for Everything queries.
type OrderBy int

const (
	PublishedAt OrderBy = iota
	Relevancy
	Popularity
)

// String returns the provider's sortBy value.
func (o OrderBy) String() string {
	switch o {
	case Relevancy:
		return "relevancy"
	case Popularity:
		return "popularity"
	default:
		return "publishedAt"
	}
}

func (o OrderBy) Label() string {
	switch o {
	case Relevancy:
		return "Relevancy"
	case Popularity:
		return "Popularity"
	default:
		return "Published"
	}
}

// Next cycles through the orderings, used by the filter toggle.
func (o OrderBy) Next() OrderBy {
	return (o + 1) % 3
}

func ParseOrderBy(s string) (OrderBy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "publishedat", "published", "date", "":
		return PublishedAt, nil
	case "relevancy", "relevance":
		return Relevancy, nil
	case "popularity", "popular":
		return Popularity, nil
	default:
		return PublishedAt, fmt.Errorf("unknown ordering %q", s)
	}
}

// Source is one requested publisher together with the result page wanted from it.
type Source struct {
	ID   string
	Page int
}

// DefaultSourceIDs are the sources a new session starts with.
var DefaultSourceIDs = []string{"cnn", "the-wall-street-journal", "fox-news"}

// NewSources builds page-one sources from ids, in order.
func NewSources(ids ...string) []Source {
	out := make([]Source, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		out = append(out, Source{ID: id, Page: 1})
	}
	return out
}

// Query is the full set of search parameters. From and To are unset when zero.
type Query struct {
	Keywords string
	Mode     Mode
	From     time.Time
	To       time.Time
	Sources  []Source
	OrderBy  OrderBy
}

// Default returns the query a session starts with.
func Default(now time.Time) Query {
	today := Day(now)
	return Query{
		Mode:    TopHeadlines,
		From:    today,
		To:      today,
		Sources: NewSources(DefaultSourceIDs...),
		OrderBy: PublishedAt,
	}
}

// Clone returns a deep copy of q.
func (q Query) Clone() Query {
	c := q
	if q.Sources != nil {
		c.Sources = make([]Source, len(q.Sources))
		copy(c.Sources, q.Sources)
	}
	return c
}

// WithMode switches the mode and resets every source to its first page.
func (q Query) WithMode(m Mode) Query {
	c := q.Clone()
	c.Mode = m
	for i := range c.Sources {
		c.Sources[i].Page = 1
	}
	return c
}

// SourceIDs returns the requested source ids in order.
func (q Query) SourceIDs() []string {
	ids := make([]string, len(q.Sources))
	for i, s := range q.Sources {
		ids[i] = s.ID
	}
	return ids
}

// HasSource reports whether id is already requested.
func (q Query) HasSource(id string) bool {
	for _, s := range q.Sources {
		if s.ID == id {
			return true
		}
	}
	return false
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseDate parses a YYYY-MM-DD value; an empty string yields the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// FormatDate renders t in DateLayout, or "" when unset.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// SameSources reports whether both lists hold the same entries in the same order.
func SameSources(a, b []Source) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
