// Package session owns the search state of one user session. Every change
// goes through a named entry point which decides whether a fetch is
// dispatched. Dispatches are numbered and only the latest one may commit.
//
// A Session is not safe for concurrent use. The TUI calls it from its Update
// loop only and runs dispatches as commands.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pders01/newsdesk/internal/debuglog"
	"github.com/pders01/newsdesk/internal/metrics"
	"github.com/pders01/newsdesk/internal/news"
	"github.com/pders01/newsdesk/internal/query"
)

// Fetcher retrieves the articles for a query.
type Fetcher interface {
	Fetch(ctx context.Context, q query.Query) ([]news.Article, error)
}

// Dispatch is one fetch the caller must run and hand back to Complete.
type Dispatch struct {
	Seq     uint64
	ID      string
	Query   query.Query
	Trigger string
}

// Result is the outcome of running a Dispatch.
type Result struct {
	Seq      uint64
	ID       string
	Articles []news.Article
	Err      error
	Duration time.Duration
}

// Run calls the fetcher. It does not touch the session and may run on any
// goroutine.
func (d *Dispatch) Run(ctx context.Context, f Fetcher) Result {
	start := time.Now()
	articles, err := f.Fetch(ctx, d.Query)
	elapsed := time.Since(start)
	metrics.RecordFetchDuration(d.Query.Mode.String(), elapsed)

	log := debuglog.WithFields(map[string]interface{}{"seq": d.Seq, "dispatch": d.ID})
	if err != nil {
		log.Warnf("fetch failed after %s: %v", elapsed, err)
	} else {
		log.Debugf("fetch returned %d article(s) in %s", len(articles), elapsed)
	}

	return Result{Seq: d.Seq, ID: d.ID, Articles: articles, Err: err, Duration: elapsed}
}

type Session struct {
	state State
}

// New starts a session with q. Nothing is dispatched until the first
// trigger or TriggerSearch.
func New(q query.Query) *Session {
	return &Session{state: State{Query: q.Clone()}}
}

// State returns a copy of the current state.
func (s *Session) State() State {
	return s.state.clone()
}

// Loading reports whether the latest dispatch is still outstanding.
func (s *Session) Loading() bool {
	return s.state.Loading
}

func (s *Session) Query() query.Query {
	return s.state.Query.Clone()
}

// Groups partitions the committed articles by the requested sources.
func (s *Session) Groups() []news.Group {
	return news.Partition(s.state.Articles, s.state.Query.SourceIDs())
}

// SetKeywords stores the keywords. They are used by the next dispatch.
func (s *Session) SetKeywords(keywords string) {
	s.state.Query.Keywords = keywords
}

// SetMode switches endpoint and resets every source to page one.
func (s *Session) SetMode(m query.Mode) *Dispatch {
	if s.state.Query.Mode == m {
		return nil
	}
	s.state.Query = s.state.Query.WithMode(m)
	return s.changed(FieldMode)
}

func (s *Session) SetOrderBy(o query.OrderBy) *Dispatch {
	if s.state.Query.OrderBy == o {
		return nil
	}
	s.state.Query.OrderBy = o
	return s.changed(FieldOrderBy)
}

// SetDateRange replaces both dates. Zero values clear a bound.
func (s *Session) SetDateRange(from, to time.Time) *Dispatch {
	from, to = query.Day(from), query.Day(to)
	fromChanged := !from.Equal(query.Day(s.state.Query.From))
	toChanged := !to.Equal(query.Day(s.state.Query.To))
	if !fromChanged && !toChanged {
		return nil
	}
	s.state.Query.From = from
	s.state.Query.To = to
	if fromChanged {
		return s.changed(FieldFromDate)
	}
	return s.changed(FieldToDate)
}

// SetSources replaces the source list. A list naming a source twice is
// rejected and the stored list is kept.
func (s *Session) SetSources(sources []query.Source) *Dispatch {
	if err := query.ValidateSourceIDs(sources); err != nil {
		s.rejected(err)
		return nil
	}
	next := make([]query.Source, len(sources))
	copy(next, sources)
	for i := range next {
		if next[i].Page < 1 {
			next[i].Page = 1
		}
	}
	if query.SameSources(s.state.Query.Sources, next) {
		return nil
	}
	s.state.Query.Sources = next
	return s.changed(FieldSources)
}

// SetPage moves one source to another result page.
func (s *Session) SetPage(sourceID string, page int) *Dispatch {
	if page < 1 {
		page = 1
	}
	next := s.state.Query.Clone().Sources
	for i := range next {
		if next[i].ID == sourceID {
			next[i].Page = page
			return s.SetSources(next)
		}
	}
	return nil
}

// AddSource appends id at page one. Adding a source already present is a no-op.
func (s *Session) AddSource(id string) *Dispatch {
	if id == "" || s.state.Query.HasSource(id) {
		return nil
	}
	next := append(s.state.Query.Clone().Sources, query.Source{ID: id, Page: 1})
	return s.SetSources(next)
}

func (s *Session) RemoveSource(id string) *Dispatch {
	if !s.state.Query.HasSource(id) {
		return nil
	}
	next := make([]query.Source, 0, len(s.state.Query.Sources))
	for _, src := range s.state.Query.Sources {
		if src.ID != id {
			next = append(next, src)
		}
	}
	return s.SetSources(next)
}

// TriggerSearch validates the current query and dispatches it, even when
// nothing changed.
func (s *Session) TriggerSearch() *Dispatch {
	return s.dispatch("search")
}

// DismissError clears the displayed error without affecting any dispatch.
func (s *Session) DismissError() {
	s.state.Err = nil
}

// Complete applies a finished dispatch. It returns false when a newer
// dispatch has started since, in which case the result is dropped.
func (s *Session) Complete(res Result) bool {
	log := debuglog.WithFields(map[string]interface{}{"seq": res.Seq, "dispatch": res.ID})

	if res.Seq == 0 || res.Seq != s.state.Seq {
		metrics.RecordCompletion(metrics.OutcomeStale)
		log.Debugf("discarding stale result, latest seq is %d", s.state.Seq)
		return false
	}

	s.state.Loading = false

	if res.Err != nil {
		s.state.Err = &Error{Kind: ErrorProvider, Message: news.GenericErrorMessage, Err: res.Err}
		metrics.RecordCompletion(metrics.OutcomeFailed)
		log.Errorf("provider error: %v", res.Err)
		return true
	}

	articles := res.Articles
	if articles == nil {
		articles = []news.Article{}
	}
	s.state.Articles = articles
	s.state.Loaded = true
	metrics.RecordCompletion(metrics.OutcomeCommitted)
	log.Infof("committed %d article(s)", len(articles))
	return true
}

func (s *Session) changed(f Field) *Dispatch {
	if !IsTrigger(f) {
		return nil
	}
	return s.dispatch(f.String())
}

func (s *Session) dispatch(trigger string) *Dispatch {
	if err := query.Validate(s.state.Query); err != nil {
		s.rejected(err)
		return nil
	}
	if err := query.ValidateSourceIDs(s.state.Query.Sources); err != nil {
		s.rejected(err)
		return nil
	}

	s.state.Err = nil
	s.state.Loading = true
	s.state.Seq++

	d := &Dispatch{
		Seq:     s.state.Seq,
		ID:      uuid.NewString(),
		Query:   s.state.Query.Clone(),
		Trigger: trigger,
	}
	metrics.RecordDispatch(d.Query.Mode.String(), trigger)
	debuglog.WithFields(map[string]interface{}{
		"seq":      d.Seq,
		"dispatch": d.ID,
		"mode":     d.Query.Mode.String(),
		"trigger":  trigger,
	}).Infof("dispatching %v", d.Query.SourceIDs())
	return d
}

// rejected records a validation failure. In-flight dispatches are unaffected.
func (s *Session) rejected(err error) {
	s.state.Err = &Error{Kind: ErrorValidation, Message: err.Error(), Err: err}
	metrics.RecordValidationError(validationReason(err))
	debuglog.Debugf("query rejected: %v", err)
}

func validationReason(err error) string {
	switch {
	case errors.Is(err, query.ErrTooManySources):
		return "too_many_sources"
	case errors.Is(err, query.ErrNoSources):
		return "no_sources"
	case errors.Is(err, query.ErrDateOrder):
		return "date_order"
	case errors.Is(err, query.ErrDuplicateSource):
		return "duplicate_source"
	default:
		return "other"
	}
}
