package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/newsdesk/internal/news"
	"github.com/pders01/newsdesk/internal/query"
)

type recordingFetcher struct {
	mu       sync.Mutex
	calls    []query.Query
	articles []news.Article
	err      error
}

func (f *recordingFetcher) Fetch(ctx context.Context, q query.Query) ([]news.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, q)
	if f.err != nil {
		return nil, f.err
	}
	return f.articles, nil
}

var (
	july1 = time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC)
	july5 = time.Date(2021, 7, 5, 0, 0, 0, 0, time.UTC)

	cnnArticle = news.Article{
		SourceID: "cnn",
		Title:    "Haberman: Trump is doing what he wants to do",
		URL:      "http://us.cnn.com/videos/politics/2021/07/05/haberman.cnn",
	}
)

func newSession() *Session {
	return New(query.Default(july5))
}

func TestNewSessionIsNotLoaded(t *testing.T) {
	s := newSession()
	st := s.State()

	assert.False(t, st.Loaded)
	assert.False(t, st.Loading)
	assert.Nil(t, st.Err)
	assert.Nil(t, st.Articles)
	assert.Equal(t, uint64(0), st.Seq)
	assert.Equal(t, []string{"cnn", "the-wall-street-journal", "fox-news"}, st.Query.SourceIDs())
}

func TestKeywordsDoNotTrigger(t *testing.T) {
	s := newSession()
	s.SetKeywords("trump")

	st := s.State()
	assert.Equal(t, "trump", st.Query.Keywords)
	assert.False(t, st.Loading)
	assert.Equal(t, uint64(0), st.Seq)

	d := s.TriggerSearch()
	require.NotNil(t, d)
	assert.Equal(t, "trump", d.Query.Keywords)
	assert.Equal(t, "search", d.Trigger)
}

func TestTriggerSetFieldsDispatch(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Session) *Dispatch
	}{
		{"mode", func(s *Session) *Dispatch { return s.SetMode(query.Everything) }},
		{"order", func(s *Session) *Dispatch { return s.SetOrderBy(query.Relevancy) }},
		{"from", func(s *Session) *Dispatch { return s.SetDateRange(july1, july5) }},
		{"to", func(s *Session) *Dispatch { return s.SetDateRange(july5, july5.AddDate(0, 0, 1)) }},
		{"sources", func(s *Session) *Dispatch { return s.SetSources(query.NewSources("cnn")) }},
		{"page", func(s *Session) *Dispatch { return s.SetPage("cnn", 2) }},
		{"add", func(s *Session) *Dispatch {
			s.RemoveSource("fox-news")
			return s.AddSource("bbc-news")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession()
			before := s.State().Seq
			d := tt.mutate(s)
			require.NotNil(t, d)
			assert.Greater(t, d.Seq, before)
			assert.Equal(t, d.Seq, s.State().Seq)
			assert.True(t, s.State().Loading)
			assert.NotEmpty(t, d.ID)
		})
	}
}

func TestUnchangedValuesDoNotTrigger(t *testing.T) {
	s := newSession()
	q := s.Query()

	assert.Nil(t, s.SetMode(q.Mode))
	assert.Nil(t, s.SetOrderBy(q.OrderBy))
	assert.Nil(t, s.SetDateRange(q.From, q.To))
	assert.Nil(t, s.SetSources(q.Sources))
	assert.Nil(t, s.SetPage("cnn", 1))
	assert.Nil(t, s.SetPage("not-requested", 4))
	assert.Nil(t, s.AddSource("cnn"))
	assert.Nil(t, s.RemoveSource("wired"))
	assert.Equal(t, uint64(0), s.State().Seq)
}

func TestModeSwitchResetsPages(t *testing.T) {
	s := newSession()
	require.NotNil(t, s.SetPage("fox-news", 4))

	d := s.SetMode(query.Everything)
	require.NotNil(t, d)
	for _, src := range d.Query.Sources {
		assert.Equal(t, 1, src.Page, src.ID)
	}
	assert.Equal(t, []string{"cnn", "the-wall-street-journal", "fox-news"}, d.Query.SourceIDs())
}

func TestFourSourcesNeverFetch(t *testing.T) {
	s := newSession()
	f := &recordingFetcher{}

	d := s.AddSource("bbc-news")
	assert.Nil(t, d)

	st := s.State()
	require.NotNil(t, st.Err)
	assert.Equal(t, ErrorValidation, st.Err.Kind)
	assert.Equal(t, "Sources cannot be more than three.", st.Err.Message)
	assert.True(t, errors.Is(st.Err, query.ErrTooManySources))
	assert.Len(t, st.Query.Sources, 4)
	assert.False(t, st.Loading)
	assert.Equal(t, uint64(0), st.Seq)
	assert.Nil(t, s.TriggerSearch())
	assert.Empty(t, f.calls)
}

func TestZeroSourcesRejected(t *testing.T) {
	s := newSession()
	assert.Nil(t, s.SetSources(nil))
	require.NotNil(t, s.State().Err)
	assert.Equal(t, "Sources cannot be zero.", s.State().Err.Message)
}

func TestDuplicateSourcesRejected(t *testing.T) {
	s := newSession()
	before := s.Query().Sources

	d := s.SetSources([]query.Source{{ID: "cnn", Page: 1}, {ID: "cnn", Page: 2}})
	assert.Nil(t, d)
	require.NotNil(t, s.State().Err)
	assert.ErrorIs(t, s.State().Err, query.ErrDuplicateSource)
	assert.Equal(t, before, s.Query().Sources)
}

func TestTriggerSearchRejectsDuplicateSources(t *testing.T) {
	tests := []struct {
		name    string
		sources []query.Source
		wantErr error
	}{
		{"same page", query.NewSources("cnn", "cnn"), query.ErrDuplicateSource},
		{"different pages", []query.Source{{ID: "cnn", Page: 1}, {ID: "wired", Page: 1}, {ID: "cnn", Page: 2}}, query.ErrDuplicateSource},
		{"too many wins", query.NewSources("cnn", "cnn", "wired", "bbc-news"), query.ErrTooManySources},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(query.Query{Mode: query.Everything, Sources: tt.sources})

			assert.Nil(t, s.TriggerSearch())
			st := s.State()
			require.NotNil(t, st.Err)
			assert.Equal(t, ErrorValidation, st.Err.Kind)
			assert.ErrorIs(t, st.Err, tt.wantErr)
			assert.False(t, st.Loading)
			assert.Nil(t, s.SetOrderBy(query.Relevancy), "trigger fields dispatch nothing either")
		})
	}
}

func TestDateOrderRejected(t *testing.T) {
	s := newSession()
	d := s.SetDateRange(july5, july1)
	assert.Nil(t, d)
	require.NotNil(t, s.State().Err)
	assert.Equal(t, "From Date should not be after To Date", s.State().Err.Message)

	d = s.SetDateRange(july1, july5)
	require.NotNil(t, d)
	assert.Nil(t, s.State().Err, "successful dispatch clears the error")
}

func TestEverythingScenario(t *testing.T) {
	s := New(query.Query{Sources: query.NewSources("cnn")})
	s.SetKeywords("trump")
	require.NotNil(t, s.SetMode(query.Everything))

	d := s.SetDateRange(july1, july5)
	require.NotNil(t, d)

	f := &recordingFetcher{articles: []news.Article{cnnArticle}}
	res := d.Run(context.Background(), f)
	require.True(t, s.Complete(res))

	require.Len(t, f.calls, 1)
	got := f.calls[0]
	assert.Equal(t, query.Everything, got.Mode)
	assert.Equal(t, "trump", got.Keywords)
	assert.Equal(t, "2021-07-01", query.FormatDate(got.From))
	assert.Equal(t, "2021-07-05", query.FormatDate(got.To))

	groups := s.Groups()
	require.Len(t, groups, 1)
	assert.Equal(t, "cnn", groups[0].SourceID)
	assert.Equal(t, []news.Article{cnnArticle}, groups[0].Articles)

	st := s.State()
	assert.True(t, st.Loaded)
	assert.False(t, st.Loading)
	assert.Nil(t, st.Err)
}

func TestOutOfOrderCompletion(t *testing.T) {
	s := newSession()

	d1 := s.SetOrderBy(query.Relevancy)
	require.NotNil(t, d1)
	d2 := s.SetOrderBy(query.Popularity)
	require.NotNil(t, d2)
	assert.Greater(t, d2.Seq, d1.Seq)

	second := []news.Article{{SourceID: "cnn", Title: "from d2"}}
	first := []news.Article{{SourceID: "cnn", Title: "from d1"}}

	require.True(t, s.Complete(Result{Seq: d2.Seq, ID: d2.ID, Articles: second}))
	assert.False(t, s.Complete(Result{Seq: d1.Seq, ID: d1.ID, Articles: first}), "d1 is stale")

	st := s.State()
	assert.Equal(t, second, st.Articles)
	assert.False(t, st.Loading)
}

func TestCompleteWithoutDispatchIsIgnored(t *testing.T) {
	s := newSession()

	assert.False(t, s.Complete(Result{}))
	st := s.State()
	assert.False(t, st.Loaded)
	assert.Nil(t, st.Articles)
}

func TestLoadingAccessor(t *testing.T) {
	s := newSession()
	assert.False(t, s.Loading())

	d := s.TriggerSearch()
	require.NotNil(t, d)
	assert.True(t, s.Loading())

	require.True(t, s.Complete(Result{Seq: d.Seq, ID: d.ID}))
	assert.False(t, s.Loading())
}

func TestStaleFailureIsDiscarded(t *testing.T) {
	s := newSession()
	d1 := s.TriggerSearch()
	d2 := s.TriggerSearch()

	assert.False(t, s.Complete(Result{Seq: d1.Seq, Err: errors.New("timeout")}))
	st := s.State()
	assert.Nil(t, st.Err)
	assert.True(t, st.Loading, "d2 is still in flight")

	assert.True(t, s.Complete(Result{Seq: d2.Seq, Articles: []news.Article{cnnArticle}}))
	assert.False(t, s.State().Loading)
}

func TestProviderFailureKeepsArticles(t *testing.T) {
	s := newSession()

	d := s.TriggerSearch()
	require.True(t, s.Complete(d.Run(context.Background(), &recordingFetcher{articles: []news.Article{cnnArticle}})))

	d = s.TriggerSearch()
	perr := &news.ProviderError{Code: news.CodeRateLimited, HTTPStatus: 429}
	require.True(t, s.Complete(d.Run(context.Background(), &recordingFetcher{err: perr})))

	st := s.State()
	require.NotNil(t, st.Err)
	assert.Equal(t, ErrorProvider, st.Err.Kind)
	assert.Equal(t, "Unable to fetch news from the provider.", st.Err.Message)
	assert.ErrorIs(t, st.Err, perr)
	assert.Equal(t, []news.Article{cnnArticle}, st.Articles)
	assert.True(t, st.Loaded)
	assert.False(t, st.Loading)
}

func TestValidationDoesNotTouchInFlightDispatch(t *testing.T) {
	s := newSession()
	d := s.TriggerSearch()
	require.NotNil(t, d)

	assert.Nil(t, s.SetSources(nil))
	st := s.State()
	assert.True(t, st.Loading)
	assert.Equal(t, d.Seq, st.Seq)

	assert.True(t, s.Complete(Result{Seq: d.Seq, Articles: []news.Article{cnnArticle}}))
	st = s.State()
	assert.True(t, st.Loaded)
	require.NotNil(t, st.Err, "later validation error stays visible")
	assert.Equal(t, ErrorValidation, st.Err.Kind)
}

func TestEmptyResultIsLoaded(t *testing.T) {
	s := newSession()
	d := s.TriggerSearch()
	require.True(t, s.Complete(Result{Seq: d.Seq}))

	st := s.State()
	assert.True(t, st.Loaded)
	assert.NotNil(t, st.Articles)
	assert.Empty(t, st.Articles)
	assert.Len(t, s.Groups(), 3)
}

func TestDismissError(t *testing.T) {
	s := newSession()
	s.SetSources(nil)
	require.NotNil(t, s.State().Err)
	s.DismissError()
	assert.Nil(t, s.State().Err)
}

func TestStateIsACopy(t *testing.T) {
	s := newSession()
	st := s.State()
	st.Query.Sources[0].Page = 9
	st.Query.Keywords = "mutated"
	assert.Equal(t, 1, s.Query().Sources[0].Page)
	assert.Equal(t, "", s.Query().Keywords)
}
