package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/newsdesk/internal/config"
	"github.com/pders01/newsdesk/internal/news"
	"github.com/pders01/newsdesk/internal/query"
	"github.com/pders01/newsdesk/internal/session"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls []query.Query
	err   error
}

func (f *fakeFetcher) Fetch(_ context.Context, q query.Query) ([]news.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, q.Clone())
	if f.err != nil {
		return nil, f.err
	}
	var out []news.Article
	for _, s := range q.Sources {
		out = append(out, news.Article{
			Title:       "Haberman on " + s.ID,
			Description: "story from " + s.ID,
			URL:         "https://example.com/" + s.ID,
			SourceID:    s.ID,
			PublishedAt: time.Date(2021, 7, 5, 18, 7, 42, 0, time.UTC),
		})
	}
	return out, nil
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeFetcher) last() query.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type fakeCatalog struct {
	sources []news.ProviderSource
	live    bool
	err     error
}

func (c *fakeCatalog) Sources(context.Context, bool) ([]news.ProviderSource, bool, error) {
	return c.sources, c.live, c.err
}

type fakeOpener struct {
	opened []string
	err    error
}

func (o *fakeOpener) Open(url string) error {
	o.opened = append(o.opened, url)
	return o.err
}

type testApp struct {
	*App
	fetcher *fakeFetcher
	opener  *fakeOpener
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	cfg := config.TestConfig()
	fetcher := &fakeFetcher{}
	opener := &fakeOpener{}
	catalog := &fakeCatalog{live: true, sources: []news.ProviderSource{
		{ID: "cnn", Name: "CNN", Category: "general", Country: "us"},
		{ID: "the-wall-street-journal", Name: "The Wall Street Journal", Category: "business", Country: "us"},
		{ID: "fox-news", Name: "Fox News", Category: "general", Country: "us"},
		{ID: "bbc-news", Name: "BBC News", Category: "general", Country: "gb"},
		{ID: "wired", Name: "Wired", Category: "technology", Country: "us"},
	}}

	app := NewApp(cfg, Deps{
		Session: session.New(query.Default(time.Now())),
		Fetcher: fetcher,
		Catalog: catalog,
		Opener:  opener,
	})
	app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	return &testApp{App: app, fetcher: fetcher, opener: opener}
}

// drain executes cmd and feeds every resulting message back into the app
// until no work is left. Spinner ticks are dropped to keep it finite.
func (ta *testApp) drain(cmd tea.Cmd) {
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case nil, spinner.TickMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			_, next := ta.Update(msg)
			queue = append(queue, next)
		}
	}
}

func (ta *testApp) press(msg tea.KeyMsg) {
	_, cmd := ta.Update(msg)
	ta.drain(cmd)
}

func (ta *testApp) typeText(s string) {
	ta.press(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func started(t *testing.T) *testApp {
	ta := newTestApp(t)
	ta.drain(ta.Init())
	require.Equal(t, 1, ta.fetcher.count())
	return ta
}

func TestInitRunsDefaultSearch(t *testing.T) {
	ta := started(t)

	q := ta.fetcher.last()
	assert.Equal(t, query.TopHeadlines, q.Mode)
	assert.Equal(t, []string{"cnn", "the-wall-street-journal", "fox-news"}, q.SourceIDs())

	st := ta.session.State()
	assert.True(t, st.Loaded)
	assert.False(t, st.Loading)
	assert.Len(t, st.Articles, 3)

	// one header plus one article per source
	items := ta.resultList.Items()
	require.Len(t, items, 6)
	header, ok := items[0].(groupItem)
	require.True(t, ok)
	assert.Equal(t, "cnn", header.sourceID)
	assert.Equal(t, "CNN", header.name)
	art, ok := items[1].(articleItem)
	require.True(t, ok)
	assert.Equal(t, "Haberman on cnn", art.article.Title)

	assert.Len(t, ta.sources, 5)
	assert.Equal(t, MsgResultsCount(3, 3), ta.status)
}

func TestModeAndOrderDispatch(t *testing.T) {
	ta := started(t)

	ta.press(tea.KeyMsg{Type: tea.KeyCtrlT})
	assert.Equal(t, 2, ta.fetcher.count())
	assert.Equal(t, query.Everything, ta.fetcher.last().Mode)

	ta.press(tea.KeyMsg{Type: tea.KeyCtrlF})
	assert.Equal(t, 3, ta.fetcher.count())
	assert.Equal(t, query.Relevancy, ta.fetcher.last().OrderBy)

	ta.press(tea.KeyMsg{Type: tea.KeyCtrlT})
	assert.Equal(t, 4, ta.fetcher.count())
	assert.Equal(t, query.TopHeadlines, ta.fetcher.last().Mode)
}

func TestQueryFormSubmitsKeywords(t *testing.T) {
	ta := started(t)

	ta.press(tea.KeyMsg{Type: tea.KeyCtrlS})
	require.Equal(t, ViewQuery, ta.view)
	assert.True(t, ta.keywordsInput.Focused())

	// q is text here, not quit
	ta.typeText("quake")
	assert.Equal(t, "quake", ta.keywordsInput.Value())
	assert.Equal(t, 1, ta.fetcher.count(), "typing keywords must not fetch")

	ta.press(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ViewResults, ta.view)
	require.Equal(t, 2, ta.fetcher.count())
	assert.Equal(t, "quake", ta.fetcher.last().Keywords)
}

func TestQueryFormDateRange(t *testing.T) {
	ta := started(t)

	ta.press(tea.KeyMsg{Type: tea.KeyCtrlS})
	ta.fromInput.SetValue("2021-07-01")
	ta.toInput.SetValue("2021-07-05")
	ta.press(tea.KeyMsg{Type: tea.KeyEnter})

	require.Equal(t, 2, ta.fetcher.count(), "a changed range dispatches exactly once")
	q := ta.fetcher.last()
	assert.Equal(t, "2021-07-01", query.FormatDate(q.From))
	assert.Equal(t, "2021-07-05", query.FormatDate(q.To))
}

func TestQueryFormRejectsBadDates(t *testing.T) {
	t.Run("unparseable", func(t *testing.T) {
		ta := started(t)
		ta.press(tea.KeyMsg{Type: tea.KeyCtrlS})
		ta.fromInput.SetValue("07/01/2021")
		ta.press(tea.KeyMsg{Type: tea.KeyEnter})

		assert.Equal(t, ViewQuery, ta.view)
		assert.Error(t, ta.err)
		assert.Equal(t, 1, ta.fetcher.count())
	})

	t.Run("from after to", func(t *testing.T) {
		ta := started(t)
		ta.press(tea.KeyMsg{Type: tea.KeyCtrlS})
		ta.fromInput.SetValue("2021-07-10")
		ta.toInput.SetValue("2021-07-01")
		ta.press(tea.KeyMsg{Type: tea.KeyEnter})

		assert.Equal(t, 1, ta.fetcher.count())
		st := ta.session.State()
		require.NotNil(t, st.Err)
		assert.Equal(t, "From Date should not be after To Date", st.Err.Message)
		assert.Contains(t, ta.View(), "From Date should not be after To Date")
	})
}

func TestSourcePicker(t *testing.T) {
	ta := started(t)

	ta.press(tea.KeyMsg{Type: tea.KeyCtrlP})
	require.Equal(t, ViewSources, ta.view)
	assert.True(t, ta.sourceFilter.Focused())
	assert.Len(t, ta.sourceList.Items(), 5)

	ta.typeText("bbc")
	require.Len(t, ta.sourceList.Items(), 1)

	// a fourth source is stored but nothing is fetched
	ta.press(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, 1, ta.fetcher.count())
	st := ta.session.State()
	require.NotNil(t, st.Err)
	assert.Equal(t, "Sources cannot be more than three.", st.Err.Message)
	assert.Equal(t, []string{"cnn", "the-wall-street-journal", "fox-news", "bbc-news"}, st.Query.SourceIDs())

	// removing cnn brings the list back to three
	ta.sourceFilter.SetValue("")
	ta.typeText("cnn")
	require.Len(t, ta.sourceList.Items(), 1)
	item := ta.sourceList.Items()[0].(sourceItem)
	assert.True(t, item.selected)

	ta.press(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, 2, ta.fetcher.count())
	assert.Equal(t, []string{"the-wall-street-journal", "fox-news", "bbc-news"}, ta.fetcher.last().SourceIDs())
	assert.Nil(t, ta.session.State().Err)
	item = ta.sourceList.Items()[0].(sourceItem)
	assert.False(t, item.selected)

	ta.press(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewResults, ta.view)
}

func TestPaging(t *testing.T) {
	ta := started(t)
	ta.resultList.Select(0) // cnn header

	ta.press(tea.KeyMsg{Type: tea.KeyCtrlN})
	require.Equal(t, 2, ta.fetcher.count())
	assert.Equal(t, 2, ta.session.Query().Sources[0].Page)

	ta.press(tea.KeyMsg{Type: tea.KeyCtrlB})
	require.Equal(t, 3, ta.fetcher.count())
	assert.Equal(t, 1, ta.session.Query().Sources[0].Page)

	// no page zero
	ta.press(tea.KeyMsg{Type: tea.KeyCtrlB})
	assert.Equal(t, 3, ta.fetcher.count())
}

func TestReaderAndOpen(t *testing.T) {
	ta := started(t)
	ta.resultList.Select(1)

	ta.press(tea.KeyMsg{Type: tea.KeyCtrlO})
	assert.Equal(t, []string{"https://example.com/cnn"}, ta.opener.opened)
	assert.Equal(t, MsgOpened, ta.status)

	ta.press(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, ViewReader, ta.view)
	assert.False(t, ta.loadingArticle)
	assert.Contains(t, ta.viewport.View(), "Haberman")

	ta.press(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewResults, ta.view)
	assert.Nil(t, ta.currentArticle)
}

func TestOpenFailureIsShown(t *testing.T) {
	ta := started(t)
	ta.opener.err = errors.New("no browser")
	ta.resultList.Select(1)

	ta.press(tea.KeyMsg{Type: tea.KeyCtrlO})
	require.Error(t, ta.err)
	assert.Contains(t, ta.err.Error(), "no browser")
}

func TestProviderFailureKeepsArticles(t *testing.T) {
	ta := started(t)
	ta.fetcher.err = errors.New("boom")

	ta.press(tea.KeyMsg{Type: tea.KeyCtrlT})
	st := ta.session.State()
	require.NotNil(t, st.Err)
	assert.Equal(t, news.GenericErrorMessage, st.Err.Message)
	assert.Len(t, st.Articles, 3)
	assert.Len(t, ta.resultList.Items(), 6)
	assert.Contains(t, ta.View(), news.GenericErrorMessage)

	ta.press(tea.KeyMsg{Type: tea.KeyCtrlD})
	assert.Nil(t, ta.session.State().Err)
}

func TestStaleCompletionIgnored(t *testing.T) {
	ta := started(t)

	d1 := ta.session.SetMode(query.Everything)
	d2 := ta.session.SetMode(query.TopHeadlines)
	require.NotNil(t, d1)
	require.NotNil(t, d2)

	r2 := d2.Run(context.Background(), ta.fetcher)
	r1 := d1.Run(context.Background(), ta.fetcher)

	ta.Update(fetchDoneMsg{result: r2})
	ta.Update(fetchDoneMsg{result: r1})

	st := ta.session.State()
	assert.Equal(t, query.TopHeadlines, st.Query.Mode)
	assert.False(t, st.Loading)
	assert.Equal(t, d2.Seq, st.Seq)
}

func TestOfflineCatalogWarns(t *testing.T) {
	ta := newTestApp(t)
	ta.catalog = &fakeCatalog{live: false, sources: []news.ProviderSource{{ID: "cnn", Name: "CNN"}}}
	ta.drain(ta.loadSources(false))

	assert.Equal(t, MsgOfflineSources, ta.status)
	assert.Equal(t, StatusWarn, ta.statusKind)
}

func TestViewRendersEveryScreen(t *testing.T) {
	ta := started(t)

	out := ta.View()
	assert.Contains(t, out, "Top Headlines")
	assert.Contains(t, out, "Everything")

	for _, key := range []tea.KeyType{tea.KeyCtrlS, tea.KeyEsc, tea.KeyCtrlP, tea.KeyEsc} {
		ta.press(tea.KeyMsg{Type: key})
		assert.NotEmpty(t, ta.View(), "view %s", ta.view)
	}

	ta.press(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	assert.True(t, ta.showHelp)
	assert.Contains(t, ta.View(), "toggle mode")
}

func TestArticleMarkdown(t *testing.T) {
	article := news.Article{
		Title:       "Haberman: Trump's 'big lie' feeds",
		Description: "desc",
		URL:         "http://us.cnn.com/videos/politics/2021/07/05/haberman.cnn",
		Author:      "CNN Video",
		PublishedAt: time.Date(2021, 7, 5, 18, 7, 42, 0, time.UTC),
	}

	md := articleMarkdown(article, "CNN")
	assert.True(t, strings.HasPrefix(md, "# Haberman"))
	assert.Contains(t, md, "*Published: July 5th 2021, 6:07:42 pm*")
	assert.Contains(t, md, "**Source:** CNN")
	assert.Contains(t, md, "**By:** CNN Video")
	assert.Contains(t, md, "[Read Online](http://us.cnn.com/videos/politics/2021/07/05/haberman.cnn)")
	assert.True(t, strings.HasSuffix(md, "desc"), "falls back to the description")

	article.Content = "full body"
	assert.True(t, strings.HasSuffix(articleMarkdown(article, ""), "full body"))
}

func TestSubstringMatch(t *testing.T) {
	sources := []news.ProviderSource{{ID: "cnn", Name: "CNN"}, {ID: "bbc-news", Name: "BBC News"}}
	assert.Len(t, substringMatch(sources, ""), 2)
	assert.Len(t, substringMatch(sources, "NEWS"), 1)
	assert.Empty(t, substringMatch(sources, "wired"))
}
