package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/newsdesk/internal/config"
	"github.com/pders01/newsdesk/internal/news"
	"github.com/pders01/newsdesk/internal/query"
	"github.com/pders01/newsdesk/internal/search"
	"github.com/pders01/newsdesk/internal/session"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)

	assert.Contains(t, out, "newsdesk dev")
	assert.Contains(t, out, "Terminal news search")
	assert.Contains(t, out, "github.com/pders01/newsdesk")
}

func TestGenerateConfigCommand(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), ".config", "newsdesk", "config.toml")
	t.Cleanup(func() { configPath = "" })

	out, err := execute(t, "config", "generate", "--path", configFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Generated default configuration at:")

	_, err = os.Stat(configFile)
	require.NoError(t, err)

	cfg, err := config.Load(configFile)
	require.NoError(t, err)
	assert.Equal(t, []string{"cnn", "the-wall-street-journal", "fox-news"}, cfg.Search.DefaultSources)
}

func TestInitialQuery(t *testing.T) {
	cfg := config.TestConfig()

	q, err := initialQuery(cfg)
	require.NoError(t, err)
	assert.Equal(t, query.TopHeadlines, q.Mode)
	assert.Equal(t, query.PublishedAt, q.OrderBy)
	assert.Equal(t, []string{"cnn", "the-wall-street-journal", "fox-news"}, q.SourceIDs())

	cfg.Search.DefaultMode = "everything"
	cfg.Search.DefaultOrderBy = "popularity"
	cfg.Search.DefaultSources = []string{"wired"}
	q, err = initialQuery(cfg)
	require.NoError(t, err)
	assert.Equal(t, query.Everything, q.Mode)
	assert.Equal(t, query.Popularity, q.OrderBy)
	assert.Equal(t, []string{"wired"}, q.SourceIDs())

	cfg.Search.DefaultSources = []string{"cnn", "wired", "cnn"}
	_, err = initialQuery(cfg)
	assert.ErrorIs(t, err, query.ErrDuplicateSource)
	cfg.Search.DefaultSources = []string{"wired"}

	cfg.Search.DefaultMode = "sideways"
	_, err = initialQuery(cfg)
	assert.Error(t, err)
}

func TestSearchOptionsApply(t *testing.T) {
	base := query.Query{Sources: query.NewSources("cnn", "fox-news")}

	q, err := searchOptions{}.apply(base, []string{" trump ", "rally"})
	require.NoError(t, err)
	assert.Equal(t, "trump  rally", q.Keywords)
	assert.Equal(t, []string{"cnn", "fox-news"}, q.SourceIDs())

	q, err = searchOptions{
		Mode:    "everything",
		From:    "2021-07-01",
		To:      "2021-07-05",
		OrderBy: "relevancy",
		Sources: []string{"bbc-news"},
	}.apply(base, nil)
	require.NoError(t, err)
	assert.Equal(t, query.Everything, q.Mode)
	assert.Equal(t, query.Relevancy, q.OrderBy)
	assert.Equal(t, "2021-07-01", query.FormatDate(q.From))
	assert.Equal(t, "2021-07-05", query.FormatDate(q.To))
	assert.Equal(t, []string{"bbc-news"}, q.SourceIDs())

	_, err = searchOptions{Sources: []string{"cnn", "cnn"}}.apply(base, nil)
	assert.ErrorIs(t, err, query.ErrDuplicateSource)

	for _, bad := range []searchOptions{{Mode: "x"}, {OrderBy: "x"}, {From: "07/01/2021"}, {To: "tomorrow"}} {
		_, err := bad.apply(base, nil)
		assert.Error(t, err, "%+v", bad)
	}
}

// newProvider serves top-headlines with one article per requested source.
func newProvider(t *testing.T, fail bool) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32

	mux := http.NewServeMux()
	mux.HandleFunc("/top-headlines", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"status":"error","code":"unexpectedError","message":"boom"}`)
			return
		}
		src := r.URL.Query().Get("sources")
		fmt.Fprintf(w, `{"status":"ok","totalResults":1,"articles":[{"source":{"id":%q,"name":%q},"title":"Story from %s","url":"https://example.com/%s","publishedAt":"2021-07-05T18:07:42Z"}]}`,
			src, src, src, src)
	})
	mux.HandleFunc("/top-headlines/sources", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &hits
}

func testServices(t *testing.T, baseURL string) *services {
	t.Helper()
	cfg := config.TestConfig()
	cfg.Provider.BaseURL = baseURL
	svc, err := newServices(cfg)
	require.NoError(t, err)
	t.Cleanup(svc.close)
	return svc
}

func TestExecuteSearch(t *testing.T) {
	srv, hits := newProvider(t, false)
	svc := testServices(t, srv.URL)

	s := session.New(query.Query{Sources: query.NewSources("cnn", "fox-news")})
	var buf bytes.Buffer
	require.NoError(t, executeSearch(context.Background(), &buf, s, svc.fetcher, false))

	out := buf.String()
	assert.Contains(t, out, "== cnn (page 1, 1 articles)")
	assert.Contains(t, out, " - Story from cnn")
	assert.Contains(t, out, "== fox-news (page 1, 1 articles)")
	assert.Contains(t, out, "https://example.com/fox-news")
	assert.Equal(t, int32(2), atomic.LoadInt32(hits))
}

func TestExecuteSearchJSON(t *testing.T) {
	srv, _ := newProvider(t, false)
	svc := testServices(t, srv.URL)

	s := session.New(query.Query{Sources: query.NewSources("cnn")})
	var buf bytes.Buffer
	require.NoError(t, executeSearch(context.Background(), &buf, s, svc.fetcher, true))

	var groups []struct {
		Source   string         `json:"source"`
		Articles []news.Article `json:"articles"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &groups))
	require.Len(t, groups, 1)
	assert.Equal(t, "cnn", groups[0].Source)
	require.Len(t, groups[0].Articles, 1)
	assert.Equal(t, "Story from cnn", groups[0].Articles[0].Title)
}

func TestExecuteSearchValidation(t *testing.T) {
	srv, hits := newProvider(t, false)
	svc := testServices(t, srv.URL)

	s := session.New(query.Query{Sources: query.NewSources("cnn", "fox-news", "the-wall-street-journal", "bbc-news")})
	var buf bytes.Buffer
	err := executeSearch(context.Background(), &buf, s, svc.fetcher, false)

	require.Error(t, err)
	assert.Equal(t, "Sources cannot be more than three.", err.Error())
	assert.Empty(t, buf.String())
	assert.Zero(t, atomic.LoadInt32(hits))
}

func TestExecuteSearchDuplicateSources(t *testing.T) {
	srv, hits := newProvider(t, false)
	svc := testServices(t, srv.URL)

	s := session.New(query.Query{Sources: query.NewSources("cnn", "cnn")})
	var buf bytes.Buffer
	err := executeSearch(context.Background(), &buf, s, svc.fetcher, false)

	require.Error(t, err)
	assert.ErrorIs(t, err, query.ErrDuplicateSource)
	assert.Empty(t, buf.String())
	assert.Zero(t, atomic.LoadInt32(hits))
}

func TestExecuteSearchProviderFailure(t *testing.T) {
	srv, _ := newProvider(t, true)
	svc := testServices(t, srv.URL)

	s := session.New(query.Query{Sources: query.NewSources("cnn")})
	err := executeSearch(context.Background(), &bytes.Buffer{}, s, svc.fetcher, false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), news.GenericErrorMessage)
	var perr *news.ProviderError
	assert.ErrorAs(t, err, &perr)
}

func TestCatalogFallsBackToPresets(t *testing.T) {
	srv, _ := newProvider(t, false)
	svc := testServices(t, srv.URL)

	sources, live, err := svc.catalog.Sources(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, live)
	assert.NotEmpty(t, sources)
}

func TestWriteSources(t *testing.T) {
	var buf bytes.Buffer
	writeSources(&buf, []*search.Result{
		{Source: news.ProviderSource{ID: "cnn", Name: "CNN", Category: "general", Country: "us"}},
	})
	out := buf.String()
	assert.Contains(t, out, "cnn")
	assert.Contains(t, out, "CNN")
	assert.Contains(t, out, "US")

	buf.Reset()
	writeSources(&buf, nil)
	assert.Equal(t, "no matching sources\n", buf.String())
}
