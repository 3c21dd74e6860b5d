package news

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pders01/newsdesk/internal/debuglog"
	"github.com/pders01/newsdesk/internal/metrics"
	"github.com/pders01/newsdesk/internal/query"
)

// Provider is the subset of Client the Fetcher needs.
type Provider interface {
	TopHeadlines(ctx context.Context, p HeadlinesParams) (*Page, error)
	Everything(ctx context.Context, p EverythingParams) (*Page, error)
}

// Fetcher turns a query into provider requests and merges the results.
type Fetcher struct {
	provider Provider
}

func NewFetcher(p Provider) *Fetcher {
	return &Fetcher{provider: p}
}

// Fetch runs the operation selected by q.Mode.
func (f *Fetcher) Fetch(ctx context.Context, q query.Query) ([]Article, error) {
	switch q.Mode {
	case query.TopHeadlines:
		return f.FetchTopHeadlines(ctx, q.Keywords, q.Sources)
	case query.Everything:
		return f.FetchEverything(ctx, q.Keywords, q.From, q.To, q.Sources, q.OrderBy)
	default:
		return nil, fmt.Errorf("unsupported mode %v", q.Mode)
	}
}

// FetchTopHeadlines issues one request per source, concurrently, and returns
// the articles in source order. The first failure fails the whole fetch.
func (f *Fetcher) FetchTopHeadlines(ctx context.Context, keywords string, sources []query.Source) ([]Article, error) {
	results := make([][]Article, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			page, err := f.provider.TopHeadlines(gctx, HeadlinesParams{
				Query:   keywords,
				Sources: []string{src.ID},
				Page:    src.Page,
			})
			if err != nil {
				return err
			}
			results[i] = page.Articles
			metrics.RecordArticlesReceived(src.ID, len(page.Articles))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return flatten(results), nil
}

// FetchEverything sends sources that want the same page as one request.
// Requests are ordered by the first appearance of each page number.
func (f *Fetcher) FetchEverything(ctx context.Context, keywords string, from, to time.Time, sources []query.Source, orderBy query.OrderBy) ([]Article, error) {
	batches := batchByPage(sources)
	results := make([][]Article, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	for i, b := range batches {
		g.Go(func() error {
			page, err := f.provider.Everything(gctx, EverythingParams{
				Query:   keywords,
				Sources: b.ids,
				From:    from,
				To:      to,
				SortBy:  orderBy.String(),
				Page:    b.page,
			})
			if err != nil {
				return err
			}
			results[i] = page.Articles
			for _, a := range page.Articles {
				metrics.RecordArticlesReceived(a.SourceID, 1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	debuglog.Debugf("everything: %d request(s) for %d source(s)", len(batches), len(sources))
	return flatten(results), nil
}

type pageBatch struct {
	page int
	ids  []string
}

func batchByPage(sources []query.Source) []pageBatch {
	var batches []pageBatch
	index := make(map[int]int)
	for _, s := range sources {
		page := s.Page
		if page < 1 {
			page = 1
		}
		i, ok := index[page]
		if !ok {
			i = len(batches)
			index[page] = i
			batches = append(batches, pageBatch{page: page})
		}
		batches[i].ids = append(batches[i].ids, s.ID)
	}
	return batches
}

func flatten(parts [][]Article) []Article {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]Article, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
