package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/newsdesk/internal/debuglog"
	"github.com/pders01/newsdesk/internal/news"
	"github.com/pders01/newsdesk/internal/search"
	"github.com/pders01/newsdesk/internal/session"
)

// dispatch runs d in the background. A nil dispatch means the session
// decided not to fetch.
func (a *App) dispatch(d *session.Dispatch) tea.Cmd {
	if d == nil {
		return nil
	}
	ctx, fetcher := a.ctx, a.fetcher
	return tea.Batch(
		a.spinner.Tick,
		func() tea.Msg {
			return fetchDoneMsg{result: d.Run(ctx, fetcher)}
		},
	)
}

func (a *App) loadSources(refresh bool) tea.Cmd {
	if a.catalog == nil {
		return nil
	}
	a.sourcesLoading = true
	ctx, catalog, index := a.ctx, a.catalog, a.index
	return tea.Batch(
		a.spinner.Tick,
		func() tea.Msg {
			sources, live, err := catalog.Sources(ctx, refresh)
			if err != nil {
				return errorMsg{err: wrapErr("load sources", err)}
			}
			if index != nil {
				if err := index.Index(sources); err != nil {
					debuglog.Warnf("indexing %d sources: %v", len(sources), err)
				} else if stats, ok := index.(search.DebugStatser); ok {
					if n, err := stats.DocCount(); err == nil {
						debuglog.Debugf("source index holds %d documents", n)
					}
				}
			}
			return sourcesLoadedMsg{sources: sources, live: live}
		},
	)
}

// filterSources matches q against the loaded catalog. Without an index
// it falls back to a case-insensitive substring match.
func (a *App) filterSources(q string) tea.Cmd {
	index := a.index
	sources := append([]news.ProviderSource(nil), a.sources...)
	return func() tea.Msg {
		if index != nil {
			results, err := index.Search(q, 0)
			if err == nil {
				return sourcesFilteredMsg{query: q, results: results}
			}
			debuglog.Warnf("source search %q: %v", q, err)
		}
		return sourcesFilteredMsg{query: q, results: substringMatch(sources, q)}
	}
}

func substringMatch(sources []news.ProviderSource, q string) []*search.Result {
	q = strings.ToLower(strings.TrimSpace(q))
	var out []*search.Result
	for _, s := range sources {
		if q == "" ||
			strings.Contains(strings.ToLower(s.Name), q) ||
			strings.Contains(strings.ToLower(s.ID), q) {
			out = append(out, &search.Result{Source: s, Score: 1})
		}
	}
	return out
}

func (a *App) renderArticle(article news.Article) tea.Cmd {
	renderer, rendererErr := a.getRenderer()
	sourceName := a.sourceName(article.SourceID)
	if article.SourceName != "" {
		sourceName = article.SourceName
	}

	return func() tea.Msg {
		md := articleMarkdown(article, sourceName)
		if rendererErr != nil {
			return articleRenderedMsg{content: md}
		}
		rendered, err := renderer.Render(md)
		if err != nil {
			return articleRenderedMsg{content: md}
		}
		return articleRenderedMsg{content: rendered}
	}
}

func articleMarkdown(article news.Article, sourceName string) string {
	var content strings.Builder
	content.WriteString(fmt.Sprintf("# %s\n\n", article.Title))

	if published := formatPublished(article.PublishedAt); published != "" {
		content.WriteString(fmt.Sprintf("*Published: %s*\n\n", published))
	}

	var byline []string
	if sourceName != "" {
		byline = append(byline, fmt.Sprintf("**Source:** %s", sourceName))
	}
	if article.Author != "" {
		byline = append(byline, fmt.Sprintf("**By:** %s", article.Author))
	}
	if len(byline) > 0 {
		content.WriteString(strings.Join(byline, "  ·  "))
		content.WriteString("\n\n")
	}

	if article.URL != "" {
		content.WriteString(fmt.Sprintf("[Read Online](%s)\n\n", article.URL))
	}
	if article.ImageURL != "" {
		content.WriteString(fmt.Sprintf("[Image](%s)\n\n", article.ImageURL))
	}

	content.WriteString("---\n\n")

	body := article.Content
	if body == "" {
		body = article.Description
	}
	content.WriteString(body)

	return content.String()
}

func (a *App) openURL(url string) tea.Cmd {
	if a.opener == nil || url == "" {
		return nil
	}
	opener := a.opener
	return func() tea.Msg {
		return openedMsg{err: wrapErr("open link", opener.Open(url))}
	}
}
