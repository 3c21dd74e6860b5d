package tui

import (
	"fmt"
	"strings"
)

// Canonical short status messages used across the app.
const (
	MsgSearching      = "Searching…"
	MsgLoadingSources = "Loading sources…"
	MsgLoadingArticle = "Loading article…"
	MsgNoResults      = "No results"
	MsgOpened         = "Opened in browser"
	MsgOfflineSources = "Provider unreachable, showing saved sources"
)

func MsgResultsCount(articles, sources int) string {
	noun := "articles"
	if articles == 1 {
		noun = "article"
	}
	return fmt.Sprintf("%d %s from %d sources", articles, noun, sources)
}

func MsgSourcesCount(n int, selected []string) string {
	base := fmt.Sprintf("%d sources", n)
	if len(selected) > 0 {
		base += " • selected: " + strings.Join(selected, ", ")
	}
	return base
}

func MsgPage(sourceID string, page int) string {
	return fmt.Sprintf("%s: page %d", sourceID, page)
}
