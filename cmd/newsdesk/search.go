package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pders01/newsdesk/internal/debuglog"
	"github.com/pders01/newsdesk/internal/news"
	"github.com/pders01/newsdesk/internal/query"
	"github.com/pders01/newsdesk/internal/session"
)

type searchOptions struct {
	Mode    string
	From    string
	To      string
	OrderBy string
	Sources []string
	JSON    bool
	Verbose bool
}

var searchOpts searchOptions

var searchCmd = &cobra.Command{
	Use:   "search [keywords...]",
	Short: "Run one search and print the results grouped by source",
	Example: `  newsdesk search trump --sources cnn
  newsdesk search --mode everything --from 2021-07-01 --to 2021-07-05 --sources cnn,fox-news`,
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.StringVar(&searchOpts.Mode, "mode", "", "top-headlines or everything")
	f.StringVar(&searchOpts.From, "from", "", "earliest publish date, YYYY-MM-DD (everything only)")
	f.StringVar(&searchOpts.To, "to", "", "latest publish date, YYYY-MM-DD (everything only)")
	f.StringVar(&searchOpts.OrderBy, "order-by", "", "publishedAt, relevancy or popularity")
	f.StringSliceVar(&searchOpts.Sources, "sources", nil, "comma separated source ids, at most three")
	f.BoolVar(&searchOpts.JSON, "json", false, "print results as JSON")
	f.BoolVarP(&searchOpts.Verbose, "verbose", "v", false, "log provider requests to stderr")
}

func runSearch(cmd *cobra.Command, args []string) error {
	svc, err := setup()
	if err != nil {
		return err
	}
	defer svc.close()
	if searchOpts.Verbose {
		debuglog.SetupWriter(debuglog.LevelDebug, cmd.ErrOrStderr())
	}

	q, err := initialQuery(svc.cfg)
	if err != nil {
		return err
	}
	q, err = searchOpts.apply(q, args)
	if err != nil {
		return err
	}

	return executeSearch(commandContext(cmd), cmd.OutOrStdout(), session.New(q), svc.fetcher, searchOpts.JSON)
}

// apply overrides q with every option that was given.
func (o searchOptions) apply(q query.Query, keywords []string) (query.Query, error) {
	q = q.Clone()
	q.Keywords = strings.TrimSpace(strings.Join(keywords, " "))

	if o.Mode != "" {
		mode, err := query.ParseMode(o.Mode)
		if err != nil {
			return q, err
		}
		q.Mode = mode
	}
	if o.OrderBy != "" {
		order, err := query.ParseOrderBy(o.OrderBy)
		if err != nil {
			return q, err
		}
		q.OrderBy = order
	}
	if o.From != "" {
		from, err := query.ParseDate(o.From)
		if err != nil {
			return q, err
		}
		q.From = from
	}
	if o.To != "" {
		to, err := query.ParseDate(o.To)
		if err != nil {
			return q, err
		}
		q.To = to
	}
	if len(o.Sources) > 0 {
		sources := query.NewSources(o.Sources...)
		if err := query.ValidateSourceIDs(sources); err != nil {
			return q, fmt.Errorf("--sources: %w", err)
		}
		q.Sources = sources
	}
	return q, nil
}

// executeSearch runs a single dispatch through s and prints the outcome.
func executeSearch(ctx context.Context, w io.Writer, s *session.Session, f session.Fetcher, asJSON bool) error {
	d := s.TriggerSearch()
	if d != nil {
		s.Complete(d.Run(ctx, f))
	}

	st := s.State()
	if st.Err != nil {
		if st.Err.Kind == session.ErrorProvider {
			return fmt.Errorf("%s: %w", st.Err.Message, st.Err.Err)
		}
		return st.Err
	}

	if asJSON {
		return writeGroupsJSON(w, s.Groups())
	}
	writeGroups(w, s.Query(), s.Groups())
	return nil
}

func writeGroups(w io.Writer, q query.Query, groups []news.Group) {
	pages := make(map[string]int, len(q.Sources))
	for _, src := range q.Sources {
		pages[src.ID] = src.Page
	}

	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "== %s (page %d, %d articles)\n", g.SourceID, pages[g.SourceID], len(g.Articles))
		if len(g.Articles) == 0 {
			fmt.Fprintln(w, "   no articles")
			continue
		}
		for _, a := range g.Articles {
			fmt.Fprintf(w, " - %s\n", a.Title)
			if !a.PublishedAt.IsZero() {
				fmt.Fprintf(w, "   %s  %s\n", a.PublishedAt.Local().Format("2006-01-02 15:04"), a.URL)
			} else if a.URL != "" {
				fmt.Fprintf(w, "   %s\n", a.URL)
			}
		}
	}
}

func writeGroupsJSON(w io.Writer, groups []news.Group) error {
	type group struct {
		Source   string         `json:"source"`
		Articles []news.Article `json:"articles"`
	}
	out := make([]group, len(groups))
	for i, g := range groups {
		out[i] = group{Source: g.SourceID, Articles: g.Articles}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
