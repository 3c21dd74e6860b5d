package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/pders01/newsdesk/internal/search"
)

var (
	sourcesRefresh bool
	sourcesLimit   int
)

var sourcesCmd = &cobra.Command{
	Use:   "sources [filter]",
	Short: "List or search the provider's news sources",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSources,
}

func init() {
	sourcesCmd.Flags().BoolVar(&sourcesRefresh, "refresh", false, "ignore the saved catalog and ask the provider")
	sourcesCmd.Flags().IntVar(&sourcesLimit, "limit", 0, "maximum number of sources to print (0 = all)")
}

func runSources(cmd *cobra.Command, args []string) error {
	svc, err := setup()
	if err != nil {
		return err
	}
	defer svc.close()

	sources, live, err := svc.catalog.Sources(commandContext(cmd), sourcesRefresh)
	if err != nil {
		return err
	}
	if !live {
		fmt.Fprintln(cmd.ErrOrStderr(), "provider unreachable, showing saved sources")
	}

	index, err := search.NewSourceIndex()
	if err != nil {
		return err
	}
	defer index.Close()

	if err := index.Index(sources); err != nil {
		return err
	}

	filter := ""
	if len(args) > 0 {
		filter = args[0]
	}
	results, err := index.Search(filter, sourcesLimit)
	if err != nil {
		return fmt.Errorf("searching sources: %w", err)
	}

	writeSources(cmd.OutOrStdout(), results)
	return nil
}

func writeSources(w io.Writer, results []*search.Result) {
	if len(results) == 0 {
		fmt.Fprintln(w, "no matching sources")
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "NAME", "CATEGORY", "COUNTRY")
	for _, r := range results {
		t.Row(r.Source.ID, r.Source.Name, r.Source.Category, strings.ToUpper(r.Source.Country))
	}
	fmt.Fprintln(w, t.String())
}
