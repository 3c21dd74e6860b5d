package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pders01/newsdesk/internal/browser"
	"github.com/pders01/newsdesk/internal/config"
	"github.com/pders01/newsdesk/internal/search"
	"github.com/pders01/newsdesk/internal/session"
	"github.com/pders01/newsdesk/internal/tui"
)

// Version is the version of the application, set at build time
var Version = "dev"

var (
	flagConfig   string
	flagLogLevel string
	flagQuiet    bool
)

var rootCmd = &cobra.Command{
	Use:          "newsdesk",
	Short:        "Terminal news search",
	Long:         "newsdesk searches top headlines and the full article archive of up to three news sources at a time.",
	SilenceUsage: true,
	RunE:         runTUI,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "newsdesk %s\n", Version)
		fmt.Fprintln(out, "Terminal news search")
		fmt.Fprintln(out, "github.com/pders01/newsdesk")
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configPath string

var configGenCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the default configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}
		if err := config.GenerateDefaultConfig(path); err != nil {
			return fmt.Errorf("generating config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Generated default configuration at: %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error or off")
	rootCmd.Flags().BoolVar(&flagQuiet, "quiet", false, "skip startup banner")

	configGenCmd.Flags().StringVar(&configPath, "path", "", "where to write the file (default ~/.config/newsdesk/config.toml)")
	configCmd.AddCommand(configGenCmd)

	rootCmd.AddCommand(versionCmd, configCmd, searchCmd, sourcesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	svc, err := setup()
	if err != nil {
		return err
	}
	defer svc.close()

	tui.ApplyTheme(svc.cfg.UI.Colors)
	if !flagQuiet {
		tui.ShowBanner(Version)
	}

	q, err := initialQuery(svc.cfg)
	if err != nil {
		return err
	}

	index, err := search.NewSourceIndex()
	if err != nil {
		return err
	}
	defer index.Close()

	app := tui.NewApp(svc.cfg, tui.Deps{
		Context: ctx,
		Session: session.New(q),
		Fetcher: svc.fetcher,
		Catalog: svc.catalog,
		Index:   index,
		Opener:  browser.NewLauncher(svc.cfg),
	})

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running tui: %w", err)
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}
