package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/pders01/hubsearch/internal/config"
	"github.com/pders01/hubsearch/internal/search"
	"github.com/pders01/hubsearch/internal/storage"
	"github.com/pders01/hubsearch/internal/validation"
)

var (
	queryLimit   int
	queryJSON    bool
	clearRecent  bool
	forceRefresh bool
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, _ []string) {
		out := outFor(cmd)
		fmt.Fprintf(out, "hubsearch %s\n", Version)
		fmt.Fprintln(out, "ServiceHub search")
		fmt.Fprintln(out, "github.com/pders01/hubsearch")
	},
}

var queryCmd = &cobra.Command{
	Use:   "query QUERY...",
	Short: "Print grouped suggestions for a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		e, err := openEnv(cfg, false)
		if err != nil {
			return err
		}
		defer e.Close()

		q := strings.TrimSpace(strings.Join(args, " "))
		limit := queryLimit
		if limit <= 0 {
			limit = cfg.Search.SuggestionLimit
		}

		ctx, cancel := context.WithTimeout(commandContext(cmd), cfg.API.Timeout)
		defer cancel()
		res, err := e.searcher().Search(ctx, q, search.Options{Limit: limit})
		if err != nil {
			return err
		}
		e.recent.Record(q)

		if queryJSON {
			enc := json.NewEncoder(outFor(cmd))
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		printResults(outFor(cmd), q, res)
		return nil
	},
}

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List recent searches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		e, err := openEnv(cfg, false)
		if err != nil {
			return err
		}
		defer e.Close()

		out := outFor(cmd)
		if clearRecent {
			e.recent.Clear()
			fmt.Fprintln(out, "Recent searches cleared")
			return nil
		}
		entries := e.recent.Entries()
		if len(entries) == 0 {
			fmt.Fprintln(out, "No recent searches")
			return nil
		}
		for i, q := range entries {
			fmt.Fprintf(out, "%2d. %s\n", i+1, q)
		}
		return nil
	},
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the local catalog behind the local search backend",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import a Search API shaped JSON file into the local catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		e, err := openEnv(cfg, true)
		if err != nil {
			return err
		}
		defer e.Close()

		imported, skipped, err := importCatalog(e, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(outFor(cmd), "Imported %d listings", imported)
		if skipped > 0 {
			fmt.Fprintf(outFor(cmd), " (%d without id skipped)", skipped)
		}
		fmt.Fprintln(outFor(cmd))
		return nil
	},
}

var catalogStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog and index sizes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		e, err := openEnv(cfg, true)
		if err != nil {
			return err
		}
		defer e.Close()

		out := outFor(cmd)
		for _, kind := range search.Kinds {
			listings, err := e.store.GetListings(string(kind), 0)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%-10s %d\n", kind.Label()+":", len(listings))
		}
		docs, err := e.engine.DocCount()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%-10s %d docs\n", "Index:", docs)
		return nil
	},
}

var catalogRemoveCmd = &cobra.Command{
	Use:   "remove KIND ID",
	Short: "Remove one listing (project, service or provider) from the local catalog",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, id := args[0], args[1]
		if !slices.Contains(search.Kinds, search.Kind(kind)) {
			return fmt.Errorf("unknown kind %q", kind)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		e, err := openEnv(cfg, true)
		if err != nil {
			return err
		}
		defer e.Close()

		if _, err := e.store.GetListing(kind, id); err != nil {
			return fmt.Errorf("%s %s: %w", kind, id, err)
		}
		if err := e.store.DeleteListing(kind, id); err != nil {
			return err
		}
		if err := e.engine.Remove(kind, id); err != nil {
			return fmt.Errorf("updating index: %w", err)
		}
		fmt.Fprintf(outFor(cmd), "Removed %s %s\n", kind, id)
		return nil
	},
}

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Manage tender feeds that populate projects",
}

var feedAddCmd = &cobra.Command{
	Use:   "add URL",
	Short: "Add an RSS or Atom tender feed and import it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		e, err := openEnv(cfg, true)
		if err != nil {
			return err
		}
		defer e.Close()

		src, n, err := e.feedManager().AddSource(commandContext(cmd), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(outFor(cmd), "Added %q (%d listings)\n", firstNonEmpty(src.Title, src.URL), n)
		return nil
	},
}

var feedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tender feeds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		e, err := openEnv(cfg, false)
		if err != nil {
			return err
		}
		defer e.Close()

		sources, err := e.feedManager().Sources()
		if err != nil {
			return err
		}
		out := outFor(cmd)
		if len(sources) == 0 {
			fmt.Fprintln(out, "No feeds")
			return nil
		}
		for _, src := range sources {
			fetched := "never"
			if !src.LastFetched.IsZero() {
				fetched = src.LastFetched.Format(time.RFC822)
			}
			fmt.Fprintf(out, "%s  %s\n    %s (fetched %s)\n", src.ID, firstNonEmpty(src.Title, "(untitled)"), src.URL, fetched)
		}
		return nil
	},
}

var feedRemoveCmd = &cobra.Command{
	Use:   "remove ID",
	Short: "Remove a tender feed and its projects",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		e, err := openEnv(cfg, true)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.feedManager().RemoveSource(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(outFor(cmd), "Removed %s\n", args[0])
		return nil
	},
}

var feedRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch all tender feeds, including those listed in the config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		e, err := openEnv(cfg, true)
		if err != nil {
			return err
		}
		defer e.Close()

		m := e.feedManager()
		m.SetForceRefresh(forceRefresh)
		ctx := commandContext(cmd)
		out := outFor(cmd)

		known, err := m.Sources()
		if err != nil {
			return err
		}
		for _, url := range cfg.Feed.Sources {
			if slices.ContainsFunc(known, func(s *storage.Source) bool { return s.URL == url }) {
				continue
			}
			if _, n, err := m.AddSource(ctx, url); err != nil {
				fmt.Fprintf(out, "skipping %s: %v\n", url, err)
			} else {
				fmt.Fprintf(out, "Added %s (%d listings)\n", url, n)
			}
		}

		n, err := m.RefreshAll(ctx)
		fmt.Fprintf(out, "Refreshed: %d new listings\n", n)
		return err
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or generate the configuration",
}

var configGenCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the default configuration file",
	Run: func(cmd *cobra.Command, _ []string) {
		target := configPath
		validator := validation.NewPermissivePathValidator()
		if target == "" {
			home, _ := os.UserHomeDir()
			target = filepath.Join(home, ".config", "hubsearch", "config.toml")
			validator = validation.NewPathValidator()
		}
		clean, err := validator.ValidateFile(target)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid config path: %v\n", err)
			return
		}
		if err := config.GenerateDefaultConfig(clean); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			return
		}
		fmt.Fprintf(outFor(cmd), "Generated default configuration at: %s\n", clean)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as TOML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out, err := config.Dump(cfg)
		if err != nil {
			return err
		}
		_, err = outFor(cmd).Write(out)
		return err
	},
}

func init() {
	queryCmd.Flags().IntVar(&queryLimit, "limit", 0, "Suggestions per group (default: search.suggestion_limit)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "Print the result set as JSON")
	recentCmd.Flags().BoolVar(&clearRecent, "clear", false, "Clear the recent searches")
	feedRefreshCmd.Flags().BoolVar(&forceRefresh, "force", false, "Ignore the refresh interval and HTTP caching")

	feedCmd.AddCommand(feedAddCmd, feedListCmd, feedRemoveCmd, feedRefreshCmd)
	catalogCmd.AddCommand(catalogImportCmd, catalogStatsCmd, catalogRemoveCmd, feedCmd)
	configCmd.AddCommand(configGenCmd, configShowCmd)
}

func outFor(cmd *cobra.Command) io.Writer {
	if cmd == nil {
		return os.Stdout
	}
	return cmd.OutOrStdout()
}

// importCatalog loads a Search API shaped JSON file into the store and the
// index. Items without an id cannot be addressed and are skipped.
func importCatalog(e *env, path string) (imported, skipped int, err error) {
	clean, err := validation.NewPermissivePathValidator().ValidateFile(path)
	if err != nil {
		return 0, 0, err
	}
	f, err := os.Open(clean)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	res, err := search.DecodeResults(f)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", clean, err)
	}

	listings := search.ListingsFromResults(res)
	now := time.Now()
	for _, l := range listings {
		l.UpdatedAt = now
	}
	if err := e.store.SaveListings(listings); err != nil {
		return 0, 0, err
	}
	if e.engine != nil {
		e.engine.OnListingsUpdated(listings)
	}
	return len(listings), res.Total() - len(listings), nil
}

// printResults writes the grouped result set with the route each item opens.
func printResults(w io.Writer, query string, res *search.Results) {
	if res.Total() == 0 {
		fmt.Fprintf(w, "No results found for %q\n", query)
		return
	}
	for i, g := range res.Groups() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, g.Kind.Label())
		for _, it := range g.Items {
			fmt.Fprintf(w, "  %-40s %s\n", it.Label(), search.RouteFor(it))
		}
	}
	fmt.Fprintf(w, "\nAll results: %s\n", search.ResultsRoute(query))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
