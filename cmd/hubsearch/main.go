package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pders01/hubsearch/internal/api"
	"github.com/pders01/hubsearch/internal/browser"
	"github.com/pders01/hubsearch/internal/config"
	"github.com/pders01/hubsearch/internal/debuglog"
	"github.com/pders01/hubsearch/internal/feed"
	"github.com/pders01/hubsearch/internal/recent"
	"github.com/pders01/hubsearch/internal/search"
	"github.com/pders01/hubsearch/internal/storage"
	"github.com/pders01/hubsearch/internal/tui"
	"github.com/pders01/hubsearch/internal/validation"
)

// Version is the version of the application, set at build time
var Version = "dev"

var (
	configPath  string
	dbPath      string
	backendName string
	quiet       bool
)

var rootCmd = &cobra.Command{
	Use:           "hubsearch",
	Short:         "Search ServiceHub projects, services and providers from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to configuration file")
	flags.StringVar(&dbPath, "db", "", "Path to database file (overrides config)")
	flags.StringVar(&backendName, "backend", "", "Search backend: remote or local (overrides config)")
	flags.BoolVar(&quiet, "quiet", false, "Skip startup banner")

	rootCmd.AddCommand(versionCmd, queryCmd, recentCmd, catalogCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, applies flag overrides and sets up
// logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if dbPath != "" {
		clean, err := validation.NewPermissivePathValidator().ValidateFile(dbPath)
		if err != nil {
			return nil, fmt.Errorf("invalid --db: %w", err)
		}
		cfg.Database.Path = clean
	}
	if backendName != "" {
		cfg.Search.Backend = backendName
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	if err := debuglog.Setup(debuglog.ParseLogLevel(cfg.Log.Level), cfg.Log.File); err != nil {
		return nil, err
	}
	debuglog.Infof("hubsearch %s starting (backend=%s)", Version, cfg.Search.Backend)
	return cfg, nil
}

// env is what a command works against: the catalog store, the recent
// searches kept in it and, for the local backend, the bleve index.
type env struct {
	cfg    *config.Config
	store  *storage.Store
	engine *search.BleveEngine
	recent *recent.Log
}

// openEnv opens the store. The index is opened when the local backend is
// configured or withIndex is set.
func openEnv(cfg *config.Config, withIndex bool) (*env, error) {
	paths := validation.NewPermissivePathValidator()
	dbFile, err := paths.ValidateFile(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}
	if _, err := paths.EnsureDirectory(filepath.Dir(dbFile)); err != nil {
		return nil, err
	}

	store, err := storage.NewStoreWithTimeout(dbFile, cfg.Database.Timeout)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, store: store, recent: recent.New(store, cfg.Recent.MaxEntries)}

	if withIndex || cfg.Search.Backend == config.BackendLocal {
		engine, err := search.NewBleveEngine(store, cfg.Database.SearchIndex)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("opening search index: %w", err)
		}
		if n, err := engine.DocCount(); err == nil {
			debuglog.Debugf("search index open: %d docs", n)
		}
		e.engine = engine
	}
	return e, nil
}

func (e *env) searcher() search.Searcher {
	if e.cfg.Search.Backend == config.BackendLocal && e.engine != nil {
		return e.engine
	}
	return api.NewClient(e.cfg)
}

// feedManager returns a manager that keeps the index in sync, if there is one.
func (e *env) feedManager() *feed.Manager {
	m := feed.NewManager(e.store, e.cfg)
	if e.engine != nil {
		m.SetIndex(e.engine)
	}
	return m
}

func (e *env) Close() error {
	if e.engine != nil {
		_ = e.engine.Close()
	}
	err := e.store.Close()
	_ = debuglog.Close()
	return err
}

func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

func runTUI(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !quiet {
		tui.ShowBanner(Version)
	}

	e, err := openEnv(cfg, false)
	if err != nil {
		return err
	}
	defer e.Close()

	deps := tui.Deps{
		Searcher: e.searcher(),
		Store:    e.store,
		Recent:   e.recent,
	}
	if opener, err := browser.New(cfg); err != nil {
		debuglog.Warnf("browser opener disabled: %v", err)
	} else {
		deps.Opener = opener
	}
	if e.engine != nil {
		deps.Feeds = e.feedManager()
	}

	app := tui.NewApp(cfg, deps)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}
