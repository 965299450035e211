package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

type Config struct {
	API      APIConfig      `mapstructure:"api" toml:"api"`
	Search   SearchConfig   `mapstructure:"search" toml:"search"`
	Recent   RecentConfig   `mapstructure:"recent" toml:"recent"`
	Database DatabaseConfig `mapstructure:"database" toml:"database"`
	Feed     FeedConfig     `mapstructure:"feed" toml:"feed"`
	Web      WebConfig      `mapstructure:"web" toml:"web"`
	Log      LogConfig      `mapstructure:"log" toml:"log"`
	UI       UIConfig       `mapstructure:"ui" toml:"ui"`
}

type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url" toml:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout" toml:"timeout"`
	UserAgent string        `mapstructure:"user_agent" toml:"user_agent"`
	Token     string        `mapstructure:"token" toml:"token,omitempty"`
}

// SearchConfig controls the autocomplete controller and the results page.
type SearchConfig struct {
	Backend         string        `mapstructure:"backend" toml:"backend"`
	Debounce        time.Duration `mapstructure:"debounce" toml:"debounce"`
	MinQueryLength  int           `mapstructure:"min_query_length" toml:"min_query_length"`
	SuggestionLimit int           `mapstructure:"suggestion_limit" toml:"suggestion_limit"`
	ResultsLimit    int           `mapstructure:"results_limit" toml:"results_limit"`
}

type RecentConfig struct {
	MaxEntries int `mapstructure:"max_entries" toml:"max_entries"`
}

type DatabaseConfig struct {
	Path        string        `mapstructure:"path" toml:"path"`
	Timeout     time.Duration `mapstructure:"timeout" toml:"timeout"`
	SearchIndex string        `mapstructure:"search_index" toml:"search_index"`
}

type FeedConfig struct {
	HTTPTimeout     time.Duration `mapstructure:"http_timeout" toml:"http_timeout"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval" toml:"refresh_interval"`
	UserAgent       string        `mapstructure:"user_agent" toml:"user_agent"`
	Sources         []string      `mapstructure:"sources" toml:"sources"`
}

type WebConfig struct {
	BaseURL string `mapstructure:"base_url" toml:"base_url"`
	Opener  string `mapstructure:"opener" toml:"opener"`
}

type LogConfig struct {
	Level string `mapstructure:"level" toml:"level"`
	File  string `mapstructure:"file" toml:"file"`
}

type UIConfig struct {
	Colors UIColors `mapstructure:"colors" toml:"colors"`
}

type UIColors struct {
	Primary   string `mapstructure:"primary" toml:"primary"`
	Secondary string `mapstructure:"secondary" toml:"secondary"`
	Accent    string `mapstructure:"accent" toml:"accent"`
	Text      string `mapstructure:"text" toml:"text"`
	Muted     string `mapstructure:"muted" toml:"muted"`
	Error     string `mapstructure:"error" toml:"error"`
}

const (
	BackendRemote = "remote"
	BackendLocal  = "local"
)

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".hubsearch")

	return &Config{
		API: APIConfig{
			BaseURL:   "https://api.servicehub.example/v1",
			Timeout:   10 * time.Second,
			UserAgent: "hubsearch/1.0 (https://github.com/pders01/hubsearch)",
		},
		Search: SearchConfig{
			Backend:         BackendRemote,
			Debounce:        300 * time.Millisecond,
			MinQueryLength:  2,
			SuggestionLimit: 5,
			ResultsLimit:    20,
		},
		Recent: RecentConfig{
			MaxEntries: 10,
		},
		Database: DatabaseConfig{
			Path:        filepath.Join(dataDir, "hubsearch.db"),
			Timeout:     1 * time.Second,
			SearchIndex: filepath.Join(dataDir, "index.bleve"),
		},
		Feed: FeedConfig{
			HTTPTimeout:     30 * time.Second,
			RefreshInterval: 15 * time.Minute,
			UserAgent:       "hubsearch/1.0 (tender feed importer)",
			Sources:         []string{},
		},
		Web: WebConfig{
			BaseURL: "https://servicehub.example",
			Opener:  getDefaultOpener(),
		},
		Log: LogConfig{
			Level: "off",
			File:  filepath.Join(dataDir, "hubsearch.log"),
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:   "#FF6B6B",
				Secondary: "#4ECDC4",
				Accent:    "#95E1D3",
				Text:      "#EAEAEA",
				Muted:     "#94A3B8",
				Error:     "#F87171",
			},
		},
	}
}

func getDefaultOpener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "windows":
		return "start"
	default:
		return "xdg-open"
	}
}

// Default returns a fresh copy of the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	cfg := defaultConfig()
	v.SetDefault("api", cfg.API)
	v.SetDefault("search", cfg.Search)
	v.SetDefault("recent", cfg.Recent)
	v.SetDefault("database", cfg.Database)
	v.SetDefault("feed", cfg.Feed)
	v.SetDefault("web", cfg.Web)
	v.SetDefault("log", cfg.Log)
	v.SetDefault("ui", cfg.UI)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		homeDir, _ := os.UserHomeDir()
		configDir := filepath.Join(homeDir, ".config", "hubsearch")

		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("HUBSEARCH")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandPaths(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings the search controller cannot work with.
func (c *Config) Validate() error {
	switch c.Search.Backend {
	case BackendRemote, BackendLocal:
	default:
		return fmt.Errorf("invalid search backend %q (want %q or %q)", c.Search.Backend, BackendRemote, BackendLocal)
	}
	if c.Search.MinQueryLength < 1 {
		return fmt.Errorf("search.min_query_length must be at least 1")
	}
	if c.Search.Debounce < 0 {
		return fmt.Errorf("search.debounce must not be negative")
	}
	if c.Search.SuggestionLimit < 1 || c.Search.ResultsLimit < 1 {
		return fmt.Errorf("search limits must be positive")
	}
	if c.Recent.MaxEntries < 1 {
		return fmt.Errorf("recent.max_entries must be positive")
	}
	return nil
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

func expandPaths(cfg *Config) {
	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Database.SearchIndex = expandPath(cfg.Database.SearchIndex)
	cfg.Log.File = expandPath(cfg.Log.File)
}

func Save(config *Config, path string) error {
	v := viper.New()

	// Durations as strings for TOML readability
	apiCfg := map[string]interface{}{
		"base_url":   config.API.BaseURL,
		"timeout":    config.API.Timeout.String(),
		"user_agent": config.API.UserAgent,
	}

	searchCfg := map[string]interface{}{
		"backend":          config.Search.Backend,
		"debounce":         config.Search.Debounce.String(),
		"min_query_length": config.Search.MinQueryLength,
		"suggestion_limit": config.Search.SuggestionLimit,
		"results_limit":    config.Search.ResultsLimit,
	}

	dbCfg := map[string]interface{}{
		"path":         config.Database.Path,
		"timeout":      config.Database.Timeout.String(),
		"search_index": config.Database.SearchIndex,
	}

	feedCfg := map[string]interface{}{
		"http_timeout":     config.Feed.HTTPTimeout.String(),
		"refresh_interval": config.Feed.RefreshInterval.String(),
		"user_agent":       config.Feed.UserAgent,
		"sources":          config.Feed.Sources,
	}

	v.Set("api", apiCfg)
	v.Set("search", searchCfg)
	v.Set("recent", map[string]interface{}{"max_entries": config.Recent.MaxEntries})
	v.Set("database", dbCfg)
	v.Set("feed", feedCfg)
	v.Set("web", map[string]interface{}{"base_url": config.Web.BaseURL, "opener": config.Web.Opener})
	v.Set("log", map[string]interface{}{"level": config.Log.Level, "file": config.Log.File})
	v.Set("ui", config.UI)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}

// Dump renders the effective configuration as TOML. The API token is masked.
func Dump(config *Config) ([]byte, error) {
	masked := *config
	if masked.API.Token != "" {
		masked.API.Token = "********"
	}
	out, err := toml.Marshal(masked)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return out, nil
}
