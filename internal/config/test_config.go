package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   "http://127.0.0.1:0",
			Timeout:   2 * time.Second,
			UserAgent: "hubsearch-test/1.0",
		},
		Search: SearchConfig{
			Backend:         BackendRemote,
			Debounce:        300 * time.Millisecond,
			MinQueryLength:  2,
			SuggestionLimit: 5,
			ResultsLimit:    20,
		},
		Recent: RecentConfig{MaxEntries: 10},
		Database: DatabaseConfig{
			Path:    ":memory:",
			Timeout: 1 * time.Second,
		},
		Feed: FeedConfig{
			HTTPTimeout:     5 * time.Second,
			RefreshInterval: 1 * time.Minute,
			UserAgent:       "hubsearch-test/1.0",
		},
		Web: defaultConfig().Web,
		Log: LogConfig{Level: "off"},
		UI:  defaultConfig().UI,
	}
}
