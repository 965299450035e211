package autocomplete

import (
	"time"

	"github.com/pders01/hubsearch/internal/config"
	"github.com/pders01/hubsearch/internal/search"
)

// Phase is the derived position in the suggestion state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePending
	PhaseOpenWithResults
	PhaseOpenNoResults
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePending:
		return "pending"
	case PhaseOpenWithResults:
		return "open-with-results"
	case PhaseOpenNoResults:
		return "open-no-results"
	default:
		return "unknown"
	}
}

// State is a snapshot of the controller. HighlightIndex is -1 when nothing
// is highlighted, otherwise an index into Suggestions.Flatten().
type State struct {
	Query          string
	Suggestions    *search.Results
	IsOpen         bool
	IsLoading      bool
	HighlightIndex int

	scheduled bool
	// dismissed is set by Escape or an outside click and cleared by the next edit
	dismissed bool
}

func (s State) pending() bool {
	return s.scheduled || s.IsLoading
}

// Phase derives the state machine position from the snapshot.
func (s State) Phase() Phase {
	switch {
	case s.pending() && !s.dismissed:
		return PhasePending
	case s.IsOpen && s.Suggestions.Total() > 0:
		return PhaseOpenWithResults
	case s.IsOpen:
		return PhaseOpenNoResults
	default:
		return PhaseIdle
	}
}

// Flattened is the navigation order of the current suggestions.
func (s State) Flattened() []search.Item {
	return s.Suggestions.Flatten()
}

// Options tune the controller.
type Options struct {
	Debounce       time.Duration
	MinQueryLength int
	// Limit is passed to the searcher per group
	Limit int
	// Timeout bounds a single fetch
	Timeout time.Duration
	// SubmitOnEnter makes enter without a highlight submit the whole query
	SubmitOnEnter bool
	Placeholder   string
}

const (
	defaultDebounce       = 300 * time.Millisecond
	defaultMinQueryLength = 2
	defaultLimit          = 5
	defaultTimeout        = 10 * time.Second
)

// DefaultOptions are the inline autocomplete settings.
func DefaultOptions() Options {
	return Options{
		Debounce:       defaultDebounce,
		MinQueryLength: defaultMinQueryLength,
		Limit:          defaultLimit,
		Timeout:        defaultTimeout,
		SubmitOnEnter:  true,
		Placeholder:    "Search projects, services and providers...",
	}
}

// OptionsFromConfig maps the search and api sections onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	opts.Debounce = cfg.Search.Debounce
	opts.MinQueryLength = cfg.Search.MinQueryLength
	opts.Limit = cfg.Search.SuggestionLimit
	opts.Timeout = cfg.API.Timeout
	return opts.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.Debounce <= 0 {
		o.Debounce = defaultDebounce
	}
	if o.MinQueryLength <= 0 {
		o.MinQueryLength = defaultMinQueryLength
	}
	if o.Limit <= 0 {
		o.Limit = defaultLimit
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	return o
}
