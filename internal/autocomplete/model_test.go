package autocomplete

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/hubsearch/internal/api"
	"github.com/pders01/hubsearch/internal/config"
	"github.com/pders01/hubsearch/internal/recent"
	"github.com/pders01/hubsearch/internal/search"
)

type call struct {
	query string
	limit int
	ctx   context.Context
}

type fakeSearcher struct {
	mu      sync.Mutex
	calls   []call
	results map[string]*search.Results
	err     error
	// block makes Search wait for the context to end
	block bool
}

func (f *fakeSearcher) Search(ctx context.Context, query string, opts search.Options) (*search.Results, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{query: query, limit: opts.Limit, ctx: ctx})
	res, err, block := f.results[query], f.err, f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	if res == nil {
		return search.Empty(), nil
	}
	out := *res
	return out.Normalize(), nil
}

func (f *fakeSearcher) queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.query
	}
	return out
}

func projectX() *search.Results {
	return &search.Results{Projects: []search.Item{{ID: "7", Title: "Project X"}}}
}

func designResults() *search.Results {
	return &search.Results{
		Projects:  []search.Item{{ID: "7", Title: "Website design"}},
		Services:  []search.Item{{ID: "12", Name: "Logo design", Description: "Brand identity"}},
		Providers: []search.Item{{ID: "42", Name: "Designhaus"}},
	}
}

func newTestModel(f *fakeSearcher, log *recent.Log) *Model {
	opts := DefaultOptions()
	opts.Debounce = 5 * time.Millisecond
	opts.Timeout = time.Second
	m := New(f, log, opts)
	m.input.Cursor.SetMode(cursor.CursorStatic)
	return m
}

// run executes cmd, flattening batches, and returns the produced messages.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, run(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// settle runs cmd and feeds the controller's own messages back into it until
// nothing is left. Everything else (navigation) is returned.
func settle(m *Model, cmd tea.Cmd) []tea.Msg {
	var out []tea.Msg
	queue := run(cmd)
	for len(queue) > 0 {
		msg := queue[0]
		queue = queue[1:]
		switch msg.(type) {
		case debounceMsg, resultsMsg:
			queue = append(queue, run(m.Update(msg))...)
		default:
			out = append(out, msg)
		}
	}
	return out
}

func typeText(m *Model, s string) tea.Cmd {
	var cmds []tea.Cmd
	for _, r := range s {
		cmds = append(cmds, m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}))
	}
	return tea.Batch(cmds...)
}

func press(m *Model, t tea.KeyType) tea.Cmd {
	return m.Update(tea.KeyMsg{Type: t})
}

func navigation(t *testing.T, msgs []tea.Msg) NavigateMsg {
	t.Helper()
	for _, msg := range msgs {
		if nav, ok := msg.(NavigateMsg); ok {
			return nav
		}
	}
	t.Fatalf("no NavigateMsg in %v", msgs)
	return NavigateMsg{}
}

func TestSubThresholdQueriesNeverFetch(t *testing.T) {
	f := &fakeSearcher{}
	m := newTestModel(f, nil)

	for _, q := range []string{"", "a", " a ", "     ", "é"} {
		assert.Nil(t, m.SetQuery(q), "query %q", q)
		s := m.State()
		assert.False(t, s.IsOpen)
		assert.False(t, s.IsLoading)
		assert.Equal(t, PhaseIdle, s.Phase())
	}
	assert.Empty(t, f.queries())
}

func TestSubThresholdQueryClearsOpenDropdown(t *testing.T) {
	f := &fakeSearcher{results: map[string]*search.Results{"design": designResults()}}
	m := newTestModel(f, nil)

	settle(m, m.SetQuery("design"))
	require.True(t, m.State().IsOpen)

	assert.Nil(t, m.SetQuery("d"))
	s := m.State()
	assert.False(t, s.IsOpen)
	assert.Equal(t, 0, s.Suggestions.Total())
	assert.Equal(t, -1, s.HighlightIndex)
	assert.Equal(t, "d", s.Query)
}

func TestScenarioA_TwoCharactersFetchOnceAfterQuietPeriod(t *testing.T) {
	f := &fakeSearcher{}
	m := newTestModel(f, nil)

	cmd := m.SetQuery("ab")
	require.NotNil(t, cmd)
	assert.Equal(t, PhasePending, m.Phase())
	assert.False(t, m.State().IsLoading, "loading starts when the fetch is issued")
	assert.Empty(t, f.queries(), "nothing is fetched before the quiet period")

	msgs := run(cmd)
	require.Len(t, msgs, 1)
	fetch := m.Update(msgs[0])
	require.NotNil(t, fetch)
	assert.True(t, m.State().IsLoading)

	settle(m, fetch)
	assert.Equal(t, []string{"ab"}, f.queries())
	assert.Equal(t, 5, f.calls[0].limit)
	assert.False(t, m.State().IsLoading)
}

func TestRapidTypingIssuesSingleFetch(t *testing.T) {
	f := &fakeSearcher{results: map[string]*search.Results{"design": designResults()}}
	m := newTestModel(f, nil)

	settle(m, typeText(m, "design"))

	assert.Equal(t, []string{"design"}, f.queries())
	s := m.State()
	assert.Equal(t, "design", s.Query)
	assert.True(t, s.IsOpen)
	assert.Equal(t, 3, s.Suggestions.Total())
	assert.Equal(t, PhaseOpenWithResults, s.Phase())
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	f := &fakeSearcher{results: map[string]*search.Results{
		"ab":  {Projects: []search.Item{{ID: "1", Title: "ab result"}}},
		"abc": {Services: []search.Item{{ID: "2", Name: "abc result"}}},
	}}
	m := newTestModel(f, nil)

	fetchA := m.Update(run(m.SetQuery("ab"))[0])
	require.NotNil(t, fetchA)

	fetchB := m.Update(run(m.SetQuery("abc"))[0])
	require.NotNil(t, fetchB)

	settle(m, fetchB)
	require.Equal(t, "abc result", m.State().Flattened()[0].Label())

	// A resolves after B
	settle(m, fetchA)
	flat := m.State().Flattened()
	require.Len(t, flat, 1)
	assert.Equal(t, "abc result", flat[0].Label())

	require.Len(t, f.calls, 2)
	for _, c := range f.calls {
		if c.query == "ab" {
			assert.ErrorIs(t, c.ctx.Err(), context.Canceled, "superseded request is aborted")
		}
	}
}

func TestOlderDebounceTickNeverFires(t *testing.T) {
	f := &fakeSearcher{}
	m := newTestModel(f, nil)

	first := run(m.SetQuery("ab"))
	m.SetQuery("abc")

	assert.Nil(t, m.Update(first[0]))
	assert.Empty(t, f.queries())
}

func TestFetchFailureOpensNoResults(t *testing.T) {
	for _, err := range []error{
		&api.NetworkError{Op: "GET /search", Err: errors.New("connection refused")},
		&api.ServerError{StatusCode: 502},
	} {
		f := &fakeSearcher{err: err}
		m := newTestModel(f, nil)

		settle(m, m.SetQuery("design"))

		s := m.State()
		assert.True(t, s.IsOpen)
		assert.False(t, s.IsLoading)
		assert.NotNil(t, s.Suggestions)
		assert.Equal(t, 0, s.Suggestions.Total())
		assert.Equal(t, PhaseOpenNoResults, s.Phase())
		assert.Contains(t, m.View(), `No results found for "design"`)
	}
}

func TestFetchTimeoutOpensNoResults(t *testing.T) {
	f := &fakeSearcher{block: true}
	m := newTestModel(f, nil)
	m.opts.Timeout = 20 * time.Millisecond

	settle(m, m.SetQuery("design"))

	assert.Equal(t, PhaseOpenNoResults, m.Phase())
}

func TestScenarioB_ArrowDownEnterSelects(t *testing.T) {
	f := &fakeSearcher{results: map[string]*search.Results{"project x": projectX()}}
	m := newTestModel(f, nil)

	settle(m, m.SetQuery("project x"))
	flat := m.State().Flattened()
	require.Len(t, flat, 1)
	assert.Equal(t, -1, m.State().HighlightIndex)

	press(m, tea.KeyDown)
	assert.Equal(t, 0, m.State().HighlightIndex)

	nav := navigation(t, settle(m, press(m, tea.KeyEnter)))
	assert.Equal(t, "/projects/7", nav.Route)
	require.NotNil(t, nav.Item)
	assert.Equal(t, "7", nav.Item.ID)

	s := m.State()
	assert.Equal(t, "", s.Query)
	assert.False(t, s.IsOpen)
	assert.Equal(t, PhaseIdle, s.Phase())
}

func TestScenarioC_EmptyResultsShowMessage(t *testing.T) {
	f := &fakeSearcher{}
	m := newTestModel(f, nil)

	settle(m, m.SetQuery("zzz"))

	s := m.State()
	assert.True(t, s.IsOpen)
	assert.Equal(t, PhaseOpenNoResults, s.Phase())
	assert.Contains(t, m.View(), `No results found for "zzz"`)

	handled, _ := m.HandleKey(tea.KeyMsg{Type: tea.KeyDown})
	assert.False(t, handled, "navigation is inactive without suggestions")
}

func TestScenarioD_SubmitWithoutHighlight(t *testing.T) {
	log := recent.New(recent.NewMemoryBackend(), 0)
	log.Record("logo")
	f := &fakeSearcher{results: map[string]*search.Results{"design": designResults()}}
	m := newTestModel(f, log)

	settle(m, m.SetQuery("design"))
	require.Equal(t, -1, m.State().HighlightIndex)

	nav := navigation(t, settle(m, press(m, tea.KeyEnter)))
	assert.Equal(t, "/search?q=design", nav.Route)
	assert.Equal(t, "design", nav.Query)
	assert.Nil(t, nav.Item)
	assert.Equal(t, []string{"design", "logo"}, log.Entries())
	assert.Equal(t, "", m.Query())
	assert.False(t, m.State().IsOpen)
}

func TestSubmitBlankIsNoop(t *testing.T) {
	log := recent.New(recent.NewMemoryBackend(), 0)
	m := newTestModel(&fakeSearcher{}, log)

	m.SetQuery("   ")
	handled, cmd := m.HandleKey(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, handled)
	assert.Nil(t, cmd)
	assert.Empty(t, log.Entries())
}

func TestKeyboardWrap(t *testing.T) {
	f := &fakeSearcher{results: map[string]*search.Results{"design": designResults()}}
	m := newTestModel(f, nil)
	settle(m, m.SetQuery("design"))
	n := len(m.State().Flattened())
	require.Equal(t, 3, n)

	var seen []int
	for i := 0; i < n; i++ {
		press(m, tea.KeyDown)
		seen = append(seen, m.State().HighlightIndex)
	}
	assert.Equal(t, []int{0, 1, 2}, seen)

	press(m, tea.KeyDown)
	assert.Equal(t, 0, m.State().HighlightIndex, "down wraps from last to first")

	press(m, tea.KeyUp)
	assert.Equal(t, n-1, m.State().HighlightIndex, "up wraps from first to last")
}

func TestArrowUpFromNoHighlightGoesToLast(t *testing.T) {
	f := &fakeSearcher{results: map[string]*search.Results{"design": designResults()}}
	m := newTestModel(f, nil)
	settle(m, m.SetQuery("design"))

	press(m, tea.KeyUp)
	assert.Equal(t, 2, m.State().HighlightIndex)
}

func TestKeysPassThroughWhenClosed(t *testing.T) {
	m := newTestModel(&fakeSearcher{}, nil)
	for _, kt := range []tea.KeyType{tea.KeyDown, tea.KeyUp, tea.KeyEscape} {
		handled, cmd := m.HandleKey(tea.KeyMsg{Type: kt})
		assert.False(t, handled)
		assert.Nil(t, cmd)
	}

	m.opts.SubmitOnEnter = false
	handled, _ := m.HandleKey(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, handled)
}

func TestEscapeClosesButKeepsQuery(t *testing.T) {
	f := &fakeSearcher{results: map[string]*search.Results{"design": designResults()}}
	m := newTestModel(f, nil)
	settle(m, m.SetQuery("design"))
	press(m, tea.KeyDown)
	press(m, tea.KeyDown)

	press(m, tea.KeyEscape)

	s := m.State()
	assert.False(t, s.IsOpen)
	assert.Equal(t, -1, s.HighlightIndex)
	assert.Equal(t, "design", s.Query)
	assert.Equal(t, PhaseIdle, s.Phase())
}

func TestQueryChangeWhileOpenKeepsStaleResults(t *testing.T) {
	f := &fakeSearcher{results: map[string]*search.Results{"design": designResults()}}
	m := newTestModel(f, nil)
	settle(m, m.SetQuery("design"))

	tick := m.SetQuery("designer")
	require.NotNil(t, tick)

	s := m.State()
	assert.True(t, s.IsOpen, "no flash to empty")
	assert.Equal(t, 3, s.Suggestions.Total())
	assert.Equal(t, PhasePending, s.Phase())

	settle(m, tick)
	assert.Equal(t, PhaseOpenNoResults, m.Phase())
}

func TestSameTrimmedQueryDoesNotRefetch(t *testing.T) {
	f := &fakeSearcher{}
	m := newTestModel(f, nil)
	settle(m, m.SetQuery("design"))

	assert.Nil(t, m.SetQuery("design "))
	assert.Equal(t, []string{"design"}, f.queries())
}

func TestOutsideClickClosesAndLateResultDoesNotReopen(t *testing.T) {
	f := &fakeSearcher{results: map[string]*search.Results{"design": designResults(), "designs": designResults()}}
	m := newTestModel(f, nil)
	m.SetWidth(40)
	m.SetOrigin(0, 0)

	settle(m, m.SetQuery("desi"))
	require.True(t, m.State().IsOpen)

	fetch := m.Update(run(m.SetQuery("design"))[0])
	require.NotNil(t, fetch)

	handled, cmd := m.HandleMouse(tea.MouseMsg{X: 5, Y: 30, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	assert.False(t, handled)
	assert.Nil(t, cmd)
	assert.False(t, m.State().IsOpen)

	settle(m, fetch)
	s := m.State()
	assert.False(t, s.IsOpen, "late result must not reopen the dropdown")
	assert.Equal(t, 3, s.Suggestions.Total())
	assert.Equal(t, PhaseIdle, s.Phase())

	settle(m, m.SetQuery("designs"))
	assert.True(t, m.State().IsOpen, "a new query reopens")
}

func TestDismissBeforeFirstResultKeepsDropdownClosed(t *testing.T) {
	outside := tea.MouseMsg{X: 5, Y: 30, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}
	dismissals := map[string]func(m *Model) bool{
		"outside click": func(m *Model) bool {
			handled, _ := m.HandleMouse(outside)
			return handled
		},
		"escape": func(m *Model) bool {
			handled, _ := m.HandleKey(tea.KeyMsg{Type: tea.KeyEscape})
			return handled
		},
	}

	for name, dismiss := range dismissals {
		t.Run(name+" while loading", func(t *testing.T) {
			f := &fakeSearcher{results: map[string]*search.Results{"design": designResults()}}
			m := newTestModel(f, nil)
			m.SetWidth(40)
			m.SetOrigin(0, 0)

			fetch := m.Update(run(m.SetQuery("design"))[0])
			require.NotNil(t, fetch)
			require.Equal(t, PhasePending, m.Phase())

			dismiss(m)
			s := m.State()
			assert.True(t, s.IsLoading)
			assert.Equal(t, PhaseIdle, s.Phase())

			settle(m, fetch)
			s = m.State()
			assert.False(t, s.IsOpen)
			assert.Equal(t, 3, s.Suggestions.Total())
			assert.Equal(t, PhaseIdle, s.Phase())
		})

		t.Run(name+" during quiet period", func(t *testing.T) {
			f := &fakeSearcher{results: map[string]*search.Results{"design": designResults()}}
			m := newTestModel(f, nil)
			m.SetWidth(40)
			m.SetOrigin(0, 0)

			tick := m.SetQuery("design")
			dismiss(m)
			assert.Equal(t, PhaseIdle, m.Phase())

			settle(m, tick)
			assert.False(t, m.State().IsOpen)
			assert.Equal(t, PhaseIdle, m.Phase())
		})
	}

	m := newTestModel(&fakeSearcher{}, nil)
	tick := m.SetQuery("design")
	handled, _ := m.HandleKey(tea.KeyMsg{Type: tea.KeyEscape})
	assert.True(t, handled, "escape is consumed while a fetch is pending")
	settle(m, tick)
	handled, _ = m.HandleKey(tea.KeyMsg{Type: tea.KeyEscape})
	assert.False(t, handled, "nothing left to close")
}

func TestEditAfterDismissReopens(t *testing.T) {
	f := &fakeSearcher{results: map[string]*search.Results{"design": designResults()}}
	m := newTestModel(f, nil)
	settle(m, m.SetQuery("design"))
	press(m, tea.KeyEscape)
	require.False(t, m.State().IsOpen)

	assert.Nil(t, m.SetQuery("design "), "same trimmed query reuses the held results")
	s := m.State()
	assert.True(t, s.IsOpen)
	assert.Equal(t, -1, s.HighlightIndex)
	assert.Equal(t, PhaseOpenWithResults, s.Phase())
	assert.Equal(t, []string{"design"}, f.queries())

	// dismissed while the first fetch is in flight
	m = newTestModel(f, nil)
	fetch := m.Update(run(m.SetQuery("web design"))[0])
	press(m, tea.KeyEscape)
	require.Equal(t, PhaseIdle, m.Phase())

	m.SetQuery("web design ")
	assert.Equal(t, PhasePending, m.Phase())
	settle(m, fetch)
	assert.True(t, m.State().IsOpen)
	assert.Equal(t, PhaseOpenNoResults, m.Phase())
}

func TestClickOnRowSelectsItem(t *testing.T) {
	f := &fakeSearcher{results: map[string]*search.Results{"design": designResults()}}
	m := newTestModel(f, nil)
	m.SetWidth(60)
	m.SetOrigin(2, 3)
	settle(m, m.SetQuery("design"))

	// input, Projects heading, project, Services heading, service
	handled, cmd := m.HandleMouse(tea.MouseMsg{X: 6, Y: 3 + 4, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	require.True(t, handled)

	nav := navigation(t, run(cmd))
	assert.Equal(t, "/services/12", nav.Route)
	assert.False(t, m.State().IsOpen)

	// clicks that are not left presses are ignored
	handled, _ = m.HandleMouse(tea.MouseMsg{X: 0, Y: 100, Action: tea.MouseActionMotion})
	assert.False(t, handled)
}

func TestCloseVoidsPendingWork(t *testing.T) {
	f := &fakeSearcher{results: map[string]*search.Results{"design": designResults()}}
	m := newTestModel(f, nil)

	tick := m.SetQuery("design")
	m.Close()
	for _, msg := range run(tick) {
		assert.Nil(t, m.Update(msg))
	}
	assert.Empty(t, f.queries(), "pending tick is voided")

	m.Mount()
	fetch := m.Update(run(m.SetQuery("design"))[0])
	m.Close()
	settle(m, fetch)

	require.Len(t, f.calls, 1)
	assert.ErrorIs(t, f.calls[0].ctx.Err(), context.Canceled)
	s := m.State()
	assert.False(t, s.IsOpen)
	assert.Nil(t, s.Suggestions)
	assert.Equal(t, PhaseIdle, s.Phase())

	assert.Nil(t, m.SetQuery("design"), "unmounted controller ignores input")
}

func TestViewRendersGroups(t *testing.T) {
	f := &fakeSearcher{results: map[string]*search.Results{"design": designResults()}}
	m := newTestModel(f, nil)
	settle(m, m.SetQuery("design"))

	view := m.View()
	for _, want := range []string{"Projects", "Services", "Providers", "Website design", "Logo design", "Brand identity", "Designhaus"} {
		assert.Contains(t, view, want)
	}
	assert.Equal(t, 1+6, m.Height())
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.TestConfig()
	cfg.Search.Debounce = 150 * time.Millisecond
	cfg.Search.SuggestionLimit = 8
	cfg.API.Timeout = 3 * time.Second

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, 150*time.Millisecond, opts.Debounce)
	assert.Equal(t, 2, opts.MinQueryLength)
	assert.Equal(t, 8, opts.Limit)
	assert.Equal(t, 3*time.Second, opts.Timeout)
	assert.True(t, opts.SubmitOnEnter)

	cfg.Search.Debounce = 0
	assert.Equal(t, 300*time.Millisecond, OptionsFromConfig(cfg).Debounce)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "pending", PhasePending.String())
	assert.Equal(t, "open-with-results", PhaseOpenWithResults.String())
	assert.Equal(t, "open-no-results", PhaseOpenNoResults.String())
}
