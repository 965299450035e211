package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/hubsearch/internal/autocomplete"
	"github.com/pders01/hubsearch/internal/browser"
	"github.com/pders01/hubsearch/internal/config"
	"github.com/pders01/hubsearch/internal/debuglog"
	"github.com/pders01/hubsearch/internal/feed"
	"github.com/pders01/hubsearch/internal/recent"
	"github.com/pders01/hubsearch/internal/search"
	"github.com/pders01/hubsearch/internal/storage"
)

// Position of the search input on the home view: header (2 lines), a blank
// line and the frame border put it on line 4; border and padding on column 2.
const (
	searchBarX = 2
	searchBarY = 4
	// chromeHeight is separator, status line and help line.
	chromeHeight = 3
)

// Deps are the collaborators the app drives. Only Searcher is required;
// Store, Opener and Feeds enable detail metadata, ctrl+o and feed refresh.
type Deps struct {
	Searcher search.Searcher
	Store    *storage.Store
	Recent   *recent.Log
	Opener   *browser.Opener
	Feeds    *feed.Manager
}

type App struct {
	config   *config.Config
	store    *storage.Store
	searcher search.Searcher
	recent   *recent.Log
	opener   *browser.Opener
	feeds    *feed.Manager

	keyHandler *KeyHandler
	searchBar  *autocomplete.Model
	resultList list.Model
	viewport   viewport.Model
	spinner    spinner.Model
	help       help.Model

	view         View
	previousView View
	// route is what ctrl+o opens for the current view
	route   string
	query   string
	results *search.Results
	current *search.Item

	// recentIndex is the highlighted recent search, -1 while the search bar has focus
	recentIndex int
	loading     bool
	refreshing  bool
	width       int
	height      int
	status      status

	glamourRenderer *glamour.TermRenderer
	rendererWidth   int

	log *debuglog.FieldLogger
}

func NewApp(cfg *config.Config, deps Deps) *App {
	recentLog := deps.Recent
	if recentLog == nil {
		var backend recent.Backend = recent.NewMemoryBackend()
		if deps.Store != nil {
			backend = deps.Store
		}
		recentLog = recent.New(backend, cfg.Recent.MaxEntries)
	}

	ApplyColors(cfg.UI.Colors)

	bar := autocomplete.New(deps.Searcher, recentLog, autocomplete.OptionsFromConfig(cfg))
	bar.SetStyles(autocomplete.StylesFromColors(cfg.UI.Colors))
	bar.SetOrigin(searchBarX, searchBarY)

	resultList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	resultList.Title = "› results"
	resultList.SetShowStatusBar(false)
	resultList.SetShowHelp(false)
	resultList.SetFilteringEnabled(false)

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(AccentColor)

	app := &App{
		config:       cfg,
		store:        deps.Store,
		searcher:     deps.Searcher,
		recent:       recentLog,
		opener:       deps.Opener,
		feeds:        deps.Feeds,
		searchBar:    bar,
		resultList:   resultList,
		viewport:     viewport.New(0, 0),
		spinner:      sp,
		help:         help.New(),
		view:         ViewHome,
		previousView: ViewHome,
		recentIndex:  -1,
		log:          debuglog.WithFields(map[string]interface{}{"component": "tui"}),
	}
	app.keyHandler = NewKeyHandler(app)

	return app
}

// SearchBar exposes the autocomplete controller, e.g. to tune its cursor.
func (a *App) SearchBar() *autocomplete.Model { return a.searchBar }

func (a *App) getRenderer() (*glamour.TermRenderer, error) {
	wordWrapWidth := (a.width * 9) / 10
	if wordWrapWidth > 120 {
		wordWrapWidth = 120
	}
	if wordWrapWidth < 40 {
		wordWrapWidth = 40
	}
	if a.width > 0 && a.width < 50 {
		wordWrapWidth = max(a.width-4, 20)
	}

	if a.glamourRenderer == nil || abs(a.rendererWidth-wordWrapWidth) > 10 {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wordWrapWidth),
		)
		if err != nil {
			return nil, err
		}
		a.glamourRenderer = r
		a.rendererWidth = wordWrapWidth
	}

	return a.glamourRenderer, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (a *App) Init() tea.Cmd {
	return a.searchBar.Init()
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case tea.MouseMsg:
		return a, a.handleMouse(msg)

	case autocomplete.NavigateMsg:
		return a, a.navigate(msg)

	case resultsLoadedMsg:
		a.handleResultsLoaded(msg)
		return a, nil

	case detailRenderedMsg:
		if a.view == ViewDetail && msg.route == a.route {
			a.viewport.SetContent(msg.content)
			a.viewport.GotoTop()
			a.loading = false
			a.setStatus(msg.location, StatusInfo)
		}
		return a, nil

	case openedMsg:
		a.setStatus(MsgOpened(truncateMiddle(msg.url, max(a.width-12, 20))), StatusSuccess)
		return a, nil

	case refreshDoneMsg:
		a.refreshing = false
		if errs := countErrors(msg.err); errs > 0 {
			a.log.Warnf("feed refresh: %v", msg.err)
			a.setStatus(MsgRefreshSummary(msg.added, errs, msg.docCount), StatusWarn)
		} else {
			a.setStatus(MsgRefreshSummary(msg.added, 0, msg.docCount), StatusSuccess)
		}
		return a, nil

	case spinner.TickMsg:
		if !a.busy() {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case errorMsg:
		a.refreshing = false
		a.setStatus(msg.err.Error(), StatusError)
		return a, nil
	}

	// Debounce ticks, suggestion results and cursor blinks belong to the
	// search bar; it drops them itself once closed.
	return a, a.searchBar.Update(msg)
}

func (a *App) resize(width, height int) {
	a.width = width
	a.height = height

	a.searchBar.SetWidth(max(width-6, 20))
	a.resultList.SetSize(width, max(height-chromeHeight, 5))
	a.viewport.Width = width
	a.viewport.Height = max(height-chromeHeight, 1)
	a.help.Width = width
}

func (a *App) handleMouse(msg tea.MouseMsg) tea.Cmd {
	switch a.view {
	case ViewHome:
		handled, cmd := a.searchBar.HandleMouse(msg)
		if handled {
			a.recentIndex = -1
		}
		return cmd
	case ViewDetail:
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return cmd
	}
	return nil
}

// navigate routes a NavigateMsg: results routes open the results page,
// item routes open the detail view.
func (a *App) navigate(msg autocomplete.NavigateMsg) tea.Cmd {
	a.log.Infof("navigate %s -> %s", a.view, msg.Route)

	if q, ok := search.QueryFromRoute(msg.Route); ok {
		a.previousView = a.view
		a.route = msg.Route
		return a.showResults(q)
	}
	if msg.Item != nil {
		a.previousView = a.view
		a.route = msg.Route
		return a.showDetail(*msg.Item)
	}

	a.setStatus("Unknown route "+msg.Route, StatusWarn)
	return nil
}

func (a *App) showResults(query string) tea.Cmd {
	a.searchBar.Close()
	a.view = ViewResults
	a.query = query
	a.results = nil
	a.current = nil
	a.resultList.SetItems(nil)
	a.resultList.Title = truncateEnd("› results for "+query, max(a.width-4, 20))
	a.loading = true
	a.setStatus(MsgSearching, StatusInfo)
	return tea.Batch(a.spinner.Tick, a.loadResults(query))
}

func (a *App) handleResultsLoaded(msg resultsLoadedMsg) {
	if a.view != ViewResults || msg.query != a.query {
		a.log.Debugf("dropping stale results for %q", msg.query)
		return
	}
	a.loading = false

	res := msg.results
	if msg.err != nil {
		a.log.Warnf("results for %q failed: %v", msg.query, msg.err)
		res = nil
		a.setStatus(describeErr(msg.err), StatusError)
	}
	if res == nil {
		res = search.Empty()
	}
	a.results = res

	flat := res.Flatten()
	items := make([]list.Item, len(flat))
	for i, it := range flat {
		items[i] = resultItem{item: it}
	}
	a.resultList.SetItems(items)
	a.resultList.Select(0)

	if msg.err == nil {
		a.setStatus(MsgResultsFor(msg.query, len(flat)), StatusInfo)
	}
}

func (a *App) showDetail(item search.Item) tea.Cmd {
	a.searchBar.Close()
	a.view = ViewDetail
	a.current = &item
	a.loading = true
	a.viewport.SetContent("")
	a.setStatus(MsgLoadingDetail, StatusInfo)

	r, err := a.getRenderer()
	if err != nil {
		a.loading = false
		return a.fail(wrapErr("initializing renderer", err))
	}
	return tea.Batch(a.spinner.Tick, a.renderDetail(item, a.route, r))
}

// navigateBack goes from detail to the results it was opened from, and from
// anywhere else to home.
func (a *App) navigateBack() tea.Cmd {
	switch a.view {
	case ViewDetail:
		if a.previousView == ViewResults && a.results != nil {
			a.view = ViewResults
			a.previousView = ViewHome
			a.current = nil
			a.loading = false
			a.route = search.ResultsRoute(a.query)
			a.setStatus(MsgResultsFor(a.query, a.results.Total()), StatusInfo)
			return nil
		}
		return a.goHome()
	case ViewResults:
		return a.goHome()
	default:
		if a.recentIndex >= 0 {
			a.recentIndex = -1
			return a.searchBar.Focus()
		}
		a.searchBar.Blur()
		return nil
	}
}

func (a *App) goHome() tea.Cmd {
	a.view = ViewHome
	a.previousView = ViewHome
	a.route = ""
	a.current = nil
	a.loading = false
	a.recentIndex = -1
	a.setStatus("", StatusInfo)
	return a.searchBar.Mount()
}

func (a *App) focusSearch() tea.Cmd {
	if a.view != ViewHome {
		return a.goHome()
	}
	a.recentIndex = -1
	return a.searchBar.Focus()
}

// submitRecent runs a past query again as a full search.
func (a *App) submitRecent(query string) tea.Cmd {
	a.recent.Record(query)
	a.recentIndex = -1
	return a.navigate(autocomplete.NavigateMsg{Route: search.ResultsRoute(query), Query: query})
}

func (a *App) selectedResult() (search.Item, bool) {
	if i, ok := a.resultList.SelectedItem().(resultItem); ok {
		return i.item, true
	}
	return search.Item{}, false
}

func (a *App) busy() bool {
	return a.loading || a.refreshing
}

func (a *App) setStatus(text string, kind StatusKind) {
	a.status = status{text: text, kind: kind}
}

func (a *App) fail(err error) tea.Cmd {
	return func() tea.Msg { return errorMsg{err: err} }
}

func (a *App) View() string {
	var content string

	switch a.view {
	case ViewHome:
		content = a.homeView()
	case ViewResults:
		content = a.resultsView()
	case ViewDetail:
		if a.loading {
			content = renderCentered(a.width, a.height-chromeHeight, a.spinner.View()+" "+renderMuted(MsgLoadingDetail))
		} else {
			content = a.viewport.View()
		}
	}

	content = contentWrapper(a.width, a.height-chromeHeight).Render(content)
	return lipgloss.JoinVertical(lipgloss.Top, content, a.statusBar())
}

func (a *App) homeView() string {
	rows := []string{
		renderHeader("› "+AppName, Tagline, a.width),
		"",
		renderInputFrame(a.searchBar.View(), a.searchBar.Focused(), max(a.width-6, 20)),
	}

	entries := a.recent.Entries()
	if len(entries) == 0 {
		switch {
		case a.searchBar.Phase() != autocomplete.PhaseIdle:
		case a.height >= 24:
			// enough room below the dropdown for the logo
			rows = append(rows, "", GetWelcomeMessage())
		default:
			rows = append(rows, "", renderHelp(welcomeText))
		}
		return lipgloss.JoinVertical(lipgloss.Left, rows...)
	}

	rows = append(rows, "", HeaderStyle.Render("Recent searches"))
	for i, q := range entries {
		line := truncateEnd(q, max(a.width-4, 10))
		if i == a.recentIndex {
			rows = append(rows, SelectedItemStyle.Render("▸ "+line))
		} else {
			rows = append(rows, "  "+line)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (a *App) resultsView() string {
	if a.loading {
		return lipgloss.JoinVertical(lipgloss.Left,
			HeaderStyle.Render(a.resultList.Title),
			"",
			a.spinner.View()+" "+renderMuted(MsgSearching),
		)
	}
	if a.results.Total() == 0 {
		return lipgloss.JoinVertical(lipgloss.Left,
			HeaderStyle.Render(a.resultList.Title),
			"",
			renderMuted(MsgNoResults+" for "+`"`+a.query+`"`),
		)
	}
	return a.resultList.View()
}

func (a *App) statusBar() string {
	var rows []string
	rows = append(rows, SeparatorStyle.Render(strings.Repeat("─", max(a.width-1, 1))))

	line := a.status.render()
	if a.busy() && a.view == ViewHome {
		line = a.spinner.View() + " " + line
	}
	rows = append(rows, lipgloss.NewStyle().Padding(0, 1).Render(line))
	rows = append(rows, lipgloss.NewStyle().Padding(0, 1).Render(a.help.ShortHelpView(a.keyHandler.Bindings())))
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// resultItem adapts a suggestion to the bubbles list.
type resultItem struct {
	item search.Item
}

func (i resultItem) Title() string { return i.item.Label() }

func (i resultItem) Description() string {
	kind := KindStyle.Render(kindName(i.item.Type))
	desc := firstLine(i.item.Description)
	if desc == "" && i.item.Name != "" && i.item.Name != i.item.Label() {
		desc = i.item.Name
	}
	if desc == "" {
		return kind
	}
	return kind + " · " + desc
}

func (i resultItem) FilterValue() string { return i.item.Label() }

// kindName is the singular form of a group heading.
func kindName(k search.Kind) string {
	return strings.TrimSuffix(k.Label(), "s")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
