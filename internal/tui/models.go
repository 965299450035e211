package tui

type View int

const (
	// ViewHome shows the search bar and recent searches.
	ViewHome View = iota
	// ViewResults is the full results page for a submitted query.
	ViewResults
	// ViewDetail shows a single project, service or provider.
	ViewDetail
)

func (v View) String() string {
	switch v {
	case ViewHome:
		return "home"
	case ViewResults:
		return "results"
	case ViewDetail:
		return "detail"
	default:
		return "unknown"
	}
}
