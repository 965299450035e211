package search

import (
	"net/url"
)

// RouteFor maps a suggestion to the page that shows it. Items of unknown
// kind fall back to the generic search page for their label.
func RouteFor(it Item) string {
	id := url.PathEscape(it.ID)
	switch it.Type {
	case KindProject:
		return "/projects/" + id
	case KindService:
		return "/services/" + id
	case KindProvider:
		return "/profiles/" + id
	default:
		return ResultsRoute(it.Label())
	}
}

// ResultsRoute is the full results listing for a free-text query.
func ResultsRoute(query string) string {
	return "/search?" + url.Values{"q": {query}}.Encode()
}

// QueryFromRoute extracts the query of a results route. ok is false when
// route is not a results route.
func QueryFromRoute(route string) (query string, ok bool) {
	u, err := url.Parse(route)
	if err != nil || u.Path != "/search" {
		return "", false
	}
	return u.Query().Get("q"), true
}
