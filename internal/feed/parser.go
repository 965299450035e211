package feed

import (
	"crypto/sha256"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/pders01/hubsearch/internal/storage"
)

var (
	tagRegex   = regexp.MustCompile(`<[^>]*>`)
	spaceRegex = regexp.MustCompile(`\s+`)
)

// Parser turns tender feeds into project listings.
type Parser struct {
	parser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		parser: gofeed.NewParser(),
	}
}

// ParsedFeed is the outcome of parsing one source document.
type ParsedFeed struct {
	Title    string
	Listings []*storage.Listing
}

func (p *Parser) Parse(reader io.Reader, sourceID string) (*ParsedFeed, error) {
	feed, err := p.parser.Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	now := time.Now()
	listings := make([]*storage.Listing, 0, len(feed.Items))
	for _, item := range feed.Items {
		l := &storage.Listing{
			ID:          listingID(sourceID, item),
			Kind:        "project",
			Title:       strings.TrimSpace(item.Title),
			Name:        issuer(feed, item),
			Description: plainText(firstNonEmpty(item.Description, item.Content)),
			URL:         item.Link,
			SourceID:    sourceID,
			UpdatedAt:   now,
		}

		if item.Image != nil {
			l.Avatar = item.Image.URL
		} else if feed.Image != nil {
			l.Avatar = feed.Image.URL
		}

		switch {
		case item.PublishedParsed != nil:
			l.Published = *item.PublishedParsed
		case item.UpdatedParsed != nil:
			l.Published = *item.UpdatedParsed
		}

		listings = append(listings, l)
	}

	return &ParsedFeed{Title: strings.TrimSpace(feed.Title), Listings: listings}, nil
}

// listingID derives a stable, URL-safe id. Sources have no shared id space,
// so the source id is mixed in.
func listingID(sourceID string, item *gofeed.Item) string {
	key := firstNonEmpty(item.GUID, item.Link, item.Title)
	sum := sha256.Sum256([]byte(sourceID + "\x00" + key))
	return fmt.Sprintf("t-%x", sum[:8])
}

func issuer(feed *gofeed.Feed, item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	if len(item.Authors) > 0 && item.Authors[0].Name != "" {
		return item.Authors[0].Name
	}
	return strings.TrimSpace(feed.Title)
}

func plainText(s string) string {
	s = tagRegex.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.TrimSpace(spaceRegex.ReplaceAllString(s, " "))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
