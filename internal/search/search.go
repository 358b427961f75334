// Package search resolves catalog record titles to product page URLs.
package search

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"cambridge-collector/internal/fuzzy"
	"cambridge-collector/internal/types"
)

// Fetcher is the HTTP GET capability used for the live search fallback.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// colorFamilyPrefixes are catalog naming prefixes the public site drops
// from its product titles.
var colorFamilyPrefixes = []string{
	"Sherwood",
	"Crusader",
	"Excalibur",
	"Kingscourt",
	"Roundtable",
}

// Searcher matches record titles against a product index. Matching walks
// a ladder from cheapest to loosest: exact containment, color-qualified
// token match, fuzzy keyword overlap, then (optionally) the site's own
// search page.
type Searcher struct {
	config  *types.Config
	index   *types.ProductIndex
	origin  string
	fetcher Fetcher
	logger  types.Logger
}

// NewSearcher creates a searcher over the public index. fetcher may be
// nil; the live search fallback is then skipped.
func NewSearcher(config *types.Config, idx *types.ProductIndex, fetcher Fetcher, logger types.Logger) *Searcher {
	return &Searcher{config: config, index: idx, origin: config.PublicOrigin, fetcher: fetcher, logger: logger}
}

// NewPortalSearcher creates a searcher over the portal index. Portal
// lookups resolve against the portal origin and never fall back to live
// search.
func NewPortalSearcher(config *types.Config, idx *types.ProductIndex, logger types.Logger) *Searcher {
	return &Searcher{config: config, index: idx, origin: config.PortalOrigin, logger: logger}
}

// Find resolves a record title (plus optional color) to an absolute
// product page URL. It returns "" when nothing matches; a miss is not an
// error.
func (s *Searcher) Find(ctx context.Context, title, color string) string {
	query := StripColorFamily(strings.TrimSpace(title))
	if query == "" {
		return ""
	}

	exactQuery := query
	if color != "" {
		exactQuery = query + " " + color
	}
	if u := s.findExact(exactQuery); u != "" {
		s.logger.Debugf("Exact match for %q", title)
		return s.resolve(u)
	}

	if color != "" {
		if u := s.findColorQualified(query, color); u != "" {
			s.logger.Debugf("Color-qualified match for %q (%s)", title, color)
			return s.resolve(u)
		}
	}

	if u := s.findFuzzy(query, color); u != "" {
		s.logger.Debugf("Fuzzy match for %q", title)
		return s.resolve(u)
	}

	if s.config.LiveSearchFallback && s.fetcher != nil {
		if u := s.findLive(ctx, query); u != "" {
			s.logger.Debugf("Live search match for %q", title)
			return s.resolve(u)
		}
	}

	s.logger.Debugf("No match for %q", title)
	return ""
}

// findExact matches on case-folded containment in either direction.
func (s *Searcher) findExact(query string) string {
	q := strings.ToLower(query)
	for _, entry := range s.index.Products {
		t := strings.ToLower(entry.Title)
		if t == "" {
			continue
		}
		if strings.Contains(t, q) || strings.Contains(q, t) {
			return entry.URL
		}
	}
	return ""
}

// findColorQualified requires every base keyword plus every color keyword
// to appear in the candidate title. This keeps "Widget Onyx" from landing
// on "Widget Driftwood" when both variants are indexed.
func (s *Searcher) findColorQualified(query, color string) string {
	baseKeys := fuzzy.KeywordSet(query)
	colorKeys := fuzzy.KeywordSet(color)
	if len(baseKeys) == 0 || len(colorKeys) == 0 {
		return ""
	}

	for _, entry := range s.index.Products {
		candidate := fuzzy.KeywordSet(entry.Title)
		if containsAll(candidate, baseKeys) && containsAll(candidate, colorKeys) {
			return entry.URL
		}
	}
	return ""
}

func containsAll(candidate, required map[string]bool) bool {
	for k := range required {
		if !candidate[k] {
			return false
		}
	}
	return true
}

// findFuzzy picks the first candidate with the strictly highest keyword
// overlap score at or above the configured threshold. Catalog order breaks
// ties.
func (s *Searcher) findFuzzy(query, color string) string {
	full := query
	if color != "" {
		full = query + " " + color
	}
	queryKeys := fuzzy.KeywordSet(full)

	bestURL := ""
	bestScore := 0.0
	for _, entry := range s.index.Products {
		score := fuzzy.Score(fuzzy.KeywordSet(entry.Title), queryKeys)
		if score > bestScore {
			bestScore = score
			bestURL = entry.URL
		}
	}

	if bestScore < s.config.FuzzyMatchThreshold {
		return ""
	}
	return bestURL
}

// findLive queries the public site's search page and runs the same
// exact-then-fuzzy ladder over the result links.
func (s *Searcher) findLive(ctx context.Context, query string) string {
	searchURL := s.config.PublicOrigin + "/search-results?search=" + url.QueryEscape(query)

	body, err := s.fetcher.Get(ctx, searchURL)
	if err != nil {
		s.logger.Warnf("Live search failed for %q: %v", query, err)
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		s.logger.Warnf("Live search returned unparseable markup: %v", err)
		return ""
	}

	type result struct {
		title string
		url   string
	}
	var results []result
	doc.Find("a[href*='prodid=']").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		title := strings.TrimSpace(link.Text())
		if h5 := link.Find("h5").First(); h5.Length() > 0 {
			title = strings.TrimSpace(h5.Text())
		}
		if href != "" && title != "" {
			results = append(results, result{title: title, url: href})
		}
	})

	q := strings.ToLower(query)
	for _, r := range results {
		t := strings.ToLower(r.title)
		if strings.Contains(t, q) || strings.Contains(q, t) {
			return r.url
		}
	}

	queryKeys := fuzzy.KeywordSet(query)
	bestURL := ""
	bestScore := 0.0
	for _, r := range results {
		score := fuzzy.Score(fuzzy.KeywordSet(r.title), queryKeys)
		if score > bestScore {
			bestScore = score
			bestURL = r.url
		}
	}
	if bestScore < s.config.FuzzyMatchThreshold {
		return ""
	}
	return bestURL
}

// resolve makes relative index URLs absolute against the searcher's origin.
func (s *Searcher) resolve(u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return s.origin + u
}

// StripColorFamily removes a leading color-family prefix from a catalog
// title, since the public site lists products without it.
func StripColorFamily(title string) string {
	for _, prefix := range colorFamilyPrefixes {
		if len(title) > len(prefix) && title[len(prefix)] == ' ' && strings.EqualFold(title[:len(prefix)], prefix) {
			rest := strings.TrimSpace(title[len(prefix):])
			if rest != "" {
				return rest
			}
		}
	}
	return title
}
