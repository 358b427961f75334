// Package parse transforms fetched page markup into fixed-shape records.
// Parsers are pure: no network or filesystem access, and missing page
// sections yield empty fields rather than errors.
package parse

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// cdnSizeSuffix matches size-variant tokens CDNs append before the file
// extension, e.g. "photo_small.jpg", "photo_600x400.jpg", "photo-150x150.png".
var cdnSizeSuffix = regexp.MustCompile(`(?i)[_-](?:small|medium|large|thumb|compact|grande|icon|\d{2,4}x\d{0,4})(\.[a-z]{3,4})$`)

// NormalizeImageURL converts a raw image URL to an absolute HTTPS URL with
// the query string and any CDN size-suffix token stripped, recovering the
// canonical full-size asset URL.
func NormalizeImageURL(origin, raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}

	if strings.HasPrefix(u, "//") {
		u = "https:" + u
	} else if strings.HasPrefix(u, "/") {
		u = origin + u
	}

	if strings.HasPrefix(u, "http://") {
		u = "https://" + strings.TrimPrefix(u, "http://")
	}

	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}

	return cdnSizeSuffix.ReplaceAllString(u, "$1")
}

// DedupeURLs removes duplicate URLs preserving first-seen order.
func DedupeURLs(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	var unique []string
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		unique = append(unique, u)
	}
	return unique
}

// textWithBreaks extracts the selection's text with <br> elements converted
// to newlines. HTML tags are dropped and entities come back unescaped via
// the underlying parser.
func textWithBreaks(sel *goquery.Selection) string {
	sel.Find("br").ReplaceWithHtml("\n")
	return strings.TrimSpace(sel.Text())
}

// labeledText finds the first small marker element whose text contains the
// label (e.g. a <strong> reading "Description:") and returns the text that
// follows the label within the marker's parent. Only short elements are
// considered markers so a large ancestor never shadows the marker itself.
func labeledText(doc *goquery.Document, label *regexp.Regexp) string {
	var out string
	doc.Find("strong, b, span, dt, th, td, li").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := ownText(s)
		if len(text) > 60 || !label.MatchString(text) {
			return true
		}
		parent := s.Parent()
		if parent.Length() == 0 {
			return true
		}
		full := textWithBreaks(parent.Clone())
		loc := label.FindStringIndex(full)
		if loc == nil {
			return true
		}
		out = strings.TrimSpace(full[loc[1]:])
		return false
	})
	return out
}

// ownText returns the element's trimmed text. Marker elements are small,
// so including descendant text is fine here.
func ownText(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}

// collapseSpaces squashes runs of whitespace into single spaces.
var multiSpace = regexp.MustCompile(`[ \t]+`)

func collapseSpaces(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(multiSpace.ReplaceAllString(l, " "))
	}
	var kept []string
	for _, l := range lines {
		if l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}
