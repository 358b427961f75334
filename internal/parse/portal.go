package parse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"cambridge-collector/internal/types"
)

var (
	weightLabel    = regexp.MustCompile(`(?i)(?:Item |Shipping )?Weight:`)
	salesUnitLabel = regexp.MustCompile(`(?i)(?:Sales Unit|Unit of Sale|Sold By):`)
	modelLabel     = regexp.MustCompile(`(?i)(?:Vendor SKU|Model Number|Model|SKU|Item #):`)

	weightValue = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(lbs?|kgs?|oz)\b`)
	costValue   = regexp.MustCompile(`\$\d+(?:,\d{3})*(?:\.\d{2})?`)

	// UI imagery that is never product gallery content.
	skipImageTokens = []string{"thumb", "icon", "logo", "button", "sprite"}
)

// portalGallerySelectors are tried in order; the first container with
// images wins, so unrelated page imagery is not swept up.
var portalGallerySelectors = []string{
	".product-detail-images img",
	".product-views-image-carousel img",
	".bx-viewport img",
	".product-image-gallery img",
}

// PortalParser extracts per-variant data from dealer portal product pages.
// The portal markup is what the storefront renders after login; fetching it
// is the portal client's job.
type PortalParser struct {
	origin string
}

// NewPortalParser creates a parser resolving relative URLs against the
// portal origin.
func NewPortalParser(origin string) *PortalParser {
	return &PortalParser{origin: origin}
}

// Parse extracts cost, model number, weight, sales unit, and gallery from
// a portal product page. Every field may be legitimately absent.
func (p *PortalParser) Parse(html string) (types.PortalData, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return types.PortalData{}, fmt.Errorf("unparseable markup: %w", err)
	}

	return types.PortalData{
		GalleryImages: p.extractGalleryImages(doc),
		Weight:        p.extractWeight(doc),
		SalesUnit:     p.extractSalesUnit(doc),
		Cost:          p.extractCost(doc),
		ModelNumber:   p.extractModelNumber(doc),
	}, nil
}

func (p *PortalParser) extractGalleryImages(doc *goquery.Document) []string {
	var sel *goquery.Selection
	for _, selector := range portalGallerySelectors {
		if found := doc.Find(selector); found.Length() > 0 {
			sel = found
			break
		}
	}
	if sel == nil {
		return nil
	}

	var urls []string
	sel.Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok {
			return
		}
		lower := strings.ToLower(src)
		for _, token := range skipImageTokens {
			if strings.Contains(lower, token) {
				return
			}
		}
		if u := NormalizeImageURL(p.origin, src); u != "" {
			urls = append(urls, u)
		}
	})
	return DedupeURLs(urls)
}

func (p *PortalParser) extractWeight(doc *goquery.Document) string {
	text := labeledText(doc, weightLabel)
	if text == "" {
		return ""
	}
	if m := weightValue.FindStringSubmatch(text); m != nil {
		return m[1] + " " + m[2]
	}
	return ""
}

func (p *PortalParser) extractSalesUnit(doc *goquery.Document) string {
	return firstLine(labeledText(doc, salesUnitLabel))
}

func (p *PortalParser) extractCost(doc *goquery.Document) string {
	// Price markup varies across storefront templates, so scan page text.
	return costValue.FindString(doc.Text())
}

func (p *PortalParser) extractModelNumber(doc *goquery.Document) string {
	return firstLine(labeledText(doc, modelLabel))
}

// firstLine trims a labeled value down to its first non-empty line.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
