package parse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"cambridge-collector/internal/types"
)

var (
	descriptionLabel    = regexp.MustCompile(`(?i)Description:`)
	specificationsLabel = regexp.MustCompile(`(?i)Specifications:`)
	colorSelectionLabel = regexp.MustCompile(`(?i)Color Selection:`)
)

// PublicParser extracts product data from public website product pages.
type PublicParser struct {
	origin string
}

// NewPublicParser creates a parser resolving relative URLs against origin.
func NewPublicParser(origin string) *PublicParser {
	return &PublicParser{origin: origin}
}

// Parse extracts the structured record from a product page. Missing
// sections produce empty fields; an error means the markup itself could
// not be read.
func (p *PublicParser) Parse(html string) (types.PublicData, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return types.PublicData{}, fmt.Errorf("unparseable markup: %w", err)
	}

	return types.PublicData{
		Title:          p.extractTitle(doc),
		Collection:     p.extractCollection(doc),
		Description:    p.extractDescription(doc),
		Specifications: p.extractSpecifications(doc),
		HeroImage:      p.extractHeroImage(doc),
		GalleryImages:  p.extractGalleryImages(doc),
		Colors:         p.extractColors(doc),
	}, nil
}

// extractTitle tries the page heading first, then title metadata.
func (p *PublicParser) extractTitle(doc *goquery.Document) string {
	if t := strings.TrimSpace(doc.Find("h1.page-title strong").First().Text()); t != "" {
		return t
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// extractCollection reads the collection banner, e.g. "Sherwood Collection".
func (p *PublicParser) extractCollection(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("h4 span").First().Text())
}

// extractHeroImage reads the main product image. Restricted to the
// image-box container so unrelated page imagery is never picked up.
func (p *PublicParser) extractHeroImage(doc *goquery.Document) string {
	src, ok := doc.Find("div.image-box img").First().Attr("src")
	if !ok {
		return ""
	}
	return NormalizeImageURL(p.origin, src)
}

// extractGalleryImages reads carousel images in display order, deduplicated.
func (p *PublicParser) extractGalleryImages(doc *goquery.Document) []string {
	var urls []string
	doc.Find("div.owl-carousel div.overlay-container img").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			if u := NormalizeImageURL(p.origin, src); u != "" {
				urls = append(urls, u)
			}
		}
	})
	return DedupeURLs(urls)
}

func (p *PublicParser) extractDescription(doc *goquery.Document) string {
	return collapseSpaces(labeledText(doc, descriptionLabel))
}

func (p *PublicParser) extractSpecifications(doc *goquery.Document) string {
	return collapseSpaces(labeledText(doc, specificationsLabel))
}

// extractColors enumerates swatch labels from the Color Selection region.
func (p *PublicParser) extractColors(doc *goquery.Document) []string {
	var colors []string

	doc.Find("strong").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !colorSelectionLabel.MatchString(ownText(s)) {
			return true
		}

		row := s.Closest("div.row")
		if row.Length() == 0 {
			return false
		}

		// Swatches live in the row following the label's row.
		row.NextFiltered("div.row").Find("div[class*='col-'] span.small").Each(func(_ int, swatch *goquery.Selection) {
			if name := strings.TrimSpace(swatch.Text()); name != "" {
				colors = append(colors, name)
			}
		})
		return false
	})

	return colors
}
