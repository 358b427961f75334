// Package index builds and caches the searchable product catalog.
//
// Two sources feed it: an HTML crawl of the public site's category pages,
// and the dealer portal's navigation + search APIs (the latter requires an
// authenticated session). Partial failures never abort a build; the index
// that comes back holds whatever was collected.
package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"cambridge-collector/internal/types"
)

// Fetcher is the HTTP GET capability the builder crawls with.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// categoryPaths are the public category listing pages to crawl.
var categoryPaths = []string{
	"/pavers",
	"/walls",
	"/wallstones-stone-veneer",
	"/pavingstones-naturalstone",
	"/fireplaces",
	"/pizza-ovens",
	"/kitchens",
	"/waterfalls",
	"/fire-water",
	"/fountains",
	"/fire-tables-pits",
	"/grill-modules",
	"/patio-bistro-tables",
	"/bar-modules",
	"/caps-columns",
	"/steps-stairs",
	"/pergolas",
	"/umbrellas",
	"/garden-gate",
	"/outdoor-appliances",
	"/finishing-touches",
}

// Builder crawls catalog sources into a ProductIndex.
type Builder struct {
	config  *types.Config
	fetcher Fetcher
	logger  types.Logger
}

// NewBuilder creates an index builder.
func NewBuilder(config *types.Config, fetcher Fetcher, logger types.Logger) *Builder {
	return &Builder{config: config, fetcher: fetcher, logger: logger}
}

// BuildPublic crawls the public category pages for product links and
// returns a fresh index. Per-page failures are logged and skipped; the
// returned index may be partial or empty but is never nil.
func (b *Builder) BuildPublic(ctx context.Context) *types.ProductIndex {
	b.logger.Info("Building public product index...")

	byURL := make(map[string]int) // url -> position in products
	var products []types.IndexEntry

	for _, path := range categoryPaths {
		select {
		case <-ctx.Done():
			b.logger.Warn("Index build cancelled")
			return newIndex(products)
		default:
		}

		pageURL := b.config.PublicOrigin + path
		b.logger.Debugf("Crawling category: %s", path)

		body, err := b.fetcher.Get(ctx, pageURL)
		if err != nil {
			b.logger.Warnf("Failed to fetch %s: %v", path, err)
			continue
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			b.logger.Warnf("Failed to parse %s: %v", path, err)
			continue
		}

		category := pageCategory(doc)
		for _, entry := range extractProductLinks(doc, category) {
			// Duplicate URLs collapse last-write-wins.
			if pos, seen := byURL[entry.URL]; seen {
				products[pos] = entry
				continue
			}
			byURL[entry.URL] = len(products)
			products = append(products, entry)
			b.logger.Debugf("Found: %s (%s)", entry.Title, entry.URL)
		}
	}

	idx := newIndex(products)
	b.logger.Infof("Public index build complete: %d products", idx.TotalProducts)
	return idx
}

// extractProductLinks scans a category page for product detail links.
func extractProductLinks(doc *goquery.Document, category string) []types.IndexEntry {
	var entries []types.IndexEntry

	doc.Find("a[href*='prodid=']").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		prodid, ok := parseProdID(href)
		if !ok {
			return
		}

		title := linkTitle(link)
		if title == "" {
			return
		}

		entries = append(entries, types.IndexEntry{
			Title:    title,
			URL:      fmt.Sprintf("/pavers-details?prodid=%d", prodid),
			Category: category,
		})
	})

	return entries
}

// parseProdID pulls the numeric prodid query parameter out of a href.
func parseProdID(href string) (int, bool) {
	_, after, found := strings.Cut(href, "prodid=")
	if !found {
		return 0, false
	}
	if i := strings.IndexAny(after, "&#"); i >= 0 {
		after = after[:i]
	}
	id, err := strconv.Atoi(after)
	if err != nil {
		return 0, false
	}
	return id, true
}

// linkTitle extracts the product title from the link's surrounding markup.
// Listing tiles carry the name in an h5 inside the overlay element.
func linkTitle(link *goquery.Selection) string {
	if h5 := link.Find("h5").First(); h5.Length() > 0 {
		return strings.TrimSpace(h5.Text())
	}
	if h5 := link.Parent().Find("h5").First(); h5.Length() > 0 {
		return strings.TrimSpace(h5.Text())
	}
	return strings.TrimSpace(link.Text())
}

// pageCategory reads the category name from the page title or heading.
func pageCategory(doc *goquery.Document) string {
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

func newIndex(products []types.IndexEntry) *types.ProductIndex {
	if products == nil {
		products = []types.IndexEntry{}
	}
	return &types.ProductIndex{
		LastUpdated:   time.Now().UTC().Format(time.RFC3339),
		TotalProducts: len(products),
		Products:      products,
	}
}

// navNode is one node of the portal navigation tree API response.
type navNode struct {
	FullURL    string    `json:"fullurl"`
	Level      string    `json:"level"`
	Name       string    `json:"name"`
	Categories []navNode `json:"categories"`
}

type navResponse struct {
	Data []navNode `json:"data"`
}

// searchItem is one product row from the portal search API.
type searchItem struct {
	DisplayName  string      `json:"displayname"`
	URLComponent string      `json:"urlcomponent"`
	ItemID       string      `json:"itemid"`
	Price        json.Number `json:"onlinecustomerprice"`
	Stock        int         `json:"quantityavailable"`
	ImagesDetail struct {
		URLs []struct {
			URL string `json:"url"`
		} `json:"urls"`
	} `json:"itemimages_detail"`
}

type searchResponse struct {
	Items []searchItem `json:"items"`
}

const (
	navAPIPath    = "/api/navigation/v1/categorynavitems/tree?c=827395&country=US&currency=USD&exclude_empty=false&language=en&max_level=6&n=2&site_id=2&use_pcv=T"
	searchAPIPath = "/scs/searchApi.ssp"
)

// PortalFetcher is the authenticated GET capability for portal APIs.
type PortalFetcher interface {
	FetchJSON(ctx context.Context, url string) ([]byte, error)
}

// BuildPortal builds the portal index in two stages: the unauthenticated
// navigation tree yields product-category URLs, then the authenticated
// search API yields each category's product variants. A failed top-level
// navigation fetch returns an empty index rather than an error; the caller
// decides what an empty index means.
func (b *Builder) BuildPortal(ctx context.Context, portal PortalFetcher) *types.ProductIndex {
	b.logger.Info("Building portal product index (two-stage)...")

	var products []types.IndexEntry

	body, err := b.fetcher.Get(ctx, b.config.PortalOrigin+navAPIPath)
	if err != nil {
		b.logger.Warnf("Failed to fetch navigation tree: %v", err)
		return newIndex(products)
	}

	var nav navResponse
	if err := json.Unmarshal(body, &nav); err != nil {
		b.logger.Warnf("Invalid navigation tree response: %v", err)
		return newIndex(products)
	}

	categoryURLs := collectCategoryURLs(nav.Data, nil)
	b.logger.Infof("Found %d portal category URLs", len(categoryURLs))

	for i, categoryURL := range categoryURLs {
		select {
		case <-ctx.Done():
			b.logger.Warn("Portal index build cancelled")
			return newIndex(products)
		default:
		}

		b.logger.Debugf("[%d/%d] Fetching products from %s", i+1, len(categoryURLs), categoryURL)

		items, err := b.fetchCategoryProducts(ctx, portal, categoryURL)
		if err != nil {
			b.logger.Warnf("Failed to fetch %s: %v", categoryURL, err)
			continue
		}
		products = append(products, items...)
	}

	idx := newIndex(products)
	b.logger.Infof("Portal index build complete: %d products", idx.TotalProducts)
	return idx
}

// collectCategoryURLs walks the navigation tree. A node counts as a
// product category once it sits deep enough: level >= 3 and at least 3
// path separators in its URL. Shallower nodes only update the category
// path context carried into their children.
func collectCategoryURLs(nodes []navNode, urls []string) []string {
	for _, node := range nodes {
		level, _ := strconv.Atoi(node.Level)
		if level >= 3 && node.FullURL != "" && strings.Count(node.FullURL, "/") >= 3 {
			if !containsString(urls, node.FullURL) {
				urls = append(urls, node.FullURL)
			}
		}
		urls = collectCategoryURLs(node.Categories, urls)
	}
	return urls
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// fetchCategoryProducts queries the authenticated search API for one
// category's variants.
func (b *Builder) fetchCategoryProducts(ctx context.Context, portal PortalFetcher, categoryURL string) ([]types.IndexEntry, error) {
	searchURL := fmt.Sprintf(
		"%s?c=827395&country=US&currency=USD&language=en&limit=100&n=2&offset=0&pricelevel=5&site_id=2&sort=relevance:desc&commercecategoryurl=%s&use_pcv=T&fieldset=search",
		searchAPIPath, categoryURL,
	)

	body, err := portal.FetchJSON(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("invalid search response: %w", err)
	}

	family := colorFamily(categoryURL)

	var entries []types.IndexEntry
	for _, item := range resp.Items {
		title := item.DisplayName
		if family != "" && !strings.HasPrefix(strings.ToLower(title), strings.ToLower(family)) {
			title = family + " " + title
		}

		// Portal product URLs use only the last component of the path the
		// API reports.
		productURL := categoryURL
		if item.URLComponent != "" {
			parts := strings.Split(strings.Trim(item.URLComponent, "/"), "/")
			productURL = "/" + parts[len(parts)-1]
		}

		var images []string
		for _, u := range item.ImagesDetail.URLs {
			if u.URL != "" {
				images = append(images, u.URL)
			}
		}

		entries = append(entries, types.IndexEntry{
			Title:    title,
			URL:      productURL,
			Category: categoryURL,
			SKU:      item.ItemID,
			Price:    item.Price.String(),
			Stock:    item.Stock,
			Images:   images,
		})
	}

	return entries, nil
}

// colorFamily extracts the color-family segment of a portal category URL,
// e.g. "/pavers/sherwood/..." -> "Sherwood".
func colorFamily(categoryURL string) string {
	parts := strings.Split(strings.Trim(categoryURL, "/"), "/")
	if len(parts) < 2 {
		return ""
	}
	words := strings.Split(parts[1], "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
