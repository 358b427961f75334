package index

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cambridge-collector/internal/types"
)

type stubFetcher struct {
	pages map[string]string
}

func (s *stubFetcher) Get(_ context.Context, url string) ([]byte, error) {
	body, ok := s.pages[url]
	if !ok {
		return nil, fmt.Errorf("unexpected status code: 404")
	}
	return []byte(body), nil
}

type stubPortal struct {
	responses map[string]string
}

func (s *stubPortal) FetchJSON(_ context.Context, url string) ([]byte, error) {
	for prefix, body := range s.responses {
		if len(url) >= len(prefix) && url[:len(prefix)] == prefix {
			return []byte(body), nil
		}
	}
	return nil, fmt.Errorf("unexpected status code: 404")
}

func testBuilderConfig() *types.Config {
	cfg := types.DefaultConfig()
	cfg.PublicOrigin = "https://public.test"
	cfg.PortalOrigin = "https://portal.test"
	return cfg
}

func noopLogger() types.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

const paversPage = `
<html><head><title>Pavers</title></head><body>
<div class="product-tile">
	<a href="/pavers-details?prodid=101"><h5>Sherwood Ledgestone</h5></a>
</div>
<div class="product-tile">
	<a href="/pavers-details?prodid=102&ref=grid"><h5>Crusader Cobble</h5></a>
</div>
<a href="/pavers-catalog.pdf">Download catalog</a>
</body></html>
`

const wallsPage = `
<html><head><title>Walls</title></head><body>
<a href="/pavers-details?prodid=101"><h5>Sherwood Ledgestone Wall</h5></a>
<a href="/pavers-details?prodid=301"><h5>Olde English Wall</h5></a>
</body></html>
`

func TestBuildPublicCrawlsCategories(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{
		"https://public.test/pavers": paversPage,
		"https://public.test/walls":  wallsPage,
	}}
	b := NewBuilder(testBuilderConfig(), fetcher, noopLogger())

	idx := b.BuildPublic(context.Background())

	require.NotNil(t, idx)
	// prodid=101 appears on both pages; the later crawl wins.
	assert.Equal(t, 3, idx.TotalProducts)
	assert.Len(t, idx.Products, 3)

	byURL := map[string]types.IndexEntry{}
	for _, p := range idx.Products {
		byURL[p.URL] = p
	}
	assert.Equal(t, "Sherwood Ledgestone Wall", byURL["/pavers-details?prodid=101"].Title)
	assert.Equal(t, "Walls", byURL["/pavers-details?prodid=101"].Category)
	assert.Equal(t, "Crusader Cobble", byURL["/pavers-details?prodid=102"].Title)
	assert.Equal(t, "Pavers", byURL["/pavers-details?prodid=102"].Category)
}

func TestBuildPublicToleratesFailedPages(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{
		"https://public.test/walls": wallsPage,
	}}
	b := NewBuilder(testBuilderConfig(), fetcher, noopLogger())

	idx := b.BuildPublic(context.Background())

	require.NotNil(t, idx)
	assert.Equal(t, 2, idx.TotalProducts)
}

func TestBuildPublicEmptyOnTotalFailure(t *testing.T) {
	b := NewBuilder(testBuilderConfig(), &stubFetcher{pages: map[string]string{}}, noopLogger())

	idx := b.BuildPublic(context.Background())

	require.NotNil(t, idx)
	assert.Equal(t, 0, idx.TotalProducts)
	assert.NotNil(t, idx.Products)
	assert.NotEmpty(t, idx.LastUpdated)
}

func TestParseProdID(t *testing.T) {
	tests := []struct {
		href string
		id   int
		ok   bool
	}{
		{"/pavers-details?prodid=42", 42, true},
		{"/pavers-details?prodid=42&ref=x", 42, true},
		{"/pavers-details?prodid=42#gallery", 42, true},
		{"/pavers-details?prodid=abc", 0, false},
		{"/pavers-catalog.pdf", 0, false},
	}
	for _, tt := range tests {
		id, ok := parseProdID(tt.href)
		assert.Equal(t, tt.ok, ok, tt.href)
		assert.Equal(t, tt.id, id, tt.href)
	}
}

const navTreeJSON = `{
	"data": [
		{
			"fullurl": "/pavers", "level": "1", "name": "Pavers",
			"categories": [
				{
					"fullurl": "/pavers/sherwood", "level": "2", "name": "Sherwood",
					"categories": [
						{"fullurl": "/pavers/sherwood/ledgestone-3pc", "level": "3", "name": "Ledgestone 3pc", "categories": []},
						{"fullurl": "/shallow", "level": "3", "name": "Shallow URL", "categories": []}
					]
				}
			]
		}
	]
}`

const searchJSON = `{
	"items": [
		{
			"displayname": "Ledgestone 3pc Onyx Natural",
			"urlcomponent": "pavers/sherwood/ledgestone-3pc-onyx",
			"itemid": "SW-LS3-ONX",
			"onlinecustomerprice": 487.20,
			"quantityavailable": 14,
			"itemimages_detail": {"urls": [{"url": "https://portal.test/img/ls3-onyx.jpg"}]}
		},
		{
			"displayname": "Sherwood Ledgestone 3pc Driftwood",
			"urlcomponent": "pavers/sherwood/ledgestone-3pc-driftwood",
			"itemid": "SW-LS3-DFT",
			"onlinecustomerprice": 487.20,
			"quantityavailable": 0,
			"itemimages_detail": {"urls": []}
		}
	]
}`

func TestBuildPortalTwoStage(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{
		"https://portal.test" + navAPIPath: navTreeJSON,
	}}
	portal := &stubPortal{responses: map[string]string{
		searchAPIPath: searchJSON,
	}}
	b := NewBuilder(testBuilderConfig(), fetcher, noopLogger())

	idx := b.BuildPortal(context.Background(), portal)

	require.NotNil(t, idx)
	require.Equal(t, 2, idx.TotalProducts)

	first := idx.Products[0]
	// Color-family prefix from the category path is prepended when absent.
	assert.Equal(t, "Sherwood Ledgestone 3pc Onyx Natural", first.Title)
	assert.Equal(t, "/ledgestone-3pc-onyx", first.URL)
	assert.Equal(t, "SW-LS3-ONX", first.SKU)
	assert.Equal(t, "487.20", first.Price)
	assert.Equal(t, 14, first.Stock)
	assert.Equal(t, []string{"https://portal.test/img/ls3-onyx.jpg"}, first.Images)

	// Already-prefixed titles are left alone.
	assert.Equal(t, "Sherwood Ledgestone 3pc Driftwood", idx.Products[1].Title)
}

func TestBuildPortalEmptyOnNavFailure(t *testing.T) {
	b := NewBuilder(testBuilderConfig(), &stubFetcher{pages: map[string]string{}}, noopLogger())

	idx := b.BuildPortal(context.Background(), &stubPortal{})

	require.NotNil(t, idx)
	assert.Equal(t, 0, idx.TotalProducts)
}

func TestCollectCategoryURLs(t *testing.T) {
	nodes := []navNode{
		{
			FullURL: "/pavers", Level: "1",
			Categories: []navNode{
				{
					FullURL: "/pavers/sherwood", Level: "2",
					Categories: []navNode{
						{FullURL: "/pavers/sherwood/ledgestone", Level: "3"},
						{FullURL: "/pavers/sherwood/ledgestone", Level: "3"},
						{FullURL: "/too-shallow", Level: "3"},
					},
				},
			},
		},
	}

	urls := collectCategoryURLs(nodes, nil)

	assert.Equal(t, []string{"/pavers/sherwood/ledgestone"}, urls)
}

func TestColorFamily(t *testing.T) {
	assert.Equal(t, "Sherwood", colorFamily("/pavers/sherwood/ledgestone-3pc"))
	assert.Equal(t, "Olde English", colorFamily("/walls/olde-english/wall"))
	assert.Equal(t, "", colorFamily("/pavers"))
}
