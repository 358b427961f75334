package types

import "time"

// IndexEntry is one catalog record discovered during an index build.
// URL is the canonical page path (relative to the site origin) and is
// unique within an index; duplicates collapse last-write-wins during crawl.
type IndexEntry struct {
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	Category string   `json:"category"`
	SKU      string   `json:"sku,omitempty"`
	Price    string   `json:"price,omitempty"`
	Stock    int      `json:"stock,omitempty"`
	Images   []string `json:"images,omitempty"`
}

// ProductIndex is a searchable snapshot of a site's product listing.
// TotalProducts always equals len(Products).
type ProductIndex struct {
	LastUpdated   string       `json:"last_updated"`
	TotalProducts int          `json:"total_products"`
	Products      []IndexEntry `json:"products"`
}

// PublicData holds everything extracted from one public product page.
// Fields are empty when the corresponding page section is absent.
type PublicData struct {
	Title          string   `json:"title"`
	Collection     string   `json:"collection"`
	Description    string   `json:"description"`
	Specifications string   `json:"specifications"`
	HeroImage      string   `json:"hero_image"`
	GalleryImages  []string `json:"gallery_images"`
	Colors         []string `json:"colors"`
}

// PortalData holds per-color data extracted from one dealer portal page.
// Any field may be legitimately absent.
type PortalData struct {
	GalleryImages []string `json:"gallery_images"`
	Weight        string   `json:"weight"`
	SalesUnit     string   `json:"sales_unit"`
	Cost          string   `json:"cost"`
	ModelNumber   string   `json:"model_number"`
}

// Record is one input row. Rows sharing a Title form a variant family.
type Record struct {
	Title       string `json:"title"`
	PublicTitle string `json:"public_title,omitempty"`
	Color       string `json:"color"`
	ItemNumber  string `json:"item_#,omitempty"`
	Price       string `json:"price,omitempty"`
}

// Metafield is a Shopify custom field attached to a product or variant.
type Metafield struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Type      string `json:"type"`
}

// Option describes a product option axis (Color).
type Option struct {
	Name     string   `json:"name"`
	Position int      `json:"position"`
	Values   []string `json:"values"`
}

// Variant is one sellable color variant of a product.
type Variant struct {
	SKU              string      `json:"sku"`
	Price            string      `json:"price"`
	Cost             string      `json:"cost"`
	Barcode          string      `json:"barcode"`
	Position         int         `json:"position"`
	Option1          string      `json:"option1"`
	InventoryPolicy  string      `json:"inventory_policy"`
	RequiresShipping bool        `json:"requires_shipping"`
	Taxable          bool        `json:"taxable"`
	WeightUnit       string      `json:"weight_unit"`
	Metafields       []Metafield `json:"metafields"`
}

// Image is one product image with its gallery position and alt tag.
type Image struct {
	Position int    `json:"position"`
	Src      string `json:"src"`
	Alt      string `json:"alt"`
}

// Product is the normalized output unit, one per variant family.
type Product struct {
	Title           string      `json:"title"`
	DescriptionHTML string      `json:"descriptionHtml"`
	Vendor          string      `json:"vendor"`
	Status          string      `json:"status"`
	Options         []Option    `json:"options"`
	Variants        []Variant   `json:"variants"`
	Images          []Image     `json:"images"`
	Metafields      []Metafield `json:"metafields"`
}

// Output is the shape of the output JSON file.
type Output struct {
	Products []Product `json:"products"`
}

// Summary accumulates run counters, reported once at the end.
type Summary struct {
	Success         int `json:"success"`
	Skipped         int `json:"skipped"`
	Failed          int `json:"failed"`
	VariantSuccess  int `json:"variant_success"`
	VariantSkipped  int `json:"variant_skipped"`
	VariantFailed   int `json:"variant_failed"`
	TotalFamilies   int `json:"total_families"`
	WarningFamilies int `json:"warning_families"`
}

// Config holds the runtime configuration for the collector.
type Config struct {
	InputFile       string
	OutputFile      string
	ProcessingMode  string // "skip" or "overwrite"
	StartRecord     int    // 0-based inclusive, -1 = from beginning
	EndRecord       int    // 0-based exclusive, -1 = to end
	RebuildIndex    bool
	IndexMaxAgeDays int
	IndexCacheFile  string
	PortalCacheFile string
	SKURegistryFile string

	PublicOrigin        string
	PortalOrigin        string
	FuzzyMatchThreshold float64
	LiveSearchFallback  bool

	PortalUsername string
	PortalPassword string

	RequestDelay       time.Duration
	MaxRetries         int
	Timeout            time.Duration
	UseHeadlessBrowser bool
	UserAgent          string
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ProcessingMode:      "skip",
		StartRecord:         -1,
		EndRecord:           -1,
		IndexMaxAgeDays:     7,
		IndexCacheFile:      "cache/product_index.json",
		PortalCacheFile:     "cache/portal_index.json",
		SKURegistryFile:     "cache/sku_registry.json",
		PublicOrigin:        "https://www.cambridgepavers.com",
		PortalOrigin:        "https://shop.cambridgepavers.com",
		FuzzyMatchThreshold: 0.6,
		RequestDelay:        1 * time.Second,
		MaxRetries:          3,
		Timeout:             30 * time.Second,
		UseHeadlessBrowser:  false,
		UserAgent:           "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// Logger defines the logging interface
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}
