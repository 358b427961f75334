// Package collect orchestrates the end-to-end collection run: resolve
// each variant family's public page, collect public and portal data,
// build the output product, and flush it incrementally.
package collect

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"cambridge-collector/internal/generate"
	"cambridge-collector/internal/parse"
	"cambridge-collector/internal/types"
)

// PublicFetcher fetches public pages.
type PublicFetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// PortalFetcher fetches dealer portal pages with an authenticated session.
type PortalFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// URLFinder resolves a title (plus optional color) to a product page URL,
// or "" when nothing matches.
type URLFinder interface {
	Find(ctx context.Context, title, color string) string
}

// Collector runs the collection pipeline over the input records.
type Collector struct {
	config       *types.Config
	logger       types.Logger
	publicFinder URLFinder
	portalFinder URLFinder
	fetcher      PublicFetcher
	portal       PortalFetcher
	skus         generate.SKUSource
	publicParser *parse.PublicParser
	portalParser *parse.PortalParser
	stopped      atomic.Bool
}

// NewCollector wires the pipeline. portal and portalFinder may be nil;
// portal collection is then skipped entirely.
func NewCollector(config *types.Config, logger types.Logger, publicFinder, portalFinder URLFinder, fetcher PublicFetcher, portal PortalFetcher, skus generate.SKUSource) *Collector {
	return &Collector{
		config:       config,
		logger:       logger,
		publicFinder: publicFinder,
		portalFinder: portalFinder,
		fetcher:      fetcher,
		portal:       portal,
		skus:         skus,
		publicParser: parse.NewPublicParser(config.PublicOrigin),
		portalParser: parse.NewPortalParser(config.PortalOrigin),
	}
}

// Stop requests a cooperative stop. The current family finishes; the run
// then ends with whatever was collected so far.
func (c *Collector) Stop() {
	c.stopped.Store(true)
}

// Run processes the configured input file and returns the run summary.
// Family-level failures are counted, reported, and never abort the run;
// only unusable configuration (unreadable input, unwritable output)
// returns an error.
func (c *Collector) Run(ctx context.Context) (*types.Summary, error) {
	records, err := LoadRecords(c.config.InputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load input records: %w", err)
	}

	records = sliceRange(records, c.config.StartRecord, c.config.EndRecord)
	families := generate.GroupByTitle(records)

	out, err := loadOutput(c.config.OutputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing output: %w", err)
	}

	summary := &types.Summary{TotalFamilies: len(families)}
	report := newReport()

	c.logger.Infof("Processing %d families (%d records)", len(families), len(records))

	for i, family := range families {
		if c.stopped.Load() || ctx.Err() != nil {
			c.logger.Warnf("Stopping after %d of %d families", i, len(families))
			break
		}

		c.logger.Infof("[%d/%d] %s", i+1, len(families), family.Title)
		c.processFamily(ctx, family, out, summary, report)
	}

	if err := report.save(reportPath(c.config.OutputFile)); err != nil {
		c.logger.Errorf("Failed to write report: %v", err)
	}

	c.logger.Infof("Run complete: %d success, %d skipped, %d failed", summary.Success, summary.Skipped, summary.Failed)
	return summary, nil
}

func (c *Collector) processFamily(ctx context.Context, family generate.Family, out *outputSet, summary *types.Summary, report *report) {
	if c.config.ProcessingMode != "overwrite" && out.has(family.Title) {
		c.logger.Infof("Skipping %s (already in output)", family.Title)
		summary.Skipped++
		summary.VariantSkipped += len(family.Records)
		return
	}

	public, ok := c.collectPublic(ctx, family, summary, report)
	if !ok {
		return
	}

	portalData := c.collectPortal(ctx, family, summary, report)

	// Portal-only fallback: a family without a public page survives on
	// portal data alone, and fails only when that is empty too.
	if public == nil && len(portalData) == 0 {
		c.fail(family.Title, "no public page match and no portal data", summary, report)
		return
	}

	product, warnings := generate.BuildProduct(family, public, portalData, c.skus, c.logger)
	warnings = append(warnings, validate(family, public, portalData)...)

	out.set(family.Title, product)
	if err := saveOutput(c.config.OutputFile, out); err != nil {
		c.fail(family.Title, fmt.Sprintf("failed to save output: %v", err), summary, report)
		return
	}

	summary.Success++
	if len(warnings) > 0 {
		summary.WarningFamilies++
		report.warn(family.Title, warnings)
	}
}

// collectPublic resolves and parses the family's public page. A miss in
// the index returns (nil, true) so the portal-only fallback can run; a
// failed fetch or an unusable page fails the family.
func (c *Collector) collectPublic(ctx context.Context, family generate.Family, summary *types.Summary, report *report) (*types.PublicData, bool) {
	title := family.Title
	if family.Records[0].PublicTitle != "" {
		title = family.Records[0].PublicTitle
	}

	pageURL := c.publicFinder.Find(ctx, title, "")
	if pageURL == "" {
		c.logger.Warnf("No public page match for %s", family.Title)
		return nil, true
	}

	body, err := c.fetcher.Get(ctx, pageURL)
	if err != nil {
		c.fail(family.Title, fmt.Sprintf("failed to fetch public page %s: %v", pageURL, err), summary, report)
		return nil, false
	}

	public, err := c.publicParser.Parse(string(body))
	if err != nil {
		c.fail(family.Title, fmt.Sprintf("failed to parse public page %s: %v", pageURL, err), summary, report)
		return nil, false
	}
	if public.Title == "" {
		c.fail(family.Title, fmt.Sprintf("public page %s has no product title", pageURL), summary, report)
		return nil, false
	}

	return &public, true
}

// collectPortal gathers per-color portal data. Colors are independent; a
// failed color is counted and skipped without touching its siblings.
func (c *Collector) collectPortal(ctx context.Context, family generate.Family, summary *types.Summary, report *report) map[string]*types.PortalData {
	portalData := make(map[string]*types.PortalData)
	if c.portal == nil || c.portalFinder == nil {
		return portalData
	}

	for _, rec := range family.Records {
		// Keyed by trimmed color so sloppy input whitespace still lines up
		// with the product build.
		color := strings.TrimSpace(rec.Color)

		pageURL := c.portalFinder.Find(ctx, family.Title, color)
		if pageURL == "" {
			c.logger.Warnf("No portal page match for %s / %s", family.Title, color)
			summary.VariantSkipped++
			continue
		}

		body, err := c.portal.Fetch(ctx, pageURL)
		if err != nil {
			c.logger.Warnf("Failed to fetch portal page for %s / %s: %v", family.Title, color, err)
			report.warn(family.Title, []string{fmt.Sprintf("portal fetch failed for %q: %v", color, err)})
			summary.VariantFailed++
			continue
		}

		data, err := c.portalParser.Parse(body)
		if err != nil {
			c.logger.Warnf("Failed to parse portal page for %s / %s: %v", family.Title, color, err)
			summary.VariantFailed++
			continue
		}

		portalData[color] = &data
		summary.VariantSuccess++
	}

	return portalData
}

func (c *Collector) fail(title, reason string, summary *types.Summary, report *report) {
	c.logger.Errorf("Failed %s: %s", title, reason)
	summary.Failed++
	report.failure(title, reason)
}

// validate flags missing fields that degrade the output product.
func validate(family generate.Family, public *types.PublicData, portal map[string]*types.PortalData) []string {
	var warnings []string

	if public != nil {
		if public.Description == "" {
			warnings = append(warnings, "missing description")
		}
		if public.HeroImage == "" {
			warnings = append(warnings, "missing hero image")
		}
		if len(public.GalleryImages) == 0 {
			warnings = append(warnings, "missing lifestyle gallery")
		}
	}

	for _, rec := range family.Records {
		color := strings.TrimSpace(rec.Color)
		data := portal[color]
		if data == nil {
			continue
		}
		if len(data.GalleryImages) == 0 {
			warnings = append(warnings, fmt.Sprintf("no portal gallery for %q", color))
		}
		if data.Cost == "" {
			warnings = append(warnings, fmt.Sprintf("no portal cost for %q", color))
		}
		if data.ModelNumber == "" {
			warnings = append(warnings, fmt.Sprintf("no model number for %q", color))
		}
	}

	return warnings
}

// sliceRange applies the configured [start, end) record window. -1 means
// unbounded on that side; out-of-range bounds clamp.
func sliceRange(records []types.Record, start, end int) []types.Record {
	if start < 0 {
		start = 0
	}
	if end < 0 || end > len(records) {
		end = len(records)
	}
	if start > end {
		return nil
	}
	return records[start:end]
}
