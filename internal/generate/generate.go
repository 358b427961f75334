// Package generate turns collected page data into normalized products.
package generate

import (
	"fmt"
	"strings"

	"cambridge-collector/internal/types"
)

const (
	vendor             = "Cambridge Pavers"
	statusActive       = "ACTIVE"
	metafieldNamespace = "custom"
)

// Family is a group of input records sharing a title, one per color.
type Family struct {
	Title   string
	Records []types.Record
}

// GroupByTitle groups input records into variant families. Family order
// follows first appearance in the input; record order within a family is
// preserved.
func GroupByTitle(records []types.Record) []Family {
	byTitle := make(map[string]int)
	var families []Family

	for _, rec := range records {
		if pos, ok := byTitle[rec.Title]; ok {
			families[pos].Records = append(families[pos].Records, rec)
			continue
		}
		byTitle[rec.Title] = len(families)
		families = append(families, Family{Title: rec.Title, Records: []types.Record{rec}})
	}
	return families
}

// SKUSource allocates SKUs for records that arrive without one.
type SKUSource interface {
	Next() (string, error)
}

// BuildProduct assembles the output product for one family. public may be
// nil (portal-only families); portal holds per-color page data and may be
// missing colors. Returned warnings flag fields that could not be filled;
// they never abort the build.
func BuildProduct(family Family, public *types.PublicData, portal map[string]*types.PortalData, skus SKUSource, logger types.Logger) (types.Product, []string) {
	var warnings []string

	product := types.Product{
		Title:  family.Title,
		Vendor: vendor,
		Status: statusActive,
	}

	if public != nil {
		product.DescriptionHTML = wrapParagraphs(public.Description)
		if public.Specifications != "" {
			product.Metafields = append(product.Metafields, types.Metafield{
				Namespace: metafieldNamespace,
				Key:       "specifications",
				Value:     public.Specifications,
				Type:      "multi_line_text_field",
			})
		}
		if public.Collection != "" {
			product.Metafields = append(product.Metafields, types.Metafield{
				Namespace: metafieldNamespace,
				Key:       "collection",
				Value:     public.Collection,
				Type:      "single_line_text_field",
			})
		}
	}

	var colors []string
	for i, rec := range family.Records {
		color := strings.TrimSpace(rec.Color)
		colors = append(colors, color)

		if public != nil && len(public.Colors) > 0 && !containsFold(public.Colors, color) {
			warnings = append(warnings, fmt.Sprintf("color %q not listed on public page for %q", color, family.Title))
			logger.Warnf("Color %q not listed on public page for %q", color, family.Title)
		}

		sku := rec.ItemNumber
		if sku == "" {
			next, err := skus.Next()
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("sku allocation failed for %q / %q: %v", family.Title, color, err))
				logger.Errorf("SKU allocation failed for %q / %q: %v", family.Title, color, err)
			} else {
				sku = next
			}
		}

		variant := types.Variant{
			SKU:              sku,
			Barcode:          sku,
			Price:            rec.Price,
			Position:         i + 1,
			Option1:          color,
			InventoryPolicy:  "deny",
			RequiresShipping: true,
			Taxable:          true,
			WeightUnit:       "lb",
		}

		if data := portal[color]; data != nil {
			variant.Cost = data.Cost
			variant.Metafields = variantMetafields(data)
		}

		product.Variants = append(product.Variants, variant)
	}

	product.Options = []types.Option{{Name: "Color", Position: 1, Values: colors}}
	product.Images = buildImages(family.Title, colors, public, portal)

	return product, warnings
}

// variantMetafields maps portal page fields onto variant metafields,
// skipping anything the page didn't carry.
func variantMetafields(data *types.PortalData) []types.Metafield {
	var fields []types.Metafield
	add := func(key, value string) {
		if value == "" {
			return
		}
		fields = append(fields, types.Metafield{
			Namespace: metafieldNamespace,
			Key:       key,
			Value:     value,
			Type:      "single_line_text_field",
		})
	}
	add("weight_info", data.Weight)
	add("unit_of_sale", data.SalesUnit)
	add("model_number", data.ModelNumber)
	return fields
}

// buildImages orders the gallery: portal images per color first (variant
// order), then the public hero, then the public lifestyle shots. Duplicate
// sources are dropped, positions run sequentially from 1.
func buildImages(title string, colors []string, public *types.PublicData, portal map[string]*types.PortalData) []types.Image {
	var images []types.Image
	seen := make(map[string]bool)

	add := func(src, alt string) {
		if src == "" || seen[src] {
			return
		}
		seen[src] = true
		images = append(images, types.Image{Position: len(images) + 1, Src: src, Alt: alt})
	}

	for _, color := range colors {
		data := portal[color]
		if data == nil {
			continue
		}
		for _, src := range data.GalleryImages {
			add(src, title+" - "+color)
		}
	}

	if public != nil {
		add(public.HeroImage, title+" - Hero")
		for _, src := range public.GalleryImages {
			add(src, title+" - Lifestyle")
		}
	}

	return images
}

// wrapParagraphs converts plain text description lines into HTML.
func wrapParagraphs(text string) string {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(line)
		b.WriteString("</p>")
	}
	return b.String()
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), s) {
			return true
		}
	}
	return false
}
