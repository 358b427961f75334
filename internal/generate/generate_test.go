package generate

import (
	"fmt"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cambridge-collector/internal/types"
)

type stubSKUs struct {
	next int
	err  error
}

func (s *stubSKUs) Next() (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.next++
	return fmt.Sprintf("%d", 50000+s.next-1), nil
}

func testLogger() types.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestGroupByTitlePreservesOrder(t *testing.T) {
	records := []types.Record{
		{Title: "Ledgestone 3pc", Color: "Onyx Natural"},
		{Title: "Cobble Circle", Color: "Driftwood"},
		{Title: "Ledgestone 3pc", Color: "Driftwood"},
		{Title: "Cobble Circle", Color: "Onyx Natural"},
	}

	families := GroupByTitle(records)

	require.Len(t, families, 2)
	assert.Equal(t, "Ledgestone 3pc", families[0].Title)
	assert.Equal(t, "Cobble Circle", families[1].Title)
	require.Len(t, families[0].Records, 2)
	assert.Equal(t, "Onyx Natural", families[0].Records[0].Color)
	assert.Equal(t, "Driftwood", families[0].Records[1].Color)
}

func sampleFamily() Family {
	return Family{
		Title: "Ledgestone 3pc",
		Records: []types.Record{
			{Title: "Ledgestone 3pc", Color: "Onyx Natural", Price: "487.20"},
			{Title: "Ledgestone 3pc", Color: "Driftwood", ItemNumber: "SW-LS3-DFT", Price: "487.20"},
		},
	}
}

func samplePublic() *types.PublicData {
	return &types.PublicData{
		Title:          "Ledgestone 3pc Design Kit",
		Collection:     "Sherwood Collection",
		Description:    "Rugged ledge texture.\nThree shapes per layer.",
		Specifications: "Coverage: 9.53 sq ft per layer",
		HeroImage:      "https://cdn.test/ledgestone-hero.jpg",
		GalleryImages:  []string{"https://cdn.test/ledgestone-patio.jpg"},
		Colors:         []string{"Onyx Natural", "Driftwood"},
	}
}

func samplePortal() map[string]*types.PortalData {
	return map[string]*types.PortalData{
		"Onyx Natural": {
			GalleryImages: []string{"https://portal.test/ls3-onyx.jpg"},
			Weight:        "43.5 lbs",
			SalesUnit:     "Pallet",
			Cost:          "$487.20",
			ModelNumber:   "SW-LS3-ONX",
		},
	}
}

func TestBuildProductFullData(t *testing.T) {
	product, warnings := BuildProduct(sampleFamily(), samplePublic(), samplePortal(), &stubSKUs{}, testLogger())

	assert.Empty(t, warnings)
	assert.Equal(t, "Ledgestone 3pc", product.Title)
	assert.Equal(t, "Cambridge Pavers", product.Vendor)
	assert.Equal(t, "ACTIVE", product.Status)
	assert.Equal(t, "<p>Rugged ledge texture.</p><p>Three shapes per layer.</p>", product.DescriptionHTML)

	require.Len(t, product.Options, 1)
	assert.Equal(t, "Color", product.Options[0].Name)
	assert.Equal(t, []string{"Onyx Natural", "Driftwood"}, product.Options[0].Values)

	require.Len(t, product.Variants, 2)
	first := product.Variants[0]
	assert.Equal(t, "50000", first.SKU)
	assert.Equal(t, "50000", first.Barcode)
	assert.Equal(t, "$487.20", first.Cost)
	assert.Equal(t, 1, first.Position)
	assert.Equal(t, "Onyx Natural", first.Option1)
	require.Len(t, first.Metafields, 3)
	assert.Equal(t, "weight_info", first.Metafields[0].Key)
	assert.Equal(t, "43.5 lbs", first.Metafields[0].Value)
	assert.Equal(t, "unit_of_sale", first.Metafields[1].Key)
	assert.Equal(t, "model_number", first.Metafields[2].Key)

	// An input item number short-circuits SKU allocation.
	second := product.Variants[1]
	assert.Equal(t, "SW-LS3-DFT", second.SKU)
	assert.Equal(t, "SW-LS3-DFT", second.Barcode)
	assert.Empty(t, second.Metafields)

	require.Len(t, product.Metafields, 2)
	assert.Equal(t, "specifications", product.Metafields[0].Key)
	assert.Equal(t, "collection", product.Metafields[1].Key)
	assert.Equal(t, "Sherwood Collection", product.Metafields[1].Value)
}

func TestBuildProductImageOrdering(t *testing.T) {
	product, _ := BuildProduct(sampleFamily(), samplePublic(), samplePortal(), &stubSKUs{}, testLogger())

	require.Len(t, product.Images, 3)
	assert.Equal(t, types.Image{Position: 1, Src: "https://portal.test/ls3-onyx.jpg", Alt: "Ledgestone 3pc - Onyx Natural"}, product.Images[0])
	assert.Equal(t, types.Image{Position: 2, Src: "https://cdn.test/ledgestone-hero.jpg", Alt: "Ledgestone 3pc - Hero"}, product.Images[1])
	assert.Equal(t, types.Image{Position: 3, Src: "https://cdn.test/ledgestone-patio.jpg", Alt: "Ledgestone 3pc - Lifestyle"}, product.Images[2])
}

func TestBuildProductDeduplicatesImages(t *testing.T) {
	public := samplePublic()
	public.GalleryImages = []string{"https://portal.test/ls3-onyx.jpg", "https://cdn.test/ledgestone-patio.jpg"}

	product, _ := BuildProduct(sampleFamily(), public, samplePortal(), &stubSKUs{}, testLogger())

	require.Len(t, product.Images, 3)
	for i, img := range product.Images {
		assert.Equal(t, i+1, img.Position)
	}
}

func TestBuildProductUndeclaredColorWarnsButKeeps(t *testing.T) {
	public := samplePublic()
	public.Colors = []string{"Onyx Natural"}

	product, warnings := BuildProduct(sampleFamily(), public, samplePortal(), &stubSKUs{}, testLogger())

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "Driftwood")
	assert.Len(t, product.Variants, 2)
}

func TestBuildProductPortalOnly(t *testing.T) {
	product, warnings := BuildProduct(sampleFamily(), nil, samplePortal(), &stubSKUs{}, testLogger())

	assert.Empty(t, warnings)
	assert.Empty(t, product.DescriptionHTML)
	assert.Empty(t, product.Metafields)
	require.Len(t, product.Images, 1)
	assert.Equal(t, "https://portal.test/ls3-onyx.jpg", product.Images[0].Src)
	assert.Len(t, product.Variants, 2)
}

func TestBuildProductSKUFailureWarns(t *testing.T) {
	product, warnings := BuildProduct(sampleFamily(), samplePublic(), nil, &stubSKUs{err: fmt.Errorf("registry locked")}, testLogger())

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "sku allocation failed")
	assert.Equal(t, "", product.Variants[0].SKU)
	assert.Equal(t, "SW-LS3-DFT", product.Variants[1].SKU)
}
