package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const portalPageHTML = `
<html>
<body>
  <img src="/img/company-logo.png">
  <div class="product-detail-images">
    <img src="//cdn.shop.example.com/items/onyx-1.jpg?resize=1">
    <img src="/items/onyx-2_thumb.jpg">
    <img src="/items/onyx-3.jpg">
    <img src="/items/onyx-3.jpg">
  </div>
  <ul>
    <li><strong>Item Weight:</strong> 43.5 lbs per unit</li>
    <li><strong>Sales Unit:</strong> Pallet</li>
    <li><strong>Vendor SKU:</strong> SW-LS3-ONX</li>
  </ul>
  <div class="price">Price: $487.20</div>
</body>
</html>`

func TestPortalParser_Parse(t *testing.T) {
	parser := NewPortalParser("https://shop.cambridgepavers.com")

	data, err := parser.Parse(portalPageHTML)
	require.NoError(t, err)

	assert.Equal(t, "43.5 lbs", data.Weight)
	assert.Equal(t, "Pallet", data.SalesUnit)
	assert.Equal(t, "SW-LS3-ONX", data.ModelNumber)
	assert.Equal(t, "$487.20", data.Cost)
}

func TestPortalParser_GalleryFiltersUIImages(t *testing.T) {
	parser := NewPortalParser("https://shop.cambridgepavers.com")

	data, err := parser.Parse(portalPageHTML)
	require.NoError(t, err)

	// Thumbnail skipped, duplicate collapsed, logo outside the gallery ignored.
	assert.Equal(t, []string{
		"https://cdn.shop.example.com/items/onyx-1.jpg",
		"https://shop.cambridgepavers.com/items/onyx-3.jpg",
	}, data.GalleryImages)
}

func TestPortalParser_AbsentFieldsAreEmptyNotErrors(t *testing.T) {
	parser := NewPortalParser("https://shop.cambridgepavers.com")

	data, err := parser.Parse(`<html><body><p>Out of season</p></body></html>`)
	require.NoError(t, err)

	assert.Empty(t, data.Weight)
	assert.Empty(t, data.SalesUnit)
	assert.Empty(t, data.Cost)
	assert.Empty(t, data.ModelNumber)
	assert.Empty(t, data.GalleryImages)
}

func TestPortalParser_WeightUnits(t *testing.T) {
	parser := NewPortalParser("https://shop.cambridgepavers.com")

	tests := []struct {
		name string
		html string
		want string
	}{
		{"pounds", `<p><strong>Weight:</strong> 12 lb</p>`, "12 lb"},
		{"kilograms", `<p><strong>Shipping Weight:</strong> 2.5 kg</p>`, "2.5 kg"},
		{"no numeric value", `<p><strong>Weight:</strong> heavy</p>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := parser.Parse(tt.html)
			require.NoError(t, err)
			assert.Equal(t, tt.want, data.Weight)
		})
	}
}
