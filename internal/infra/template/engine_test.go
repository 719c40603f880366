package template

import (
	"strings"
	"testing"

	"stockwatch/internal/domain/stock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPayload(t *testing.T, forced bool, products ...stock.ProductStatus) *stock.Payload {
	t.Helper()
	p, err := stock.Compose(stock.StoreContext{Pincode: "110001", StoreID: "delhi"}, products, forced)
	require.NoError(t, err)
	return p
}

func TestEngine_RendersEveryItem(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	payload := testPayload(t, false,
		stock.ProductStatus{ProductID: "whey", Name: "Whey Protein", Available: true, Details: stock.ProductDetails{
			URL:             "https://shop.amul.com/en/product/whey",
			Price:           900,
			ComparePrice:    1200,
			TotalOrderCount: 25000,
		}},
		stock.ProductStatus{ProductID: "lassi", Name: "Lassi", Available: true},
	)

	subject, body, text, err := e.Render(payload)
	require.NoError(t, err)

	assert.Equal(t, "New Products Available!", subject)
	assert.True(t, strings.HasPrefix(body, "<b>🎉 New Products Available!</b>"))
	assert.Contains(t, body, "📍 Pincode 110001 · delhi")
	assert.Contains(t, body, "• <b>Whey Protein</b>")
	assert.Contains(t, body, "• <b>Lassi</b>")
	assert.Contains(t, body, "Price: ₹900")
	assert.Contains(t, body, "Save ₹300 (25% off)")
	assert.Contains(t, body, "🔥 Popular (25,000 orders)")
	assert.Contains(t, body, `<a href="https://shop.amul.com/en/product/whey">`)
	assert.Contains(t, body, "Open product</a>\n\n• <b>Lassi</b>", "items are separated by a blank line")

	assert.NotContains(t, text, "<b>")
	assert.Contains(t, text, "• Whey Protein")
	assert.Contains(t, text, "Save ₹300 (25% off)")
}

func TestEngine_ForcedHeader(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	subject, body, _, err := e.Render(testPayload(t, true, stock.ProductStatus{ProductID: "a", Name: "A", Available: true}))
	require.NoError(t, err)
	assert.Equal(t, "Product Status Report", subject)
	assert.True(t, strings.HasPrefix(body, "<b>📊 Product Status Report</b>"))
}

func TestEngine_EscapesProductNames(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	_, body, text, err := e.Render(testPayload(t, false, stock.ProductStatus{ProductID: "a", Name: "Milk & <Honey>", Available: true}))
	require.NoError(t, err)
	assert.Contains(t, body, "Milk &amp; &lt;Honey&gt;")
	assert.Contains(t, text, "Milk & <Honey>")
}

func TestEngine_RejectsEmptyPayload(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	_, _, _, err = e.Render(&stock.Payload{Title: "x"})
	assert.Error(t, err)
	_, _, _, err = e.Render(nil)
	assert.Error(t, err)
}

func TestThousands(t *testing.T) {
	tests := map[int]string{
		0:        "0",
		999:      "999",
		1000:     "1,000",
		12345:    "12,345",
		1234567:  "1,234,567",
		-1234567: "-1,234,567",
	}
	for in, want := range tests {
		assert.Equal(t, want, thousands(in))
	}
}
