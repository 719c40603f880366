package stock

import (
	"fmt"
	"math"
	"strings"

	"stockwatch/internal/common"
)

const (
	titleNewlyAvailable = "New Products Available!"
	titleStatusReport   = "Product Status Report"

	popularOrderThreshold = 10000
)

// Payload is the consolidated notification for one run.
type Payload struct {
	Title        string
	StoreContext StoreContext
	Forced       bool
	Items        []Item
}

// Item is one product line in a notification.
type Item struct {
	Name        string
	URL         string
	Price       string
	Discount    string
	Stock       int
	LowStock    bool
	Weight      string
	Badge       string
	OrderCount  int
	Popular     bool
	ProductType string
}

// Compose consolidates all qualifying products into a single payload.
// Composing zero products is a caller error.
func Compose(sc StoreContext, products []ProductStatus, forced bool) (*Payload, error) {
	if len(products) == 0 {
		return nil, common.NewValidationError("cannot compose a notification without products")
	}

	title := titleNewlyAvailable
	if forced {
		title = titleStatusReport
	}

	items := make([]Item, 0, len(products))
	for _, p := range products {
		items = append(items, newItem(p))
	}

	return &Payload{
		Title:        title,
		StoreContext: sc,
		Forced:       forced,
		Items:        items,
	}, nil
}

func newItem(p ProductStatus) Item {
	d := p.Details
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = p.ProductID
	}

	item := Item{
		Name:        name,
		URL:         d.URL,
		Stock:       d.InventoryQuantity,
		OrderCount:  d.TotalOrderCount,
		Popular:     d.TotalOrderCount > popularOrderThreshold,
		ProductType: d.ProductType,
		Weight:      formatWeight(d.WeightGrams),
		Badge:       badge(d.ProductType),
	}
	if d.Price > 0 {
		item.Price = formatRupees(d.Price)
	}
	if d.ComparePrice > d.Price && d.ComparePrice > 0 {
		saved := d.ComparePrice - d.Price
		pct := saved / d.ComparePrice * 100
		item.Discount = fmt.Sprintf("Save ₹%.0f (%.0f%% off)", saved, pct)
	}
	item.LowStock = p.Available &&
		d.InventoryQuantity > 0 &&
		d.LowStockQuantity > 0 &&
		d.InventoryQuantity <= d.LowStockQuantity
	return item
}

func formatWeight(grams int) string {
	switch {
	case grams <= 0:
		return ""
	case grams >= 1000:
		return fmt.Sprintf("%.1f kg", float64(grams)/1000)
	default:
		return fmt.Sprintf("%dg", grams)
	}
}

func formatRupees(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("₹%.0f", v)
	}
	return fmt.Sprintf("₹%.2f", v)
}

func badge(productType string) string {
	switch strings.ToLower(strings.TrimSpace(productType)) {
	case "bestseller":
		return "🏆 Bestseller"
	case "new":
		return "🆕 New Product"
	default:
		return ""
	}
}
