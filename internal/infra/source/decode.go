package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"stockwatch/internal/domain/stock"
)

// listing is the storefront product listing document.
type listing struct {
	Data []rawProduct `json:"data"`
}

type rawProduct struct {
	Alias             string  `json:"alias"`
	Name              string  `json:"name"`
	Available         number  `json:"available"`
	Price             number  `json:"price"`
	ComparePrice      number  `json:"compare_price"`
	InventoryQuantity number  `json:"inventory_quantity"`
	LowStockQuantity  number  `json:"inventory_low_stock_quantity"`
	Weight            number  `json:"weight"`
	TotalOrderCount   number  `json:"total_order_count"`
	Metafields        *struct {
		ProductType string `json:"product_type"`
		UOM         string `json:"uom"`
	} `json:"metafields"`
}

// number accepts JSON numbers, numeric strings, booleans and null.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch string(b) {
	case "null", `""`:
		*n = 0
		return nil
	case "true":
		*n = 1
		return nil
	case "false":
		*n = 0
		return nil
	}
	s := strings.Trim(string(b), `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %s", b)
	}
	*n = number(f)
	return nil
}

// decodeListing maps a listing document to product statuses. Entries
// without an alias are skipped.
func decodeListing(data []byte, sc stock.StoreContext, productURL func(alias string) string) ([]stock.ProductStatus, error) {
	var doc listing
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing product listing: %w", err)
	}

	products := make([]stock.ProductStatus, 0, len(doc.Data))
	for _, p := range doc.Data {
		alias := strings.TrimSpace(p.Alias)
		if alias == "" {
			continue
		}
		name := strings.TrimSpace(p.Name)
		if name == "" {
			name = "Unknown Product"
		}

		details := stock.ProductDetails{
			Price:             float64(p.Price),
			ComparePrice:      float64(p.ComparePrice),
			InventoryQuantity: int(p.InventoryQuantity),
			LowStockQuantity:  int(p.LowStockQuantity),
			WeightGrams:       int(p.Weight),
			TotalOrderCount:   int(p.TotalOrderCount),
		}
		if productURL != nil {
			details.URL = productURL(alias)
		}
		if p.Metafields != nil {
			details.ProductType = p.Metafields.ProductType
			details.UOM = p.Metafields.UOM
		}

		products = append(products, stock.ProductStatus{
			ProductID:    alias,
			Name:         name,
			Available:    p.Available > 0,
			StoreContext: sc,
			Details:      details,
		})
	}
	return products, nil
}
