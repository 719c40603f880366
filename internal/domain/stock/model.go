package stock

import (
	"fmt"
	"time"
)

// StoreContext scopes an availability check to one pincode and store.
type StoreContext struct {
	Pincode string `json:"pincode"`
	StoreID string `json:"store_id"`
}

// IsZero reports whether neither field is set.
func (sc StoreContext) IsZero() bool {
	return sc.Pincode == "" && sc.StoreID == ""
}

func (sc StoreContext) String() string {
	return fmt.Sprintf("%s/%s", sc.Pincode, sc.StoreID)
}

// ProductDetails is optional storefront metadata shown in notifications.
// It never influences transition detection.
type ProductDetails struct {
	URL               string  `json:"url,omitempty"`
	Price             float64 `json:"price,omitempty"`
	ComparePrice      float64 `json:"compare_price,omitempty"`
	InventoryQuantity int     `json:"inventory_quantity,omitempty"`
	LowStockQuantity  int     `json:"inventory_low_stock_quantity,omitempty"`
	WeightGrams       int     `json:"weight,omitempty"`
	ProductType       string  `json:"product_type,omitempty"`
	TotalOrderCount   int     `json:"total_order_count,omitempty"`
	UOM               string  `json:"uom,omitempty"`
}

// ProductStatus is one product's availability in a snapshot.
type ProductStatus struct {
	ProductID    string         `json:"product_id"`
	Name         string         `json:"name"`
	Available    bool           `json:"available"`
	StoreContext StoreContext   `json:"store_context"`
	Details      ProductDetails `json:"details"`
}

// StoredState is the last observed availability of a product.
type StoredState struct {
	Available     bool      `json:"available"`
	LastCheckedAt time.Time `json:"last_checked_at"`
}

// StateUpdate is a single write applied by StateStore.Put.
type StateUpdate struct {
	ProductID string
	State     StoredState
}

// Message is the rendered notification ready for delivery.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// RunOptions controls a single watcher run.
type RunOptions struct {
	// Force treats every available product as newly available.
	Force bool
}

// RunReport summarizes a finished run.
type RunReport struct {
	RunID        string
	StoreContext StoreContext
	Forced       bool
	Checked      int
	Available    int
	Unavailable  int
	Notified     []ProductStatus
	MessageID    string
	StartedAt    time.Time
	Duration     time.Duration
}
