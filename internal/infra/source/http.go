package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stockwatch/internal/domain/stock"
)

var _ stock.Source = (*HTTPSource)(nil)

// DefaultBaseURL is the storefront the HTTP source reads from.
const DefaultBaseURL = "https://shop.amul.com"

var listingFields = []string{
	"name", "alias", "available", "price", "compare_price",
	"inventory_quantity", "inventory_low_stock_quantity",
	"weight", "total_order_count", "metafields",
}

// HTTPSource reads the storefront's product listing API for one category.
type HTTPSource struct {
	baseURL    string
	category   string
	limit      int
	httpClient *http.Client
}

// NewHTTPSource creates a new storefront listing source.
func NewHTTPSource(baseURL, category string, limit int, timeout time.Duration) *HTTPSource {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if category == "" {
		category = "protein"
	}
	if limit <= 0 {
		limit = 100
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		category:   category,
		limit:      limit,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name returns the source identifier.
func (s *HTTPSource) Name() string { return "http" }

// Fetch downloads and decodes the listing for the store context.
func (s *HTTPSource) Fetch(ctx context.Context, sc stock.StoreContext) ([]stock.ProductStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.listingURL(sc), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36")
	req.Header.Set("Origin", s.baseURL)
	req.Header.Set("Referer", s.baseURL+"/")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20)) // 8 MB max
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("listing API error: status %d", resp.StatusCode)
	}

	return decodeListing(body, sc, s.productURL)
}

func (s *HTTPSource) listingURL(sc stock.StoreContext) string {
	q := url.Values{}
	for _, f := range listingFields {
		q.Set("fields["+f+"]", "1")
	}
	q.Set("filters[0][field]", "categories")
	q.Set("filters[0][value][0]", s.category)
	q.Set("filters[0][operator]", "in")
	q.Set("limit", fmt.Sprintf("%d", s.limit))
	if sc.StoreID != "" {
		q.Set("substore", sc.StoreID)
	}
	return s.baseURL + "/api/1/entity/ms.products?" + q.Encode()
}

func (s *HTTPSource) productURL(alias string) string {
	return s.baseURL + "/en/product/" + url.PathEscape(alias)
}
