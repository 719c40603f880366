package source

import (
	"context"
	"fmt"
	"os"

	"stockwatch/internal/domain/stock"
)

var _ stock.Source = (*FileSource)(nil)

// FileSource reads a saved listing document from disk.
type FileSource struct {
	path    string
	baseURL string
}

// NewFileSource creates a source backed by the listing JSON at path.
// Product links are built against baseURL.
func NewFileSource(path, baseURL string) *FileSource {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &FileSource{path: path, baseURL: baseURL}
}

// Name returns the source identifier.
func (s *FileSource) Name() string { return "file" }

// Fetch reads and decodes the listing file.
func (s *FileSource) Fetch(ctx context.Context, sc stock.StoreContext) ([]stock.ProductStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading listing file: %w", err)
	}
	return decodeListing(data, sc, func(alias string) string {
		return s.baseURL + "/en/product/" + alias
	})
}
