// internal/catalog/service.go
package catalog

import (
	"context"
	"io"
)

// Service defines the interface for the item name catalog.
type Service interface {
	Get(ctx context.Context, barcode string) (*Item, error)
	Set(ctx context.Context, barcode, name string) (*Item, error)
	Remove(ctx context.Context, barcode string) error
	Search(ctx context.Context, query string, limit int) ([]Item, error)
	Import(ctx context.Context, r io.Reader) (ImportResult, error)
	Names(ctx context.Context, barcodes []string) (map[string]string, error)
	DisplayName(ctx context.Context, barcode string) string
}
