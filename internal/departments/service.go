// internal/departments/service.go
package departments

import "context"

// Service manages the prefix table and resolves barcodes against it.
type Service interface {
	Resolve(ctx context.Context, barcode string) (string, bool, error)
	List(ctx context.Context) ([]Mapping, error)
	Upsert(ctx context.Context, prefix, department string) (*Mapping, error)
	Delete(ctx context.Context, prefix string) error
	Stats(ctx context.Context) ([]DepartmentCount, error)
}
