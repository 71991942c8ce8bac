// internal/settings/service.go
package settings

import "context"

// Service defines the interface for the settings service.
type Service interface {
	Get(ctx context.Context, key string) (string, error)
	All(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
	TriggerBarcode(ctx context.Context) string
	ThresholdHours(ctx context.Context) int
	AutoExport(ctx context.Context) (enabled bool, path string)
	OnChange(fn ChangeFunc)
}
