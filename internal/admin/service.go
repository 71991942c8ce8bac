// internal/admin/service.go
package admin

import "context"

// Service guards destructive operations behind an optional PIN.
type Service interface {
	// Enabled reports whether a PIN has been configured. Without one every request passes.
	Enabled(ctx context.Context) (bool, error)
	Verify(ctx context.Context, pin string) error
	SetPIN(ctx context.Context, pin string) error
	ClearPIN(ctx context.Context) error
}
