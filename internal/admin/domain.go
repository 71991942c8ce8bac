// internal/admin/domain.go
package admin

import (
	"errors"
	"time"
)

var (
	ErrInvalidPIN  = errors.New("invalid admin pin")
	ErrRateLimited = errors.New("too many admin attempts")
	ErrPINTooShort = errors.New("admin pin must have at least 4 characters")
)

// HeaderPIN carries the admin PIN on guarded requests.
const HeaderPIN = "X-Admin-Pin"

const minPINLength = 4

// Credential is the single stored admin PIN.
type Credential struct {
	ID        int       `gorm:"column:id;primaryKey"`
	PINHash   string    `gorm:"column:pin_hash;type:text;not null"`
	Salt      string    `gorm:"column:salt;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Credential) TableName() string { return "admin_credentials" }
