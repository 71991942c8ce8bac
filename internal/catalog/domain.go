// internal/catalog/domain.go
package catalog

import (
	"errors"
	"time"
)

var (
	ErrItemNotFound = errors.New("item not found")
	ErrInvalidItem  = errors.New("barcode and name are required")
)

// Item gives a barcode a human readable name. Barcodes are stored upper-cased.
type Item struct {
	Barcode   string    `json:"barcode" gorm:"primaryKey;column:barcode;type:text"`
	Name      string    `json:"name" gorm:"column:name;type:text;not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (Item) TableName() string { return "item_names" }

// ImportResult summarizes one bulk import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}
