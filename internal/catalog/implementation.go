// internal/catalog/implementation.go
package catalog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultSearchLimit = 50

// service implements the Service interface on GORM.
type service struct {
	db *gorm.DB
}

// NewService creates a new catalog service instance.
func NewService(db *gorm.DB) Service {
	return &service{db: db}
}

// Migrate creates the item_names table.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&Item{}); err != nil {
		return fmt.Errorf("migrate item_names: %w", err)
	}
	return nil
}

func normalizeBarcode(barcode string) string {
	return strings.ToUpper(strings.TrimSpace(barcode))
}

// Get retrieves one item by barcode, case-insensitively.
func (s *service) Get(ctx context.Context, barcode string) (*Item, error) {
	var item Item
	err := s.db.WithContext(ctx).Where("barcode = ?", normalizeBarcode(barcode)).Take(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &item, nil
}

// Set inserts or renames an item.
func (s *service) Set(ctx context.Context, barcode, name string) (*Item, error) {
	item := Item{Barcode: normalizeBarcode(barcode), Name: strings.TrimSpace(name)}
	if item.Barcode == "" || item.Name == "" {
		return nil, ErrInvalidItem
	}
	if err := upsert(s.db.WithContext(ctx), []Item{item}); err != nil {
		return nil, err
	}
	return s.Get(ctx, item.Barcode)
}

func upsert(tx *gorm.DB, items []Item) error {
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "barcode"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
	}).Create(&items).Error
	if err != nil {
		return fmt.Errorf("upsert items: %w", err)
	}
	return nil
}

// Remove deletes an item name.
func (s *service) Remove(ctx context.Context, barcode string) error {
	res := s.db.WithContext(ctx).Where("barcode = ?", normalizeBarcode(barcode)).Delete(&Item{})
	if res.Error != nil {
		return fmt.Errorf("delete item: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}

// Search matches the query against barcode and name. An empty query lists items.
func (s *service) Search(ctx context.Context, query string, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	q := s.db.WithContext(ctx).Order("barcode ASC").Limit(limit)
	if term := strings.TrimSpace(query); term != "" {
		like := "%" + strings.ToUpper(term) + "%"
		q = q.Where("barcode LIKE ? OR UPPER(name) LIKE ?", like, like)
	}

	var items []Item
	if err := q.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}
	return items, nil
}

// Import reads "BARCODE name" lines. Blank lines and lines without a name are skipped;
// later lines win over earlier ones for the same barcode. All rows go in one transaction.
func (s *service) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	var res ImportResult
	byBarcode := make(map[string]int)
	var items []Item

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		barcode, name, ok := strings.Cut(line, " ")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			res.Skipped++
			continue
		}
		item := Item{Barcode: normalizeBarcode(barcode), Name: name}
		if idx, seen := byBarcode[item.Barcode]; seen {
			items[idx] = item
			continue
		}
		byBarcode[item.Barcode] = len(items)
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("read import: %w", err)
	}
	if len(items) == 0 {
		return res, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return upsert(tx, items)
	})
	if err != nil {
		return res, err
	}
	res.Imported = len(items)
	return res, nil
}

// Names returns the known names for barcodes, keyed by the barcode as given.
func (s *service) Names(ctx context.Context, barcodes []string) (map[string]string, error) {
	out := make(map[string]string, len(barcodes))
	if len(barcodes) == 0 {
		return out, nil
	}
	keys := make([]string, 0, len(barcodes))
	for _, b := range barcodes {
		keys = append(keys, normalizeBarcode(b))
	}

	var items []Item
	if err := s.db.WithContext(ctx).Where("barcode IN ?", keys).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("lookup item names: %w", err)
	}
	byKey := make(map[string]string, len(items))
	for _, it := range items {
		byKey[it.Barcode] = it.Name
	}
	for _, b := range barcodes {
		if name, ok := byKey[normalizeBarcode(b)]; ok {
			out[b] = name
		}
	}
	return out, nil
}

// DisplayName renders "NAME (BARCODE)" when a name is known, otherwise the barcode.
// Lookup failures fall back to the barcode.
func (s *service) DisplayName(ctx context.Context, barcode string) string {
	item, err := s.Get(ctx, barcode)
	if err != nil {
		return normalizeBarcode(barcode)
	}
	return fmt.Sprintf("%s (%s)", strings.ToUpper(item.Name), item.Barcode)
}
