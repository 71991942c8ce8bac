// internal/settings/implementation.go
package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// service implements the Service interface.
type service struct {
	db       *gorm.DB
	defaults Defaults

	mu        sync.RWMutex
	listeners []ChangeFunc
}

// NewService creates a new settings service instance.
func NewService(db *gorm.DB, defaults Defaults) Service {
	if defaults.TriggerBarcode == "" {
		defaults.TriggerBarcode = "SCAN_START"
	}
	if defaults.ThresholdHours <= 0 {
		defaults.ThresholdHours = 24
	}
	return &service{db: db, defaults: defaults}
}

// Migrate creates the settings table and inserts any missing default keys.
func Migrate(ctx context.Context, db *gorm.DB, defaults Defaults) error {
	conn := db.WithContext(ctx)
	if err := conn.AutoMigrate(&Setting{}); err != nil {
		return fmt.Errorf("migrate settings: %w", err)
	}

	seed := []Setting{
		{Key: KeyAutoExportEnabled, Value: "false"},
		{Key: KeyExportPath, Value: ""},
		{Key: KeyAlertThresholdHours, Value: strconv.Itoa(defaults.ThresholdHours)},
		{Key: KeyTriggerBarcode, Value: defaults.TriggerBarcode},
	}
	err := conn.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error
	if err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	return nil
}

func (s *service) Get(ctx context.Context, key string) (string, error) {
	if !known(key) {
		return "", fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	var row Setting
	err := s.db.WithContext(ctx).Where("key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return row.Value, nil
}

func (s *service) All(ctx context.Context) (map[string]string, error) {
	var rows []Setting
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		if known(row.Key) {
			out[row.Key] = row.Value
		}
	}
	return out, nil
}

func (s *service) Set(ctx context.Context, key, value string) error {
	value, err := normalize(key, value)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&Setting{Key: key, Value: value}).Error
	if err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}

	s.mu.RLock()
	listeners := append([]ChangeFunc(nil), s.listeners...)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(key, value)
	}
	return nil
}

// TriggerBarcode returns the stored trigger token, or the default when unset or on error.
func (s *service) TriggerBarcode(ctx context.Context) string {
	value, err := s.Get(ctx, KeyTriggerBarcode)
	if err != nil || strings.TrimSpace(value) == "" {
		return s.defaults.TriggerBarcode
	}
	return value
}

// ThresholdHours returns the stored overdue threshold. Non-numeric or non-positive values
// fall back to the default.
func (s *service) ThresholdHours(ctx context.Context) int {
	value, err := s.Get(ctx, KeyAlertThresholdHours)
	if err != nil {
		return s.defaults.ThresholdHours
	}
	hours, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || hours <= 0 {
		return s.defaults.ThresholdHours
	}
	return hours
}

// AutoExport reports whether scheduled exports are on and where they go. A missing path
// disables them.
func (s *service) AutoExport(ctx context.Context) (bool, string) {
	enabled, err := s.Get(ctx, KeyAutoExportEnabled)
	if err != nil {
		return false, ""
	}
	on, _ := strconv.ParseBool(enabled)
	path, err := s.Get(ctx, KeyExportPath)
	if err != nil || path == "" {
		return false, ""
	}
	return on, path
}

func (s *service) OnChange(fn ChangeFunc) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func known(key string) bool {
	switch key {
	case KeyAutoExportEnabled, KeyExportPath, KeyAlertThresholdHours, KeyTriggerBarcode:
		return true
	}
	return false
}

func normalize(key, value string) (string, error) {
	switch key {
	case KeyAutoExportEnabled:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return "", fmt.Errorf("%w: %s must be true or false", ErrInvalidValue, key)
		}
		return strconv.FormatBool(b), nil
	case KeyExportPath:
		return strings.TrimSpace(value), nil
	case KeyAlertThresholdHours:
		hours, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || hours <= 0 {
			return "", fmt.Errorf("%w: %s must be a positive integer", ErrInvalidValue, key)
		}
		return strconv.Itoa(hours), nil
	case KeyTriggerBarcode:
		value = strings.TrimSpace(value)
		if value == "" {
			return "", fmt.Errorf("%w: %s must not be empty", ErrInvalidValue, key)
		}
		return value, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownSetting, key)
}
