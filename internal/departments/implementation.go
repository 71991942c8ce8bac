// internal/departments/implementation.go
package departments

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"scantrack/pkg/eventstore"
)

// checkedOutLog is the slice of the event store the stats report needs.
type checkedOutLog interface {
	CheckedOut(ctx context.Context) ([]eventstore.Event, error)
}

// service implements the Service interface.
type service struct {
	db  *gorm.DB
	log checkedOutLog
}

// NewService creates a new department service instance.
func NewService(db *gorm.DB, log checkedOutLog) Service {
	return &service{db: db, log: log}
}

// Migrate creates the mapping table and seeds the defaults when it is empty.
func Migrate(ctx context.Context, db *gorm.DB) error {
	conn := db.WithContext(ctx)
	if err := conn.AutoMigrate(&Mapping{}); err != nil {
		return fmt.Errorf("migrate department_mappings: %w", err)
	}

	var count int64
	if err := conn.Model(&Mapping{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count department mappings: %w", err)
	}
	if count > 0 {
		return nil
	}
	if err := conn.Create(DefaultMappings()).Error; err != nil {
		return fmt.Errorf("seed department mappings: %w", err)
	}
	return nil
}

func (s *service) Resolve(ctx context.Context, barcode string) (string, bool, error) {
	mappings, err := s.List(ctx)
	if err != nil {
		return "", false, err
	}
	dept, ok := ResolveFrom(mappings, barcode)
	return dept, ok, nil
}

func (s *service) List(ctx context.Context) ([]Mapping, error) {
	var mappings []Mapping
	if err := s.db.WithContext(ctx).Order("prefix").Find(&mappings).Error; err != nil {
		return nil, fmt.Errorf("failed to list department mappings: %w", err)
	}
	return mappings, nil
}

// Upsert stores prefix upper-cased, replacing the department of an existing prefix.
func (s *service) Upsert(ctx context.Context, prefix, department string) (*Mapping, error) {
	m := &Mapping{
		Prefix:     NormalizePrefix(prefix),
		Department: strings.TrimSpace(department),
	}
	if m.Prefix == "" || m.Department == "" {
		return nil, ErrInvalidMapping
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "prefix"}},
		DoUpdates: clause.AssignmentColumns([]string{"department"}),
	}).Create(m).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save department mapping: %w", err)
	}
	return m, nil
}

func (s *service) Delete(ctx context.Context, prefix string) error {
	res := s.db.WithContext(ctx).Where("prefix = ?", NormalizePrefix(prefix)).Delete(&Mapping{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete department mapping: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrMappingNotFound
	}
	return nil
}

// Stats counts checked-out items per department, largest first.
func (s *service) Stats(ctx context.Context) ([]DepartmentCount, error) {
	items, err := s.log.CheckedOut(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load checked out items: %w", err)
	}

	counts := map[string]int{}
	for _, item := range items {
		dept := item.Department
		if dept == "" {
			dept = UnknownDepartment
		}
		counts[dept]++
	}

	stats := make([]DepartmentCount, 0, len(counts))
	for dept, n := range counts {
		stats = append(stats, DepartmentCount{Department: dept, Count: n})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Department < stats[j].Department
	})
	return stats, nil
}
