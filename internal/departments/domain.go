// internal/departments/domain.go
package departments

import "errors"

var (
	ErrMappingNotFound = errors.New("department mapping not found")
	ErrInvalidMapping  = errors.New("prefix and department are required")
)

// UnknownDepartment labels checked-out items whose event carries no department.
const UnknownDepartment = "Unknown"

// Mapping routes barcodes starting with Prefix to Department.
type Mapping struct {
	Prefix     string `json:"prefix" gorm:"column:prefix;primaryKey;type:text"`
	Department string `json:"department" gorm:"column:department;type:text;not null"`
}

func (Mapping) TableName() string { return "department_mappings" }

// DepartmentCount is one row of the checked-out-by-department report.
type DepartmentCount struct {
	Department string `json:"department"`
	Count      int    `json:"count"`
}

// DefaultMappings are seeded into an empty mapping table.
func DefaultMappings() []Mapping {
	return []Mapping{
		{Prefix: "KÄKX", Department: "Käkkirurgi"},
		{Prefix: "ORTX", Department: "Ortopedi"},
		{Prefix: "NEURX", Department: "Neurokirurgi"},
	}
}
