// internal/settings/domain.go
package settings

import "errors"

var (
	ErrUnknownSetting = errors.New("unknown setting")
	ErrInvalidValue   = errors.New("invalid setting value")
)

const (
	KeyAutoExportEnabled   = "auto_export_enabled"
	KeyExportPath          = "export_path"
	KeyAlertThresholdHours = "alert_threshold_hours"
	KeyTriggerBarcode      = "trigger_barcode"
)

// Setting is one key-value row.
type Setting struct {
	Key   string `json:"key" gorm:"column:key;primaryKey;type:text"`
	Value string `json:"value" gorm:"column:value;type:text;not null"`
}

func (Setting) TableName() string { return "settings" }

// Defaults seed the settings table and back every typed getter.
type Defaults struct {
	TriggerBarcode string
	ThresholdHours int
}

// ChangeFunc observes a successful Set.
type ChangeFunc func(key, value string)
