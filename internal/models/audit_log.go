package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// AuditLog records a change made to a contributor outside the capital ledger.
type AuditLog struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	ContributorID string    `gorm:"column:contributor_id;size:64;not null;index" json:"contributor_id"`
	Field         string    `gorm:"column:field;size:64;not null" json:"field"`
	OldValue      *string   `gorm:"column:old_value;size:255" json:"old_value"`
	NewValue      string    `gorm:"column:new_value;size:255;not null" json:"new_value"`
	Meta          JSONMap   `gorm:"column:meta;type:jsonb" json:"meta"`
	ChangedAt     time.Time `gorm:"column:changed_at;autoCreateTime" json:"changed_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// JSONMap stores free-form attributes in a jsonb column.
type JSONMap map[string]interface{}

func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("JSONMap: unsupported scan source")
	}
	return json.Unmarshal(raw, j)
}
