package models

import "time"

// PropertyChange records a single field change applied by an update
type PropertyChange struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID uint64    `gorm:"not null;index" json:"property_id"`
	Field      string    `gorm:"type:varchar(50);not null" json:"field"`
	OldValue   string    `gorm:"type:text" json:"old_value"`
	NewValue   string    `gorm:"type:text" json:"new_value"`
	ChangedBy  *uint64   `json:"changed_by"`
	ChangedAt  time.Time `gorm:"not null;autoCreateTime;index" json:"changed_at"`
}

// TableName specifies the table name
func (PropertyChange) TableName() string {
	return "property_changes"
}
