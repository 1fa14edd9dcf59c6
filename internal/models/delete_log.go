package models

import "time"

// DeleteLog represents an audit record of soft-deleted properties
type DeleteLog struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	PropertyID uint64    `gorm:"not null;index" json:"property_id"`
	Title      string    `gorm:"type:varchar(255)" json:"title"`
	DeletedBy  *uint64   `json:"deleted_by"`
	RecordedAt time.Time `gorm:"not null;autoCreateTime;index" json:"recorded_at"`
}

// TableName specifies the table name
func (DeleteLog) TableName() string {
	return "delete_logs"
}
