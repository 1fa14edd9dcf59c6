package models

import (
	"time"

	"gorm.io/gorm"
)

type Property struct {
	// 基本情報
	ID          uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string  `gorm:"type:varchar(255);not null" json:"title"`
	Description string  `gorm:"type:text" json:"description"`
	Price       float64 `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	Location    string  `gorm:"type:varchar(255)" json:"location"`

	// ステータス管理（論理削除）
	Status PropertyStatus `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`

	// 操作ユーザー
	CreatedBy *uint64 `gorm:"index" json:"created_by"`
	UpdatedBy *uint64 `json:"updated_by"`

	// タイムスタンプ
	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// PropertyStatus は物件のステータス
type PropertyStatus string

const (
	PropertyStatusActive   PropertyStatus = "active"
	PropertyStatusInactive PropertyStatus = "inactive"
	PropertyStatusDeleted  PropertyStatus = "deleted"
)

// TableName はテーブル名を明示的に指定
func (Property) TableName() string {
	return "properties"
}

// IsActive は物件がアクティブかどうか
func (p *Property) IsActive() bool {
	return p.Status == PropertyStatusActive
}

// StatusFromBool maps the boolean-like input representation onto the stored
// enumeration. The deleted state is only reachable through soft delete.
func StatusFromBool(active bool) PropertyStatus {
	if active {
		return PropertyStatusActive
	}
	return PropertyStatusInactive
}

// Bool returns the boolean-like representation used by input forms.
func (s PropertyStatus) Bool() bool {
	return s == PropertyStatusActive
}
