package models

import (
	"time"

	"gorm.io/gorm"
)

// BusinessProfile 商家资料表
type BusinessProfile struct {
	ID           uint           `gorm:"primarykey" json:"id"`                // 主键
	UserID       uint           `gorm:"uniqueIndex;not null" json:"user_id"` // 归属账号（一对一）
	BusinessName string         `gorm:"not null" json:"business_name"`       // 商家名称
	Industry     string         `gorm:"default:''" json:"industry"`          // 行业
	Website      string         `gorm:"default:''" json:"website"`           // 官网
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`             // 创建时间
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`             // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                      // 软删除时间
}

// TableName 指定表名
func (BusinessProfile) TableName() string {
	return "business_profiles"
}
