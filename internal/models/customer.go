package models

import (
	"time"

	"gorm.io/gorm"
)

// Customer 客户表（商家维度，邮箱在同一商家内唯一）
type Customer struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                              // 主键
	BusinessID      uint           `gorm:"uniqueIndex:idx_customers_business_email;not null;index" json:"business_id"` // 归属商家
	Email           string         `gorm:"uniqueIndex:idx_customers_business_email;not null" json:"email"`    // 邮箱
	Name            string         `gorm:"default:''" json:"name"`                                            // 姓名
	Phone           string         `gorm:"default:''" json:"phone"`                                           // 电话
	CRMID           string         `gorm:"column:crm_id;default:'';index" json:"crm_id"`                      // 外部 CRM 标识
	Source          string         `gorm:"default:'manual';index" json:"source"`                              // 来源（zapier/manual/referral）
	Status          string         `gorm:"default:'active'" json:"status"`                                    // 状态
	Metadata        string         `gorm:"type:text;default:''" json:"metadata"`                              // 扩展属性（JSON 文本）
	LastInteraction *time.Time     `json:"last_interaction"`                                                  // 最后互动时间
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                           // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`                                           // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                                    // 软删除时间
}

// TableName 指定表名
func (Customer) TableName() string {
	return "customers"
}
