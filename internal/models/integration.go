package models

import (
	"time"

	"gorm.io/gorm"
)

// Integration 外部集成表（Zapier/CRM 等）
type Integration struct {
	ID           uint           `gorm:"primarykey" json:"id"`                                                    // 主键
	BusinessID   uint           `gorm:"uniqueIndex:idx_integrations_business_type;not null;index" json:"business_id"` // 归属商家
	Type         string         `gorm:"uniqueIndex:idx_integrations_business_type;not null" json:"type"`         // 集成类型（zapier/hubspot/salesforce）
	APIKey       string         `gorm:"column:api_key;default:''" json:"-"`                                      // 调用凭证（不返回给前端）
	WebhookURL   string         `gorm:"default:''" json:"webhook_url"`                                           // 回调地址
	IsConnected  bool           `gorm:"not null;default:false" json:"is_connected"`                              // 是否已连接
	SyncStatus   string         `gorm:"default:'idle'" json:"sync_status"`                                       // 同步状态（idle/in_progress/success/failed）
	SyncError    string         `gorm:"type:text;default:''" json:"sync_error"`                                  // 最近一次同步错误
	LastSyncedAt *time.Time     `json:"last_synced_at"`                                                          // 最近同步时间
	SyncedCount  int64          `gorm:"not null;default:0" json:"synced_count"`                                  // 最近一次同步的联系人数量
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                                                 // 创建时间
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`                                                 // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                                          // 软删除时间
}

// TableName 指定表名
func (Integration) TableName() string {
	return "integrations"
}
