package models

import (
	"time"

	"gorm.io/gorm"
)

// User 商家账号，每个账号对应一份商家资料并拥有自己的客户与活动。
// 令牌作废机制与 Admin 一致，见 TokenVersion 与 TokenInvalidBefore。
type User struct {
	ID                 uint           `gorm:"primarykey" json:"id"`              // 主键
	Email              string         `gorm:"uniqueIndex;not null" json:"email"` // 登录邮箱，全局唯一
	PasswordHash       string         `gorm:"not null" json:"-"`                 // bcrypt 密码哈希
	DisplayName        string         `gorm:"default:''" json:"display_name"`    // 展示名，缺省取邮箱前缀
	Locale             string         `gorm:"default:'en-US'" json:"locale"`     // 语言偏好
	Status             string         `gorm:"default:'active'" json:"status"`    // 账号状态（active/disabled）
	TokenVersion       uint64         `gorm:"not null;default:0" json:"-"`       // 令牌版本号
	TokenInvalidBefore *time.Time     `gorm:"index" json:"-"`                    // 早于该时间签发的令牌失效
	LastLoginAt        *time.Time     `json:"last_login_at"`                     // 最近登录时间
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`           // 创建时间
	UpdatedAt          time.Time      `gorm:"index" json:"updated_at"`           // 更新时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                    // 软删除时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
