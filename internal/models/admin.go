package models

import (
	"time"

	"gorm.io/gorm"
)

// Admin 平台运营后台管理员。
// 改密时 TokenVersion 自增并记录 TokenInvalidBefore，两者共同作废存量令牌。
type Admin struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                         // 主键
	Username           string         `gorm:"uniqueIndex;not null" json:"username"`         // 登录名
	PasswordHash       string         `gorm:"not null" json:"-"`                            // bcrypt 密码哈希
	TokenVersion       uint64         `gorm:"not null;default:0" json:"-"`                  // 令牌版本号
	TokenInvalidBefore *time.Time     `gorm:"index" json:"-"`                               // 早于该时间签发的令牌失效
	IsSuper            bool           `gorm:"not null;default:false;index" json:"is_super"` // 超级管理员跳过 casbin 鉴权
	LastLoginAt        *time.Time     `json:"last_login_at"`                                // 最近登录时间
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`                      // 创建时间
	UpdatedAt          time.Time      `json:"updated_at"`                                   // 更新时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                               // 软删除时间
}

// TableName 指定表名
func (Admin) TableName() string {
	return "admins"
}
