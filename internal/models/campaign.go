package models

import (
	"time"

	"gorm.io/gorm"
)

// Campaign 推荐活动表
type Campaign struct {
	ID                  uint           `gorm:"primarykey" json:"id"`                       // 主键
	BusinessID          uint           `gorm:"not null;index" json:"business_id"`          // 归属商家
	Name                string         `gorm:"not null" json:"name"`                       // 活动名称
	TaskType            string         `gorm:"not null" json:"task_type"`                  // 任务类型（review/purchase/form/other）
	TaskDescription     string         `gorm:"type:text;not null" json:"task_description"` // 任务说明
	RewardType          string         `gorm:"not null" json:"reward_type"`                // 奖励类型（discount/cashback/gift/other）
	RewardValue         Money          `gorm:"type:decimal(12,2);not null" json:"reward_value"` // 奖励面值
	RewardDetails       string         `gorm:"type:text;default:''" json:"reward_details"` // 奖励说明
	StartDate           time.Time      `gorm:"not null" json:"start_date"`                 // 开始时间
	EndDate             time.Time      `gorm:"not null;index" json:"end_date"`             // 结束时间
	NotificationMessage string         `gorm:"type:text;default:''" json:"notification_message"` // 推荐人通知文案
	Status              string         `gorm:"default:'draft';index" json:"status"`        // 活动状态（draft/active/paused/completed）
	TotalReferrals      int64          `gorm:"not null;default:0" json:"total_referrals"`  // 累计转化人数
	TotalRewardsGiven   int64          `gorm:"not null;default:0" json:"total_rewards_given"` // 累计发放奖励次数
	CreatedAt           time.Time      `gorm:"index" json:"created_at"`                    // 创建时间
	UpdatedAt           time.Time      `gorm:"index" json:"updated_at"`                    // 更新时间
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`                             // 软删除时间
}

// TableName 指定表名
func (Campaign) TableName() string {
	return "campaigns"
}

// IsActiveAt 活动在给定时间是否可参与
func (c *Campaign) IsActiveAt(now time.Time) bool {
	if c.Status != "active" {
		return false
	}
	return !now.Before(c.StartDate) && !now.After(c.EndDate)
}
