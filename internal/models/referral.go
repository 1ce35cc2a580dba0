package models

import (
	"time"

	"gorm.io/gorm"
)

// Referral 推荐链接表（同一活动内每个推荐人唯一）
type Referral struct {
	ID                  uint           `gorm:"primarykey" json:"id"`                                                          // 主键
	CampaignID          uint           `gorm:"uniqueIndex:idx_referrals_campaign_referrer;not null;index" json:"campaign_id"` // 归属活动
	ReferrerID          uint           `gorm:"uniqueIndex:idx_referrals_campaign_referrer;not null" json:"referrer_id"`       // 推荐人（客户）
	ReferralCode        string         `gorm:"uniqueIndex;not null" json:"referral_code"`                                     // 推荐码
	TotalClicks         int64          `gorm:"not null;default:0" json:"total_clicks"`                                        // 累计点击数
	TotalConversions    int64          `gorm:"not null;default:0" json:"total_conversions"`                                   // 累计转化数
	TotalRewardsClaimed int64          `gorm:"not null;default:0" json:"total_rewards_claimed"`                               // 累计已领奖转化数
	TotalRewardsAmount  Money          `gorm:"type:decimal(12,2);not null;default:0" json:"total_rewards_amount"`             // 累计已领奖金额
	IsActive            bool           `gorm:"not null;default:true" json:"is_active"`                                        // 是否可用
	LastClickAt         *time.Time     `json:"last_click_at"`                                                                 // 最近点击时间
	LastConversionAt    *time.Time     `json:"last_conversion_at"`                                                            // 最近转化时间
	CreatedAt           time.Time      `gorm:"index" json:"created_at"`                                                       // 创建时间
	UpdatedAt           time.Time      `gorm:"index" json:"updated_at"`                                                       // 更新时间
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`                                                                // 软删除时间
}

// TableName 指定表名
func (Referral) TableName() string {
	return "referrals"
}

// ReferralClick 推荐链接点击明细表
type ReferralClick struct {
	ID         uint      `gorm:"primarykey" json:"id"`              // 主键
	ReferralID uint      `gorm:"not null;index" json:"referral_id"` // 归属推荐链接
	IPAddress  string    `gorm:"default:''" json:"ip_address"`      // 来源 IP
	UserAgent  string    `gorm:"default:''" json:"user_agent"`      // 浏览器标识
	ClickedAt  time.Time `gorm:"not null;index" json:"clicked_at"`  // 点击时间
}

// TableName 指定表名
func (ReferralClick) TableName() string {
	return "referral_clicks"
}

// ReferralConversion 推荐转化明细表（同一推荐链接内被推荐客户唯一）
type ReferralConversion struct {
	ID                  uint       `gorm:"primarykey" json:"id"`                                                              // 主键
	ReferralID          uint       `gorm:"uniqueIndex:idx_conversions_referral_customer;not null;index" json:"referral_id"`   // 归属推荐链接
	ReferredCustomerID  uint       `gorm:"uniqueIndex:idx_conversions_referral_customer;not null" json:"referred_customer_id"` // 被推荐客户
	Status              string     `gorm:"default:'pending';index" json:"status"`                                             // 转化状态（pending/completed/rejected）
	TaskCompletedAt     *time.Time `json:"task_completed_at"`                                                                 // 任务完成时间
	TaskCompletionProof string     `gorm:"type:text;default:''" json:"task_completion_proof"`                                 // 任务完成凭证
	RewardClaimed       bool       `gorm:"not null;default:false;index" json:"reward_claimed"`                                // 奖励是否已领取
	RewardClaimedAt     *time.Time `json:"reward_claimed_at"`                                                                 // 领奖时间
	RewardType          string     `gorm:"default:''" json:"reward_type"`                                                     // 奖励类型（任务完成时由活动冻结）
	RewardAmount        Money      `gorm:"type:decimal(12,2);not null;default:0" json:"reward_amount"`                        // 奖励金额（任务完成时由活动冻结）
	ConvertedAt         time.Time  `gorm:"not null;index" json:"converted_at"`                                                // 转化时间
	CreatedAt           time.Time  `gorm:"index" json:"created_at"`                                                           // 创建时间
	UpdatedAt           time.Time  `gorm:"index" json:"updated_at"`                                                           // 更新时间
}

// TableName 指定表名
func (ReferralConversion) TableName() string {
	return "referral_conversions"
}
