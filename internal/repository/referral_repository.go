package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/refermark/refermark/internal/constants"
	"github.com/refermark/refermark/internal/models"
	"github.com/shopspring/decimal"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReferralStatsAggregate 单条推荐链接的统计汇总
type ReferralStatsAggregate struct {
	TotalClicks          int64
	TotalConversions     int64
	CompletedConversions int64
	ClaimedConversions   int64
	ClaimedAmount        decimal.Decimal
}

// CampaignStatsAggregate 活动维度统计汇总
type CampaignStatsAggregate struct {
	TotalReferralLinks   int64
	TotalClicks          int64
	TotalConversions     int64
	CompletedConversions int64
	ClaimedConversions   int64
}

// ReferralRepository 推荐链接数据访问接口
type ReferralRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) ReferralRepository

	GetByID(id uint) (*models.Referral, error)
	GetByCode(code string) (*models.Referral, error)
	GetByCampaignAndReferrer(campaignID, referrerID uint) (*models.Referral, error)
	Create(referral *models.Referral) error
	Update(referral *models.Referral) error
	List(filter ReferralListFilter) ([]models.Referral, int64, error)
	ListCodesByCampaign(campaignID uint) ([]string, error)

	CreateClick(click *models.ReferralClick) error
	HasRecentClick(referralID uint, ipAddress string, since time.Time) (bool, error)
	CountClicks(referralID uint) (int64, error)

	GetConversion(referralID, referredCustomerID uint) (*models.ReferralConversion, error)
	GetConversionByID(id uint) (*models.ReferralConversion, error)
	GetConversionByIDForUpdate(id uint) (*models.ReferralConversion, error)
	CreateConversion(conversion *models.ReferralConversion) error
	UpdateConversion(conversion *models.ReferralConversion) error
	ListConversions(filter ConversionListFilter) ([]models.ReferralConversion, int64, error)
	ListClaimableByReferrer(campaignID, referrerID uint) ([]models.ReferralConversion, error)
	ListClaimableByReferrerForUpdate(campaignID, referrerID uint) ([]models.ReferralConversion, error)
	MarkConversionClaimed(id uint, claimedAt time.Time) (int64, error)

	RecomputeTotals(referralID uint, now time.Time) (*ReferralStatsAggregate, error)
	GetCampaignStats(campaignID uint) (*CampaignStatsAggregate, error)
}

// GormReferralRepository GORM 推荐链接仓储
type GormReferralRepository struct {
	db *gorm.DB
}

// NewReferralRepository 创建推荐链接仓储
func NewReferralRepository(db *gorm.DB) *GormReferralRepository {
	return &GormReferralRepository{db: db}
}

// WithTx 绑定事务
func (r *GormReferralRepository) WithTx(tx *gorm.DB) ReferralRepository {
	if tx == nil {
		return r
	}
	return &GormReferralRepository{db: tx}
}

// Transaction 执行事务
func (r *GormReferralRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByID 按 ID 获取推荐链接
func (r *GormReferralRepository) GetByID(id uint) (*models.Referral, error) {
	if id == 0 {
		return nil, nil
	}
	var referral models.Referral
	if err := r.db.First(&referral, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referral, nil
}

// GetByCode 按推荐码获取推荐链接
func (r *GormReferralRepository) GetByCode(code string) (*models.Referral, error) {
	normalized := strings.ToLower(strings.TrimSpace(code))
	if normalized == "" {
		return nil, nil
	}
	var referral models.Referral
	if err := r.db.Where("referral_code = ?", normalized).First(&referral).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referral, nil
}

// GetByCampaignAndReferrer 按活动与推荐人获取推荐链接
func (r *GormReferralRepository) GetByCampaignAndReferrer(campaignID, referrerID uint) (*models.Referral, error) {
	if campaignID == 0 || referrerID == 0 {
		return nil, nil
	}
	var referral models.Referral
	if err := r.db.Where("campaign_id = ? AND referrer_id = ?", campaignID, referrerID).First(&referral).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referral, nil
}

// Create 创建推荐链接
func (r *GormReferralRepository) Create(referral *models.Referral) error {
	return r.db.Create(referral).Error
}

// Update 更新推荐链接
func (r *GormReferralRepository) Update(referral *models.Referral) error {
	return r.db.Save(referral).Error
}

// List 推荐链接列表
func (r *GormReferralRepository) List(filter ReferralListFilter) ([]models.Referral, int64, error) {
	query := r.db.Model(&models.Referral{})

	if filter.CampaignID != 0 {
		query = query.Where("campaign_id = ?", filter.CampaignID)
	}
	if filter.ReferrerID != 0 {
		query = query.Where("referrer_id = ?", filter.ReferrerID)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var referrals []models.Referral
	if err := query.Order("id DESC").Find(&referrals).Error; err != nil {
		return nil, 0, err
	}
	return referrals, total, nil
}

// ListCodesByCampaign 列出活动下所有推荐码
func (r *GormReferralRepository) ListCodesByCampaign(campaignID uint) ([]string, error) {
	if campaignID == 0 {
		return []string{}, nil
	}
	codes := make([]string, 0)
	if err := r.db.Model(&models.Referral{}).
		Where("campaign_id = ?", campaignID).
		Pluck("referral_code", &codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

// CreateClick 创建点击记录
func (r *GormReferralRepository) CreateClick(click *models.ReferralClick) error {
	return r.db.Create(click).Error
}

// HasRecentClick 查询同一来源近期是否已有点击记录
func (r *GormReferralRepository) HasRecentClick(referralID uint, ipAddress string, since time.Time) (bool, error) {
	if referralID == 0 || strings.TrimSpace(ipAddress) == "" {
		return false, nil
	}
	var total int64
	if err := r.db.Model(&models.ReferralClick{}).
		Where("referral_id = ? AND ip_address = ? AND clicked_at >= ?",
			referralID,
			strings.TrimSpace(ipAddress),
			since,
		).
		Count(&total).Error; err != nil {
		return false, err
	}
	return total > 0, nil
}

// CountClicks 统计推荐链接点击数
func (r *GormReferralRepository) CountClicks(referralID uint) (int64, error) {
	if referralID == 0 {
		return 0, nil
	}
	var total int64
	if err := r.db.Model(&models.ReferralClick{}).Where("referral_id = ?", referralID).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// GetConversion 按推荐链接与被推荐客户获取转化
func (r *GormReferralRepository) GetConversion(referralID, referredCustomerID uint) (*models.ReferralConversion, error) {
	if referralID == 0 || referredCustomerID == 0 {
		return nil, nil
	}
	var conversion models.ReferralConversion
	if err := r.db.Where("referral_id = ? AND referred_customer_id = ?", referralID, referredCustomerID).
		First(&conversion).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conversion, nil
}

// GetConversionByID 按 ID 获取转化
func (r *GormReferralRepository) GetConversionByID(id uint) (*models.ReferralConversion, error) {
	if id == 0 {
		return nil, nil
	}
	var conversion models.ReferralConversion
	if err := r.db.First(&conversion, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conversion, nil
}

// GetConversionByIDForUpdate 按 ID 锁定查询转化
func (r *GormReferralRepository) GetConversionByIDForUpdate(id uint) (*models.ReferralConversion, error) {
	if id == 0 {
		return nil, nil
	}
	var conversion models.ReferralConversion
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&conversion, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conversion, nil
}

// CreateConversion 创建转化记录
func (r *GormReferralRepository) CreateConversion(conversion *models.ReferralConversion) error {
	return r.db.Create(conversion).Error
}

// UpdateConversion 更新转化记录
func (r *GormReferralRepository) UpdateConversion(conversion *models.ReferralConversion) error {
	return r.db.Save(conversion).Error
}

// ListConversions 转化明细列表
func (r *GormReferralRepository) ListConversions(filter ConversionListFilter) ([]models.ReferralConversion, int64, error) {
	query := r.db.Model(&models.ReferralConversion{})

	if filter.ReferralID != 0 {
		query = query.Where("referral_id = ?", filter.ReferralID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if filter.UnclaimedOnly {
		query = query.Where("reward_claimed = ?", false)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var conversions []models.ReferralConversion
	if err := query.Order("id ASC").Find(&conversions).Error; err != nil {
		return nil, 0, err
	}
	return conversions, total, nil
}

// ListClaimableByReferrer 查询推荐人在活动内已完成且未领奖的转化
func (r *GormReferralRepository) ListClaimableByReferrer(campaignID, referrerID uint) ([]models.ReferralConversion, error) {
	return r.listClaimable(campaignID, referrerID, false)
}

// ListClaimableByReferrerForUpdate 锁定查询推荐人在活动内已完成且未领奖的转化
func (r *GormReferralRepository) ListClaimableByReferrerForUpdate(campaignID, referrerID uint) ([]models.ReferralConversion, error) {
	return r.listClaimable(campaignID, referrerID, true)
}

func (r *GormReferralRepository) listClaimable(campaignID, referrerID uint, forUpdate bool) ([]models.ReferralConversion, error) {
	if campaignID == 0 || referrerID == 0 {
		return []models.ReferralConversion{}, nil
	}
	query := r.db.Model(&models.ReferralConversion{}).
		Joins("JOIN referrals ON referrals.id = referral_conversions.referral_id").
		Where("referrals.campaign_id = ? AND referrals.referrer_id = ?", campaignID, referrerID).
		Where("referral_conversions.status = ? AND referral_conversions.reward_claimed = ?", constants.ConversionStatusCompleted, false)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "referral_conversions"}})
	}
	var conversions []models.ReferralConversion
	if err := query.Order("referral_conversions.id ASC").Find(&conversions).Error; err != nil {
		return nil, err
	}
	return conversions, nil
}

// MarkConversionClaimed 条件更新领奖标记，返回受影响行数
// WHERE 条件保证已完成且未领取的转化才会被更新，并发重复领取时第二次更新 0 行
func (r *GormReferralRepository) MarkConversionClaimed(id uint, claimedAt time.Time) (int64, error) {
	if id == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.ReferralConversion{}).
		Where("id = ? AND status = ? AND reward_claimed = ?", id, constants.ConversionStatusCompleted, false).
		Updates(map[string]interface{}{
			"reward_claimed":    true,
			"reward_claimed_at": claimedAt,
			"updated_at":        claimedAt,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// RecomputeTotals 从明细重算推荐链接累计值并回写
func (r *GormReferralRepository) RecomputeTotals(referralID uint, now time.Time) (*ReferralStatsAggregate, error) {
	if referralID == 0 {
		return nil, nil
	}

	agg := &ReferralStatsAggregate{ClaimedAmount: decimal.Zero}

	if err := r.db.Model(&models.ReferralClick{}).
		Where("referral_id = ?", referralID).
		Count(&agg.TotalClicks).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&models.ReferralConversion{}).
		Where("referral_id = ?", referralID).
		Count(&agg.TotalConversions).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&models.ReferralConversion{}).
		Where("referral_id = ? AND status = ?", referralID, constants.ConversionStatusCompleted).
		Count(&agg.CompletedConversions).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&models.ReferralConversion{}).
		Where("referral_id = ? AND reward_claimed = ?", referralID, true).
		Count(&agg.ClaimedConversions).Error; err != nil {
		return nil, err
	}

	var amountRow struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.Model(&models.ReferralConversion{}).
		Select("COALESCE(SUM(reward_amount), 0) AS total").
		Where("referral_id = ? AND reward_claimed = ?", referralID, true).
		Scan(&amountRow).Error; err != nil {
		return nil, err
	}
	agg.ClaimedAmount = amountRow.Total.Round(2)

	var lastClickRow struct {
		Last *time.Time `gorm:"column:last"`
	}
	if err := r.db.Model(&models.ReferralClick{}).
		Select("MAX(clicked_at) AS last").
		Where("referral_id = ?", referralID).
		Scan(&lastClickRow).Error; err != nil {
		return nil, err
	}
	var lastConversionRow struct {
		Last *time.Time `gorm:"column:last"`
	}
	if err := r.db.Model(&models.ReferralConversion{}).
		Select("MAX(converted_at) AS last").
		Where("referral_id = ?", referralID).
		Scan(&lastConversionRow).Error; err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"total_clicks":          agg.TotalClicks,
		"total_conversions":     agg.TotalConversions,
		"total_rewards_claimed": agg.ClaimedConversions,
		"total_rewards_amount":  models.NewMoneyFromDecimal(agg.ClaimedAmount),
		"last_click_at":         lastClickRow.Last,
		"last_conversion_at":    lastConversionRow.Last,
		"updated_at":            now,
	}
	if err := r.db.Model(&models.Referral{}).Where("id = ?", referralID).Updates(updates).Error; err != nil {
		return nil, err
	}
	return agg, nil
}

// GetCampaignStats 活动维度统计
func (r *GormReferralRepository) GetCampaignStats(campaignID uint) (*CampaignStatsAggregate, error) {
	if campaignID == 0 {
		return &CampaignStatsAggregate{}, nil
	}

	stats := &CampaignStatsAggregate{}
	if err := r.db.Model(&models.Referral{}).
		Where("campaign_id = ?", campaignID).
		Count(&stats.TotalReferralLinks).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&models.ReferralClick{}).
		Joins("JOIN referrals ON referrals.id = referral_clicks.referral_id").
		Where("referrals.campaign_id = ?", campaignID).
		Count(&stats.TotalClicks).Error; err != nil {
		return nil, err
	}

	base := func() *gorm.DB {
		return r.db.Model(&models.ReferralConversion{}).
			Joins("JOIN referrals ON referrals.id = referral_conversions.referral_id").
			Where("referrals.campaign_id = ?", campaignID)
	}
	if err := base().Count(&stats.TotalConversions).Error; err != nil {
		return nil, err
	}
	if err := base().Where("referral_conversions.status = ?", constants.ConversionStatusCompleted).
		Count(&stats.CompletedConversions).Error; err != nil {
		return nil, err
	}
	if err := base().Where("referral_conversions.reward_claimed = ?", true).
		Count(&stats.ClaimedConversions).Error; err != nil {
		return nil, err
	}
	return stats, nil
}
