package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/refermark/refermark/internal/constants"
	"github.com/refermark/refermark/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CampaignRepository 推荐活动数据访问接口
type CampaignRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) CampaignRepository

	GetByID(id uint) (*models.Campaign, error)
	GetByIDForUpdate(id uint) (*models.Campaign, error)
	GetByBusinessAndID(businessID, id uint) (*models.Campaign, error)
	Create(campaign *models.Campaign) error
	Update(campaign *models.Campaign) error
	Delete(id uint) error
	List(filter CampaignListFilter) ([]models.Campaign, int64, error)
	UpdateStatus(id uint, status string, updatedAt time.Time) error
	IncrementTotalReferrals(id uint, delta int64) error
	IncrementTotalRewardsGiven(id uint, delta int64) error
	ListExpiredActive(now time.Time, limit int) ([]models.Campaign, error)
	SetTotals(id uint, totalReferrals, totalRewardsGiven int64, updatedAt time.Time) error
}

// GormCampaignRepository GORM 实现
type GormCampaignRepository struct {
	db *gorm.DB
}

// NewCampaignRepository 创建活动仓库
func NewCampaignRepository(db *gorm.DB) *GormCampaignRepository {
	return &GormCampaignRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCampaignRepository) WithTx(tx *gorm.DB) CampaignRepository {
	if tx == nil {
		return r
	}
	return &GormCampaignRepository{db: tx}
}

// Transaction 执行事务
func (r *GormCampaignRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByID 根据 ID 获取活动
func (r *GormCampaignRepository) GetByID(id uint) (*models.Campaign, error) {
	if id == 0 {
		return nil, nil
	}
	var campaign models.Campaign
	if err := r.db.First(&campaign, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &campaign, nil
}

// GetByIDForUpdate 根据 ID 锁定查询活动
func (r *GormCampaignRepository) GetByIDForUpdate(id uint) (*models.Campaign, error) {
	if id == 0 {
		return nil, nil
	}
	var campaign models.Campaign
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&campaign, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &campaign, nil
}

// GetByBusinessAndID 获取归属指定商家的活动
func (r *GormCampaignRepository) GetByBusinessAndID(businessID, id uint) (*models.Campaign, error) {
	if businessID == 0 || id == 0 {
		return nil, nil
	}
	var campaign models.Campaign
	if err := r.db.Where("business_id = ? AND id = ?", businessID, id).First(&campaign).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &campaign, nil
}

// Create 创建活动
func (r *GormCampaignRepository) Create(campaign *models.Campaign) error {
	return r.db.Create(campaign).Error
}

// Update 更新活动
func (r *GormCampaignRepository) Update(campaign *models.Campaign) error {
	return r.db.Save(campaign).Error
}

// Delete 删除活动（软删除）
func (r *GormCampaignRepository) Delete(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Delete(&models.Campaign{}, id).Error
}

// List 活动列表
func (r *GormCampaignRepository) List(filter CampaignListFilter) ([]models.Campaign, int64, error) {
	query := r.db.Model(&models.Campaign{})

	if filter.BusinessID != 0 {
		query = query.Where("business_id = ?", filter.BusinessID)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		like := "%" + keyword + "%"
		query = query.Where("name LIKE ? OR task_description LIKE ?", like, like)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if taskType := strings.TrimSpace(filter.TaskType); taskType != "" {
		query = query.Where("task_type = ?", taskType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var campaigns []models.Campaign
	if err := query.Order("id DESC").Find(&campaigns).Error; err != nil {
		return nil, 0, err
	}
	return campaigns, total, nil
}

// UpdateStatus 更新活动状态
func (r *GormCampaignRepository) UpdateStatus(id uint, status string, updatedAt time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Campaign{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     strings.TrimSpace(status),
			"updated_at": updatedAt,
		}).Error
}

// IncrementTotalReferrals 累加活动转化人数
func (r *GormCampaignRepository) IncrementTotalReferrals(id uint, delta int64) error {
	if id == 0 || delta == 0 {
		return nil
	}
	return r.db.Model(&models.Campaign{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_referrals": gorm.Expr("total_referrals + ?", delta),
			"updated_at":      time.Now(),
		}).Error
}

// IncrementTotalRewardsGiven 累加活动奖励发放次数
func (r *GormCampaignRepository) IncrementTotalRewardsGiven(id uint, delta int64) error {
	if id == 0 || delta == 0 {
		return nil
	}
	return r.db.Model(&models.Campaign{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_rewards_given": gorm.Expr("total_rewards_given + ?", delta),
			"updated_at":          time.Now(),
		}).Error
}

// ListExpiredActive 查询已过结束时间但仍为 active 的活动
func (r *GormCampaignRepository) ListExpiredActive(now time.Time, limit int) ([]models.Campaign, error) {
	if limit <= 0 {
		limit = 100
	}
	var campaigns []models.Campaign
	if err := r.db.Where("status = ? AND end_date < ?", constants.CampaignStatusActive, now).
		Order("end_date ASC").
		Limit(limit).
		Find(&campaigns).Error; err != nil {
		return nil, err
	}
	return campaigns, nil
}

// SetTotals 直接写入活动累计值（计数对账用）
func (r *GormCampaignRepository) SetTotals(id uint, totalReferrals, totalRewardsGiven int64, updatedAt time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Campaign{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_referrals":     totalReferrals,
			"total_rewards_given": totalRewardsGiven,
			"updated_at":          updatedAt,
		}).Error
}
