package repository

import (
	"errors"
	"strings"

	"github.com/refermark/refermark/internal/models"

	"gorm.io/gorm"
)

// BusinessProfileRepository 商家资料数据访问接口
type BusinessProfileRepository interface {
	GetByID(id uint) (*models.BusinessProfile, error)
	GetByUserID(userID uint) (*models.BusinessProfile, error)
	Create(profile *models.BusinessProfile) error
	Update(profile *models.BusinessProfile) error
	List(filter BusinessProfileListFilter) ([]models.BusinessProfile, int64, error)
}

// GormBusinessProfileRepository GORM 实现
type GormBusinessProfileRepository struct {
	db *gorm.DB
}

// NewBusinessProfileRepository 创建商家资料仓库
func NewBusinessProfileRepository(db *gorm.DB) *GormBusinessProfileRepository {
	return &GormBusinessProfileRepository{db: db}
}

// GetByID 根据 ID 获取商家资料
func (r *GormBusinessProfileRepository) GetByID(id uint) (*models.BusinessProfile, error) {
	if id == 0 {
		return nil, nil
	}
	var profile models.BusinessProfile
	if err := r.db.First(&profile, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// GetByUserID 根据账号 ID 获取商家资料
func (r *GormBusinessProfileRepository) GetByUserID(userID uint) (*models.BusinessProfile, error) {
	if userID == 0 {
		return nil, nil
	}
	var profile models.BusinessProfile
	if err := r.db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// Create 创建商家资料
func (r *GormBusinessProfileRepository) Create(profile *models.BusinessProfile) error {
	return r.db.Create(profile).Error
}

// Update 更新商家资料
func (r *GormBusinessProfileRepository) Update(profile *models.BusinessProfile) error {
	return r.db.Save(profile).Error
}

// List 商家资料列表
func (r *GormBusinessProfileRepository) List(filter BusinessProfileListFilter) ([]models.BusinessProfile, int64, error) {
	query := r.db.Model(&models.BusinessProfile{})

	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		like := "%" + keyword + "%"
		query = query.Where("business_name LIKE ? OR website LIKE ?", like, like)
	}
	if industry := strings.TrimSpace(filter.Industry); industry != "" {
		query = query.Where("industry = ?", industry)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var profiles []models.BusinessProfile
	if err := query.Order("id DESC").Find(&profiles).Error; err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}
