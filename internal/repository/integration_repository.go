package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/refermark/refermark/internal/models"

	"gorm.io/gorm"
)

// IntegrationRepository 外部集成数据访问接口
type IntegrationRepository interface {
	GetByID(id uint) (*models.Integration, error)
	GetByBusinessAndID(businessID, id uint) (*models.Integration, error)
	GetByBusinessAndType(businessID uint, integrationType string) (*models.Integration, error)
	Create(integration *models.Integration) error
	Update(integration *models.Integration) error
	Delete(id uint) error
	List(filter IntegrationListFilter) ([]models.Integration, int64, error)
	UpdateSyncState(id uint, syncStatus, syncError string, syncedCount int64, syncedAt *time.Time) error
}

// GormIntegrationRepository GORM 实现
type GormIntegrationRepository struct {
	db *gorm.DB
}

// NewIntegrationRepository 创建集成仓库
func NewIntegrationRepository(db *gorm.DB) *GormIntegrationRepository {
	return &GormIntegrationRepository{db: db}
}

// GetByID 按 ID 获取集成
func (r *GormIntegrationRepository) GetByID(id uint) (*models.Integration, error) {
	if id == 0 {
		return nil, nil
	}
	var integration models.Integration
	if err := r.db.First(&integration, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &integration, nil
}

// GetByBusinessAndID 获取归属指定商家的集成
func (r *GormIntegrationRepository) GetByBusinessAndID(businessID, id uint) (*models.Integration, error) {
	if businessID == 0 || id == 0 {
		return nil, nil
	}
	var integration models.Integration
	if err := r.db.Where("business_id = ? AND id = ?", businessID, id).First(&integration).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &integration, nil
}

// GetByBusinessAndType 按商家与类型获取集成
func (r *GormIntegrationRepository) GetByBusinessAndType(businessID uint, integrationType string) (*models.Integration, error) {
	normalized := strings.ToLower(strings.TrimSpace(integrationType))
	if businessID == 0 || normalized == "" {
		return nil, nil
	}
	var integration models.Integration
	if err := r.db.Where("business_id = ? AND type = ?", businessID, normalized).First(&integration).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &integration, nil
}

// Create 创建集成
func (r *GormIntegrationRepository) Create(integration *models.Integration) error {
	return r.db.Create(integration).Error
}

// Update 更新集成
func (r *GormIntegrationRepository) Update(integration *models.Integration) error {
	return r.db.Save(integration).Error
}

// Delete 删除集成（软删除）
func (r *GormIntegrationRepository) Delete(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Delete(&models.Integration{}, id).Error
}

// List 集成列表
func (r *GormIntegrationRepository) List(filter IntegrationListFilter) ([]models.Integration, int64, error) {
	query := r.db.Model(&models.Integration{})

	if filter.BusinessID != 0 {
		query = query.Where("business_id = ?", filter.BusinessID)
	}
	if t := strings.TrimSpace(filter.Type); t != "" {
		query = query.Where("type = ?", t)
	}
	if status := strings.TrimSpace(filter.SyncStatus); status != "" {
		query = query.Where("sync_status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var integrations []models.Integration
	if err := query.Order("id DESC").Find(&integrations).Error; err != nil {
		return nil, 0, err
	}
	return integrations, total, nil
}

// UpdateSyncState 更新同步状态
func (r *GormIntegrationRepository) UpdateSyncState(id uint, syncStatus, syncError string, syncedCount int64, syncedAt *time.Time) error {
	if id == 0 {
		return nil
	}
	updates := map[string]interface{}{
		"sync_status": strings.TrimSpace(syncStatus),
		"sync_error":  syncError,
		"updated_at":  time.Now(),
	}
	if syncedCount >= 0 {
		updates["synced_count"] = syncedCount
	}
	if syncedAt != nil {
		updates["last_synced_at"] = *syncedAt
	}
	return r.db.Model(&models.Integration{}).Where("id = ?", id).Updates(updates).Error
}
