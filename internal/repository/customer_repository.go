package repository

import (
	"errors"
	"strings"

	"github.com/refermark/refermark/internal/models"

	"gorm.io/gorm"
)

// CustomerRepository 客户数据访问接口
type CustomerRepository interface {
	WithTx(tx *gorm.DB) CustomerRepository

	GetByID(id uint) (*models.Customer, error)
	GetByBusinessAndID(businessID, id uint) (*models.Customer, error)
	GetByBusinessAndEmail(businessID uint, email string) (*models.Customer, error)
	GetByBusinessAndCRMID(businessID uint, crmID string) (*models.Customer, error)
	Create(customer *models.Customer) error
	Update(customer *models.Customer) error
	Delete(id uint) error
	List(filter CustomerListFilter) ([]models.Customer, int64, error)
	CountByBusiness(businessID uint) (int64, error)
}

// GormCustomerRepository GORM 实现
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository 创建客户仓库
func NewCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCustomerRepository) WithTx(tx *gorm.DB) CustomerRepository {
	if tx == nil {
		return r
	}
	return &GormCustomerRepository{db: tx}
}

// GetByID 根据 ID 获取客户
func (r *GormCustomerRepository) GetByID(id uint) (*models.Customer, error) {
	if id == 0 {
		return nil, nil
	}
	var customer models.Customer
	if err := r.db.First(&customer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// GetByBusinessAndID 获取归属指定商家的客户
func (r *GormCustomerRepository) GetByBusinessAndID(businessID, id uint) (*models.Customer, error) {
	if businessID == 0 || id == 0 {
		return nil, nil
	}
	var customer models.Customer
	if err := r.db.Where("business_id = ? AND id = ?", businessID, id).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// GetByBusinessAndEmail 按商家与邮箱获取客户
func (r *GormCustomerRepository) GetByBusinessAndEmail(businessID uint, email string) (*models.Customer, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if businessID == 0 || normalized == "" {
		return nil, nil
	}
	var customer models.Customer
	if err := r.db.Where("business_id = ? AND email = ?", businessID, normalized).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// GetByBusinessAndCRMID 按商家与外部 CRM 标识获取客户
func (r *GormCustomerRepository) GetByBusinessAndCRMID(businessID uint, crmID string) (*models.Customer, error) {
	normalized := strings.TrimSpace(crmID)
	if businessID == 0 || normalized == "" {
		return nil, nil
	}
	var customer models.Customer
	if err := r.db.Where("business_id = ? AND crm_id = ?", businessID, normalized).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// Create 创建客户
func (r *GormCustomerRepository) Create(customer *models.Customer) error {
	return r.db.Create(customer).Error
}

// Update 更新客户
func (r *GormCustomerRepository) Update(customer *models.Customer) error {
	return r.db.Save(customer).Error
}

// Delete 删除客户（软删除）
func (r *GormCustomerRepository) Delete(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Delete(&models.Customer{}, id).Error
}

// List 客户列表
func (r *GormCustomerRepository) List(filter CustomerListFilter) ([]models.Customer, int64, error) {
	query := r.db.Model(&models.Customer{})

	if filter.BusinessID != 0 {
		query = query.Where("business_id = ?", filter.BusinessID)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		like := "%" + keyword + "%"
		query = query.Where("email LIKE ? OR name LIKE ? OR phone LIKE ?", like, like, like)
	}
	if source := strings.TrimSpace(filter.Source); source != "" {
		query = query.Where("source = ?", source)
	}
	if len(filter.Sources) > 0 {
		query = query.Where("source IN ?", filter.Sources)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
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

	var customers []models.Customer
	if err := query.Order("id DESC").Find(&customers).Error; err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

// CountByBusiness 统计商家客户数
func (r *GormCustomerRepository) CountByBusiness(businessID uint) (int64, error) {
	if businessID == 0 {
		return 0, nil
	}
	var total int64
	if err := r.db.Model(&models.Customer{}).Where("business_id = ?", businessID).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
