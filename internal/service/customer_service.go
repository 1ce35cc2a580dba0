package service

import (
	"strings"
	"time"

	"github.com/refermark/refermark/internal/constants"
	"github.com/refermark/refermark/internal/models"
	"github.com/refermark/refermark/internal/repository"
)

// CustomerService 客户业务服务
type CustomerService struct {
	repo         repository.CustomerRepository
	campaignRepo repository.CampaignRepository
	referralRepo repository.ReferralRepository
}

// NewCustomerService 创建客户服务
func NewCustomerService(
	repo repository.CustomerRepository,
	campaignRepo repository.CampaignRepository,
	referralRepo repository.ReferralRepository,
) *CustomerService {
	return &CustomerService{repo: repo, campaignRepo: campaignRepo, referralRepo: referralRepo}
}

// CustomerInput 创建/更新客户输入
type CustomerInput struct {
	Name     string
	Email    string
	Phone    string
	Source   string
	Status   string
	Metadata string
}

// CustomerCampaignItem 客户可参与的活动项
type CustomerCampaignItem struct {
	Campaign     models.Campaign `json:"campaign"`
	ReferralCode string          `json:"referral_code"`
}

// Create 手工录入客户，同商家邮箱唯一
func (s *CustomerService) Create(businessID uint, input CustomerInput) (*models.Customer, error) {
	name := strings.TrimSpace(input.Name)
	email := normalizeEmail(input.Email)
	if name == "" || email == "" {
		return nil, ErrCustomerInvalid
	}

	existing, err := s.repo.GetByBusinessAndEmail(businessID, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrCustomerExists
	}

	source := strings.TrimSpace(input.Source)
	if source == "" {
		source = constants.CustomerSourceManual
	}
	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = constants.CustomerStatusActive
	}

	customer := &models.Customer{
		BusinessID: businessID,
		Name:       name,
		Email:      email,
		Phone:      strings.TrimSpace(input.Phone),
		Source:     source,
		Status:     status,
		Metadata:   strings.TrimSpace(input.Metadata),
	}
	if err := s.repo.Create(customer); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrCustomerExists
		}
		return nil, err
	}
	return customer, nil
}

// GetByID 获取商家名下客户
func (s *CustomerService) GetByID(businessID, id uint) (*models.Customer, error) {
	customer, err := s.repo.GetByBusinessAndID(businessID, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrNotFound
	}
	return customer, nil
}

// Update 更新客户资料
func (s *CustomerService) Update(businessID, id uint, input CustomerInput) (*models.Customer, error) {
	customer, err := s.GetByID(businessID, id)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(input.Name); name != "" {
		customer.Name = name
	}
	if email := normalizeEmail(input.Email); email != "" && email != customer.Email {
		existing, err := s.repo.GetByBusinessAndEmail(businessID, email)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != customer.ID {
			return nil, ErrCustomerExists
		}
		customer.Email = email
	}
	customer.Phone = strings.TrimSpace(input.Phone)
	if status := strings.TrimSpace(input.Status); status != "" {
		customer.Status = status
	}
	if metadata := strings.TrimSpace(input.Metadata); metadata != "" {
		customer.Metadata = metadata
	}

	if err := s.repo.Update(customer); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrCustomerExists
		}
		return nil, err
	}
	return customer, nil
}

// Delete 删除客户
func (s *CustomerService) Delete(businessID, id uint) error {
	customer, err := s.repo.GetByBusinessAndID(businessID, id)
	if err != nil {
		return err
	}
	if customer == nil {
		return ErrNotFound
	}
	return s.repo.Delete(customer.ID)
}

// List 分页查询商家客户
func (s *CustomerService) List(businessID uint, keyword, source, status string, page, pageSize int) ([]models.Customer, int64, error) {
	return s.repo.List(repository.CustomerListFilter{
		Page:       page,
		PageSize:   pageSize,
		BusinessID: businessID,
		Keyword:    strings.TrimSpace(keyword),
		Source:     strings.TrimSpace(source),
		Status:     strings.TrimSpace(status),
	})
}

// ActiveCampaigns 按邮箱查客户可参与的进行中活动，附带已有的推荐码
func (s *CustomerService) ActiveCampaigns(businessID uint, email string) ([]CustomerCampaignItem, error) {
	normalized := normalizeEmail(email)
	if normalized == "" {
		return nil, ErrCustomerInvalid
	}
	customer, err := s.repo.GetByBusinessAndEmail(businessID, normalized)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrNotFound
	}

	campaigns, _, err := s.campaignRepo.List(repository.CampaignListFilter{
		BusinessID: businessID,
		Status:     constants.CampaignStatusActive,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	items := make([]CustomerCampaignItem, 0, len(campaigns))
	for i := range campaigns {
		campaign := campaigns[i]
		if !campaign.IsActiveAt(now) {
			continue
		}
		item := CustomerCampaignItem{Campaign: campaign}
		referral, err := s.referralRepo.GetByCampaignAndReferrer(campaign.ID, customer.ID)
		if err != nil {
			return nil, err
		}
		if referral != nil {
			item.ReferralCode = referral.ReferralCode
		}
		items = append(items, item)
	}
	return items, nil
}
