package service

import (
	"strings"

	"github.com/refermark/refermark/internal/models"
	"github.com/refermark/refermark/internal/repository"
)

// BusinessService 商家资料业务服务
type BusinessService struct {
	profileRepo  repository.BusinessProfileRepository
	customerRepo repository.CustomerRepository
}

// NewBusinessService 创建商家资料服务
func NewBusinessService(profileRepo repository.BusinessProfileRepository, customerRepo repository.CustomerRepository) *BusinessService {
	return &BusinessService{profileRepo: profileRepo, customerRepo: customerRepo}
}

// BusinessProfileInput 创建/更新商家资料输入
type BusinessProfileInput struct {
	BusinessName string
	Industry     string
	Website      string
}

// GetProfile 获取当前账号的商家资料
func (s *BusinessService) GetProfile(userID uint) (*models.BusinessProfile, error) {
	profile, err := s.profileRepo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrBusinessProfileMissing
	}
	return profile, nil
}

// RequireProfile 获取商家资料，缺失时返回 ErrBusinessProfileMissing
func (s *BusinessService) RequireProfile(userID uint) (*models.BusinessProfile, error) {
	return s.GetProfile(userID)
}

// UpsertProfile 创建或更新商家资料
func (s *BusinessService) UpsertProfile(userID uint, input BusinessProfileInput) (*models.BusinessProfile, error) {
	name := strings.TrimSpace(input.BusinessName)
	if name == "" {
		return nil, ErrBusinessProfileInvalid
	}

	profile, err := s.profileRepo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		profile = &models.BusinessProfile{
			UserID:       userID,
			BusinessName: name,
			Industry:     strings.TrimSpace(input.Industry),
			Website:      strings.TrimSpace(input.Website),
		}
		if err := s.profileRepo.Create(profile); err != nil {
			if isUniqueViolation(err) {
				return s.GetProfile(userID)
			}
			return nil, err
		}
		return profile, nil
	}

	profile.BusinessName = name
	profile.Industry = strings.TrimSpace(input.Industry)
	profile.Website = strings.TrimSpace(input.Website)
	if err := s.profileRepo.Update(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// CustomerCount 获取商家客户总数
func (s *BusinessService) CustomerCount(userID uint) (int64, error) {
	return s.customerRepo.CountByBusiness(userID)
}

// ListBusinesses 后台分页查询商家资料
func (s *BusinessService) ListBusinesses(keyword string, page, pageSize int) ([]models.BusinessProfile, int64, error) {
	return s.profileRepo.List(repository.BusinessProfileListFilter{
		Page:     page,
		PageSize: pageSize,
		Keyword:  strings.TrimSpace(keyword),
	})
}
