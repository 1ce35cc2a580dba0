package service

import (
	"context"
	"strings"
	"time"

	"github.com/refermark/refermark/internal/cache"
	"github.com/refermark/refermark/internal/constants"
	"github.com/refermark/refermark/internal/logger"
	"github.com/refermark/refermark/internal/models"
	"github.com/refermark/refermark/internal/repository"
)

// CampaignService 推荐活动业务服务
type CampaignService struct {
	repo repository.CampaignRepository
}

// NewCampaignService 创建活动服务
func NewCampaignService(repo repository.CampaignRepository) *CampaignService {
	return &CampaignService{repo: repo}
}

// CampaignInput 创建/更新活动输入
type CampaignInput struct {
	Name                string
	TaskType            string
	TaskDescription     string
	RewardType          string
	RewardValue         models.Money
	RewardDetails       string
	StartDate           *time.Time
	EndDate             *time.Time
	NotificationMessage string
	Status              string
}

var campaignTaskTypes = map[string]bool{
	constants.CampaignTaskTypeReview:   true,
	constants.CampaignTaskTypePurchase: true,
	constants.CampaignTaskTypeForm:     true,
	constants.CampaignTaskTypeOther:    true,
}

var campaignRewardTypes = map[string]bool{
	constants.RewardTypeDiscount: true,
	constants.RewardTypeCashback: true,
	constants.RewardTypeGift:     true,
	constants.RewardTypeOther:    true,
}

// 状态机：draft 发布后进入 active，active/paused 可互转，completed 终态
var campaignStatusTransitions = map[string][]string{
	constants.CampaignStatusDraft:  {constants.CampaignStatusActive},
	constants.CampaignStatusActive: {constants.CampaignStatusPaused, constants.CampaignStatusCompleted},
	constants.CampaignStatusPaused: {constants.CampaignStatusActive, constants.CampaignStatusCompleted},
}

// Create 创建活动
func (s *CampaignService) Create(businessID uint, input CampaignInput) (*models.Campaign, error) {
	campaign, err := buildCampaignEntity(businessID, input)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(campaign); err != nil {
		return nil, err
	}
	return campaign, nil
}

// Get 获取商家名下活动
func (s *CampaignService) Get(businessID, id uint) (*models.Campaign, error) {
	campaign, err := s.repo.GetByBusinessAndID(businessID, id)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, ErrNotFound
	}
	return campaign, nil
}

// List 分页查询商家活动
func (s *CampaignService) List(businessID uint, keyword, status, taskType string, page, pageSize int) ([]models.Campaign, int64, error) {
	return s.repo.List(repository.CampaignListFilter{
		Page:       page,
		PageSize:   pageSize,
		BusinessID: businessID,
		Keyword:    strings.TrimSpace(keyword),
		Status:     strings.TrimSpace(status),
		TaskType:   strings.TrimSpace(taskType),
	})
}

// Update 更新活动，奖励与任务字段只影响后续转化，已冻结的转化不受影响
func (s *CampaignService) Update(ctx context.Context, businessID, id uint, input CampaignInput) (*models.Campaign, error) {
	existing, err := s.Get(businessID, id)
	if err != nil {
		return nil, err
	}

	updated, err := buildCampaignEntity(businessID, input)
	if err != nil {
		return nil, err
	}
	existing.Name = updated.Name
	existing.TaskType = updated.TaskType
	existing.TaskDescription = updated.TaskDescription
	existing.RewardType = updated.RewardType
	existing.RewardValue = updated.RewardValue
	existing.RewardDetails = updated.RewardDetails
	existing.StartDate = updated.StartDate
	existing.EndDate = updated.EndDate
	existing.NotificationMessage = updated.NotificationMessage

	if err := s.repo.Update(existing); err != nil {
		return nil, err
	}
	s.invalidateProjection(ctx, existing.ID)
	return existing, nil
}

// UpdateStatus 变更活动状态
func (s *CampaignService) UpdateStatus(ctx context.Context, businessID, id uint, status string) (*models.Campaign, error) {
	target := strings.TrimSpace(status)
	campaign, err := s.Get(businessID, id)
	if err != nil {
		return nil, err
	}
	if target == campaign.Status {
		return campaign, nil
	}
	if !campaignStatusAllowed(campaign.Status, target) {
		return nil, ErrCampaignStatusInvalid
	}
	now := time.Now()
	if err := s.repo.UpdateStatus(campaign.ID, target, now); err != nil {
		return nil, err
	}
	campaign.Status = target
	campaign.UpdatedAt = now
	s.invalidateProjection(ctx, campaign.ID)
	return campaign, nil
}

// Delete 删除活动
func (s *CampaignService) Delete(ctx context.Context, businessID, id uint) error {
	campaign, err := s.Get(businessID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(campaign.ID); err != nil {
		return err
	}
	s.invalidateProjection(ctx, campaign.ID)
	return nil
}

// AutoCompleteExpired 将已过结束时间的进行中活动置为 completed，返回处理数量
func (s *CampaignService) AutoCompleteExpired(ctx context.Context, limit int) (int, error) {
	now := time.Now()
	expired, err := s.repo.ListExpiredActive(now, limit)
	if err != nil {
		return 0, err
	}
	completed := 0
	for i := range expired {
		campaign := expired[i]
		if err := s.repo.UpdateStatus(campaign.ID, constants.CampaignStatusCompleted, now); err != nil {
			logger.Errorw("活动自动完结失败", "campaign_id", campaign.ID, "error", err)
			continue
		}
		s.invalidateProjection(ctx, campaign.ID)
		logger.Infow("活动已过期自动完结", "campaign_id", campaign.ID, "business_id", campaign.BusinessID, "end_date", campaign.EndDate)
		completed++
	}
	return completed, nil
}

func (s *CampaignService) invalidateProjection(ctx context.Context, campaignID uint) {
	if err := cache.DelCampaignProjection(ctx, campaignID); err != nil {
		logger.Warnw("清理活动缓存失败", "campaign_id", campaignID, "error", err)
	}
}

func campaignStatusAllowed(from, to string) bool {
	for _, allowed := range campaignStatusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func buildCampaignEntity(businessID uint, input CampaignInput) (*models.Campaign, error) {
	name := strings.TrimSpace(input.Name)
	taskType := strings.TrimSpace(input.TaskType)
	rewardType := strings.TrimSpace(input.RewardType)
	if name == "" || !campaignTaskTypes[taskType] || !campaignRewardTypes[rewardType] {
		return nil, ErrCampaignInvalid
	}
	if input.StartDate == nil || input.EndDate == nil || input.EndDate.Before(*input.StartDate) {
		return nil, ErrCampaignInvalid
	}
	if input.RewardValue.IsNegative() {
		return nil, ErrCampaignInvalid
	}

	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = constants.CampaignStatusDraft
	}
	if status != constants.CampaignStatusDraft && status != constants.CampaignStatusActive {
		return nil, ErrCampaignInvalid
	}

	return &models.Campaign{
		BusinessID:          businessID,
		Name:                name,
		TaskType:            taskType,
		TaskDescription:     strings.TrimSpace(input.TaskDescription),
		RewardType:          rewardType,
		RewardValue:         input.RewardValue,
		RewardDetails:       strings.TrimSpace(input.RewardDetails),
		StartDate:           *input.StartDate,
		EndDate:             *input.EndDate,
		NotificationMessage: strings.TrimSpace(input.NotificationMessage),
		Status:              status,
	}, nil
}
