package service

import (
	"time"

	"github.com/refermark/refermark/internal/constants"
	"github.com/refermark/refermark/internal/models"
	"github.com/refermark/refermark/internal/repository"
	"gorm.io/gorm"
)

const defaultMinClaimableConversions = 3

// RewardService 奖励资格判定与领取服务
type RewardService struct {
	repo         repository.ReferralRepository
	campaignRepo repository.CampaignRepository
	customerRepo repository.CustomerRepository
	minClaimable int
}

// NewRewardService 创建奖励服务
func NewRewardService(
	repo repository.ReferralRepository,
	campaignRepo repository.CampaignRepository,
	customerRepo repository.CustomerRepository,
	minClaimableConversions int,
) *RewardService {
	minClaimable := minClaimableConversions
	if minClaimable <= 0 {
		minClaimable = defaultMinClaimableConversions
	}
	return &RewardService{
		repo:         repo,
		campaignRepo: campaignRepo,
		customerRepo: customerRepo,
		minClaimable: minClaimable,
	}
}

// ClaimReceipt 领奖回执
type ClaimReceipt struct {
	Amount    models.Money `json:"amount"`
	Type      string       `json:"type"`
	ClaimedAt time.Time    `json:"claimed_at"`
}

// EligibilityStatus 领奖资格状态
type EligibilityStatus struct {
	Eligible           bool  `json:"eligible"`
	CompletedUnclaimed int64 `json:"completed_unclaimed"`
	Required           int   `json:"required"`
}

// MinClaimableConversions 领奖门槛
func (s *RewardService) MinClaimableConversions() int {
	return s.minClaimable
}

// CountEligibleConversions 统计推荐人在活动内已完成且未领奖的转化数
// 每次领奖时实时重算，不依赖缓存计数
func (s *RewardService) CountEligibleConversions(campaignID, referrerID uint) (int64, error) {
	if s.repo == nil {
		return 0, nil
	}
	conversions, err := s.repo.ListClaimableByReferrer(campaignID, referrerID)
	if err != nil {
		return 0, err
	}
	return int64(len(conversions)), nil
}

// Eligibility 查询推荐人在活动内的领奖资格
func (s *RewardService) Eligibility(campaignID, referrerID uint) (*EligibilityStatus, error) {
	count, err := s.CountEligibleConversions(campaignID, referrerID)
	if err != nil {
		return nil, err
	}
	return &EligibilityStatus{
		Eligible:           count >= int64(s.minClaimable),
		CompletedUnclaimed: count,
		Required:           s.minClaimable,
	}, nil
}

// Claim 领取单条转化的奖励
// 失败顺序：推荐链接不存在 -> 无权操作 -> 转化不存在 -> 状态不满足 -> 已领取 -> 资格不足
func (s *RewardService) Claim(businessID uint, code string, conversionID uint) (*ClaimReceipt, error) {
	if s.repo == nil || s.campaignRepo == nil || s.customerRepo == nil {
		return nil, ErrNotFound
	}
	referral, err := s.repo.GetByCode(normalizeReferralCode(code))
	if err != nil {
		return nil, err
	}
	if referral == nil {
		return nil, ErrNotFound
	}

	referrer, err := s.customerRepo.GetByBusinessAndID(businessID, referral.ReferrerID)
	if err != nil {
		return nil, err
	}
	if referrer == nil {
		return nil, ErrNotAuthorized
	}

	conversion, err := s.repo.GetConversionByID(conversionID)
	if err != nil {
		return nil, err
	}
	if conversion == nil || conversion.ReferralID != referral.ID {
		return nil, ErrNotFound
	}
	if conversion.Status != constants.ConversionStatusCompleted {
		return nil, ErrConversionStateInvalid
	}
	if conversion.RewardClaimed {
		return nil, ErrAlreadyClaimed
	}

	now := time.Now()
	var receipt *ClaimReceipt
	err = s.repo.Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		// 事务内锁定重算资格，避免并发领取时重复放行
		claimable, err := txRepo.ListClaimableByReferrerForUpdate(referral.CampaignID, referral.ReferrerID)
		if err != nil {
			return err
		}
		if int64(len(claimable)) < int64(s.minClaimable) {
			return ErrNotEligible
		}

		affected, err := txRepo.MarkConversionClaimed(conversion.ID, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			// 条件更新 0 行：并发领取已经先行占用该转化
			return ErrAlreadyClaimed
		}
		if _, err := txRepo.RecomputeTotals(referral.ID, now); err != nil {
			return err
		}
		if err := s.campaignRepo.WithTx(tx).IncrementTotalRewardsGiven(referral.CampaignID, 1); err != nil {
			return err
		}
		receipt = &ClaimReceipt{
			Amount:    conversion.RewardAmount,
			Type:      conversion.RewardType,
			ClaimedAt: now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}
