package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/refermark/refermark/internal/cache"
	"github.com/refermark/refermark/internal/constants"
	"github.com/refermark/refermark/internal/logger"
	"github.com/refermark/refermark/internal/models"
	"github.com/refermark/refermark/internal/repository"
	"gorm.io/gorm"
)

const (
	defaultReferralCodeLength  = 8
	defaultMaxCodeAttempts     = 20
	referralLinkPathPrefix     = "/r/"
)

// ReferralService 推荐链接业务服务
type ReferralService struct {
	repo              repository.ReferralRepository
	campaignRepo      repository.CampaignRepository
	customerRepo      repository.CustomerRepository
	userRepo          repository.UserRepository
	codeLength        int
	maxCodeAttempts   int
	clickDedupeWindow time.Duration
	frontendURL       string
}

// ReferralServiceOptions 推荐服务配置
type ReferralServiceOptions struct {
	CodeLength         int
	MaxCodeAttempts    int
	ClickDedupeSeconds int
	FrontendURL        string
}

// NewReferralService 创建推荐链接服务
func NewReferralService(
	repo repository.ReferralRepository,
	campaignRepo repository.CampaignRepository,
	customerRepo repository.CustomerRepository,
	userRepo repository.UserRepository,
	opts ReferralServiceOptions,
) *ReferralService {
	codeLength := opts.CodeLength
	if codeLength <= 0 {
		codeLength = defaultReferralCodeLength
	}
	maxAttempts := opts.MaxCodeAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxCodeAttempts
	}
	var dedupeWindow time.Duration
	if opts.ClickDedupeSeconds > 0 {
		dedupeWindow = time.Duration(opts.ClickDedupeSeconds) * time.Second
	}
	return &ReferralService{
		repo:              repo,
		campaignRepo:      campaignRepo,
		customerRepo:      customerRepo,
		userRepo:          userRepo,
		codeLength:        codeLength,
		maxCodeAttempts:   maxAttempts,
		clickDedupeWindow: dedupeWindow,
		frontendURL:       strings.TrimRight(strings.TrimSpace(opts.FrontendURL), "/"),
	}
}

// ReferralLinkStats 推荐链接统计摘要
type ReferralLinkStats struct {
	Clicks      int64 `json:"clicks"`
	Conversions int64 `json:"conversions"`
}

// ReferralLink 推荐链接视图
type ReferralLink struct {
	ReferralCode string            `json:"referral_code"`
	ReferralURL  string            `json:"referral_url"`
	Stats        ReferralLinkStats `json:"stats"`
}

// CampaignPublicInfo 活动公开信息（落地页展示用）
type CampaignPublicInfo struct {
	Name            string `json:"name"`
	TaskType        string `json:"task_type"`
	TaskDescription string `json:"task_description"`
	RewardType      string `json:"reward_type"`
	RewardValue     string `json:"reward_value"`
}

// TrackClickInput 点击上报输入
type TrackClickInput struct {
	Code      string
	ClientIP  string
	UserAgent string
}

// CustomerBrief 客户摘要
type CustomerBrief struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ConvertedUserItem 转化客户明细项
type ConvertedUserItem struct {
	User          CustomerBrief `json:"user"`
	Status        string        `json:"status"`
	Timestamp     time.Time     `json:"timestamp"`
	RewardClaimed bool          `json:"reward_claimed"`
}

// CampaignReferralItem 活动统计中的单条推荐链接
type CampaignReferralItem struct {
	ReferralCode   string              `json:"referral_code"`
	Referrer       CustomerBrief       `json:"referrer"`
	Clicks         int64               `json:"clicks"`
	Conversions    int64               `json:"conversions"`
	ConvertedUsers []ConvertedUserItem `json:"converted_users"`
	CreatedAt      time.Time           `json:"created_at"`
}

// CampaignStats 活动统计
type CampaignStats struct {
	TotalReferrals   int64                  `json:"total_referrals"`
	TotalClicks      int64                  `json:"total_clicks"`
	TotalConversions int64                  `json:"total_conversions"`
	Referrals        []CampaignReferralItem `json:"referrals"`
}

// CampaignBrief 活动摘要
type CampaignBrief struct {
	Name        string `json:"name"`
	RewardType  string `json:"reward_type"`
	RewardValue string `json:"reward_value"`
}

// RewardStatusView 转化领奖状态视图
type RewardStatusView struct {
	Campaign        CampaignBrief `json:"campaign"`
	Referrer        CustomerBrief `json:"referrer"`
	Status          string        `json:"status"`
	TaskCompletedAt *time.Time    `json:"task_completed_at"`
	RewardClaimed   bool          `json:"reward_claimed"`
	RewardClaimedAt *time.Time    `json:"reward_claimed_at"`
	RewardAmount    models.Money  `json:"reward_amount"`
	RewardType      string        `json:"reward_type"`
}

// GetOrCreate 获取或创建推荐链接（同一活动内每个推荐人只有一条）
func (s *ReferralService) GetOrCreate(businessID, campaignID, referrerID uint) (*ReferralLink, error) {
	if s.repo == nil || s.campaignRepo == nil || s.customerRepo == nil {
		return nil, ErrNotFound
	}
	campaign, err := s.campaignRepo.GetByBusinessAndID(businessID, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, ErrNotFound
	}
	customer, err := s.customerRepo.GetByBusinessAndID(businessID, referrerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrNotFound
	}

	existing, err := s.repo.GetByCampaignAndReferrer(campaignID, referrerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.buildLink(existing), nil
	}

	for i := 0; i < s.maxCodeAttempts; i++ {
		code, genErr := generateReferralCode(s.codeLength)
		if genErr != nil {
			return nil, genErr
		}
		referral := &models.Referral{
			CampaignID:   campaignID,
			ReferrerID:   referrerID,
			ReferralCode: code,
			IsActive:     true,
		}
		if err := s.repo.Create(referral); err != nil {
			if isUniqueViolation(err) {
				// 可能是推荐码撞车，也可能是并发创建了同一 (活动, 推荐人) 的链接
				pair, pairErr := s.repo.GetByCampaignAndReferrer(campaignID, referrerID)
				if pairErr != nil {
					return nil, pairErr
				}
				if pair != nil {
					return s.buildLink(pair), nil
				}
				continue
			}
			return nil, err
		}
		return s.buildLink(referral), nil
	}
	return nil, ErrCodeSpaceExhausted
}

// TrackClick 记录推荐链接点击并返回活动公开信息
func (s *ReferralService) TrackClick(ctx context.Context, input TrackClickInput) (*CampaignPublicInfo, error) {
	if s.repo == nil || s.campaignRepo == nil {
		return nil, ErrNotFound
	}
	code := normalizeReferralCode(input.Code)
	if code == "" {
		return nil, ErrNotFound
	}
	referral, err := s.repo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if referral == nil {
		return nil, ErrNotFound
	}

	info, err := s.resolveCampaignPublicInfo(ctx, referral.CampaignID)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, ErrNotFound
	}

	clientIP := strings.TrimSpace(input.ClientIP)
	if s.clickDedupeWindow > 0 && clientIP != "" {
		duplicated, err := s.repo.HasRecentClick(referral.ID, clientIP, time.Now().Add(-s.clickDedupeWindow))
		if err != nil {
			return nil, err
		}
		if duplicated {
			return info, nil
		}
	}

	now := time.Now()
	click := &models.ReferralClick{
		ReferralID: referral.ID,
		IPAddress:  clientIP,
		UserAgent:  strings.TrimSpace(input.UserAgent),
		ClickedAt:  now,
	}
	err = s.repo.Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.CreateClick(click); err != nil {
			return err
		}
		if _, err := txRepo.RecomputeTotals(referral.ID, now); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// RecordConversion 记录一次转化（同一推荐链接内被推荐客户只记一次）
func (s *ReferralService) RecordConversion(code string, referredCustomerID uint) (*models.ReferralConversion, error) {
	if s.repo == nil || s.campaignRepo == nil || s.customerRepo == nil {
		return nil, ErrNotFound
	}
	normalized := normalizeReferralCode(code)
	if normalized == "" || referredCustomerID == 0 {
		return nil, ErrNotFound
	}
	referral, err := s.repo.GetByCode(normalized)
	if err != nil {
		return nil, err
	}
	if referral == nil {
		return nil, ErrNotFound
	}
	campaign, err := s.campaignRepo.GetByID(referral.CampaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, ErrNotFound
	}

	customer, err := s.resolveReferredCustomer(campaign.BusinessID, referredCustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrNotFound
	}

	existing, err := s.repo.GetConversion(referral.ID, customer.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateConversion
	}

	now := time.Now()
	conversion := &models.ReferralConversion{
		ReferralID:         referral.ID,
		ReferredCustomerID: customer.ID,
		Status:             constants.ConversionStatusPending,
		ConvertedAt:        now,
	}
	err = s.repo.Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.CreateConversion(conversion); err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateConversion
			}
			return err
		}
		if _, err := txRepo.RecomputeTotals(referral.ID, now); err != nil {
			return err
		}
		return s.campaignRepo.WithTx(tx).IncrementTotalReferrals(campaign.ID, 1)
	})
	if err != nil {
		return nil, err
	}
	return conversion, nil
}

// CompleteTask 标记转化任务完成，冻结当前活动奖励到转化记录
func (s *ReferralService) CompleteTask(code string, conversionID uint, proof string) (*models.ReferralConversion, error) {
	if s.repo == nil || s.campaignRepo == nil {
		return nil, ErrNotFound
	}
	referral, err := s.repo.GetByCode(normalizeReferralCode(code))
	if err != nil {
		return nil, err
	}
	if referral == nil {
		return nil, ErrNotFound
	}
	campaign, err := s.campaignRepo.GetByID(referral.CampaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, ErrNotFound
	}

	var updated *models.ReferralConversion
	now := time.Now()
	err = s.repo.Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		conversion, err := txRepo.GetConversionByIDForUpdate(conversionID)
		if err != nil {
			return err
		}
		if conversion == nil || conversion.ReferralID != referral.ID {
			return ErrNotFound
		}
		switch conversion.Status {
		case constants.ConversionStatusCompleted:
			return ErrAlreadyCompleted
		case constants.ConversionStatusRejected:
			return ErrConversionStateInvalid
		}
		conversion.Status = constants.ConversionStatusCompleted
		conversion.TaskCompletedAt = &now
		conversion.TaskCompletionProof = strings.TrimSpace(proof)
		conversion.RewardType = campaign.RewardType
		conversion.RewardAmount = campaign.RewardValue
		if err := txRepo.UpdateConversion(conversion); err != nil {
			return err
		}
		updated = conversion
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// CampaignStats 活动维度统计（含每条推荐链接的明细）
func (s *ReferralService) CampaignStats(businessID, campaignID uint) (*CampaignStats, error) {
	if s.repo == nil || s.campaignRepo == nil {
		return nil, ErrNotFound
	}
	campaign, err := s.campaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, ErrNotFound
	}
	if campaign.BusinessID != businessID {
		return nil, ErrNotAuthorized
	}

	referrals, _, err := s.repo.List(repository.ReferralListFilter{CampaignID: campaignID})
	if err != nil {
		return nil, err
	}

	stats := &CampaignStats{
		TotalReferrals: int64(len(referrals)),
		Referrals:      make([]CampaignReferralItem, 0, len(referrals)),
	}
	for _, referral := range referrals {
		item := CampaignReferralItem{
			ReferralCode: referral.ReferralCode,
			Clicks:       referral.TotalClicks,
			CreatedAt:    referral.CreatedAt,
		}
		if referrer, err := s.customerRepo.GetByID(referral.ReferrerID); err != nil {
			return nil, err
		} else if referrer != nil {
			item.Referrer = CustomerBrief{Name: referrer.Name, Email: referrer.Email}
		}

		conversions, _, err := s.repo.ListConversions(repository.ConversionListFilter{ReferralID: referral.ID})
		if err != nil {
			return nil, err
		}
		item.Conversions = int64(len(conversions))
		item.ConvertedUsers = make([]ConvertedUserItem, 0, len(conversions))
		for _, conversion := range conversions {
			entry := ConvertedUserItem{
				User:          CustomerBrief{Name: "Unknown User"},
				Status:        conversion.Status,
				Timestamp:     conversion.ConvertedAt,
				RewardClaimed: conversion.RewardClaimed,
			}
			if converted, err := s.customerRepo.GetByID(conversion.ReferredCustomerID); err != nil {
				return nil, err
			} else if converted != nil {
				entry.User = CustomerBrief{Name: converted.Name, Email: converted.Email}
			}
			item.ConvertedUsers = append(item.ConvertedUsers, entry)
		}

		stats.TotalClicks += referral.TotalClicks
		stats.TotalConversions += item.Conversions
		stats.Referrals = append(stats.Referrals, item)
	}
	return stats, nil
}

// RewardStatus 查询单条转化的领奖状态
func (s *ReferralService) RewardStatus(code string, conversionID uint) (*RewardStatusView, error) {
	if s.repo == nil || s.campaignRepo == nil {
		return nil, ErrNotFound
	}
	referral, err := s.repo.GetByCode(normalizeReferralCode(code))
	if err != nil {
		return nil, err
	}
	if referral == nil {
		return nil, ErrNotFound
	}
	conversion, err := s.repo.GetConversionByID(conversionID)
	if err != nil {
		return nil, err
	}
	if conversion == nil || conversion.ReferralID != referral.ID {
		return nil, ErrNotFound
	}

	view := &RewardStatusView{
		Status:          conversion.Status,
		TaskCompletedAt: conversion.TaskCompletedAt,
		RewardClaimed:   conversion.RewardClaimed,
		RewardClaimedAt: conversion.RewardClaimedAt,
		RewardAmount:    conversion.RewardAmount,
		RewardType:      conversion.RewardType,
	}
	if campaign, err := s.campaignRepo.GetByID(referral.CampaignID); err != nil {
		return nil, err
	} else if campaign != nil {
		view.Campaign = CampaignBrief{
			Name:        campaign.Name,
			RewardType:  campaign.RewardType,
			RewardValue: campaign.RewardValue.String(),
		}
	}
	if referrer, err := s.customerRepo.GetByID(referral.ReferrerID); err != nil {
		return nil, err
	} else if referrer != nil {
		view.Referrer = CustomerBrief{Name: referrer.Name, Email: referrer.Email}
	}
	return view, nil
}

// ReconcileCampaignCounters 从明细重算活动累计值（异步对账任务用）
func (s *ReferralService) ReconcileCampaignCounters(campaignID uint) error {
	if s.repo == nil || s.campaignRepo == nil || campaignID == 0 {
		return nil
	}
	campaign, err := s.campaignRepo.GetByID(campaignID)
	if err != nil {
		return err
	}
	if campaign == nil {
		return nil
	}
	stats, err := s.repo.GetCampaignStats(campaignID)
	if err != nil {
		return err
	}
	if campaign.TotalReferrals == stats.TotalConversions && campaign.TotalRewardsGiven == stats.ClaimedConversions {
		return nil
	}
	logger.Warnw("campaign_counters_drift_detected",
		"campaign_id", campaignID,
		"stored_referrals", campaign.TotalReferrals,
		"actual_referrals", stats.TotalConversions,
		"stored_rewards", campaign.TotalRewardsGiven,
		"actual_rewards", stats.ClaimedConversions,
	)
	return s.campaignRepo.SetTotals(campaignID, stats.TotalConversions, stats.ClaimedConversions, time.Now())
}

// resolveReferredCustomer 解析被推荐客户；传入账号 ID 时为其补建客户档案
func (s *ReferralService) resolveReferredCustomer(businessID, referredCustomerID uint) (*models.Customer, error) {
	customer, err := s.customerRepo.GetByID(referredCustomerID)
	if err != nil {
		return nil, err
	}
	if customer != nil {
		return customer, nil
	}
	if s.userRepo == nil {
		return nil, nil
	}
	user, err := s.userRepo.GetByID(referredCustomerID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	created := &models.Customer{
		BusinessID: businessID,
		Email:      strings.ToLower(strings.TrimSpace(user.Email)),
		Name:       user.DisplayName,
		Source:     constants.CustomerSourceReferral,
		Status:     constants.CustomerStatusActive,
	}
	if err := s.customerRepo.Create(created); err != nil {
		if isUniqueViolation(err) {
			return s.customerRepo.GetByBusinessAndEmail(businessID, created.Email)
		}
		return nil, err
	}
	return created, nil
}

func (s *ReferralService) resolveCampaignPublicInfo(ctx context.Context, campaignID uint) (*CampaignPublicInfo, error) {
	if projection, hit, err := cache.GetCampaignProjection(ctx, campaignID); err == nil && hit {
		return &CampaignPublicInfo{
			Name:            projection.Name,
			TaskType:        projection.TaskType,
			TaskDescription: projection.TaskDescription,
			RewardType:      projection.RewardType,
			RewardValue:     projection.RewardValue,
		}, nil
	} else if err != nil {
		logger.Warnw("campaign_projection_cache_read_failed", "campaign_id", campaignID, "error", err)
	}

	campaign, err := s.campaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, nil
	}
	if err := cache.SetCampaignProjection(ctx, cache.BuildCampaignProjection(campaign)); err != nil {
		logger.Warnw("campaign_projection_cache_write_failed", "campaign_id", campaignID, "error", err)
	}
	return &CampaignPublicInfo{
		Name:            campaign.Name,
		TaskType:        campaign.TaskType,
		TaskDescription: campaign.TaskDescription,
		RewardType:      campaign.RewardType,
		RewardValue:     campaign.RewardValue.String(),
	}, nil
}

func (s *ReferralService) buildLink(referral *models.Referral) *ReferralLink {
	if referral == nil {
		return nil
	}
	return &ReferralLink{
		ReferralCode: referral.ReferralCode,
		ReferralURL:  fmt.Sprintf("%s%s%s", s.frontendURL, referralLinkPathPrefix, referral.ReferralCode),
		Stats: ReferralLinkStats{
			Clicks:      referral.TotalClicks,
			Conversions: referral.TotalConversions,
		},
	}
}

func normalizeReferralCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func generateReferralCode(length int) (string, error) {
	if length <= 0 {
		length = defaultReferralCodeLength
	}
	buf := make([]byte, (length+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf)[:length], nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
