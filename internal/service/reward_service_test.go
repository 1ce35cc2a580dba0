package service

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/refermark/refermark/internal/constants"
	"github.com/refermark/refermark/internal/models"
	"github.com/refermark/refermark/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupRewardServiceTest(t *testing.T, minClaimable int) (*RewardService, *ReferralService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:reward_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Customer{},
		&models.Campaign{},
		&models.Referral{},
		&models.ReferralClick{},
		&models.ReferralConversion{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	referralRepo := repository.NewReferralRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	userRepo := repository.NewUserRepository(db)

	rewardSvc := NewRewardService(referralRepo, campaignRepo, customerRepo, minClaimable)
	referralSvc := NewReferralService(referralRepo, campaignRepo, customerRepo, userRepo, ReferralServiceOptions{
		FrontendURL: "https://ref.example.com",
	})
	return rewardSvc, referralSvc, db
}

// completeRewardTestConversions 为同一推荐人生成 n 条已完成转化，返回推荐码和转化 ID 列表
func completeRewardTestConversions(t *testing.T, referralSvc *ReferralService, db *gorm.DB, campaignID uint, referrerID uint, n int) (string, []uint) {
	t.Helper()

	link, err := referralSvc.GetOrCreate(1, campaignID, referrerID)
	if err != nil {
		t.Fatalf("get_or_create failed: %v", err)
	}

	ids := make([]uint, 0, n)
	for i := 0; i < n; i++ {
		referred := createReferralTestCustomer(t, db, 1, fmt.Sprintf("claim-referred-%d-%d@example.com", referrerID, i))
		conversion, err := referralSvc.RecordConversion(link.ReferralCode, referred.ID)
		if err != nil {
			t.Fatalf("record conversion %d failed: %v", i, err)
		}
		if _, err := referralSvc.CompleteTask(link.ReferralCode, conversion.ID, "proof"); err != nil {
			t.Fatalf("complete task %d failed: %v", i, err)
		}
		ids = append(ids, conversion.ID)
	}
	return link.ReferralCode, ids
}

func TestClaimRequiresMinimumCompletedConversions(t *testing.T) {
	rewardSvc, referralSvc, db := setupRewardServiceTest(t, 3)

	campaign := createReferralTestCampaign(t, db, 1, 12.5)
	referrer := createReferralTestCustomer(t, db, 1, "claim-referrer@example.com")
	code, ids := completeRewardTestConversions(t, referralSvc, db, campaign.ID, referrer.ID, 2)

	if _, err := rewardSvc.Claim(1, code, ids[0]); !errors.Is(err, ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible with 2 of 3, got %v", err)
	}

	eligibility, err := rewardSvc.Eligibility(campaign.ID, referrer.ID)
	if err != nil {
		t.Fatalf("eligibility failed: %v", err)
	}
	if eligibility.Eligible || eligibility.CompletedUnclaimed != 2 || eligibility.Required != 3 {
		t.Fatalf("unexpected eligibility: %+v", eligibility)
	}

	// 补足第三条后可领取
	referred := createReferralTestCustomer(t, db, 1, "claim-third@example.com")
	conversion, err := referralSvc.RecordConversion(code, referred.ID)
	if err != nil {
		t.Fatalf("record third conversion failed: %v", err)
	}
	if _, err := referralSvc.CompleteTask(code, conversion.ID, "proof"); err != nil {
		t.Fatalf("complete third task failed: %v", err)
	}

	receipt, err := rewardSvc.Claim(1, code, ids[0])
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if receipt.Type != constants.RewardTypeDiscount {
		t.Fatalf("expected discount receipt, got %q", receipt.Type)
	}
	if receipt.Amount.String() != decimal.NewFromFloat(12.5).String() {
		t.Fatalf("expected amount 12.5, got %s", receipt.Amount)
	}

	var claimed models.ReferralConversion
	if err := db.First(&claimed, ids[0]).Error; err != nil {
		t.Fatalf("reload conversion failed: %v", err)
	}
	if !claimed.RewardClaimed || claimed.RewardClaimedAt == nil {
		t.Fatalf("expected conversion marked claimed, got %+v", claimed)
	}

	var reloaded models.Campaign
	if err := db.First(&reloaded, campaign.ID).Error; err != nil {
		t.Fatalf("reload campaign failed: %v", err)
	}
	if reloaded.TotalRewardsGiven != 1 {
		t.Fatalf("expected total_rewards_given 1, got %d", reloaded.TotalRewardsGiven)
	}
}

func TestClaimRepeatAndOwnership(t *testing.T) {
	rewardSvc, referralSvc, db := setupRewardServiceTest(t, 3)

	campaign := createReferralTestCampaign(t, db, 1, 10)
	referrer := createReferralTestCustomer(t, db, 1, "repeat-referrer@example.com")
	code, ids := completeRewardTestConversions(t, referralSvc, db, campaign.ID, referrer.ID, 3)

	if _, err := rewardSvc.Claim(1, code, ids[0]); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	if _, err := rewardSvc.Claim(1, code, ids[0]); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}

	// 其他商家无权领取该推荐链接的奖励
	if _, err := rewardSvc.Claim(2, code, ids[1]); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for foreign business, got %v", err)
	}

	if _, err := rewardSvc.Claim(1, "missing1", ids[1]); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown code, got %v", err)
	}
}

func TestClaimRejectsPendingConversion(t *testing.T) {
	rewardSvc, referralSvc, db := setupRewardServiceTest(t, 1)

	campaign := createReferralTestCampaign(t, db, 1, 10)
	referrer := createReferralTestCustomer(t, db, 1, "pending-referrer@example.com")
	referred := createReferralTestCustomer(t, db, 1, "pending-referred@example.com")
	link, err := referralSvc.GetOrCreate(1, campaign.ID, referrer.ID)
	if err != nil {
		t.Fatalf("get_or_create failed: %v", err)
	}
	conversion, err := referralSvc.RecordConversion(link.ReferralCode, referred.ID)
	if err != nil {
		t.Fatalf("record conversion failed: %v", err)
	}

	if _, err := rewardSvc.Claim(1, link.ReferralCode, conversion.ID); !errors.Is(err, ErrConversionStateInvalid) {
		t.Fatalf("expected ErrConversionStateInvalid for pending conversion, got %v", err)
	}
}

func TestClaimThresholdCountsOnlyUnclaimed(t *testing.T) {
	rewardSvc, referralSvc, db := setupRewardServiceTest(t, 3)

	campaign := createReferralTestCampaign(t, db, 1, 10)
	referrer := createReferralTestCustomer(t, db, 1, "window-referrer@example.com")
	code, ids := completeRewardTestConversions(t, referralSvc, db, campaign.ID, referrer.ID, 3)

	if _, err := rewardSvc.Claim(1, code, ids[0]); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}

	// 已领取的转化不再计入资格，剩余 2 条不满足门槛
	if _, err := rewardSvc.Claim(1, code, ids[1]); !errors.Is(err, ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible after threshold consumed, got %v", err)
	}
}

func TestClaimConcurrentSingleWinner(t *testing.T) {
	rewardSvc, referralSvc, db := setupRewardServiceTest(t, 1)

	// 单连接串行化事务，避免共享缓存模式下的写锁冲突
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	campaign := createReferralTestCampaign(t, db, 1, 12.5)
	referrer := createReferralTestCustomer(t, db, 1, "race-referrer@example.com")
	code, ids := completeRewardTestConversions(t, referralSvc, db, campaign.ID, referrer.ID, 2)

	const claimers = 4
	results := make([]error, claimers)
	var wg sync.WaitGroup
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, results[slot] = rewardSvc.Claim(1, code, ids[0])
		}(i)
	}
	wg.Wait()

	var wins, repeats int
	for _, claimErr := range results {
		switch {
		case claimErr == nil:
			wins++
		case errors.Is(claimErr, ErrAlreadyClaimed):
			repeats++
		default:
			t.Fatalf("unexpected claim error: %v", claimErr)
		}
	}
	if wins != 1 || repeats != claimers-1 {
		t.Fatalf("expected exactly one winner, got wins=%d repeats=%d", wins, repeats)
	}

	var claimed models.ReferralConversion
	if err := db.First(&claimed, ids[0]).Error; err != nil {
		t.Fatalf("reload conversion failed: %v", err)
	}
	if !claimed.RewardClaimed {
		t.Fatalf("expected conversion marked claimed, got %+v", claimed)
	}

	var referral models.Referral
	if err := db.First(&referral, "referral_code = ?", code).Error; err != nil {
		t.Fatalf("reload referral failed: %v", err)
	}
	if referral.TotalRewardsClaimed != 1 {
		t.Fatalf("expected total_rewards_claimed 1, got %d", referral.TotalRewardsClaimed)
	}

	var reloaded models.Campaign
	if err := db.First(&reloaded, campaign.ID).Error; err != nil {
		t.Fatalf("reload campaign failed: %v", err)
	}
	if reloaded.TotalRewardsGiven != 1 {
		t.Fatalf("expected total_rewards_given 1, got %d", reloaded.TotalRewardsGiven)
	}
}
