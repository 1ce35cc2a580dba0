package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/refermark/refermark/internal/constants"
	"github.com/refermark/refermark/internal/models"
	"github.com/refermark/refermark/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupReferralServiceTest(t *testing.T, opts ReferralServiceOptions) (*ReferralService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:referral_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
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

	if opts.FrontendURL == "" {
		opts.FrontendURL = "https://ref.example.com"
	}
	svc := NewReferralService(
		repository.NewReferralRepository(db),
		repository.NewCampaignRepository(db),
		repository.NewCustomerRepository(db),
		repository.NewUserRepository(db),
		opts,
	)
	return svc, db
}

func createReferralTestCampaign(t *testing.T, db *gorm.DB, businessID uint, rewardValue float64) models.Campaign {
	t.Helper()

	now := time.Now()
	campaign := models.Campaign{
		BusinessID:      businessID,
		Name:            "Refer a Friend",
		TaskType:        constants.CampaignTaskTypePurchase,
		TaskDescription: "friend places a first order",
		RewardType:      constants.RewardTypeDiscount,
		RewardValue:     models.NewMoneyFromDecimal(decimal.NewFromFloat(rewardValue)),
		StartDate:       now.Add(-24 * time.Hour),
		EndDate:         now.Add(30 * 24 * time.Hour),
		Status:          constants.CampaignStatusActive,
	}
	if err := db.Create(&campaign).Error; err != nil {
		t.Fatalf("create campaign failed: %v", err)
	}
	return campaign
}

func createReferralTestCustomer(t *testing.T, db *gorm.DB, businessID uint, email string) models.Customer {
	t.Helper()

	customer := models.Customer{
		BusinessID: businessID,
		Email:      email,
		Name:       "tester",
		Source:     constants.CustomerSourceManual,
		Status:     constants.CustomerStatusActive,
	}
	if err := db.Create(&customer).Error; err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	return customer
}

func TestGetOrCreateIsIdempotentPerCampaignAndReferrer(t *testing.T) {
	svc, db := setupReferralServiceTest(t, ReferralServiceOptions{})

	campaign := createReferralTestCampaign(t, db, 1, 10)
	referrer := createReferralTestCustomer(t, db, 1, "referrer@example.com")

	first, err := svc.GetOrCreate(1, campaign.ID, referrer.ID)
	if err != nil {
		t.Fatalf("first get_or_create failed: %v", err)
	}
	if len(first.ReferralCode) != defaultReferralCodeLength {
		t.Fatalf("expected code length %d, got %q", defaultReferralCodeLength, first.ReferralCode)
	}
	if !strings.HasPrefix(first.ReferralURL, "https://ref.example.com/r/") {
		t.Fatalf("unexpected referral url: %q", first.ReferralURL)
	}

	second, err := svc.GetOrCreate(1, campaign.ID, referrer.ID)
	if err != nil {
		t.Fatalf("second get_or_create failed: %v", err)
	}
	if second.ReferralCode != first.ReferralCode {
		t.Fatalf("expected same code on repeat, got %q then %q", first.ReferralCode, second.ReferralCode)
	}

	var count int64
	if err := db.Model(&models.Referral{}).Where("campaign_id = ? AND referrer_id = ?", campaign.ID, referrer.ID).Count(&count).Error; err != nil {
		t.Fatalf("count referrals failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 referral row, got %d", count)
	}
}

func TestGetOrCreateRejectsForeignCampaign(t *testing.T) {
	svc, db := setupReferralServiceTest(t, ReferralServiceOptions{})

	campaign := createReferralTestCampaign(t, db, 2, 10)
	referrer := createReferralTestCustomer(t, db, 1, "foreign@example.com")

	if _, err := svc.GetOrCreate(1, campaign.ID, referrer.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign campaign, got %v", err)
	}
}

func TestTrackClickRecordsAndRecomputesTotals(t *testing.T) {
	svc, db := setupReferralServiceTest(t, ReferralServiceOptions{})

	campaign := createReferralTestCampaign(t, db, 1, 15)
	referrer := createReferralTestCustomer(t, db, 1, "clicker@example.com")
	link, err := svc.GetOrCreate(1, campaign.ID, referrer.ID)
	if err != nil {
		t.Fatalf("get_or_create failed: %v", err)
	}

	ctx := context.Background()
	info, err := svc.TrackClick(ctx, TrackClickInput{Code: link.ReferralCode, ClientIP: "10.0.0.1", UserAgent: "go-test"})
	if err != nil {
		t.Fatalf("first track failed: %v", err)
	}
	if info.Name != campaign.Name || info.RewardType != campaign.RewardType {
		t.Fatalf("unexpected campaign info: %+v", info)
	}
	if _, err := svc.TrackClick(ctx, TrackClickInput{Code: link.ReferralCode, ClientIP: "10.0.0.2"}); err != nil {
		t.Fatalf("second track failed: %v", err)
	}

	var referral models.Referral
	if err := db.Where("referral_code = ?", link.ReferralCode).First(&referral).Error; err != nil {
		t.Fatalf("reload referral failed: %v", err)
	}
	if referral.TotalClicks != 2 {
		t.Fatalf("expected 2 clicks, got %d", referral.TotalClicks)
	}
	if referral.LastClickAt == nil {
		t.Fatalf("expected last_click_at to be set")
	}
}

func TestTrackClickDedupesSameSourceWithinWindow(t *testing.T) {
	svc, db := setupReferralServiceTest(t, ReferralServiceOptions{ClickDedupeSeconds: 300})

	campaign := createReferralTestCampaign(t, db, 1, 15)
	referrer := createReferralTestCustomer(t, db, 1, "dedupe@example.com")
	link, err := svc.GetOrCreate(1, campaign.ID, referrer.ID)
	if err != nil {
		t.Fatalf("get_or_create failed: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := svc.TrackClick(ctx, TrackClickInput{Code: link.ReferralCode, ClientIP: "10.0.0.9"}); err != nil {
			t.Fatalf("track %d failed: %v", i, err)
		}
	}

	var referral models.Referral
	if err := db.Where("referral_code = ?", link.ReferralCode).First(&referral).Error; err != nil {
		t.Fatalf("reload referral failed: %v", err)
	}
	if referral.TotalClicks != 1 {
		t.Fatalf("expected deduped single click, got %d", referral.TotalClicks)
	}
}

func TestTrackClickUnknownCode(t *testing.T) {
	svc, _ := setupReferralServiceTest(t, ReferralServiceOptions{})

	if _, err := svc.TrackClick(context.Background(), TrackClickInput{Code: "missing1"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordConversionOncePerReferredCustomer(t *testing.T) {
	svc, db := setupReferralServiceTest(t, ReferralServiceOptions{})

	campaign := createReferralTestCampaign(t, db, 1, 20)
	referrer := createReferralTestCustomer(t, db, 1, "referrer2@example.com")
	referred := createReferralTestCustomer(t, db, 1, "referred@example.com")
	link, err := svc.GetOrCreate(1, campaign.ID, referrer.ID)
	if err != nil {
		t.Fatalf("get_or_create failed: %v", err)
	}

	conversion, err := svc.RecordConversion(link.ReferralCode, referred.ID)
	if err != nil {
		t.Fatalf("record conversion failed: %v", err)
	}
	if conversion.Status != constants.ConversionStatusPending {
		t.Fatalf("expected pending status, got %q", conversion.Status)
	}

	if _, err := svc.RecordConversion(link.ReferralCode, referred.ID); !errors.Is(err, ErrDuplicateConversion) {
		t.Fatalf("expected ErrDuplicateConversion, got %v", err)
	}

	var reloaded models.Campaign
	if err := db.First(&reloaded, campaign.ID).Error; err != nil {
		t.Fatalf("reload campaign failed: %v", err)
	}
	if reloaded.TotalReferrals != 1 {
		t.Fatalf("expected total_referrals 1, got %d", reloaded.TotalReferrals)
	}
}

func TestCompleteTaskFreezesRewardSnapshot(t *testing.T) {
	svc, db := setupReferralServiceTest(t, ReferralServiceOptions{})

	campaign := createReferralTestCampaign(t, db, 1, 25)
	referrer := createReferralTestCustomer(t, db, 1, "referrer3@example.com")
	referred := createReferralTestCustomer(t, db, 1, "referred3@example.com")
	link, err := svc.GetOrCreate(1, campaign.ID, referrer.ID)
	if err != nil {
		t.Fatalf("get_or_create failed: %v", err)
	}
	conversion, err := svc.RecordConversion(link.ReferralCode, referred.ID)
	if err != nil {
		t.Fatalf("record conversion failed: %v", err)
	}

	completed, err := svc.CompleteTask(link.ReferralCode, conversion.ID, "order #1001")
	if err != nil {
		t.Fatalf("complete task failed: %v", err)
	}
	if completed.Status != constants.ConversionStatusCompleted {
		t.Fatalf("expected completed status, got %q", completed.Status)
	}
	if completed.TaskCompletedAt == nil {
		t.Fatalf("expected task_completed_at to be set")
	}
	if completed.RewardType != campaign.RewardType {
		t.Fatalf("expected frozen reward type %q, got %q", campaign.RewardType, completed.RewardType)
	}
	if completed.RewardAmount.String() != campaign.RewardValue.String() {
		t.Fatalf("expected frozen reward amount %s, got %s", campaign.RewardValue, completed.RewardAmount)
	}

	// 活动奖励后续变更不影响已冻结的转化
	if err := db.Model(&models.Campaign{}).Where("id = ?", campaign.ID).
		Update("reward_value", models.NewMoneyFromInt(99)).Error; err != nil {
		t.Fatalf("update campaign reward failed: %v", err)
	}
	var frozen models.ReferralConversion
	if err := db.First(&frozen, conversion.ID).Error; err != nil {
		t.Fatalf("reload conversion failed: %v", err)
	}
	if frozen.RewardAmount.String() != campaign.RewardValue.String() {
		t.Fatalf("frozen reward changed after campaign update: %s", frozen.RewardAmount)
	}

	if _, err := svc.CompleteTask(link.ReferralCode, conversion.ID, "again"); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}
}

func TestCompleteTaskRejectsConversionFromOtherReferral(t *testing.T) {
	svc, db := setupReferralServiceTest(t, ReferralServiceOptions{})

	campaign := createReferralTestCampaign(t, db, 1, 25)
	referrerA := createReferralTestCustomer(t, db, 1, "owner-a@example.com")
	referrerB := createReferralTestCustomer(t, db, 1, "owner-b@example.com")
	referred := createReferralTestCustomer(t, db, 1, "crossed@example.com")

	linkA, err := svc.GetOrCreate(1, campaign.ID, referrerA.ID)
	if err != nil {
		t.Fatalf("get_or_create A failed: %v", err)
	}
	linkB, err := svc.GetOrCreate(1, campaign.ID, referrerB.ID)
	if err != nil {
		t.Fatalf("get_or_create B failed: %v", err)
	}
	conversion, err := svc.RecordConversion(linkA.ReferralCode, referred.ID)
	if err != nil {
		t.Fatalf("record conversion failed: %v", err)
	}

	if _, err := svc.CompleteTask(linkB.ReferralCode, conversion.ID, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for crossed referral, got %v", err)
	}
}

func TestCampaignStatsAggregatesReferralDetails(t *testing.T) {
	svc, db := setupReferralServiceTest(t, ReferralServiceOptions{})

	campaign := createReferralTestCampaign(t, db, 1, 10)
	referrer := createReferralTestCustomer(t, db, 1, "stats-referrer@example.com")
	referredA := createReferralTestCustomer(t, db, 1, "stats-a@example.com")
	referredB := createReferralTestCustomer(t, db, 1, "stats-b@example.com")
	link, err := svc.GetOrCreate(1, campaign.ID, referrer.ID)
	if err != nil {
		t.Fatalf("get_or_create failed: %v", err)
	}

	ctx := context.Background()
	if _, err := svc.TrackClick(ctx, TrackClickInput{Code: link.ReferralCode, ClientIP: "10.1.0.1"}); err != nil {
		t.Fatalf("track failed: %v", err)
	}
	if _, err := svc.RecordConversion(link.ReferralCode, referredA.ID); err != nil {
		t.Fatalf("convert A failed: %v", err)
	}
	if _, err := svc.RecordConversion(link.ReferralCode, referredB.ID); err != nil {
		t.Fatalf("convert B failed: %v", err)
	}

	stats, err := svc.CampaignStats(1, campaign.ID)
	if err != nil {
		t.Fatalf("campaign stats failed: %v", err)
	}
	if stats.TotalReferrals != 1 || stats.TotalClicks != 1 || stats.TotalConversions != 2 {
		t.Fatalf("unexpected totals: %+v", stats)
	}
	if len(stats.Referrals) != 1 {
		t.Fatalf("expected 1 referral item, got %d", len(stats.Referrals))
	}
	item := stats.Referrals[0]
	if item.Referrer.Email != referrer.Email {
		t.Fatalf("expected referrer email %q, got %q", referrer.Email, item.Referrer.Email)
	}
	if len(item.ConvertedUsers) != 2 {
		t.Fatalf("expected 2 converted users, got %d", len(item.ConvertedUsers))
	}

	if _, err := svc.CampaignStats(2, campaign.ID); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for foreign business, got %v", err)
	}
}

func TestRewardStatusView(t *testing.T) {
	svc, db := setupReferralServiceTest(t, ReferralServiceOptions{})

	campaign := createReferralTestCampaign(t, db, 1, 30)
	referrer := createReferralTestCustomer(t, db, 1, "status-referrer@example.com")
	referred := createReferralTestCustomer(t, db, 1, "status-referred@example.com")
	link, err := svc.GetOrCreate(1, campaign.ID, referrer.ID)
	if err != nil {
		t.Fatalf("get_or_create failed: %v", err)
	}
	conversion, err := svc.RecordConversion(link.ReferralCode, referred.ID)
	if err != nil {
		t.Fatalf("record conversion failed: %v", err)
	}

	view, err := svc.RewardStatus(link.ReferralCode, conversion.ID)
	if err != nil {
		t.Fatalf("reward status failed: %v", err)
	}
	if view.Status != constants.ConversionStatusPending || view.RewardClaimed {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.Campaign.Name != campaign.Name {
		t.Fatalf("expected campaign name %q, got %q", campaign.Name, view.Campaign.Name)
	}
	if view.Referrer.Email != referrer.Email {
		t.Fatalf("expected referrer email %q, got %q", referrer.Email, view.Referrer.Email)
	}

	if _, err := svc.RewardStatus(link.ReferralCode, conversion.ID+100); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing conversion, got %v", err)
	}
}

func TestReconcileCampaignCountersFixesDrift(t *testing.T) {
	svc, db := setupReferralServiceTest(t, ReferralServiceOptions{})

	campaign := createReferralTestCampaign(t, db, 1, 10)
	referrer := createReferralTestCustomer(t, db, 1, "drift-referrer@example.com")
	referred := createReferralTestCustomer(t, db, 1, "drift-referred@example.com")
	link, err := svc.GetOrCreate(1, campaign.ID, referrer.ID)
	if err != nil {
		t.Fatalf("get_or_create failed: %v", err)
	}
	if _, err := svc.RecordConversion(link.ReferralCode, referred.ID); err != nil {
		t.Fatalf("record conversion failed: %v", err)
	}

	// 人为制造漂移
	if err := db.Model(&models.Campaign{}).Where("id = ?", campaign.ID).
		Updates(map[string]interface{}{"total_referrals": 42, "total_rewards_given": 7}).Error; err != nil {
		t.Fatalf("inject drift failed: %v", err)
	}

	if err := svc.ReconcileCampaignCounters(campaign.ID); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	var reloaded models.Campaign
	if err := db.First(&reloaded, campaign.ID).Error; err != nil {
		t.Fatalf("reload campaign failed: %v", err)
	}
	if reloaded.TotalReferrals != 1 || reloaded.TotalRewardsGiven != 0 {
		t.Fatalf("expected reconciled totals 1/0, got %d/%d", reloaded.TotalReferrals, reloaded.TotalRewardsGiven)
	}
}
