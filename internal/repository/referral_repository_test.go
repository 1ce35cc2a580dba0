package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/refermark/refermark/internal/constants"
	"github.com/refermark/refermark/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupReferralRepositoryTest(t *testing.T) (*GormReferralRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:referral_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Referral{},
		&models.ReferralClick{},
		&models.ReferralConversion{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewReferralRepository(db), db
}

func seedReferral(t *testing.T, db *gorm.DB, campaignID, referrerID uint, code string) *models.Referral {
	t.Helper()
	referral := models.Referral{
		CampaignID:   campaignID,
		ReferrerID:   referrerID,
		ReferralCode: code,
		IsActive:     true,
	}
	if err := db.Create(&referral).Error; err != nil {
		t.Fatalf("create referral failed: %v", err)
	}
	return &referral
}

func TestReferralRepositoryHasRecentClick(t *testing.T) {
	repo, db := setupReferralRepositoryTest(t)
	referral := seedReferral(t, db, 1, 10, "hasclick1")
	now := time.Now().UTC().Truncate(time.Second)

	clicks := []models.ReferralClick{
		{ReferralID: referral.ID, IPAddress: "10.0.0.1", ClickedAt: now.Add(-10 * time.Minute)},
		{ReferralID: referral.ID, IPAddress: "10.0.0.2", ClickedAt: now.Add(-1 * time.Minute)},
	}
	if err := db.Create(&clicks).Error; err != nil {
		t.Fatalf("create clicks failed: %v", err)
	}

	recent, err := repo.HasRecentClick(referral.ID, "10.0.0.2", now.Add(-5*time.Minute))
	if err != nil {
		t.Fatalf("has recent click failed: %v", err)
	}
	if !recent {
		t.Fatalf("expected recent click for 10.0.0.2")
	}

	stale, err := repo.HasRecentClick(referral.ID, "10.0.0.1", now.Add(-5*time.Minute))
	if err != nil {
		t.Fatalf("has recent click failed: %v", err)
	}
	if stale {
		t.Fatalf("click older than window should not count")
	}

	blank, err := repo.HasRecentClick(referral.ID, "  ", now.Add(-5*time.Minute))
	if err != nil {
		t.Fatalf("has recent click failed: %v", err)
	}
	if blank {
		t.Fatalf("blank ip should not match")
	}
}

func TestReferralRepositoryMarkConversionClaimed(t *testing.T) {
	repo, db := setupReferralRepositoryTest(t)
	referral := seedReferral(t, db, 1, 10, "claimcode1")
	now := time.Now().UTC().Truncate(time.Second)

	completed := models.ReferralConversion{
		ReferralID:         referral.ID,
		ReferredCustomerID: 101,
		Status:             constants.ConversionStatusCompleted,
		RewardType:         constants.RewardTypeDiscount,
		RewardAmount:       models.MustMoneyFromString("10.00"),
		ConvertedAt:        now.Add(-time.Hour),
	}
	pending := models.ReferralConversion{
		ReferralID:         referral.ID,
		ReferredCustomerID: 102,
		Status:             constants.ConversionStatusPending,
		ConvertedAt:        now.Add(-time.Hour),
	}
	if err := db.Create(&completed).Error; err != nil {
		t.Fatalf("create completed conversion failed: %v", err)
	}
	if err := db.Create(&pending).Error; err != nil {
		t.Fatalf("create pending conversion failed: %v", err)
	}

	affected, err := repo.MarkConversionClaimed(completed.ID, now)
	if err != nil {
		t.Fatalf("mark claimed failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("affected want 1 got %d", affected)
	}

	var reloaded models.ReferralConversion
	if err := db.First(&reloaded, completed.ID).Error; err != nil {
		t.Fatalf("reload conversion failed: %v", err)
	}
	if !reloaded.RewardClaimed || reloaded.RewardClaimedAt == nil {
		t.Fatalf("expected claimed flags set, got %+v", reloaded)
	}

	// 重复领取与状态不符的转化都不会命中条件更新
	again, err := repo.MarkConversionClaimed(completed.ID, now)
	if err != nil {
		t.Fatalf("mark claimed repeat failed: %v", err)
	}
	if again != 0 {
		t.Fatalf("repeat claim affected want 0 got %d", again)
	}
	skipped, err := repo.MarkConversionClaimed(pending.ID, now)
	if err != nil {
		t.Fatalf("mark claimed pending failed: %v", err)
	}
	if skipped != 0 {
		t.Fatalf("pending claim affected want 0 got %d", skipped)
	}
}

func TestReferralRepositoryRecomputeTotals(t *testing.T) {
	repo, db := setupReferralRepositoryTest(t)
	referral := seedReferral(t, db, 1, 10, "recompute1")
	now := time.Now().UTC().Truncate(time.Second)

	// 先写入偏离明细的累计值，重算后应被覆盖
	if err := db.Model(&models.Referral{}).Where("id = ?", referral.ID).
		Updates(map[string]interface{}{"total_clicks": 99, "total_conversions": 99}).Error; err != nil {
		t.Fatalf("inject drift failed: %v", err)
	}

	clicks := []models.ReferralClick{
		{ReferralID: referral.ID, IPAddress: "10.0.0.1", ClickedAt: now.Add(-2 * time.Hour)},
		{ReferralID: referral.ID, IPAddress: "10.0.0.2", ClickedAt: now.Add(-time.Hour)},
		{ReferralID: referral.ID, IPAddress: "10.0.0.3", ClickedAt: now.Add(-time.Minute)},
	}
	if err := db.Create(&clicks).Error; err != nil {
		t.Fatalf("create clicks failed: %v", err)
	}

	claimedAt := now.Add(-30 * time.Minute)
	conversions := []models.ReferralConversion{
		{
			ReferralID:         referral.ID,
			ReferredCustomerID: 201,
			Status:             constants.ConversionStatusCompleted,
			RewardClaimed:      true,
			RewardClaimedAt:    &claimedAt,
			RewardType:         constants.RewardTypeCashback,
			RewardAmount:       models.MustMoneyFromString("12.50"),
			ConvertedAt:        now.Add(-90 * time.Minute),
		},
		{
			ReferralID:         referral.ID,
			ReferredCustomerID: 202,
			Status:             constants.ConversionStatusCompleted,
			RewardType:         constants.RewardTypeCashback,
			RewardAmount:       models.MustMoneyFromString("12.50"),
			ConvertedAt:        now.Add(-20 * time.Minute),
		},
		{
			ReferralID:         referral.ID,
			ReferredCustomerID: 203,
			Status:             constants.ConversionStatusPending,
			ConvertedAt:        now.Add(-10 * time.Minute),
		},
	}
	if err := db.Create(&conversions).Error; err != nil {
		t.Fatalf("create conversions failed: %v", err)
	}

	agg, err := repo.RecomputeTotals(referral.ID, now)
	if err != nil {
		t.Fatalf("recompute totals failed: %v", err)
	}
	if agg.TotalClicks != 3 || agg.TotalConversions != 3 {
		t.Fatalf("unexpected aggregate: %+v", agg)
	}
	if agg.CompletedConversions != 2 || agg.ClaimedConversions != 1 {
		t.Fatalf("unexpected completed/claimed: %+v", agg)
	}
	if !agg.ClaimedAmount.Equal(decimal.RequireFromString("12.50")) {
		t.Fatalf("claimed amount want 12.50 got %s", agg.ClaimedAmount)
	}

	var reloaded models.Referral
	if err := db.First(&reloaded, referral.ID).Error; err != nil {
		t.Fatalf("reload referral failed: %v", err)
	}
	if reloaded.TotalClicks != 3 || reloaded.TotalConversions != 3 || reloaded.TotalRewardsClaimed != 1 {
		t.Fatalf("drift not corrected: %+v", reloaded)
	}
	if reloaded.LastClickAt == nil || reloaded.LastConversionAt == nil {
		t.Fatalf("expected last activity timestamps set")
	}
}

func TestReferralRepositoryGetCampaignStats(t *testing.T) {
	repo, db := setupReferralRepositoryTest(t)
	now := time.Now().UTC().Truncate(time.Second)

	inCampaign1 := seedReferral(t, db, 1, 10, "stats1a")
	inCampaign1b := seedReferral(t, db, 1, 11, "stats1b")
	other := seedReferral(t, db, 2, 12, "stats2a")

	clicks := []models.ReferralClick{
		{ReferralID: inCampaign1.ID, IPAddress: "10.0.0.1", ClickedAt: now},
		{ReferralID: inCampaign1b.ID, IPAddress: "10.0.0.2", ClickedAt: now},
		{ReferralID: other.ID, IPAddress: "10.0.0.3", ClickedAt: now},
	}
	if err := db.Create(&clicks).Error; err != nil {
		t.Fatalf("create clicks failed: %v", err)
	}
	conversions := []models.ReferralConversion{
		{ReferralID: inCampaign1.ID, ReferredCustomerID: 301, Status: constants.ConversionStatusCompleted, RewardClaimed: true, ConvertedAt: now},
		{ReferralID: inCampaign1b.ID, ReferredCustomerID: 302, Status: constants.ConversionStatusPending, ConvertedAt: now},
		{ReferralID: other.ID, ReferredCustomerID: 303, Status: constants.ConversionStatusCompleted, ConvertedAt: now},
	}
	if err := db.Create(&conversions).Error; err != nil {
		t.Fatalf("create conversions failed: %v", err)
	}

	stats, err := repo.GetCampaignStats(1)
	if err != nil {
		t.Fatalf("campaign stats failed: %v", err)
	}
	if stats.TotalReferralLinks != 2 || stats.TotalClicks != 2 {
		t.Fatalf("unexpected link/click stats: %+v", stats)
	}
	if stats.TotalConversions != 2 || stats.CompletedConversions != 1 || stats.ClaimedConversions != 1 {
		t.Fatalf("unexpected conversion stats: %+v", stats)
	}

	empty, err := repo.GetCampaignStats(0)
	if err != nil {
		t.Fatalf("campaign stats zero id failed: %v", err)
	}
	if empty.TotalReferralLinks != 0 {
		t.Fatalf("zero campaign id should return empty stats")
	}
}

func TestReferralRepositoryListConversionsFilter(t *testing.T) {
	repo, db := setupReferralRepositoryTest(t)
	referral := seedReferral(t, db, 1, 10, "listconv1")
	now := time.Now().UTC().Truncate(time.Second)

	conversions := []models.ReferralConversion{
		{ReferralID: referral.ID, ReferredCustomerID: 401, Status: constants.ConversionStatusCompleted, RewardClaimed: true, ConvertedAt: now},
		{ReferralID: referral.ID, ReferredCustomerID: 402, Status: constants.ConversionStatusCompleted, ConvertedAt: now},
		{ReferralID: referral.ID, ReferredCustomerID: 403, Status: constants.ConversionStatusPending, ConvertedAt: now},
	}
	if err := db.Create(&conversions).Error; err != nil {
		t.Fatalf("create conversions failed: %v", err)
	}

	rows, total, err := repo.ListConversions(ConversionListFilter{
		Page:          1,
		PageSize:      20,
		ReferralID:    referral.ID,
		Status:        constants.ConversionStatusCompleted,
		UnclaimedOnly: true,
	})
	if err != nil {
		t.Fatalf("list conversions failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("want single unclaimed completed row, got total=%d len=%d", total, len(rows))
	}
	if rows[0].ReferredCustomerID != 402 {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
}
