package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/refermark/refermark/internal/constants"
	"github.com/refermark/refermark/internal/models"
	"github.com/refermark/refermark/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupCampaignServiceTest(t *testing.T) (*CampaignService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:campaign_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Campaign{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewCampaignService(repository.NewCampaignRepository(db)), db
}

func campaignTestInput(status string) CampaignInput {
	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(30 * 24 * time.Hour)
	return CampaignInput{
		Name:            "Spring Referral",
		TaskType:        constants.CampaignTaskTypeReview,
		TaskDescription: "leave a review",
		RewardType:      constants.RewardTypeCashback,
		RewardValue:     models.NewMoneyFromInt(5),
		StartDate:       &start,
		EndDate:         &end,
		Status:          status,
	}
}

func TestCampaignCreateValidation(t *testing.T) {
	svc, _ := setupCampaignServiceTest(t)

	valid := campaignTestInput(constants.CampaignStatusDraft)
	campaign, err := svc.Create(1, valid)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if campaign.Status != constants.CampaignStatusDraft {
		t.Fatalf("expected draft status, got %q", campaign.Status)
	}

	noName := valid
	noName.Name = "  "
	if _, err := svc.Create(1, noName); !errors.Is(err, ErrCampaignInvalid) {
		t.Fatalf("expected ErrCampaignInvalid for empty name, got %v", err)
	}

	badTask := valid
	badTask.TaskType = "skydiving"
	if _, err := svc.Create(1, badTask); !errors.Is(err, ErrCampaignInvalid) {
		t.Fatalf("expected ErrCampaignInvalid for bad task type, got %v", err)
	}

	backwards := valid
	backwards.StartDate, backwards.EndDate = backwards.EndDate, backwards.StartDate
	if _, err := svc.Create(1, backwards); !errors.Is(err, ErrCampaignInvalid) {
		t.Fatalf("expected ErrCampaignInvalid for reversed dates, got %v", err)
	}

	negative := valid
	negative.RewardValue = models.NewMoneyFromInt(-1)
	if _, err := svc.Create(1, negative); !errors.Is(err, ErrCampaignInvalid) {
		t.Fatalf("expected ErrCampaignInvalid for negative reward, got %v", err)
	}

	completed := valid
	completed.Status = constants.CampaignStatusCompleted
	if _, err := svc.Create(1, completed); !errors.Is(err, ErrCampaignInvalid) {
		t.Fatalf("expected ErrCampaignInvalid for completed initial status, got %v", err)
	}
}

func TestCampaignStatusTransitions(t *testing.T) {
	svc, _ := setupCampaignServiceTest(t)
	ctx := context.Background()

	campaign, err := svc.Create(1, campaignTestInput(constants.CampaignStatusDraft))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	steps := []struct {
		target string
		wantErr error
	}{
		{constants.CampaignStatusPaused, ErrCampaignStatusInvalid}, // draft 不能直接暂停
		{constants.CampaignStatusActive, nil},
		{constants.CampaignStatusPaused, nil},
		{constants.CampaignStatusActive, nil},
		{constants.CampaignStatusCompleted, nil},
		{constants.CampaignStatusActive, ErrCampaignStatusInvalid}, // completed 为终态
	}
	for i, step := range steps {
		updated, err := svc.UpdateStatus(ctx, 1, campaign.ID, step.target)
		if step.wantErr != nil {
			if !errors.Is(err, step.wantErr) {
				t.Fatalf("step %d: expected %v, got %v", i, step.wantErr, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("step %d: transition to %q failed: %v", i, step.target, err)
		}
		if updated.Status != step.target {
			t.Fatalf("step %d: expected status %q, got %q", i, step.target, updated.Status)
		}
	}
}

func TestCampaignStatusSameTargetIsNoop(t *testing.T) {
	svc, _ := setupCampaignServiceTest(t)

	campaign, err := svc.Create(1, campaignTestInput(constants.CampaignStatusActive))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	updated, err := svc.UpdateStatus(context.Background(), 1, campaign.ID, constants.CampaignStatusActive)
	if err != nil {
		t.Fatalf("same-status update failed: %v", err)
	}
	if updated.Status != constants.CampaignStatusActive {
		t.Fatalf("expected active, got %q", updated.Status)
	}
}

func TestCampaignOwnershipScoping(t *testing.T) {
	svc, _ := setupCampaignServiceTest(t)

	campaign, err := svc.Create(1, campaignTestInput(constants.CampaignStatusDraft))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.Get(2, campaign.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign business get, got %v", err)
	}
	if err := svc.Delete(context.Background(), 2, campaign.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign business delete, got %v", err)
	}
	if err := svc.Delete(context.Background(), 1, campaign.ID); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}
	if _, err := svc.Get(1, campaign.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestCampaignAutoCompleteExpired(t *testing.T) {
	svc, db := setupCampaignServiceTest(t)

	expired, err := svc.Create(1, campaignTestInput(constants.CampaignStatusActive))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	// 直接把结束时间改到过去，模拟到期活动
	if err := db.Model(&models.Campaign{}).Where("id = ?", expired.ID).
		Update("end_date", time.Now().Add(-time.Hour)).Error; err != nil {
		t.Fatalf("backdate end_date failed: %v", err)
	}

	running, err := svc.Create(1, campaignTestInput(constants.CampaignStatusActive))
	if err != nil {
		t.Fatalf("create running campaign failed: %v", err)
	}

	count, err := svc.AutoCompleteExpired(context.Background(), 100)
	if err != nil {
		t.Fatalf("auto complete failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 completed campaign, got %d", count)
	}

	reloadedExpired, err := svc.Get(1, expired.ID)
	if err != nil {
		t.Fatalf("reload expired failed: %v", err)
	}
	if reloadedExpired.Status != constants.CampaignStatusCompleted {
		t.Fatalf("expected expired campaign completed, got %q", reloadedExpired.Status)
	}

	reloadedRunning, err := svc.Get(1, running.ID)
	if err != nil {
		t.Fatalf("reload running failed: %v", err)
	}
	if reloadedRunning.Status != constants.CampaignStatusActive {
		t.Fatalf("expected running campaign untouched, got %q", reloadedRunning.Status)
	}
}

func TestCampaignUpdateRebuildsFields(t *testing.T) {
	svc, _ := setupCampaignServiceTest(t)

	campaign, err := svc.Create(1, campaignTestInput(constants.CampaignStatusDraft))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	input := campaignTestInput(constants.CampaignStatusDraft)
	input.Name = "Renamed Campaign"
	input.RewardValue = models.NewMoneyFromInt(8)
	updated, err := svc.Update(context.Background(), 1, campaign.ID, input)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Name != "Renamed Campaign" {
		t.Fatalf("expected renamed campaign, got %q", updated.Name)
	}
	if updated.RewardValue.String() != "8" {
		t.Fatalf("expected reward 8, got %s", updated.RewardValue)
	}
}
