package service

import (
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

func setupCustomerServiceTest(t *testing.T) (*CustomerService, *ReferralService, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:customer_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
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

	customerRepo := repository.NewCustomerRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	referralRepo := repository.NewReferralRepository(db)

	customerSvc := NewCustomerService(customerRepo, campaignRepo, referralRepo)
	referralSvc := NewReferralService(referralRepo, campaignRepo, customerRepo, repository.NewUserRepository(db), ReferralServiceOptions{})
	return customerSvc, referralSvc, db
}

func TestCustomerCreateValidatesAndNormalizes(t *testing.T) {
	svc, _, _ := setupCustomerServiceTest(t)

	customer, err := svc.Create(1, CustomerInput{Name: "Alice", Email: "  Alice@Example.COM "})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if customer.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", customer.Email)
	}
	if customer.Source != constants.CustomerSourceManual || customer.Status != constants.CustomerStatusActive {
		t.Fatalf("expected manual/active defaults, got %q/%q", customer.Source, customer.Status)
	}

	if _, err := svc.Create(1, CustomerInput{Email: "noname@example.com"}); !errors.Is(err, ErrCustomerInvalid) {
		t.Fatalf("expected ErrCustomerInvalid without name, got %v", err)
	}
	if _, err := svc.Create(1, CustomerInput{Name: "NoMail"}); !errors.Is(err, ErrCustomerInvalid) {
		t.Fatalf("expected ErrCustomerInvalid without email, got %v", err)
	}

	if _, err := svc.Create(1, CustomerInput{Name: "Alice Again", Email: "alice@example.com"}); !errors.Is(err, ErrCustomerExists) {
		t.Fatalf("expected ErrCustomerExists for duplicate email, got %v", err)
	}

	// 同一邮箱在另一个商家下仍可创建
	if _, err := svc.Create(2, CustomerInput{Name: "Alice Elsewhere", Email: "alice@example.com"}); err != nil {
		t.Fatalf("cross-business create failed: %v", err)
	}
}

func TestCustomerOwnershipScoping(t *testing.T) {
	svc, _, _ := setupCustomerServiceTest(t)

	customer, err := svc.Create(1, CustomerInput{Name: "Scoped", Email: "scoped@example.com"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.GetByID(2, customer.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign business, got %v", err)
	}
	if err := svc.Delete(2, customer.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign delete, got %v", err)
	}
	if err := svc.Delete(1, customer.ID); err != nil {
		t.Fatalf("owner delete failed: %v", err)
	}
}

func TestCustomerActiveCampaignsWithReferralCode(t *testing.T) {
	svc, referralSvc, db := setupCustomerServiceTest(t)

	now := time.Now()
	active := models.Campaign{
		BusinessID:      1,
		Name:            "Active Campaign",
		TaskType:        constants.CampaignTaskTypePurchase,
		TaskDescription: "buy once",
		RewardType:      constants.RewardTypeGift,
		RewardValue:     models.NewMoneyFromInt(1),
		StartDate:       now.Add(-time.Hour),
		EndDate:         now.Add(24 * time.Hour),
		Status:          constants.CampaignStatusActive,
	}
	if err := db.Create(&active).Error; err != nil {
		t.Fatalf("create active campaign failed: %v", err)
	}
	ended := active
	ended.ID = 0
	ended.Name = "Ended Campaign"
	ended.EndDate = now.Add(-time.Minute)
	if err := db.Create(&ended).Error; err != nil {
		t.Fatalf("create ended campaign failed: %v", err)
	}

	customer, err := svc.Create(1, CustomerInput{Name: "Participant", Email: "participant@example.com"})
	if err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	link, err := referralSvc.GetOrCreate(1, active.ID, customer.ID)
	if err != nil {
		t.Fatalf("get_or_create failed: %v", err)
	}

	items, err := svc.ActiveCampaigns(1, "participant@example.com")
	if err != nil {
		t.Fatalf("active campaigns failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 active campaign, got %d", len(items))
	}
	if items[0].Campaign.ID != active.ID {
		t.Fatalf("expected active campaign %d, got %d", active.ID, items[0].Campaign.ID)
	}
	if items[0].ReferralCode != link.ReferralCode {
		t.Fatalf("expected referral code %q, got %q", link.ReferralCode, items[0].ReferralCode)
	}

	if _, err := svc.ActiveCampaigns(1, "stranger@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown customer, got %v", err)
	}
	if _, err := svc.ActiveCampaigns(1, " "); !errors.Is(err, ErrCustomerInvalid) {
		t.Fatalf("expected ErrCustomerInvalid for empty email, got %v", err)
	}
}
