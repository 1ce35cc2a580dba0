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

func setupBusinessServiceTest(t *testing.T) (*BusinessService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:business_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.BusinessProfile{}, &models.Customer{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	svc := NewBusinessService(
		repository.NewBusinessProfileRepository(db),
		repository.NewCustomerRepository(db),
	)
	return svc, db
}

func TestBusinessUpsertProfileCreatesThenUpdates(t *testing.T) {
	svc, _ := setupBusinessServiceTest(t)

	if _, err := svc.UpsertProfile(1, BusinessProfileInput{BusinessName: "   "}); !errors.Is(err, ErrBusinessProfileInvalid) {
		t.Fatalf("expected ErrBusinessProfileInvalid, got %v", err)
	}

	created, err := svc.UpsertProfile(1, BusinessProfileInput{
		BusinessName: "  Acme Coffee  ",
		Industry:     "food",
		Website:      "https://acme.example.com",
	})
	if err != nil {
		t.Fatalf("upsert create failed: %v", err)
	}
	if created.BusinessName != "Acme Coffee" || created.UserID != 1 {
		t.Fatalf("unexpected profile: %+v", created)
	}

	updated, err := svc.UpsertProfile(1, BusinessProfileInput{BusinessName: "Acme Tea", Industry: "beverage"})
	if err != nil {
		t.Fatalf("upsert update failed: %v", err)
	}
	if updated.ID != created.ID {
		t.Fatalf("expected same profile row, got %d then %d", created.ID, updated.ID)
	}
	if updated.BusinessName != "Acme Tea" || updated.Industry != "beverage" {
		t.Fatalf("unexpected updated profile: %+v", updated)
	}
}

func TestBusinessGetProfileMissing(t *testing.T) {
	svc, _ := setupBusinessServiceTest(t)

	if _, err := svc.GetProfile(42); !errors.Is(err, ErrBusinessProfileMissing) {
		t.Fatalf("expected ErrBusinessProfileMissing, got %v", err)
	}
}

func TestBusinessCustomerCount(t *testing.T) {
	svc, db := setupBusinessServiceTest(t)

	customers := []models.Customer{
		{BusinessID: 1, Name: "A", Email: "a@example.com", Source: constants.CustomerSourceManual, Status: constants.CustomerStatusActive},
		{BusinessID: 1, Name: "B", Email: "b@example.com", Source: constants.CustomerSourceManual, Status: constants.CustomerStatusActive},
		{BusinessID: 2, Name: "C", Email: "c@example.com", Source: constants.CustomerSourceManual, Status: constants.CustomerStatusActive},
	}
	if err := db.Create(&customers).Error; err != nil {
		t.Fatalf("seed customers failed: %v", err)
	}

	count, err := svc.CustomerCount(1)
	if err != nil {
		t.Fatalf("customer count failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("count want 2 got %d", count)
	}
}

func TestBusinessListBusinessesKeyword(t *testing.T) {
	svc, _ := setupBusinessServiceTest(t)

	if _, err := svc.UpsertProfile(1, BusinessProfileInput{BusinessName: "Northwind Coffee"}); err != nil {
		t.Fatalf("seed profile failed: %v", err)
	}
	if _, err := svc.UpsertProfile(2, BusinessProfileInput{BusinessName: "Southsea Tea"}); err != nil {
		t.Fatalf("seed profile failed: %v", err)
	}

	rows, total, err := svc.ListBusinesses("coffee", 1, 20)
	if err != nil {
		t.Fatalf("list businesses failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("want single match, got total=%d len=%d", total, len(rows))
	}
	if rows[0].BusinessName != "Northwind Coffee" {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
}
