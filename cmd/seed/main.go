package main

import (
	"time"

	"github.com/refermark/refermark/internal/config"
	"github.com/refermark/refermark/internal/constants"
	"github.com/refermark/refermark/internal/logger"
	"github.com/refermark/refermark/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 默认管理员
	if err := models.InitDefaultAdmin("", ""); err != nil {
		stdLog.Printf("Failed to init default admin: %v", err)
	}

	// 演示商家账号
	demoEmail := "demo@refermark.dev"
	var user models.User
	if err := models.DB.Where("email = ?", demoEmail).First(&user).Error; err != nil {
		hash, hashErr := bcrypt.GenerateFromPassword([]byte("Demo#2026"), bcrypt.DefaultCost)
		if hashErr != nil {
			stdLog.Fatalf("Failed to hash demo password: %v", hashErr)
		}
		user = models.User{
			Email:        demoEmail,
			PasswordHash: string(hash),
			DisplayName:  "Demo Coffee Roasters",
			Status:       constants.UserStatusActive,
		}
		if err := models.DB.Create(&user).Error; err != nil {
			stdLog.Fatalf("Failed to create demo user: %v", err)
		}
		stdLog.Printf("Created demo user: %s", demoEmail)
	} else {
		stdLog.Printf("Demo user already exists: %s", demoEmail)
	}

	// 商家档案
	var profile models.BusinessProfile
	if err := models.DB.Where("user_id = ?", user.ID).First(&profile).Error; err != nil {
		profile = models.BusinessProfile{
			UserID:       user.ID,
			BusinessName: "Demo Coffee Roasters",
			Industry:     "food_and_beverage",
			Website:      "https://demo.refermark.dev",
		}
		if err := models.DB.Create(&profile).Error; err != nil {
			stdLog.Fatalf("Failed to create business profile: %v", err)
		}
		stdLog.Printf("Created business profile: %s", profile.BusinessName)
	}

	// 演示活动
	var campaign models.Campaign
	if err := models.DB.Where("business_id = ? AND name = ?", user.ID, "Refer a Friend").First(&campaign).Error; err != nil {
		now := time.Now()
		campaign = models.Campaign{
			BusinessID:          user.ID,
			Name:                "Refer a Friend",
			TaskType:            constants.CampaignTaskTypePurchase,
			TaskDescription:     "Friend places a first order of any size",
			RewardType:          constants.RewardTypeDiscount,
			RewardValue:         models.NewMoneyFromDecimal(decimal.NewFromFloat(10)),
			RewardDetails:       "10% off the next order",
			StartDate:           now.AddDate(0, 0, -7),
			EndDate:             now.AddDate(0, 3, 0),
			NotificationMessage: "Thanks for spreading the word!",
			Status:              constants.CampaignStatusActive,
		}
		if err := models.DB.Create(&campaign).Error; err != nil {
			stdLog.Fatalf("Failed to create campaign: %v", err)
		}
		stdLog.Printf("Created campaign: %s", campaign.Name)
	}

	// 演示客户
	customers := []models.Customer{
		{BusinessID: user.ID, Name: "Alice Zhang", Email: "alice@example.com", Source: constants.CustomerSourceManual},
		{BusinessID: user.ID, Name: "Bob Liu", Email: "bob@example.com", Source: constants.CustomerSourceManual},
		{BusinessID: user.ID, Name: "Carol Wen", Email: "carol@example.com", Source: constants.CustomerSourceManual},
	}
	for _, customer := range customers {
		var existing models.Customer
		if err := models.DB.Where("business_id = ? AND email = ?", customer.BusinessID, customer.Email).First(&existing).Error; err != nil {
			if err := models.DB.Create(&customer).Error; err != nil {
				stdLog.Printf("Failed to create customer %s: %v", customer.Email, err)
			} else {
				stdLog.Printf("Created customer: %s", customer.Email)
			}
		} else {
			stdLog.Printf("Customer already exists: %s", customer.Email)
		}
	}

	stdLog.Printf("Seed finished")
}
