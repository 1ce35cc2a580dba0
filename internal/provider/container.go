package provider

import (
	"github.com/refermark/refermark/internal/authz"
	"github.com/refermark/refermark/internal/cache"
	"github.com/refermark/refermark/internal/config"
	"github.com/refermark/refermark/internal/logger"
	"github.com/refermark/refermark/internal/models"
	"github.com/refermark/refermark/internal/queue"
	"github.com/refermark/refermark/internal/repository"
	"github.com/refermark/refermark/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo           repository.AdminRepository
	UserRepo            repository.UserRepository
	BusinessProfileRepo repository.BusinessProfileRepository
	CustomerRepo        repository.CustomerRepository
	CampaignRepo        repository.CampaignRepository
	ReferralRepo        repository.ReferralRepository
	IntegrationRepo     repository.IntegrationRepository

	// Services
	AuthzService       *authz.Service
	AuthService        *service.AuthService
	UserAuthService    *service.UserAuthService
	BusinessService    *service.BusinessService
	CustomerService    *service.CustomerService
	CampaignService    *service.CampaignService
	ReferralService    *service.ReferralService
	RewardService      *service.RewardService
	IntegrationService *service.IntegrationService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	c.initRepositories()
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.BusinessProfileRepo = repository.NewBusinessProfileRepository(db)
	c.CustomerRepo = repository.NewCustomerRepository(db)
	c.CampaignRepo = repository.NewCampaignRepository(db)
	c.ReferralRepo = repository.NewReferralRepository(db)
	c.IntegrationRepo = repository.NewIntegrationRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo)
	c.BusinessService = service.NewBusinessService(c.BusinessProfileRepo, c.CustomerRepo)
	c.CustomerService = service.NewCustomerService(c.CustomerRepo, c.CampaignRepo, c.ReferralRepo)
	c.CampaignService = service.NewCampaignService(c.CampaignRepo)
	c.ReferralService = service.NewReferralService(c.ReferralRepo, c.CampaignRepo, c.CustomerRepo, c.UserRepo, service.ReferralServiceOptions{
		CodeLength:         c.Config.Referral.CodeLength,
		MaxCodeAttempts:    c.Config.Referral.MaxCodeAttempts,
		ClickDedupeSeconds: c.Config.Referral.ClickDedupeSeconds,
		FrontendURL:        c.Config.FrontendURL,
	})
	c.RewardService = service.NewRewardService(c.ReferralRepo, c.CampaignRepo, c.CustomerRepo, c.Config.Referral.MinClaimableConversions)
	c.IntegrationService = service.NewIntegrationService(c.IntegrationRepo, c.CustomerRepo, service.IntegrationServiceOptions{
		SyncTimeoutSeconds: c.Config.Integration.SyncTimeoutSeconds,
		SyncBatchSize:      c.Config.Integration.SyncBatchSize,
	})
}
