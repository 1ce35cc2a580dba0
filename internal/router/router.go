package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/refermark/refermark/internal/authz"
	"github.com/refermark/refermark/internal/cache"
	"github.com/refermark/refermark/internal/config"
	adminhandlers "github.com/refermark/refermark/internal/http/handlers/admin"
	publichandlers "github.com/refermark/refermark/internal/http/handlers/public"
	"github.com/refermark/refermark/internal/http/response"
	"github.com/refermark/refermark/internal/logger"
	"github.com/refermark/refermark/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)

	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "rm"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.LoginRateLimit.BlockSeconds,
		MessageKey:    "error.login_too_many",
	}
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.LoginRateLimit.BlockSeconds,
		MessageKey:    "error.login_too_many",
	}
	trackRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:track", redisPrefix),
		WindowSeconds: cfg.Security.TrackRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.TrackRateLimit.MaxRequests,
	}

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		// 公开接口（被推荐人访问，无需登录）
		apiV1.GET("/referrals/track/:code",
			RateLimitMiddleware(redisClient, trackRule, KeyByIPAndParam("code")),
			publicHandler.ReferralTrack)
		apiV1.POST("/referrals/convert/:code",
			RateLimitMiddleware(redisClient, trackRule, KeyByIPAndParam("code")),
			publicHandler.ReferralConvert)

		// 商家账号认证
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", publicHandler.UserRegister)
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")), publicHandler.UserLogin)
		}

		// 商家接口（需鉴权）
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, c.UserRepo))
		{
			user.GET("/me", publicHandler.UserProfile)
			user.PUT("/me/password", publicHandler.UserChangePassword)

			user.POST("/referrals/generate", publicHandler.ReferralGenerate)
			user.POST("/referrals/complete-task/:code", publicHandler.ReferralCompleteTask)
			user.POST("/referrals/claim-reward/:code", publicHandler.ReferralClaimReward)
			user.GET("/referrals/stats/:campaign_id", publicHandler.ReferralStats)
			user.GET("/referrals/reward-status/:code/:conversion_id", publicHandler.ReferralRewardStatus)

			user.POST("/campaigns", publicHandler.CampaignCreate)
			user.GET("/campaigns", publicHandler.CampaignList)
			user.GET("/campaigns/:id", publicHandler.CampaignGet)
			user.PUT("/campaigns/:id", publicHandler.CampaignUpdate)
			user.PUT("/campaigns/:id/status", publicHandler.CampaignUpdateStatus)
			user.DELETE("/campaigns/:id", publicHandler.CampaignDelete)

			user.POST("/customers", publicHandler.CustomerCreate)
			user.GET("/customers/campaigns", publicHandler.CustomerCampaigns)
			user.GET("/customers/:id", publicHandler.CustomerGet)
			user.DELETE("/customers/:id", publicHandler.CustomerDelete)

			user.GET("/business/profile", publicHandler.GetBusinessProfile)
			user.POST("/business/profile", publicHandler.UpsertBusinessProfile)
			user.GET("/business/customers", publicHandler.GetBusinessCustomers)
			user.POST("/business/zapier/connect", publicHandler.ConnectZapier)

			user.GET("/integrations", publicHandler.IntegrationList)
			user.GET("/integrations/contacts", publicHandler.IntegrationContacts)
			user.POST("/integrations", publicHandler.IntegrationConnect)
			user.POST("/integrations/:id/sync", publicHandler.IntegrationSync)
			user.DELETE("/integrations/:id", publicHandler.IntegrationDelete)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			admin.POST("/auth/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIP), adminHandler.AdminLogin)

			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo), AdminRBACMiddleware(c.AuthzService))
			{
				authorized.PUT("/password", adminHandler.UpdateAdminPassword)

				authorized.GET("/businesses", adminHandler.BusinessList)
				authorized.GET("/users", adminHandler.UserList)

				authorized.GET("/campaigns", adminHandler.CampaignList)
				authorized.PUT("/campaigns/:id/status", adminHandler.CampaignUpdateStatus)
				authorized.GET("/campaigns/:id/stats", adminHandler.CampaignStats)
				authorized.POST("/campaigns/:id/reconcile", adminHandler.CampaignReconcile)

				authorized.GET("/authz/roles", adminHandler.RoleList)
				authorized.POST("/authz/roles", adminHandler.RoleCreate)
				authorized.DELETE("/authz/roles/:role", adminHandler.RoleDelete)
				authorized.GET("/authz/roles/:role/policies", adminHandler.RolePolicies)
				authorized.POST("/authz/roles/:role/policies", adminHandler.RolePolicyGrant)
				authorized.DELETE("/authz/roles/:role/policies", adminHandler.RolePolicyRevoke)
				authorized.GET("/authz/admins/:id/roles", adminHandler.AdminRolesGet)
				authorized.PUT("/authz/admins/:id/roles", adminHandler.AdminRolesSet)
				authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r))
				})
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		if item.Path == "/api/v1/admin/auth/login" {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "authz" {
		return "authz"
	}
	return segments[1]
}
