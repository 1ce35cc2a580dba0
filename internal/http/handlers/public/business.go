package public

import (
	"errors"
	"strconv"

	"github.com/refermark/refermark/internal/constants"
	"github.com/refermark/refermark/internal/http/response"
	"github.com/refermark/refermark/internal/service"

	"github.com/gin-gonic/gin"
)

// BusinessProfileRequest 商家资料请求
type BusinessProfileRequest struct {
	BusinessName string `json:"business_name" binding:"required"`
	Industry     string `json:"industry"`
	Website      string `json:"website"`
}

// GetBusinessProfile 获取当前账号商家资料
func (h *Handler) GetBusinessProfile(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	profile, err := h.BusinessService.GetProfile(userID)
	if err != nil {
		if errors.Is(err, service.ErrBusinessProfileMissing) {
			respondError(c, response.CodeNotFound, "error.business_profile_missing", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	response.Success(c, profile)
}

// UpsertBusinessProfile 创建或更新商家资料
func (h *Handler) UpsertBusinessProfile(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req BusinessProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	profile, err := h.BusinessService.UpsertProfile(userID, service.BusinessProfileInput{
		BusinessName: req.BusinessName,
		Industry:     req.Industry,
		Website:      req.Website,
	})
	if err != nil {
		if errors.Is(err, service.ErrBusinessProfileInvalid) {
			respondError(c, response.CodeBadRequest, "error.business_profile_invalid", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.save_failed", err)
		return
	}
	response.Success(c, profile)
}

// GetBusinessCustomers 商家客户列表
func (h *Handler) GetBusinessCustomers(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	customers, total, err := h.CustomerService.List(
		userID,
		c.Query("search"),
		c.Query("source"),
		c.Query("status"),
		page, pageSize,
	)
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}

	pagination := response.NewPagination(page, pageSize, total)
	response.SuccessWithPage(c, customers, pagination)
}

// ZapierConnectRequest Zapier 连接请求
type ZapierConnectRequest struct {
	WebhookURL string `json:"webhook_url" binding:"required"`
	APIKey     string `json:"api_key" binding:"required"`
}

// ConnectZapier 连接 Zapier 集成
func (h *Handler) ConnectZapier(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req ZapierConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	integration, err := h.IntegrationService.Connect(userID, service.IntegrationInput{
		Type:       constants.IntegrationTypeZapier,
		APIKey:     req.APIKey,
		WebhookURL: req.WebhookURL,
	})
	if err != nil {
		respondWithMappedError(c, err, integrationErrorRules, response.CodeInternal, "error.save_failed")
		return
	}
	response.Success(c, integration)
}
