package public

import (
	"strconv"

	"github.com/refermark/refermark/internal/http/response"
	"github.com/refermark/refermark/internal/queue"
	"github.com/refermark/refermark/internal/service"

	"github.com/gin-gonic/gin"
)

// IntegrationConnectRequest 连接集成请求
type IntegrationConnectRequest struct {
	Type       string `json:"type" binding:"required"`
	APIKey     string `json:"api_key"`
	WebhookURL string `json:"webhook_url" binding:"required"`
}

// IntegrationList 商家集成列表
func (h *Handler) IntegrationList(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	integrations, total, err := h.IntegrationService.List(userID, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}

	pagination := response.NewPagination(page, pageSize, total)
	response.SuccessWithPage(c, integrations, pagination)
}

// IntegrationContacts 商家已同步的 CRM 联系人列表
func (h *Handler) IntegrationContacts(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	keyword := c.Query("keyword")

	contacts, total, err := h.IntegrationService.Contacts(userID, page, pageSize, keyword)
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}

	pagination := response.NewPagination(page, pageSize, total)
	response.SuccessWithPage(c, contacts, pagination)
}

// IntegrationConnect 连接集成
func (h *Handler) IntegrationConnect(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req IntegrationConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	integration, err := h.IntegrationService.Connect(userID, service.IntegrationInput{
		Type:       req.Type,
		APIKey:     req.APIKey,
		WebhookURL: req.WebhookURL,
	})
	if err != nil {
		respondWithMappedError(c, err, integrationErrorRules, response.CodeInternal, "error.save_failed")
		return
	}
	response.Success(c, integration)
}

// IntegrationSync 触发集成联系人同步
// 队列可用时入队异步执行；否则同步执行并返回结果
func (h *Handler) IntegrationSync(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseIntegrationID(c)
	if !ok {
		return
	}

	// 先校验归属与状态，避免为不存在的集成入队
	integration, err := h.IntegrationService.Get(userID, id)
	if err != nil {
		respondWithMappedError(c, err, integrationErrorRules, response.CodeInternal, "error.fetch_failed")
		return
	}

	if h.QueueClient.Enabled() {
		if err := h.QueueClient.EnqueueIntegrationSync(queue.IntegrationSyncPayload{
			BusinessID:    userID,
			IntegrationID: integration.ID,
		}); err != nil {
			requestLog(c).Errorw("integration_sync_enqueue_failed", "integration_id", integration.ID, "error", err)
			respondError(c, response.CodeInternal, "error.queue_unavailable", err)
			return
		}
		response.Success(c, gin.H{"queued": true, "integration_id": integration.ID})
		return
	}

	result, err := h.IntegrationService.Sync(c.Request.Context(), userID, id)
	if err != nil {
		respondWithMappedError(c, err, integrationErrorRules, response.CodeInternal, "error.sync_failed")
		return
	}
	response.Success(c, result)
}

// IntegrationDelete 删除集成
func (h *Handler) IntegrationDelete(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseIntegrationID(c)
	if !ok {
		return
	}

	if err := h.IntegrationService.Delete(userID, id); err != nil {
		respondWithMappedError(c, err, integrationErrorRules, response.CodeInternal, "error.save_failed")
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

func parseIntegrationID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return 0, false
	}
	return uint(id), true
}
