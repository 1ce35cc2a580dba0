package admin

import (
	"errors"
	"strconv"

	"github.com/refermark/refermark/internal/http/response"
	"github.com/refermark/refermark/internal/models"
	"github.com/refermark/refermark/internal/queue"
	"github.com/refermark/refermark/internal/repository"
	"github.com/refermark/refermark/internal/service"

	"github.com/gin-gonic/gin"
)

// CampaignList 全平台活动列表（可按商家过滤）
func (h *Handler) CampaignList(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	businessID, _ := strconv.ParseUint(c.Query("business_id"), 10, 64)

	campaigns, total, err := h.CampaignRepo.List(repository.CampaignListFilter{
		BusinessID: uint(businessID),
		Keyword:    c.Query("search"),
		Status:     c.Query("status"),
		TaskType:   c.Query("task_type"),
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}

	pagination := response.NewPagination(page, pageSize, total)
	response.SuccessWithPage(c, campaigns, pagination)
}

// CampaignStatusRequest 活动状态变更请求
type CampaignStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// CampaignUpdateStatus 管理员变更活动状态
func (h *Handler) CampaignUpdateStatus(c *gin.Context) {
	id, ok := parseAdminCampaignID(c)
	if !ok {
		return
	}

	var req CampaignStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	campaign, ok := h.loadCampaign(c, id)
	if !ok {
		return
	}

	updated, err := h.CampaignService.UpdateStatus(c.Request.Context(), campaign.BusinessID, id, req.Status)
	if err != nil {
		if errors.Is(err, service.ErrCampaignStatusInvalid) {
			respondError(c, response.CodeBadRequest, "error.campaign_status_invalid", nil)
			return
		}
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.campaign_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.save_failed", err)
		return
	}
	response.Success(c, updated)
}

// CampaignStats 管理员查看活动统计
func (h *Handler) CampaignStats(c *gin.Context) {
	id, ok := parseAdminCampaignID(c)
	if !ok {
		return
	}

	campaign, ok := h.loadCampaign(c, id)
	if !ok {
		return
	}

	stats, err := h.ReferralService.CampaignStats(campaign.BusinessID, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.campaign_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}
	response.Success(c, stats)
}

// CampaignReconcile 触发活动计数对账
func (h *Handler) CampaignReconcile(c *gin.Context) {
	id, ok := parseAdminCampaignID(c)
	if !ok {
		return
	}

	if _, ok := h.loadCampaign(c, id); !ok {
		return
	}

	if h.QueueClient != nil && h.QueueClient.Enabled() {
		if err := h.QueueClient.EnqueueCampaignCounterReconcile(queue.CampaignCounterReconcilePayload{CampaignID: id}); err != nil {
			requestLog(c).Errorw("admin_campaign_reconcile_enqueue_failed", "campaign_id", id, "error", err)
			respondError(c, response.CodeInternal, "error.queue_unavailable", err)
			return
		}
		response.Success(c, gin.H{"campaign_id": id, "queued": true})
		return
	}

	if err := h.ReferralService.ReconcileCampaignCounters(id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.campaign_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, gin.H{"campaign_id": id, "queued": false})
}

func (h *Handler) loadCampaign(c *gin.Context, id uint) (*models.Campaign, bool) {
	campaign, err := h.CampaignRepo.GetByID(id)
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return nil, false
	}
	if campaign == nil {
		respondError(c, response.CodeNotFound, "error.campaign_not_found", nil)
		return nil, false
	}
	return campaign, true
}

func parseAdminCampaignID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return 0, false
	}
	return uint(id), true
}
