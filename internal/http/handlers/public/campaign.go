package public

import (
	"strconv"
	"time"

	"github.com/refermark/refermark/internal/http/response"
	"github.com/refermark/refermark/internal/models"
	"github.com/refermark/refermark/internal/service"

	"github.com/gin-gonic/gin"
)

// CampaignRequest 创建/更新活动请求
type CampaignRequest struct {
	Name                string       `json:"name" binding:"required"`
	TaskType            string       `json:"task_type" binding:"required"`
	TaskDescription     string       `json:"task_description"`
	RewardType          string       `json:"reward_type" binding:"required"`
	RewardValue         models.Money `json:"reward_value"`
	RewardDetails       string       `json:"reward_details"`
	StartDate           *time.Time   `json:"start_date" binding:"required"`
	EndDate             *time.Time   `json:"end_date" binding:"required"`
	NotificationMessage string       `json:"notification_message"`
	Status              string       `json:"status"`
}

func (r CampaignRequest) toInput() service.CampaignInput {
	return service.CampaignInput{
		Name:                r.Name,
		TaskType:            r.TaskType,
		TaskDescription:     r.TaskDescription,
		RewardType:          r.RewardType,
		RewardValue:         r.RewardValue,
		RewardDetails:       r.RewardDetails,
		StartDate:           r.StartDate,
		EndDate:             r.EndDate,
		NotificationMessage: r.NotificationMessage,
		Status:              r.Status,
	}
}

// CampaignCreate 创建活动
func (h *Handler) CampaignCreate(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req CampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	campaign, err := h.CampaignService.Create(userID, req.toInput())
	if err != nil {
		respondWithMappedError(c, err, campaignWriteErrorRules, response.CodeInternal, "error.save_failed")
		return
	}
	response.Success(c, campaign)
}

// CampaignList 商家活动列表
func (h *Handler) CampaignList(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	campaigns, total, err := h.CampaignService.List(
		userID,
		c.Query("search"),
		c.Query("status"),
		c.Query("task_type"),
		page, pageSize,
	)
	if err != nil {
		respondError(c, response.CodeInternal, "error.fetch_failed", err)
		return
	}

	pagination := response.NewPagination(page, pageSize, total)
	response.SuccessWithPage(c, campaigns, pagination)
}

// CampaignGet 获取单个活动
func (h *Handler) CampaignGet(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseCampaignID(c)
	if !ok {
		return
	}

	campaign, err := h.CampaignService.Get(userID, id)
	if err != nil {
		respondWithMappedError(c, err, campaignWriteErrorRules, response.CodeInternal, "error.fetch_failed")
		return
	}
	response.Success(c, campaign)
}

// CampaignUpdate 更新活动
func (h *Handler) CampaignUpdate(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseCampaignID(c)
	if !ok {
		return
	}

	var req CampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	campaign, err := h.CampaignService.Update(c.Request.Context(), userID, id, req.toInput())
	if err != nil {
		respondWithMappedError(c, err, campaignWriteErrorRules, response.CodeInternal, "error.save_failed")
		return
	}
	response.Success(c, campaign)
}

// CampaignUpdateStatusRequest 活动状态变更请求
type CampaignUpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// CampaignUpdateStatus 变更活动状态
func (h *Handler) CampaignUpdateStatus(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseCampaignID(c)
	if !ok {
		return
	}

	var req CampaignUpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	campaign, err := h.CampaignService.UpdateStatus(c.Request.Context(), userID, id, req.Status)
	if err != nil {
		respondWithMappedError(c, err, campaignWriteErrorRules, response.CodeInternal, "error.save_failed")
		return
	}
	response.Success(c, campaign)
}

// CampaignDelete 删除活动
func (h *Handler) CampaignDelete(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseCampaignID(c)
	if !ok {
		return
	}

	if err := h.CampaignService.Delete(c.Request.Context(), userID, id); err != nil {
		respondWithMappedError(c, err, campaignWriteErrorRules, response.CodeInternal, "error.save_failed")
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

func parseCampaignID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return 0, false
	}
	return uint(id), true
}
