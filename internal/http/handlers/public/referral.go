package public

import (
	"strconv"

	"github.com/refermark/refermark/internal/http/response"
	"github.com/refermark/refermark/internal/service"

	"github.com/gin-gonic/gin"
)

// ReferralGenerateRequest 生成推荐链接请求
type ReferralGenerateRequest struct {
	CampaignID uint `json:"campaign_id" binding:"required"`
	CustomerID uint `json:"customer_id" binding:"required"`
}

// ReferralGenerate 为客户在活动内生成（或取回）推荐链接
func (h *Handler) ReferralGenerate(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req ReferralGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	link, err := h.ReferralService.GetOrCreate(userID, req.CampaignID, req.CustomerID)
	if err != nil {
		respondWithMappedError(c, err, referralGenerateErrorRules, response.CodeInternal, "error.save_failed")
		return
	}
	response.Success(c, link)
}

// ReferralTrack 记录推荐链接点击，返回活动公开信息
func (h *Handler) ReferralTrack(c *gin.Context) {
	code := c.Param("code")

	info, err := h.ReferralService.TrackClick(c.Request.Context(), service.TrackClickInput{
		Code:      code,
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		respondWithMappedError(c, err, referralTrackErrorRules, response.CodeInternal, "error.fetch_failed")
		return
	}
	response.Success(c, gin.H{"campaign": info})
}

// ReferralConvertRequest 转化上报请求
type ReferralConvertRequest struct {
	ReferredCustomerID uint `json:"referred_customer_id" binding:"required"`
}

// ReferralConvert 记录被推荐客户的转化
func (h *Handler) ReferralConvert(c *gin.Context) {
	code := c.Param("code")

	var req ReferralConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	conversion, err := h.ReferralService.RecordConversion(code, req.ReferredCustomerID)
	if err != nil {
		respondWithMappedError(c, err, referralConvertErrorRules, response.CodeInternal, "error.save_failed")
		return
	}
	response.Success(c, gin.H{
		"conversion_id": conversion.ID,
		"status":        conversion.Status,
		"converted_at":  conversion.ConvertedAt,
	})
}

// ReferralCompleteTaskRequest 完成任务请求
type ReferralCompleteTaskRequest struct {
	ConversionID        uint   `json:"conversion_id" binding:"required"`
	TaskCompletionProof string `json:"task_completion_proof"`
}

// ReferralCompleteTask 标记转化的任务已完成，冻结当前活动奖励
func (h *Handler) ReferralCompleteTask(c *gin.Context) {
	code := c.Param("code")

	var req ReferralCompleteTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	conversion, err := h.ReferralService.CompleteTask(code, req.ConversionID, req.TaskCompletionProof)
	if err != nil {
		respondWithMappedError(c, err, referralCompleteTaskErrorRules, response.CodeInternal, "error.save_failed")
		return
	}
	response.Success(c, gin.H{
		"conversion_id":     conversion.ID,
		"status":            conversion.Status,
		"task_completed_at": conversion.TaskCompletedAt,
		"reward_type":       conversion.RewardType,
		"reward_amount":     conversion.RewardAmount,
	})
}

// ReferralClaimRewardRequest 领奖请求
type ReferralClaimRewardRequest struct {
	ConversionID uint `json:"conversion_id" binding:"required"`
}

// ReferralClaimReward 领取单条转化的奖励
func (h *Handler) ReferralClaimReward(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	code := c.Param("code")

	var req ReferralClaimRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	receipt, err := h.RewardService.Claim(userID, code, req.ConversionID)
	if err != nil {
		respondWithMappedError(c, err, rewardClaimErrorRules, response.CodeInternal, "error.save_failed")
		return
	}
	response.Success(c, gin.H{"reward": receipt})
}

// ReferralStats 活动维度的推荐统计
func (h *Handler) ReferralStats(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	campaignID, err := strconv.ParseUint(c.Param("campaign_id"), 10, 64)
	if err != nil || campaignID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	stats, serr := h.ReferralService.CampaignStats(userID, uint(campaignID))
	if serr != nil {
		respondWithMappedError(c, serr, referralStatsErrorRules, response.CodeInternal, "error.fetch_failed")
		return
	}
	response.Success(c, stats)
}

// ReferralRewardStatus 查询单条转化的领奖状态
func (h *Handler) ReferralRewardStatus(c *gin.Context) {
	code := c.Param("code")
	conversionID, err := strconv.ParseUint(c.Param("conversion_id"), 10, 64)
	if err != nil || conversionID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	view, serr := h.ReferralService.RewardStatus(code, uint(conversionID))
	if serr != nil {
		respondWithMappedError(c, serr, rewardStatusErrorRules, response.CodeInternal, "error.fetch_failed")
		return
	}
	response.Success(c, view)
}
