package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/refermark/refermark/internal/models"
)

const campaignProjectionTTL = 5 * time.Minute

// CampaignProjection 活动公开信息快照（track 热路径用，减少活动表查询）
type CampaignProjection struct {
	CampaignID      uint   `json:"campaign_id"`
	Name            string `json:"name"`
	TaskType        string `json:"task_type"`
	TaskDescription string `json:"task_description"`
	RewardType      string `json:"reward_type"`
	RewardValue     string `json:"reward_value"`
	UpdatedAt       int64  `json:"updated_at"`
}

func campaignProjectionKey(campaignID uint) string {
	return fmt.Sprintf("campaign:public:%d", campaignID)
}

// BuildCampaignProjection 从活动模型构建公开信息快照
func BuildCampaignProjection(campaign *models.Campaign) *CampaignProjection {
	if campaign == nil {
		return nil
	}
	return &CampaignProjection{
		CampaignID:      campaign.ID,
		Name:            campaign.Name,
		TaskType:        campaign.TaskType,
		TaskDescription: campaign.TaskDescription,
		RewardType:      campaign.RewardType,
		RewardValue:     campaign.RewardValue.String(),
		UpdatedAt:       time.Now().Unix(),
	}
}

// GetCampaignProjection 获取活动公开信息快照
func GetCampaignProjection(ctx context.Context, campaignID uint) (*CampaignProjection, bool, error) {
	if campaignID == 0 {
		return nil, false, nil
	}
	var projection CampaignProjection
	hit, err := GetJSON(ctx, campaignProjectionKey(campaignID), &projection)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &projection, true, nil
}

// SetCampaignProjection 写入活动公开信息快照
func SetCampaignProjection(ctx context.Context, projection *CampaignProjection) error {
	if projection == nil || projection.CampaignID == 0 {
		return nil
	}
	return SetJSON(ctx, campaignProjectionKey(projection.CampaignID), projection, campaignProjectionTTL)
}

// DelCampaignProjection 删除活动公开信息快照（活动内容变更时调用）
func DelCampaignProjection(ctx context.Context, campaignID uint) error {
	if campaignID == 0 {
		return nil
	}
	return Del(ctx, campaignProjectionKey(campaignID))
}
