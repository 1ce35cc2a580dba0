package queue

import (
	"encoding/json"

	"github.com/refermark/refermark/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskIntegrationSync 集成联系人同步任务
	TaskIntegrationSync = constants.TaskIntegrationSync
	// TaskCampaignCounterReconcile 活动计数器校准任务
	TaskCampaignCounterReconcile = constants.TaskCampaignCounterReconcile
)

// IntegrationSyncPayload 集成同步任务载荷
type IntegrationSyncPayload struct {
	BusinessID    uint `json:"business_id"`
	IntegrationID uint `json:"integration_id"`
}

// CampaignCounterReconcilePayload 活动计数器校准任务载荷
type CampaignCounterReconcilePayload struct {
	CampaignID uint `json:"campaign_id"`
}

// NewIntegrationSyncTask 创建集成同步任务
func NewIntegrationSyncTask(payload IntegrationSyncPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIntegrationSync, body), nil
}

// NewCampaignCounterReconcileTask 创建活动计数器校准任务
func NewCampaignCounterReconcileTask(payload CampaignCounterReconcilePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCampaignCounterReconcile, body), nil
}
