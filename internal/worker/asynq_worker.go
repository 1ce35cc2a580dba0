package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/refermark/refermark/internal/logger"
	"github.com/refermark/refermark/internal/provider"
	"github.com/refermark/refermark/internal/queue"
	"github.com/refermark/refermark/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskIntegrationSync, c.handleIntegrationSync)
	mux.HandleFunc(queue.TaskCampaignCounterReconcile, c.handleCampaignCounterReconcile)
}

func (c *Consumer) handleIntegrationSync(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_integration_sync_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.IntegrationSyncPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_integration_sync_unmarshal_failed", "error", err)
		return err
	}
	if payload.BusinessID == 0 || payload.IntegrationID == 0 {
		logger.Debugw("worker_integration_sync_skip_invalid_payload",
			"business_id", payload.BusinessID, "integration_id", payload.IntegrationID)
		return nil
	}
	if c.IntegrationService == nil {
		logger.Warnw("worker_integration_sync_skip_service_nil", "integration_id", payload.IntegrationID)
		return nil
	}
	_, err := c.IntegrationService.Sync(ctx, payload.BusinessID, payload.IntegrationID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			logger.Debugw("worker_integration_sync_skip_not_found", "integration_id", payload.IntegrationID)
			return nil
		case errors.Is(err, service.ErrSyncInProgress):
			logger.Debugw("worker_integration_sync_skip_in_progress", "integration_id", payload.IntegrationID)
			return nil
		case errors.Is(err, service.ErrIntegrationTypeInvalid):
			logger.Debugw("worker_integration_sync_skip_not_connected", "integration_id", payload.IntegrationID)
			return nil
		default:
			logger.Warnw("worker_integration_sync_failed", "integration_id", payload.IntegrationID, "error", err)
			return err
		}
	}
	return nil
}

func (c *Consumer) handleCampaignCounterReconcile(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_campaign_reconcile_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.CampaignCounterReconcilePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_campaign_reconcile_unmarshal_failed", "error", err)
		return err
	}
	if payload.CampaignID == 0 {
		logger.Debugw("worker_campaign_reconcile_skip_invalid_payload", "campaign_id", payload.CampaignID)
		return nil
	}
	if c.ReferralService == nil {
		logger.Warnw("worker_campaign_reconcile_skip_service_nil", "campaign_id", payload.CampaignID)
		return nil
	}
	if err := c.ReferralService.ReconcileCampaignCounters(payload.CampaignID); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			logger.Debugw("worker_campaign_reconcile_skip_not_found", "campaign_id", payload.CampaignID)
			return nil
		default:
			logger.Warnw("worker_campaign_reconcile_failed", "campaign_id", payload.CampaignID, "error", err)
			return err
		}
	}
	return nil
}
