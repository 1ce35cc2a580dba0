package worker

import (
	"context"
	"errors"
	"time"

	"github.com/refermark/refermark/internal/config"
	"github.com/refermark/refermark/internal/logger"
	"github.com/refermark/refermark/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	campaignExpireInterval  = time.Minute
	campaignExpireBatchSize = 100
)

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.CampaignService != nil {
		go s.runCampaignExpireLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runCampaignExpireLoop 周期扫描过期活动并自动完结
func (s *Service) runCampaignExpireLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.CampaignService == nil {
		return
	}
	runOnce := func() {
		completed, err := s.consumer.CampaignService.AutoCompleteExpired(ctx, campaignExpireBatchSize)
		if err != nil {
			logger.Warnw("worker_campaign_expire_scan_failed", "error", err)
			return
		}
		if completed > 0 {
			logger.Infow("worker_campaign_expire_completed", "count", completed)
		}
	}
	runOnce()

	ticker := time.NewTicker(campaignExpireInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
