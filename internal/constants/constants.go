package constants

// 活动状态常量
const (
	CampaignStatusDraft     = "draft"
	CampaignStatusActive    = "active"
	CampaignStatusPaused    = "paused"
	CampaignStatusCompleted = "completed"
)

// 活动任务类型常量
const (
	CampaignTaskTypeReview   = "review"
	CampaignTaskTypePurchase = "purchase"
	CampaignTaskTypeForm     = "form"
	CampaignTaskTypeOther    = "other"
)

// 奖励类型常量
const (
	RewardTypeDiscount = "discount"
	RewardTypeCashback = "cashback"
	RewardTypeGift     = "gift"
	RewardTypeOther    = "other"
)

// 客户来源常量
const (
	CustomerSourceZapier   = "zapier"
	CustomerSourceManual   = "manual"
	CustomerSourceReferral = "referral"
)

// 客户状态常量
const (
	CustomerStatusActive   = "active"
	CustomerStatusInactive = "inactive"
	CustomerStatusPending  = "pending"
)

// 转化状态常量
const (
	ConversionStatusPending   = "pending"
	ConversionStatusCompleted = "completed"
	ConversionStatusRejected  = "rejected"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// CRM 集成类型常量
const (
	IntegrationTypeZapier     = "zapier"
	IntegrationTypeHubspot    = "hubspot"
	IntegrationTypeSalesforce = "salesforce"
)

// CRM 集成同步状态常量
const (
	IntegrationSyncStatusIdle       = "idle"
	IntegrationSyncStatusInProgress = "in_progress"
	IntegrationSyncStatusSuccess    = "success"
	IntegrationSyncStatusFailed     = "failed"
)

// 队列与任务名称常量
const (
	QueueDefault = "default"

	TaskIntegrationSync          = "integration:sync"
	TaskCampaignCounterReconcile = "campaign:counter_reconcile"
)
