package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/refermark/refermark/internal/constants"
	"github.com/refermark/refermark/internal/logger"
	"github.com/refermark/refermark/internal/models"
	"github.com/refermark/refermark/internal/repository"
)

const (
	defaultSyncTimeoutSeconds = 30
	defaultSyncBatchSize      = 200
	maxSyncResponseBytes      = 4 << 20
)

// IntegrationService 外部 CRM 集成业务服务
type IntegrationService struct {
	repo         repository.IntegrationRepository
	customerRepo repository.CustomerRepository
	httpClient   *http.Client
	batchSize    int
}

// IntegrationServiceOptions 集成服务配置
type IntegrationServiceOptions struct {
	SyncTimeoutSeconds int
	SyncBatchSize      int
	HTTPClient         *http.Client
}

// NewIntegrationService 创建集成服务
func NewIntegrationService(
	repo repository.IntegrationRepository,
	customerRepo repository.CustomerRepository,
	opts IntegrationServiceOptions,
) *IntegrationService {
	timeoutSeconds := opts.SyncTimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = defaultSyncTimeoutSeconds
	}
	batchSize := opts.SyncBatchSize
	if batchSize <= 0 {
		batchSize = defaultSyncBatchSize
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second}
	}
	return &IntegrationService{
		repo:         repo,
		customerRepo: customerRepo,
		httpClient:   client,
		batchSize:    batchSize,
	}
}

// IntegrationInput 连接集成输入
type IntegrationInput struct {
	Type       string
	APIKey     string
	WebhookURL string
}

// SyncResult 一次同步的结果
type SyncResult struct {
	IntegrationID uint      `json:"integration_id"`
	SyncedCount   int64     `json:"synced_count"`
	CreatedCount  int64     `json:"created_count"`
	UpdatedCount  int64     `json:"updated_count"`
	SyncedAt      time.Time `json:"synced_at"`
}

// crmContact CRM 拉取的联系人结构
type crmContact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

var integrationTypes = map[string]bool{
	constants.IntegrationTypeZapier:     true,
	constants.IntegrationTypeHubspot:    true,
	constants.IntegrationTypeSalesforce: true,
}

// List 获取商家已配置的集成
func (s *IntegrationService) List(businessID uint, page, pageSize int) ([]models.Integration, int64, error) {
	return s.repo.List(repository.IntegrationListFilter{
		Page:       page,
		PageSize:   pageSize,
		BusinessID: businessID,
	})
}

// Contacts 分页列出商家从 CRM 同步下来的联系人，支持名称与邮箱模糊搜索
func (s *IntegrationService) Contacts(businessID uint, page, pageSize int, keyword string) ([]models.Customer, int64, error) {
	sources := make([]string, 0, len(integrationTypes))
	for integrationType := range integrationTypes {
		sources = append(sources, integrationType)
	}
	sort.Strings(sources)

	return s.customerRepo.List(repository.CustomerListFilter{
		Page:       page,
		PageSize:   pageSize,
		BusinessID: businessID,
		Keyword:    strings.TrimSpace(keyword),
		Sources:    sources,
	})
}

// Get 获取商家名下集成
func (s *IntegrationService) Get(businessID, id uint) (*models.Integration, error) {
	integration, err := s.repo.GetByBusinessAndID(businessID, id)
	if err != nil {
		return nil, err
	}
	if integration == nil {
		return nil, ErrNotFound
	}
	return integration, nil
}

// Connect 连接集成，同类型已存在时覆盖凭证
func (s *IntegrationService) Connect(businessID uint, input IntegrationInput) (*models.Integration, error) {
	integrationType := strings.ToLower(strings.TrimSpace(input.Type))
	if !integrationTypes[integrationType] {
		return nil, ErrIntegrationTypeInvalid
	}
	apiKey := strings.TrimSpace(input.APIKey)
	webhookURL := strings.TrimSpace(input.WebhookURL)

	existing, err := s.repo.GetByBusinessAndType(businessID, integrationType)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		existing.APIKey = apiKey
		existing.WebhookURL = webhookURL
		existing.IsConnected = true
		if err := s.repo.Update(existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	integration := &models.Integration{
		BusinessID:  businessID,
		Type:        integrationType,
		APIKey:      apiKey,
		WebhookURL:  webhookURL,
		IsConnected: true,
		SyncStatus:  constants.IntegrationSyncStatusIdle,
	}
	if err := s.repo.Create(integration); err != nil {
		if isUniqueViolation(err) {
			return s.Connect(businessID, input)
		}
		return nil, err
	}
	return integration, nil
}

// Delete 断开并删除集成
func (s *IntegrationService) Delete(businessID, id uint) error {
	integration, err := s.Get(businessID, id)
	if err != nil {
		return err
	}
	return s.repo.Delete(integration.ID)
}

// Sync 从集成的 webhook 拉取联系人并落库为客户
// 同步期间状态置为 in_progress，结束后转 success/failed 并记录数量与错误
func (s *IntegrationService) Sync(ctx context.Context, businessID, integrationID uint) (*SyncResult, error) {
	integration, err := s.Get(businessID, integrationID)
	if err != nil {
		return nil, err
	}
	if integration.SyncStatus == constants.IntegrationSyncStatusInProgress {
		return nil, ErrSyncInProgress
	}
	if !integration.IsConnected || strings.TrimSpace(integration.WebhookURL) == "" {
		return nil, ErrIntegrationTypeInvalid
	}

	if err := s.repo.UpdateSyncState(integration.ID, constants.IntegrationSyncStatusInProgress, "", 0, nil); err != nil {
		return nil, err
	}

	contacts, err := s.fetchContacts(ctx, integration)
	if err != nil {
		s.markSyncFailed(integration.ID, err)
		return nil, err
	}

	result, err := s.upsertContacts(integration, contacts)
	if err != nil {
		s.markSyncFailed(integration.ID, err)
		return nil, err
	}

	now := time.Now()
	result.SyncedAt = now
	if err := s.repo.UpdateSyncState(integration.ID, constants.IntegrationSyncStatusSuccess, "", result.SyncedCount, &now); err != nil {
		return nil, err
	}
	logger.Infow("集成同步完成",
		"integration_id", integration.ID,
		"business_id", integration.BusinessID,
		"type", integration.Type,
		"synced", result.SyncedCount,
		"created", result.CreatedCount,
		"updated", result.UpdatedCount,
	)
	return result, nil
}

func (s *IntegrationService) markSyncFailed(integrationID uint, cause error) {
	now := time.Now()
	if err := s.repo.UpdateSyncState(integrationID, constants.IntegrationSyncStatusFailed, cause.Error(), 0, &now); err != nil {
		logger.Errorw("记录同步失败状态出错", "integration_id", integrationID, "error", err)
	}
}

func (s *IntegrationService) fetchContacts(ctx context.Context, integration *models.Integration) ([]crmContact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, integration.WebhookURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build sync request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if integration.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+integration.APIKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch contacts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch contacts: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSyncResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read contacts response: %w", err)
	}
	return decodeContacts(body)
}

// decodeContacts 兼容裸数组与 {"contacts": [...]} 两种返回格式
func decodeContacts(body []byte) ([]crmContact, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil, nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var contacts []crmContact
		if err := json.Unmarshal(body, &contacts); err != nil {
			return nil, fmt.Errorf("decode contacts: %w", err)
		}
		return contacts, nil
	}
	var wrapped struct {
		Contacts []crmContact `json:"contacts"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("decode contacts: %w", err)
	}
	return wrapped.Contacts, nil
}

func (s *IntegrationService) upsertContacts(integration *models.Integration, contacts []crmContact) (*SyncResult, error) {
	result := &SyncResult{IntegrationID: integration.ID}
	now := time.Now()
	for i := range contacts {
		if i >= s.batchSize {
			logger.Warnw("同步联系人超出单次上限，已截断",
				"integration_id", integration.ID, "limit", s.batchSize, "total", len(contacts))
			break
		}
		contact := contacts[i]
		email := normalizeEmail(contact.Email)
		if email == "" {
			continue
		}

		existing, err := s.resolveContactCustomer(integration.BusinessID, contact.ID, email)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			customer := &models.Customer{
				BusinessID:      integration.BusinessID,
				Name:            strings.TrimSpace(contact.Name),
				Email:           email,
				Phone:           strings.TrimSpace(contact.Phone),
				CRMID:           strings.TrimSpace(contact.ID),
				Source:          integration.Type,
				Status:          constants.CustomerStatusActive,
				LastInteraction: &now,
			}
			if err := s.customerRepo.Create(customer); err != nil {
				if isUniqueViolation(err) {
					continue
				}
				return nil, err
			}
			result.CreatedCount++
		} else {
			if name := strings.TrimSpace(contact.Name); name != "" {
				existing.Name = name
			}
			if phone := strings.TrimSpace(contact.Phone); phone != "" {
				existing.Phone = phone
			}
			if crmID := strings.TrimSpace(contact.ID); crmID != "" {
				existing.CRMID = crmID
			}
			existing.LastInteraction = &now
			if err := s.customerRepo.Update(existing); err != nil {
				return nil, err
			}
			result.UpdatedCount++
		}
		result.SyncedCount++
	}
	return result, nil
}

// resolveContactCustomer 先按 CRM 标识匹配，再按邮箱匹配
func (s *IntegrationService) resolveContactCustomer(businessID uint, crmID, email string) (*models.Customer, error) {
	if trimmed := strings.TrimSpace(crmID); trimmed != "" {
		customer, err := s.customerRepo.GetByBusinessAndCRMID(businessID, trimmed)
		if err != nil {
			return nil, err
		}
		if customer != nil {
			return customer, nil
		}
	}
	return s.customerRepo.GetByBusinessAndEmail(businessID, email)
}
