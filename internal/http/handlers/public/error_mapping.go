package public

import (
	"errors"

	handlershared "github.com/refermark/refermark/internal/http/handlers/shared"
	"github.com/refermark/refermark/internal/http/response"
	"github.com/refermark/refermark/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
// kind 为稳定的机器可读标识，前端按 kind 而非文案分支。
type mappedHandlerError struct {
	target error
	code   int
	key    string
	kind   string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			if rule.kind != "" {
				handlershared.RespondErrorWithKind(c, rule.code, rule.key, rule.kind)
				return
			}
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

var referralGenerateErrorRules = []mappedHandlerError{
	{target: service.ErrNotFound, code: response.CodeNotFound, key: "error.campaign_not_found", kind: "not_found"},
	{target: service.ErrNotAuthorized, code: response.CodeForbidden, key: "error.not_authorized", kind: "not_authorized"},
	{target: service.ErrCodeSpaceExhausted, code: response.CodeInternal, key: "error.code_space_exhausted", kind: "code_space_exhausted"},
}

var referralTrackErrorRules = []mappedHandlerError{
	{target: service.ErrNotFound, code: response.CodeNotFound, key: "error.referral_not_found", kind: "not_found"},
}

var referralConvertErrorRules = []mappedHandlerError{
	{target: service.ErrDuplicateConversion, code: response.CodeConflict, key: "error.duplicate_conversion", kind: "duplicate_conversion"},
	{target: service.ErrNotFound, code: response.CodeNotFound, key: "error.referral_not_found", kind: "not_found"},
}

var referralCompleteTaskErrorRules = []mappedHandlerError{
	{target: service.ErrAlreadyCompleted, code: response.CodeConflict, key: "error.task_already_completed", kind: "already_completed"},
	{target: service.ErrConversionStateInvalid, code: response.CodeBadRequest, key: "error.conversion_state_invalid", kind: "conversion_state_invalid"},
	{target: service.ErrNotFound, code: response.CodeNotFound, key: "error.conversion_not_found", kind: "not_found"},
}

var referralStatsErrorRules = []mappedHandlerError{
	{target: service.ErrNotAuthorized, code: response.CodeForbidden, key: "error.not_authorized", kind: "not_authorized"},
	{target: service.ErrNotFound, code: response.CodeNotFound, key: "error.campaign_not_found", kind: "not_found"},
}

var rewardClaimErrorRules = []mappedHandlerError{
	{target: service.ErrNotAuthorized, code: response.CodeForbidden, key: "error.not_authorized", kind: "not_authorized"},
	{target: service.ErrConversionStateInvalid, code: response.CodeBadRequest, key: "error.conversion_state_invalid", kind: "conversion_state_invalid"},
	{target: service.ErrAlreadyClaimed, code: response.CodeConflict, key: "error.reward_already_claimed", kind: "already_claimed"},
	{target: service.ErrNotEligible, code: response.CodeBadRequest, key: "error.reward_not_eligible", kind: "not_eligible"},
	{target: service.ErrNotFound, code: response.CodeNotFound, key: "error.referral_not_found", kind: "not_found"},
}

var rewardStatusErrorRules = []mappedHandlerError{
	{target: service.ErrNotFound, code: response.CodeNotFound, key: "error.conversion_not_found", kind: "not_found"},
}

var customerCreateErrorRules = []mappedHandlerError{
	{target: service.ErrCustomerExists, code: response.CodeConflict, key: "error.customer_exists", kind: "customer_exists"},
	{target: service.ErrCustomerInvalid, code: response.CodeBadRequest, key: "error.customer_invalid", kind: "invalid_input"},
}

var campaignWriteErrorRules = []mappedHandlerError{
	{target: service.ErrCampaignInvalid, code: response.CodeBadRequest, key: "error.campaign_invalid", kind: "invalid_input"},
	{target: service.ErrCampaignStatusInvalid, code: response.CodeBadRequest, key: "error.campaign_status_invalid", kind: "status_invalid"},
	{target: service.ErrNotFound, code: response.CodeNotFound, key: "error.campaign_not_found", kind: "not_found"},
}

var integrationErrorRules = []mappedHandlerError{
	{target: service.ErrIntegrationTypeInvalid, code: response.CodeBadRequest, key: "error.integration_type_invalid", kind: "type_invalid"},
	{target: service.ErrSyncInProgress, code: response.CodeConflict, key: "error.sync_in_progress", kind: "sync_in_progress"},
	{target: service.ErrQueueUnavailable, code: response.CodeInternal, key: "error.queue_unavailable", kind: "queue_unavailable"},
	{target: service.ErrNotFound, code: response.CodeNotFound, key: "error.integration_not_found", kind: "not_found"},
}
