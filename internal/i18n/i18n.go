package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// LocaleEN 英文
	LocaleEN = "en-US"
	// LocaleZH 简体中文
	LocaleZH = "zh-CN"

	defaultLocale = LocaleEN
	localeQuery   = "locale"
	localeHeader  = "Accept-Language"
)

var messages = map[string]map[string]string{
	LocaleEN: {
		"error.bad_request":              "invalid request payload",
		"error.unauthorized":             "unauthorized",
		"error.forbidden":                "forbidden",
		"error.internal":                 "internal server error",
		"error.save_failed":              "failed to save data",
		"error.fetch_failed":             "failed to fetch data",
		"error.auth_header_missing":      "authorization header is missing",
		"error.auth_header_invalid":      "authorization header is invalid",
		"error.token_invalid":            "token is invalid",
		"error.token_revoked":            "token has been revoked",
		"error.jwt_secret_missing":       "jwt secret is not configured",
		"error.invalid_credentials":      "email or password is incorrect",
		"error.user_disabled":            "account is disabled",
		"error.email_registered":         "email is already registered",
		"error.password_policy":          "password does not meet the policy",
		"error.password_min_length":      "password must be at least %d characters",
		"error.password_require_upper":   "password must contain an uppercase letter",
		"error.password_require_lower":   "password must contain a lowercase letter",
		"error.password_require_number":  "password must contain a digit",
		"error.password_require_special": "password must contain a special character",
		"error.invalid_email":            "email address is invalid",
		"error.login_too_many":           "too many login attempts, retry in %d seconds",
		"error.rate_limited":             "too many requests, retry in %d seconds",
		"error.rate_limit_unavailable":   "rate limiter is unavailable",
		"error.campaign_not_found":       "campaign not found",
		"error.campaign_not_active":      "campaign is not active",
		"error.campaign_status_invalid":  "campaign status transition is invalid",
		"error.customer_not_found":       "customer not found",
		"error.customer_exists":          "customer with this email already exists",
		"error.referral_not_found":       "referral link not found",
		"error.conversion_not_found":     "conversion not found",
		"error.duplicate_conversion":     "this customer has already been converted",
		"error.task_already_completed":   "task has already been completed",
		"error.conversion_state_invalid": "conversion is not in a claimable state",
		"error.reward_already_claimed":   "reward has already been claimed",
		"error.reward_not_eligible":      "not enough completed referrals to claim the reward",
		"error.not_authorized":           "not authorized to operate on this referral",
		"error.code_space_exhausted":     "failed to allocate a unique referral code",
		"error.business_profile_missing": "business profile not found",
		"error.integration_not_found":    "integration not found",
		"error.integration_type_invalid": "integration type is invalid",
		"error.queue_unavailable":        "task queue is unavailable",
		"error.sync_failed":              "contact sync failed",
		"error.sync_in_progress":         "a sync is already running for this integration",
		"error.campaign_invalid":         "campaign fields are invalid",
		"error.customer_invalid":         "customer fields are invalid",
		"error.business_profile_invalid": "business profile fields are invalid",
		"error.user_not_found":           "account not found",
		"error.user_id_invalid":          "user id is invalid",
		"error.user_id_type_invalid":     "user id type is invalid",
		"error.admin_id_invalid":         "admin id is invalid",
		"error.admin_id_type_invalid":    "admin id type is invalid",
		"error.admin_not_found":          "administrator not found",
		"error.old_password_incorrect":   "current password is incorrect",
	},
	LocaleZH: {
		"error.bad_request":              "请求参数无效",
		"error.unauthorized":             "未登录或登录已失效",
		"error.forbidden":                "没有操作权限",
		"error.internal":                 "服务器内部错误",
		"error.save_failed":              "数据保存失败",
		"error.fetch_failed":             "数据获取失败",
		"error.auth_header_missing":      "缺少认证头",
		"error.auth_header_invalid":      "认证头格式错误",
		"error.token_invalid":            "登录凭证无效",
		"error.token_revoked":            "登录凭证已失效",
		"error.jwt_secret_missing":       "JWT 密钥未配置",
		"error.invalid_credentials":      "邮箱或密码错误",
		"error.user_disabled":            "账号已被禁用",
		"error.email_registered":         "邮箱已被注册",
		"error.password_policy":          "密码不符合强度要求",
		"error.password_min_length":      "密码长度不能少于 %d 位",
		"error.password_require_upper":   "密码需要包含大写字母",
		"error.password_require_lower":   "密码需要包含小写字母",
		"error.password_require_number":  "密码需要包含数字",
		"error.password_require_special": "密码需要包含特殊字符",
		"error.invalid_email":            "邮箱格式不正确",
		"error.login_too_many":           "登录尝试过于频繁，请 %d 秒后重试",
		"error.rate_limited":             "请求过于频繁，请 %d 秒后重试",
		"error.rate_limit_unavailable":   "限流服务不可用",
		"error.campaign_not_found":       "推荐活动不存在",
		"error.campaign_not_active":      "推荐活动未激活",
		"error.campaign_status_invalid":  "活动状态流转不合法",
		"error.customer_not_found":       "客户不存在",
		"error.customer_exists":          "该邮箱的客户已存在",
		"error.referral_not_found":       "推荐链接不存在",
		"error.conversion_not_found":     "转化记录不存在",
		"error.duplicate_conversion":     "该客户已被记录转化",
		"error.task_already_completed":   "任务已完成，不可重复提交",
		"error.conversion_state_invalid": "转化状态不满足当前操作",
		"error.reward_already_claimed":   "奖励已被领取",
		"error.reward_not_eligible":      "已完成转化数量不足，暂不能领取奖励",
		"error.not_authorized":           "无权操作该推荐链接",
		"error.code_space_exhausted":     "推荐码分配失败",
		"error.business_profile_missing": "商家资料不存在",
		"error.integration_not_found":    "集成不存在",
		"error.integration_type_invalid": "集成类型不合法",
		"error.queue_unavailable":        "任务队列不可用",
		"error.sync_failed":              "联系人同步失败",
		"error.sync_in_progress":         "该集成正在同步中",
		"error.campaign_invalid":         "活动字段不合法",
		"error.customer_invalid":         "客户字段不合法",
		"error.business_profile_invalid": "商家资料字段不合法",
		"error.user_not_found":           "账号不存在",
		"error.user_id_invalid":          "用户 ID 不合法",
		"error.user_id_type_invalid":     "用户 ID 类型错误",
		"error.admin_id_invalid":         "管理员 ID 不合法",
		"error.admin_id_type_invalid":    "管理员 ID 类型错误",
		"error.admin_not_found":          "管理员不存在",
		"error.old_password_incorrect":   "当前密码不正确",
	},
}

// ResolveLocale 解析请求语言（query 优先，其次 Accept-Language）
func ResolveLocale(c *gin.Context) string {
	if c == nil {
		return defaultLocale
	}
	if locale := normalizeLocale(c.Query(localeQuery)); locale != "" {
		return locale
	}
	if locale := normalizeLocale(c.GetHeader(localeHeader)); locale != "" {
		return locale
	}
	return defaultLocale
}

// T 按语言取文案，缺失时回退英文，再回退 key 本身
func T(locale, key string) string {
	if table, ok := messages[locale]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	if msg, ok := messages[defaultLocale][key]; ok {
		return msg
	}
	return key
}

// Sprintf 按语言取文案并格式化
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}

func normalizeLocale(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return ""
	}
	// Accept-Language 可能携带权重列表，只看第一段
	if idx := strings.IndexAny(value, ",;"); idx >= 0 {
		value = value[:idx]
	}
	switch {
	case strings.HasPrefix(value, "zh"):
		return LocaleZH
	case strings.HasPrefix(value, "en"):
		return LocaleEN
	default:
		return ""
	}
}
