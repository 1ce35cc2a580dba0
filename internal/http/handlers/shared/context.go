package shared

import (
	"github.com/refermark/refermark/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetContextUintWithKeys 从请求上下文读取鉴权中间件写入的 uint 身份值。
// 值缺失按未登录处理，负数或类型不符按给定文案键返回错误响应。
func GetContextUintWithKeys(c *gin.Context, key, invalidKey, typeInvalidKey string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return 0, false
	}

	id, ok := asUint(value)
	if ok {
		return id, true
	}
	switch value.(type) {
	case int, float64:
		RespondError(c, response.CodeBadRequest, invalidKey, nil)
	default:
		RespondError(c, response.CodeInternal, typeInvalidKey, nil)
	}
	return 0, false
}

func asUint(value interface{}) (uint, bool) {
	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v >= 0 {
			return uint(v), true
		}
	case float64:
		if v >= 0 {
			return uint(v), true
		}
	}
	return 0, false
}
