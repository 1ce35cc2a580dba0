// Package admin 实现平台运营后台 API，覆盖管理员认证、RBAC
// 角色管理以及跨商家的业务与活动巡查。
package admin

import "github.com/refermark/refermark/internal/provider"

// Handler 后台接口处理器，内嵌容器直接取用服务依赖
type Handler struct {
	*provider.Container
}

// New 创建后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
