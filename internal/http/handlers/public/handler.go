// Package public 实现商家侧与游客侧 API：商家注册登录、客户与活动
// 管理、推荐链路（点击、转化、领奖）以及 CRM 集成同步。
package public

import "github.com/refermark/refermark/internal/provider"

// Handler 前台接口处理器，内嵌容器直接取用服务依赖
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
