package public

import "github.com/pixjoin/internal/provider"

// Handler 公开接口处理器入口
// 说明：仅承载 PSP 回调与健康检查，不做用户鉴权。
type Handler struct {
	*provider.Container
}

// New 创建公开处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
