package shared

import (
	"strings"

	"github.com/pixjoin/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ContextKeyAdminUsername 管理端鉴权后写入的用户名键
const ContextKeyAdminUsername = "admin_username"

// GetAdminUsername 从上下文读取管理员用户名并统一处理错误响应。
func GetAdminUsername(c *gin.Context) (string, bool) {
	value, exists := c.Get(ContextKeyAdminUsername)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "unauthorized", nil)
		return "", false
	}
	username, ok := value.(string)
	if !ok || strings.TrimSpace(username) == "" {
		RespondError(c, response.CodeInternal, "admin context invalid", nil)
		return "", false
	}
	return username, true
}
