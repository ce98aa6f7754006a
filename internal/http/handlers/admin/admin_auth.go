package admin

import (
	"errors"
	"net/http"
	"time"

	"github.com/pixjoin/internal/http/response"
	"github.com/pixjoin/internal/service"

	"github.com/gin-gonic/gin"
)

// LoginRequest 管理员登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 管理员登录，返回 Bearer token
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "username and password are required", nil)
		return
	}

	token, expiresAt, err := h.AuthService.Login(req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			requestLog(c).Warnw("admin_login_rejected", "username", req.Username, "client_ip", c.ClientIP())
			response.ErrorWithHTTPStatus(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid credentials")
		case errors.Is(err, service.ErrAdminAuthDisabled):
			response.ErrorWithHTTPStatus(c, http.StatusForbidden, response.CodeForbidden, "admin api disabled")
		default:
			respondError(c, response.CodeInternal, "login failed", err)
		}
		return
	}

	requestLog(c).Infow("admin_login_succeeded", "username", req.Username)
	response.Success(c, gin.H{
		"token":      token,
		"expires_at": expiresAt.Format(time.RFC3339),
	})
}
