package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pixjoin/internal/cache"
	"github.com/pixjoin/internal/config"
	adminhandlers "github.com/pixjoin/internal/http/handlers/admin"
	publichandlers "github.com/pixjoin/internal/http/handlers/public"
	"github.com/pixjoin/internal/http/response"
	"github.com/pixjoin/internal/logger"
	"github.com/pixjoin/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "pixjoin"
	}
	redisClient := cache.Client()
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Admin.RateLimitWindow,
		MaxRequests:   loginMaxAttempts(cfg.Admin.RateLimitMax),
	}
	adminRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin", redisPrefix),
		WindowSeconds: cfg.Admin.RateLimitWindow,
		MaxRequests:   cfg.Admin.RateLimitMax,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))

	// 健康检查
	r.GET("/", publicHandler.Health)
	r.HEAD("/", publicHandler.Health)
	r.GET("/healthz", publicHandler.Health)

	// PSP 回调
	r.POST("/webhook/psp", publicHandler.PaymentWebhook)

	apiV1 := r.Group("/api/v1")
	{
		apiV1.POST("/payments/webhook", publicHandler.PaymentWebhook)

		admin := apiV1.Group("/admin")
		{
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIPAndJSONField("username")), adminHandler.Login)

			authorized := admin.Group("")
			authorized.Use(AdminJWTMiddleware(c.AuthService), RateLimitMiddleware(redisClient, adminRule, KeyByIP))
			{
				authorized.GET("/payments", adminHandler.GetAdminPayments)
				authorized.GET("/payments/export", adminHandler.ExportAdminPayments)
				authorized.GET("/payments/:reference", adminHandler.GetAdminPayment)
				authorized.POST("/payments/:reference/regrant", adminHandler.RegrantAdminPayment)
				authorized.GET("/webhook-events", adminHandler.GetWebhookEvents)
			}
		}
	}

	r.NoRoute(func(c *gin.Context) {
		response.ErrorWithHTTPStatus(c, http.StatusNotFound, response.CodeNotFound, "not found")
	})

	return r
}

// loginMaxAttempts 登录接口限额取管理接口限额的十分之一，至少 5 次
func loginMaxAttempts(adminMax int) int {
	if adminMax <= 0 {
		return 0
	}
	attempts := adminMax / 10
	if attempts < 5 {
		attempts = 5
	}
	return attempts
}
