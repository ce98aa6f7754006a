package router

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pixjoin/internal/config"
	"github.com/pixjoin/internal/constants"
	"github.com/pixjoin/internal/models"
	"github.com/pixjoin/internal/payment/mock"
	"github.com/pixjoin/internal/provider"
	"github.com/pixjoin/internal/repository"
	"github.com/pixjoin/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type noopGranter struct{}

func (noopGranter) Grant(context.Context, service.AccessGrant) error { return nil }

func setupRouterTest(t *testing.T) (*gin.Engine, *provider.Container) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:router_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "release"},
		Admin:  config.AdminConfig{JWTSecret: "router-secret", TokenExpireHours: 1},
	}
	c := &provider.Container{
		Config:           cfg,
		PaymentRepo:      repository.NewPaymentRepository(db),
		WebhookEventRepo: repository.NewWebhookEventRepository(db),
		PaymentProvider:  mock.New(),
		AuthService:      service.NewAuthService(cfg.Admin),
	}
	c.PaymentService = service.NewPaymentService(c.PaymentRepo, c.WebhookEventRepo, c.PaymentProvider, noopGranter{}, nil, service.PaymentServiceOptions{
		WebhookAuthPolicy:   constants.WebhookAuthPolicySoft,
		ExpectedAmountCents: 500,
		ReferencePrefix:     "EVT5",
	})
	return SetupRouter(cfg, c), c
}

func TestSetupRouterHealth(t *testing.T) {
	r, _ := setupRouterTest(t)

	for _, path := range []string{"/", "/healthz"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK || w.Body.String() != "OK" {
			t.Fatalf("%s want OK got %d %q", path, w.Code, w.Body.String())
		}
	}
}

func TestSetupRouterWebhookAliases(t *testing.T) {
	r, _ := setupRouterTest(t)
	for _, path := range []string{"/webhook/psp", "/api/v1/payments/webhook"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"ref":"EVT5-NOPE","amount_cents":500,"status":"CONFIRMED"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), constants.IgnoreReasonRecordNotFound) {
			t.Fatalf("%s unexpected response %d %s", path, w.Code, w.Body.String())
		}
	}
}

func TestSetupRouterAdminRequiresToken(t *testing.T) {
	r, c := setupRouterTest(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/payments", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("admin without token want 401 got %d", w.Code)
	}

	token, _, err := c.AuthService.GenerateJWT("ops")
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/payments", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"pagination"`) {
		t.Fatalf("admin with token want page response got %d %s", w.Code, w.Body.String())
	}
}

func TestLoginMaxAttempts(t *testing.T) {
	if loginMaxAttempts(0) != 0 || loginMaxAttempts(20) != 5 || loginMaxAttempts(120) != 12 {
		t.Fatalf("unexpected login attempts: %d %d %d", loginMaxAttempts(0), loginMaxAttempts(20), loginMaxAttempts(120))
	}
}
