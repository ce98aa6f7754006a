package public

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pixjoin/internal/constants"
	"github.com/pixjoin/internal/models"
	"github.com/pixjoin/internal/payment"
	"github.com/pixjoin/internal/payment/mock"
	"github.com/pixjoin/internal/payment/webhookauth"
	"github.com/pixjoin/internal/provider"
	"github.com/pixjoin/internal/repository"
	"github.com/pixjoin/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const testWebhookSecret = "handler-secret"

type recordingGranter struct {
	mu     sync.Mutex
	grants []service.AccessGrant
}

func (g *recordingGranter) Grant(_ context.Context, grant service.AccessGrant) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.grants = append(g.grants, grant)
	return nil
}

func (g *recordingGranter) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.grants)
}

type unavailableProvider struct {
	*mock.Provider
}

func (unavailableProvider) ResolveNotification(context.Context, *payment.WebhookRequest) (*payment.Notification, error) {
	return nil, fmt.Errorf("%w: %w", payment.ErrNotificationUnresolvable, payment.ErrProviderUnavailable)
}

func setupWebhookHandler(t *testing.T, policy string) (*gin.Engine, *provider.Container, *recordingGranter) {
	t.Helper()
	return setupWebhookHandlerWith(t, policy, mock.New())
}

func setupWebhookHandlerWith(t *testing.T, policy string, psp payment.Provider) (*gin.Engine, *provider.Container, *recordingGranter) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:public_webhook_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	granter := &recordingGranter{}
	c := &provider.Container{
		PaymentRepo:      repository.NewPaymentRepository(db),
		WebhookEventRepo: repository.NewWebhookEventRepository(db),
		PaymentProvider:  psp,
		Granter:          granter,
	}
	c.PaymentService = service.NewPaymentService(c.PaymentRepo, c.WebhookEventRepo, c.PaymentProvider, granter, nil, service.PaymentServiceOptions{
		WebhookSecret:       testWebhookSecret,
		WebhookAuthPolicy:   policy,
		ExpectedAmountCents: 500,
		ReferencePrefix:     "EVT5",
	})

	h := New(c)
	r := gin.New()
	r.GET("/healthz", h.Health)
	r.POST("/webhook/psp", h.PaymentWebhook)
	return r, c, granter
}

func postWebhook(t *testing.T, r *gin.Engine, body string, signature string) (*httptest.ResponseRecorder, WebhookAck) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/psp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(constants.WebhookSignatureHeader, signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var ack WebhookAck
	if w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), &ack); err != nil {
			t.Fatalf("decode ack failed: %v body=%s", err, w.Body.String())
		}
	}
	return w, ack
}

func initiateRecord(t *testing.T, c *provider.Container) *models.PaymentRecord {
	t.Helper()
	record, err := c.PaymentService.InitiatePurchase(context.Background(), service.InitiatePurchaseInput{
		RequesterID: "1001",
		DisplayName: "Ana",
	})
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	return record
}

func confirmedBody(ref string, amount int64) string {
	return fmt.Sprintf(`{"ref":%q,"txid":"MOCK-TX-1","amount_cents":%d,"status":"CONFIRMED"}`, ref, amount)
}

func TestHealth(t *testing.T) {
	r, _, _ := setupWebhookHandler(t, constants.WebhookAuthPolicySoft)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Fatalf("unexpected health response: %d %q", w.Code, w.Body.String())
	}
}

func TestPaymentWebhookSettlesOnce(t *testing.T) {
	r, c, granter := setupWebhookHandler(t, constants.WebhookAuthPolicySoft)
	record := initiateRecord(t, c)
	body := confirmedBody(record.ReferenceCode, 500)
	sig := webhookauth.Sign([]byte(body), testWebhookSecret)

	w, ack := postWebhook(t, r, body, sig)
	if w.Code != http.StatusOK || !ack.Accepted || ack.Result != constants.WebhookResultSettled {
		t.Fatalf("expected settled ack, got %d %+v", w.Code, ack)
	}

	w, ack = postWebhook(t, r, body, sig)
	if w.Code != http.StatusOK || ack.Result != constants.WebhookResultIgnored || ack.Reason != constants.IgnoreReasonAlreadySettled {
		t.Fatalf("expected already_settled on replay, got %d %+v", w.Code, ack)
	}
	if granter.count() != 1 {
		t.Fatalf("expected exactly one grant, got %d", granter.count())
	}
}

func TestPaymentWebhookIgnoredStillReturnsOK(t *testing.T) {
	r, c, granter := setupWebhookHandler(t, constants.WebhookAuthPolicySoft)
	record := initiateRecord(t, c)

	_, ack := postWebhook(t, r, confirmedBody(record.ReferenceCode, 499), "")
	if ack.Result != constants.WebhookResultIgnored || ack.Reason != constants.IgnoreReasonAmountMismatch {
		t.Fatalf("expected amount_mismatch, got %+v", ack)
	}
	_, ack = postWebhook(t, r, confirmedBody("EVT5-UNKNOWN", 500), "")
	if ack.Reason != constants.IgnoreReasonRecordNotFound {
		t.Fatalf("expected record_not_found, got %+v", ack)
	}
	_, ack = postWebhook(t, r, `not-json`, "")
	if !ack.Accepted || ack.Result != constants.WebhookResultUnresolvable {
		t.Fatalf("expected unresolvable ack, got %+v", ack)
	}
	if granter.count() != 0 {
		t.Fatalf("no grant expected, got %d", granter.count())
	}
}

func TestPaymentWebhookStrictRejectsUnsigned(t *testing.T) {
	r, c, granter := setupWebhookHandler(t, constants.WebhookAuthPolicyStrict)
	record := initiateRecord(t, c)
	body := confirmedBody(record.ReferenceCode, 500)

	w, _ := postWebhook(t, r, body, "deadbeef")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	stored, err := c.PaymentRepo.GetByReference(record.ReferenceCode)
	if err != nil || stored == nil || stored.Status != constants.PaymentStatusPending {
		t.Fatalf("record should stay pending: %+v err=%v", stored, err)
	}

	w, ack := postWebhook(t, r, body, webhookauth.Sign([]byte(body), testWebhookSecret))
	if w.Code != http.StatusOK || ack.Result != constants.WebhookResultSettled {
		t.Fatalf("signed webhook should settle, got %d %+v", w.Code, ack)
	}
	if granter.count() != 1 {
		t.Fatalf("expected one grant, got %d", granter.count())
	}
}

func TestTruncateForLog(t *testing.T) {
	if got := truncateForLog([]byte("short"), 10); got != "short" {
		t.Fatalf("unexpected: %q", got)
	}
	got := truncateForLog([]byte("ééééé"), 3)
	if !strings.HasSuffix(got, "...(truncated)") || strings.HasPrefix(got, "é\xc3") {
		t.Fatalf("unexpected truncation: %q", got)
	}
}

func TestPaymentWebhookUpstreamUnavailableAsksForRedelivery(t *testing.T) {
	r, _, granter := setupWebhookHandlerWith(t, constants.WebhookAuthPolicySoft, unavailableProvider{Provider: mock.New()})

	w, _ := postWebhook(t, r, `{"type":"payment","data":{"id":"123"}}`, "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for upstream outage, got %d", w.Code)
	}
	if granter.count() != 0 {
		t.Fatalf("no grant expected, got %d", granter.count())
	}
}
