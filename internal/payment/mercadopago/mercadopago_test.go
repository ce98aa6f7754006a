package mercadopago

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/pixjoin/internal/constants"
	"github.com/pixjoin/internal/payment"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	p, err := New(Config{AccessToken: "TEST-token", APIBaseURL: server.URL})
	if err != nil {
		t.Fatalf("new provider failed: %v", err)
	}
	return p
}

func TestNewRequiresAccessToken(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected ErrConfigInvalid, got %v", err)
	}
}

func TestCreateChargeSendsPixPayment(t *testing.T) {
	var captured map[string]interface{}
	var idempotencyKey string
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/payments" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer TEST-token" {
			t.Errorf("missing bearer token")
		}
		idempotencyKey = r.Header.Get("X-Idempotency-Key")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &captured)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":123456,"status":"pending","point_of_interaction":{"transaction_data":{"qr_code":"00020126PIXCODE"}}}`))
	})

	charge, err := p.CreateCharge(context.Background(), payment.ChargeInput{ReferenceCode: "EVT5-x-1234", AmountCents: 500, Description: "Ingresso"})
	if err != nil {
		t.Fatalf("create charge failed: %v", err)
	}
	if charge.ProviderTxID != "123456" || charge.PayableString != "00020126PIXCODE" {
		t.Fatalf("unexpected charge: %+v", charge)
	}
	if captured["payment_method_id"] != "pix" || captured["external_reference"] != "EVT5-x-1234" {
		t.Fatalf("unexpected request body: %+v", captured)
	}
	if amount, _ := captured["transaction_amount"].(float64); amount != 5 {
		t.Fatalf("unexpected transaction_amount: %v", captured["transaction_amount"])
	}
	if idempotencyKey == "" {
		t.Fatalf("expected idempotency key header")
	}
}

func TestCreateChargeClassifiesFailures(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{status: http.StatusBadRequest, want: payment.ErrProviderRejected},
		{status: http.StatusBadGateway, want: payment.ErrProviderUnavailable},
	}
	for _, tc := range cases {
		status := tc.status
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"message":"boom"}`))
		})
		_, err := p.CreateCharge(context.Background(), payment.ChargeInput{ReferenceCode: "EVT5-1", AmountCents: 500})
		if !errors.Is(err, tc.want) {
			t.Fatalf("status %d: expected %v, got %v", tc.status, tc.want, err)
		}
	}
}

func TestResolveNotificationFetchesPayment(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/987" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":987,"status":"approved","external_reference":"EVT5-abc","transaction_amount":5.00}`))
	})

	requests := []*payment.WebhookRequest{
		{Body: []byte(`{"type":"payment","action":"payment.updated","data":{"id":"987"}}`)},
		{Query: url.Values{"type": {"payment"}, "data.id": {"987"}}},
		{Query: url.Values{"topic": {"payment"}, "id": {"987"}}},
	}
	for _, req := range requests {
		notification, err := p.ResolveNotification(context.Background(), req)
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
		if notification.ReferenceCode != "EVT5-abc" || notification.AmountCents != 500 ||
			notification.Outcome != constants.NotificationOutcomeConfirmed || notification.ProviderTxID != "987" {
			t.Fatalf("unexpected notification: %+v", notification)
		}
	}
}

func TestResolveNotificationNonPaymentTopic(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("non-payment topics must not hit the API")
	})
	notification, err := p.ResolveNotification(context.Background(), &payment.WebhookRequest{
		Query: url.Values{"topic": {"merchant_order"}, "id": {"1"}},
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if notification.ReferenceCode != "" {
		t.Fatalf("expected empty reference, got %+v", notification)
	}
}

func TestResolveNotificationUnresolvable(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	cases := []*payment.WebhookRequest{
		{Body: []byte(`{"type":"payment","data":{"id":"404"}}`)},
		{Body: []byte(`{"type":"payment","data":{}}`)},
		{Body: []byte(`not-json`)},
		{},
	}
	for _, req := range cases {
		if _, err := p.ResolveNotification(context.Background(), req); !errors.Is(err, payment.ErrNotificationUnresolvable) {
			t.Fatalf("expected ErrNotificationUnresolvable, got %v", err)
		}
	}
}

func TestMapStatusAndAmounts(t *testing.T) {
	if MapStatus("approved") != constants.NotificationOutcomeConfirmed || MapStatus("pending") != constants.NotificationOutcomeOther {
		t.Fatalf("unexpected status mapping")
	}
	cents, err := AmountToCents("12.345")
	if err != nil || cents != 1235 {
		t.Fatalf("unexpected cents: %d err=%v", cents, err)
	}
	if CentsToAmount(500).StringFixed(2) != "5.00" {
		t.Fatalf("unexpected amount rendering")
	}
}
