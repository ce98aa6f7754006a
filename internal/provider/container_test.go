package provider

import (
	"testing"

	"github.com/pixjoin/internal/config"
	"github.com/pixjoin/internal/constants"
)

func TestNewPaymentProviderSelection(t *testing.T) {
	cfg := &config.Config{}
	cfg.Payment.Provider = constants.PaymentProviderMock
	p, err := newPaymentProvider(cfg)
	if err != nil || p.Name() != constants.PaymentProviderMock {
		t.Fatalf("expected mock provider, got %v err=%v", p, err)
	}

	cfg.Payment.Provider = constants.PaymentProviderMercadoPago
	if _, err := newPaymentProvider(cfg); err == nil {
		t.Fatalf("mercadopago without access token should fail")
	}
	cfg.Payment.MercadoPago.AccessToken = "TEST-token"
	p, err = newPaymentProvider(cfg)
	if err != nil || p.Name() != constants.PaymentProviderMercadoPago {
		t.Fatalf("expected mercadopago provider, got %v err=%v", p, err)
	}

	cfg.Payment.Provider = "stripe"
	if _, err := newPaymentProvider(cfg); err == nil {
		t.Fatalf("unknown provider should fail")
	}
}
