package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Server.Port != "10000" || cfg.Payment.Provider != "mock" {
		t.Fatalf("unexpected defaults: port=%s provider=%s", cfg.Server.Port, cfg.Payment.Provider)
	}
	if cfg.Payment.AmountCents != 500 || cfg.Payment.ReferencePrefix != "EVT5" {
		t.Fatalf("unexpected payment defaults: %+v", cfg.Payment)
	}
	if cfg.Payment.WebhookAuthPolicy != "soft" || cfg.Discord.CommandName != "join" {
		t.Fatalf("unexpected policy/command defaults: %s %s", cfg.Payment.WebhookAuthPolicy, cfg.Discord.CommandName)
	}
}

func TestLoadLegacyEnvAliases(t *testing.T) {
	t.Setenv("PORT", "8088")
	t.Setenv("WEBHOOK_SECRET", " s3cret ")
	t.Setenv("GUILD_ID", "111")
	t.Setenv("PAYMENT_AMOUNT_CENTS", "750")

	cfg := Load()
	if cfg.Server.Port != "8088" {
		t.Fatalf("PORT alias not applied: %s", cfg.Server.Port)
	}
	if cfg.Payment.WebhookSecret != "s3cret" {
		t.Fatalf("WEBHOOK_SECRET alias not applied: %q", cfg.Payment.WebhookSecret)
	}
	if cfg.Discord.GuildID != "111" || cfg.Payment.AmountCents != 750 {
		t.Fatalf("env overrides not applied: guild=%s amount=%d", cfg.Discord.GuildID, cfg.Payment.AmountCents)
	}
}

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Port: "10000", Mode: "release"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "./db/test.db"},
		Payment: PaymentConfig{
			Provider:          "mock",
			WebhookAuthPolicy: "soft",
			AmountCents:       500,
			ReferencePrefix:   "EVT5",
		},
		Discord: DiscordConfig{CommandName: "join"},
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := map[string]func(*Config){
		"provider":   func(c *Config) { c.Payment.Provider = "paypal" },
		"policy":     func(c *Config) { c.Payment.WebhookAuthPolicy = "lenient" },
		"amount":     func(c *Config) { c.Payment.AmountCents = 0 },
		"prefix":     func(c *Config) { c.Payment.ReferencePrefix = "EVT-5" },
		"mode":       func(c *Config) { c.Server.Mode = "staging" },
		"mp_token":   func(c *Config) { c.Payment.Provider = "mercadopago" },
		"payer_mail": func(c *Config) { c.Payment.MercadoPago.PayerEmail = "not-an-email" },
		"strict_no_secret": func(c *Config) {
			c.Payment.WebhookAuthPolicy = "strict"
		},
	}
	for name, mutate := range cases {
		cfg := validConfig()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}

	strict := validConfig()
	strict.Payment.WebhookAuthPolicy = "strict"
	strict.Payment.WebhookSecret = "s3cret"
	if err := strict.Validate(); err != nil {
		t.Fatalf("strict with secret should pass: %v", err)
	}
	strict.Payment.Provider = "mercadopago"
	strict.Payment.WebhookSecret = ""
	strict.Payment.MercadoPago.AccessToken = "TEST-token"
	if err := strict.Validate(); err != nil {
		t.Fatalf("strict without secret is fine for api-verified provider: %v", err)
	}
}

func TestNormalize(t *testing.T) {
	cfg := validConfig()
	cfg.Payment.Provider = " MercadoPago "
	cfg.Payment.ReferencePrefix = " evt5 "
	cfg.Payment.MercadoPago.APIBaseURL = "https://api.mercadopago.com/"
	cfg.Discord.CommandName = " Join "
	cfg.normalize()

	if cfg.Payment.Provider != "mercadopago" || cfg.Payment.ReferencePrefix != "EVT5" {
		t.Fatalf("unexpected normalized payment: %+v", cfg.Payment)
	}
	if strings.HasSuffix(cfg.Payment.MercadoPago.APIBaseURL, "/") || cfg.Discord.CommandName != "join" {
		t.Fatalf("unexpected normalized values: %s %s", cfg.Payment.MercadoPago.APIBaseURL, cfg.Discord.CommandName)
	}
}
