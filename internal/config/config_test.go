package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		DatabaseURL:         "postgres://localhost:5432/shopprr",
		StripeSecretKey:     "sk_test_123",
		StripeWebhookSecret: "whsec_test_123",
		JWTSecret:           strings.Repeat("s", 32),
		TaxRate:             0.02,
		DeliveryChargeCents: 1000,
		Currency:            "usd",
		FrontendURL:         "http://localhost:5173",
		CheckoutTimeout:     10 * time.Second,
		CacheProvider:       "memory",
		LogFormat:           "text",
		Port:                "8080",
	}
}

func TestValidateValidConfig(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	if err := cfg.validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateTaxRateBounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		taxRate float64
		wantErr bool
	}{
		{name: "zero rate", taxRate: 0, wantErr: false},
		{name: "two percent", taxRate: 0.02, wantErr: false},
		{name: "negative rate", taxRate: -0.01, wantErr: true},
		{name: "rate of one", taxRate: 1, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			cfg.TaxRate = tt.taxRate

			err := cfg.validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestValidateShortJWTSecret(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.JWTSecret = "short"

	err := cfg.validate()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "JWTSecret") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRedisRequiredForRedisCache(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.CacheProvider = "redis"
	cfg.RedisConnectionString = ""

	err := cfg.validate()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "RedisConnectionString") || !strings.Contains(err.Error(), "required_if") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateEmailProviderNeedsCredentials(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.EmailProvider = "resend"
	cfg.ResendAPIKey = ""
	cfg.EmailFrom = ""

	err := cfg.validate()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "RESEND_API_KEY") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateFrontendURLMustBeHTTPSOutsideLocal(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.FrontendURL = "http://shop.example.com"

	err := cfg.validate()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "https") {
		t.Fatalf("unexpected error: %v", err)
	}
}
