package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	StripeSecretKey     string `env:"STRIPE_SECRET_KEY,required" validate:"required"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET,required" validate:"required"`

	JWTSecret string `env:"JWT_SECRET,required" validate:"required,min=16"`

	// Pricing constants. Tax is applied to the item subtotal only; the
	// delivery charge is added flat after tax.
	TaxRate             float64 `env:"TAX_RATE" envDefault:"0.02" validate:"gte=0,lt=1"`
	DeliveryChargeCents int     `env:"DELIVERY_CHARGE_CENTS" envDefault:"1000" validate:"gte=0"`
	Currency            string  `env:"CURRENCY" envDefault:"usd" validate:"len=3"`

	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:5173" validate:"required,url"`

	CheckoutTimeout time.Duration `env:"CHECKOUT_TIMEOUT" envDefault:"10s" validate:"gt=0"`

	CacheProvider         string `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RedisConnectionString string `env:"REDIS_CONNECTION_STRING" envDefault:"redis://localhost:6379/0" validate:"required_if=CacheProvider redis"`

	EmailProvider string `env:"EMAIL_PROVIDER" envDefault:"" validate:"omitempty,oneof=resend"`
	ResendAPIKey  string `env:"RESEND_API_KEY"`
	EmailFrom     string `env:"EMAIL_FROM" validate:"omitempty,email"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
	Port      string     `env:"PORT" envDefault:"8080"`
}

var configValidator = validator.New()

func Load() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	if c.EmailProvider != "" {
		if strings.TrimSpace(c.ResendAPIKey) == "" || strings.TrimSpace(c.EmailFrom) == "" {
			return fmt.Errorf("RESEND_API_KEY and EMAIL_FROM are required when EMAIL_PROVIDER is set")
		}
	}

	frontend := strings.TrimSpace(c.FrontendURL)
	parsed, err := url.Parse(frontend)
	if err != nil || parsed.Hostname() == "" {
		return fmt.Errorf("FRONTEND_URL must be a valid absolute URL")
	}
	if !isLocalHost(parsed.Hostname()) && !strings.EqualFold(parsed.Scheme, "https") {
		return fmt.Errorf("FRONTEND_URL must use https outside local development")
	}

	return nil
}

func isLocalHost(host string) bool {
	switch strings.ToLower(strings.TrimSpace(host)) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}
