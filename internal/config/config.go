// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	PublicURL      string        `yaml:"public_url" env:"PUBLIC_URL"` // base for gateway callbacks
	AppURL         string        `yaml:"app_url" env:"APP_URL"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL"` // trace|debug|info|warn|error
	Format   string `yaml:"format"`                // json|console
	Sampling bool   `yaml:"sampling"`              // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url" env:"DATABASE_URL"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string `yaml:"url" env:"REDIS_URL"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db"`
}

type RabbitMQConfig struct {
	URL      string `yaml:"url" env:"RABBITMQ_URL"`
	Exchange string `yaml:"exchange"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
	Issuer    string `yaml:"issuer"`
}

type ZarinPalConfig struct {
	MerchantID  string `yaml:"merchant_id" env:"ZARINPAL_MERCHANT_ID"`
	Sandbox     bool   `yaml:"sandbox"`
	Currency    string `yaml:"currency"` // IRR | IRT
	BaseURL     string `yaml:"base_url"`
	StartPayURL string `yaml:"start_pay_url"`
}

type ParsPalConfig struct {
	APIKey   string `yaml:"api_key" env:"PARSPAL_API_KEY"`
	Sandbox  bool   `yaml:"sandbox"`
	Currency string `yaml:"currency"`
	BaseURL  string `yaml:"base_url"`
}

type PaymentConfig struct {
	Timeout  time.Duration  `yaml:"timeout"`
	ZarinPal ZarinPalConfig `yaml:"zarinpal"`
	ParsPal  ParsPalConfig  `yaml:"parspal"`
}

type CheckoutConfig struct {
	QuoteTTL        time.Duration `yaml:"quote_ttl"`
	VerifyLockTTL   time.Duration `yaml:"verify_lock_ttl"`
	CheckoutLockTTL time.Duration `yaml:"checkout_lock_ttl"`
}

type RateLimitConfig struct {
	Requests int           `yaml:"requests"` // per user and route
	Window   time.Duration `yaml:"window"`
}

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	Auth      AuthConfig      `yaml:"auth"`
	Payment   PaymentConfig   `yaml:"payment"`
	Checkout  CheckoutConfig  `yaml:"checkout"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads flags from os.Args.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load parses -config and -dev from args, reads the YAML file and applies
// environment overrides. In dev mode a .env file is loaded first and a
// missing config file is tolerated.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("app", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "path to config yaml")
	dev := fs.Bool("dev", false, "development mode")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *dev {
		_ = godotenv.Load()
	}

	var cfg Config
	b, err := os.ReadFile(*configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && *dev:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Runtime.Dev = *dev
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.PublicURL == "" {
		c.HTTP.PublicURL = fmt.Sprintf("http://localhost:%d", c.HTTP.Port)
	}
	c.HTTP.PublicURL = strings.TrimRight(c.HTTP.PublicURL, "/")
	c.HTTP.ReadTimeout = orDefault(c.HTTP.ReadTimeout, 15*time.Second)
	c.HTTP.WriteTimeout = orDefault(c.HTTP.WriteTimeout, 30*time.Second)
	c.HTTP.RequestTimeout = orDefault(c.HTTP.RequestTimeout, 25*time.Second)

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "payments"
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "medcontent"
	}

	c.Payment.Timeout = orDefault(c.Payment.Timeout, 10*time.Second)
	if c.Payment.ZarinPal.Currency == "" {
		c.Payment.ZarinPal.Currency = "IRR"
	}
	if c.Payment.ParsPal.Currency == "" {
		c.Payment.ParsPal.Currency = "IRR"
	}

	c.Checkout.QuoteTTL = orDefault(c.Checkout.QuoteTTL, 15*time.Minute)
	c.Checkout.VerifyLockTTL = orDefault(c.Checkout.VerifyLockTTL, 30*time.Second)
	c.Checkout.CheckoutLockTTL = orDefault(c.Checkout.CheckoutLockTTL, 30*time.Second)

	if c.RateLimit.Requests <= 0 {
		c.RateLimit.Requests = 10
	}
	c.RateLimit.Window = orDefault(c.RateLimit.Window, time.Minute)
}

// Validate reports the first missing required setting.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Runtime.Dev {
		return nil
	}
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Payment.ZarinPal.MerchantID == "" && c.Payment.ParsPal.APIKey == "" {
		return errors.New("at least one payment gateway must be configured")
	}
	for name, unit := range map[string]string{"zarinpal": c.Payment.ZarinPal.Currency, "parspal": c.Payment.ParsPal.Currency} {
		if unit != "IRR" && unit != "IRT" {
			return fmt.Errorf("payment.%s.currency must be IRR or IRT, got %q", name, unit)
		}
	}
	return nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
