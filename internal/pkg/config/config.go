// Package config turns the process environment into one typed Config that is
// handed to every service at startup.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/biblestudybuddy/studybuddy/internal/pkg/env"
)

const (
	LLMProviderOpenAI = "openai"
	LLMProviderVertex = "vertex"
)

type AppConfig struct {
	Host      string
	Port      string
	PublicURL string
	Env       string
	// TimeZone is used when a request carries no zone of its own.
	TimeZone string
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type CacheConfig struct {
	Host     string
	Port     string
	Password string
}

// GoogleConfig is the Calendar OAuth client plus the key used to sign the
// OAuth state parameter.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	StateSecret  string
}

// LoginConfig holds social sign-in credentials. Empty means the provider is off.
type LoginConfig struct {
	GoogleKey    string
	GoogleSecret string
}

type LLMConfig struct {
	Provider          string
	OpenAIKey         string
	OpenAIBaseURL     string
	Model             string
	VertexProject     string
	VertexLocation    string
	VertexCredentials string
	Timeout           time.Duration
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	ProPriceID    string
}

type MailConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Sender       string
	ContactInbox string
}

type HCaptchaConfig struct {
	SiteKey string
	Secret  string
}

func (h HCaptchaConfig) Enabled() bool {
	return h.Secret != ""
}

type JobsConfig struct {
	Workers            int
	TrialSweepInterval time.Duration
}

// MonitorConfig guards /metrics. An empty password disables the page.
type MonitorConfig struct {
	User     string
	Password string
}

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Google   GoogleConfig
	Login    LoginConfig
	LLM      LLMConfig
	Stripe   StripeConfig
	Mail     MailConfig
	HCaptcha HCaptchaConfig
	Jobs     JobsConfig
	Monitor  MonitorConfig
}

// Load reads the configuration from env. Call env.SetupEnvFile first.
func Load() *Config {
	port := env.GetEnv("APP_PORT", "4000")
	publicURL := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if publicURL == "" {
		publicURL = "http://localhost:" + port
	}

	driver := strings.ToLower(env.GetEnv("DB_DRIVER", "mysql"))
	defaultDBPort := "3306"
	if driver == "postgres" {
		defaultDBPort = "5432"
	}

	provider := strings.ToLower(env.GetEnv("LLM_PROVIDER", LLMProviderOpenAI))
	defaultModel := "gpt-4o-mini"
	if provider == LLMProviderVertex {
		defaultModel = "gemini-2.0-flash-001"
	}

	return &Config{
		App: AppConfig{
			Host:      env.GetEnv("APP_HOST", "localhost"),
			Port:      port,
			PublicURL: publicURL,
			Env:       env.GetEnv("APP_ENV", "prod"),
			TimeZone:  env.GetEnv("APP_TIMEZONE", "UTC"),
		},
		Database: DatabaseConfig{
			Driver:   driver,
			Host:     env.GetEnv("DB_HOST", "127.0.0.1"),
			Port:     env.GetEnv("DB_PORT", defaultDBPort),
			User:     env.GetEnv("DB_USER", ""),
			Password: env.GetEnv("DB_PASSWORD", ""),
			Name:     env.GetEnv("DB_NAME", ""),
		},
		Cache: CacheConfig{
			Host:     env.GetEnv("CACHE_HOST", "localhost"),
			Port:     env.GetEnv("CACHE_PORT", "6379"),
			Password: env.GetEnv("CACHE_PASSWORD", ""),
		},
		Google: GoogleConfig{
			ClientID:     env.GetEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: env.GetEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURI:  env.GetEnv("GOOGLE_REDIRECT_URI", publicURL+"/api/google/callback"),
			StateSecret:  env.GetEnv("GOOGLE_STATE_SECRET", ""),
		},
		Login: LoginConfig{
			GoogleKey:    env.GetEnv("GOOGLE_KEY", ""),
			GoogleSecret: env.GetEnv("GOOGLE_SECRET", ""),
		},
		LLM: LLMConfig{
			Provider:          provider,
			OpenAIKey:         env.GetEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:     env.GetEnv("OPENAI_BASE_URL", ""),
			Model:             env.GetEnv("LLM_MODEL", defaultModel),
			VertexProject:     env.GetEnv("GOOGLE_CLOUD_PROJECT", ""),
			VertexLocation:    env.GetEnv("GOOGLE_CLOUD_LOCATION", ""),
			VertexCredentials: env.GetEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
			Timeout:           env.GetEnvDuration("LLM_TIMEOUT", 90*time.Second),
		},
		Stripe: StripeConfig{
			SecretKey:     env.GetEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
			ProPriceID:    env.GetEnv("STRIPE_PRO_PRICE_ID", ""),
		},
		Mail: MailConfig{
			Host:         env.GetEnv("SMTP_HOST", ""),
			Port:         env.GetEnv("SMTP_PORT", "587"),
			Username:     env.GetEnv("SMTP_USERNAME", ""),
			Password:     env.GetEnv("SMTP_PASSWORD", ""),
			Sender:       env.GetEnv("SMTP_SENDER", ""),
			ContactInbox: env.GetEnv("CONTACT_INBOX", ""),
		},
		HCaptcha: HCaptchaConfig{
			SiteKey: env.GetEnv("HCAPTCHA_SITEKEY", ""),
			Secret:  env.GetEnv("HCAPTCHA_SECRET", ""),
		},
		Jobs: JobsConfig{
			Workers:            env.GetEnvInt("JOB_WORKERS", 3),
			TrialSweepInterval: env.GetEnvDuration("TRIAL_SWEEP_INTERVAL", 15*time.Minute),
		},
		Monitor: MonitorConfig{
			User:     env.GetEnv("MONITOR_USER", "admin"),
			Password: env.GetEnv("MONITOR_PASSWORD", ""),
		},
	}
}

func (c *Config) IsDev() bool {
	return c.App.Env == "dev"
}

// Location resolves App.TimeZone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate reports every missing required key in a single error.
func (c *Config) Validate() error {
	var missing []string
	require := func(key, val string) {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, key)
		}
	}

	switch c.Database.Driver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("config: DB_DRIVER must be mysql or postgres, got %q", c.Database.Driver)
	}
	if _, err := time.LoadLocation(c.App.TimeZone); err != nil {
		return fmt.Errorf("config: APP_TIMEZONE %q: %w", c.App.TimeZone, err)
	}

	require("DB_USER", c.Database.User)
	require("DB_NAME", c.Database.Name)

	require("GOOGLE_CLIENT_ID", c.Google.ClientID)
	require("GOOGLE_CLIENT_SECRET", c.Google.ClientSecret)
	require("GOOGLE_REDIRECT_URI", c.Google.RedirectURI)
	require("GOOGLE_STATE_SECRET", c.Google.StateSecret)

	switch c.LLM.Provider {
	case LLMProviderOpenAI:
		require("OPENAI_API_KEY", c.LLM.OpenAIKey)
	case LLMProviderVertex:
		require("GOOGLE_CLOUD_PROJECT", c.LLM.VertexProject)
		require("GOOGLE_CLOUD_LOCATION", c.LLM.VertexLocation)
	default:
		return fmt.Errorf("config: LLM_PROVIDER must be %s or %s, got %q", LLMProviderOpenAI, LLMProviderVertex, c.LLM.Provider)
	}

	require("STRIPE_SECRET_KEY", c.Stripe.SecretKey)
	require("STRIPE_WEBHOOK_SECRET", c.Stripe.WebhookSecret)
	require("STRIPE_PRO_PRICE_ID", c.Stripe.ProPriceID)

	if len(missing) > 0 {
		return fmt.Errorf("config: missing required environment: %s", strings.Join(missing, ", "))
	}
	return nil
}
