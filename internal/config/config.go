package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL,required"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Twilio credentials. AuthToken doubles as the webhook signature
	// secret; PublicBaseURL is the externally visible origin used to
	// rebuild the signed webhook URL behind the load balancer.
	TwilioAccountSID   string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken    string `env:"TWILIO_AUTH_TOKEN"`
	TwilioWhatsAppFrom string `env:"TWILIO_WHATSAPP_FROM"`
	PublicBaseURL      string `env:"PUBLIC_BASE_URL"`

	// Primary AI backend. When BackendURL is empty the dispatcher falls
	// back to the workflow engine, which delivers the reply itself.
	BackendURL    string `env:"BACKEND_URL"`
	BackendAPIKey string `env:"BACKEND_API_KEY"`
	WorkflowURL   string `env:"WORKFLOW_WEBHOOK_URL"`
	WorkflowToken string `env:"WORKFLOW_AUTH_TOKEN"`
	AITimeoutSecs int    `env:"AI_TIMEOUT_SECONDS" envDefault:"25"`

	// Dashboard API auth: bcrypt hash of the bearer token.
	DashboardTokenHash string `env:"DASHBOARD_TOKEN_HASH"`

	ConversationIdleDays int `env:"CONVERSATION_IDLE_DAYS" envDefault:"30"`
	AILogRetentionDays   int `env:"AI_LOG_RETENTION_DAYS" envDefault:"90"`
}

func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AITimeoutSecs) * time.Second
}

func (c *Config) ConversationIdleWindow() time.Duration {
	return time.Duration(c.ConversationIdleDays) * 24 * time.Hour
}

func (c *Config) AILogRetention() time.Duration {
	return time.Duration(c.AILogRetentionDays) * 24 * time.Hour
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	// The dispatcher deadline must stay strictly inside Twilio's own 30s
	// webhook deadline so the handler can still log and respond on expiry.
	if c.AITimeoutSecs <= 0 || c.AITimeoutSecs >= 30 {
		return fmt.Errorf("AI_TIMEOUT_SECONDS must be between 1 and 29")
	}

	if c.DashboardTokenHash != "" {
		if !strings.HasPrefix(c.DashboardTokenHash, "$2a$") &&
			!strings.HasPrefix(c.DashboardTokenHash, "$2b$") &&
			!strings.HasPrefix(c.DashboardTokenHash, "$2y$") {
			return fmt.Errorf("DASHBOARD_TOKEN_HASH must be a bcrypt hash (generate with: go run scripts/hash-token.go <token>)")
		}
	}

	if isProduction {
		if c.TwilioAuthToken == "" {
			return fmt.Errorf("TWILIO_AUTH_TOKEN is required in production: webhook signature verification cannot be disabled")
		}
		if err := validateSecret("TWILIO_AUTH_TOKEN", c.TwilioAuthToken); err != nil {
			return err
		}
		if c.BackendURL == "" && c.WorkflowURL == "" {
			return fmt.Errorf("either BACKEND_URL or WORKFLOW_WEBHOOK_URL must be configured")
		}
		if c.PublicBaseURL == "" {
			log.Warn().Msg("PUBLIC_BASE_URL is empty in production: signed URL will be reconstructed from forwarding headers")
		}
		if c.DashboardTokenHash == "" {
			log.Warn().Msg("DASHBOARD_TOKEN_HASH is empty in production: dashboard API is disabled")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 16 {
		return fmt.Errorf("%s looks too short to be a real credential", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set the real credential", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
