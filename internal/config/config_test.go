package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3000}
		assert.Equal(t, ":3000", cfg.Addr())
	})

	t.Run("AITimeout converts seconds to duration", func(t *testing.T) {
		cfg := &Config{AITimeoutSecs: 25}
		assert.Equal(t, 25*time.Second, cfg.AITimeout())
	})

	t.Run("ConversationIdleWindow converts days", func(t *testing.T) {
		cfg := &Config{ConversationIdleDays: 30}
		assert.Equal(t, 30*24*time.Hour, cfg.ConversationIdleWindow())
	})
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			DatabaseURL:   "postgres://localhost/concierge",
			RedisURL:      "rediss://localhost:6379",
			AITimeoutSecs: 25,
		}
	}

	t.Run("rejects AI timeout at or above the webhook deadline", func(t *testing.T) {
		cfg := base()
		cfg.AITimeoutSecs = 30
		assert.Error(t, cfg.Validate(false))

		cfg.AITimeoutSecs = 0
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("rejects non-bcrypt dashboard token hash", func(t *testing.T) {
		cfg := base()
		cfg.DashboardTokenHash = "plaintext-token"
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("accepts bcrypt dashboard token hash", func(t *testing.T) {
		cfg := base()
		cfg.DashboardTokenHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
		assert.NoError(t, cfg.Validate(false))
	})

	t.Run("production requires the Twilio auth token", func(t *testing.T) {
		cfg := base()
		cfg.BackendURL = "https://ai.example.com"
		err := cfg.Validate(true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "TWILIO_AUTH_TOKEN")
	})

	t.Run("production rejects weak auth token", func(t *testing.T) {
		cfg := base()
		cfg.TwilioAuthToken = "secret"
		cfg.BackendURL = "https://ai.example.com"
		assert.Error(t, cfg.Validate(true))
	})

	t.Run("production requires an AI destination", func(t *testing.T) {
		cfg := base()
		cfg.TwilioAuthToken = "3c129b2fa4baa150a4b66e9e0f8a1c2d"
		err := cfg.Validate(true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "BACKEND_URL")
	})

	t.Run("production passes with full config", func(t *testing.T) {
		cfg := base()
		cfg.TwilioAuthToken = "3c129b2fa4baa150a4b66e9e0f8a1c2d"
		cfg.BackendURL = "https://ai.example.com"
		cfg.PublicBaseURL = "https://shop.example.com"
		assert.NoError(t, cfg.Validate(true))
	})
}

func TestLoad(t *testing.T) {
	vars := []string{"PORT", "DATABASE_URL", "REDIS_URL", "LOG_LEVEL", "AI_TIMEOUT_SECONDS"}
	original := map[string]string{}
	for _, k := range vars {
		original[k] = os.Getenv(k)
	}
	defer func() {
		for k, v := range original {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	t.Run("fails without required vars", func(t *testing.T) {
		os.Unsetenv("DATABASE_URL")
		os.Unsetenv("REDIS_URL")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("loads with defaults", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/concierge")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Unsetenv("PORT")
		os.Unsetenv("AI_TIMEOUT_SECONDS")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, 25*time.Second, cfg.AITimeout())
	})
}
