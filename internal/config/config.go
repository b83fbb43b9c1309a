package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultMaxAudioBytes caps outbound voice payloads at 10MB.
const DefaultMaxAudioBytes = 10 * 1024 * 1024

// Config holds all configuration for the application.
type Config struct {
	Port string
	Env  string

	// AssistantEvent is the event tag the presentation layer treats as
	// assistant output. Static for the process lifetime.
	AssistantEvent string

	TextWebhookURL  string
	VoiceWebhookURL string

	HistorySize    int           // ring buffer capacity
	WebhookTimeout time.Duration // bound on outbound webhook calls
	MaxAudioBytes  int64
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		AssistantEvent:  getEnv("ASSISTANT_EVENT", "Control"),
		TextWebhookURL:  os.Getenv("TEXT_WEBHOOK_URL"),
		VoiceWebhookURL: os.Getenv("VOICE_WEBHOOK_URL"),
		HistorySize:     getEnvInt("HISTORY_SIZE", 100),
		WebhookTimeout:  getEnvDuration("WEBHOOK_TIMEOUT", 15*time.Second),
		MaxAudioBytes:   int64(getEnvInt("MAX_AUDIO_BYTES", DefaultMaxAudioBytes)),
	}

	// In production, require outbound webhook endpoints
	if cfg.Env == "production" {
		if cfg.TextWebhookURL == "" {
			panic("TEXT_WEBHOOK_URL is required in production")
		}
		if cfg.VoiceWebhookURL == "" {
			panic("VOICE_WEBHOOK_URL is required in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
