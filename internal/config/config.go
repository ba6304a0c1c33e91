package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// LLM
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string
	LLMTimeout time.Duration

	// Reminder
	RemindersEnabled bool
	ReminderInterval time.Duration

	// Dispatch
	PushTimeout        time.Duration
	DispatchWorkers    int
	DispatchQueueSize  int
	DispatchDrainGrace time.Duration

	// Preview
	PlanPreviewTimeout time.Duration

	// Cleanup
	TaskRetentionDays int
	CleanupSchedule   string

	// Rate Limit
	RateLimitGeneral int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.LLMAPIKey = os.Getenv("LLM_API_KEY")
	if cfg.LLMAPIKey == "" {
		missing = append(missing, "LLM_API_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.LLMBaseURL = getEnvString("LLM_BASE_URL", "https://api.groq.com/openai/v1")
	cfg.LLMModel = getEnvString("LLM_MODEL", "llama-3.3-70b-versatile")
	cfg.LLMTimeout = getEnvDuration("LLM_TIMEOUT", 30*time.Second)
	cfg.RemindersEnabled = getEnvBool("REMINDERS_ENABLED", true)
	cfg.ReminderInterval = getEnvDuration("REMINDER_INTERVAL", time.Minute)
	cfg.PushTimeout = getEnvDuration("PUSH_TIMEOUT", 10*time.Second)
	cfg.DispatchWorkers = getEnvInt("DISPATCH_WORKERS", 4)
	cfg.DispatchQueueSize = getEnvInt("DISPATCH_QUEUE_SIZE", 64)
	cfg.DispatchDrainGrace = getEnvDuration("DISPATCH_DRAIN_GRACE", 30*time.Second)
	cfg.PlanPreviewTimeout = getEnvDuration("PLAN_PREVIEW_TIMEOUT", 2*time.Second)
	cfg.TaskRetentionDays = getEnvInt("TASK_RETENTION_DAYS", 30)
	cfg.CleanupSchedule = getEnvString("CLEANUP_SCHEDULE", "0 4 * * *")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "*")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
