package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env        string
	ServerPort string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	JWTSecret  string

	// Device push provider (Expo-compatible HTTP endpoint). Empty URL
	// disables push dispatch entirely.
	PushURL     string
	PushTimeout time.Duration

	// Assistant completion provider. Empty API key makes the assistant
	// answer with its static fallback instead of calling out.
	AssistantBaseURL string
	AssistantAPIKey  string
	AssistantModel   string
	AssistantTimeout time.Duration

	// Background dispatcher sizing.
	TaskWorkers   int
	TaskQueueSize int
}

func Load() *Config {
	// .env is a developer convenience; absence is not an error.
	_ = godotenv.Load()

	return &Config{
		Env:        getEnv("APP_ENV", "development"),
		ServerPort: getEnv("SERVER_PORT", "8080"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "aura"),
		DBPassword: getEnv("DB_PASSWORD", "aura_dev_password"),
		DBName:     getEnv("DB_NAME", "aura"),
		JWTSecret:  getEnv("JWT_SECRET", "dev-secret-change-me"),

		PushURL:     getEnv("PUSH_URL", "https://exp.host/--/api/v2/push/send"),
		PushTimeout: getDuration("PUSH_TIMEOUT", 10*time.Second),

		AssistantBaseURL: getEnv("ASSISTANT_BASE_URL", "https://api.openai.com/v1"),
		AssistantAPIKey:  getEnv("ASSISTANT_API_KEY", ""),
		AssistantModel:   getEnv("ASSISTANT_MODEL", "gpt-4o-mini"),
		AssistantTimeout: getDuration("ASSISTANT_TIMEOUT", 30*time.Second),

		TaskWorkers:   getInt("TASK_WORKERS", 4),
		TaskQueueSize: getInt("TASK_QUEUE_SIZE", 256),
	}
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}

func getInt(key string, fallback int) int {
	val, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}

	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return fallback
	}

	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	val, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}

	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return fallback
	}

	return d
}
