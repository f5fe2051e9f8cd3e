package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Ai       AIConfig
	Engine   EngineConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	OracleLogFilePath  string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	SessionStore       string // "memory" or "redis"
}

type DatabaseConfig struct {
	Connection string
}

type AuthConfig struct {
	JwtSecret      string
	TokenTTLHours  int
	AdminEmail     string
	AdminPassword  string
}

type AIConfig struct {
	LLMProvider      string // "ollama" or "huggingface"
	LLMModel         string // e.g. "llama3", "qwen2.5"
	OllamaBaseURL    string
	HuggingFaceToken string
	MaxRetries       int
	RetryBaseDelayMs int
}

type EngineConfig struct {
	ContextTurns      int // tunable per deployment, clamped to [6, 20]
	MaxTurnRunes      int
	SessionTTLMinutes int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	cfg := &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			OracleLogFilePath:  getEnv("ORACLE_LOG_FILE_PATH", "logs/oracle.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			SessionStore:       getEnv("SESSION_STORE", "memory"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			JwtSecret:     getEnv("JWT_SECRET", ""),
			TokenTTLHours: getEnvAsInt("JWT_TTL_HOURS", 24),
			AdminEmail:    getEnv("ADMIN_EMAIL", "admin@medintake.local"),
			AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		},
		Ai: AIConfig{
			LLMProvider:      getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:         getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL:    getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			HuggingFaceToken: getEnv("HUGGINGFACE_API_TOKEN", ""),
			MaxRetries:       getEnvAsInt("LLM_MAX_RETRIES", 2),
			RetryBaseDelayMs: getEnvAsInt("LLM_RETRY_BASE_DELAY_MS", 500),
		},
		Engine: EngineConfig{
			ContextTurns:      getEnvAsInt("ENGINE_CONTEXT_TURNS", 10),
			MaxTurnRunes:      getEnvAsInt("ENGINE_MAX_TURN_RUNES", 200),
			SessionTTLMinutes: getEnvAsInt("SESSION_TTL_MINUTES", 120),
		},
	}

	// Keep the oracle context window inside the supported range.
	if cfg.Engine.ContextTurns < 6 {
		cfg.Engine.ContextTurns = 6
	}
	if cfg.Engine.ContextTurns > 20 {
		cfg.Engine.ContextTurns = 20
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
