package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Identity  IdentityConfig
	Generator GeneratorConfig
	SMTP      SMTPConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string

	// StateBackend selects where the process state store lives:
	// "postgres" (shared with the row store) or "memory".
	StateBackend string
}

type IdentityConfig struct {
	// Provider is "supabase" (hosted) or "local" (self-issued JWTs).
	Provider string

	SupabaseURL     string
	SupabaseAnonKey string

	JWTSecret string

	GoogleClientID    string
	GoogleRedirectURL string
}

type GeneratorConfig struct {
	// Provider is "edge" (deployment's llm-proxy function), "ollama" or
	// "huggingface".
	Provider          string
	Model             string
	OllamaBaseURL     string
	HuggingFaceAPIKey string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "chrome-extension://*"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection:   getEnv("DB_CONNECTION_STRING", ""),
			StateBackend: getEnv("STATE_BACKEND", "postgres"),
		},
		Identity: IdentityConfig{
			Provider:          getEnv("IDENTITY_PROVIDER", "supabase"),
			SupabaseURL:       getEnv("SUPABASE_URL", ""),
			SupabaseAnonKey:   getEnv("SUPABASE_ANON_KEY", ""),
			JWTSecret:         getEnv("JWT_SECRET", ""),
			GoogleClientID:    getEnv("GOOGLE_CLIENT_ID", ""),
			GoogleRedirectURL: getEnv("GOOGLE_REDIRECT_URL", ""),
		},
		Generator: GeneratorConfig{
			Provider:          getEnv("GENERATOR_PROVIDER", "edge"),
			Model:             getEnv("GENERATOR_MODEL", "llama3"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			HuggingFaceAPIKey: getEnv("HUGGINGFACE_API_KEY", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "Mimir"),
		},
	}
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
