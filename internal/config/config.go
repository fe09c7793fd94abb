package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Gemini   GeminiConfig
	Athena   AthenaConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	LLMLogFilePath     string
	CorsAllowedOrigins string
	NatsURL            string
	JwtSecret          string
}

type DatabaseConfig struct {
	Driver     string // "postgres" or "sqlite"
	Connection string
}

type GeminiConfig struct {
	APIKey           string
	BaseURL          string
	FallbackModel    string
	DiscoveryTimeout time.Duration
	RequestTimeout   time.Duration
}

type AthenaConfig struct {
	ViewTTL    time.Duration
	EventTopic string // in-process topic consumed by the cleanup service
}

// TracingConfig gates the OTLP exporter; tracing is off unless
// OTEL_ENABLED=true.
type TracingConfig struct {
	Enabled     bool
	Endpoint    string // host:port of the OTLP HTTP collector
	ServiceName string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			LLMLogFilePath:     getEnv("LLM_LOG_FILE_PATH", "logs/llm.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			JwtSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Gemini: GeminiConfig{
			APIKey:           getEnv("GOOGLE_GEMINI_API_KEY", ""),
			BaseURL:          getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
			FallbackModel:    getEnv("GEMINI_FALLBACK_MODEL", "gemini-pro"),
			DiscoveryTimeout: getEnvAsDuration("GEMINI_DISCOVERY_TIMEOUT", 10*time.Second),
			RequestTimeout:   getEnvAsDuration("GEMINI_REQUEST_TIMEOUT", 120*time.Second),
		},
		Athena: AthenaConfig{
			ViewTTL:    getEnvAsDuration("ATHENA_VIEW_TTL", time.Hour),
			EventTopic: getEnv("ATHENA_EVENT_TOPIC", "ATHENA_SESSION_DELETED"),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "athena-backend"),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
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

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("30s") or a bare number of seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if secs := getEnvAsInt(key, -1); secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
