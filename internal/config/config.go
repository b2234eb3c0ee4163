package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	SMTP      SMTPConfig
	Keys      APIKeys
	Ai        AIConfig
	Companion CompanionConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
	AlertEmail string
}

type APIKeys struct {
	GoogleGemini string
	Jina         string
}

type AIConfig struct {
	EmbeddingProvider string // "gemini", "ollama" or "jina"
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // "ollama" or "gemini"
	LLMModel          string // e.g. "llama3", "gemini-1.5-flash"
}

// CompanionConfig holds the dialogue and retrieval tuning knobs.
type CompanionConfig struct {
	SignalThreshold       int
	MaxClarificationTurns int
	ReadinessThreshold    float64
	ReadinessStep         float64

	MaxQueries     int
	SemanticWeight float64
	KeywordWeight  float64
	SemanticK      int
	KeywordK       int
	TopM           int
	TopP           int
	MinRelevance   float64
	SearchTimeout  time.Duration

	SessionTTL          time.Duration
	TurnProcessedTopic  string
	SafetyAlertsEnabled bool

	CrisisKeywords       []string
	AddictionKeywords    []string
	MentalHealthKeywords []string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "Sarathi"),
			AlertEmail: getEnv("SAFETY_ALERT_EMAIL", ""),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			Jina:         getEnv("JINA_API_KEY", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "gemini"),
			LLMModel:          getEnv("LLM_MODEL", "gemini-1.5-flash"),
		},
		Companion: CompanionConfig{
			SignalThreshold:       getEnvAsInt("SIGNAL_THRESHOLD", 3),
			MaxClarificationTurns: getEnvAsInt("MAX_CLARIFICATION_TURNS", 5),
			ReadinessThreshold:    getEnvAsFloat("READINESS_THRESHOLD", 0.8),
			ReadinessStep:         getEnvAsFloat("READINESS_STEP", 0.2),
			MaxQueries:            getEnvAsInt("MAX_EXPANDED_QUERIES", 3),
			SemanticWeight:        getEnvAsFloat("SEMANTIC_WEIGHT", 0.6),
			KeywordWeight:         getEnvAsFloat("KEYWORD_WEIGHT", 0.4),
			SemanticK:             getEnvAsInt("SEMANTIC_K", 10),
			KeywordK:              getEnvAsInt("KEYWORD_K", 10),
			TopM:                  getEnvAsInt("FUSION_TOP_M", 20),
			TopP:                  getEnvAsInt("RERANK_TOP_P", 5),
			MinRelevance:          getEnvAsFloat("RERANK_MIN_RELEVANCE", 0.1),
			SearchTimeout:         time.Duration(getEnvAsInt("SEARCH_TIMEOUT_SECONDS", 5)) * time.Second,
			SessionTTL:            time.Duration(getEnvAsInt("SESSION_TTL_HOURS", 24)) * time.Hour,
			TurnProcessedTopic:    getEnv("TURN_PROCESSED_TOPIC_NAME", "TURN_PROCESSED"),
			SafetyAlertsEnabled:   getEnv("SAFETY_ALERTS_ENABLED", "false") == "true",
			CrisisKeywords:        getEnvAsList("CRISIS_KEYWORDS", nil),
			AddictionKeywords:     getEnvAsList("ADDICTION_KEYWORDS", nil),
			MentalHealthKeywords:  getEnvAsList("MENTAL_HEALTH_KEYWORDS", nil),
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

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	parts := strings.Split(strValue, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
