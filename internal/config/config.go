// Package config loads runtime settings from the environment.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port      string
	PublicURL string
	Locale    string

	StorageDriver string // postgres | mysql | memory
	DatabaseDSN   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret   string
	SessionTTL  time.Duration
	CORSOrigins []string

	AIProvider       string // ollama | openai | claude | huggingface | none
	AIModel          string
	AIBaseURL        string
	AIAPIKey         string
	AITemperature    float64
	AIMaxTokens      int
	AIHistoryLimit   int
	ResponderTimeout time.Duration

	RAGEnabled           bool
	RAGEmbeddingProvider string // huggingface | openai
	RAGEmbeddingModel    string
	RAGEmbeddingURL      string
	RAGAPIKey            string
	RAGThreshold         float64
	RAGTopK              int
	RAGFallbackMessage   string
	RAGStorePath         string

	TelegramBotToken string
	TelegramChatID   int64

	AdminEmail    string
	AdminPassword string
	AdminName     string
}

// Load reads the configuration from environment variables. godotenv is
// expected to have populated the environment already.
func Load() *Config {
	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		PublicURL: getEnv("PUBLIC_URL", "http://localhost:8080"),
		Locale:    getEnv("LOCALE", "en"),

		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", "postgres")),
		DatabaseDSN:   getEnv("DATABASE_DSN", "host=localhost user=user password=password dbname=livechat port=5432 sslmode=disable"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		JWTSecret:   getEnv("JWT_SECRET", ""),
		SessionTTL:  getDurationEnv("SESSION_TTL", DefaultSessionTTL),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080")),

		AIProvider:       strings.ToLower(getEnv("AI_PROVIDER", "ollama")),
		AIModel:          getEnv("AI_MODEL", ""),
		AIBaseURL:        getEnv("AI_BASE_URL", ""),
		AIAPIKey:         getEnv("AI_API_KEY", ""),
		AITemperature:    getFloatEnv("AI_TEMPERATURE", DefaultTemperature),
		AIMaxTokens:      getIntEnv("AI_MAX_TOKENS", DefaultMaxTokens),
		AIHistoryLimit:   getIntEnv("AI_HISTORY_LIMIT", DefaultHistoryLimit),
		ResponderTimeout: getDurationEnv("RESPONDER_TIMEOUT", DefaultResponderTimeout),

		RAGEnabled:           getBoolEnv("RAG_ENABLED", false),
		RAGEmbeddingProvider: strings.ToLower(getEnv("RAG_EMBEDDING_PROVIDER", "huggingface")),
		RAGEmbeddingModel:    getEnv("RAG_EMBEDDING_MODEL", "sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2"),
		RAGEmbeddingURL:      getEnv("RAG_EMBEDDING_URL", ""),
		RAGAPIKey:            getEnv("RAG_API_KEY", ""),
		RAGThreshold:         getFloatEnv("RAG_THRESHOLD", DefaultRAGThreshold),
		RAGTopK:              getIntEnv("RAG_TOP_K", DefaultRAGTopK),
		RAGFallbackMessage:   getEnv("RAG_FALLBACK_MESSAGE", ""),
		RAGStorePath:         getEnv("RAG_STORE_PATH", "knowledge.gob"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   int64(getIntEnv("TELEGRAM_CHAT_ID", 0)),

		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@digimax.com"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "admin123"),
		AdminName:     getEnv("ADMIN_NAME", "Admin"),
	}

	if cfg.JWTSecret == "" {
		log.Println("WARNING: JWT_SECRET is not set, using an insecure development secret")
		cfg.JWTSecret = "livechat-dev-secret"
	}
	if cfg.AIHistoryLimit <= 0 {
		cfg.AIHistoryLimit = DefaultHistoryLimit
	}
	if cfg.RAGTopK <= 0 {
		cfg.RAGTopK = DefaultRAGTopK
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARNING: invalid integer for %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getFloatEnv(key string, fallback float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("WARNING: invalid number for %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return f
}

func getBoolEnv(key string, fallback bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("WARNING: invalid boolean for %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return b
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("WARNING: invalid duration for %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
