package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every tunable of the service. The retrieval and
// classification constants are deliberately configuration, not code:
// the source law corpus and the model backends change independently of
// this binary.
type Config struct {
	GeminiAPIKey   string
	ChatModel      string
	EmbeddingModel string
	RerankURL      string

	DatabaseURL  string
	TemplatesDir string
	HTTPPort     string
	LogLevel     string

	DefaultTemplate      string
	RetrievalTopK        int
	OversampleMultiplier int
	SimilarityThreshold  float64
	ConfidenceThreshold  float64
	HistoryWindow        int
	MaxRetries           int
	RetryInterval        time.Duration
	BackendTimeout       time.Duration

	CancelPhrases  []string
	ConfirmPhrases []string
}

func Load() *Config {
	// .env is optional; environment variables win either way.
	_ = godotenv.Load()

	return &Config{
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		ChatModel:      getEnv("CHAT_MODEL", "gemini-1.5-flash-latest"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-004"),
		RerankURL:      getEnv("RERANK_URL", ""),

		DatabaseURL:  getEnv("DATABASE_URL", "chatbot.db"),
		TemplatesDir: getEnv("TEMPLATES_DIR", ""),
		HTTPPort:     getEnv("HTTP_PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "INFO"),

		DefaultTemplate:      getEnv("DEFAULT_TEMPLATE", "giay_de_nghi"),
		RetrievalTopK:        getEnvAsInt("RETRIEVAL_TOP_K", 3),
		OversampleMultiplier: getEnvAsInt("OVERSAMPLE_MULTIPLIER", 3),
		SimilarityThreshold:  getEnvAsFloat("SIMILARITY_THRESHOLD", 0.6),
		ConfidenceThreshold:  getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.6),
		HistoryWindow:        getEnvAsInt("HISTORY_WINDOW", 6),
		MaxRetries:           getEnvAsInt("MAX_RETRIES", 1),
		RetryInterval:        getEnvAsDuration("RETRY_INTERVAL", 500*time.Millisecond),
		BackendTimeout:       getEnvAsDuration("BACKEND_TIMEOUT", 30*time.Second),

		CancelPhrases:  getEnvAsSlice("CANCEL_PHRASES", nil),
		ConfirmPhrases: getEnvAsSlice("CONFIRM_PHRASES", nil),
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
