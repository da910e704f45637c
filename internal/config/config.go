package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port int

	DBURL string

	// Session signing
	JWTSecret           string
	JWTAccessTTLMinutes int
	JWTRefreshTTLDays   int

	// Generation service (Groq, OpenAI-compatible chat completions)
	GroqAPIKey         string
	GroqBaseURL        string
	GroqModel          string
	GenTimeoutSeconds  int
	GenMaxOutputTokens int
	GenTemperature     float64

	// Optional redis backend for the statements list cache.
	// Empty addr means the in-process TTL cache is used instead.
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	ListCacheTTLSeconds int

	CORSAllowedOrigins []string
	OTLPEndpoint       string

	RateLimitPerMinute int

	// Optional dev bootstrap account, created at startup when both are set.
	BootstrapUsername string
	BootstrapPassword string
}

func Load() Config {
	// .env is optional; deployed environments set variables directly.
	_ = godotenv.Load()

	return Config{
		Env:   getEnv("APP_ENV", "dev"),
		Port:  getEnvInt("PORT", 8080),
		DBURL: buildDBURL(),

		JWTSecret:           getEnv("JWT_SECRET", ""),
		JWTAccessTTLMinutes: getEnvInt("JWT_ACCESS_TTL_MINUTES", 15),
		JWTRefreshTTLDays:   getEnvInt("JWT_REFRESH_TTL_DAYS", 7),

		GroqAPIKey:         getEnv("GROQ_API_KEY", ""),
		GroqBaseURL:        getEnv("GROQ_BASE_URL", "https://api.groq.com/openai"),
		GroqModel:          getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		GenTimeoutSeconds:  getEnvInt("GEN_TIMEOUT_SECONDS", 60),
		GenMaxOutputTokens: getEnvInt("GEN_MAX_OUTPUT_TOKENS", 2048),
		GenTemperature:     getEnvFloat("GEN_TEMPERATURE", 0.7),

		RedisAddr:           getEnv("REDIS_ADDR", ""),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisDB:             getEnvInt("REDIS_DB", 0),
		ListCacheTTLSeconds: getEnvInt("LIST_CACHE_TTL_SECONDS", 30),

		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		OTLPEndpoint:       getEnv("OTLP_ENDPOINT", ""),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		BootstrapUsername: getEnv("BOOTSTRAP_USERNAME", ""),
		BootstrapPassword: getEnv("BOOTSTRAP_PASSWORD", ""),
	}
}

func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLMinutes) * time.Minute
}

func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.JWTRefreshTTLDays) * 24 * time.Hour
}

func (c Config) GenTimeout() time.Duration {
	return time.Duration(c.GenTimeoutSeconds) * time.Second
}

func (c Config) ListCacheTTL() time.Duration {
	return time.Duration(c.ListCacheTTLSeconds) * time.Second
}

func buildDBURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "statementhub")
	pass := getEnv("DB_PASSWORD", "statementhub")
	name := getEnv("DB_NAME", "statementhub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.ParseFloat(v, 64)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
