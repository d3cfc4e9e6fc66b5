package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DatasetPath      string
	DatasetDelimiter rune
	DatasetEncoding  string
	DefaultRadiusKm  float64

	CacheBackend  string
	CachePath     string
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string
	SQLitePath    string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	MaxConcurrency int
	MaxRetries     int

	HTTPAddr      string
	SessionSecret string
	DefaultLang   string

	ChatBaseURL    string
	ChatAPIKey     string
	ChatSmallModel string
	ChatLargeModel string
	ChatTimeout    time.Duration

	ChromeBin string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		DatasetPath:      getEnv("DATASET_PATH", "resources/MOBILE_SERVICE_COVERAGE_BY_COMPANY.csv"),
		DatasetDelimiter: getEnvRune("DATASET_DELIMITER", ';'),
		DatasetEncoding:  strings.ToLower(getEnv("DATASET_ENCODING", "latin-1")),
		DefaultRadiusKm:  getEnvFloat("DEFAULT_RADIUS_KM", 5),

		CacheBackend:  strings.ToLower(getEnv("CACHE_BACKEND", "file")),
		CachePath:     getEnv("CACHE_PATH", "resources/nearby.json"),
		CacheTTL:      getEnvDuration("CACHE_TTL", 0),
		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisKey:      getEnv("REDIS_KEY", "llamarural:nearby"),
		SQLitePath:    getEnv("SQLITE_PATH", "resources/nearby.db"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "llamarural"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "llamarural"),
		PostgresDB:       getEnv("POSTGRES_DB", "coverage_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 4),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),

		HTTPAddr:      getEnv("HTTP_ADDR", ":8501"),
		SessionSecret: getEnv("SESSION_SECRET", "llamarural-dev-session-secret"),
		DefaultLang:   strings.ToLower(getEnv("DEFAULT_LANG", "es")),

		ChatBaseURL:    getEnv("CHAT_BASE_URL", "https://api.aimlapi.com"),
		ChatAPIKey:     getEnv("CHAT_API_KEY", os.Getenv("AIML_API_KEY")),
		ChatSmallModel: getEnv("CHAT_SMALL_MODEL", "meta-llama/Llama-3.2-3B-Instruct-Turbo"),
		ChatLargeModel: getEnv("CHAT_LARGE_MODEL", "meta-llama/Meta-Llama-3.1-405B-Instruct-Turbo"),
		ChatTimeout:    getEnvDuration("CHAT_TIMEOUT", 60*time.Second),

		ChromeBin: getEnv("CHROME_BIN", ""),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(strings.ReplaceAll(val, ",", "."), 64)
		if err == nil && f > 0 {
			return f
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("45s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if n, err := strconv.Atoi(val); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func getEnvRune(key string, fallback rune) rune {
	val := os.Getenv(key)
	switch val {
	case "":
		return fallback
	case `\t`, "tab":
		return '\t'
	}
	return []rune(val)[0]
}
