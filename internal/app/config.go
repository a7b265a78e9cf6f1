package app

import (
	"os"
	"strconv"
	"strings"
)

// Config stores runtime configuration loaded from environment variables.
type Config struct {
	AppEnv              string
	HTTPAddr            string
	DBDriver            string
	DBDSN               string
	DBMaxOpenConns      int
	DBMaxIdleConns      int
	DBConnMaxLifeMins   int
	ExamStore           string
	MongoURI            string
	MongoDatabase       string
	SessionTTLMinutes   int
	CookieSecure        bool
	CSRFEnforced        bool
	AuthRateLimitPerMin int
	CORSOrigins         []string
}

const (
	ExamStoreSQL    = "sql"
	ExamStoreMongo  = "mongo"
	ExamStoreMemory = "memory"
)

func LoadConfig() Config {
	appEnv := envOrDefault("APP_ENV", "development")
	return Config{
		AppEnv:              appEnv,
		HTTPAddr:            envOrDefault("HTTP_ADDR", ":8080"),
		DBDriver:            strings.ToLower(envOrDefault("DB_DRIVER", "sqlite")),
		DBDSN:               os.Getenv("DB_DSN"),
		DBMaxOpenConns:      intOrDefault("DB_MAX_OPEN_CONNS", 0),
		DBMaxIdleConns:      intOrDefault("DB_MAX_IDLE_CONNS", 0),
		DBConnMaxLifeMins:   intOrDefault("DB_CONN_MAX_LIFETIME_MINUTES", 0),
		ExamStore:           strings.ToLower(envOrDefault("EXAM_STORE", ExamStoreSQL)),
		MongoURI:            envOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:       envOrDefault("MONGO_DATABASE", "onlineexam"),
		SessionTTLMinutes:   intOrDefault("SESSION_TTL_MINUTES", 60),
		CookieSecure:        boolOrDefault("COOKIE_SECURE", appEnv == "production"),
		CSRFEnforced:        boolOrDefault("CSRF_ENFORCED", false),
		AuthRateLimitPerMin: intOrDefault("AUTH_RATE_LIMIT_PER_MINUTE", 60),
		CORSOrigins:         csvOrDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"),
	}
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsToInt(v string) int {
	n, _ := strconv.Atoi(v)
	return n
}

func intOrDefault(key string, fallback int) int {
	v := stringsToInt(os.Getenv(key))
	if v <= 0 {
		return fallback
	}
	return v
}

func boolOrDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func csvOrDefault(key, fallback string) []string {
	parts := strings.Split(envOrDefault(key, fallback), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
