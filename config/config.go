// Package config loads the API configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultAllowedOrigins is used when ALLOWED_ORIGINS is unset.
var DefaultAllowedOrigins = []string{
	"https://peptide-professor.vercel.app",
	"https://www.professorpeptides.org",
	"http://localhost:3000", // development
}

type Config struct {
	Port string

	AllowedOrigins []string

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitSweep    time.Duration

	DBDriver    string // sqlite or postgres
	DBPath      string
	DatabaseURL string

	ResendAPIKey string
	MailFrom     string
	AdminEmail   string
	SiteURL      string

	DeepLAPIKey      string
	TestSpriteAPIKey string
	DeepLAPIURL      string
	RedisURL         string
	TranslateTTL     time.Duration

	MinioEndpoint  string
	MinioAccess    string
	MinioSecret    string
	MinioBucket    string
	MinioSSL       bool
	BlogContentDir string

	JWTSecret string

	LogLevel string
	LogFile  string
	LogDev   bool

	TraceExporter string

	AuditLogSize    int
	MelanotanStrict bool
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	rateRequests, err := getInt("RATE_LIMIT_REQUESTS", 60)
	if err != nil {
		return Config{}, err
	}
	rateWindow, err := getInt("RATE_LIMIT_WINDOW_SECONDS", 60)
	if err != nil {
		return Config{}, err
	}
	auditSize, err := getInt("AUDIT_LOG_SIZE", 10000)
	if err != nil {
		return Config{}, err
	}
	translateTTL, err := getDuration("TRANSLATE_CACHE_TTL", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	if rateRequests <= 0 || rateWindow <= 0 {
		return Config{}, fmt.Errorf("rate limit requests and window must be positive")
	}

	return Config{
		Port:              getEnv("PORT", "8001"),
		AllowedOrigins:    ParseOrigins(os.Getenv("ALLOWED_ORIGINS")),
		RateLimitRequests: rateRequests,
		RateLimitWindow:   time.Duration(rateWindow) * time.Second,
		RateLimitSweep:    5 * time.Minute,
		DBDriver:          strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBPath:            getEnv("DB_PATH", "/data/peptides.db"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		ResendAPIKey:      os.Getenv("RESEND_API_KEY"),
		MailFrom:          getEnv("MAIL_FROM", "Peptide Professor <noreply@peptideprofessor.com>"),
		AdminEmail:        getEnv("ADMIN_EMAIL", "admin@peptideprofessor.com"),
		SiteURL:           strings.TrimRight(getEnv("SITE_URL", "https://peptide-professor.vercel.app"), "/"),
		DeepLAPIKey:       os.Getenv("DEEPL_API_KEY"),
		TestSpriteAPIKey:  os.Getenv("TESTSPRITE_API_KEY"),
		DeepLAPIURL:       getEnv("DEEPL_API_URL", "https://api-free.deepl.com/v2/translate"),
		RedisURL:          os.Getenv("REDIS_URL"),
		TranslateTTL:      translateTTL,
		MinioEndpoint:     os.Getenv("MINIO_ENDPOINT"),
		MinioAccess:       os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecret:       os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:       getEnv("MINIO_BUCKET", "blog-content"),
		MinioSSL:          getEnv("MINIO_USE_SSL", "false") == "true",
		BlogContentDir:    getEnv("BLOG_CONTENT_DIR", "/app/blog_content"),
		JWTSecret:         getEnv("SECRET_KEY", "your-secret-key-change-in-production"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFile:           os.Getenv("LOG_FILE"),
		LogDev:            getEnv("LOG_DEV", "false") == "true",
		TraceExporter:     getEnv("OTEL_TRACES_EXPORTER", "none"),
		AuditLogSize:      auditSize,
		MelanotanStrict:   getEnv("MELANOTAN_STRICT", "false") == "true",
	}, nil
}

// ParseOrigins splits a comma-separated origin list. An empty value yields
// DefaultAllowedOrigins.
func ParseOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return append([]string(nil), DefaultAllowedOrigins...)
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
