package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains runtime configuration values.
type Config struct {
	Environment string
	HTTPPort    string
	ServiceName string
	DatabaseURL string
	AutoMigrate bool

	JWTSecret      string
	SessionTTL     time.Duration
	CookieName     string
	CookieSecure   bool
	CookieHTTPOnly bool

	RateLimitRPM         int
	TelemetryEndpoint    string
	TelemetryInsecure    bool
	CORSAllowedOrigins   []string
	CORSAllowedMethods   []string
	CORSAllowedHeaders   []string
	CORSAllowCredentials bool

	AWSRegion        string
	S3Bucket         string
	S3PublicBaseURL  string
	S3Endpoint       string
	StorageTimeout   time.Duration
	MaxImageBytes    int64
	MaxDocumentBytes int64

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ListCacheTTL  time.Duration

	MongoURI      string
	MongoDatabase string

	IdentityVerifierURL     string
	IdentityVerifierTimeout time.Duration
	IdentityStrictRoleHint  bool

	ProverURL     string
	ProverTimeout time.Duration

	WebhookSecretHash string
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is applied first when present; real
// environment variables always win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	env := getEnv("APP_ENV", "development")
	cfg := Config{
		Environment: env,
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		ServiceName: getEnv("SERVICE_NAME", "yesbroker-api"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		AutoMigrate: getBool("AUTO_MIGRATE", false),

		JWTSecret:      os.Getenv("JWT_SECRET"),
		SessionTTL:     getDuration("SESSION_TTL", 7*24*time.Hour),
		CookieName:     getEnv("COOKIE_NAME", "yesbroker_token"),
		CookieSecure:   getBool("COOKIE_SECURE", env == "production"),
		CookieHTTPOnly: getBool("COOKIE_HTTP_ONLY", false),

		RateLimitRPM:         getInt("RATE_LIMIT_RPM", 600),
		TelemetryEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure:    getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		CORSAllowedOrigins:   getList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		CORSAllowedMethods:   getList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		CORSAllowedHeaders:   getList("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type", "X-Webhook-Secret"}),
		CORSAllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", true),

		AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
		S3Bucket:         os.Getenv("S3_BUCKET_NAME"),
		S3PublicBaseURL:  os.Getenv("S3_PUBLIC_BASE_URL"),
		S3Endpoint:       os.Getenv("S3_ENDPOINT"),
		StorageTimeout:   getDuration("STORAGE_TIMEOUT", 30*time.Second),
		MaxImageBytes:    getInt64("MAX_IMAGE_BYTES", 5<<20),
		MaxDocumentBytes: getInt64("MAX_DOCUMENT_BYTES", 10<<20),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),
		ListCacheTTL:  getDuration("LIST_CACHE_TTL", 30*time.Second),

		MongoURI:      os.Getenv("MONGO_URI"),
		MongoDatabase: getEnv("MONGO_DATABASE", "yesbroker"),

		IdentityVerifierURL:     os.Getenv("IDENTITY_VERIFIER_URL"),
		IdentityVerifierTimeout: getDuration("IDENTITY_VERIFIER_TIMEOUT", 15*time.Second),
		IdentityStrictRoleHint:  getBool("IDENTITY_STRICT_ROLE_HINT", false),

		ProverURL:     os.Getenv("PROVER_URL"),
		ProverTimeout: getDuration("PROVER_TIMEOUT", 120*time.Second),

		WebhookSecretHash: os.Getenv("WEBHOOK_SECRET_HASH"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return Config{}, fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}

	return cfg, nil
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getInt64(key string, def int64) int64 {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}

func getList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok {
		parts := strings.Split(v, ",")
		var cleaned []string
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}
		if len(cleaned) > 0 {
			return cleaned
		}
	}
	return def
}
