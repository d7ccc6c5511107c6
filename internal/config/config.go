package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"corkboard/internal/policy"
)

type Config struct {
	Addr          string
	DatabaseURL   string
	SessionSecret string
	AdminSecret   string
	SessionTTL    time.Duration
	BaseURL       string
	CORSOrigin    string
	AppName       string
	// Posting rules
	PostingPolicy            policy.Mode
	RequireEmailVerification bool
	PostInterval             time.Duration
	PostBurst                int
	MaxUploadBytes           int64
	// Search
	MeiliURL       string
	MeiliMasterKey string
	// SMTP Configuration
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	// Media host (S3 compatible)
	MediaEndpoint  string
	MediaAccessKey string
	MediaSecretKey string
	MediaBucket    string
	MediaUseSSL    bool
	MediaPublicURL string
	MediaFolder    string
	// Redis Configuration, optional: sessions fall back to the database
	RedisURL string
	// Chat webhook for new post announcements
	SlackWebhookURL string
}

func Load() Config {
	return Config{
		Addr:          getenv("API_ADDR", ":8787"),
		DatabaseURL:   getenv("DATABASE_URL", "sqlite:corkboard.db"),
		SessionSecret: getenv("CORKBOARD_SESSION_SECRET", "corkboard-dev-secret"),
		AdminSecret:   getenv("CORKBOARD_ADMIN_SECRET", ""),
		SessionTTL:    time.Duration(getenvInt("CORKBOARD_SESSION_TTL_SECONDS", 604800)) * time.Second,
		BaseURL:       strings.TrimRight(getenv("CORKBOARD_BASE_URL", "http://localhost:8787"), "/"),
		CORSOrigin:    getenv("CORKBOARD_CORS_ORIGIN", "*"),
		AppName:       getenv("CORKBOARD_APP_NAME", "Corkboard"),

		PostingPolicy:            policy.Normalize(getenv("POSTING_POLICY", string(policy.ModeOpen))),
		RequireEmailVerification: getenvBool("REQUIRE_EMAIL_VERIFICATION", true),
		PostInterval:             time.Duration(getenvInt("POST_INTERVAL_SECONDS", 10)) * time.Second,
		PostBurst:                getenvInt("POST_BURST", 3),
		MaxUploadBytes:           int64(getenvInt("MAX_UPLOAD_MB", 16)) << 20,

		MeiliURL:       getenv("MEILI_URL", ""),
		MeiliMasterKey: getenv("MEILI_MASTER_KEY", ""),
		// SMTP - empty by default, email disabled if not configured
		SMTPHost:     getenv("SMTP_HOST", ""),
		SMTPPort:     getenv("SMTP_PORT", "587"),
		SMTPUsername: getenv("SMTP_USERNAME", ""),
		SMTPPassword: getenv("SMTP_PASSWORD", ""),
		SMTPFrom:     getenv("SMTP_FROM", ""),
		SMTPFromName: getenv("SMTP_FROM_NAME", "Corkboard"),

		MediaEndpoint:  getenv("MEDIA_ENDPOINT", ""),
		MediaAccessKey: getenv("MEDIA_ACCESS_KEY", ""),
		MediaSecretKey: getenv("MEDIA_SECRET_KEY", ""),
		MediaBucket:    getenv("MEDIA_BUCKET", "corkboard"),
		MediaUseSSL:    getenvBool("MEDIA_USE_SSL", true),
		MediaPublicURL: getenv("MEDIA_PUBLIC_URL", ""),
		MediaFolder:    getenv("MEDIA_FOLDER", "boards"),

		RedisURL:        getenv("REDIS_URL", ""),
		SlackWebhookURL: getenv("SLACK_WEBHOOK_URL", ""),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
