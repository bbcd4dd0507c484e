package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

// Config holds runtime configuration loaded from environment variables.
type Config struct {
	Port                   string
	DatabaseURL            string
	JWTSecret              string
	JWTIssuer              string
	AccessTTLSeconds       int64
	MediaStoragePath       string
	MetricsDiskPath        string
	MetricsToken           string
	CorsOrigins            []string
	BootstrapAdminUsername string
	BootstrapAdminPassword string
	LogDir                 string
	LogRetentionDays       int
}

var ErrMissingSecret = errors.New("missing env var: JWT_SECRET")

func Load() (Config, error) {
	cfg := Config{
		Port:                   envOr("PORT", "8080"),
		DatabaseURL:            envOr("DATABASE_URL", "guarderia.db"),
		JWTSecret:              envOr("JWT_SECRET", ""),
		JWTIssuer:              envOr("JWT_ISSUER", "guarderia"),
		AccessTTLSeconds:       int64(envOrInt("ACCESS_TTL_SECONDS", 0)),
		MediaStoragePath:       envOr("MEDIA_STORAGE_PATH", "storage/media"),
		MetricsDiskPath:        envOr("METRICS_DISK_PATH", "storage"),
		MetricsToken:           envOr("METRICS_TOKEN", ""),
		CorsOrigins:            parseCSV(envOr("CORS_ORIGINS", "")),
		BootstrapAdminUsername: envOr("BOOTSTRAP_ADMIN_USERNAME", "admin"),
		BootstrapAdminPassword: envOr("BOOTSTRAP_ADMIN_PASSWORD", "admin123"),
		LogDir:                 envOr("LOG_DIR", "storage/logs"),
		LogRetentionDays:       clampRetention(envOrInt("LOG_RETENTION_DAYS", 7)),
	}
	if cfg.JWTSecret == "" {
		return Config{}, ErrMissingSecret
	}
	return cfg, nil
}

func clampRetention(days int) int {
	if days < 1 {
		return 7
	}
	if days > 7 {
		return 7
	}
	return days
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}
