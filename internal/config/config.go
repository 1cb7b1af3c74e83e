package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr  string
	PublicURL string

	DBDriver string
	DBDSN    string

	AuthSecret string
	TokenTTL   time.Duration

	UploadBasePath string
	MaxImportMB    int64
	MaxImageMB     int64
	MaxVideoMB     int64
	MaxAudioMB     int64

	CORSOrigins []string
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:       addr,
		PublicURL:      os.Getenv("PUBLIC_URL"),
		DBDriver:       envOr("DB_DRIVER", "sqlite"),
		DBDSN:          envOr("DB_DSN", ""),
		AuthSecret:     envOr("AUTH_HMAC_SECRET", "dev-secret-change-me"),
		TokenTTL:       envDuration("TOKEN_TTL", 8*time.Hour),
		UploadBasePath: envOr("UPLOAD_BASE_PATH", "./uploads"),
		MaxImportMB:    envInt("MAX_IMPORT_MB", 10),
		MaxImageMB:     envInt("MAX_IMAGE_MB", 5),
		MaxVideoMB:     envInt("MAX_VIDEO_MB", 50),
		MaxAudioMB:     envInt("MAX_AUDIO_MB", 10),
		CORSOrigins:    csvOr("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int64) int64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
