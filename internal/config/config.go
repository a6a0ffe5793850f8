package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type CacheBackend string

const (
	CacheBackendSQL   CacheBackend = "sql"
	CacheBackendRedis CacheBackend = "redis"
)

type Config struct {
	HTTPAddr string
	LogMode  string // dev|prod

	// Remote content origin. An empty APIBaseURL means "use bundled content".
	APIBaseURL         string
	DescriptionBaseURL string
	AssetBaseURL       string
	HTTPTimeout        time.Duration

	CacheBackend    CacheBackend
	CacheMaxAgeDays int
	Timezone        string // civil calendar zone used for human-readable cache dates

	DBDriver  string // sqlite|postgres
	DBDSN     string
	RedisAddr string

	BlobBasePath string // export target for cached diagrams/documents

	CORSOrigins []string

	// WarmOnStart makes the daemon run LoadCategories once before serving.
	WarmOnStart bool
}

func FromEnv() Config {
	return Config{
		HTTPAddr: envOr("HTTP_ADDR", ":8080"),
		LogMode:  envOr("LOG_MODE", "dev"),

		APIBaseURL:         strings.TrimSuffix(os.Getenv("LAWCARDS_API_BASE_URL"), "/"),
		DescriptionBaseURL: strings.TrimSuffix(envOr("LAWCARDS_DESCRIPTION_BASE_URL", "https://raw.githubusercontent.com/WaiRung/thai-law-data/main/api/descriptions"), "/"),
		AssetBaseURL:       strings.TrimSuffix(os.Getenv("LAWCARDS_ASSET_BASE_URL"), "/"),
		HTTPTimeout:        envDuration("LAWCARDS_HTTP_TIMEOUT", 10*time.Second),

		CacheBackend:    CacheBackend(envOr("LAWCARDS_CACHE_BACKEND", string(CacheBackendSQL))),
		CacheMaxAgeDays: envInt("LAWCARDS_CACHE_MAX_AGE_DAYS", 7),
		Timezone:        envOr("LAWCARDS_TIMEZONE", "Asia/Bangkok"),

		DBDriver:  envOr("DB_DRIVER", "sqlite"),
		DBDSN:     envOr("DB_DSN", ""),
		RedisAddr: strings.TrimPrefix(envOr("REDIS_ADDR", "localhost:6379"), "redis://"),

		BlobBasePath: envOr("BLOB_BASE_PATH", "./data"),

		CORSOrigins: csvOr("CORS_ORIGINS", "http://localhost:5173,http://localhost:4173"),
		WarmOnStart: envBool("LAWCARDS_WARM_ON_START", true),
	}
}

// Location resolves Timezone, falling back to UTC+7 when the zone database
// is unavailable on the host.
func (c Config) Location() *time.Location {
	if loc, err := time.LoadLocation(c.Timezone); err == nil {
		return loc
	}
	return time.FixedZone("ICT", 7*60*60)
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
func envDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	// bare integers are milliseconds
	if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return def
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
