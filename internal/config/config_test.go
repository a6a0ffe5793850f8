package config

import (
	"reflect"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"LAWCARDS_API_BASE_URL", "LAWCARDS_HTTP_TIMEOUT", "LAWCARDS_CACHE_BACKEND", "DB_DRIVER", "CORS_ORIGINS", "LAWCARDS_CACHE_MAX_AGE_DAYS"} {
		t.Setenv(k, "")
	}
	c := FromEnv()
	if c.APIBaseURL != "" || c.HTTPTimeout != 10*time.Second || c.CacheBackend != CacheBackendSQL || c.DBDriver != "sqlite" || c.CacheMaxAgeDays != 7 {
		t.Fatalf("defaults: %+v", c)
	}
	if len(c.CORSOrigins) != 2 {
		t.Fatalf("cors: %v", c.CORSOrigins)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("LAWCARDS_API_BASE_URL", "https://origin.example/api/")
	t.Setenv("LAWCARDS_HTTP_TIMEOUT", "2500")
	t.Setenv("LAWCARDS_CACHE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "redis://cache:6379")
	t.Setenv("CORS_ORIGINS", " http://a , ,http://b")
	t.Setenv("LAWCARDS_WARM_ON_START", "no")

	c := FromEnv()
	if c.APIBaseURL != "https://origin.example/api" {
		t.Fatalf("base url %q", c.APIBaseURL)
	}
	if c.HTTPTimeout != 2500*time.Millisecond {
		t.Fatalf("timeout %v", c.HTTPTimeout)
	}
	if c.CacheBackend != CacheBackendRedis || c.RedisAddr != "cache:6379" {
		t.Fatalf("backend %q addr %q", c.CacheBackend, c.RedisAddr)
	}
	if !reflect.DeepEqual(c.CORSOrigins, []string{"http://a", "http://b"}) {
		t.Fatalf("cors %v", c.CORSOrigins)
	}
	if c.WarmOnStart {
		t.Fatalf("warm on start should be off")
	}
}

func TestEnvHelpers_BadValuesFallBack(t *testing.T) {
	t.Setenv("X_INT", "seven")
	t.Setenv("X_DUR", "-5s")
	t.Setenv("X_BOOL", "maybe")
	if envInt("X_INT", 3) != 3 || envDuration("X_DUR", time.Second) != time.Second || !envBool("X_BOOL", true) {
		t.Fatalf("bad values should fall back to defaults")
	}
}

func TestLocation(t *testing.T) {
	c := Config{Timezone: "Not/AZone"}
	if _, off := time.Date(2025, 1, 1, 0, 0, 0, 0, c.Location()).Zone(); off != 7*3600 {
		t.Fatalf("fallback offset %d", off)
	}
}
