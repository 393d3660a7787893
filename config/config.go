package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// AppConfig holds environment driven configuration values.
// Sensitive values have no in-code defaults and must come from the
// environment or a .env file loaded before Load is called.
type AppConfig struct {
	AppPort     string
	DatabaseURL string

	// Redis (leaderboard cache)
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// Logging
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool

	// R2 snapshot archive. An empty bucket disables archiving.
	R2AccountID       string
	R2AccessKeyID     string
	R2AccessKeySecret string
	R2Bucket          string

	AllowedOrigins []string

	// League cycle
	LeagueCron string // weekly ranking trigger, cron syntax

	// Offline replay worker
	ReplayInterval time.Duration
	ReplayMinAge   time.Duration

	// Gateway / profile service integration
	ServiceToken        string // bearer token expected from the gateway; empty disables the check
	ProfileServiceURL   string // profile mirror source; empty disables the sync worker
	ProfileSyncInterval time.Duration
}

var (
	cfg  *AppConfig
	once sync.Once
)

// Load reads configuration from the environment exactly once.
func Load() *AppConfig {
	once.Do(func() {
		cfg = &AppConfig{
			AppPort:     getEnv("APP_PORT", "5300"),
			DatabaseURL: os.Getenv("DATABASE_URL"),

			RedisHost:     getEnv("REDIS_HOST", "localhost"),
			RedisPort:     getEnvInt("REDIS_PORT", 6379),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       getEnvInt("REDIS_DB", 0),

			LogLevel:      getEnv("LOG_LEVEL", "info"),
			LogPath:       getEnv("LOG_PATH", "logs/app.log"),
			LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
			LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
			LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 7),
			LogCompress:   getEnvBool("LOG_COMPRESS", true),

			R2AccountID:       os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
			R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			R2AccessKeySecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
			R2Bucket:          os.Getenv("R2_BUCKET_NAME"),

			AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),

			LeagueCron: getEnv("LEAGUE_CRON", "0 0 * * 1"), // Mondays 00:00 UTC

			ReplayInterval: getEnvDuration("REPLAY_INTERVAL", 5*time.Minute),
			ReplayMinAge:   getEnvDuration("REPLAY_MIN_AGE", time.Minute),

			ServiceToken:        os.Getenv("SERVICE_TOKEN"),
			ProfileServiceURL:   os.Getenv("PROFILE_SERVICE_URL"),
			ProfileSyncInterval: getEnvDuration("PROFILE_SYNC_INTERVAL", time.Minute),
		}
	})
	return cfg
}

// Get returns the loaded configuration, loading it if necessary.
func Get() *AppConfig {
	return Load()
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
