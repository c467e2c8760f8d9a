package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Fetch
	FetchTimeout         time.Duration
	FetchMaxSize         int64
	FetchHostInterval    time.Duration
	FetchUserAgent       string
	AllowPrivateNetworks bool

	// Sync
	SyncMaxConcurrent int
	SyncIntervalHours int
	CleanupInterval   time.Duration

	// Rate Limit
	RateLimitGeneral         int
	RateLimitSubscriptionAdd int

	// Logging
	LogLevel string

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// 同期間隔の許容範囲（時間単位）。
const (
	MinSyncIntervalHours     = 1
	MaxSyncIntervalHours     = 168
	DefaultSyncIntervalHours = 4
)

// DefaultDatabaseURL はDATABASE_URL未設定時に使用するローカルSQLiteファイル。
const DefaultDatabaseURL = "file:feedclip.db"

// Load は環境変数からConfigを読み込む。
// 値が許容範囲外の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.DatabaseURL = getEnvString("DATABASE_URL", DefaultDatabaseURL)
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 10*time.Second)
	cfg.FetchMaxSize = getEnvInt64("FETCH_MAX_BODY_SIZE", 5242880)
	cfg.FetchHostInterval = getEnvDuration("FETCH_HOST_INTERVAL", 500*time.Millisecond)
	cfg.FetchUserAgent = getEnvString("FETCH_USER_AGENT", "feedclip/1.0")
	cfg.AllowPrivateNetworks = getEnvBool("ALLOW_PRIVATE_NETWORKS", false)
	cfg.SyncMaxConcurrent = getEnvInt("SYNC_MAX_CONCURRENT", 4)
	cfg.SyncIntervalHours = getEnvInt("SYNC_INTERVAL_HOURS", DefaultSyncIntervalHours)
	cfg.CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", 24*time.Hour)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitSubscriptionAdd = getEnvInt("RATE_LIMIT_SUBSCRIPTION_ADD", 10)
	cfg.LogLevel = strings.ToLower(getEnvString("LOG_LEVEL", "info"))
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	var invalid []string
	if cfg.FetchTimeout <= 0 {
		invalid = append(invalid, "FETCH_TIMEOUT")
	}
	if cfg.FetchMaxSize <= 0 {
		invalid = append(invalid, "FETCH_MAX_BODY_SIZE")
	}
	if cfg.FetchHostInterval < 0 {
		invalid = append(invalid, "FETCH_HOST_INTERVAL")
	}
	if cfg.SyncMaxConcurrent < 1 {
		invalid = append(invalid, "SYNC_MAX_CONCURRENT")
	}
	if cfg.SyncIntervalHours < MinSyncIntervalHours || cfg.SyncIntervalHours > MaxSyncIntervalHours {
		invalid = append(invalid, "SYNC_INTERVAL_HOURS")
	}
	if cfg.CleanupInterval <= 0 {
		invalid = append(invalid, "CLEANUP_INTERVAL")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		invalid = append(invalid, "LOG_LEVEL")
	}

	if len(invalid) > 0 {
		return nil, fmt.Errorf("invalid environment variables: %v", invalid)
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
