// Package config は環境変数からのアプリケーション設定読み込みを提供する。
package config

import (
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// モックサービスのため必須環境変数はなく、すべてデフォルト値で起動できる。
type Config struct {
	// Server
	ServerPort string

	// Directory
	UsersConfigPath string

	// Static assets
	StaticDir string

	// Callback
	CallbackTimeout     time.Duration
	CallbackStrictGuard bool

	// CORS
	CORSAllowedOrigin string

	// Rate Limit（req/min/IP、0で無効）
	RateLimitLogin int

	// Logging
	LogLevel string
}

// Load は環境変数からConfigを読み込む。
// 未設定の値はローカル開発向けのデフォルトで補う。
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:          getEnvString("SERVER_PORT", "8080"),
		UsersConfigPath:     getEnvString("USERS_CONFIG_PATH", "config/users.yaml"),
		StaticDir:           getEnvString("STATIC_DIR", "static"),
		CallbackTimeout:     getEnvDuration("CALLBACK_TIMEOUT", 10*time.Second),
		CallbackStrictGuard: getEnvBool("CALLBACK_STRICT_GUARD", false),
		CORSAllowedOrigin:   getEnvString("CORS_ALLOWED_ORIGIN", "*"),
		RateLimitLogin:      getEnvInt("RATE_LIMIT_LOGIN", 120),
		LogLevel:            getEnvString("LOG_LEVEL", "info"),
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
