package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Feed
	DataURL           string
	RefreshInterval   time.Duration
	FetchTimeout      time.Duration
	FetchMaxSize      int64
	FetchBlockPrivate bool

	// Rate Limit
	RateLimitGeneral int

	// Display
	Locale         language.Tag
	CurrencySymbol string

	// Server
	ServerPort        string
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envファイルがあれば先に読み込む（既存の環境変数は上書きしない）。
// 必須環境変数が未設定、または値が不正な場合はエラーを返す。
func Load() (*Config, error) {
	// .envが無い場合は無視する
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.DataURL = os.Getenv("DATA_URL")
	if cfg.DataURL == "" {
		return nil, fmt.Errorf("required environment variables are not set: [DATA_URL]")
	}
	if err := validateDataURL(cfg.DataURL); err != nil {
		return nil, fmt.Errorf("invalid DATA_URL: %w", err)
	}

	// Optional fields with defaults
	cfg.RefreshInterval = getEnvDuration("REFRESH_INTERVAL", 5*time.Minute)
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 10*time.Second)
	cfg.FetchMaxSize = getEnvInt64("FETCH_MAX_SIZE", 5242880)
	cfg.FetchBlockPrivate = getEnvBool("FETCH_BLOCK_PRIVATE", false)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.CurrencySymbol = getEnvString("CURRENCY_SYMBOL", "£")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = os.Getenv("CORS_ALLOWED_ORIGIN")

	if cfg.RefreshInterval < time.Second {
		return nil, fmt.Errorf("REFRESH_INTERVAL must be at least 1s, got %s", cfg.RefreshInterval)
	}

	locale := getEnvString("SORT_LOCALE", "en-GB")
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid SORT_LOCALE %q: %w", locale, err)
	}
	cfg.Locale = tag

	return cfg, nil
}

// validateDataURL はフィードURLが絶対http(s)URLであることを検証する。
func validateDataURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("scheme must be http or https: %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("host is empty: %q", raw)
	}
	return nil
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
