package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort   string
	JWTSecret string
	GinMode   string
	GinPath   string

	// Database (Supabase Postgres)
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string

	// Redis for caching/token blacklist
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string

	// Telegram bot hosting the audio files
	TelegramBotToken string
	TelegramAPIBase  string

	// GitHub repository used as a CDN for cover images
	GitHubToken  string
	GitHubOwner  string
	GitHubRepo   string
	GitHubBranch string

	// Firebase Cloud Messaging
	FCMServerKey string

	// Generative AI (mood tagging / translation)
	GeminiAPIKey string
	GeminiModel  string

	// Streaming link resolution
	StreamSharedSecret    string
	StreamRateLimitMax    int
	StreamRateLimitWindow int // milliseconds
	LinkRefreshCron       string
	LinkBatchLimit        int
	LinkBatchConcurrency  int

	// CORS
	AllowedOrigins []string

	// Bootstrap admin account (created on first boot when the table is empty)
	AdminUsername string
	AdminPassword string

	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Best effort .env for local development; real deployments set the environment.
	_ = godotenv.Load()

	// Precedence: config/config.json -> defaults -> environment variable overrides
	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Fatalf("invalid config/config.json: %v", err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// loadJSONConfig reads JSON file into cfg if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if s, ok := m[key].(string); ok {
			return s
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		switch t := m[key].(type) {
		case float64:
			return int(t)
		case int:
			return t
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		b, _ := m[key].(bool)
		return b
	}
	getStringSlice := func(m map[string]any, key string) []string {
		arr, ok := m[key].([]any)
		if !ok {
			return nil
		}
		res := make([]string, 0, len(arr))
		for _, it := range arr {
			if s, ok := it.(string); ok {
				res = append(res, s)
			}
		}
		return res
	}

	if app, ok := raw["app"]; ok {
		out.AppPort = getString(app, "AppPort")
		out.JWTSecret = getString(app, "JWTSecret")
		out.GinMode = getString(app, "GinMode")
		out.GinPath = getString(app, "GinPath")
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
		out.AdminUsername = getString(app, "AdminUsername")
		out.AdminPassword = getString(app, "AdminPassword")
	}

	if dbs, ok := raw["database"]; ok {
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
		out.DBSSLMode = getString(dbs, "DBSSLMode")
	}

	if rds, ok := raw["redis"]; ok {
		out.RedisHost = getString(rds, "RedisHost")
		if v := getInt(rds, "RedisPort"); v != 0 {
			out.RedisPort = v
		}
		if v := getInt(rds, "RedisDB"); v != 0 {
			out.RedisDB = v
		}
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if pv, ok := raw["providers"]; ok {
		out.TelegramBotToken = getString(pv, "TelegramBotToken")
		out.TelegramAPIBase = getString(pv, "TelegramAPIBase")
		out.GitHubToken = getString(pv, "GitHubToken")
		out.GitHubOwner = getString(pv, "GitHubOwner")
		out.GitHubRepo = getString(pv, "GitHubRepo")
		out.GitHubBranch = getString(pv, "GitHubBranch")
		out.FCMServerKey = getString(pv, "FCMServerKey")
		out.GeminiAPIKey = getString(pv, "GeminiAPIKey")
		out.GeminiModel = getString(pv, "GeminiModel")
	}

	if st, ok := raw["stream"]; ok {
		out.StreamSharedSecret = getString(st, "SharedSecret")
		if v := getInt(st, "RateLimitMax"); v != 0 {
			out.StreamRateLimitMax = v
		}
		if v := getInt(st, "RateLimitWindowMS"); v != 0 {
			out.StreamRateLimitWindow = v
		}
		if v := getString(st, "RefreshCron"); v != "" {
			out.LinkRefreshCron = v
		}
		if v := getInt(st, "BatchLimit"); v != 0 {
			out.LinkBatchLimit = v
		}
		if v := getInt(st, "BatchConcurrency"); v != 0 {
			out.LinkBatchConcurrency = v
		}
	}

	if lg, ok := raw["log"]; ok {
		out.LogLevel = getString(lg, "Level")
		out.LogPath = getString(lg, "Path")
		if v := getInt(lg, "MaxSizeMB"); v != 0 {
			out.LogMaxSizeMB = v
		}
		if v := getInt(lg, "MaxBackups"); v != 0 {
			out.LogMaxBackups = v
		}
		if v := getInt(lg, "MaxAgeDays"); v != 0 {
			out.LogMaxAgeDays = v
		}
		out.LogCompress = getBool(lg, "Compress")
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "5432"
	}
	if c.DBUser == "" {
		c.DBUser = "postgres"
	}
	if c.DBName == "" {
		c.DBName = "remusic"
	}
	if c.DBSSLMode == "" {
		c.DBSSLMode = "require"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.TelegramAPIBase == "" {
		c.TelegramAPIBase = "https://api.telegram.org"
	}
	if c.GitHubBranch == "" {
		c.GitHubBranch = "main"
	}
	if c.GeminiModel == "" {
		c.GeminiModel = "gemini-1.5-flash"
	}
	if c.StreamRateLimitMax == 0 {
		c.StreamRateLimitMax = 10
	}
	if c.StreamRateLimitWindow == 0 {
		c.StreamRateLimitWindow = 1000
	}
	if c.LinkRefreshCron == "" {
		c.LinkRefreshCron = "@every 10m"
	}
	if c.LinkBatchLimit == 0 {
		c.LinkBatchLimit = 50
	}
	if c.LinkBatchConcurrency == 0 {
		c.LinkBatchConcurrency = 3
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.AdminUsername == "" {
		c.AdminUsername = "admin"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			*dst = mustParseInt(v)
		}
	}

	setString("APP_PORT", &c.AppPort)
	setString("JWT_SECRET", &c.JWTSecret)
	setString("GIN_MODE", &c.GinMode)
	setString("GIN_PATH", &c.GinPath)

	setString("DATABASE_URI", &c.DatabaseURI)
	setString("DB_HOST", &c.DBHost)
	setString("DB_PORT", &c.DBPort)
	setString("DB_USER", &c.DBUser)
	setString("DB_PASSWORD", &c.DBPassword)
	setString("DB_NAME", &c.DBName)
	setString("DB_SSLMODE", &c.DBSSLMode)

	setString("REDIS_HOST", &c.RedisHost)
	setInt("REDIS_PORT", &c.RedisPort)
	setInt("REDIS_DB", &c.RedisDB)
	setString("REDIS_PASSWORD", &c.RedisPassword)

	setString("TELEGRAM_BOT_TOKEN", &c.TelegramBotToken)
	setString("TELEGRAM_API_BASE", &c.TelegramAPIBase)
	setString("GITHUB_TOKEN", &c.GitHubToken)
	setString("GITHUB_OWNER", &c.GitHubOwner)
	setString("GITHUB_REPO", &c.GitHubRepo)
	setString("GITHUB_BRANCH", &c.GitHubBranch)
	setString("FCM_SERVER_KEY", &c.FCMServerKey)
	setString("GEMINI_API_KEY", &c.GeminiAPIKey)
	setString("GEMINI_MODEL", &c.GeminiModel)

	setString("STREAM_SHARED_SECRET", &c.StreamSharedSecret)
	setInt("STREAM_RATE_LIMIT_MAX", &c.StreamRateLimitMax)
	setInt("STREAM_RATE_LIMIT_WINDOW_MS", &c.StreamRateLimitWindow)
	setString("LINK_REFRESH_CRON", &c.LinkRefreshCron)
	setInt("LINK_BATCH_LIMIT", &c.LinkBatchLimit)
	setInt("LINK_BATCH_CONCURRENCY", &c.LinkBatchConcurrency)

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	setString("ADMIN_USERNAME", &c.AdminUsername)
	setString("ADMIN_PASSWORD", &c.AdminPassword)

	setString("LOG_LEVEL", &c.LogLevel)
	setString("LOG_PATH", &c.LogPath)
	setInt("LOG_MAX_SIZE_MB", &c.LogMaxSizeMB)
	setInt("LOG_MAX_BACKUPS", &c.LogMaxBackups)
	setInt("LOG_MAX_AGE_DAYS", &c.LogMaxAgeDays)
	if v := os.Getenv("LOG_COMPRESS"); v != "" {
		c.LogCompress = v == "true"
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
