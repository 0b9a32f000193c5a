package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App        AppConfig
	Paths      PathsConfig
	Database   DatabaseConfig
	Cache      CacheConfig
	AI         AIConfig
	WorkerPool WorkerPoolConfig
	Security   SecurityConfig
}

type AppConfig struct {
	Version            string
	Port               string
	Debug              bool
	Environment        string
	BasePath           string
	BasicAuth          []string
	TrustedProxies     []string
	CorsAllowedOrigins []string
	ServerID           string
}

type PathsConfig struct {
	Storages string
	Media    string
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string // File path for SQLite, DB name for Postgres
	ValkeyEnabled   bool
	ValkeyAddress   string
	ValkeyPassword  string
	ValkeyDB        int
	ValkeyKeyPrefix string
}

type CacheConfig struct {
	TenantCapacity       int
	TenantTTL            time.Duration
	TenantSweepInterval  time.Duration
	GenericCapacity      int
	GenericSweepInterval time.Duration
	ConversationListTTL  time.Duration
	ContactTTL           time.Duration
	MessagePageTTL       time.Duration
}

type AIConfig struct {
	BaseURL         string
	DefaultModel    string
	RequestTimeout  time.Duration
	ReplyCooldown   time.Duration
	TypingEnabled   bool
	MaxHistoryTurns int
}

type WorkerPoolConfig struct {
	Size      int
	QueueSize int
}

type SecurityConfig struct {
	SecretKey string
}

// Global provides access to the loaded configuration. Set once by LoadConfig
// at process start; components receive what they need via constructors.
var Global *Config

// LoadConfig builds the configuration from environment variables.
func LoadConfig() (*Config, error) {
	storages := getEnv("APP_STORAGES_DIR", "storages")

	appCfg := AppConfig{
		Version:            "v1.4.0",
		Port:               getEnv("APP_PORT", "3000"),
		Debug:              getEnvBool("APP_DEBUG", false),
		Environment:        getEnv("APP_ENV", "development"),
		BasePath:           getEnv("APP_BASE_PATH", ""),
		ServerID:           getEnv("SERVER_ID", ""),
		CorsAllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
	if v := getEnv("APP_BASIC_AUTH", ""); v != "" {
		appCfg.BasicAuth = strings.Split(v, ",")
	}
	if v := getEnv("APP_TRUSTED_PROXIES", ""); v != "" {
		appCfg.TrustedProxies = strings.Split(v, ",")
	}
	if v := getEnv("APP_CORS_ALLOWED_ORIGINS", ""); v != "" {
		appCfg.CorsAllowedOrigins = strings.Split(v, ",")
	}

	dbCfg := DatabaseConfig{
		Driver:          getEnv("DB_DRIVER", "sqlite"),
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "postgres"),
		Password:        getEnv("DB_PASSWORD", ""),
		Name:            getEnv("DB_NAME", filepath.Join(storages, "wappanel.db")),
		ValkeyEnabled:   getEnvBool("VALKEY_ENABLED", false),
		ValkeyAddress:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
		ValkeyPassword:  getEnv("VALKEY_PASSWORD", ""),
		ValkeyDB:        getEnvInt("VALKEY_DB", 0),
		ValkeyKeyPrefix: getEnv("VALKEY_KEY_PREFIX", "wappanel:"),
	}

	cacheCfg := CacheConfig{
		TenantCapacity:       getEnvInt("CACHE_TENANT_CAPACITY", 500),
		TenantTTL:            getEnvDuration("CACHE_TENANT_TTL", 30*time.Minute),
		TenantSweepInterval:  getEnvDuration("CACHE_TENANT_SWEEP_INTERVAL", 5*time.Minute),
		GenericCapacity:      getEnvInt("CACHE_GENERIC_CAPACITY", 5000),
		GenericSweepInterval: getEnvDuration("CACHE_GENERIC_SWEEP_INTERVAL", time.Minute),
		ConversationListTTL:  getEnvDuration("CACHE_CONVERSATION_LIST_TTL", 10*time.Minute),
		ContactTTL:           getEnvDuration("CACHE_CONTACT_TTL", 30*time.Minute),
		MessagePageTTL:       getEnvDuration("CACHE_MESSAGE_PAGE_TTL", 5*time.Minute),
	}

	aiCfg := AIConfig{
		BaseURL:         getEnv("AI_BASE_URL", ""),
		DefaultModel:    getEnv("AI_DEFAULT_MODEL", "gpt-4o-mini"),
		RequestTimeout:  getEnvDuration("AI_REQUEST_TIMEOUT", 60*time.Second),
		ReplyCooldown:   getEnvDuration("AI_REPLY_COOLDOWN", 30*time.Second),
		TypingEnabled:   getEnvBool("AI_TYPING_ENABLED", true),
		MaxHistoryTurns: getEnvInt("AI_MAX_HISTORY_TURNS", 20),
	}

	cfg := &Config{
		App:      appCfg,
		Paths:    PathsConfig{Storages: storages, Media: filepath.Join(storages, "media")},
		Database: dbCfg,
		Cache:    cacheCfg,
		AI:       aiCfg,
		WorkerPool: WorkerPoolConfig{
			Size:      getEnvInt("MESSAGE_WORKER_POOL_SIZE", 20),
			QueueSize: getEnvInt("MESSAGE_WORKER_QUEUE_SIZE", 1000),
		},
		Security: SecurityConfig{SecretKey: getEnv("APP_SECRET_KEY", "")},
	}

	if cfg.Database.Driver != "sqlite" && cfg.Database.Driver != "postgres" && cfg.Database.Driver != "" {
		return nil, fmt.Errorf("unsupported DB_DRIVER: %s", cfg.Database.Driver)
	}

	Global = cfg
	return cfg, nil
}
