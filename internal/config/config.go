package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix               = "VOICE_CANVAS"
	defaultHTTPAddress      = "127.0.0.1:8080"
	defaultStorageDriver    = StorageDriverSQLite
	defaultDatabasePath     = "voice-canvas.db"
	defaultRedisPrefix      = "voice-canvas:"
	defaultLogLevel         = "info"
	defaultLogFormat        = LogFormatJSON
	defaultIDKind           = "uuid"
	defaultSummaryInterval  = 24 * time.Hour
	defaultSummaryEnabled   = true
	defaultHeartbeatSeconds = 25
)

// Storage drivers.
const (
	StorageDriverSQLite = "sqlite"
	StorageDriverRedis  = "redis"
)

// Log formats.
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// AppConfig captures runtime configuration for the service.
type AppConfig struct {
	HTTPAddress       string
	StorageDriver     string
	DatabasePath      string
	RedisURL          string
	RedisPrefix       string
	LogLevel          string
	LogFormat         string
	IDKind            string
	SummaryInterval   time.Duration
	SummaryEnabled    bool
	AllowedOrigins    []string
	HeartbeatInterval time.Duration
}

// LoadDotEnv loads variables from the given .env files into the process environment.
// Missing files are ignored and existing variables are never overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("storage.driver", defaultStorageDriver)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("redis.url", "")
	configViper.SetDefault("redis.prefix", defaultRedisPrefix)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.format", defaultLogFormat)
	configViper.SetDefault("ids.kind", defaultIDKind)
	configViper.SetDefault("summary.interval", defaultSummaryInterval)
	configViper.SetDefault("summary.enabled", defaultSummaryEnabled)
	configViper.SetDefault("api.allowed_origins", []string{})
	configViper.SetDefault("api.heartbeat_seconds", defaultHeartbeatSeconds)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:       strings.TrimSpace(configViper.GetString("http.address")),
		StorageDriver:     strings.ToLower(strings.TrimSpace(configViper.GetString("storage.driver"))),
		DatabasePath:      strings.TrimSpace(configViper.GetString("database.path")),
		RedisURL:          strings.TrimSpace(configViper.GetString("redis.url")),
		RedisPrefix:       configViper.GetString("redis.prefix"),
		LogLevel:          strings.ToLower(strings.TrimSpace(configViper.GetString("log.level"))),
		LogFormat:         strings.ToLower(strings.TrimSpace(configViper.GetString("log.format"))),
		IDKind:            strings.ToLower(strings.TrimSpace(configViper.GetString("ids.kind"))),
		SummaryInterval:   configViper.GetDuration("summary.interval"),
		SummaryEnabled:    configViper.GetBool("summary.enabled"),
		AllowedOrigins:    splitOrigins(configViper.GetStringSlice("api.allowed_origins")),
		HeartbeatInterval: time.Duration(configViper.GetInt("api.heartbeat_seconds")) * time.Second,
	}

	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

// Validate checks field values and the settings each storage driver requires.
func (c AppConfig) Validate() error {
	if err := validation.ValidateStruct(&c,
		validation.Field(&c.HTTPAddress, validation.Required),
		validation.Field(&c.StorageDriver, validation.Required, validation.In(StorageDriverSQLite, StorageDriverRedis)),
		validation.Field(&c.DatabasePath, validation.When(c.StorageDriver == StorageDriverSQLite, validation.Required)),
		validation.Field(&c.RedisURL, validation.When(c.StorageDriver == StorageDriverRedis, validation.Required)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "warning", "error")),
		validation.Field(&c.LogFormat, validation.In(LogFormatJSON, LogFormatConsole)),
		validation.Field(&c.IDKind, validation.In("uuid", "ulid")),
		validation.Field(&c.SummaryInterval, validation.Required, validation.Min(time.Minute)),
		validation.Field(&c.HeartbeatInterval, validation.Required, validation.Min(time.Second)),
	); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// splitOrigins accepts both list values and a single comma-separated env value.
func splitOrigins(values []string) []string {
	origins := make([]string, 0, len(values))
	for _, value := range values {
		for _, origin := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
	}
	return origins
}
