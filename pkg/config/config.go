package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Registry      RegistryConfig
	Statistics    StatisticsConfig
	Images        ImagesConfig
	Notifications NotificationsConfig
	Portal        PortalConfig
	Exports       ExportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RegistryConfig carries the training-programme constants used by the reconciliation engine.
type RegistryConfig struct {
	CompletionThreshold int
	GridRows            int
	GridColumns         int
	DefaultCategory     string
}

// StatisticsConfig governs caching of grouped registry statistics.
type StatisticsConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// ImagesConfig controls where uploaded images land and how they are re-encoded.
type ImagesConfig struct {
	StorageDir    string
	PublicBaseURL string
	MaxBytes      int64
	MaxWidth      int
	Quality       float32
}

// NotificationsConfig tunes the notification dispatch queue.
type NotificationsConfig struct {
	Enabled    bool
	Workers    int
	Retries    int
	RetryDelay time.Duration
	AdminEmail string
}

// PortalConfig points the vehicle-status client at the external portal.
type PortalConfig struct {
	BaseURL string
	Timeout time.Duration
}

type ExportsConfig struct {
	StorageDir string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Registry = RegistryConfig{
		CompletionThreshold: positiveInt(v.GetInt("REGISTRY_COMPLETION_THRESHOLD"), 40),
		GridRows:            positiveInt(v.GetInt("REGISTRY_GRID_ROWS"), 30),
		GridColumns:         positiveInt(v.GetInt("REGISTRY_GRID_COLUMNS"), 50),
		DefaultCategory:     v.GetString("REGISTRY_DEFAULT_CATEGORY"),
	}

	cfg.Statistics = StatisticsConfig{
		CacheEnabled: v.GetBool("ENABLE_STATS_CACHE"),
		CacheTTL:     parseDuration(v.GetString("STATS_CACHE_TTL"), 5*time.Minute),
	}

	maxImage := v.GetInt64("IMAGES_MAX_BYTES")
	if maxImage <= 0 {
		maxImage = 5 * 1024 * 1024
	}
	cfg.Images = ImagesConfig{
		StorageDir:    v.GetString("IMAGES_STORAGE_DIR"),
		PublicBaseURL: strings.TrimRight(v.GetString("IMAGES_PUBLIC_BASE_URL"), "/"),
		MaxBytes:      maxImage,
		MaxWidth:      positiveInt(v.GetInt("IMAGES_MAX_WIDTH"), 1024),
		Quality:       float32(v.GetFloat64("IMAGES_QUALITY")),
	}

	cfg.Notifications = NotificationsConfig{
		Enabled:    v.GetBool("ENABLE_NOTIFICATIONS"),
		Workers:    v.GetInt("NOTIFY_WORKERS"),
		Retries:    v.GetInt("NOTIFY_RETRIES"),
		RetryDelay: parseDuration(v.GetString("NOTIFY_RETRY_DELAY"), 2*time.Second),
		AdminEmail: v.GetString("NOTIFY_ADMIN_EMAIL"),
	}

	cfg.Portal = PortalConfig{
		BaseURL: strings.TrimRight(v.GetString("PORTAL_BASE_URL"), "/"),
		Timeout: parseDuration(v.GetString("PORTAL_TIMEOUT"), 15*time.Second),
	}

	cfg.Exports = ExportsConfig{StorageDir: v.GetString("EXPORTS_STORAGE_DIR")}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "driving_school")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "drive-admin-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("REGISTRY_COMPLETION_THRESHOLD", 40)
	v.SetDefault("REGISTRY_GRID_ROWS", 30)
	v.SetDefault("REGISTRY_GRID_COLUMNS", 50)
	v.SetDefault("REGISTRY_DEFAULT_CATEGORY", "four-wheeler")

	v.SetDefault("ENABLE_STATS_CACHE", false)
	v.SetDefault("STATS_CACHE_TTL", "5m")

	v.SetDefault("IMAGES_STORAGE_DIR", "./uploads")
	v.SetDefault("IMAGES_PUBLIC_BASE_URL", "http://localhost:8080/uploads")
	v.SetDefault("IMAGES_MAX_BYTES", 5*1024*1024)
	v.SetDefault("IMAGES_MAX_WIDTH", 1024)
	v.SetDefault("IMAGES_QUALITY", 85)

	v.SetDefault("ENABLE_NOTIFICATIONS", false)
	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_RETRIES", 3)
	v.SetDefault("NOTIFY_RETRY_DELAY", "2s")
	v.SetDefault("NOTIFY_ADMIN_EMAIL", "")

	v.SetDefault("PORTAL_BASE_URL", "")
	v.SetDefault("PORTAL_TIMEOUT", "15s")

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func positiveInt(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
