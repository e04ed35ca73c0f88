package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends understood by STORE_BACKEND.
const (
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	Port                             string `mapstructure:"PORT"`
	GinMode                          string `mapstructure:"GIN_MODE"`
	ClientURL                        string `mapstructure:"CLIENT_URL"`
	StoreBackend                     string `mapstructure:"STORE_BACKEND"`
	FirebaseProjectID                string `mapstructure:"FIREBASE_PROJECT_ID"`
	GoogleApplicationCredentials     string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`

	RedisURL string        `mapstructure:"REDIS_URL"`
	CacheTTL time.Duration `mapstructure:"CACHE_TTL"`

	// MaxEmbeddedImageBytes bounds the decoded size of inline data URL images.
	MaxEmbeddedImageBytes int `mapstructure:"MAX_EMBEDDED_IMAGE_BYTES"`

	ExportScale        float64       `mapstructure:"EXPORT_SCALE"`
	ExportWindowWidth  int           `mapstructure:"EXPORT_WINDOW_WIDTH"`
	ExportSettleDelay  time.Duration `mapstructure:"EXPORT_SETTLE_DELAY"`
	ExportImageTimeout time.Duration `mapstructure:"EXPORT_IMAGE_TIMEOUT"`
	ChromeExecPath     string        `mapstructure:"CHROME_EXEC_PATH"`

	MinIOEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinIOAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinIOSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinIOBucket    string `mapstructure:"MINIO_BUCKET"`
	MinIOUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`

	LegacyDBPath string `mapstructure:"LEGACY_DB_PATH"`
}

var envKeys = []string{
	"PORT",
	"GIN_MODE",
	"CLIENT_URL",
	"STORE_BACKEND",
	"FIREBASE_PROJECT_ID",
	"GOOGLE_APPLICATION_CREDENTIALS",
	"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64",
	"REDIS_URL",
	"CACHE_TTL",
	"MAX_EMBEDDED_IMAGE_BYTES",
	"EXPORT_SCALE",
	"EXPORT_WINDOW_WIDTH",
	"EXPORT_SETTLE_DELAY",
	"EXPORT_IMAGE_TIMEOUT",
	"CHROME_EXEC_PATH",
	"MINIO_ENDPOINT",
	"MINIO_ACCESS_KEY",
	"MINIO_SECRET_KEY",
	"MINIO_BUCKET",
	"MINIO_USE_SSL",
	"LEGACY_DB_PATH",
}

// LoadConfig loads configuration from environment variables using Viper.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("STORE_BACKEND", BackendFirestore)
	v.SetDefault("CACHE_TTL", 5*time.Minute)
	v.SetDefault("MAX_EMBEDDED_IMAGE_BYTES", 700*1024)
	v.SetDefault("EXPORT_SCALE", 5)
	v.SetDefault("EXPORT_WINDOW_WIDTH", 1600)
	v.SetDefault("EXPORT_SETTLE_DELAY", 500*time.Millisecond)
	v.SetDefault("EXPORT_IMAGE_TIMEOUT", 10*time.Second)
	v.SetDefault("MINIO_BUCKET", "resume-exports")
	v.SetDefault("LEGACY_DB_PATH", "data/legacy.db")

	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New("failed to unmarshal config: " + err.Error())
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the combinations of settings the server cannot start without.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendFirestore, BackendMemory:
	default:
		return errors.New("STORE_BACKEND must be one of 'firestore' or 'memory'")
	}
	if c.FirebaseProjectID == "" {
		return errors.New("FIREBASE_PROJECT_ID is required")
	}
	if c.MaxEmbeddedImageBytes <= 0 {
		return errors.New("MAX_EMBEDDED_IMAGE_BYTES must be positive")
	}
	if c.ExportScale <= 0 {
		return errors.New("EXPORT_SCALE must be positive")
	}
	if c.ExportWindowWidth <= 0 {
		return errors.New("EXPORT_WINDOW_WIDTH must be positive")
	}
	if c.MinIOEndpoint != "" && (c.MinIOAccessKey == "" || c.MinIOSecretKey == "") {
		return errors.New("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when MINIO_ENDPOINT is set")
	}
	return nil
}

// ArchiveEnabled reports whether exported PDFs should also be written to object storage.
func (c *Config) ArchiveEnabled() bool {
	return c.MinIOEndpoint != ""
}
