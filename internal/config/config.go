package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration for the model store service.
//
// Values are resolved in three layers: built-in defaults, then an optional
// YAML config file (CONFIG_FILE), then environment variables. Environment
// wins so container deployments can override a baked-in file per instance.
type Config struct {
	// Port the HTTP server listens on.
	Port string `yaml:"port"`

	// StorageDir is the flat directory holding one file per uploaded name.
	// Created at startup if absent.
	StorageDir string `yaml:"storage_dir"`

	// AllowedOrigin is the value sent in Access-Control-Allow-Origin.
	// "*" (the default) permits cross-origin requests from any origin;
	// set a concrete origin to tighten the policy.
	AllowedOrigin string `yaml:"allowed_origin"`

	// MaxConcurrentUploads caps simultaneous upload requests.
	// Requests beyond the cap receive 503 + Retry-After.
	MaxConcurrentUploads int `yaml:"max_concurrent_uploads"`

	// MinFreeBytes is the free-disk threshold below which the readiness
	// probe reports not-ready.
	MinFreeBytes int64 `yaml:"min_free_bytes"`

	// TmpTTL and TmpSweepInterval control the janitor that removes write
	// temp files orphaned by crashes or client disconnects mid-upload.
	TmpTTL           time.Duration `yaml:"tmp_ttl"`
	TmpSweepInterval time.Duration `yaml:"tmp_sweep_interval"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Load resolves the full configuration. A set but unreadable CONFIG_FILE is
// an error; an unset CONFIG_FILE is not.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Port:                 "5000",
		StorageDir:           "uploads",
		AllowedOrigin:        "*",
		MaxConcurrentUploads: 64,
		MinFreeBytes:         256 << 20, // 256 MB
		TmpTTL:               time.Hour,
		TmpSweepInterval:     15 * time.Minute,
		LogLevel:             "info",
	}
}

// loadFile overlays values from a YAML file. Zero-valued fields in the file
// leave the current value untouched, so a file only needs the keys it changes.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %q: %w", path, err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config file %q: %w", path, err)
	}

	if file.Port != "" {
		c.Port = file.Port
	}
	if file.StorageDir != "" {
		c.StorageDir = file.StorageDir
	}
	if file.AllowedOrigin != "" {
		c.AllowedOrigin = file.AllowedOrigin
	}
	if file.MaxConcurrentUploads > 0 {
		c.MaxConcurrentUploads = file.MaxConcurrentUploads
	}
	if file.MinFreeBytes > 0 {
		c.MinFreeBytes = file.MinFreeBytes
	}
	if file.TmpTTL > 0 {
		c.TmpTTL = file.TmpTTL
	}
	if file.TmpSweepInterval > 0 {
		c.TmpSweepInterval = file.TmpSweepInterval
	}
	if file.LogLevel != "" {
		c.LogLevel = file.LogLevel
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.StorageDir = getEnv("STORAGE_DIR", c.StorageDir)
	c.AllowedOrigin = getEnv("ALLOWED_ORIGIN", c.AllowedOrigin)
	c.MaxConcurrentUploads = getEnvInt("MAX_CONCURRENT_UPLOADS", c.MaxConcurrentUploads)
	c.MinFreeBytes = getEnvInt64("MIN_FREE_BYTES", c.MinFreeBytes)
	c.TmpTTL = getEnvDuration("TMP_TTL", c.TmpTTL)
	c.TmpSweepInterval = getEnvDuration("TMP_SWEEP_INTERVAL", c.TmpSweepInterval)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

func (c *Config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	if c.StorageDir == "" {
		return fmt.Errorf("storage_dir must not be empty")
	}
	if c.AllowedOrigin == "" {
		c.AllowedOrigin = "*"
	}
	if c.MaxConcurrentUploads <= 0 {
		c.MaxConcurrentUploads = 64
	}
	if c.MinFreeBytes <= 0 {
		c.MinFreeBytes = 256 << 20
	}
	// A zero sweep interval would panic time.NewTicker in the janitor, and
	// a zero TTL would sweep temp files of uploads still in flight.
	if c.TmpTTL <= 0 {
		c.TmpTTL = time.Hour
	}
	if c.TmpSweepInterval <= 0 {
		c.TmpSweepInterval = 15 * time.Minute
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps LogLevel to a slog.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
