// Package configs provides application configuration loaded from environment
// variables, plus detector threshold profiles loaded from YAML.
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/spektr-org/shoplens/engine"
)

// AppConfig holds all application configuration.
// Load it once at startup using AppLoad().
type AppConfig struct {
	// DataPath is the transaction CSV loaded at startup.
	DataPath string

	// CachePath is where the parsed dataset is cached as flat CSV. Empty disables caching.
	CachePath string

	// Database contains the optional PostgreSQL source/sink.
	Database DatabaseConfig

	// Server contains HTTP settings for serve mode.
	Server ServerConfig

	// Analysis contains defaults for every report.
	Analysis AnalysisConfig

	// LogLevel is a logrus level name ("debug", "info", ...).
	LogLevel string
}

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	// DSN is the lib/pq connection string. Empty disables the database.
	DSN string

	// Table is the transaction table name.
	Table string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Port is the listen port (e.g., "8080").
	Port string

	// MaxUploadBytes bounds PUT /v1/dataset bodies.
	MaxUploadBytes int64

	// Mode is the gin mode: "debug", "release" or "test".
	Mode string

	// MaxSessions caps open analysis sessions.
	MaxSessions int

	// SessionTTL expires sessions idle this long. Zero keeps them until deleted.
	SessionTTL time.Duration
}

// AnalysisConfig holds report defaults.
type AnalysisConfig struct {
	// Currency prefixes formatted amounts.
	Currency string

	// Period is the default bucket granularity.
	Period string

	// TopN bounds top products and top spenders.
	TopN int

	// TopMetric ranks top products.
	TopMetric string

	// ThresholdsFile is an optional YAML file of detector profiles.
	ThresholdsFile string

	// ThresholdProfile selects a profile from ThresholdsFile. Empty means the file's default.
	ThresholdProfile string
}

// AppLoad loads all application configuration from environment variables.
// It attempts to load a .env file first (for local development).
// Call this once at application startup.
func AppLoad() *AppConfig {
	_ = godotenv.Load() // Ignore error - .env is optional

	return &AppConfig{
		DataPath:  getEnv("SHOPLENS_DATA", "ecommerce_data.csv"),
		CachePath: getEnv("SHOPLENS_CACHE", ""),
		Database: DatabaseConfig{
			DSN:   getEnv("DATABASE_URL", ""),
			Table: getEnv("SHOPLENS_TABLE", "transactions"),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			MaxUploadBytes: int64(getEnvInt("SHOPLENS_MAX_UPLOAD_MB", 32)) << 20,
			Mode:           getEnv("GIN_MODE", "release"),
			MaxSessions:    getEnvInt("SHOPLENS_MAX_SESSIONS", 1000),
			SessionTTL:     getEnvDuration("SHOPLENS_SESSION_TTL", 30*time.Minute),
		},
		Analysis: AnalysisConfig{
			Currency:         getEnv("SHOPLENS_CURRENCY", "$"),
			Period:           getEnv("SHOPLENS_PERIOD", "day"),
			TopN:             getEnvInt("SHOPLENS_TOP_N", engine.DefaultTopSpenders),
			TopMetric:        getEnv("SHOPLENS_TOP_METRIC", "quantity"),
			ThresholdsFile:   getEnv("SHOPLENS_THRESHOLDS", ""),
			ThresholdProfile: getEnv("SHOPLENS_THRESHOLD_PROFILE", ""),
		},
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// ============================================================================
// THRESHOLD PROFILES
// ============================================================================

// ThresholdFile is a set of named detector profiles:
//
//	default: strict
//	profiles:
//	  strict:
//	    value_percentile: 0.99
//	  night_shift:
//	    hour_from: 22
//	    hour_to: 5
//
// Fields a profile omits keep engine.DefaultDetectorConfig values.
type ThresholdFile struct {
	Default  string                      `yaml:"default"`
	Profiles map[string]ThresholdProfile `yaml:"profiles"`
}

// ThresholdProfile overrides some detector thresholds.
type ThresholdProfile struct {
	ValuePercentile    *float64 `yaml:"value_percentile"`
	QuantityPercentile *float64 `yaml:"quantity_percentile"`
	IPPercentile       *float64 `yaml:"ip_percentile"`
	HourFrom           *int     `yaml:"hour_from"`
	HourTo             *int     `yaml:"hour_to"`
}

// LoadThresholds loads and parses a YAML threshold file from the given path.
func LoadThresholds(path string) (*ThresholdFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read thresholds file %s: %w", path, err)
	}
	return ParseThresholds(data)
}

// ParseThresholds parses YAML data into a ThresholdFile.
func ParseThresholds(data []byte) (*ThresholdFile, error) {
	var tf ThresholdFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("failed to parse thresholds YAML: %w", err)
	}
	if tf.Default != "" {
		if _, ok := tf.Profiles[tf.Default]; !ok {
			return nil, fmt.Errorf("default profile %q is not defined", tf.Default)
		}
	}
	return &tf, nil
}

// Detector resolves a profile onto engine defaults and validates it.
// An empty name selects the file's default profile; with no default,
// the engine defaults are returned unchanged.
func (tf *ThresholdFile) Detector(name string) (engine.DetectorConfig, error) {
	cfg := engine.DefaultDetectorConfig()
	if name == "" {
		name = tf.Default
	}
	if name == "" {
		return cfg, nil
	}

	p, ok := tf.Profiles[name]
	if !ok {
		return cfg, fmt.Errorf("unknown threshold profile %q", name)
	}
	if p.ValuePercentile != nil {
		cfg.ValuePercentile = *p.ValuePercentile
	}
	if p.QuantityPercentile != nil {
		cfg.QuantityPercentile = *p.QuantityPercentile
	}
	if p.IPPercentile != nil {
		cfg.IPPercentile = *p.IPPercentile
	}
	if p.HourFrom != nil {
		cfg.HourFrom = *p.HourFrom
	}
	if p.HourTo != nil {
		cfg.HourTo = *p.HourTo
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("profile %q: %w", name, err)
	}
	return cfg, nil
}

// getEnvDuration returns the environment variable as a time.Duration ("15m")
// or a default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
