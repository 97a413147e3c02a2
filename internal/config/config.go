package config

import (
	"os"
	"strconv"
	"time"

	"gobrittle/domain/series"
	"gobrittle/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Analysis AnalysisConfig
	LogLevel string
}

// DatabaseConfig holds database connection settings. An empty URL disables persistence.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port         string
	GinMode      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: loadDatabaseConfig(),
		Server:   loadServerConfig(),
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	analysis, err := LoadAnalysisConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load analysis configuration")
	}
	config.Analysis = analysis

	return config, nil
}

// LoadAnalysisConfig builds the default run configuration from BRITTLE_* variables
func LoadAnalysisConfig() (AnalysisConfig, error) {
	domain, err := series.ParseDomain(getEnvOrDefault("BRITTLE_DOMAIN", string(series.DomainGlucose)))
	if err != nil {
		return AnalysisConfig{}, errors.WithCode(errors.CodeConfigInvalid, err)
	}

	cfg := DefaultAnalysisConfig(domain)
	cfg.MinSegments = getEnvIntOrDefault("BRITTLE_MIN_SEGMENTS", cfg.MinSegments)
	cfg.MaxSegments = getEnvIntOrDefault("BRITTLE_MAX_SEGMENTS", cfg.MaxSegments)
	cfg.SignificanceLevel = getEnvFloatOrDefault("BRITTLE_SIGNIFICANCE", cfg.SignificanceLevel)
	cfg.Workers = getEnvIntOrDefault("BRITTLE_WORKERS", 0)
	cfg.MergeThreshold = getEnvDurationOrDefault("BRITTLE_MERGE_THRESHOLD", 0)
	cfg.ThresholdProfile = getEnvOrDefault("BRITTLE_THRESHOLD_PROFILE", ThresholdProfileCanonical)

	if err := cfg.Validate(); err != nil {
		return AnalysisConfig{}, errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return cfg, nil
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:          getEnvOrDefault("DATABASE_URL", ""),
		MaxOpenConns: getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 10),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:         getEnvOrDefault("PORT", "8080"),
		GinMode:      getEnvOrDefault("GIN_MODE", "release"),
		ReadTimeout:  getEnvDurationOrDefault("HTTP_READ_TIMEOUT", 30*time.Second),
		WriteTimeout: getEnvDurationOrDefault("HTTP_WRITE_TIMEOUT", 2*time.Minute),
	}
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
