package worker

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Prover modes
const (
	ProverModeMock   = "mock"
	ProverModeRemote = "remote"
)

// Config holds configuration for the worker
type Config struct {
	CatalogPath    string
	WorkerPort     string
	ProverMode     string
	ProverURL      string
	ProverMaxRPM   int
	RejectPreds    []string
	DefsFile       string
	RulesFile      string
	ArchiveDB      string
	LogLevel       string
	LogFormat      string
	SolveTimeout   time.Duration
	JaegerEndpoint string
	CacheSize      int
	Seed           int64
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	config := &Config{
		CatalogPath:    getEnv("GEOSYNTH_CONFIG", ""),
		WorkerPort:     getEnv("WORKER_PORT", "8081"),
		ProverMode:     strings.ToLower(getEnv("PROVER_MODE", ProverModeMock)),
		ProverURL:      getEnv("PROVER_URL", "http://localhost:8090"),
		ProverMaxRPM:   getEnvInt("PROVER_MAX_RPM", 600),
		RejectPreds:    parseCommaSeparated(getEnv("MOCK_REJECT", "")),
		DefsFile:       getEnv("DEFS_FILE", ""),
		RulesFile:      getEnv("RULES_FILE", ""),
		ArchiveDB:      getEnv("ARCHIVE_DB", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		SolveTimeout:   getEnvDuration("SOLVE_TIMEOUT", "0s"),
		JaegerEndpoint: getEnv("JAEGER_ENDPOINT", ""),
		CacheSize:      getEnvInt("CACHE_SIZE", 1000),
		Seed:           getEnvInt64("SEED", 0),
	}

	return config
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

// parseCommaSeparated parses a comma-separated string into a slice
func parseCommaSeparated(value string) []string {
	if value == "" {
		return []string{}
	}

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
