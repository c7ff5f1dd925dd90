package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"logsieve/internal/enrichment"
	"logsieve/internal/writer"
)

// validFormats are the accepted output formats; the file formats may carry
// a .gz or .xz suffix to compress the output stream.
var validFormats = map[string]struct{}{
	"raw": {}, "raw.gz": {}, "raw.xz": {},
	"json": {}, "json.gz": {}, "json.xz": {},
	"csv": {}, "csv.gz": {}, "csv.xz": {},
	"sql": {},
}

// Config holds all application configuration. Values are sourced with
// precedence: CLI flag > environment variable (including .env) > default.
type Config struct {
	// Output
	Format    string
	OutputDir string
	Database  string
	ChunkSize int

	// Parsing and enrichment
	Host                   string
	GeoIPDatabase          string
	GeoIPCacheSize         int
	Anonymize              string
	SaltsPath              string
	AnonymizeSkipUserAgent bool

	// Ignore-lists
	IgnoreHosts    []string
	IgnoreMethods  []string
	IgnorePaths    []string
	IgnoreStatuses []int

	// Logging
	LogLevel string
	LogFile  string

	// Inputs (positional arguments, glob patterns)
	InputPatterns []string
}

// Load reads configuration from the .env file and environment variables.
func Load() *Config {
	// Missing .env is fine, plain environment variables still apply.
	_ = godotenv.Load()

	return &Config{
		Format:                 getEnv("FORMAT", "json"),
		OutputDir:              getEnv("OUTPUT_PATH", ""),
		Database:               getEnv("DATABASE", ""),
		ChunkSize:              getEnvAsInt("CHUNKING", 0),
		Host:                   getEnv("HOST", "localhost"),
		GeoIPDatabase:          getEnv("GEOIP2_DATABASE", ""),
		GeoIPCacheSize:         getEnvAsInt("GEOIP_CACHE_SIZE", 10000),
		Anonymize:              getEnv("ANONYMIZE", ""),
		SaltsPath:              getEnv("SALTS_PATH", "salts"),
		AnonymizeSkipUserAgent: getEnvAsBool("ANONYMIZE_SKIP_USER_AGENT", false),
		IgnoreHosts:            getEnvAsList("IGNORE_HOST"),
		IgnoreMethods:          getEnvAsList("IGNORE_METHOD"),
		IgnorePaths:            getEnvAsList("IGNORE_PATH"),
		IgnoreStatuses:         getEnvAsIntList("IGNORE_STATUS"),
		LogLevel:               getEnv("LOG_LEVEL", "warn"),
		LogFile:                getEnv("LOG_FILE", ""),
	}
}

// BaseFormat returns the format with any compression suffix stripped.
func (c *Config) BaseFormat() string {
	return writer.BaseFormat(c.Format)
}

// Validate checks the combined configuration. It runs before any input or
// output I/O so that incompatible configurations fail without producing
// partial output.
func (c *Config) Validate() error {
	if _, ok := validFormats[c.Format]; !ok {
		return fmt.Errorf("unknown output format %q", c.Format)
	}

	if c.BaseFormat() == "json" && c.ChunkSize > 0 {
		return fmt.Errorf("JSON array output cannot be combined with chunking")
	}

	if c.BaseFormat() == "sql" && c.Database == "" {
		return fmt.Errorf("sql output requires a database connection string")
	}

	if c.ChunkSize < 0 {
		return fmt.Errorf("chunk size must not be negative, got %d", c.ChunkSize)
	}

	mode, err := enrichment.ParseMode(c.Anonymize)
	if err != nil {
		return err
	}
	if mode != enrichment.ModeNone && c.SaltsPath == "" {
		return fmt.Errorf("anonymization requires a salts storage path")
	}

	if len(c.InputPatterns) == 0 {
		return fmt.Errorf("no input paths given")
	}

	return nil
}

// Helper functions to read environment variables with defaults.

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a space-separated environment variable.
func getEnvAsList(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}
	return strings.Fields(valueStr)
}

func getEnvAsIntList(key string) []int {
	var values []int
	for _, field := range getEnvAsList(key) {
		if value, err := strconv.Atoi(field); err == nil {
			values = append(values, value)
		}
	}
	return values
}
