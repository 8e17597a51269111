package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Extract  ExtractConfig
	Parser   ParserConfig
	Output   OutputConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr    string
	MetricsAddr string
	Workers     int
	QueueSize   int
	RunTimeout  time.Duration
}

// ExtractConfig holds document-to-text configuration
type ExtractConfig struct {
	Pdftotext string
	MaxPages  int
	Timeout   time.Duration
}

// ParserConfig holds the tunable data tables and parse strategy
type ParserConfig struct {
	ParallelPages     bool
	CategoryTablePath string
	UnitRulesPath     string
	DefaultUnit       string
}

// OutputConfig holds where artifacts land
type OutputConfig struct {
	JSONPath string
	XLSXPath string
	InboxDir string
}

// LoadConfig loads configuration from a local .env (if any) and environment variables
func LoadConfig() *Config {
	_ = godotenv.Load()
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", "file:bulletins.db"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr:    getEnv("GRPC_ADDR", ":8080"),
			MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
			Workers:     getEnvAsInt("WORKERS", 2),
			QueueSize:   getEnvAsInt("QUEUE_SIZE", 64),
			RunTimeout:  getEnvAsDuration("RUN_TIMEOUT", 2*time.Minute),
		},
		Extract: ExtractConfig{
			Pdftotext: getEnv("PDFTOTEXT", "pdftotext"),
			MaxPages:  getEnvAsInt("EXTRACT_MAX_PAGES", 0),
			Timeout:   getEnvAsDuration("EXTRACT_TIMEOUT", time.Minute),
		},
		Parser: ParserConfig{
			ParallelPages:     getEnvAsBool("PARSE_PARALLEL_PAGES", false),
			CategoryTablePath: getEnv("CATEGORY_TABLE_PATH", ""),
			UnitRulesPath:     getEnv("UNIT_RULES_PATH", ""),
			DefaultUnit:       getEnv("DEFAULT_UNIT", "Unidad"),
		},
		Output: OutputConfig{
			JSONPath: getEnv("OUTPUT_JSON", "assets/data/current-prices.json"),
			XLSXPath: getEnv("OUTPUT_XLSX", ""),
			InboxDir: getEnv("INBOX_DIR", "./inbox"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("DB_URL", c.Database.DSN, Required)
	v.Field("GRPC_ADDR", c.Server.GRPCAddr, Required)
	v.Field("DEFAULT_UNIT", c.Parser.DefaultUnit, Required)
	v.Field("WORKERS", c.Server.Workers, Positive)
	v.Field("QUEUE_SIZE", c.Server.QueueSize, Positive)
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
