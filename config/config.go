package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// maxCandidatesLimit bounds FUZZY_MAX_CANDIDATES.
const maxCandidatesLimit = 8

// Dictionary sources accepted by DICT_SOURCE.
const (
	DictSourceFile     = "file"
	DictSourceHTTP     = "http"
	DictSourcePostgres = "postgres"
)

// Config holds the full application configuration loaded from environment variables or .env file.
//
// It is composed of smaller structs that represent different concerns of the system:
// HTTP server, ticker dictionary, fuzzy matching, the remote analysis endpoint and
// the optional Postgres dictionary store.
//
// Example YAML/ENV equivalent:
//
//	SERVER_PORT=8080
//	DICT_SOURCE=file
//	TICKER_DICT_PATH=./tickers_jp.json
//	ANALYSIS_API_BASE_URL=https://xxxx.execute-api.ap-northeast-1.amazonaws.com
//	FUZZY_THRESHOLD=0.35
//	POSTGRES_HOST=localhost
type Config struct {
	Server     ServerConfig     // HTTP server configuration
	Dictionary DictionaryConfig // Where the ticker dictionary is read from
	Fuzzy      FuzzyConfig      // Fuzzy search tuning
	Analysis   AnalysisConfig   // Remote analysis endpoint
	Postgres   PostgresConfig   // PostgreSQL connection settings
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string        // The TCP port the HTTP server will listen on (e.g., "8080")
	RateLimitPerMinute int           // Requests allowed per client IP per minute
	SessionIdleTTL     time.Duration // Idle sessions older than this are evicted
}

// DictionaryConfig selects the dictionary source.
//
// Fields:
//   - Source: "file", "http" or "postgres".
//   - Path: file path (file) or URL (http). Ignored for postgres.
//   - Timeout: bound on the http fetch.
type DictionaryConfig struct {
	Source  string
	Path    string
	Timeout time.Duration
}

// FuzzyConfig carries the tuning constants of the fuzzy searcher.
// Threshold is a distance: 0 accepts only exact matches, 1 accepts anything.
type FuzzyConfig struct {
	Threshold     float64
	MaxCandidates int
	WeightCode    float64
	WeightName    float64
	WeightKana    float64
	WeightAliases float64
}

// AnalysisConfig defines the remote analysis endpoint.
//
// BaseURL may be empty; the error only surfaces when a request is sent.
type AnalysisConfig struct {
	BaseURL string
	Timeout time.Duration
}

// PostgresConfig defines connection details for PostgreSQL.
//
// Fields:
//   - Host: hostname of the database server.
//   - Port: port number of the database server (default 5432).
//   - User: username for authentication.
//   - Password: password for authentication.
//   - DBName: target database name.
//   - SSLMode: SSL mode (e.g., "disable", "require").
//   - URL: computed DSN used by database/sql to connect.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string
}

// AppConfig is the globally accessible configuration instance.
//
// It is populated once via LoadConfig() and used throughout the application.
var AppConfig Config

// LoadConfig initializes the global AppConfig by reading from .env file
// or directly from environment variables.
//
// Precedence (from lowest to highest):
//  1. Defaults set in this function.
//  2. Values from .env file (if present).
//  3. Environment variables.
//
// Fatal exit:
//   - If required variables are missing or invalid, validateConfig() terminates the app.
func LoadConfig() {
	setDefaults()

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // ignore error if no .env

	viper.AutomaticEnv()

	AppConfig = Config{
		Server: ServerConfig{
			Port:               viper.GetString("SERVER_PORT"),
			RateLimitPerMinute: viper.GetInt("RATE_LIMIT_PER_MINUTE"),
			SessionIdleTTL:     viper.GetDuration("SESSION_IDLE_TTL"),
		},
		Dictionary: DictionaryConfig{
			Source:  strings.ToLower(strings.TrimSpace(viper.GetString("DICT_SOURCE"))),
			Path:    strings.TrimSpace(viper.GetString("TICKER_DICT_PATH")),
			Timeout: viper.GetDuration("DICT_TIMEOUT"),
		},
		Fuzzy: FuzzyConfig{
			Threshold:     viper.GetFloat64("FUZZY_THRESHOLD"),
			MaxCandidates: viper.GetInt("FUZZY_MAX_CANDIDATES"),
			WeightCode:    viper.GetFloat64("FUZZY_WEIGHT_CODE"),
			WeightName:    viper.GetFloat64("FUZZY_WEIGHT_NAME"),
			WeightKana:    viper.GetFloat64("FUZZY_WEIGHT_KANA"),
			WeightAliases: viper.GetFloat64("FUZZY_WEIGHT_ALIASES"),
		},
		Analysis: AnalysisConfig{
			BaseURL: strings.TrimSpace(viper.GetString("ANALYSIS_API_BASE_URL")),
			Timeout: viper.GetDuration("ANALYSIS_TIMEOUT"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		},
	}

	AppConfig.Postgres.URL = AppConfig.Postgres.DSN()

	validateConfig()
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("RATE_LIMIT_PER_MINUTE", 60)
	viper.SetDefault("SESSION_IDLE_TTL", "30m")

	viper.SetDefault("DICT_SOURCE", DictSourceFile)
	viper.SetDefault("TICKER_DICT_PATH", "./tickers_jp.json")
	viper.SetDefault("DICT_TIMEOUT", "30s")

	viper.SetDefault("FUZZY_THRESHOLD", 0.35)
	viper.SetDefault("FUZZY_MAX_CANDIDATES", 8)
	viper.SetDefault("FUZZY_WEIGHT_CODE", 0.5)
	viper.SetDefault("FUZZY_WEIGHT_NAME", 1.0)
	viper.SetDefault("FUZZY_WEIGHT_KANA", 0.7)
	viper.SetDefault("FUZZY_WEIGHT_ALIASES", 0.9)

	viper.SetDefault("ANALYSIS_API_BASE_URL", "")
	viper.SetDefault("ANALYSIS_TIMEOUT", "30s")

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "postgres")
	viper.SetDefault("POSTGRES_DB", "jpticker")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")
}

// DSN builds the connection string used by database/sql.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.DBName,
		p.SSLMode,
	)
}

// missingFields reports every invalid or missing setting of cfg by its env name.
func missingFields(cfg Config) []string {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "SERVER_PORT")
	}

	switch cfg.Dictionary.Source {
	case DictSourceFile, DictSourceHTTP:
		if cfg.Dictionary.Path == "" {
			missing = append(missing, "TICKER_DICT_PATH")
		}
	case DictSourcePostgres:
		if cfg.Postgres.Host == "" {
			missing = append(missing, "POSTGRES_HOST")
		}
		if cfg.Postgres.Port == 0 {
			missing = append(missing, "POSTGRES_PORT")
		}
		if cfg.Postgres.DBName == "" {
			missing = append(missing, "POSTGRES_DB")
		}
	default:
		missing = append(missing, "DICT_SOURCE")
	}

	if cfg.Fuzzy.Threshold < 0 || cfg.Fuzzy.Threshold > 1 {
		missing = append(missing, "FUZZY_THRESHOLD")
	}
	if cfg.Fuzzy.MaxCandidates < 1 || cfg.Fuzzy.MaxCandidates > maxCandidatesLimit {
		missing = append(missing, "FUZZY_MAX_CANDIDATES")
	}

	return missing
}

// validateConfig terminates the application if required settings are missing.
//
// ANALYSIS_API_BASE_URL is deliberately not checked here: a missing base URL
// is reported when an analysis request is sent.
func validateConfig() {
	if missing := missingFields(AppConfig); len(missing) > 0 {
		log.Fatalf("❌ Missing or invalid environment variables: %v\n", missing)
	}
}
