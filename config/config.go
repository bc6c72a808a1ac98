package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const dateLayout = "2006-01-02"

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// RecordSource is "postgres" or "csv".
	RecordSource string
	CSVInputPath string

	PolicyStatus  string
	EffectiveFrom time.Time
	CoverageTo    time.Time

	MaxRetries      int
	FetchTimeoutSec int

	HTTPAddr    string
	ChartWidth  int
	ChartHeight int
	CatalogPath string

	// SessionIdleMin closes dashboard sessions unused for this many minutes;
	// zero keeps them until deleted.
	SessionIdleMin int

	CSVOutputPath  string
	SnapshotDir    string
	ChromeBin      string
	MaxConcurrency int
	RateLimitMs    int

	Debug bool
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "dashboard"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "dashboard"),
		PostgresDB:       getEnv("POSTGRES_DB", "polizas"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RecordSource: strings.ToLower(getEnv("RECORD_SOURCE", "postgres")),
		CSVInputPath: getEnv("CSV_INPUT_PATH", "./data/polizas.csv"),

		PolicyStatus:  getEnv("POLICY_STATUS", "tramitada"),
		EffectiveFrom: getEnvDate("EFFECTIVE_FROM", time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)),
		CoverageTo:    getEnvDate("COVERAGE_TO", time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC)),

		MaxRetries:      getEnvInt("MAX_RETRIES", 3),
		FetchTimeoutSec: getEnvInt("FETCH_TIMEOUT_SEC", 30),

		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		ChartWidth:  getEnvInt("CHART_WIDTH", 900),
		ChartHeight: getEnvInt("CHART_HEIGHT", 420),
		CatalogPath: getEnv("DASHBOARD_CATALOG", ""),

		SessionIdleMin: getEnvInt("SESSION_IDLE_MIN", 30),

		CSVOutputPath:  getEnv("CSV_OUTPUT_PATH", "./output/tally.csv"),
		SnapshotDir:    getEnv("SNAPSHOT_DIR", "./output/snapshots"),
		ChromeBin:      getEnv("CHROME_BIN", ""),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 2),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 500),

		Debug: getEnvBool("DEBUG", false),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// FetchTimeout is the deadline for one record source query.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSec) * time.Second
}

// SessionIdleTTL is how long an unused HTTP session is kept.
func (c *Config) SessionIdleTTL() time.Duration {
	return time.Duration(c.SessionIdleMin) * time.Minute
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.RecordSource {
	case "postgres", "csv":
	default:
		errs = append(errs, fmt.Errorf("RECORD_SOURCE must be postgres or csv, got %q", c.RecordSource))
	}
	if c.RecordSource == "csv" && c.CSVInputPath == "" {
		errs = append(errs, errors.New("CSV_INPUT_PATH is required for the csv source"))
	}
	if c.PolicyStatus == "" {
		errs = append(errs, errors.New("POLICY_STATUS must not be empty"))
	}
	if c.CoverageTo.Before(c.EffectiveFrom) {
		errs = append(errs, fmt.Errorf("COVERAGE_TO %s is before EFFECTIVE_FROM %s",
			c.CoverageTo.Format(dateLayout), c.EffectiveFrom.Format(dateLayout)))
	}
	if c.ChartWidth <= 0 || c.ChartHeight <= 0 {
		errs = append(errs, fmt.Errorf("chart dimensions must be positive, got %dx%d", c.ChartWidth, c.ChartHeight))
	}
	if c.FetchTimeoutSec <= 0 {
		errs = append(errs, fmt.Errorf("FETCH_TIMEOUT_SEC must be positive, got %d", c.FetchTimeoutSec))
	}
	if c.SessionIdleMin < 0 {
		errs = append(errs, fmt.Errorf("SESSION_IDLE_MIN must not be negative, got %d", c.SessionIdleMin))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDate(key string, fallback time.Time) time.Time {
	if val := os.Getenv(key); val != "" {
		d, err := time.Parse(dateLayout, val)
		if err == nil {
			return d
		}
	}
	return fallback
}
