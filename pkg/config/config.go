// Package config centralizes the environment-variable configuration
// leadgrid reads at process start. The teacher scraper reads os.Getenv
// ad hoc at each call site; this module is large enough that worker/main.go
// loads everything once into a typed Config instead.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the fully-resolved worker configuration.
type Config struct {
	// Environment gates the production-only defaults spec.md §6 documents
	// for SCRAPER_CONCURRENCY and LOGS_PER_SECOND_LIMIT.
	Environment string

	// Browser pool
	BrowserWSEndpointPrivate string
	RendererCapacity         int

	// Scraper
	ScraperConcurrency int
	MinPopulationFloor int

	// Email harvesting
	EmailAPIConcurrency int
	EmailPagesMax       int
	EmailTimeoutMS      int

	// Email verification
	EmailAPITimeout          time.Duration
	EmailFallbackOnSMTPError bool
	HELOHost                 string
	MailFrom                 string
	SMTPPort                 int
	SMTPConnectTimeoutMS     int
	SMTPCommandTimeoutMS     int
	SMTPTryStartTLS          bool
	SMTPCatchallProbe        bool

	// Logging / rate limiting
	LogsPerSecondLimit int
	LogLevel           string
	LogPretty          bool

	// Job queue / progress bus
	RedisAddr           string
	JobQueueConcurrency int
	MetricsAddr         string

	// Detail-URL dedup (spec.md §4.7 phased traversal can resurface a
	// listing from more than one city query)
	DedupDBPath string // empty selects per-run in-memory dedup; set selects a SQLite deduper at this path

	// Credit-ledger RPC (spec.md §6). Empty URL selects the unlimited stub.
	CreditServiceURL    string
	CreditServiceAPIKey string
}

// Load reads every variable this process recognizes, applying the defaults
// spec.md §6 documents, and returns an error only for values that parse but
// are out of range (e.g. a negative concurrency).
func Load() (Config, error) {
	env := getenv("APP_ENV", "development")
	production := env == "production"

	cfg := Config{
		Environment: env,

		BrowserWSEndpointPrivate: getenv("BROWSER_WS_ENDPOINT_PRIVATE", "ws://localhost:3000"),
		RendererCapacity:         getenvInt("LEADGRID_RENDERER_CAPACITY", 4),

		ScraperConcurrency: getenvInt("SCRAPER_CONCURRENCY", scraperConcurrencyDefault(production)),
		MinPopulationFloor: getenvInt("MIN_POPULATION_FLOOR", 1000),

		EmailAPIConcurrency: getenvInt("EMAIL_API_CONCURRENCY", 5),
		EmailPagesMax:       getenvInt("EMAIL_PAGES_MAX", 5),
		EmailTimeoutMS:      getenvInt("EMAIL_TIMEOUT_MS", 65_000),

		EmailAPITimeout:          time.Duration(getenvInt("EMAIL_API_TIMEOUT", 30_000)) * time.Millisecond,
		EmailFallbackOnSMTPError: getenvBool("EMAIL_FALLBACK_ON_SMTP_FAILURE", false),
		HELOHost:                 getenv("HELO_HOST", "leadgrid.local"),
		MailFrom:                 getenv("MAIL_FROM", "verify@leadgrid.local"),
		SMTPPort:                 getenvInt("SMTP_PORT", 25),
		SMTPConnectTimeoutMS:     getenvInt("SMTP_CONNECT_TIMEOUT_MS", 10_000),
		SMTPCommandTimeoutMS:     getenvInt("SMTP_COMMAND_TIMEOUT_MS", 15_000),
		SMTPTryStartTLS:          getenvBool("SMTP_TRY_STARTTLS", true),
		SMTPCatchallProbe:        getenvBool("SMTP_CATCHALL_PROBE", true),

		LogsPerSecondLimit: getenvInt("LOGS_PER_SECOND_LIMIT", logsPerSecondDefault(production)),
		LogLevel:           getenv("LOG_LEVEL", "info"),
		LogPretty:          getenvBool("LOG_PRETTY", false),

		RedisAddr:           getenv("REDIS_ADDR", "localhost:6379"),
		JobQueueConcurrency: getenvInt("JOB_QUEUE_CONCURRENCY", 2),
		MetricsAddr:         getenv("METRICS_ADDR", ":9090"),

		DedupDBPath: getenv("DEDUP_DB_PATH", ""),

		CreditServiceURL:    getenv("CREDIT_SERVICE_URL", ""),
		CreditServiceAPIKey: getenv("CREDIT_SERVICE_API_KEY", ""),
	}

	if cfg.ScraperConcurrency <= 0 {
		return Config{}, fmt.Errorf("config: SCRAPER_CONCURRENCY must be positive, got %d", cfg.ScraperConcurrency)
	}
	if cfg.RendererCapacity <= 0 {
		return Config{}, fmt.Errorf("config: LEADGRID_RENDERER_CAPACITY must be positive, got %d", cfg.RendererCapacity)
	}
	if cfg.JobQueueConcurrency <= 0 {
		return Config{}, fmt.Errorf("config: JOB_QUEUE_CONCURRENCY must be positive, got %d", cfg.JobQueueConcurrency)
	}

	return cfg, nil
}

// scraperConcurrencyDefault applies spec.md §6's 2-in-production/5-otherwise
// split for SCRAPER_CONCURRENCY.
func scraperConcurrencyDefault(production bool) int {
	if production {
		return 2
	}
	return 5
}

// logsPerSecondDefault applies spec.md §6's "500, production only" default:
// outside production the sampler is left disabled (0 means unlimited).
func logsPerSecondDefault(production bool) int {
	if production {
		return 500
	}
	return 0
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func getenvBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}
