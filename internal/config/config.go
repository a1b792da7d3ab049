// Package config loads service configuration from command-line flags and
// environment variables.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	Service   ServiceConfig
	Catalog   CatalogConfig
	Loans     LoanConfig
	Server    ServerConfig
	Telemetry TelemetryConfig
}

// ServiceConfig identifies the process in logs and traces.
type ServiceConfig struct {
	Name     string
	LogLevel string
}

// CatalogConfig holds catalog file settings.
type CatalogConfig struct {
	Path string
	// Watch drops the store cache when the file changes on disk.
	Watch bool
	// Timezone names the zone loan dates are recorded in; "Local" uses the host zone.
	Timezone string
}

// LoanConfig holds loan rule settings.
type LoanConfig struct {
	RequireEmail bool
	ReturnPolicy string
	OverdueDays  int
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int
}

// TelemetryConfig holds tracing export settings.
type TelemetryConfig struct {
	// OTLPEndpoint is the OTLP/HTTP collector address; empty disables export.
	OTLPEndpoint string
}

// Load builds the configuration with precedence flag > environment > default.
// args are the command-line arguments without the program name.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("libracatalog", flag.ContinueOnError)

	serviceName := fs.String("service-name", "", "Service name reported in logs and traces")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	port := fs.String("port", "", "HTTP port (default: 8080)")
	catalogPath := fs.String("catalog", "", "Path to the catalog file (default: biblioteca.csv)")
	watch := fs.String("watch", "", "Reload the catalog when the file changes (default: false)")
	timezone := fs.String("timezone", "", "Time zone for loan dates (default: Local)")
	requireEmail := fs.String("require-email", "", "Require a borrower email on checkout (default: true)")
	returnPolicy := fs.String("return-policy", "", "Return of an available item: strict or lenient (default: strict)")
	overdueDays := fs.String("overdue-days", "", "Default overdue threshold in days (default: 30)")
	rateRPS := fs.String("rate-limit-rps", "", "Loan requests per second per client (default: 5)")
	rateBurst := fs.String("rate-limit-burst", "", "Loan request burst per client (default: 10)")
	otlpEndpoint := fs.String("otlp-endpoint", "", "OTLP/HTTP trace endpoint (default: disabled)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	cfg := &Config{
		Service: ServiceConfig{
			Name:     getConfigValue(*serviceName, "SERVICE_NAME", "libracatalog"),
			LogLevel: strings.ToLower(getConfigValue(*logLevel, "LOG_LEVEL", "info")),
		},
		Catalog: CatalogConfig{
			Path:     getConfigValue(*catalogPath, "CATALOG_PATH", "biblioteca.csv"),
			Timezone: getConfigValue(*timezone, "TIMEZONE", "Local"),
		},
		Loans: LoanConfig{
			ReturnPolicy: strings.ToLower(getConfigValue(*returnPolicy, "RETURN_POLICY", "strict")),
		},
		Server: ServerConfig{
			Port:            getConfigValue(*port, "PORT", "8080"),
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: getConfigValue(*otlpEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		},
	}

	var err error
	if cfg.Catalog.Watch, err = getBoolConfigValue(*watch, "WATCH_CATALOG", false); err != nil {
		return nil, err
	}
	if cfg.Loans.RequireEmail, err = getBoolConfigValue(*requireEmail, "REQUIRE_EMAIL", true); err != nil {
		return nil, err
	}
	if cfg.Loans.OverdueDays, err = getIntConfigValue(*overdueDays, "OVERDUE_DAYS", 30); err != nil {
		return nil, err
	}
	if cfg.Server.RateLimitBurst, err = getIntConfigValue(*rateBurst, "RATE_LIMIT_BURST", 10); err != nil {
		return nil, err
	}
	rps := getConfigValue(*rateRPS, "RATE_LIMIT_RPS", "5")
	if cfg.Server.RateLimitRPS, err = strconv.ParseFloat(rps, 64); err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", rps, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks that all config values are present and valid.
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Service.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Service.LogLevel)
	}
	if c.Catalog.Path == "" {
		return errors.New("CATALOG_PATH cannot be empty")
	}
	if c.Loans.ReturnPolicy != "strict" && c.Loans.ReturnPolicy != "lenient" {
		return fmt.Errorf("invalid return policy: %s (must be strict or lenient)", c.Loans.ReturnPolicy)
	}
	if c.Loans.OverdueDays <= 0 {
		return fmt.Errorf("invalid overdue days: %d (must be positive)", c.Loans.OverdueDays)
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("invalid port: %s", c.Server.Port)
	}
	if c.Server.RateLimitRPS <= 0 || c.Server.RateLimitBurst <= 0 {
		return errors.New("rate limit values must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Catalog.Timezone == "" || strings.EqualFold(c.Catalog.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Catalog.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Catalog.Timezone, err)
	}
	return loc, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Server.Port
}

// getConfigValue returns the first non-empty of flag value, environment variable, default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if value, ok := os.LookupEnv(envKey); ok && value != "" {
		return value
	}
	return defaultValue
}

func getBoolConfigValue(flagValue, envKey string, defaultValue bool) (bool, error) {
	raw := getConfigValue(flagValue, envKey, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", envKey, raw, err)
	}
	return v, nil
}

func getIntConfigValue(flagValue, envKey string, defaultValue int) (int, error) {
	raw := getConfigValue(flagValue, envKey, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, raw, err)
	}
	return v, nil
}
