package telemetry

import "fmt"

// Config contains the telemetry configuration for the GuildForge engine.
type Config struct {
	// ServiceName is the name of the service for telemetry identification.
	ServiceName string

	// ServiceVersion is the version of the service.
	ServiceVersion string

	// Environment specifies the deployment environment (dev, staging, prod).
	Environment string

	// Logging contains logging configuration.
	Logging LoggingConfig

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error, fatal).
	Level string

	// Format specifies the log format (console, json).
	Format string

	// Output specifies where logs are written (stdout, stderr, file path).
	Output string

	// EnableCaller adds file:line caller information to logs.
	EnableCaller bool
}

// MetricsConfig configures Prometheus metrics collection.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected.
	Enabled bool

	// Namespace is the metric name prefix.
	Namespace string

	// ListenAddr is the address for the metrics HTTP endpoint.
	ListenAddr string

	// Path is the HTTP path for the metrics endpoint.
	Path string

	// DefaultHistogramBuckets overrides the default histogram buckets.
	DefaultHistogramBuckets []float64
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "guildforge",
		ServiceVersion: "dev",
		Environment:    "dev",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled:    true,
			Namespace:  "guildforge",
			ListenAddr: ":9090",
			Path:       "/metrics",
		},
	}
}

// Validate checks the configuration for correctness.
func (c Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service name is required")
	}

	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("metrics namespace is required when metrics are enabled")
	}

	return nil
}
