// Package telemetry provides observability instrumentation for GuildForge.
//
// It integrates structured logging (zerolog) and metrics collection
// (Prometheus) for monitoring overhaul runs, remote API traffic, and
// leveling reconciliation.
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	logger, err := telemetry.NewLogger(cfg.Logging)
//	metrics, err := telemetry.NewMetrics(cfg.Metrics)
//
// Child loggers carry engine context fields:
//
//	log := logger.NewComponentLogger("executor").WithGuildID(guildID).WithRunID(runID)
package telemetry
