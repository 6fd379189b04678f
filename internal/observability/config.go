// Package observability wires OpenTelemetry tracing and metrics into the
// HTTP surface. Everything is config-gated and off by default; with the
// exporter set to "none" every hook in this package is a no-op.
package observability

import (
	"os"
	"strconv"
)

// Config holds OpenTelemetry configuration.
type Config struct {
	// Exporter type: "none", "stdout", or "otlp".
	Exporter string

	// OTLP collector endpoint, used by the otlp exporter.
	Endpoint string

	// Service name attached to every span and metric.
	ServiceName string

	// Trace sampling rate, 0.0 to 1.0.
	SampleRate float64

	MetricsEnabled bool
	TracesEnabled  bool
}

// DefaultConfig returns the default (disabled) configuration.
func DefaultConfig() *Config {
	return &Config{
		Exporter:       "none",
		Endpoint:       "localhost:4317",
		ServiceName:    "tably",
		SampleRate:     0.1,
		MetricsEnabled: false,
		TracesEnabled:  false,
	}
}

// FromEnv overlays TABLY_OTEL_* environment variables onto the config.
// Setting an exporter turns both signals on unless they are disabled
// individually.
func (c *Config) FromEnv() *Config {
	if v := os.Getenv("TABLY_OTEL_EXPORTER"); v != "" {
		c.Exporter = v
		c.MetricsEnabled = true
		c.TracesEnabled = true
	}
	if v := os.Getenv("TABLY_OTEL_ENDPOINT"); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv("TABLY_OTEL_SAMPLE_RATE"); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil {
			c.SampleRate = rate
		}
	}
	if v := os.Getenv("TABLY_OTEL_METRICS"); v != "" {
		c.MetricsEnabled = v == "true"
	}
	if v := os.Getenv("TABLY_OTEL_TRACES"); v != "" {
		c.TracesEnabled = v == "true"
	}
	return c
}

// Enabled reports whether any telemetry should be initialized.
func (c *Config) Enabled() bool {
	return c.Exporter != "none" && (c.MetricsEnabled || c.TracesEnabled)
}
