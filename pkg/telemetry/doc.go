// Package telemetry provides logging, metrics and tracing for the search
// engine. Logging is structured zerolog output, metrics are Prometheus
// collectors on a private registry, and tracing is OpenTelemetry with
// stdout or OTLP export. All three are optional: a zero MetricsConfig or
// TracingConfig yields no-op instances.
package telemetry
