// Package observability configures structured logging.
//
// Instrument installs a text or JSON slog handler on stderr, enriches records
// with trace correlation ids and can additionally export logs through the
// OpenTelemetry logs SDK (stdout, OTLP over HTTP or gRPC).
package observability
