// Package observability provides structured logging, request-scoped
// context propagation, and Prometheus metrics for the fetch coordinator.
//
// Logging uses zerolog with a configurable level and format. Metrics are
// registered through a caller-supplied prometheus.Registerer so tests can
// use isolated registries.
package observability
