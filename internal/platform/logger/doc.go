// Package logger provides structured logging functionality for the application.
//
// It uses log/slog to emit JSON records at a configurable level, and carries
// request-scoped loggers through context.Context so handlers, services and
// background tasks log with the same trace attributes.
package logger
