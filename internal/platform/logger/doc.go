// Package logger provides structured logging functionality for the
// application, built on log/slog with a JSON handler. It also carries
// request-scoped loggers through context so lower layers log with the
// trace attributes attached upstream.
package logger
