// Package logging wraps log/slog with the attribute helpers, component
// loggers, and output handlers shared by every novelkit subsystem.
package logging
