// Package logger provides structured logging for Snapfold.
//
// It configures the standard library log/slog with JSON or text output,
// runtime level adjustment, and automatic redaction of sensitive
// attributes such as passcodes and derived keys:
//
//   - logger.go: handler construction and level control
//   - context.go: request-scoped logging helpers
//   - redact.go: sensitive attribute redaction
package logger
