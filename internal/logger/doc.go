// Package logger wraps zap for the controller:
//   - a global sugared logger writing a console encoding to stderr,
//   - an optional rotated log file (lumberjack) teed next to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and KV convenience functions (InfoKV, ErrorKV, ...).
//
// Stdout is left alone: it carries the fan speed change notices.
package logger
