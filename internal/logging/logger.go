// Package logging is the structured logger handed to every client service.
// The only implementation wraps log/slog; see NewJSONLogger.
package logging

import "context"

// Logger takes a context so handlers can pick up request scoped values.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "signed in", "uid", uid, "email", email)
type Logger interface {
	// Debug logs verbose diagnostics (collaborator calls, observer fan-out).
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning message for unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}
