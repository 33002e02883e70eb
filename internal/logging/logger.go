// Package logging defines the structured, context-aware logger the server
// passes to its services, and its slog implementation.
//
// Attributes are key–value pairs:
//
//	log.Info(ctx, "login failed", "username", u, "reason", reason)
//
// Values under keys that name key material or credentials (see
// sensitiveKeys) are replaced before they reach the handler, so SRP proofs,
// verifiers, tokens and 2FA secrets never end up in the log.
package logging

import "context"

type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}
