// Package dwnlog provides the structured, contextual logging every
// pipeline stage in package handler uses. The teacher logs with bare
// fmt.Printf (see blockchain/blockchain.go, db/db.go); no example in
// the corpus imports a structured logging library directly, so this
// package moves the teacher's "print what happened" habit onto
// log/slog rather than reaching for an unprecedented third-party
// logger.
package dwnlog

import (
	"context"
	"log/slog"
	"os"
)

type ctxKey struct{}

// New builds the root logger. format selects slog's text handler when
// "text", and the JSON handler for any other value ("json" is the
// teacher's LOG_FORMAT default, config/config.go).
func New(format, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// WithLogger attaches logger to ctx, retrievable with From.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// From returns the logger attached to ctx, or slog.Default() if none.
func From(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}

	return slog.Default()
}

// ForTenant scopes logger with a tenant field, mirroring the way the
// teacher's handlers prefix log lines with a batch or account id.
func ForTenant(logger *slog.Logger, tenant string) *slog.Logger {
	return logger.With("tenant", tenant)
}
