package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// WithComponent stores the component logger for name in the context, keeping
// fields of a logger already stored there.
func WithComponent(ctx context.Context, name string) context.Context {
	return WithLogger(ctx, Ctx(ctx).With().Str(FieldComponent, name).Logger())
}

// Ctx returns the context logger, or the global one.
func Ctx(ctx context.Context) zerolog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return l
	}
	return L()
}
