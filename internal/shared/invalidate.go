package shared

import (
	"context"
	"log/slog"
)

// Invalidator drops cached read models after a write.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// BumpQuietly invalidates and logs, rather than returns, any failure.
func BumpQuietly(ctx context.Context, inv Invalidator, logger *slog.Logger) {
	if inv == nil {
		return
	}
	if err := inv.Bump(ctx); err != nil && logger != nil {
		logger.Warn("cache invalidate failed", slog.Any("error", err))
	}
}
