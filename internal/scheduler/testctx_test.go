package scheduler

import (
	"context"
	"log/slog"

	"github.com/vk/tensorsched/internal/ctxlog"
)

// testContext returns a context carrying a discard logger, since every
// DeviceRegistry/DeviceQueue constructor now requires one (ctxlog.FromContext
// panics on a bare context.Background()).
func testContext() context.Context {
	return ctxlog.WithLogger(context.Background(), slog.New(slog.DiscardHandler))
}
